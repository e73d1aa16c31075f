package asset

import (
	"bytes"
	"encoding/base64"
	"encoding/binary"
	"fmt"
	"io"
	"math"

	"github.com/google/uuid"
)

const (
	// EnvelopeVersion is the first byte of every current envelope.
	EnvelopeVersion byte = 4

	// EnvelopeMediaType labels stored envelopes.
	EnvelopeMediaType = "application/vnd.simple-asset.envelope"

	sha256FieldSize = 44
	md5FieldSize    = 24

	// EnvelopeOverhead is the envelope size minus payload, media type and name bytes.
	EnvelopeOverhead = 1 + 16 + 1 + 8 + 2 + 2 + sha256FieldSize + md5FieldSize
)

// Format says which layout an envelope was decoded from.
type Format uint8

const (
	FormatInvalid Format = iota
	FormatV4
	FormatLegacyV3
	FormatLegacyV2
	FormatLegacyV1
)

func (f Format) String() string {
	switch f {
	case FormatV4:
		return "v4"
	case FormatLegacyV3:
		return "legacy_v3"
	case FormatLegacyV2:
		return "legacy_v2"
	case FormatLegacyV1:
		return "legacy_v1"
	}
	return "invalid"
}

// IsLegacy reports whether the envelope should be rewritten as v4.
func (f Format) IsLegacy() bool {
	return f == FormatLegacyV3 || f == FormatLegacyV2 || f == FormatLegacyV1
}

// EnvelopeSize is the exact length MarshalBinary will produce.
func (a FileAsset) EnvelopeSize() int {
	return EnvelopeOverhead + len(a.mediaType.value) + len(a.name.value) + len(a.data)
}

// MarshalBinary encodes the asset as a v4 envelope. Encoding is
// deterministic: the same asset always produces the same bytes.
func (a FileAsset) MarshalBinary() ([]byte, error) {
	if a.IsEmpty() {
		return nil, ErrEmptyAsset
	}
	mt, name := a.mediaType.value, a.name.value
	if len(mt) > math.MaxUint16 || len(name) > math.MaxUint16 {
		return nil, fmt.Errorf("asset header field too long")
	}
	if len(a.sha256) > sha256FieldSize || len(a.md5) > md5FieldSize {
		return nil, fmt.Errorf("asset digest too long")
	}

	buf := make([]byte, 0, a.EnvelopeSize())
	buf = append(buf, EnvelopeVersion)
	buf = append(buf, a.id[:]...)
	buf = append(buf, byte(a.signature))
	buf = binary.LittleEndian.AppendUint64(buf, uint64(toTicks(a.createdAt)))
	buf = binary.LittleEndian.AppendUint16(buf, uint16(len(mt)))
	buf = append(buf, mt...)
	buf = binary.LittleEndian.AppendUint16(buf, uint16(len(name)))
	buf = append(buf, name...)
	buf = appendPadded(buf, a.sha256, sha256FieldSize)
	buf = appendPadded(buf, a.md5, md5FieldSize)
	buf = append(buf, a.data...)
	return buf, nil
}

// Encode is MarshalBinary for callers that have already checked HasValue.
// It returns nil for the empty asset.
func (a FileAsset) Encode() []byte {
	b, err := a.MarshalBinary()
	if err != nil {
		return nil
	}
	return b
}

// WriteTo writes the v4 envelope to w.
func (a FileAsset) WriteTo(w io.Writer) (int64, error) {
	b, err := a.MarshalBinary()
	if err != nil {
		return 0, err
	}
	n, err := w.Write(b)
	return int64(n), err
}

// UnmarshalBinary decodes any supported envelope into a. Unlike Decode it
// reports unrecognized input as an error.
func (a *FileAsset) UnmarshalBinary(data []byte) error {
	decoded, format := DecodeWithFormat(data)
	if format == FormatInvalid {
		return fmt.Errorf("unrecognized asset envelope")
	}
	*a = decoded
	return nil
}

func appendPadded(buf []byte, s string, size int) []byte {
	buf = append(buf, s...)
	for i := len(s); i < size; i++ {
		buf = append(buf, 0)
	}
	return buf
}

// Decode reconstructs an asset from a v4 envelope or one of the legacy
// layouts. Input that cannot be decoded yields Empty(); Decode never panics.
func Decode(data []byte) FileAsset {
	a, _ := DecodeWithFormat(data)
	return a
}

// DecodeWithFormat is Decode that also reports which layout matched.
func DecodeWithFormat(data []byte) (FileAsset, Format) {
	if len(data) == 0 {
		return Empty(), FormatInvalid
	}
	if data[0] == EnvelopeVersion {
		if a, ok := decodeV4(data); ok {
			return a, FormatV4
		}
	}
	return decodeLegacy(data)
}

// ReadEnvelope reads r to EOF, refusing more than maxSize bytes of input,
// and decodes the result.
func ReadEnvelope(r io.Reader, maxSize int64) (FileAsset, Format, error) {
	data, err := io.ReadAll(io.LimitReader(r, maxSize+1))
	if err != nil {
		return Empty(), FormatInvalid, fmt.Errorf("read envelope: %w", err)
	}
	if int64(len(data)) > maxSize {
		return Empty(), FormatInvalid, &SizeError{Size: int64(len(data)), Max: maxSize}
	}
	a, format := DecodeWithFormat(data)
	return a, format, nil
}

type envelopeReader struct {
	buf []byte
	off int
}

func (r *envelopeReader) next(n int) ([]byte, bool) {
	if n < 0 || len(r.buf)-r.off < n {
		return nil, false
	}
	b := r.buf[r.off : r.off+n]
	r.off += n
	return b, true
}

func (r *envelopeReader) uint16() (int, bool) {
	b, ok := r.next(2)
	if !ok {
		return 0, false
	}
	return int(binary.LittleEndian.Uint16(b)), true
}

func (r *envelopeReader) lengthPrefixed() (string, bool) {
	n, ok := r.uint16()
	if !ok {
		return "", false
	}
	b, ok := r.next(n)
	return string(b), ok
}

// decodeV4 only accepts envelopes whose fields are already in normalized
// form, which keeps decode/encode byte-identical.
func decodeV4(data []byte) (FileAsset, bool) {
	if len(data) < EnvelopeOverhead {
		return FileAsset{}, false
	}
	r := &envelopeReader{buf: data, off: 1}

	idBytes, _ := r.next(16)
	id, err := uuid.FromBytes(idBytes)
	if err != nil || id == uuid.Nil {
		return FileAsset{}, false
	}

	sigByte, _ := r.next(1)
	sig := Signature(sigByte[0])
	if !sig.IsValid() {
		return FileAsset{}, false
	}

	tickBytes, _ := r.next(8)
	ticks := int64(binary.LittleEndian.Uint64(tickBytes))
	if ticks < 0 {
		return FileAsset{}, false
	}

	rawMT, ok := r.lengthPrefixed()
	if !ok {
		return FileAsset{}, false
	}
	mt, err := ParseMediaType(rawMT)
	if err != nil || mt.value != rawMT {
		return FileAsset{}, false
	}

	rawName, ok := r.lengthPrefixed()
	if !ok {
		return FileAsset{}, false
	}
	name, err := ParseFileName(rawName)
	if err != nil {
		return FileAsset{}, false
	}

	shaField, ok := r.next(sha256FieldSize)
	if !ok {
		return FileAsset{}, false
	}
	sha, ok := readDigest(shaField, 32)
	if !ok {
		return FileAsset{}, false
	}
	md5Field, ok := r.next(md5FieldSize)
	if !ok {
		return FileAsset{}, false
	}
	md, ok := readDigest(md5Field, 16)
	if !ok {
		return FileAsset{}, false
	}

	// The header has no payload length, so a truncated payload is only
	// caught by its digest.
	payload := bytes.Clone(data[r.off:])
	if computed, _ := digests(payload); computed != sha {
		return FileAsset{}, false
	}
	return restore(id, payload, name, mt, sig, fromTicks(ticks), sha, md), true
}

// readDigest strips the zero padding and checks the value is base64 of
// the expected digest length.
func readDigest(field []byte, size int) (string, bool) {
	s := string(bytes.TrimRight(field, "\x00"))
	raw, err := base64.StdEncoding.DecodeString(s)
	if err != nil || len(raw) != size {
		return "", false
	}
	return s, true
}
