package asset

import (
	"bytes"
	"crypto/md5"
	"crypto/sha256"
	"encoding/base64"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/tendant/simple-asset/pkg/filesize"
)

// DefaultMaxSize is the largest payload accepted when constructing an asset.
const DefaultMaxSize = int64(100 * filesize.MiB)

// FileAsset is an immutable file value. Construct one with FromBytes,
// FromReader or FromBase64, or reconstruct one with Decode. The zero
// value is the empty asset.
type FileAsset struct {
	id        uuid.UUID
	data      []byte
	name      FileName
	mediaType MediaType
	signature Signature
	createdAt time.Time
	sha256    string
	md5       string
}

type options struct {
	fileName  string
	mediaType string
	maxSize   int64
	now       func() time.Time
}

// Option configures asset construction.
type Option func(*options)

// WithFileName suggests a name. Invalid names are replaced with a
// generated "{uuid}{ext}" name.
func WithFileName(name string) Option {
	return func(o *options) {
		o.fileName = name
	}
}

// WithMediaType supplies a media type hint. It is used only when the
// payload's magic bytes are not recognized.
func WithMediaType(mediaType string) Option {
	return func(o *options) {
		o.mediaType = mediaType
	}
}

// WithMaxSize overrides DefaultMaxSize. Values <= 0 are ignored.
func WithMaxSize(max int64) Option {
	return func(o *options) {
		if max > 0 {
			o.maxSize = max
		}
	}
}

// WithClock sets the time source for created_at.
func WithClock(now func() time.Time) Option {
	return func(o *options) {
		if now != nil {
			o.now = now
		}
	}
}

func newOptions(opts []Option) *options {
	o := &options{
		maxSize: DefaultMaxSize,
		now:     time.Now,
	}
	for _, opt := range opts {
		opt(o)
	}
	return o
}

// FromBytes builds a new asset from data. The bytes are copied.
func FromBytes(data []byte, opts ...Option) (FileAsset, error) {
	if data == nil {
		return FileAsset{}, ErrNilData
	}
	o := newOptions(opts)
	if int64(len(data)) > o.maxSize {
		return FileAsset{}, &SizeError{Size: int64(len(data)), Max: o.maxSize}
	}

	payload := bytes.Clone(data)
	sig := Detect(payload)
	mt := resolveMediaType(sig, o.mediaType, o.fileName)
	sha, md := digests(payload)

	return FileAsset{
		id:        uuid.New(),
		data:      payload,
		name:      resolveFileName(o.fileName, mt),
		mediaType: mt,
		signature: sig,
		createdAt: normalizeTime(o.now()),
		sha256:    sha,
		md5:       md,
	}, nil
}

// FromReader reads at most the configured maximum plus one byte from r
// and builds an asset from the result.
func FromReader(r io.Reader, opts ...Option) (FileAsset, error) {
	if r == nil {
		return FileAsset{}, ErrNilData
	}
	o := newOptions(opts)
	data, err := io.ReadAll(io.LimitReader(r, o.maxSize+1))
	if err != nil {
		return FileAsset{}, fmt.Errorf("read asset data: %w", err)
	}
	if data == nil {
		data = []byte{}
	}
	return FromBytes(data, opts...)
}

// FromBase64 decodes standard base64 (a data URL prefix is accepted) and
// builds an asset from the bytes.
func FromBase64(encoded string, opts ...Option) (FileAsset, error) {
	encoded = strings.TrimSpace(encoded)
	var hint string
	if rest, ok := strings.CutPrefix(encoded, "data:"); ok {
		meta, payload, found := strings.Cut(rest, ",")
		if !found || !strings.HasSuffix(meta, ";base64") {
			return FileAsset{}, fmt.Errorf("unsupported data URL")
		}
		hint = strings.TrimSuffix(meta, ";base64")
		encoded = payload
	}
	data, err := base64.StdEncoding.DecodeString(encoded)
	if err != nil {
		return FileAsset{}, fmt.Errorf("decode base64 asset: %w", err)
	}
	if hint != "" {
		opts = append([]Option{WithMediaType(hint)}, opts...)
	}
	return FromBytes(data, opts...)
}

// Empty returns the canonical empty asset.
func Empty() FileAsset {
	return FileAsset{}
}

// restore rebuilds an asset from trusted parts without size checks or
// recomputation.
func restore(id uuid.UUID, data []byte, name FileName, mt MediaType, sig Signature, createdAt time.Time, sha, md string) FileAsset {
	return FileAsset{
		id:        id,
		data:      data,
		name:      name,
		mediaType: mt,
		signature: sig,
		createdAt: createdAt,
		sha256:    sha,
		md5:       md,
	}
}

// resolveMediaType prefers the detected format, then the caller's hint,
// then the name's extension.
func resolveMediaType(sig Signature, hint, fileName string) MediaType {
	if sig != SignatureUnknown {
		return sig.MediaType()
	}
	if mt, err := ParseMediaType(hint); err == nil {
		return mt
	}
	if ext := extensionOf(fileName); ext != "" {
		if mt, ok := MediaTypeFromExtension(ext); ok {
			return mt
		}
	}
	return OctetStream
}

func resolveFileName(name string, mt MediaType) FileName {
	if fn, err := ParseFileName(name); err == nil {
		return fn
	}
	return FileName{value: uuid.NewString() + mt.Extension()}
}

func digests(data []byte) (string, string) {
	s := sha256.Sum256(data)
	m := md5.Sum(data)
	return base64.StdEncoding.EncodeToString(s[:]), base64.StdEncoding.EncodeToString(m[:])
}

// HasValue reports whether a is a real asset rather than Empty().
func (a FileAsset) HasValue() bool { return a.id != uuid.Nil }

// IsEmpty is the negation of HasValue.
func (a FileAsset) IsEmpty() bool { return a.id == uuid.Nil }

func (a FileAsset) ID() uuid.UUID        { return a.id }
func (a FileAsset) Name() FileName       { return a.name }
func (a FileAsset) MediaType() MediaType { return a.mediaType }
func (a FileAsset) Signature() Signature { return a.signature }
func (a FileAsset) CreatedAt() time.Time { return a.createdAt }

// SHA256 is the base64 SHA-256 digest of the payload.
func (a FileAsset) SHA256() string { return a.sha256 }

// MD5 is the base64 MD5 digest of the payload.
func (a FileAsset) MD5() string { return a.md5 }

// Size is the payload length in bytes.
func (a FileAsset) Size() int64 { return int64(len(a.data)) }

// FileSize is Size as a filesize.FileSize.
func (a FileAsset) FileSize() filesize.FileSize { return filesize.FileSize(len(a.data)) }

// Bytes returns a copy of the payload.
func (a FileAsset) Bytes() []byte {
	if a.data == nil {
		return nil
	}
	return bytes.Clone(a.data)
}

// Reader returns a reader over the payload.
func (a FileAsset) Reader() *bytes.Reader {
	return bytes.NewReader(a.data)
}

// Base64 returns the payload as standard base64.
func (a FileAsset) Base64() string {
	return base64.StdEncoding.EncodeToString(a.data)
}

// DataURL returns "data:{mediaType};base64,{payload}".
func (a FileAsset) DataURL() string {
	return "data:" + a.mediaType.String() + ";base64," + a.Base64()
}

// Extension returns the name's extension, or the canonical extension for
// the media type when the name has none.
func (a FileAsset) Extension() string {
	if ext := a.name.Extension(); ext != "" {
		return ext
	}
	if a.IsEmpty() {
		return ""
	}
	return a.mediaType.Extension()
}

// UniqueName returns "{id}{ext}", a collision free storage name.
func (a FileAsset) UniqueName() string {
	if a.IsEmpty() {
		return ""
	}
	return a.id.String() + a.Extension()
}

// Category groups the asset by format.
func (a FileAsset) Category() Category {
	if a.IsEmpty() {
		return CategoryOther
	}
	return CategoryOf(a.signature, a.mediaType)
}

// Rename returns a copy with a new name. The payload is shared since
// neither copy can modify it.
func (a FileAsset) Rename(name string) (FileAsset, error) {
	if a.IsEmpty() {
		return FileAsset{}, ErrEmptyAsset
	}
	fn, err := ParseFileName(name)
	if err != nil {
		return FileAsset{}, err
	}
	a.name = fn
	return a, nil
}

// VerifyIntegrity recomputes both digests and compares them with the
// stored values.
func (a FileAsset) VerifyIntegrity() error {
	if a.IsEmpty() {
		return ErrEmptyAsset
	}
	sha, md := digests(a.data)
	if sha != a.sha256 {
		return fmt.Errorf("%w: sha256 is %s, expected %s", ErrIntegrityMismatch, sha, a.sha256)
	}
	if md != a.md5 {
		return fmt.Errorf("%w: md5 is %s, expected %s", ErrIntegrityMismatch, md, a.md5)
	}
	return nil
}

// Equal compares every field including the payload.
func (a FileAsset) Equal(b FileAsset) bool {
	return a.id == b.id &&
		a.name == b.name &&
		a.mediaType == b.mediaType &&
		a.signature == b.signature &&
		a.createdAt.Equal(b.createdAt) &&
		a.sha256 == b.sha256 &&
		a.md5 == b.md5 &&
		bytes.Equal(a.data, b.data)
}

func (a FileAsset) String() string {
	if a.IsEmpty() {
		return "FileAsset(empty)"
	}
	return fmt.Sprintf("FileAsset(%s %q %s %s)", a.id, a.name, a.mediaType, a.FileSize())
}
