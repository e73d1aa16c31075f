package asset

import (
	"bytes"
	"encoding/base64"
	"encoding/binary"
	"encoding/json"
	"strings"
	"time"

	"github.com/google/uuid"
)

// Legacy envelopes start with a little-endian int32 length, followed by
// that many bytes of JSON metadata and then the payload. Three metadata
// shapes were written over time:
//
//	v3: id, name, mimeType, signature, createdAt, sha256, md5
//	v2: id, name, mimeType, createdAt, sha256, md5
//	v1: name, mimeType
//
// Keys are matched case-insensitively.
type legacyHeader map[string]json.RawMessage

func (h legacyHeader) has(key string) bool {
	_, ok := h[key]
	return ok
}

func (h legacyHeader) string(keys ...string) string {
	for _, key := range keys {
		raw, ok := h[key]
		if !ok {
			continue
		}
		var s string
		if err := json.Unmarshal(raw, &s); err == nil {
			return s
		}
	}
	return ""
}

func (h legacyHeader) id() (uuid.UUID, bool) {
	id, err := uuid.Parse(h.string("id"))
	if err != nil || id == uuid.Nil {
		return uuid.Nil, false
	}
	return id, true
}

func (h legacyHeader) createdAt() (time.Time, bool) {
	raw, ok := h["createdat"]
	if !ok {
		return time.Time{}, false
	}
	var t time.Time
	if err := json.Unmarshal(raw, &t); err != nil {
		// Offset-less DateTime values are read as UTC.
		var s string
		if json.Unmarshal(raw, &s) != nil {
			return time.Time{}, false
		}
		if t, err = time.Parse(unzonedLayout, s); err != nil {
			return time.Time{}, false
		}
	}
	if t.IsZero() {
		return time.Time{}, false
	}
	return normalizeTime(t), true
}

const unzonedLayout = "2006-01-02T15:04:05.9999999"

func decodeLegacy(data []byte) (FileAsset, Format) {
	if len(data) < 4 {
		return Empty(), FormatInvalid
	}
	n := int64(int32(binary.LittleEndian.Uint32(data[:4])))
	if n <= 0 || n > int64(len(data)-4) {
		return Empty(), FormatInvalid
	}
	meta := bytes.TrimSpace(data[4 : 4+n])
	if len(meta) == 0 || meta[0] != '{' {
		return Empty(), FormatInvalid
	}

	var raw map[string]json.RawMessage
	if err := json.Unmarshal(meta, &raw); err != nil {
		return Empty(), FormatInvalid
	}
	header := make(legacyHeader, len(raw))
	for k, v := range raw {
		header[strings.ToLower(k)] = v
	}
	payload := bytes.Clone(data[4+n:])

	// Newest shape first. A header whose id cannot be used is still a v1
	// header when it names the file or its type.
	if id, ok := header.id(); ok {
		a, ok := decodeLegacyWithID(header, id, payload)
		switch {
		case !ok:
			return Empty(), FormatInvalid
		case header.has("signature"):
			return a, FormatLegacyV3
		default:
			return a, FormatLegacyV2
		}
	}
	if header.has("name") || header.has("mimetype") {
		return decodeLegacyV1(header, payload), FormatLegacyV1
	}
	return Empty(), FormatInvalid
}

// decodeLegacyWithID restores v2 and v3 records. The signature is always
// re-detected from the payload; a stored signature name is not trusted.
// Stored digests are kept when well formed and rejected when they do not
// match the payload.
func decodeLegacyWithID(h legacyHeader, id uuid.UUID, payload []byte) (FileAsset, bool) {
	sig := Detect(payload)
	name := h.string("name", "filename")
	mt := resolveMediaType(sig, h.string("mimetype", "mediatype", "contenttype"), name)

	createdAt, ok := h.createdAt()
	if !ok {
		createdAt = normalizeTime(time.Now())
	}

	sha, md := digests(payload)
	if stored := h.string("sha256"); isDigest(stored, 32) && stored != sha {
		return FileAsset{}, false
	}
	if stored := h.string("md5"); isDigest(stored, 16) && stored != md {
		return FileAsset{}, false
	}

	return restore(id, payload, resolveFileName(name, mt), mt, sig, createdAt, sha, md), true
}

// decodeLegacyV1 only carried a name and media type. Everything else is
// generated fresh.
func decodeLegacyV1(h legacyHeader, payload []byte) FileAsset {
	sig := Detect(payload)
	name := h.string("name", "filename")
	mt := resolveMediaType(sig, h.string("mimetype", "mediatype", "contenttype"), name)
	sha, md := digests(payload)
	return restore(uuid.New(), payload, resolveFileName(name, mt), mt, sig, normalizeTime(time.Now()), sha, md)
}

func isDigest(s string, size int) bool {
	raw, err := base64.StdEncoding.DecodeString(s)
	return err == nil && len(raw) == size
}

// EncodeLegacyV3 writes the newest legacy layout. It exists so older
// readers can be fed and so migration paths can be tested.
func EncodeLegacyV3(a FileAsset) ([]byte, error) {
	if a.IsEmpty() {
		return nil, ErrEmptyAsset
	}
	meta, err := json.Marshal(struct {
		ID        uuid.UUID `json:"id"`
		Name      string    `json:"name"`
		MimeType  string    `json:"mimeType"`
		Signature string    `json:"signature"`
		CreatedAt time.Time `json:"createdAt"`
		SHA256    string    `json:"sha256"`
		MD5       string    `json:"md5"`
	}{
		ID:        a.id,
		Name:      a.name.value,
		MimeType:  a.mediaType.value,
		Signature: a.signature.String(),
		CreatedAt: a.createdAt,
		SHA256:    a.sha256,
		MD5:       a.md5,
	})
	if err != nil {
		return nil, err
	}
	buf := make([]byte, 0, 4+len(meta)+len(a.data))
	buf = binary.LittleEndian.AppendUint32(buf, uint32(len(meta)))
	buf = append(buf, meta...)
	buf = append(buf, a.data...)
	return buf, nil
}
