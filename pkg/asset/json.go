package asset

import (
	"bytes"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// Info is the asset's metadata without the payload.
type Info struct {
	ID        uuid.UUID `json:"id"`
	Name      string    `json:"name"`
	MediaType string    `json:"mediaType"`
	Signature string    `json:"signature"`
	Size      int64     `json:"size"`
	CreatedAt time.Time `json:"createdAt"`
	SHA256    string    `json:"sha256"`
	MD5       string    `json:"md5"`
	Category  Category  `json:"category"`
}

// Info returns the asset's metadata.
func (a FileAsset) Info() Info {
	return Info{
		ID:        a.id,
		Name:      a.name.value,
		MediaType: a.mediaType.value,
		Signature: a.signature.String(),
		Size:      a.Size(),
		CreatedAt: a.createdAt,
		SHA256:    a.sha256,
		MD5:       a.md5,
		Category:  a.Category(),
	}
}

type assetJSON struct {
	Info
	Data string `json:"data"`
}

// MarshalJSON writes the metadata plus the payload as base64 in "data".
// The empty asset is written as null.
func (a FileAsset) MarshalJSON() ([]byte, error) {
	if a.IsEmpty() {
		return []byte("null"), nil
	}
	return json.Marshal(assetJSON{Info: a.Info(), Data: a.Base64()})
}

// UnmarshalJSON accepts the object form written by MarshalJSON or a bare
// base64 string. From the object form the id, name and createdAt are
// kept; digests, signature and size are recomputed from the data.
func (a *FileAsset) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	if bytes.Equal(b, []byte("null")) {
		*a = Empty()
		return nil
	}

	if len(b) > 0 && b[0] == '"' {
		var encoded string
		if err := json.Unmarshal(b, &encoded); err != nil {
			return err
		}
		decoded, err := FromBase64(encoded)
		if err != nil {
			return err
		}
		*a = decoded
		return nil
	}

	var in struct {
		ID        uuid.UUID `json:"id"`
		Name      string    `json:"name"`
		MediaType string    `json:"mediaType"`
		CreatedAt time.Time `json:"createdAt"`
		Data      *string   `json:"data"`
	}
	if err := json.Unmarshal(b, &in); err != nil {
		return err
	}
	if in.Data == nil {
		return fmt.Errorf("asset JSON has no data")
	}
	data, err := base64.StdEncoding.DecodeString(*in.Data)
	if err != nil {
		return fmt.Errorf("decode asset data: %w", err)
	}

	if in.ID == uuid.Nil {
		fresh, err := FromBytes(data, WithFileName(in.Name), WithMediaType(in.MediaType))
		if err != nil {
			return err
		}
		*a = fresh
		return nil
	}

	sig := Detect(data)
	mt := resolveMediaType(sig, in.MediaType, in.Name)
	createdAt := normalizeTime(in.CreatedAt)
	if in.CreatedAt.IsZero() {
		createdAt = normalizeTime(time.Now())
	}
	sha, md := digests(data)
	*a = restore(in.ID, data, resolveFileName(in.Name, mt), mt, sig, createdAt, sha, md)
	return nil
}
