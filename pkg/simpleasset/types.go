package simpleasset

import (
	"time"

	"github.com/google/uuid"
	"github.com/tendant/simple-asset/pkg/asset"
)

// AssetStatus is the lifecycle state of a stored asset.
type AssetStatus string

const (
	AssetStatusStored  AssetStatus = "stored"
	AssetStatusCorrupt AssetStatus = "corrupt"
	AssetStatusDeleted AssetStatus = "deleted"
)

// AssetRecord is the metadata row kept for every stored envelope.
type AssetRecord struct {
	ID                 uuid.UUID  `json:"id"`
	FileName           string     `json:"file_name"`
	MediaType          string     `json:"media_type"`
	Signature          string     `json:"signature"`
	Category           string     `json:"category"`
	SizeBytes          int64      `json:"size_bytes"`
	SHA256             string     `json:"sha256"`
	MD5                string     `json:"md5"`
	StorageBackendName string     `json:"storage_backend_name"`
	ObjectKey          string     `json:"object_key"`
	EnvelopeVersion    int        `json:"envelope_version"`
	Status             string     `json:"status"`
	AssetCreatedAt     time.Time  `json:"asset_created_at"`
	CreatedAt          time.Time  `json:"created_at"`
	UpdatedAt          time.Time  `json:"updated_at"`
	DeletedAt          *time.Time `json:"deleted_at,omitempty"`
}

// NewAssetRecord describes a freshly stored asset.
func NewAssetRecord(a asset.FileAsset, backendName, objectKey string) *AssetRecord {
	now := time.Now().UTC()
	return &AssetRecord{
		ID:                 a.ID(),
		FileName:           a.Name().String(),
		MediaType:          a.MediaType().String(),
		Signature:          a.Signature().String(),
		Category:           string(a.Category()),
		SizeBytes:          a.Size(),
		SHA256:             a.SHA256(),
		MD5:                a.MD5(),
		StorageBackendName: backendName,
		ObjectKey:          objectKey,
		EnvelopeVersion:    int(asset.EnvelopeVersion),
		Status:             string(AssetStatusStored),
		AssetCreatedAt:     a.CreatedAt(),
		CreatedAt:          now,
		UpdatedAt:          now,
	}
}

// AssetFilters narrows repository listings. Zero values match everything.
type AssetFilters struct {
	MediaTypePrefix string
	Signature       string
	Category        string
	Status          string
	IncludeDeleted  bool
	Limit           int
	Offset          int
}

// ObjectMeta describes a blob as seen by its storage backend.
type ObjectMeta struct {
	Key         string            `json:"key"`
	Size        int64             `json:"size"`
	ContentType string            `json:"content_type"`
	UpdatedAt   time.Time         `json:"updated_at"`
	ETag        string            `json:"etag"`
	Metadata    map[string]string `json:"metadata"`
}

// UploadParams carries the object key and content type for an upload.
type UploadParams struct {
	ObjectKey string
	MimeType  string
}

// EnvelopeFileName is the download name used for an asset's envelope.
func EnvelopeFileName(id uuid.UUID) string {
	return id.String() + ".asset"
}
