package simpleasset

import (
	"context"
	"io"

	"github.com/google/uuid"
	"github.com/tendant/simple-asset/pkg/asset"
)

// Service stores, loads and maintains assets.
type Service interface {
	StoreAsset(ctx context.Context, req StoreAssetRequest) (*StoreAssetResult, error)
	ImportEnvelope(ctx context.Context, req ImportEnvelopeRequest) (*StoreAssetResult, error)
	LoadAsset(ctx context.Context, id uuid.UUID) (asset.FileAsset, error)
	LoadEnvelope(ctx context.Context, id uuid.UUID) ([]byte, error)
	GetAssetRecord(ctx context.Context, id uuid.UUID) (*AssetRecord, error)
	ListAssets(ctx context.Context, req ListAssetsRequest) ([]*AssetRecord, error)
	CountAssets(ctx context.Context, req ListAssetsRequest) (int64, error)
	DeleteAsset(ctx context.Context, id uuid.UUID) error
	VerifyAsset(ctx context.Context, id uuid.UUID) (*VerifyResult, error)
	GetDownloadURL(ctx context.Context, id uuid.UUID) (string, error)

	RegisterBackend(name string, backend BlobStore)
	GetBackend(name string) (BlobStore, error)
	MaxAssetSize() int64
}

// Repository persists asset records.
type Repository interface {
	CreateAsset(ctx context.Context, record *AssetRecord) error
	// GetAsset returns ErrAssetNotFound for missing or soft-deleted records.
	GetAsset(ctx context.Context, id uuid.UUID) (*AssetRecord, error)
	FindBySHA256(ctx context.Context, sha256 string) (*AssetRecord, error)
	ListAssets(ctx context.Context, filters AssetFilters) ([]*AssetRecord, error)
	CountAssets(ctx context.Context, filters AssetFilters) (int64, error)
	UpdateAsset(ctx context.Context, record *AssetRecord) error
	DeleteAsset(ctx context.Context, id uuid.UUID) error
}

// BlobStore holds envelope bytes under an object key.
type BlobStore interface {
	Upload(ctx context.Context, objectKey string, reader io.Reader) error
	UploadWithParams(ctx context.Context, reader io.Reader, params UploadParams) error
	Download(ctx context.Context, objectKey string) (io.ReadCloser, error)
	Delete(ctx context.Context, objectKey string) error
	GetObjectMeta(ctx context.Context, objectKey string) (*ObjectMeta, error)
	GetDownloadURL(ctx context.Context, objectKey string, downloadFilename string) (string, error)
}

// EventSink is notified of lifecycle events. Errors are logged, never
// returned to the caller of the service.
type EventSink interface {
	AssetStored(ctx context.Context, record *AssetRecord) error
	AssetDeleted(ctx context.Context, id uuid.UUID) error
	AssetCorrupt(ctx context.Context, record *AssetRecord, reason string) error
}

// URLStrategy builds the download URL for a stored envelope. backend is
// the store holding the record's object key.
type URLStrategy interface {
	DownloadURL(ctx context.Context, record *AssetRecord, backend BlobStore) (string, error)
}

// Metrics receives counters from the service.
type Metrics interface {
	EnvelopeDecoded(format string)
	AssetStored(sizeBytes int64)
	AssetRejected(reason string)
}
