package simpleasset

import (
	"github.com/google/uuid"
	"github.com/tendant/simple-asset/pkg/asset"
)

// StoreAssetRequest builds and persists a new asset from raw bytes.
type StoreAssetRequest struct {
	Data               []byte
	FileName           string
	MediaType          string
	StorageBackendName string
}

// ImportEnvelopeRequest persists an existing envelope, v4 or legacy.
type ImportEnvelopeRequest struct {
	Envelope           []byte
	StorageBackendName string
}

// StoreAssetResult is returned from StoreAsset and ImportEnvelope.
type StoreAssetResult struct {
	Record       *AssetRecord
	Asset        asset.FileAsset
	Deduplicated bool
	SourceFormat asset.Format
}

// ListAssetsRequest pages through stored asset records.
type ListAssetsRequest struct {
	MediaTypePrefix string
	Signature       string
	Category        string
	IncludeDeleted  bool
	Limit           int
	Offset          int
}

func (r ListAssetsRequest) filters() AssetFilters {
	return AssetFilters{
		MediaTypePrefix: r.MediaTypePrefix,
		Signature:       r.Signature,
		Category:        r.Category,
		IncludeDeleted:  r.IncludeDeleted,
		Limit:           r.Limit,
		Offset:          r.Offset,
	}
}

// ProblemLegacyLayout is reported by VerifyAsset for an intact envelope
// that still uses a legacy layout.
const ProblemLegacyLayout = "envelope uses a legacy layout"

// VerifyResult reports the outcome of re-reading and checking an asset.
type VerifyResult struct {
	AssetID  uuid.UUID `json:"asset_id"`
	Format   string    `json:"format"`
	Valid    bool      `json:"valid"`
	Problems []string  `json:"problems,omitempty"`
}
