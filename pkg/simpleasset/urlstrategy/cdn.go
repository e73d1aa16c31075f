package urlstrategy

import (
	"context"
	"net/url"

	"github.com/tendant/simple-asset/pkg/simpleasset"
)

// CDN builds URLs from the object key under a CDN that fronts the bucket.
type CDN struct {
	CDNBaseURL string
}

// NewCDN creates a CDN strategy.
func NewCDN(cdnBaseURL string) *CDN {
	return &CDN{CDNBaseURL: trimBase(cdnBaseURL)}
}

func (s *CDN) DownloadURL(ctx context.Context, record *simpleasset.AssetRecord, backend simpleasset.BlobStore) (string, error) {
	return s.CDNBaseURL + "/" + (&url.URL{Path: record.ObjectKey}).EscapedPath(), nil
}
