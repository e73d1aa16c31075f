package urlstrategy

import (
	"context"
	"errors"
	"fmt"

	"github.com/tendant/simple-asset/pkg/simpleasset"
)

// ContentBased returns URLs served by the asset API, so downloads go
// through the application's access control.
type ContentBased struct {
	APIBaseURL    string
	PreferStorage bool
}

// NewContentBased creates a content-based strategy rooted at apiBaseURL.
func NewContentBased(apiBaseURL string) *ContentBased {
	return &ContentBased{APIBaseURL: trimBase(apiBaseURL)}
}

func (s *ContentBased) DownloadURL(ctx context.Context, record *simpleasset.AssetRecord, backend simpleasset.BlobStore) (string, error) {
	if s.PreferStorage {
		url, err := StorageDelegated{}.DownloadURL(ctx, record, backend)
		if err == nil {
			return url, nil
		}
		if !errors.Is(err, simpleasset.ErrDirectDownloadRequired) {
			return "", err
		}
	}
	return fmt.Sprintf("%s/assets/%s/envelope", s.APIBaseURL, record.ID), nil
}
