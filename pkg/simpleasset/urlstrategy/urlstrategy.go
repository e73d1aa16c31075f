// Package urlstrategy decides where clients download stored envelopes
// from: the storage backend itself, the asset API, or a CDN in front of
// the bucket.
package urlstrategy

import (
	"context"
	"fmt"
	"strings"

	"github.com/tendant/simple-asset/pkg/simpleasset"
)

// Type names a URL strategy in configuration.
type Type string

const (
	// TypeStorageDelegated asks the storage backend (e.g. an S3 presigned URL).
	TypeStorageDelegated Type = "storage-delegated"

	// TypeContentBased routes downloads through the asset API.
	TypeContentBased Type = "content-based"

	// TypeCDN points at a CDN serving the object keys directly.
	TypeCDN Type = "cdn"
)

// Config holds configuration for strategy creation
type Config struct {
	Type       Type
	APIBaseURL string // content-based, e.g. "https://api.example.com" or "/api"
	CDNBaseURL string // cdn, e.g. "https://cdn.example.com"

	// PreferStorage makes the content-based strategy use the backend's own
	// URL when it can mint one.
	PreferStorage bool
}

// New creates a strategy from the configuration.
func New(config Config) (simpleasset.URLStrategy, error) {
	switch config.Type {
	case TypeStorageDelegated, "":
		return StorageDelegated{}, nil

	case TypeContentBased:
		if config.APIBaseURL == "" {
			return nil, fmt.Errorf("API base URL is required for content-based strategy")
		}
		s := NewContentBased(config.APIBaseURL)
		s.PreferStorage = config.PreferStorage
		return s, nil

	case TypeCDN:
		if config.CDNBaseURL == "" {
			return nil, fmt.Errorf("CDN base URL is required for CDN strategy")
		}
		return NewCDN(config.CDNBaseURL), nil

	default:
		return nil, fmt.Errorf("unknown URL strategy type: %s", config.Type)
	}
}

// StorageDelegated hands URL generation to the storage backend.
type StorageDelegated struct{}

func (StorageDelegated) DownloadURL(ctx context.Context, record *simpleasset.AssetRecord, backend simpleasset.BlobStore) (string, error) {
	return backend.GetDownloadURL(ctx, record.ObjectKey, simpleasset.EnvelopeFileName(record.ID))
}

func trimBase(base string) string {
	return strings.TrimSuffix(base, "/")
}
