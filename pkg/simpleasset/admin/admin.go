// Package admin aggregates statistics over stored asset records.
package admin

import (
	"context"
	"time"

	"github.com/tendant/simple-asset/pkg/simpleasset"
	"github.com/tendant/simple-asset/pkg/simpleasset/scan"
)

// Statistics provides aggregated statistics about stored assets
type Statistics struct {
	TotalCount  int64            `json:"total_count"`
	TotalBytes  int64            `json:"total_bytes"`
	ByStatus    map[string]int64 `json:"by_status,omitempty"`
	ByCategory  map[string]int64 `json:"by_category,omitempty"`
	BySignature map[string]int64 `json:"by_signature,omitempty"`
	ByBackend   map[string]int64 `json:"by_backend,omitempty"`
	OldestAsset *time.Time       `json:"oldest_asset,omitempty"`
	NewestAsset *time.Time       `json:"newest_asset,omitempty"`
}

// StatisticsOptions defines what statistics to compute
type StatisticsOptions struct {
	IncludeStatusBreakdown    bool `json:"include_status_breakdown"`
	IncludeCategoryBreakdown  bool `json:"include_category_breakdown"`
	IncludeSignatureBreakdown bool `json:"include_signature_breakdown"`
	IncludeBackendBreakdown   bool `json:"include_backend_breakdown"`
	IncludeTimeRange          bool `json:"include_time_range"`
}

// DefaultStatisticsOptions returns statistics options with all breakdowns enabled
func DefaultStatisticsOptions() StatisticsOptions {
	return StatisticsOptions{
		IncludeStatusBreakdown:    true,
		IncludeCategoryBreakdown:  true,
		IncludeSignatureBreakdown: true,
		IncludeBackendBreakdown:   true,
		IncludeTimeRange:          true,
	}
}

// StatisticsRequest selects the records to aggregate.
type StatisticsRequest struct {
	Filters simpleasset.ListAssetsRequest
	Options StatisticsOptions
}

// StatisticsResponse wraps the statistics with the time they were computed.
type StatisticsResponse struct {
	Statistics Statistics `json:"statistics"`
	ComputedAt time.Time  `json:"computed_at"`
}

// Service computes statistics by walking records through the asset service.
type Service struct {
	scanner *scan.Scanner
}

// New creates an admin service.
func New(svc simpleasset.Service) *Service {
	return &Service{scanner: scan.New(svc, nil)}
}

// GetStatistics returns aggregated statistics about matching assets.
func (s *Service) GetStatistics(ctx context.Context, req StatisticsRequest) (*StatisticsResponse, error) {
	opts := req.Options
	stats := Statistics{}
	if opts.IncludeStatusBreakdown {
		stats.ByStatus = map[string]int64{}
	}
	if opts.IncludeCategoryBreakdown {
		stats.ByCategory = map[string]int64{}
	}
	if opts.IncludeSignatureBreakdown {
		stats.BySignature = map[string]int64{}
	}
	if opts.IncludeBackendBreakdown {
		stats.ByBackend = map[string]int64{}
	}

	_, err := s.scanner.ForEach(ctx, req.Filters, func(ctx context.Context, record *simpleasset.AssetRecord) error {
		stats.TotalCount++
		stats.TotalBytes += record.SizeBytes

		if stats.ByStatus != nil {
			stats.ByStatus[record.Status]++
		}
		if stats.ByCategory != nil {
			stats.ByCategory[record.Category]++
		}
		if stats.BySignature != nil {
			stats.BySignature[record.Signature]++
		}
		if stats.ByBackend != nil {
			stats.ByBackend[record.StorageBackendName]++
		}
		if opts.IncludeTimeRange {
			created := record.CreatedAt
			if stats.OldestAsset == nil || created.Before(*stats.OldestAsset) {
				stats.OldestAsset = &created
			}
			if stats.NewestAsset == nil || created.After(*stats.NewestAsset) {
				stats.NewestAsset = &created
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	return &StatisticsResponse{Statistics: stats, ComputedAt: time.Now().UTC()}, nil
}
