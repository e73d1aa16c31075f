// Package scan walks stored asset records in batches and runs a processor
// over each one.
package scan

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/tendant/simple-asset/pkg/simpleasset"
)

// Scanner queries asset records and processes them with the provided processor.
type Scanner struct {
	svc    simpleasset.Service
	logger *slog.Logger
}

// New creates a new Scanner instance. A nil logger uses slog.Default().
func New(svc simpleasset.Service, logger *slog.Logger) *Scanner {
	if logger == nil {
		logger = slog.Default()
	}
	return &Scanner{svc: svc, logger: logger}
}

// ScanOptions configures the scan operation.
type ScanOptions struct {
	// Filters specifies which records to process. Limit and Offset are
	// managed by the scanner.
	Filters simpleasset.ListAssetsRequest

	// Processor defines the processing logic (required unless DryRun is true)
	Processor AssetProcessor

	// BatchSize controls how many records to query at once (default: 100)
	BatchSize int

	// DryRun if true, doesn't process records, just reports what would be processed
	DryRun bool

	// OnProgress is called after each batch is processed (optional)
	OnProgress func(processed, total int64)
}

// ScanResult contains statistics about the scan operation.
type ScanResult struct {
	TotalFound     int64
	TotalProcessed int64
	TotalFailed    int64

	// FailedIDs contains the IDs of records that failed processing
	FailedIDs []string
}

// Scan pages through matching records and processes each one. A failing
// record is counted and logged, and the scan moves on.
func (s *Scanner) Scan(ctx context.Context, opts ScanOptions) (*ScanResult, error) {
	result := &ScanResult{}

	if !opts.DryRun && opts.Processor == nil {
		return result, fmt.Errorf("processor is required when DryRun is false")
	}
	if opts.BatchSize <= 0 {
		opts.BatchSize = 100
	}

	filters := opts.Filters
	filters.Limit = opts.BatchSize
	filters.Offset = 0

	for {
		if err := ctx.Err(); err != nil {
			return result, err
		}

		records, err := s.svc.ListAssets(ctx, filters)
		if err != nil {
			return result, fmt.Errorf("failed to list assets: %w", err)
		}
		if len(records) == 0 {
			break
		}
		result.TotalFound += int64(len(records))

		for _, record := range records {
			if opts.DryRun {
				s.logger.InfoContext(ctx, "dry run: would process asset",
					"asset_id", record.ID, "media_type", record.MediaType, "status", record.Status)
				result.TotalProcessed++
				continue
			}

			if err := opts.Processor.Process(ctx, record); err != nil {
				result.TotalFailed++
				result.FailedIDs = append(result.FailedIDs, record.ID.String())
				s.logger.WarnContext(ctx, "failed to process asset", "asset_id", record.ID, "error", err)
				continue
			}
			result.TotalProcessed++
		}

		if opts.OnProgress != nil {
			opts.OnProgress(result.TotalProcessed+result.TotalFailed, result.TotalFound)
		}

		if len(records) < opts.BatchSize {
			break
		}
		filters.Offset += opts.BatchSize
	}

	return result, nil
}

// ForEach processes each matching record with fn.
//
// Example:
//
//	scanner.ForEach(ctx, filters, func(ctx context.Context, record *simpleasset.AssetRecord) error {
//	    fmt.Printf("Processing %s\n", record.ID)
//	    return nil
//	})
func (s *Scanner) ForEach(ctx context.Context, filters simpleasset.ListAssetsRequest, fn func(context.Context, *simpleasset.AssetRecord) error) (*ScanResult, error) {
	return s.Scan(ctx, ScanOptions{
		Filters:   filters,
		Processor: &funcProcessor{fn: fn},
	})
}

// funcProcessor adapts a function to the AssetProcessor interface.
type funcProcessor struct {
	fn func(context.Context, *simpleasset.AssetRecord) error
}

func (p *funcProcessor) Process(ctx context.Context, record *simpleasset.AssetRecord) error {
	return p.fn(ctx, record)
}
