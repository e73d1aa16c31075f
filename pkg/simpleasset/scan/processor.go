package scan

import (
	"context"
	"fmt"
	"strings"

	"github.com/tendant/simple-asset/pkg/simpleasset"
)

// AssetProcessor defines the interface for processing asset records.
// Implement this to run custom logic over stored assets.
type AssetProcessor interface {
	// Process is called for each record found by the scanner.
	// Return an error to mark the record as failed.
	Process(ctx context.Context, record *simpleasset.AssetRecord) error
}

// VerifyProcessor re-reads each envelope through the service and fails
// records whose envelope is corrupt or inconsistent with the record.
type VerifyProcessor struct {
	Service simpleasset.Service

	// AllowLegacy accepts envelopes that are intact but use a legacy layout.
	AllowLegacy bool
}

func (p *VerifyProcessor) Process(ctx context.Context, record *simpleasset.AssetRecord) error {
	result, err := p.Service.VerifyAsset(ctx, record.ID)
	if err != nil {
		return err
	}
	if result.Valid {
		return nil
	}

	problems := result.Problems
	if p.AllowLegacy {
		problems = problems[:0:0]
		for _, problem := range result.Problems {
			if problem != simpleasset.ProblemLegacyLayout {
				problems = append(problems, problem)
			}
		}
		if len(problems) == 0 {
			return nil
		}
	}
	return fmt.Errorf("asset %s failed verification: %s", record.ID, strings.Join(problems, "; "))
}
