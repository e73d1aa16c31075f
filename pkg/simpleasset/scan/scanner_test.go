package scan_test

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tendant/simple-asset/pkg/asset"
	"github.com/tendant/simple-asset/pkg/simpleasset"
	"github.com/tendant/simple-asset/pkg/simpleasset/repo/memory"
	"github.com/tendant/simple-asset/pkg/simpleasset/scan"
	memorystorage "github.com/tendant/simple-asset/pkg/simpleasset/storage/memory"
)

func setup(t *testing.T, n int) (simpleasset.Service, *memorystorage.Backend, []*simpleasset.AssetRecord) {
	t.Helper()
	store := memorystorage.New()
	svc, err := simpleasset.New(
		simpleasset.WithRepository(memory.New()),
		simpleasset.WithBlobStore("memory", store),
	)
	require.NoError(t, err)

	var records []*simpleasset.AssetRecord
	for i := 0; i < n; i++ {
		result, err := svc.StoreAsset(context.Background(), simpleasset.StoreAssetRequest{
			Data:     []byte(fmt.Sprintf("asset number %d", i)),
			FileName: fmt.Sprintf("asset%d.txt", i),
		})
		require.NoError(t, err)
		records = append(records, result.Record)
	}
	return svc, store, records
}

func TestScanner_ForEach(t *testing.T) {
	svc, _, records := setup(t, 7)
	scanner := scan.New(svc, nil)

	seen := map[string]bool{}
	result, err := scanner.ForEach(context.Background(), simpleasset.ListAssetsRequest{}, func(ctx context.Context, record *simpleasset.AssetRecord) error {
		seen[record.ID.String()] = true
		if record.FileName == "asset3.txt" {
			return errors.New("boom")
		}
		return nil
	})
	require.NoError(t, err)

	assert.Equal(t, int64(7), result.TotalFound)
	assert.Equal(t, int64(6), result.TotalProcessed)
	assert.Equal(t, int64(1), result.TotalFailed)
	assert.Equal(t, []string{records[3].ID.String()}, result.FailedIDs)
	assert.Len(t, seen, 7)
}

func TestScanner_Batches(t *testing.T) {
	svc, _, _ := setup(t, 5)
	scanner := scan.New(svc, nil)

	var progress [][2]int64
	result, err := scanner.Scan(context.Background(), scan.ScanOptions{
		DryRun:    true,
		BatchSize: 2,
		OnProgress: func(processed, total int64) {
			progress = append(progress, [2]int64{processed, total})
		},
	})
	require.NoError(t, err)
	assert.Equal(t, int64(5), result.TotalFound)
	assert.Equal(t, int64(5), result.TotalProcessed)
	assert.Equal(t, [][2]int64{{2, 2}, {4, 4}, {5, 5}}, progress)
}

func TestScanner_RequiresProcessor(t *testing.T) {
	svc, _, _ := setup(t, 0)
	_, err := scan.New(svc, nil).Scan(context.Background(), scan.ScanOptions{})
	assert.Error(t, err)
}

func TestScanner_CancelledContext(t *testing.T) {
	svc, _, _ := setup(t, 2)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := scan.New(svc, nil).Scan(ctx, scan.ScanOptions{DryRun: true})
	assert.ErrorIs(t, err, context.Canceled)
}

func TestVerifyProcessor(t *testing.T) {
	svc, store, records := setup(t, 3)

	// Corrupt one envelope, downgrade another to the legacy layout.
	store.Put(records[0].ObjectKey, []byte("garbage"))
	loaded, err := svc.LoadAsset(context.Background(), records[1].ID)
	require.NoError(t, err)
	legacy, err := asset.EncodeLegacyV3(loaded)
	require.NoError(t, err)
	store.Put(records[1].ObjectKey, legacy)

	scanner := scan.New(svc, nil)

	t.Run("strict", func(t *testing.T) {
		result, err := scanner.Scan(context.Background(), scan.ScanOptions{
			Processor: &scan.VerifyProcessor{Service: svc},
		})
		require.NoError(t, err)
		assert.Equal(t, int64(1), result.TotalProcessed)
		assert.ElementsMatch(t, []string{records[0].ID.String(), records[1].ID.String()}, result.FailedIDs)
	})

	t.Run("allow legacy", func(t *testing.T) {
		result, err := scanner.Scan(context.Background(), scan.ScanOptions{
			Processor: &scan.VerifyProcessor{Service: svc, AllowLegacy: true},
		})
		require.NoError(t, err)
		assert.Equal(t, int64(2), result.TotalProcessed)
		assert.Equal(t, []string{records[0].ID.String()}, result.FailedIDs)
	})
}
