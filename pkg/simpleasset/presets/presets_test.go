package presets_test

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tendant/simple-asset/pkg/simpleasset"
	"github.com/tendant/simple-asset/pkg/simpleasset/config"
	"github.com/tendant/simple-asset/pkg/simpleasset/presets"
)

func TestNewDevelopment(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "dev")
	svc, cleanup, err := presets.NewDevelopment(presets.WithDevStorage(dir))
	require.NoError(t, err)
	defer cleanup()

	ctx := context.Background()
	first, err := svc.StoreAsset(ctx, simpleasset.StoreAssetRequest{Data: []byte("dev"), FileName: "dev.txt"})
	require.NoError(t, err)
	assert.Equal(t, "fs", first.Record.StorageBackendName)
	assert.FileExists(t, filepath.Join(dir, first.Record.ObjectKey))

	second, err := svc.StoreAsset(ctx, simpleasset.StoreAssetRequest{Data: []byte("dev")})
	require.NoError(t, err)
	assert.True(t, second.Deduplicated)

	cleanup()
	assert.NoDirExists(t, dir)
}

func TestNewTesting(t *testing.T) {
	svc := presets.NewTesting(t)
	count, err := svc.CountAssets(context.Background(), simpleasset.ListAssetsRequest{})
	require.NoError(t, err)
	assert.Zero(t, count)
}

func TestNewTesting_Fixtures(t *testing.T) {
	svc := presets.NewTesting(t, presets.WithTestFixtures())
	ctx := context.Background()

	records, err := svc.ListAssets(ctx, simpleasset.ListAssetsRequest{})
	require.NoError(t, err)
	require.Len(t, records, 3)

	byName := map[string]*simpleasset.AssetRecord{}
	for _, r := range records {
		byName[r.FileName] = r
	}
	assert.Equal(t, "Png", byName["pixel.png"].Signature)
	assert.Equal(t, "Pdf", byName["report.pdf"].Signature)
	assert.Equal(t, "text/plain", byName["notes.txt"].MediaType)
}

func TestNewProduction_RejectsEphemeralSetups(t *testing.T) {
	for _, key := range []string{"DATABASE_URL", "STORAGE_URL", "URL_STRATEGY"} {
		t.Setenv(key, "")
	}
	ctx := context.Background()

	_, _, err := presets.NewProduction(ctx)
	assert.ErrorContains(t, err, "postgres")

	_, _, err = presets.NewProduction(ctx, config.WithDatabase("postgres", "postgres://localhost/unused"))
	assert.ErrorContains(t, err, "persistent storage")
}
