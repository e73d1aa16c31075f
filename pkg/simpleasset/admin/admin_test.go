package admin_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tendant/simple-asset/pkg/simpleasset"
	"github.com/tendant/simple-asset/pkg/simpleasset/admin"
	"github.com/tendant/simple-asset/pkg/simpleasset/presets"
)

func TestGetStatistics(t *testing.T) {
	svc := presets.NewTesting(t, presets.WithTestFixtures())
	ctx := context.Background()

	resp, err := admin.New(svc).GetStatistics(ctx, admin.StatisticsRequest{Options: admin.DefaultStatisticsOptions()})
	require.NoError(t, err)

	stats := resp.Statistics
	assert.Equal(t, int64(3), stats.TotalCount)
	assert.Positive(t, stats.TotalBytes)
	assert.Equal(t, map[string]int64{"stored": 3}, stats.ByStatus)
	assert.Equal(t, int64(1), stats.BySignature["Png"])
	assert.Equal(t, int64(1), stats.BySignature["Pdf"])
	assert.Equal(t, int64(1), stats.ByCategory["image"])
	assert.Equal(t, map[string]int64{"memory": 3}, stats.ByBackend)
	require.NotNil(t, stats.OldestAsset)
	require.NotNil(t, stats.NewestAsset)
	assert.False(t, stats.NewestAsset.Before(*stats.OldestAsset))
	assert.False(t, resp.ComputedAt.IsZero())
}

func TestGetStatistics_FiltersAndOptions(t *testing.T) {
	svc := presets.NewTesting(t, presets.WithTestFixtures())

	resp, err := admin.New(svc).GetStatistics(context.Background(), admin.StatisticsRequest{
		Filters: simpleasset.ListAssetsRequest{MediaTypePrefix: "image/"},
		Options: admin.StatisticsOptions{IncludeCategoryBreakdown: true},
	})
	require.NoError(t, err)

	assert.Equal(t, int64(1), resp.Statistics.TotalCount)
	assert.Equal(t, map[string]int64{"image": 1}, resp.Statistics.ByCategory)
	assert.Nil(t, resp.Statistics.ByStatus)
	assert.Nil(t, resp.Statistics.OldestAsset)
}

func TestGetStatistics_Empty(t *testing.T) {
	resp, err := admin.New(presets.NewTesting(t)).GetStatistics(context.Background(), admin.StatisticsRequest{
		Options: admin.DefaultStatisticsOptions(),
	})
	require.NoError(t, err)
	assert.Zero(t, resp.Statistics.TotalCount)
	assert.Empty(t, resp.Statistics.ByStatus)
	assert.Nil(t, resp.Statistics.NewestAsset)
}
