package memory_test

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tendant/simple-asset/pkg/asset"
	"github.com/tendant/simple-asset/pkg/simpleasset"
	"github.com/tendant/simple-asset/pkg/simpleasset/repo/memory"
)

var pngHeader = []byte{0x89, 0x50, 0x4E, 0x47, 0x0D, 0x0A, 0x1A, 0x0A}

func newRecord(t *testing.T, data []byte, name string) *simpleasset.AssetRecord {
	t.Helper()
	a, err := asset.FromBytes(data, asset.WithFileName(name))
	require.NoError(t, err)
	return simpleasset.NewAssetRecord(a, "memory", "assets/"+a.ID().String())
}

func TestMemoryRepository_AssetOperations(t *testing.T) {
	repo := memory.New()
	ctx := context.Background()

	t.Run("CreateAndGet", func(t *testing.T) {
		record := newRecord(t, []byte("hello"), "hello.txt")
		require.NoError(t, repo.CreateAsset(ctx, record))

		retrieved, err := repo.GetAsset(ctx, record.ID)
		require.NoError(t, err)
		assert.Equal(t, record.ID, retrieved.ID)
		assert.Equal(t, "hello.txt", retrieved.FileName)
		assert.Equal(t, "text/plain", retrieved.MediaType)

		retrieved.FileName = "mutated.txt"
		again, err := repo.GetAsset(ctx, record.ID)
		require.NoError(t, err)
		assert.Equal(t, "hello.txt", again.FileName)
	})

	t.Run("CreateDuplicate", func(t *testing.T) {
		record := newRecord(t, []byte("dup"), "dup.txt")
		require.NoError(t, repo.CreateAsset(ctx, record))
		assert.ErrorIs(t, repo.CreateAsset(ctx, record), simpleasset.ErrAssetAlreadyExists)
	})

	t.Run("GetMissing", func(t *testing.T) {
		_, err := repo.GetAsset(ctx, uuid.New())
		assert.ErrorIs(t, err, simpleasset.ErrAssetNotFound)
	})

	t.Run("Update", func(t *testing.T) {
		record := newRecord(t, []byte("update me"), "u.txt")
		require.NoError(t, repo.CreateAsset(ctx, record))

		record.Status = string(simpleasset.AssetStatusCorrupt)
		require.NoError(t, repo.UpdateAsset(ctx, record))

		retrieved, err := repo.GetAsset(ctx, record.ID)
		require.NoError(t, err)
		assert.Equal(t, string(simpleasset.AssetStatusCorrupt), retrieved.Status)

		missing := newRecord(t, []byte("x"), "x.txt")
		assert.ErrorIs(t, repo.UpdateAsset(ctx, missing), simpleasset.ErrAssetNotFound)
	})

	t.Run("SoftDelete", func(t *testing.T) {
		record := newRecord(t, []byte("bye"), "bye.txt")
		require.NoError(t, repo.CreateAsset(ctx, record))

		require.NoError(t, repo.DeleteAsset(ctx, record.ID))
		_, err := repo.GetAsset(ctx, record.ID)
		assert.ErrorIs(t, err, simpleasset.ErrAssetNotFound)
		assert.ErrorIs(t, repo.DeleteAsset(ctx, record.ID), simpleasset.ErrAssetNotFound)

		all, err := repo.ListAssets(ctx, simpleasset.AssetFilters{IncludeDeleted: true, Status: string(simpleasset.AssetStatusDeleted)})
		require.NoError(t, err)
		require.Len(t, all, 1)
		assert.Equal(t, record.ID, all[0].ID)
		assert.NotNil(t, all[0].DeletedAt)
	})
}

func TestMemoryRepository_FindBySHA256(t *testing.T) {
	repo := memory.New()
	ctx := context.Background()

	first := newRecord(t, []byte("same bytes"), "a.txt")
	first.CreatedAt = time.Now().Add(-time.Minute)
	second := newRecord(t, []byte("same bytes"), "b.txt")
	require.NoError(t, repo.CreateAsset(ctx, second))
	require.NoError(t, repo.CreateAsset(ctx, first))

	found, err := repo.FindBySHA256(ctx, first.SHA256)
	require.NoError(t, err)
	assert.Equal(t, first.ID, found.ID)

	require.NoError(t, repo.DeleteAsset(ctx, first.ID))
	found, err = repo.FindBySHA256(ctx, first.SHA256)
	require.NoError(t, err)
	assert.Equal(t, second.ID, found.ID)

	second.Status = string(simpleasset.AssetStatusCorrupt)
	require.NoError(t, repo.UpdateAsset(ctx, second))
	_, err = repo.FindBySHA256(ctx, first.SHA256)
	assert.ErrorIs(t, err, simpleasset.ErrAssetNotFound)
}

func TestMemoryRepository_ListFilters(t *testing.T) {
	repo := memory.New()
	ctx := context.Background()

	base := time.Now().UTC()
	inputs := []struct {
		data []byte
		name string
	}{
		{append(pngHeader, 0, 0, 0, 0), "one.png"},
		{[]byte("%PDF-1.7 body"), "two.pdf"},
		{[]byte("plain text"), "three.txt"},
		{append(pngHeader, 1, 1, 1, 1), "four.png"},
	}
	for i, in := range inputs {
		record := newRecord(t, in.data, in.name)
		record.CreatedAt = base.Add(time.Duration(i) * time.Second)
		require.NoError(t, repo.CreateAsset(ctx, record))
	}

	tests := []struct {
		name     string
		filters  simpleasset.AssetFilters
		expected []string
	}{
		{"all", simpleasset.AssetFilters{}, []string{"one.png", "two.pdf", "three.txt", "four.png"}},
		{"media prefix", simpleasset.AssetFilters{MediaTypePrefix: "IMAGE/"}, []string{"one.png", "four.png"}},
		{"signature", simpleasset.AssetFilters{Signature: "pdf"}, []string{"two.pdf"}},
		{"category", simpleasset.AssetFilters{Category: "text"}, []string{"three.txt"}},
		{"limit", simpleasset.AssetFilters{Limit: 2}, []string{"one.png", "two.pdf"}},
		{"offset", simpleasset.AssetFilters{Offset: 3}, []string{"four.png"}},
		{"offset past end", simpleasset.AssetFilters{Offset: 10}, []string{}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			records, err := repo.ListAssets(ctx, tt.filters)
			require.NoError(t, err)

			names := make([]string, 0, len(records))
			for _, r := range records {
				names = append(names, r.FileName)
			}
			assert.Equal(t, tt.expected, names)

			if tt.filters.Limit == 0 && tt.filters.Offset == 0 {
				count, err := repo.CountAssets(ctx, tt.filters)
				require.NoError(t, err)
				assert.Equal(t, int64(len(tt.expected)), count)
			}
		})
	}
}

func TestMemoryRepository_Concurrent(t *testing.T) {
	repo := memory.New()
	ctx := context.Background()

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			record := newRecord(t, []byte(fmt.Sprintf("payload %d", i)), fmt.Sprintf("f%d.txt", i))
			assert.NoError(t, repo.CreateAsset(ctx, record))
			_, err := repo.ListAssets(ctx, simpleasset.AssetFilters{})
			assert.NoError(t, err)
		}(i)
	}
	wg.Wait()

	count, err := repo.CountAssets(ctx, simpleasset.AssetFilters{})
	require.NoError(t, err)
	assert.Equal(t, int64(20), count)
}
