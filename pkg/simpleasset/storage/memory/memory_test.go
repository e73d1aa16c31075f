package memory_test

import (
	"context"
	"fmt"
	"io"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tendant/simple-asset/pkg/simpleasset"
	memorystorage "github.com/tendant/simple-asset/pkg/simpleasset/storage/memory"
)

func TestMemoryBackend(t *testing.T) {
	backend := memorystorage.New()
	ctx := context.Background()
	testKey := "assets/ab/cdef.png"
	testData := "envelope bytes"

	t.Run("Upload", func(t *testing.T) {
		err := backend.Upload(ctx, testKey, strings.NewReader(testData))
		assert.NoError(t, err)
	})

	t.Run("GetObjectMeta", func(t *testing.T) {
		meta, err := backend.GetObjectMeta(ctx, testKey)
		require.NoError(t, err)
		assert.Equal(t, testKey, meta.Key)
		assert.Equal(t, int64(len(testData)), meta.Size)
		assert.Equal(t, "application/octet-stream", meta.ContentType)
		assert.NotEmpty(t, meta.ETag)
		assert.False(t, meta.UpdatedAt.IsZero())
	})

	t.Run("Download", func(t *testing.T) {
		reader, err := backend.Download(ctx, testKey)
		require.NoError(t, err)
		defer reader.Close()

		data, err := io.ReadAll(reader)
		require.NoError(t, err)
		assert.Equal(t, testData, string(data))
	})

	t.Run("UploadWithParams", func(t *testing.T) {
		key := "assets/ab/other"
		err := backend.UploadWithParams(ctx, strings.NewReader(testData), simpleasset.UploadParams{
			ObjectKey: key,
			MimeType:  "application/vnd.simple-asset.envelope",
		})
		require.NoError(t, err)

		meta, err := backend.GetObjectMeta(ctx, key)
		require.NoError(t, err)
		assert.Equal(t, "application/vnd.simple-asset.envelope", meta.ContentType)
	})

	t.Run("Delete", func(t *testing.T) {
		key := "assets/to/delete"
		require.NoError(t, backend.Upload(ctx, key, strings.NewReader(testData)))
		require.NoError(t, backend.Delete(ctx, key))

		_, err := backend.GetObjectMeta(ctx, key)
		assert.ErrorIs(t, err, simpleasset.ErrObjectNotFound)
		assert.ErrorIs(t, backend.Delete(ctx, key), simpleasset.ErrObjectNotFound)
	})

	t.Run("DownloadMissing", func(t *testing.T) {
		_, err := backend.Download(ctx, "missing")
		assert.ErrorIs(t, err, simpleasset.ErrObjectNotFound)
	})

	t.Run("DownloadURL", func(t *testing.T) {
		_, err := backend.GetDownloadURL(ctx, testKey, "x.asset")
		assert.ErrorIs(t, err, simpleasset.ErrDirectDownloadRequired)
	})
}

func TestMemoryBackend_Concurrent(t *testing.T) {
	backend := memorystorage.New()
	ctx := context.Background()

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			key := fmt.Sprintf("key-%d", i)
			assert.NoError(t, backend.Upload(ctx, key, strings.NewReader(key)))
			reader, err := backend.Download(ctx, key)
			if assert.NoError(t, err) {
				data, _ := io.ReadAll(reader)
				assert.Equal(t, key, string(data))
			}
		}(i)
	}
	wg.Wait()
	assert.Equal(t, 20, backend.Len())
}
