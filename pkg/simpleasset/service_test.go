package simpleasset_test

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tendant/simple-asset/pkg/asset"
	"github.com/tendant/simple-asset/pkg/simpleasset"
	"github.com/tendant/simple-asset/pkg/simpleasset/repo/memory"
	memorystorage "github.com/tendant/simple-asset/pkg/simpleasset/storage/memory"
)

var pngBytes = append([]byte{0x89, 0x50, 0x4E, 0x47, 0x0D, 0x0A, 0x1A, 0x0A}, make([]byte, 24)...)

type recordingSink struct {
	mu      sync.Mutex
	stored  []uuid.UUID
	deleted []uuid.UUID
	corrupt []string
}

func (r *recordingSink) AssetStored(ctx context.Context, record *simpleasset.AssetRecord) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.stored = append(r.stored, record.ID)
	return nil
}

func (r *recordingSink) AssetDeleted(ctx context.Context, id uuid.UUID) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.deleted = append(r.deleted, id)
	return errors.New("sink errors are only logged")
}

func (r *recordingSink) AssetCorrupt(ctx context.Context, record *simpleasset.AssetRecord, reason string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.corrupt = append(r.corrupt, reason)
	return nil
}

type recordingMetrics struct {
	mu       sync.Mutex
	decoded  map[string]int
	stored   int64
	rejected map[string]int
}

func newRecordingMetrics() *recordingMetrics {
	return &recordingMetrics{decoded: map[string]int{}, rejected: map[string]int{}}
}

func (m *recordingMetrics) EnvelopeDecoded(format string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.decoded[format]++
}

func (m *recordingMetrics) AssetStored(sizeBytes int64) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.stored += sizeBytes
}

func (m *recordingMetrics) AssetRejected(reason string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.rejected[reason]++
}

type testEnv struct {
	svc     simpleasset.Service
	repo    *memory.Repository
	store   *memorystorage.Backend
	sink    *recordingSink
	metrics *recordingMetrics
}

func setupTestService(t *testing.T, opts ...simpleasset.Option) *testEnv {
	t.Helper()
	env := &testEnv{
		repo:    memory.New(),
		store:   memorystorage.New(),
		sink:    &recordingSink{},
		metrics: newRecordingMetrics(),
	}

	options := append([]simpleasset.Option{
		simpleasset.WithRepository(env.repo),
		simpleasset.WithBlobStore("memory", env.store),
		simpleasset.WithEventSink(env.sink),
		simpleasset.WithMetrics(env.metrics),
	}, opts...)

	svc, err := simpleasset.New(options...)
	require.NoError(t, err)
	env.svc = svc
	return env
}

func TestServiceCreation(t *testing.T) {
	tests := []struct {
		name        string
		options     []simpleasset.Option
		expectError bool
	}{
		{
			name:        "no options should fail",
			options:     []simpleasset.Option{},
			expectError: true,
		},
		{
			name: "repository without blob store should fail",
			options: []simpleasset.Option{
				simpleasset.WithRepository(memory.New()),
			},
			expectError: true,
		},
		{
			name: "unknown default backend should fail",
			options: []simpleasset.Option{
				simpleasset.WithRepository(memory.New()),
				simpleasset.WithBlobStore("memory", memorystorage.New()),
				simpleasset.WithDefaultBackend("s3"),
			},
			expectError: true,
		},
		{
			name: "with repository and blob store should succeed",
			options: []simpleasset.Option{
				simpleasset.WithRepository(memory.New()),
				simpleasset.WithBlobStore("memory", memorystorage.New()),
			},
			expectError: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc, err := simpleasset.New(tt.options...)
			if tt.expectError {
				assert.Error(t, err)
				assert.Nil(t, svc)
			} else {
				assert.NoError(t, err)
				assert.NotNil(t, svc)
			}
		})
	}
}

func TestStoreAndLoadAsset(t *testing.T) {
	env := setupTestService(t)
	ctx := context.Background()

	result, err := env.svc.StoreAsset(ctx, simpleasset.StoreAssetRequest{
		Data:     pngBytes,
		FileName: "logo.png",
	})
	require.NoError(t, err)
	assert.False(t, result.Deduplicated)
	assert.Equal(t, asset.FormatV4, result.SourceFormat)

	record := result.Record
	assert.Equal(t, result.Asset.ID(), record.ID)
	assert.Equal(t, "logo.png", record.FileName)
	assert.Equal(t, "image/png", record.MediaType)
	assert.Equal(t, "Png", record.Signature)
	assert.Equal(t, "image", record.Category)
	assert.Equal(t, int64(len(pngBytes)), record.SizeBytes)
	assert.Equal(t, "memory", record.StorageBackendName)
	assert.Equal(t, 4, record.EnvelopeVersion)
	assert.NotEmpty(t, record.ObjectKey)

	meta, err := env.store.GetObjectMeta(ctx, record.ObjectKey)
	require.NoError(t, err)
	assert.Equal(t, asset.EnvelopeMediaType, meta.ContentType)
	assert.Equal(t, int64(result.Asset.EnvelopeSize()), meta.Size)

	loaded, err := env.svc.LoadAsset(ctx, record.ID)
	require.NoError(t, err)
	assert.True(t, result.Asset.Equal(loaded))
	assert.Equal(t, pngBytes, loaded.Bytes())

	envelope, err := env.svc.LoadEnvelope(ctx, record.ID)
	require.NoError(t, err)
	assert.Equal(t, result.Asset.Encode(), envelope)

	got, err := env.svc.GetAssetRecord(ctx, record.ID)
	require.NoError(t, err)
	assert.Equal(t, record.SHA256, got.SHA256)

	assert.Equal(t, []uuid.UUID{record.ID}, env.sink.stored)
	assert.Equal(t, int64(len(pngBytes)), env.metrics.stored)
	assert.Equal(t, 1, env.metrics.decoded["v4"])
}

func TestStoreAsset_Errors(t *testing.T) {
	env := setupTestService(t, simpleasset.WithMaxAssetSize(16))
	ctx := context.Background()

	t.Run("nil data", func(t *testing.T) {
		_, err := env.svc.StoreAsset(ctx, simpleasset.StoreAssetRequest{})
		assert.ErrorIs(t, err, asset.ErrNilData)
	})

	t.Run("too large", func(t *testing.T) {
		_, err := env.svc.StoreAsset(ctx, simpleasset.StoreAssetRequest{Data: make([]byte, 17)})
		assert.ErrorIs(t, err, asset.ErrSizeExceeded)

		var assetErr *simpleasset.AssetError
		require.ErrorAs(t, err, &assetErr)
		assert.Equal(t, "store", assetErr.Op)
	})

	t.Run("unknown backend", func(t *testing.T) {
		_, err := env.svc.StoreAsset(ctx, simpleasset.StoreAssetRequest{Data: []byte("x"), StorageBackendName: "nope"})
		assert.ErrorIs(t, err, simpleasset.ErrStorageBackendNotFound)
	})

	assert.Equal(t, 1, env.metrics.rejected["nil_data"])
	assert.Equal(t, 1, env.metrics.rejected["size_exceeded"])
	assert.Equal(t, int64(16), env.svc.MaxAssetSize())
	assert.Equal(t, 0, env.store.Len())
}

func TestStoreAsset_Deduplication(t *testing.T) {
	env := setupTestService(t, simpleasset.WithDeduplication(true))
	ctx := context.Background()

	first, err := env.svc.StoreAsset(ctx, simpleasset.StoreAssetRequest{Data: []byte("same"), FileName: "a.txt"})
	require.NoError(t, err)
	second, err := env.svc.StoreAsset(ctx, simpleasset.StoreAssetRequest{Data: []byte("same"), FileName: "b.txt"})
	require.NoError(t, err)

	assert.True(t, second.Deduplicated)
	assert.Equal(t, first.Record.ID, second.Record.ID)
	assert.Equal(t, "a.txt", second.Asset.Name().String())
	assert.Equal(t, 1, env.store.Len())

	// A corrupt original is skipped and a fresh copy is stored.
	env.store.Put(first.Record.ObjectKey, []byte("garbage"))
	third, err := env.svc.StoreAsset(ctx, simpleasset.StoreAssetRequest{Data: []byte("same"), FileName: "c.txt"})
	require.NoError(t, err)
	assert.False(t, third.Deduplicated)
	assert.NotEqual(t, first.Record.ID, third.Record.ID)
}

func TestImportEnvelope(t *testing.T) {
	env := setupTestService(t)
	ctx := context.Background()

	original, err := asset.FromBytes([]byte("legacy body"), asset.WithFileName("old.txt"))
	require.NoError(t, err)
	legacy, err := asset.EncodeLegacyV3(original)
	require.NoError(t, err)

	result, err := env.svc.ImportEnvelope(ctx, simpleasset.ImportEnvelopeRequest{Envelope: legacy})
	require.NoError(t, err)
	assert.Equal(t, asset.FormatLegacyV3, result.SourceFormat)
	assert.Equal(t, original.ID(), result.Record.ID)

	// Stored copy is upgraded to v4.
	stored, err := env.svc.LoadEnvelope(ctx, original.ID())
	require.NoError(t, err)
	decoded, format := asset.DecodeWithFormat(stored)
	assert.Equal(t, asset.FormatV4, format)
	assert.True(t, original.Equal(decoded))

	t.Run("duplicate id", func(t *testing.T) {
		_, err := env.svc.ImportEnvelope(ctx, simpleasset.ImportEnvelopeRequest{Envelope: original.Encode()})
		assert.ErrorIs(t, err, simpleasset.ErrAssetAlreadyExists)
	})

	t.Run("garbage", func(t *testing.T) {
		_, err := env.svc.ImportEnvelope(ctx, simpleasset.ImportEnvelopeRequest{Envelope: []byte("not an envelope")})
		assert.ErrorIs(t, err, simpleasset.ErrCorruptEnvelope)
		assert.Equal(t, 1, env.metrics.rejected["corrupt"])
	})
}

func TestLoadAsset_Corrupt(t *testing.T) {
	env := setupTestService(t)
	ctx := context.Background()

	result, err := env.svc.StoreAsset(ctx, simpleasset.StoreAssetRequest{Data: []byte("fragile"), FileName: "f.txt"})
	require.NoError(t, err)

	t.Run("truncated", func(t *testing.T) {
		envelope := result.Asset.Encode()
		env.store.Put(result.Record.ObjectKey, envelope[:len(envelope)-2])

		loaded, err := env.svc.LoadAsset(ctx, result.Record.ID)
		assert.ErrorIs(t, err, simpleasset.ErrCorruptEnvelope)
		assert.True(t, loaded.IsEmpty())
		require.Len(t, env.sink.corrupt, 1)

		record, err := env.svc.GetAssetRecord(ctx, result.Record.ID)
		require.NoError(t, err)
		assert.Equal(t, string(simpleasset.AssetStatusCorrupt), record.Status)
	})

	t.Run("foreign envelope", func(t *testing.T) {
		other, err := asset.FromBytes([]byte("fragile"))
		require.NoError(t, err)
		env.store.Put(result.Record.ObjectKey, other.Encode())

		_, err = env.svc.LoadAsset(ctx, result.Record.ID)
		assert.ErrorIs(t, err, simpleasset.ErrCorruptEnvelope)
	})

	t.Run("missing blob", func(t *testing.T) {
		require.NoError(t, env.store.Delete(ctx, result.Record.ObjectKey))
		_, err := env.svc.LoadAsset(ctx, result.Record.ID)
		assert.ErrorIs(t, err, simpleasset.ErrObjectNotFound)

		var storageErr *simpleasset.StorageError
		require.ErrorAs(t, err, &storageErr)
		assert.Equal(t, "memory", storageErr.Backend)
	})

	t.Run("missing record", func(t *testing.T) {
		_, err := env.svc.LoadAsset(ctx, uuid.New())
		assert.ErrorIs(t, err, simpleasset.ErrAssetNotFound)
	})
}

func TestDeleteAsset(t *testing.T) {
	env := setupTestService(t)
	ctx := context.Background()

	result, err := env.svc.StoreAsset(ctx, simpleasset.StoreAssetRequest{Data: []byte("bye")})
	require.NoError(t, err)
	id := result.Record.ID

	require.NoError(t, env.svc.DeleteAsset(ctx, id))
	assert.Equal(t, 0, env.store.Len())
	assert.Equal(t, []uuid.UUID{id}, env.sink.deleted)

	_, err = env.svc.GetAssetRecord(ctx, id)
	assert.ErrorIs(t, err, simpleasset.ErrAssetNotFound)
	assert.ErrorIs(t, env.svc.DeleteAsset(ctx, id), simpleasset.ErrAssetNotFound)

	records, err := env.svc.ListAssets(ctx, simpleasset.ListAssetsRequest{IncludeDeleted: true})
	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.Equal(t, string(simpleasset.AssetStatusDeleted), records[0].Status)
}

type failingDeleteRepository struct {
	*memory.Repository
}

func (r failingDeleteRepository) DeleteAsset(ctx context.Context, id uuid.UUID) error {
	return errors.New("database unavailable")
}

type failingDeleteStore struct {
	*memorystorage.Backend
}

func (s failingDeleteStore) Delete(ctx context.Context, objectKey string) error {
	return errors.New("bucket unavailable")
}

func TestDeleteAsset_Ordering(t *testing.T) {
	ctx := context.Background()

	t.Run("record delete fails keeps envelope", func(t *testing.T) {
		repo := memory.New()
		store := memorystorage.New()
		svc, err := simpleasset.New(
			simpleasset.WithRepository(failingDeleteRepository{repo}),
			simpleasset.WithBlobStore("memory", store),
		)
		require.NoError(t, err)

		result, err := svc.StoreAsset(ctx, simpleasset.StoreAssetRequest{Data: []byte("keep me")})
		require.NoError(t, err)

		assert.Error(t, svc.DeleteAsset(ctx, result.Record.ID))
		assert.Equal(t, 1, store.Len())

		loaded, err := svc.LoadAsset(ctx, result.Record.ID)
		require.NoError(t, err)
		assert.Equal(t, []byte("keep me"), loaded.Bytes())
	})

	t.Run("envelope delete fails still deletes record", func(t *testing.T) {
		repo := memory.New()
		store := memorystorage.New()
		sink := &recordingSink{}
		svc, err := simpleasset.New(
			simpleasset.WithRepository(repo),
			simpleasset.WithBlobStore("memory", failingDeleteStore{store}),
			simpleasset.WithEventSink(sink),
		)
		require.NoError(t, err)

		result, err := svc.StoreAsset(ctx, simpleasset.StoreAssetRequest{Data: []byte("orphan")})
		require.NoError(t, err)
		id := result.Record.ID

		require.NoError(t, svc.DeleteAsset(ctx, id))
		assert.Equal(t, []uuid.UUID{id}, sink.deleted)
		_, err = svc.GetAssetRecord(ctx, id)
		assert.ErrorIs(t, err, simpleasset.ErrAssetNotFound)
	})
}

func TestVerifyAsset(t *testing.T) {
	env := setupTestService(t)
	ctx := context.Background()

	result, err := env.svc.StoreAsset(ctx, simpleasset.StoreAssetRequest{Data: pngBytes, FileName: "v.png"})
	require.NoError(t, err)
	id := result.Record.ID

	verified, err := env.svc.VerifyAsset(ctx, id)
	require.NoError(t, err)
	assert.True(t, verified.Valid)
	assert.Equal(t, "v4", verified.Format)
	assert.Empty(t, verified.Problems)

	legacy, err := asset.EncodeLegacyV3(result.Asset)
	require.NoError(t, err)
	env.store.Put(result.Record.ObjectKey, legacy)
	verified, err = env.svc.VerifyAsset(ctx, id)
	require.NoError(t, err)
	assert.False(t, verified.Valid)
	assert.Equal(t, "legacy_v3", verified.Format)
	assert.Contains(t, verified.Problems, simpleasset.ProblemLegacyLayout)

	env.store.Put(result.Record.ObjectKey, []byte{4, 0, 0})
	verified, err = env.svc.VerifyAsset(ctx, id)
	require.NoError(t, err)
	assert.False(t, verified.Valid)
	assert.Equal(t, "invalid", verified.Format)
	assert.Len(t, env.sink.corrupt, 1)
}

func TestListAndCountAssets(t *testing.T) {
	env := setupTestService(t)
	ctx := context.Background()

	inputs := []simpleasset.StoreAssetRequest{
		{Data: pngBytes, FileName: "a.png"},
		{Data: []byte("%PDF-1.7"), FileName: "b.pdf"},
		{Data: []byte("text"), FileName: "c.txt"},
	}
	for _, in := range inputs {
		_, err := env.svc.StoreAsset(ctx, in)
		require.NoError(t, err)
	}

	images, err := env.svc.ListAssets(ctx, simpleasset.ListAssetsRequest{MediaTypePrefix: "image/"})
	require.NoError(t, err)
	require.Len(t, images, 1)
	assert.Equal(t, "a.png", images[0].FileName)

	count, err := env.svc.CountAssets(ctx, simpleasset.ListAssetsRequest{})
	require.NoError(t, err)
	assert.Equal(t, int64(3), count)

	docs, err := env.svc.CountAssets(ctx, simpleasset.ListAssetsRequest{Category: "document"})
	require.NoError(t, err)
	assert.Equal(t, int64(1), docs)
}

func TestBackends(t *testing.T) {
	env := setupTestService(t)
	ctx := context.Background()

	second := memorystorage.New()
	env.svc.RegisterBackend("archive", second)

	backend, err := env.svc.GetBackend("archive")
	require.NoError(t, err)
	assert.Same(t, second, backend)

	_, err = env.svc.GetBackend("missing")
	assert.ErrorIs(t, err, simpleasset.ErrStorageBackendNotFound)

	result, err := env.svc.StoreAsset(ctx, simpleasset.StoreAssetRequest{Data: []byte("archived"), StorageBackendName: "archive"})
	require.NoError(t, err)
	assert.Equal(t, "archive", result.Record.StorageBackendName)
	assert.Equal(t, 1, second.Len())
	assert.Equal(t, 0, env.store.Len())

	loaded, err := env.svc.LoadAsset(ctx, result.Record.ID)
	require.NoError(t, err)
	assert.Equal(t, []byte("archived"), loaded.Bytes())

	_, err = env.svc.GetDownloadURL(ctx, result.Record.ID)
	assert.ErrorIs(t, err, simpleasset.ErrDirectDownloadRequired)
}
