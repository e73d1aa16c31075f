package urlstrategy_test

import (
	"context"
	"errors"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tendant/simple-asset/pkg/simpleasset"
	memoryrepo "github.com/tendant/simple-asset/pkg/simpleasset/repo/memory"
	memorystorage "github.com/tendant/simple-asset/pkg/simpleasset/storage/memory"
	"github.com/tendant/simple-asset/pkg/simpleasset/urlstrategy"
)

// presigningStore mints a fixed URL, or fails with err.
type presigningStore struct {
	*memorystorage.Backend
	err error
}

func (p presigningStore) GetDownloadURL(ctx context.Context, objectKey, downloadFilename string) (string, error) {
	if p.err != nil {
		return "", p.err
	}
	return "https://bucket.example.com/" + objectKey + "?name=" + downloadFilename, nil
}

func testRecord() *simpleasset.AssetRecord {
	return &simpleasset.AssetRecord{
		ID:        uuid.MustParse("0a1b2c3d-4e5f-6071-8293-a4b5c6d7e8f9"),
		ObjectKey: "assets/0a/1b2c3d 4e5f",
	}
}

func TestNew(t *testing.T) {
	tests := []struct {
		name    string
		config  urlstrategy.Config
		wantErr bool
	}{
		{"default", urlstrategy.Config{}, false},
		{"storage delegated", urlstrategy.Config{Type: urlstrategy.TypeStorageDelegated}, false},
		{"content based", urlstrategy.Config{Type: urlstrategy.TypeContentBased, APIBaseURL: "/api"}, false},
		{"content based without base", urlstrategy.Config{Type: urlstrategy.TypeContentBased}, true},
		{"cdn", urlstrategy.Config{Type: urlstrategy.TypeCDN, CDNBaseURL: "https://cdn.example.com"}, false},
		{"cdn without base", urlstrategy.Config{Type: urlstrategy.TypeCDN}, true},
		{"unknown", urlstrategy.Config{Type: "ftp"}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s, err := urlstrategy.New(tt.config)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.NotNil(t, s)
		})
	}
}

func TestStorageDelegated(t *testing.T) {
	ctx := context.Background()
	record := testRecord()

	url, err := urlstrategy.StorageDelegated{}.DownloadURL(ctx, record, presigningStore{Backend: memorystorage.New()})
	require.NoError(t, err)
	assert.Equal(t, "https://bucket.example.com/assets/0a/1b2c3d 4e5f?name=0a1b2c3d-4e5f-6071-8293-a4b5c6d7e8f9.asset", url)

	_, err = urlstrategy.StorageDelegated{}.DownloadURL(ctx, record, memorystorage.New())
	assert.ErrorIs(t, err, simpleasset.ErrDirectDownloadRequired)
}

func TestContentBased(t *testing.T) {
	ctx := context.Background()
	record := testRecord()
	s := urlstrategy.NewContentBased("https://api.example.com/")

	url, err := s.DownloadURL(ctx, record, presigningStore{Backend: memorystorage.New()})
	require.NoError(t, err)
	assert.Equal(t, "https://api.example.com/assets/0a1b2c3d-4e5f-6071-8293-a4b5c6d7e8f9/envelope", url)

	t.Run("prefer storage", func(t *testing.T) {
		s.PreferStorage = true

		url, err := s.DownloadURL(ctx, record, presigningStore{Backend: memorystorage.New()})
		require.NoError(t, err)
		assert.Contains(t, url, "bucket.example.com")

		url, err = s.DownloadURL(ctx, record, memorystorage.New())
		require.NoError(t, err)
		assert.Contains(t, url, "api.example.com")

		_, err = s.DownloadURL(ctx, record, presigningStore{Backend: memorystorage.New(), err: errors.New("signing failed")})
		assert.EqualError(t, err, "signing failed")
	})
}

func TestCDN(t *testing.T) {
	url, err := urlstrategy.NewCDN("https://cdn.example.com/").DownloadURL(context.Background(), testRecord(), nil)
	require.NoError(t, err)
	assert.Equal(t, "https://cdn.example.com/assets/0a/1b2c3d%204e5f", url)
}

func TestServiceUsesStrategy(t *testing.T) {
	ctx := context.Background()
	svc, err := simpleasset.New(
		simpleasset.WithRepository(memoryrepo.New()),
		simpleasset.WithBlobStore("memory", memorystorage.New()),
		simpleasset.WithURLStrategy(urlstrategy.NewContentBased("/api")),
	)
	require.NoError(t, err)

	result, err := svc.StoreAsset(ctx, simpleasset.StoreAssetRequest{Data: []byte("hello"), FileName: "hello.txt"})
	require.NoError(t, err)

	url, err := svc.GetDownloadURL(ctx, result.Record.ID)
	require.NoError(t, err)
	assert.Equal(t, "/api/assets/"+result.Record.ID.String()+"/envelope", url)
}
