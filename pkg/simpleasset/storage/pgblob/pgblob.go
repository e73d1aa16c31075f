// Package pgblob keeps envelopes in a PostgreSQL BYTEA column, next to
// the asset records. It suits small deployments that want a single
// database and no object store.
package pgblob

import (
	"bytes"
	"context"
	"crypto/md5"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/tendant/simple-asset/pkg/simpleasset"
	"github.com/tendant/simple-asset/pkg/simpleasset/repo/postgres"
)

// Schema creates the blob table in the current search_path.
const Schema = `
CREATE TABLE IF NOT EXISTS asset_blob (
	object_key TEXT PRIMARY KEY,
	envelope BYTEA NOT NULL,
	content_type VARCHAR(255) NOT NULL,
	size_bytes BIGINT NOT NULL,
	etag CHAR(32) NOT NULL,
	created_at TIMESTAMPTZ NOT NULL DEFAULT now(),
	updated_at TIMESTAMPTZ NOT NULL DEFAULT now()
)`

// Backend implements simpleasset.BlobStore on top of a pgx connection or pool.
type Backend struct {
	db postgres.DBTX
}

// New creates a blob backend. Call EnsureSchema once before use.
func New(db postgres.DBTX) *Backend {
	return &Backend{db: db}
}

// EnsureSchema creates the blob table if it is missing.
func (b *Backend) EnsureSchema(ctx context.Context) error {
	if _, err := b.db.Exec(ctx, Schema); err != nil {
		return fmt.Errorf("failed to apply asset_blob schema: %w", err)
	}
	return nil
}

func (b *Backend) Upload(ctx context.Context, objectKey string, reader io.Reader) error {
	return b.UploadWithParams(ctx, reader, simpleasset.UploadParams{ObjectKey: objectKey})
}

// UploadWithParams stores the envelope, replacing any previous value under the key.
func (b *Backend) UploadWithParams(ctx context.Context, reader io.Reader, params simpleasset.UploadParams) error {
	data, err := io.ReadAll(reader)
	if err != nil {
		return fmt.Errorf("failed to read upload: %w", err)
	}
	contentType := params.MimeType
	if contentType == "" {
		contentType = "application/octet-stream"
	}
	sum := md5.Sum(data)

	query := `
		INSERT INTO asset_blob (object_key, envelope, content_type, size_bytes, etag, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $6)
		ON CONFLICT (object_key) DO UPDATE SET
			envelope = EXCLUDED.envelope,
			content_type = EXCLUDED.content_type,
			size_bytes = EXCLUDED.size_bytes,
			etag = EXCLUDED.etag,
			updated_at = EXCLUDED.updated_at`

	_, err = b.db.Exec(ctx, query, params.ObjectKey, data, contentType, int64(len(data)),
		hex.EncodeToString(sum[:]), time.Now().UTC())
	if err != nil {
		return fmt.Errorf("failed to store blob %s: %w", params.ObjectKey, err)
	}
	return nil
}

func (b *Backend) Download(ctx context.Context, objectKey string) (io.ReadCloser, error) {
	var data []byte
	err := b.db.QueryRow(ctx, `SELECT envelope FROM asset_blob WHERE object_key = $1`, objectKey).Scan(&data)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, simpleasset.ErrObjectNotFound
		}
		return nil, fmt.Errorf("failed to load blob %s: %w", objectKey, err)
	}
	return io.NopCloser(bytes.NewReader(data)), nil
}

func (b *Backend) Delete(ctx context.Context, objectKey string) error {
	tag, err := b.db.Exec(ctx, `DELETE FROM asset_blob WHERE object_key = $1`, objectKey)
	if err != nil {
		return fmt.Errorf("failed to delete blob %s: %w", objectKey, err)
	}
	if tag.RowsAffected() == 0 {
		return simpleasset.ErrObjectNotFound
	}
	return nil
}

func (b *Backend) GetObjectMeta(ctx context.Context, objectKey string) (*simpleasset.ObjectMeta, error) {
	meta := simpleasset.ObjectMeta{Key: objectKey}
	err := b.db.QueryRow(ctx,
		`SELECT size_bytes, content_type, etag, updated_at FROM asset_blob WHERE object_key = $1`,
		objectKey).Scan(&meta.Size, &meta.ContentType, &meta.ETag, &meta.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, simpleasset.ErrObjectNotFound
		}
		return nil, fmt.Errorf("failed to stat blob %s: %w", objectKey, err)
	}
	meta.Metadata = map[string]string{"mime_type": meta.ContentType}
	return &meta, nil
}

// GetDownloadURL always fails: blobs in the database are served through the API.
func (b *Backend) GetDownloadURL(ctx context.Context, objectKey string, downloadFilename string) (string, error) {
	return "", simpleasset.ErrDirectDownloadRequired
}

var _ simpleasset.BlobStore = (*Backend)(nil)
