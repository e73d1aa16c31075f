package postgres

import (
	"context"
	"fmt"
)

// Schema creates the asset table and its indexes in the current search_path.
const Schema = `
CREATE TABLE IF NOT EXISTS asset (
	id UUID PRIMARY KEY,
	file_name VARCHAR(255) NOT NULL,
	media_type VARCHAR(255) NOT NULL,
	signature VARCHAR(32) NOT NULL,
	category VARCHAR(32) NOT NULL,
	size_bytes BIGINT NOT NULL,
	sha256 CHAR(44) NOT NULL,
	md5 CHAR(24) NOT NULL,
	storage_backend_name VARCHAR(64) NOT NULL,
	object_key TEXT NOT NULL,
	envelope_version SMALLINT NOT NULL DEFAULT 4,
	status VARCHAR(32) NOT NULL DEFAULT 'stored',
	asset_created_at TIMESTAMPTZ NOT NULL,
	created_at TIMESTAMPTZ NOT NULL DEFAULT now(),
	updated_at TIMESTAMPTZ NOT NULL DEFAULT now(),
	deleted_at TIMESTAMPTZ
);
CREATE INDEX IF NOT EXISTS asset_sha256_idx ON asset (sha256) WHERE deleted_at IS NULL;
CREATE INDEX IF NOT EXISTS asset_created_at_idx ON asset (created_at, id);
`

// EnsureSchema applies Schema. It is safe to call repeatedly.
func EnsureSchema(ctx context.Context, db DBTX) error {
	if _, err := db.Exec(ctx, Schema); err != nil {
		return fmt.Errorf("failed to apply asset schema: %w", err)
	}
	return nil
}
