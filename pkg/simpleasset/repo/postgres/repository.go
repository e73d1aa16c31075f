package postgres

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/tendant/simple-asset/pkg/simpleasset"
)

// DBTX is an interface that allows us to use either a database connection or a transaction
type DBTX interface {
	Exec(context.Context, string, ...interface{}) (pgconn.CommandTag, error)
	Query(context.Context, string, ...interface{}) (pgx.Rows, error)
	QueryRow(context.Context, string, ...interface{}) pgx.Row
}

// Repository implements simpleasset.Repository using PostgreSQL
type Repository struct {
	db DBTX
}

// New creates a new PostgreSQL repository
func New(db DBTX) *Repository {
	return &Repository{db: db}
}

// NewWithPool creates a new PostgreSQL repository with connection pool
func NewWithPool(pool *pgxpool.Pool) *Repository {
	return &Repository{db: pool}
}

const assetColumns = `id, file_name, media_type, signature, category, size_bytes,
	sha256, md5, storage_backend_name, object_key, envelope_version, status,
	asset_created_at, created_at, updated_at, deleted_at`

// Error handling helper
func (r *Repository) handlePostgresError(operation string, err error) error {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		switch pgErr.Code {
		case "23505": // unique_violation
			return simpleasset.ErrAssetAlreadyExists
		case "23503": // foreign_key_violation
			return fmt.Errorf("referenced record not found")
		case "23502": // not_null_violation
			return fmt.Errorf("required field %s is missing", pgErr.ColumnName)
		case "42P01": // undefined_table
			return fmt.Errorf("table does not exist - database migration required")
		default:
			return fmt.Errorf("database error in %s: %s (code: %s)", operation, pgErr.Message, pgErr.Code)
		}
	}

	if errors.Is(err, pgx.ErrNoRows) {
		return simpleasset.ErrAssetNotFound
	}

	return fmt.Errorf("database error in %s: %w", operation, err)
}

func scanAsset(row pgx.Row) (*simpleasset.AssetRecord, error) {
	var record simpleasset.AssetRecord
	err := row.Scan(
		&record.ID, &record.FileName, &record.MediaType, &record.Signature,
		&record.Category, &record.SizeBytes, &record.SHA256, &record.MD5,
		&record.StorageBackendName, &record.ObjectKey, &record.EnvelopeVersion,
		&record.Status, &record.AssetCreatedAt, &record.CreatedAt,
		&record.UpdatedAt, &record.DeletedAt)
	if err != nil {
		return nil, err
	}
	return &record, nil
}

func (r *Repository) CreateAsset(ctx context.Context, record *simpleasset.AssetRecord) error {
	query := `
		INSERT INTO asset (` + assetColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16)`

	_, err := r.db.Exec(ctx, query,
		record.ID, record.FileName, record.MediaType, record.Signature,
		record.Category, record.SizeBytes, record.SHA256, record.MD5,
		record.StorageBackendName, record.ObjectKey, record.EnvelopeVersion,
		record.Status, record.AssetCreatedAt, record.CreatedAt,
		record.UpdatedAt, record.DeletedAt)
	if err != nil {
		return r.handlePostgresError("create asset", err)
	}
	return nil
}

func (r *Repository) GetAsset(ctx context.Context, id uuid.UUID) (*simpleasset.AssetRecord, error) {
	query := `SELECT ` + assetColumns + ` FROM asset WHERE id = $1 AND deleted_at IS NULL`

	record, err := scanAsset(r.db.QueryRow(ctx, query, id))
	if err != nil {
		return nil, r.handlePostgresError("get asset", err)
	}
	return record, nil
}

func (r *Repository) FindBySHA256(ctx context.Context, sha256 string) (*simpleasset.AssetRecord, error) {
	query := `
		SELECT ` + assetColumns + ` FROM asset
		WHERE sha256 = $1 AND status = $2 AND deleted_at IS NULL
		ORDER BY created_at, id
		LIMIT 1`

	record, err := scanAsset(r.db.QueryRow(ctx, query, sha256, string(simpleasset.AssetStatusStored)))
	if err != nil {
		return nil, r.handlePostgresError("find asset by sha256", err)
	}
	return record, nil
}

func (r *Repository) ListAssets(ctx context.Context, filters simpleasset.AssetFilters) ([]*simpleasset.AssetRecord, error) {
	where, args := buildFilterClause(filters)
	query := `SELECT ` + assetColumns + ` FROM asset` + where + ` ORDER BY created_at, id`

	if filters.Limit > 0 {
		args = append(args, filters.Limit)
		query += fmt.Sprintf(" LIMIT $%d", len(args))
	}
	if filters.Offset > 0 {
		args = append(args, filters.Offset)
		query += fmt.Sprintf(" OFFSET $%d", len(args))
	}

	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, r.handlePostgresError("list assets", err)
	}
	defer rows.Close()

	records := []*simpleasset.AssetRecord{}
	for rows.Next() {
		record, err := scanAsset(rows)
		if err != nil {
			return nil, r.handlePostgresError("scan asset", err)
		}
		records = append(records, record)
	}
	if err := rows.Err(); err != nil {
		return nil, r.handlePostgresError("list assets", err)
	}
	return records, nil
}

func (r *Repository) CountAssets(ctx context.Context, filters simpleasset.AssetFilters) (int64, error) {
	where, args := buildFilterClause(filters)

	var count int64
	if err := r.db.QueryRow(ctx, `SELECT COUNT(*) FROM asset`+where, args...).Scan(&count); err != nil {
		return 0, r.handlePostgresError("count assets", err)
	}
	return count, nil
}

func (r *Repository) UpdateAsset(ctx context.Context, record *simpleasset.AssetRecord) error {
	query := `
		UPDATE asset SET
			file_name = $2, media_type = $3, signature = $4, category = $5,
			size_bytes = $6, sha256 = $7, md5 = $8, storage_backend_name = $9,
			object_key = $10, envelope_version = $11, status = $12, updated_at = $13
		WHERE id = $1`

	tag, err := r.db.Exec(ctx, query,
		record.ID, record.FileName, record.MediaType, record.Signature,
		record.Category, record.SizeBytes, record.SHA256, record.MD5,
		record.StorageBackendName, record.ObjectKey, record.EnvelopeVersion,
		record.Status, record.UpdatedAt)
	if err != nil {
		return r.handlePostgresError("update asset", err)
	}
	if tag.RowsAffected() == 0 {
		return simpleasset.ErrAssetNotFound
	}
	return nil
}

func (r *Repository) DeleteAsset(ctx context.Context, id uuid.UUID) error {
	// Soft delete keeps the row for audits and IncludeDeleted listings.
	query := `UPDATE asset SET deleted_at = $2, status = $3, updated_at = $2 WHERE id = $1 AND deleted_at IS NULL`

	tag, err := r.db.Exec(ctx, query, id, time.Now().UTC(), string(simpleasset.AssetStatusDeleted))
	if err != nil {
		return r.handlePostgresError("delete asset", err)
	}
	if tag.RowsAffected() == 0 {
		return simpleasset.ErrAssetNotFound
	}
	return nil
}

// buildFilterClause renders filters as a WHERE clause with positional args.
func buildFilterClause(filters simpleasset.AssetFilters) (string, []interface{}) {
	var conditions []string
	var args []interface{}

	add := func(format string, value interface{}) {
		args = append(args, value)
		conditions = append(conditions, fmt.Sprintf(format, len(args)))
	}

	if !filters.IncludeDeleted {
		conditions = append(conditions, "deleted_at IS NULL")
	}
	if filters.MediaTypePrefix != "" {
		add("media_type LIKE $%d", escapeLike(strings.ToLower(filters.MediaTypePrefix))+"%")
	}
	if filters.Signature != "" {
		add("lower(signature) = lower($%d)", filters.Signature)
	}
	if filters.Category != "" {
		add("category = $%d", filters.Category)
	}
	if filters.Status != "" {
		add("status = $%d", filters.Status)
	}

	if len(conditions) == 0 {
		return "", args
	}
	return " WHERE " + strings.Join(conditions, " AND "), args
}

var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

func escapeLike(s string) string {
	return likeEscaper.Replace(s)
}
