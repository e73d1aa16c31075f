package config

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/tendant/simple-asset/pkg/asset"
	"github.com/tendant/simple-asset/pkg/filesize"
	"github.com/tendant/simple-asset/pkg/simpleasset"
	"github.com/tendant/simple-asset/pkg/simpleasset/objectkey"
	"github.com/tendant/simple-asset/pkg/simpleasset/repo/memory"
	repopg "github.com/tendant/simple-asset/pkg/simpleasset/repo/postgres"
	fsstorage "github.com/tendant/simple-asset/pkg/simpleasset/storage/fs"
	memorystorage "github.com/tendant/simple-asset/pkg/simpleasset/storage/memory"
	"github.com/tendant/simple-asset/pkg/simpleasset/storage/pgblob"
	s3storage "github.com/tendant/simple-asset/pkg/simpleasset/storage/s3"
	"github.com/tendant/simple-asset/pkg/simpleasset/urlstrategy"
)

// Option applies configuration to a ServerConfig instance.
type Option func(*ServerConfig) error

// Load constructs a ServerConfig by applying the supplied options on top of library defaults.
func Load(opts ...Option) (*ServerConfig, error) {
	cfg := defaults()

	for _, opt := range opts {
		if opt == nil {
			continue
		}
		if err := opt(&cfg); err != nil {
			return nil, err
		}
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

func defaults() ServerConfig {
	return ServerConfig{
		Port:                  "8080",
		Environment:           "development",
		DatabaseType:          "memory",
		DBSchema:              "asset",
		DefaultStorageBackend: "memory",
		StorageBackends: []StorageBackendConfig{
			{
				Name:   "memory",
				Type:   "memory",
				Config: map[string]interface{}{},
			},
		},
		MaxAssetSize:       filesize.FileSize(asset.DefaultMaxSize),
		ObjectKeyStrategy:  "git-like",
		EnableEventLogging: true,
		URLStrategy:        string(urlstrategy.TypeStorageDelegated),
	}
}

// ServerConfig represents server configuration for the asset service
type ServerConfig struct {
	Port        string
	Environment string // development, production, testing

	// Database configuration
	DatabaseURL  string
	DatabaseType string // "memory", "postgres"
	DBSchema     string // Postgres schema to use (default: asset)
	AutoMigrate  bool   // create tables on startup

	// Storage configuration
	DefaultStorageBackend string
	StorageBackends       []StorageBackendConfig

	// Service options
	MaxAssetSize        filesize.FileSize
	ObjectKeyStrategy   string // "git-like", "legacy", "dated"
	EnableDeduplication bool
	EnableEventLogging  bool

	// Download URLs
	URLStrategy string // "storage-delegated", "content-based", "cdn"
	APIBaseURL  string
	CDNBaseURL  string

	pool *pgxpool.Pool
}

// StorageBackendConfig represents configuration for a storage backend
type StorageBackendConfig struct {
	Name   string
	Type   string // "memory", "fs", "s3", "pgblob"
	Config map[string]interface{}
}

// Validate validates the server configuration
func (c *ServerConfig) Validate() error {
	if c.Port == "" {
		return errors.New("port is required")
	}

	if c.DatabaseType != "memory" && c.DatabaseType != "postgres" {
		return errors.New("database_type must be 'memory' or 'postgres'")
	}

	if c.DatabaseType == "postgres" && c.DatabaseURL == "" {
		return errors.New("database_url is required when using postgres")
	}

	if c.MaxAssetSize <= 0 {
		return errors.New("max_asset_size must be positive")
	}

	if _, err := objectkey.NewGenerator(c.ObjectKeyStrategy); err != nil {
		return err
	}

	if _, err := c.urlStrategy(); err != nil {
		return err
	}

	found := false
	for _, backend := range c.StorageBackends {
		if backend.Name == c.DefaultStorageBackend {
			found = true
		}
		if backend.Type == "pgblob" && c.DatabaseURL == "" {
			return fmt.Errorf("storage backend '%s' needs database_url", backend.Name)
		}
	}
	if !found {
		return fmt.Errorf("default storage backend '%s' not found in configured backends", c.DefaultStorageBackend)
	}

	return nil
}

// BuildService creates a Service instance from the server configuration.
// Extra options are applied after the configured ones.
func (c *ServerConfig) BuildService(ctx context.Context, extra ...simpleasset.Option) (simpleasset.Service, error) {
	keyGenerator, err := objectkey.NewGenerator(c.ObjectKeyStrategy)
	if err != nil {
		return nil, err
	}

	strategy, err := c.urlStrategy()
	if err != nil {
		return nil, err
	}

	options := []simpleasset.Option{
		simpleasset.WithMaxAssetSize(c.MaxAssetSize.Bytes()),
		simpleasset.WithObjectKeyGenerator(keyGenerator),
		simpleasset.WithDeduplication(c.EnableDeduplication),
		simpleasset.WithURLStrategy(strategy),
	}

	repo, err := c.buildRepository(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to build repository: %w", err)
	}
	options = append(options, simpleasset.WithRepository(repo))

	for _, backendConfig := range c.StorageBackends {
		store, err := c.buildStorageBackend(ctx, backendConfig)
		if err != nil {
			return nil, fmt.Errorf("failed to build storage backend %s: %w", backendConfig.Name, err)
		}
		options = append(options, simpleasset.WithBlobStore(backendConfig.Name, store))
	}
	options = append(options, simpleasset.WithDefaultBackend(c.DefaultStorageBackend))

	if c.EnableEventLogging {
		options = append(options, simpleasset.WithEventSink(simpleasset.NewLoggingEventSink(slog.Default())))
	}

	return simpleasset.New(append(options, extra...)...)
}

// urlStrategy falls back to the backend's own URL when content-based
// downloads are configured, so presigned S3 URLs are still used.
func (c *ServerConfig) urlStrategy() (simpleasset.URLStrategy, error) {
	return urlstrategy.New(urlstrategy.Config{
		Type:          urlstrategy.Type(c.URLStrategy),
		APIBaseURL:    c.APIBaseURL,
		CDNBaseURL:    c.CDNBaseURL,
		PreferStorage: true,
	})
}

// Close releases the database pool opened by BuildService, if any.
func (c *ServerConfig) Close() {
	if c.pool != nil {
		c.pool.Close()
		c.pool = nil
	}
}

// dbPool opens the shared pool on first use.
func (c *ServerConfig) dbPool(ctx context.Context) (*pgxpool.Pool, error) {
	if c.pool != nil {
		return c.pool, nil
	}
	if c.DatabaseURL == "" {
		return nil, errors.New("database_url is required for postgres")
	}
	cfg, err := pgxpool.ParseConfig(c.DatabaseURL)
	if err != nil {
		return nil, fmt.Errorf("failed to parse DATABASE_URL: %w", err)
	}
	schema := c.DBSchema
	cfg.AfterConnect = func(ctx context.Context, conn *pgx.Conn) error {
		if schema == "" {
			return nil
		}
		_, err := conn.Exec(ctx, fmt.Sprintf("SET search_path TO %s", pgx.Identifier{schema}.Sanitize()))
		return err
	}
	pool, err := pgxpool.NewWithConfig(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to create pgx pool: %w", err)
	}
	c.pool = pool
	return pool, nil
}

// buildRepository creates a Repository based on the configuration
func (c *ServerConfig) buildRepository(ctx context.Context) (simpleasset.Repository, error) {
	switch c.DatabaseType {
	case "memory":
		return memory.New(), nil
	case "postgres":
		pool, err := c.dbPool(ctx)
		if err != nil {
			return nil, err
		}
		if c.AutoMigrate {
			if err := repopg.EnsureSchema(ctx, pool); err != nil {
				return nil, err
			}
		}
		return repopg.NewWithPool(pool), nil
	default:
		return nil, fmt.Errorf("unsupported database type: %s", c.DatabaseType)
	}
}

// PingPostgres verifies connectivity to Postgres and that the schema exists.
func PingPostgres(databaseURL, schema string) error {
	if databaseURL == "" {
		return errors.New("database_url is required")
	}
	cfg, err := pgxpool.ParseConfig(databaseURL)
	if err != nil {
		return fmt.Errorf("failed to parse DATABASE_URL: %w", err)
	}
	if schema != "" {
		cfg.AfterConnect = func(ctx context.Context, conn *pgx.Conn) error {
			_, err := conn.Exec(ctx, fmt.Sprintf("SET search_path TO %s", pgx.Identifier{schema}.Sanitize()))
			return err
		}
	}
	pool, err := pgxpool.NewWithConfig(context.Background(), cfg)
	if err != nil {
		return fmt.Errorf("failed to create pgx pool: %w", err)
	}
	defer pool.Close()
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := pool.Ping(ctx); err != nil {
		return fmt.Errorf("database ping failed: %w", err)
	}
	return nil
}

// buildStorageBackend creates a BlobStore based on the backend configuration
func (c *ServerConfig) buildStorageBackend(ctx context.Context, config StorageBackendConfig) (simpleasset.BlobStore, error) {
	switch config.Type {
	case "memory":
		return memorystorage.New(), nil

	case "fs":
		return fsstorage.New(fsstorage.Config{
			BaseDir:   getString(config.Config, "base_dir", "./data/assets"),
			URLPrefix: getString(config.Config, "url_prefix", ""),
		})

	case "s3":
		return s3storage.New(s3storage.Config{
			Region:                 getString(config.Config, "region", "us-east-1"),
			Bucket:                 getString(config.Config, "bucket", ""),
			Prefix:                 getString(config.Config, "prefix", ""),
			AccessKeyID:            getString(config.Config, "access_key_id", ""),
			SecretAccessKey:        getString(config.Config, "secret_access_key", ""),
			Endpoint:               getString(config.Config, "endpoint", ""),
			UsePathStyle:           getBool(config.Config, "use_path_style", false),
			PresignDuration:        getInt(config.Config, "presign_duration", 3600),
			EnableSSE:              getBool(config.Config, "enable_sse", false),
			SSEAlgorithm:           getString(config.Config, "sse_algorithm", "AES256"),
			SSEKMSKeyID:            getString(config.Config, "sse_kms_key_id", ""),
			CreateBucketIfNotExist: getBool(config.Config, "create_bucket_if_not_exist", false),
		})

	case "pgblob":
		pool, err := c.dbPool(ctx)
		if err != nil {
			return nil, err
		}
		backend := pgblob.New(pool)
		if c.AutoMigrate {
			if err := backend.EnsureSchema(ctx); err != nil {
				return nil, err
			}
		}
		return backend, nil

	default:
		return nil, fmt.Errorf("unsupported storage backend type: %s", config.Type)
	}
}

func getString(config map[string]interface{}, key string, defaultValue string) string {
	if value, exists := config[key]; exists {
		if str, ok := value.(string); ok {
			return str
		}
	}
	return defaultValue
}

func getBool(config map[string]interface{}, key string, defaultValue bool) bool {
	if value, exists := config[key]; exists {
		if b, ok := value.(bool); ok {
			return b
		}
		if str, ok := value.(string); ok {
			if b, err := strconv.ParseBool(str); err == nil {
				return b
			}
		}
	}
	return defaultValue
}

func getInt(config map[string]interface{}, key string, defaultValue int) int {
	if value, exists := config[key]; exists {
		switch v := value.(type) {
		case int:
			return v
		case float64:
			return int(v)
		case string:
			if i, err := strconv.Atoi(v); err == nil {
				return i
			}
		}
	}
	return defaultValue
}
