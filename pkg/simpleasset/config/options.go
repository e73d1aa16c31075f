package config

import (
	"fmt"

	"github.com/tendant/simple-asset/pkg/filesize"
	"github.com/tendant/simple-asset/pkg/simpleasset/objectkey"
)

// WithPort sets the server port
func WithPort(port string) Option {
	return func(c *ServerConfig) error {
		if port == "" {
			return fmt.Errorf("port cannot be empty")
		}
		c.Port = port
		return nil
	}
}

// WithEnvironment sets the environment (development, production, testing)
func WithEnvironment(env string) Option {
	return func(c *ServerConfig) error {
		if env == "" {
			return fmt.Errorf("environment cannot be empty")
		}
		c.Environment = env
		return nil
	}
}

// WithDatabase configures the database backend
func WithDatabase(dbType, url string) Option {
	return func(c *ServerConfig) error {
		if dbType != "memory" && dbType != "postgres" {
			return fmt.Errorf("database type must be 'memory' or 'postgres', got: %s", dbType)
		}
		if dbType == "postgres" && url == "" {
			return fmt.Errorf("database URL is required for postgres")
		}
		c.DatabaseType = dbType
		c.DatabaseURL = url
		return nil
	}
}

// WithDatabaseSchema sets the database schema (for Postgres)
func WithDatabaseSchema(schema string) Option {
	return func(c *ServerConfig) error {
		c.DBSchema = schema
		return nil
	}
}

// WithAutoMigrate creates the asset tables when the service is built.
func WithAutoMigrate(enabled bool) Option {
	return func(c *ServerConfig) error {
		c.AutoMigrate = enabled
		return nil
	}
}

// WithDefaultStorage sets the default storage backend name
func WithDefaultStorage(name string) Option {
	return func(c *ServerConfig) error {
		if name == "" {
			return fmt.Errorf("default storage backend name cannot be empty")
		}
		c.DefaultStorageBackend = name
		return nil
	}
}

// WithMemoryStorage adds an in-memory storage backend
// If name is empty, defaults to "memory"
func WithMemoryStorage(name string) Option {
	return func(c *ServerConfig) error {
		if name == "" {
			name = "memory"
		}
		c.StorageBackends = upsertStorageBackend(c.StorageBackends, StorageBackendConfig{Name: name, Type: "memory"})
		return nil
	}
}

// WithFilesystemStorage adds a filesystem storage backend
// If name is empty, defaults to "fs"
func WithFilesystemStorage(name, baseDir, urlPrefix string) Option {
	return func(c *ServerConfig) error {
		if name == "" {
			name = "fs"
		}
		if baseDir == "" {
			return fmt.Errorf("filesystem base directory cannot be empty")
		}

		backend := StorageBackendConfig{
			Name: name,
			Type: "fs",
			Config: map[string]interface{}{
				"base_dir": baseDir,
			},
		}
		if urlPrefix != "" {
			backend.Config["url_prefix"] = urlPrefix
		}

		c.StorageBackends = upsertStorageBackend(c.StorageBackends, backend)
		return nil
	}
}

// S3Options carries the settings for WithS3Storage.
type S3Options struct {
	Bucket          string
	Region          string
	Prefix          string
	AccessKeyID     string
	SecretAccessKey string
	Endpoint        string
	UsePathStyle    bool
	PresignDuration int
	EnableSSE       bool
	SSEAlgorithm    string
	SSEKMSKeyID     string
	CreateBucket    bool
}

// WithS3Storage adds an S3 storage backend
// If name is empty, defaults to "s3"
func WithS3Storage(name string, opts S3Options) Option {
	return func(c *ServerConfig) error {
		if name == "" {
			name = "s3"
		}
		if opts.Bucket == "" {
			return fmt.Errorf("S3 bucket cannot be empty")
		}

		backend := StorageBackendConfig{
			Name: name,
			Type: "s3",
			Config: map[string]interface{}{
				"bucket":                     opts.Bucket,
				"use_path_style":             opts.UsePathStyle,
				"enable_sse":                 opts.EnableSSE,
				"create_bucket_if_not_exist": opts.CreateBucket,
			},
		}
		setIfNotEmpty(backend.Config, "region", opts.Region)
		setIfNotEmpty(backend.Config, "prefix", opts.Prefix)
		setIfNotEmpty(backend.Config, "access_key_id", opts.AccessKeyID)
		setIfNotEmpty(backend.Config, "secret_access_key", opts.SecretAccessKey)
		setIfNotEmpty(backend.Config, "endpoint", opts.Endpoint)
		setIfNotEmpty(backend.Config, "sse_algorithm", opts.SSEAlgorithm)
		setIfNotEmpty(backend.Config, "sse_kms_key_id", opts.SSEKMSKeyID)
		if opts.PresignDuration > 0 {
			backend.Config["presign_duration"] = opts.PresignDuration
		}

		c.StorageBackends = upsertStorageBackend(c.StorageBackends, backend)
		return nil
	}
}

// WithPGBlobStorage adds a backend that keeps envelopes in the Postgres database.
// If name is empty, defaults to "pgblob"
func WithPGBlobStorage(name string) Option {
	return func(c *ServerConfig) error {
		if name == "" {
			name = "pgblob"
		}
		c.StorageBackends = upsertStorageBackend(c.StorageBackends, StorageBackendConfig{Name: name, Type: "pgblob"})
		return nil
	}
}

// WithMaxAssetSize sets the payload limit from a size string such as "25MiB".
func WithMaxAssetSize(size string) Option {
	return func(c *ServerConfig) error {
		parsed, err := filesize.Parse(size)
		if err != nil {
			return fmt.Errorf("invalid max asset size: %w", err)
		}
		if parsed <= 0 {
			return fmt.Errorf("max asset size must be positive, got: %s", size)
		}
		c.MaxAssetSize = parsed
		return nil
	}
}

// WithObjectKeyStrategy selects how object keys are laid out.
func WithObjectKeyStrategy(strategy string) Option {
	return func(c *ServerConfig) error {
		if _, err := objectkey.NewGenerator(strategy); err != nil {
			return err
		}
		c.ObjectKeyStrategy = strategy
		return nil
	}
}

// WithDeduplication enables SHA-256 deduplication on store.
func WithDeduplication(enabled bool) Option {
	return func(c *ServerConfig) error {
		c.EnableDeduplication = enabled
		return nil
	}
}

// WithEventLogging toggles the slog event sink.
func WithEventLogging(enabled bool) Option {
	return func(c *ServerConfig) error {
		c.EnableEventLogging = enabled
		return nil
	}
}

// WithURLStrategy selects how download URLs are built. baseURL is the API
// base for "content-based" and the CDN base for "cdn".
func WithURLStrategy(strategy, baseURL string) Option {
	return func(c *ServerConfig) error {
		c.URLStrategy = strategy
		switch strategy {
		case "content-based":
			c.APIBaseURL = baseURL
		case "cdn":
			c.CDNBaseURL = baseURL
		}
		return nil
	}
}

func setIfNotEmpty(config map[string]interface{}, key, value string) {
	if value != "" {
		config[key] = value
	}
}

func upsertStorageBackend(backends []StorageBackendConfig, backend StorageBackendConfig) []StorageBackendConfig {
	if backend.Config == nil {
		backend.Config = map[string]interface{}{}
	}
	for i := range backends {
		if backends[i].Name == backend.Name {
			backends[i] = backend
			return backends
		}
	}
	return append(backends, backend)
}
