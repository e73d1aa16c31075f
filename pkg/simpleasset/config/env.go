package config

import (
	"fmt"
	"net/url"
	"strconv"
	"strings"

	"github.com/ilyakaznacheev/cleanenv"
	"github.com/tendant/simple-asset/pkg/filesize"
)

// envConfig lists the variables WithEnv understands. Unset variables leave
// the current configuration alone.
type envConfig struct {
	Port              string            `env:"PORT"`
	Environment       string            `env:"ENVIRONMENT"`
	DatabaseURL       string            `env:"DATABASE_URL"`
	DBSchema          string            `env:"DB_SCHEMA"`
	AutoMigrate       string            `env:"DB_AUTO_MIGRATE"`
	StorageURL        string            `env:"STORAGE_URL"`
	MaxAssetSize      filesize.FileSize `env:"MAX_ASSET_SIZE"`
	ObjectKeyStrategy string            `env:"OBJECT_KEY_STRATEGY"`
	Deduplicate       string            `env:"DEDUPLICATE"`
	EventLogging      string            `env:"EVENT_LOGGING"`
	URLStrategy       string            `env:"URL_STRATEGY"`
	APIBaseURL        string            `env:"API_BASE_URL"`
	CDNBaseURL        string            `env:"CDN_BASE_URL"`

	AWS awsEnv
}

type awsEnv struct {
	AccessKeyID     string `env:"AWS_ACCESS_KEY_ID"`
	SecretAccessKey string `env:"AWS_SECRET_ACCESS_KEY"`
	Region          string `env:"AWS_REGION"`
}

// WithEnv applies environment variable overrides.
//
// Server:
//
//	PORT, ENVIRONMENT
//
// Database:
//
//	DATABASE_URL - "memory" (default) or "postgres://..." / "postgresql://..."
//	DB_SCHEMA, DB_AUTO_MIGRATE
//
// Storage:
//
//	STORAGE_URL - one of
//	  "memory://"                                     in-memory (default)
//	  "file:///path/to/data"                          filesystem
//	  "s3://bucket/prefix?region=..&endpoint=..&path_style=true"
//	  "pgblob://"                                     envelopes in DATABASE_URL
//
// Service:
//
//	MAX_ASSET_SIZE ("100MiB"), OBJECT_KEY_STRATEGY, DEDUPLICATE, EVENT_LOGGING
//
// Download URLs:
//
//	URL_STRATEGY ("storage-delegated", "content-based", "cdn"), API_BASE_URL, CDN_BASE_URL
func WithEnv() Option {
	return func(c *ServerConfig) error {
		var env envConfig
		if err := cleanenv.ReadEnv(&env); err != nil {
			return fmt.Errorf("failed to read environment: %w", err)
		}

		if env.Port != "" {
			c.Port = env.Port
		}
		if env.Environment != "" {
			c.Environment = env.Environment
		}
		if env.DBSchema != "" {
			c.DBSchema = env.DBSchema
		}
		if env.MaxAssetSize > 0 {
			c.MaxAssetSize = env.MaxAssetSize
		}
		if env.ObjectKeyStrategy != "" {
			c.ObjectKeyStrategy = env.ObjectKeyStrategy
		}
		setIfSet(&c.URLStrategy, env.URLStrategy)
		setIfSet(&c.APIBaseURL, env.APIBaseURL)
		setIfSet(&c.CDNBaseURL, env.CDNBaseURL)

		flags := []struct {
			name  string
			raw   string
			field *bool
		}{
			{"DB_AUTO_MIGRATE", env.AutoMigrate, &c.AutoMigrate},
			{"DEDUPLICATE", env.Deduplicate, &c.EnableDeduplication},
			{"EVENT_LOGGING", env.EventLogging, &c.EnableEventLogging},
		}
		for _, f := range flags {
			if f.raw == "" {
				continue
			}
			parsed, err := strconv.ParseBool(f.raw)
			if err != nil {
				return fmt.Errorf("invalid boolean for %s: %w", f.name, err)
			}
			*f.field = parsed
		}

		if err := applyDatabaseEnv(env.DatabaseURL, c); err != nil {
			return err
		}
		return applyStorageEnv(env.StorageURL, env.AWS, c)
	}
}

func setIfSet(field *string, value string) {
	if value != "" {
		*field = value
	}
}

func applyDatabaseEnv(dbURL string, c *ServerConfig) error {
	switch {
	case dbURL == "":
		return nil
	case dbURL == "memory":
		c.DatabaseType = "memory"
		c.DatabaseURL = ""
	case strings.HasPrefix(dbURL, "postgresql://"), strings.HasPrefix(dbURL, "postgres://"):
		c.DatabaseType = "postgres"
		c.DatabaseURL = dbURL
	default:
		return fmt.Errorf("unsupported DATABASE_URL format: %s (use 'memory' or 'postgresql://...')", dbURL)
	}
	return nil
}

func applyStorageEnv(storageURL string, aws awsEnv, c *ServerConfig) error {
	if storageURL == "" {
		return nil
	}

	u, err := url.Parse(storageURL)
	if err != nil {
		return fmt.Errorf("invalid STORAGE_URL: %w", err)
	}

	var backend StorageBackendConfig
	switch u.Scheme {
	case "memory":
		backend = StorageBackendConfig{Name: "memory", Type: "memory"}

	case "file":
		path := u.Host + u.Path
		if path == "" {
			return fmt.Errorf("filesystem path cannot be empty in STORAGE_URL")
		}
		backend = StorageBackendConfig{
			Name:   "fs",
			Type:   "fs",
			Config: map[string]interface{}{"base_dir": path},
		}

	case "s3":
		if u.Host == "" {
			return fmt.Errorf("S3 bucket name cannot be empty in STORAGE_URL")
		}
		q := u.Query()
		backend = StorageBackendConfig{
			Name: "s3",
			Type: "s3",
			Config: map[string]interface{}{
				"bucket": u.Host,
				"region": "us-east-1",
			},
		}
		setIfNotEmpty(backend.Config, "prefix", strings.Trim(u.Path, "/"))
		setIfNotEmpty(backend.Config, "region", aws.Region)
		setIfNotEmpty(backend.Config, "region", q.Get("region"))
		setIfNotEmpty(backend.Config, "endpoint", q.Get("endpoint"))
		setIfNotEmpty(backend.Config, "use_path_style", q.Get("path_style"))
		setIfNotEmpty(backend.Config, "create_bucket_if_not_exist", q.Get("create_bucket"))
		setIfNotEmpty(backend.Config, "access_key_id", aws.AccessKeyID)
		setIfNotEmpty(backend.Config, "secret_access_key", aws.SecretAccessKey)

	case "pgblob":
		backend = StorageBackendConfig{Name: "pgblob", Type: "pgblob"}

	default:
		return fmt.Errorf("unsupported STORAGE_URL format: %s (use 'memory://', 'file://...', 's3://...' or 'pgblob://')", storageURL)
	}

	c.DefaultStorageBackend = backend.Name
	c.StorageBackends = upsertStorageBackend(c.StorageBackends, backend)
	return nil
}
