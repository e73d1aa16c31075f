// Package presets builds ready-to-use services for common environments.
//
// Development keeps records in memory and envelopes on disk:
//
//	svc, cleanup, err := presets.NewDevelopment()
//	defer cleanup()
//
// Tests get a fully in-memory service:
//
//	svc := presets.NewTesting(t)
//
// Production reads the environment (see config.WithEnv) and refuses
// anything that would lose data on restart.
package presets

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"testing"

	"github.com/tendant/simple-asset/pkg/simpleasset"
	"github.com/tendant/simple-asset/pkg/simpleasset/config"
	memoryrepo "github.com/tendant/simple-asset/pkg/simpleasset/repo/memory"
	fsstorage "github.com/tendant/simple-asset/pkg/simpleasset/storage/fs"
	memorystorage "github.com/tendant/simple-asset/pkg/simpleasset/storage/memory"
)

// NewDevelopment creates a service with an in-memory repository and
// filesystem storage. The cleanup function removes the storage directory.
func NewDevelopment(opts ...DevelopmentOption) (simpleasset.Service, func(), error) {
	cfg := &devConfig{storageDir: "./dev-data"}
	for _, opt := range opts {
		opt(cfg)
	}

	fsBackend, err := fsstorage.New(fsstorage.Config{BaseDir: cfg.storageDir})
	if err != nil {
		return nil, nil, fmt.Errorf("failed to create filesystem storage: %w", err)
	}

	svc, err := simpleasset.New(
		simpleasset.WithRepository(memoryrepo.New()),
		simpleasset.WithBlobStore("fs", fsBackend),
		simpleasset.WithDeduplication(true),
		simpleasset.WithEventSink(simpleasset.NewLoggingEventSink(slog.Default())),
	)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to create service: %w", err)
	}

	cleanup := func() {
		if err := os.RemoveAll(cfg.storageDir); err != nil {
			slog.Warn("failed to remove development storage", "dir", cfg.storageDir, "err", err)
		}
	}
	return svc, cleanup, nil
}

// NewTesting creates an in-memory service and fails the test if it cannot.
func NewTesting(t testing.TB, opts ...TestingOption) simpleasset.Service {
	t.Helper()
	cfg := &testConfig{}
	for _, opt := range opts {
		opt(cfg)
	}

	svc, err := simpleasset.New(
		simpleasset.WithRepository(memoryrepo.New()),
		simpleasset.WithBlobStore("memory", memorystorage.New()),
		simpleasset.WithDeduplication(cfg.deduplicate),
	)
	if err != nil {
		t.Fatalf("failed to create test service: %v", err)
	}

	if cfg.fixtures {
		for _, f := range fixtures {
			if _, err := svc.StoreAsset(context.Background(), f); err != nil {
				t.Fatalf("failed to store fixture %s: %v", f.FileName, err)
			}
		}
	}
	return svc
}

// fixtures are stored by WithTestFixtures, one per common category.
var fixtures = []simpleasset.StoreAssetRequest{
	{FileName: "pixel.png", Data: append([]byte{0x89, 'P', 'N', 'G', 0x0D, 0x0A, 0x1A, 0x0A}, make([]byte, 16)...)},
	{FileName: "report.pdf", Data: []byte("%PDF-1.7\n%fixture\n")},
	{FileName: "notes.txt", Data: []byte("fixture notes\n")},
}

// NewProduction builds a service from the environment. It requires a
// Postgres database and persistent storage. Call the returned close
// function on shutdown to release the database pool.
func NewProduction(ctx context.Context, opts ...config.Option) (simpleasset.Service, func(), error) {
	cfg, err := config.Load(append([]config.Option{config.WithEnv()}, opts...)...)
	if err != nil {
		return nil, nil, err
	}
	if err := checkProduction(cfg); err != nil {
		return nil, nil, err
	}

	svc, err := cfg.BuildService(ctx)
	if err != nil {
		cfg.Close()
		return nil, nil, err
	}
	return svc, cfg.Close, nil
}

func checkProduction(cfg *config.ServerConfig) error {
	if cfg.DatabaseType != "postgres" {
		return fmt.Errorf("production preset requires DATABASE_URL to point at postgres (memory not allowed in production)")
	}
	for _, backend := range cfg.StorageBackends {
		if backend.Name == cfg.DefaultStorageBackend && backend.Type == "memory" {
			return fmt.Errorf("production preset requires persistent storage (s3, fs or pgblob, not memory)")
		}
	}
	return nil
}

type devConfig struct {
	storageDir string
}

type testConfig struct {
	fixtures    bool
	deduplicate bool
}

// DevelopmentOption configures NewDevelopment.
type DevelopmentOption func(*devConfig)

// WithDevStorage sets the directory envelopes are written to.
func WithDevStorage(dir string) DevelopmentOption {
	return func(cfg *devConfig) {
		cfg.storageDir = dir
	}
}

// TestingOption configures NewTesting.
type TestingOption func(*testConfig)

// WithTestFixtures stores a PNG, a PDF and a text asset up front.
func WithTestFixtures() TestingOption {
	return func(cfg *testConfig) {
		cfg.fixtures = true
	}
}

// WithTestDeduplication turns on SHA-256 deduplication.
func WithTestDeduplication() TestingOption {
	return func(cfg *testConfig) {
		cfg.deduplicate = true
	}
}
