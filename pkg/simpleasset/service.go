package simpleasset

import (
	"fmt"
	"log/slog"

	"github.com/tendant/simple-asset/pkg/asset"
	"github.com/tendant/simple-asset/pkg/simpleasset/objectkey"
)

// service implements the Service interface
type service struct {
	repository     Repository
	blobStores     map[string]BlobStore
	defaultBackend string
	keyGenerator   objectkey.Generator
	eventSink      EventSink
	metrics        Metrics
	urlStrategy    URLStrategy
	logger         *slog.Logger
	maxAssetSize   int64
	deduplicate    bool
}

// Option represents a functional option for configuring the service
type Option func(*service)

// WithRepository sets the repository for the service
func WithRepository(repo Repository) Option {
	return func(s *service) {
		s.repository = repo
	}
}

// WithBlobStore adds a blob storage backend. The first backend added
// becomes the default unless WithDefaultBackend says otherwise.
func WithBlobStore(name string, store BlobStore) Option {
	return func(s *service) {
		if s.blobStores == nil {
			s.blobStores = make(map[string]BlobStore)
		}
		s.blobStores[name] = store
		if s.defaultBackend == "" {
			s.defaultBackend = name
		}
	}
}

// WithDefaultBackend names the backend used when a request does not pick one.
func WithDefaultBackend(name string) Option {
	return func(s *service) {
		s.defaultBackend = name
	}
}

// WithObjectKeyGenerator sets how object keys are derived from assets.
func WithObjectKeyGenerator(g objectkey.Generator) Option {
	return func(s *service) {
		if g != nil {
			s.keyGenerator = g
		}
	}
}

// WithEventSink sets the event sink for the service
func WithEventSink(sink EventSink) Option {
	return func(s *service) {
		if sink != nil {
			s.eventSink = sink
		}
	}
}

// WithMetrics sets the metrics recorder.
func WithMetrics(m Metrics) Option {
	return func(s *service) {
		if m != nil {
			s.metrics = m
		}
	}
}

// WithURLStrategy replaces the default of asking the storage backend for
// a download URL.
func WithURLStrategy(strategy URLStrategy) Option {
	return func(s *service) {
		if strategy != nil {
			s.urlStrategy = strategy
		}
	}
}

// WithLogger sets the logger used for warnings the caller does not see.
func WithLogger(logger *slog.Logger) Option {
	return func(s *service) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// WithMaxAssetSize caps the payload size accepted by StoreAsset.
func WithMaxAssetSize(max int64) Option {
	return func(s *service) {
		if max > 0 {
			s.maxAssetSize = max
		}
	}
}

// WithDeduplication makes StoreAsset return the existing record when a
// payload with the same SHA-256 is already stored.
func WithDeduplication(enabled bool) Option {
	return func(s *service) {
		s.deduplicate = enabled
	}
}

// New creates a new service instance with the given options
func New(options ...Option) (Service, error) {
	s := &service{
		blobStores:   make(map[string]BlobStore),
		keyGenerator: objectkey.NewRecommendedGenerator(),
		eventSink:    NewNoopEventSink(),
		metrics:      NoopMetrics{},
		logger:       slog.Default(),
		maxAssetSize: asset.DefaultMaxSize,
	}

	for _, option := range options {
		option(s)
	}

	if s.repository == nil {
		return nil, fmt.Errorf("repository is required")
	}
	if len(s.blobStores) == 0 {
		return nil, fmt.Errorf("at least one blob store is required")
	}
	if _, ok := s.blobStores[s.defaultBackend]; !ok {
		return nil, fmt.Errorf("default backend %q is not registered", s.defaultBackend)
	}

	return s, nil
}
