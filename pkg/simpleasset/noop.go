package simpleasset

import (
	"context"

	"github.com/google/uuid"
)

// NoopEventSink ignores every event.
type NoopEventSink struct{}

// NewNoopEventSink creates a new no-operation event sink
func NewNoopEventSink() EventSink {
	return &NoopEventSink{}
}

func (n *NoopEventSink) AssetStored(ctx context.Context, record *AssetRecord) error { return nil }

func (n *NoopEventSink) AssetDeleted(ctx context.Context, id uuid.UUID) error { return nil }

func (n *NoopEventSink) AssetCorrupt(ctx context.Context, record *AssetRecord, reason string) error {
	return nil
}

// NoopMetrics discards all measurements.
type NoopMetrics struct{}

func (NoopMetrics) EnvelopeDecoded(format string) {}
func (NoopMetrics) AssetStored(sizeBytes int64)   {}
func (NoopMetrics) AssetRejected(reason string)   {}
