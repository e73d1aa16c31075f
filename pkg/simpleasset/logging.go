package simpleasset

import (
	"context"
	"log/slog"

	"github.com/google/uuid"
)

// LoggingEventSink writes every event to a slog.Logger.
type LoggingEventSink struct {
	logger *slog.Logger
}

// NewLoggingEventSink logs to logger, or to slog.Default() when nil.
func NewLoggingEventSink(logger *slog.Logger) EventSink {
	if logger == nil {
		logger = slog.Default()
	}
	return &LoggingEventSink{logger: logger}
}

func (l *LoggingEventSink) AssetStored(ctx context.Context, record *AssetRecord) error {
	l.logger.InfoContext(ctx, "asset stored",
		"asset_id", record.ID,
		"file_name", record.FileName,
		"media_type", record.MediaType,
		"size_bytes", record.SizeBytes,
		"backend", record.StorageBackendName)
	return nil
}

func (l *LoggingEventSink) AssetDeleted(ctx context.Context, id uuid.UUID) error {
	l.logger.InfoContext(ctx, "asset deleted", "asset_id", id)
	return nil
}

func (l *LoggingEventSink) AssetCorrupt(ctx context.Context, record *AssetRecord, reason string) error {
	l.logger.WarnContext(ctx, "asset envelope corrupt",
		"asset_id", record.ID,
		"object_key", record.ObjectKey,
		"backend", record.StorageBackendName,
		"reason", reason)
	return nil
}
