package simpleasset

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/google/uuid"
	"github.com/tendant/simple-asset/pkg/asset"
	"github.com/tendant/simple-asset/pkg/simpleasset/objectkey"
)

// Asset operations

func (s *service) StoreAsset(ctx context.Context, req StoreAssetRequest) (*StoreAssetResult, error) {
	backendName, backend, err := s.resolveBackend(req.StorageBackendName)
	if err != nil {
		return nil, &AssetError{Op: "store", Err: err}
	}

	a, err := asset.FromBytes(req.Data,
		asset.WithFileName(req.FileName),
		asset.WithMediaType(req.MediaType),
		asset.WithMaxSize(s.maxAssetSize),
	)
	if err != nil {
		s.metrics.AssetRejected(rejectReason(err))
		return nil, &AssetError{Op: "store", Err: err}
	}

	if s.deduplicate {
		existing, err := s.repository.FindBySHA256(ctx, a.SHA256())
		switch {
		case err == nil && existing.SizeBytes == a.Size():
			stored, loadErr := s.LoadAsset(ctx, existing.ID)
			if loadErr == nil {
				return &StoreAssetResult{Record: existing, Asset: stored, Deduplicated: true, SourceFormat: asset.FormatV4}, nil
			}
			s.logger.WarnContext(ctx, "duplicate asset unreadable, storing a new copy",
				"asset_id", existing.ID, "error", loadErr)
		case err != nil && !errors.Is(err, ErrAssetNotFound):
			return nil, &AssetError{AssetID: a.ID(), Op: "store", Err: err}
		}
	}

	record, err := s.persist(ctx, a, backendName, backend)
	if err != nil {
		return nil, err
	}
	return &StoreAssetResult{Record: record, Asset: a, SourceFormat: asset.FormatV4}, nil
}

func (s *service) ImportEnvelope(ctx context.Context, req ImportEnvelopeRequest) (*StoreAssetResult, error) {
	backendName, backend, err := s.resolveBackend(req.StorageBackendName)
	if err != nil {
		return nil, &AssetError{Op: "import", Err: err}
	}

	a, format := asset.DecodeWithFormat(req.Envelope)
	s.metrics.EnvelopeDecoded(format.String())
	if a.IsEmpty() {
		s.metrics.AssetRejected("corrupt")
		return nil, &AssetError{Op: "import", Err: ErrCorruptEnvelope}
	}

	if _, err := s.repository.GetAsset(ctx, a.ID()); err == nil {
		return nil, &AssetError{AssetID: a.ID(), Op: "import", Err: ErrAssetAlreadyExists}
	} else if !errors.Is(err, ErrAssetNotFound) {
		return nil, &AssetError{AssetID: a.ID(), Op: "import", Err: err}
	}

	record, err := s.persist(ctx, a, backendName, backend)
	if err != nil {
		return nil, err
	}
	if format.IsLegacy() {
		s.logger.InfoContext(ctx, "legacy envelope upgraded", "asset_id", a.ID(), "format", format.String())
	}
	return &StoreAssetResult{Record: record, Asset: a, SourceFormat: format}, nil
}

// persist uploads the v4 envelope and then writes the record. The blob is
// removed again if the record cannot be written.
func (s *service) persist(ctx context.Context, a asset.FileAsset, backendName string, backend BlobStore) (*AssetRecord, error) {
	envelope, err := a.MarshalBinary()
	if err != nil {
		return nil, &AssetError{AssetID: a.ID(), Op: "encode", Err: err}
	}

	key := s.keyGenerator.GenerateKey(a.ID(), &objectkey.KeyMetadata{
		FileName:  a.Name().String(),
		Extension: a.Extension(),
		CreatedAt: a.CreatedAt(),
	})

	if err := backend.UploadWithParams(ctx, bytes.NewReader(envelope), UploadParams{
		ObjectKey: key,
		MimeType:  asset.EnvelopeMediaType,
	}); err != nil {
		return nil, &StorageError{Backend: backendName, Key: key, Op: "upload", Err: err}
	}

	record := NewAssetRecord(a, backendName, key)
	if err := s.repository.CreateAsset(ctx, record); err != nil {
		if delErr := backend.Delete(ctx, key); delErr != nil {
			s.logger.WarnContext(ctx, "failed to remove orphaned envelope",
				"asset_id", a.ID(), "object_key", key, "error", delErr)
		}
		return nil, &AssetError{AssetID: a.ID(), Op: "create", Err: err}
	}

	s.metrics.AssetStored(a.Size())
	if err := s.eventSink.AssetStored(ctx, record); err != nil {
		s.logger.WarnContext(ctx, "event sink failed", "event", "asset_stored", "asset_id", a.ID(), "error", err)
	}
	return record, nil
}

func (s *service) LoadAsset(ctx context.Context, id uuid.UUID) (asset.FileAsset, error) {
	record, envelope, err := s.readEnvelope(ctx, id)
	if err != nil {
		return asset.Empty(), err
	}

	a, format := asset.DecodeWithFormat(envelope)
	s.metrics.EnvelopeDecoded(format.String())

	if reason := envelopeProblem(a, record); reason != "" {
		s.reportCorrupt(ctx, record, reason)
		return asset.Empty(), &AssetError{AssetID: id, Op: "load", Err: ErrCorruptEnvelope}
	}
	return a, nil
}

func (s *service) LoadEnvelope(ctx context.Context, id uuid.UUID) ([]byte, error) {
	_, envelope, err := s.readEnvelope(ctx, id)
	return envelope, err
}

func (s *service) readEnvelope(ctx context.Context, id uuid.UUID) (*AssetRecord, []byte, error) {
	record, err := s.repository.GetAsset(ctx, id)
	if err != nil {
		return nil, nil, &AssetError{AssetID: id, Op: "get", Err: err}
	}

	backend, err := s.GetBackend(record.StorageBackendName)
	if err != nil {
		return nil, nil, &AssetError{AssetID: id, Op: "load", Err: err}
	}

	reader, err := backend.Download(ctx, record.ObjectKey)
	if err != nil {
		return nil, nil, &StorageError{Backend: record.StorageBackendName, Key: record.ObjectKey, Op: "download", Err: err}
	}
	defer reader.Close()

	envelope, err := io.ReadAll(io.LimitReader(reader, s.maxEnvelopeSize(record)))
	if err != nil {
		return nil, nil, &StorageError{Backend: record.StorageBackendName, Key: record.ObjectKey, Op: "read", Err: err}
	}
	return record, envelope, nil
}

// maxEnvelopeSize bounds reads to the record's payload plus header room.
func (s *service) maxEnvelopeSize(record *AssetRecord) int64 {
	limit := s.maxAssetSize
	if record.SizeBytes > limit {
		limit = record.SizeBytes
	}
	return limit + 2*asset.EnvelopeOverhead + 2*65535
}

func envelopeProblem(a asset.FileAsset, record *AssetRecord) string {
	switch {
	case a.IsEmpty():
		return "envelope could not be decoded"
	case a.ID() != record.ID:
		return fmt.Sprintf("envelope holds asset %s", a.ID())
	case a.SHA256() != record.SHA256:
		return "payload digest does not match record"
	}
	return ""
}

// reportCorrupt flags the record as corrupt so deduplication skips it.
func (s *service) reportCorrupt(ctx context.Context, record *AssetRecord, reason string) {
	s.logger.WarnContext(ctx, "corrupt asset envelope",
		"asset_id", record.ID, "object_key", record.ObjectKey, "reason", reason)
	if record.Status != string(AssetStatusCorrupt) {
		updated := *record
		updated.Status = string(AssetStatusCorrupt)
		updated.UpdatedAt = time.Now().UTC()
		if err := s.repository.UpdateAsset(ctx, &updated); err != nil {
			s.logger.WarnContext(ctx, "failed to mark asset corrupt", "asset_id", record.ID, "error", err)
		}
	}
	if err := s.eventSink.AssetCorrupt(ctx, record, reason); err != nil {
		s.logger.WarnContext(ctx, "event sink failed", "event", "asset_corrupt", "asset_id", record.ID, "error", err)
	}
}

func (s *service) GetAssetRecord(ctx context.Context, id uuid.UUID) (*AssetRecord, error) {
	record, err := s.repository.GetAsset(ctx, id)
	if err != nil {
		return nil, &AssetError{AssetID: id, Op: "get", Err: err}
	}
	return record, nil
}

func (s *service) ListAssets(ctx context.Context, req ListAssetsRequest) ([]*AssetRecord, error) {
	records, err := s.repository.ListAssets(ctx, req.filters())
	if err != nil {
		return nil, &AssetError{Op: "list", Err: err}
	}
	return records, nil
}

func (s *service) CountAssets(ctx context.Context, req ListAssetsRequest) (int64, error) {
	n, err := s.repository.CountAssets(ctx, req.filters())
	if err != nil {
		return 0, &AssetError{Op: "count", Err: err}
	}
	return n, nil
}

// DeleteAsset soft-deletes the record, then removes its envelope from
// storage. A failed envelope removal is logged; the record stays deleted.
func (s *service) DeleteAsset(ctx context.Context, id uuid.UUID) error {
	record, err := s.repository.GetAsset(ctx, id)
	if err != nil {
		return &AssetError{AssetID: id, Op: "delete", Err: err}
	}

	backend, err := s.GetBackend(record.StorageBackendName)
	if err != nil {
		return &AssetError{AssetID: id, Op: "delete", Err: err}
	}

	if err := s.repository.DeleteAsset(ctx, id); err != nil {
		return &AssetError{AssetID: id, Op: "delete", Err: err}
	}

	if err := backend.Delete(ctx, record.ObjectKey); err != nil && !errors.Is(err, ErrObjectNotFound) {
		s.logger.WarnContext(ctx, "failed to remove deleted asset envelope",
			"asset_id", id, "object_key", record.ObjectKey, "error", err)
	}

	if err := s.eventSink.AssetDeleted(ctx, id); err != nil {
		s.logger.WarnContext(ctx, "event sink failed", "event", "asset_deleted", "asset_id", id, "error", err)
	}
	return nil
}

// VerifyAsset re-reads an asset and checks it against its record. A
// corrupt envelope is reported in the result, not as an error.
func (s *service) VerifyAsset(ctx context.Context, id uuid.UUID) (*VerifyResult, error) {
	record, envelope, err := s.readEnvelope(ctx, id)
	if err != nil {
		return nil, err
	}

	a, format := asset.DecodeWithFormat(envelope)
	s.metrics.EnvelopeDecoded(format.String())
	result := &VerifyResult{AssetID: id, Format: format.String()}

	problem := envelopeProblem(a, record)
	if problem != "" {
		result.Problems = append(result.Problems, problem)
	} else {
		if err := a.VerifyIntegrity(); err != nil {
			result.Problems = append(result.Problems, err.Error())
		}
		if a.Size() != record.SizeBytes {
			result.Problems = append(result.Problems,
				fmt.Sprintf("size is %d, record says %d", a.Size(), record.SizeBytes))
		}
		if a.MediaType().String() != record.MediaType {
			result.Problems = append(result.Problems,
				fmt.Sprintf("media type is %s, record says %s", a.MediaType(), record.MediaType))
		}
		if format.IsLegacy() {
			result.Problems = append(result.Problems, ProblemLegacyLayout)
		}
	}

	result.Valid = len(result.Problems) == 0
	if problem != "" {
		s.reportCorrupt(ctx, record, problem)
	}
	return result, nil
}

func (s *service) GetDownloadURL(ctx context.Context, id uuid.UUID) (string, error) {
	record, err := s.repository.GetAsset(ctx, id)
	if err != nil {
		return "", &AssetError{AssetID: id, Op: "url", Err: err}
	}
	backend, err := s.GetBackend(record.StorageBackendName)
	if err != nil {
		return "", &AssetError{AssetID: id, Op: "url", Err: err}
	}
	var url string
	if s.urlStrategy != nil {
		url, err = s.urlStrategy.DownloadURL(ctx, record, backend)
	} else {
		url, err = backend.GetDownloadURL(ctx, record.ObjectKey, EnvelopeFileName(record.ID))
	}
	if err != nil {
		return "", &StorageError{Backend: record.StorageBackendName, Key: record.ObjectKey, Op: "url", Err: err}
	}
	return url, nil
}

// Backend management

func (s *service) RegisterBackend(name string, backend BlobStore) {
	s.blobStores[name] = backend
}

func (s *service) GetBackend(name string) (BlobStore, error) {
	backend, exists := s.blobStores[name]
	if !exists {
		return nil, fmt.Errorf("%w: %s", ErrStorageBackendNotFound, name)
	}
	return backend, nil
}

func (s *service) MaxAssetSize() int64 {
	return s.maxAssetSize
}

func (s *service) resolveBackend(name string) (string, BlobStore, error) {
	if name == "" {
		name = s.defaultBackend
	}
	backend, err := s.GetBackend(name)
	return name, backend, err
}

func rejectReason(err error) string {
	switch {
	case errors.Is(err, asset.ErrNilData):
		return "nil_data"
	case errors.Is(err, asset.ErrSizeExceeded):
		return "size_exceeded"
	}
	return "invalid"
}
