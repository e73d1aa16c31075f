package simpleasset

import (
	"errors"
	"fmt"

	"github.com/google/uuid"
)

var (
	// ErrAssetNotFound indicates no live record exists for the id.
	ErrAssetNotFound = errors.New("asset not found")

	// ErrAssetAlreadyExists is returned when importing an id that is already stored.
	ErrAssetAlreadyExists = errors.New("asset already exists")

	// ErrObjectNotFound indicates the blob is missing from storage.
	ErrObjectNotFound = errors.New("object not found")

	// ErrStorageBackendNotFound indicates a storage backend was not registered.
	ErrStorageBackendNotFound = errors.New("storage backend not found")

	// ErrCorruptEnvelope means a stored envelope could not be decoded or
	// does not belong to its record.
	ErrCorruptEnvelope = errors.New("corrupt asset envelope")

	// ErrDirectDownloadRequired is returned by backends that cannot mint URLs.
	ErrDirectDownloadRequired = errors.New("direct download required")
)

// AssetError wraps a failure of a service operation on one asset.
type AssetError struct {
	AssetID uuid.UUID
	Op      string
	Err     error
}

func (e *AssetError) Error() string {
	if e.AssetID == uuid.Nil {
		return fmt.Sprintf("asset operation %s failed: %v", e.Op, e.Err)
	}
	return fmt.Sprintf("asset operation %s failed for asset %s: %v", e.Op, e.AssetID, e.Err)
}

func (e *AssetError) Unwrap() error {
	return e.Err
}

// StorageError represents an error related to storage operations
type StorageError struct {
	Backend string
	Key     string
	Op      string
	Err     error
}

func (e *StorageError) Error() string {
	return fmt.Sprintf("storage operation %s failed for key %s on backend %s: %v", e.Op, e.Key, e.Backend, e.Err)
}

func (e *StorageError) Unwrap() error {
	return e.Err
}
