package asset

import (
	"errors"
	"fmt"
)

var (
	// ErrNilData is returned when an asset is constructed from a nil byte slice.
	ErrNilData = errors.New("asset data is nil")

	// ErrSizeExceeded is returned when the payload is larger than the allowed maximum.
	ErrSizeExceeded = errors.New("asset size exceeds maximum")

	// ErrInvalidFileName indicates a name that fails the file name rules.
	ErrInvalidFileName = errors.New("invalid file name")

	// ErrInvalidMediaType indicates a string that is not a type/subtype pair.
	ErrInvalidMediaType = errors.New("invalid media type")

	// ErrEmptyAsset is returned when an operation needs a real asset but got Empty().
	ErrEmptyAsset = errors.New("asset is empty")

	// ErrIntegrityMismatch means the stored digests do not match the payload.
	ErrIntegrityMismatch = errors.New("asset integrity check failed")
)

// SizeError reports a payload that is over the limit.
type SizeError struct {
	Size int64
	Max  int64
}

func (e *SizeError) Error() string {
	return fmt.Sprintf("asset size %d bytes exceeds maximum of %d bytes", e.Size, e.Max)
}

func (e *SizeError) Unwrap() error {
	return ErrSizeExceeded
}
