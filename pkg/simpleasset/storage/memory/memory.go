package memory

import (
	"bytes"
	"context"
	"crypto/md5"
	"encoding/hex"
	"io"
	"sync"
	"time"

	"github.com/tendant/simple-asset/pkg/simpleasset"
)

type object struct {
	data        []byte
	contentType string
	updatedAt   time.Time
}

// Backend is an in-memory implementation of the simpleasset.BlobStore interface
type Backend struct {
	mu      sync.RWMutex
	objects map[string]object
}

// New creates a new in-memory storage backend
func New() *Backend {
	return &Backend{
		objects: make(map[string]object),
	}
}

// GetObjectMeta retrieves metadata for an object in memory
func (b *Backend) GetObjectMeta(ctx context.Context, objectKey string) (*simpleasset.ObjectMeta, error) {
	b.mu.RLock()
	defer b.mu.RUnlock()

	obj, exists := b.objects[objectKey]
	if !exists {
		return nil, simpleasset.ErrObjectNotFound
	}

	sum := md5.Sum(obj.data)
	return &simpleasset.ObjectMeta{
		Key:         objectKey,
		Size:        int64(len(obj.data)),
		ContentType: obj.contentType,
		UpdatedAt:   obj.updatedAt,
		ETag:        hex.EncodeToString(sum[:]),
		Metadata:    map[string]string{"mime_type": obj.contentType},
	}, nil
}

// Upload uploads content directly
func (b *Backend) Upload(ctx context.Context, objectKey string, reader io.Reader) error {
	return b.UploadWithParams(ctx, reader, simpleasset.UploadParams{ObjectKey: objectKey})
}

// UploadWithParams uploads content with parameters
func (b *Backend) UploadWithParams(ctx context.Context, reader io.Reader, params simpleasset.UploadParams) error {
	data, err := io.ReadAll(reader)
	if err != nil {
		return err
	}
	contentType := params.MimeType
	if contentType == "" {
		contentType = "application/octet-stream"
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	b.objects[params.ObjectKey] = object{
		data:        data,
		contentType: contentType,
		updatedAt:   time.Now().UTC(),
	}
	return nil
}

// GetDownloadURL returns a URL for downloading content
// In-memory implementation doesn't use URLs
func (b *Backend) GetDownloadURL(ctx context.Context, objectKey string, downloadFilename string) (string, error) {
	return "", simpleasset.ErrDirectDownloadRequired
}

// Download downloads content directly
func (b *Backend) Download(ctx context.Context, objectKey string) (io.ReadCloser, error) {
	b.mu.RLock()
	defer b.mu.RUnlock()

	obj, exists := b.objects[objectKey]
	if !exists {
		return nil, simpleasset.ErrObjectNotFound
	}

	return io.NopCloser(bytes.NewReader(obj.data)), nil
}

// Delete deletes content
func (b *Backend) Delete(ctx context.Context, objectKey string) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if _, exists := b.objects[objectKey]; !exists {
		return simpleasset.ErrObjectNotFound
	}

	delete(b.objects, objectKey)
	return nil
}

// Put overwrites an object in place. Tests use it to simulate corruption.
func (b *Backend) Put(objectKey string, data []byte) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.objects[objectKey] = object{data: bytes.Clone(data), contentType: "application/octet-stream", updatedAt: time.Now().UTC()}
}

// Len reports the number of stored objects.
func (b *Backend) Len() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.objects)
}

var _ simpleasset.BlobStore = (*Backend)(nil)

