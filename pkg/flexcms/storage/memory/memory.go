// Package memory is an in-memory media store for tests and local
// development.
package memory

import (
	"bytes"
	"context"
	"errors"
	"io"
	"net/http"
	"sync"

	"github.com/tendant/flex-cms/pkg/flexcms"
)

// Backend is an in-memory implementation of the flexcms.MediaStore interface
type Backend struct {
	mu      sync.RWMutex
	objects map[string][]byte
}

// New creates a new in-memory media store
func New() flexcms.MediaStore {
	return &Backend{
		objects: make(map[string][]byte),
	}
}

// Upload stores the file contents under the given key
func (b *Backend) Upload(ctx context.Context, objectKey string, reader io.Reader) error {
	data, err := io.ReadAll(reader)
	if err != nil {
		return err
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	b.objects[objectKey] = data
	return nil
}

// Download reads the file contents back
func (b *Backend) Download(ctx context.Context, objectKey string) (io.ReadCloser, error) {
	b.mu.RLock()
	defer b.mu.RUnlock()

	data, exists := b.objects[objectKey]
	if !exists {
		return nil, errors.New("object not found")
	}
	return io.NopCloser(bytes.NewReader(data)), nil
}

// Delete removes the stored file
func (b *Backend) Delete(ctx context.Context, objectKey string) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if _, exists := b.objects[objectKey]; !exists {
		return errors.New("object not found")
	}
	delete(b.objects, objectKey)
	return nil
}

// PublicURL returns the public files path for the key
// The in-memory store has no real URL space; files are addressed as if
// served from the local files path.
func (b *Backend) PublicURL(ctx context.Context, objectKey string) (string, error) {
	return flexcms.FilesBasePath + objectKey, nil
}

// GetObjectMeta retrieves metadata for a stored file
func (b *Backend) GetObjectMeta(ctx context.Context, objectKey string) (*flexcms.ObjectMeta, error) {
	b.mu.RLock()
	defer b.mu.RUnlock()

	data, exists := b.objects[objectKey]
	if !exists {
		return nil, errors.New("object not found")
	}

	contentType := "application/octet-stream"
	if len(data) > 0 {
		contentType = http.DetectContentType(data)
	}

	return &flexcms.ObjectMeta{
		Key:         objectKey,
		Size:        int64(len(data)),
		ContentType: contentType,
	}, nil
}
