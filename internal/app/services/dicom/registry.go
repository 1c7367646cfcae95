package dicom

import (
	"bytes"
	"context"
	"fmt"
	"imaging-demo-service/internal/pkg/constvars"
	"io"
	"strings"
	"sync"
)

// BlobRegistry mints opaque image ids for instance bytes and resolves them back.
type BlobRegistry interface {
	Register(ctx context.Context, blob []byte) (string, error)
	Open(ctx context.Context, imageID string) (io.ReadCloser, int64, error)
}

// MemoryRegistry keeps registered blobs in process memory.
type MemoryRegistry struct {
	mu    sync.RWMutex
	next  int
	blobs map[string][]byte
}

func NewMemoryRegistry() *MemoryRegistry {
	return &MemoryRegistry{blobs: make(map[string][]byte)}
}

func (r *MemoryRegistry) Register(ctx context.Context, blob []byte) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	owned := make([]byte, len(blob))
	copy(owned, blob)

	r.mu.Lock()
	defer r.mu.Unlock()
	imageID := fmt.Sprintf("%s%d", constvars.DicomImageIDPrefix, r.next)
	r.next++
	r.blobs[imageID] = owned
	return imageID, nil
}

// Open accepts frame-suffixed ids and returns the whole instance.
func (r *MemoryRegistry) Open(ctx context.Context, imageID string) (io.ReadCloser, int64, error) {
	r.mu.RLock()
	blob, ok := r.blobs[ImageIDBase(imageID)]
	r.mu.RUnlock()
	if !ok {
		return nil, 0, fmt.Errorf("%w: %s", ErrBlobNotFound, imageID)
	}
	return io.NopCloser(bytes.NewReader(blob)), int64(len(blob)), nil
}

func (r *MemoryRegistry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.blobs)
}

// ImageIDBase drops the "?frame=<i>" suffix of a multi-frame image id.
func ImageIDBase(imageID string) string {
	base, _, _ := strings.Cut(imageID, constvars.DicomFrameQuerySep)
	return base
}
