package workflow

import (
	"context"
	"sync"

	"github.com/pkg/errors"
)

// NewMemoryAppStoreRepo 进程内存储, 测试和单机演示用
func NewMemoryAppStoreRepo() AppStoreRepo {
	return &memoryAppStoreRepo{blobs: make(map[string]*Blob)}
}

type memoryAppStoreRepo struct {
	mu    sync.Mutex
	blobs map[string]*Blob
}

func (r *memoryAppStoreRepo) Load(ctx context.Context, namespace string) (*Blob, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	blob, ok := r.blobs[namespace]
	if !ok {
		return &Blob{}, nil
	}
	data := make([]byte, len(blob.Data))
	copy(data, blob.Data)
	return &Blob{Data: data, Revision: blob.Revision}, nil
}

func (r *memoryAppStoreRepo) Save(ctx context.Context, namespace string, data []byte, expectedRevision int64) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var current int64
	if blob, ok := r.blobs[namespace]; ok {
		current = blob.Revision
	}
	if current != expectedRevision {
		return 0, errors.WithMessagef(ErrStoreRevisionConflict, "namespace: %s, expected: %d, current: %d", namespace, expectedRevision, current)
	}
	stored := make([]byte, len(data))
	copy(stored, data)
	r.blobs[namespace] = &Blob{Data: stored, Revision: current + 1}
	return current + 1, nil
}

func (r *memoryAppStoreRepo) Delete(ctx context.Context, namespace string) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	blob, ok := r.blobs[namespace]
	if !ok {
		return 0, nil
	}
	r.blobs[namespace] = &Blob{Revision: blob.Revision + 1}
	return blob.Revision + 1, nil
}
