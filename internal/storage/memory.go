package storage

import (
	"context"
	"fmt"
	"io"
	"net/url"
	"sync"
	"time"
)

type memObject struct {
	data        []byte
	contentType string
	metadata    map[string]string
	modified    time.Time
}

// MemoryStorage keeps objects in process memory. It backs STORAGE_DRIVER=memory
// for local runs and the store-level tests.
type MemoryStorage struct {
	mu      sync.RWMutex
	bucket  string
	objects map[string]memObject
	now     func() time.Time
}

// NewMemory creates an empty in-memory store.
func NewMemory(bucket string) *MemoryStorage {
	return &MemoryStorage{
		bucket:  bucket,
		objects: make(map[string]memObject),
		now:     time.Now,
	}
}

func (m *MemoryStorage) Bucket() string { return m.bucket }

func (m *MemoryStorage) Put(ctx context.Context, key string, r io.Reader, opt PutObjectOptions) (ObjectInfo, error) {
	if err := ctx.Err(); err != nil {
		return ObjectInfo{}, &Error{Op: "put", Key: key, Err: err}
	}
	data, err := io.ReadAll(r)
	if err != nil {
		return ObjectInfo{}, &Error{Op: "put", Key: key, Err: err}
	}

	obj := memObject{data: data, contentType: opt.ContentType, metadata: opt.Metadata, modified: m.now()}

	m.mu.Lock()
	m.objects[key] = obj
	m.mu.Unlock()

	return ObjectInfo{
		Key:          key,
		Size:         int64(len(data)),
		ContentType:  opt.ContentType,
		LastModified: obj.modified,
		Metadata:     opt.Metadata,
	}, nil
}

func (m *MemoryStorage) Delete(ctx context.Context, key string) error {
	if err := ctx.Err(); err != nil {
		return &Error{Op: "delete", Key: key, Err: err}
	}
	m.mu.Lock()
	delete(m.objects, key)
	m.mu.Unlock()
	return nil
}

// PresignGet returns a memory:// URL carrying the absolute expiry as a unix timestamp.
func (m *MemoryStorage) PresignGet(ctx context.Context, key string, expiry time.Duration) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", &Error{Op: "presign", Key: key, Err: err}
	}
	u := url.URL{
		Scheme:   "memory",
		Host:     m.bucket,
		Path:     "/" + key,
		RawQuery: fmt.Sprintf("X-Expires=%d", m.now().Add(expiry).Unix()),
	}
	return u.String(), nil
}

// Exists reports whether an object is stored under key.
func (m *MemoryStorage) Exists(key string) bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	_, ok := m.objects[key]
	return ok
}

// Len returns the number of stored objects.
func (m *MemoryStorage) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.objects)
}
