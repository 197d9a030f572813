package objectstore

import (
	"bytes"
	"context"
	"io"
	"sync"
	"time"

	"github.com/lukeboustridge-prog/RANZ-Roofing-report-sub006/internal/common"
)

// MemoryStore is an in-memory Store used in tests. PresignPut hands out an
// opaque pseudo-URL; tests place bytes directly with Put.
type MemoryStore struct {
	mu      sync.Mutex
	objects map[string][]byte
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{objects: make(map[string][]byte)}
}

// Put stores bytes under key, standing in for a client-side presigned PUT.
func (s *MemoryStore) Put(key string, data []byte) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.objects[key] = append([]byte(nil), data...)
}

// Exists reports whether an object is present under key.
func (s *MemoryStore) Exists(key string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.objects[key]
	return ok
}

func (s *MemoryStore) PresignPut(ctx context.Context, key string) (string, time.Time, error) {
	return "memory://" + key, time.Now().Add(15 * time.Minute), nil
}

func (s *MemoryStore) Get(ctx context.Context, key string) (io.ReadCloser, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	data, ok := s.objects[key]
	if !ok {
		return nil, common.ErrNotFound
	}
	return io.NopCloser(bytes.NewReader(data)), nil
}

func (s *MemoryStore) Delete(ctx context.Context, key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.objects, key)
	return nil
}
