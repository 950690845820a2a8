package vault

import (
	"context"
	"sync"
)

// StorageClient is the only contract the vault has on its content store.
// A production binding signs requests per the store's auth scheme; the
// in-memory client backs tests and local development.
type StorageClient interface {
	PutObject(ctx context.Context, key string, payload []byte, metadata map[string]string) error
	GetObject(ctx context.Context, key string) ([]byte, error)
	DeleteObject(ctx context.Context, key string) error
}

// MemoryStorage keeps objects in a process-local map.
type MemoryStorage struct {
	mu      sync.Mutex
	objects map[string]storedObject
}

type storedObject struct {
	payload  []byte
	metadata map[string]string
}

func NewMemoryStorage() *MemoryStorage {
	return &MemoryStorage{objects: make(map[string]storedObject)}
}

func (s *MemoryStorage) PutObject(_ context.Context, key string, payload []byte, metadata map[string]string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.objects[key] = storedObject{
		payload:  append([]byte(nil), payload...),
		metadata: metadata,
	}
	return nil
}

func (s *MemoryStorage) GetObject(_ context.Context, key string) ([]byte, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	stored, ok := s.objects[key]
	if !ok {
		return nil, ErrNotFound
	}
	return append([]byte(nil), stored.payload...), nil
}

func (s *MemoryStorage) DeleteObject(_ context.Context, key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.objects, key)
	return nil
}

// ObjectMetadata returns the headers stored with an object, for tests.
func (s *MemoryStorage) ObjectMetadata(key string) (map[string]string, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	stored, ok := s.objects[key]
	if !ok {
		return nil, false
	}
	return stored.metadata, true
}

// Len reports the number of stored objects.
func (s *MemoryStorage) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.objects)
}
