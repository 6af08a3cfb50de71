package storage

import (
	"context"
	"sync"
)

// MemoryStore keeps values in process memory. Used in tests and when no
// durable backend is configured.
type MemoryStore struct {
	watchers
	mu     sync.RWMutex
	values map[string]string
}

// NewMemoryStore creates an empty MemoryStore.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{values: make(map[string]string)}
}

func (s *MemoryStore) Get(ctx context.Context, key string) (string, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	v, ok := s.values[key]
	return v, ok, nil
}

func (s *MemoryStore) Set(ctx context.Context, key, value string) error {
	s.mu.Lock()
	s.values[key] = value
	s.mu.Unlock()
	s.notify(key, value, true)
	return nil
}

func (s *MemoryStore) Delete(ctx context.Context, key string) error {
	s.mu.Lock()
	delete(s.values, key)
	s.mu.Unlock()
	s.notify(key, "", false)
	return nil
}

func (s *MemoryStore) Subscribe(key string, fn func(string, bool)) func() {
	return s.subscribe(key, fn)
}

func (s *MemoryStore) Close() error { return nil }
