package storage

import (
	"context"
	"sync"
)

// MemoryCounterStore is a non-durable CounterStore for tests and dry runs.
type MemoryCounterStore struct {
	mu     sync.Mutex
	counts map[string]int64
}

// NewMemoryCounterStore creates an empty store.
func NewMemoryCounterStore() *MemoryCounterStore {
	return &MemoryCounterStore{counts: make(map[string]int64)}
}

func (s *MemoryCounterStore) ReadCount(ctx context.Context, key string) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.counts[key], nil
}

func (s *MemoryCounterStore) WriteCount(ctx context.Context, key string, value int64) error {
	if err := checkWrite(key, value); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.counts[key] = value
	return nil
}

func (s *MemoryCounterStore) Close() error {
	return nil
}
