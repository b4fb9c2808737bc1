package memory

import (
	"context"
	"sync"
)

// InMemoryStore keeps per-category counters behind a mutex. Counters start at
// zero on process start, so this backend is only suitable for tests and local
// development.
type InMemoryStore struct {
	mu       sync.Mutex
	counters map[string]int64
}

func New() *InMemoryStore {
	return &InMemoryStore{counters: make(map[string]int64)}
}

func (s *InMemoryStore) Next(_ context.Context, category string) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.counters[category]++
	return s.counters[category], nil
}

// Current returns the last value issued for a category without advancing it.
func (s *InMemoryStore) Current(category string) int64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.counters[category]
}
