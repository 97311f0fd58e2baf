package wallet

import (
	"context"
	"sync"
)

type memoryStore struct {
	mu       sync.Mutex
	balances map[int64]float64
}

// NewMemoryStore returns an in-memory Store for tests and development.
func NewMemoryStore() Store {
	return &memoryStore{balances: make(map[int64]float64)}
}

func (s *memoryStore) Balance(_ context.Context, userID int64) (float64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.balances[userID], nil
}

func (s *memoryStore) Add(_ context.Context, userID int64, delta float64) (float64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.balances[userID] += delta
	return s.balances[userID], nil
}
