package testutil

import (
	"context"
	"sync"

	ierr "github.com/stackbill/stackbill/internal/errors"
)

// InMemoryIdempotencyStore implements idempotency.Store. ExistsErr, when
// set, is returned from every Exists call to exercise the fail-closed path.
type InMemoryIdempotencyStore struct {
	mu        sync.RWMutex
	keys      map[string]string
	ExistsErr error
}

func NewInMemoryIdempotencyStore() *InMemoryIdempotencyStore {
	return &InMemoryIdempotencyStore{keys: make(map[string]string)}
}

func (s *InMemoryIdempotencyStore) Exists(ctx context.Context, key string) (bool, error) {
	if s.ExistsErr != nil {
		return false, s.ExistsErr
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, exists := s.keys[key]
	return exists, nil
}

func (s *InMemoryIdempotencyStore) Record(ctx context.Context, key string, paymentID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.keys[key]; exists {
		return ierr.NewError("idempotency key already recorded").Mark(ierr.ErrAlreadyExists)
	}
	s.keys[key] = paymentID
	return nil
}

// Keys returns a copy of the recorded keys.
func (s *InMemoryIdempotencyStore) Keys() map[string]string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make(map[string]string, len(s.keys))
	for k, v := range s.keys {
		out[k] = v
	}
	return out
}
