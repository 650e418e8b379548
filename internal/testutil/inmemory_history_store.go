package testutil

import (
	"context"
	"sync"

	"github.com/stackbill/stackbill/internal/domain/subscription"
	ierr "github.com/stackbill/stackbill/internal/errors"
)

// InMemoryHistoryStore implements subscription.HistoryRepository.
type InMemoryHistoryStore struct {
	mu      sync.RWMutex
	records []*subscription.HistoryRecord
}

func NewInMemoryHistoryStore() *InMemoryHistoryStore {
	return &InMemoryHistoryStore{}
}

func (s *InMemoryHistoryStore) Append(ctx context.Context, rec *subscription.HistoryRecord) error {
	if rec == nil {
		return ierr.NewError("history record is nil").Mark(ierr.ErrValidation)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.records = append(s.records, rec)
	return nil
}

func (s *InMemoryHistoryStore) ListBySubscription(ctx context.Context, subscriptionID string) ([]*subscription.HistoryRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []*subscription.HistoryRecord
	for _, rec := range s.records {
		if rec.SubscriptionID == subscriptionID {
			out = append(out, rec)
		}
	}
	return out, nil
}

// All returns every record in append order.
func (s *InMemoryHistoryStore) All() []*subscription.HistoryRecord {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]*subscription.HistoryRecord, len(s.records))
	copy(out, s.records)
	return out
}
