package idempotency

import (
	"context"
	"time"

	"github.com/stackbill/stackbill/internal/cache"
)

const (
	cacheKeyPrefix = "idempotency:key:"
	cacheTTL       = 48 * time.Hour
)

// cachedStore fronts a durable Store with the cache. Only positive results
// are cached: a cached "exists" can safely skip a charge, while a cached
// "missing" could allow a duplicate, so misses always hit the store.
type cachedStore struct {
	store Store
	cache cache.Cache
}

// NewCachedStore wraps a durable store with read-through caching.
func NewCachedStore(store Store, c cache.Cache) Store {
	return &cachedStore{store: store, cache: c}
}

func (s *cachedStore) Exists(ctx context.Context, key string) (bool, error) {
	if _, found := s.cache.Get(ctx, cacheKeyPrefix+key); found {
		return true, nil
	}

	exists, err := s.store.Exists(ctx, key)
	if err != nil {
		return false, err
	}
	if exists {
		s.cache.Set(ctx, cacheKeyPrefix+key, "1", cacheTTL)
	}
	return exists, nil
}

func (s *cachedStore) Record(ctx context.Context, key string, paymentID string) error {
	if err := s.store.Record(ctx, key, paymentID); err != nil {
		return err
	}
	s.cache.Set(ctx, cacheKeyPrefix+key, "1", cacheTTL)
	return nil
}
