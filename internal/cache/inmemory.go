package cache

import (
	"context"
	"time"

	gocache "github.com/patrickmn/go-cache"
)

// InMemoryCache implements Cache on top of go-cache.
type InMemoryCache struct {
	store *gocache.Cache
}

// NewInMemoryCache creates an in-memory cache with the default expiry.
func NewInMemoryCache() *InMemoryCache {
	return &InMemoryCache{
		store: gocache.New(ExpiryDefaultInMemory, 2*ExpiryDefaultInMemory),
	}
}

func (c *InMemoryCache) Get(_ context.Context, key string) (interface{}, bool) {
	return c.store.Get(key)
}

func (c *InMemoryCache) Set(_ context.Context, key string, value interface{}, expiration time.Duration) {
	if expiration == 0 {
		expiration = ExpiryDefaultInMemory
	}
	c.store.Set(key, value, expiration)
}

func (c *InMemoryCache) Delete(_ context.Context, key string) {
	c.store.Delete(key)
}

func (c *InMemoryCache) Flush(_ context.Context) {
	c.store.Flush()
}
