package cache

import (
	"context"
	"time"
)

// NoopCache satisfies Cache while caching nothing. Used when caching is
// disabled by configuration.
type NoopCache struct{}

func NewNoopCache() *NoopCache {
	return &NoopCache{}
}

func (NoopCache) Get(context.Context, string) (interface{}, bool) { return nil, false }

func (NoopCache) Set(context.Context, string, interface{}, time.Duration) {}

func (NoopCache) Delete(context.Context, string) {}

func (NoopCache) Flush(context.Context) {}
