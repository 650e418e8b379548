package cache

import (
	"context"
	"encoding/json"
	"time"
)

// Cache is the read-through cache used for hot lookups during a billing
// run. It is advisory: every caller must tolerate a miss.
type Cache interface {
	Get(ctx context.Context, key string) (interface{}, bool)
	Set(ctx context.Context, key string, value interface{}, expiration time.Duration)
	Delete(ctx context.Context, key string)
	Flush(ctx context.Context)
}

// UnmarshalCacheValue converts a cached value to the requested type. It
// handles both the in-memory cache (stores live objects) and the Redis
// cache (stores JSON strings).
func UnmarshalCacheValue[T any](value interface{}) (*T, bool) {
	if value == nil {
		return nil, false
	}

	if typed, ok := value.(*T); ok {
		return typed, true
	}

	if str, ok := value.(string); ok {
		var result T
		if err := json.Unmarshal([]byte(str), &result); err == nil {
			return &result, true
		}
	}

	return nil, false
}
