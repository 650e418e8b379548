package cache

import (
	"github.com/stackbill/stackbill/internal/config"
	"github.com/stackbill/stackbill/internal/logger"
	redisClient "github.com/stackbill/stackbill/internal/redis"
)

// CacheType represents the type of cache to use
type CacheType string

const (
	// CacheTypeInMemory represents an in-memory cache
	CacheTypeInMemory CacheType = "inmemory"

	// CacheTypeRedis represents a Redis-backed cache
	CacheTypeRedis CacheType = "redis"
)

// Initialize builds the cache backend selected by configuration. A nil
// redis client downgrades a redis selection to in-memory.
func Initialize(cfg *config.Configuration, rc *redisClient.Client, log *logger.Logger) Cache {
	if !cfg.Cache.Enabled {
		log.Info("cache disabled, using noop cache")
		return NewNoopCache()
	}

	switch CacheType(cfg.Cache.Type) {
	case CacheTypeRedis:
		if rc != nil {
			log.Infow("cache system initialized", "type", CacheTypeRedis)
			return NewRedisCache(rc, log)
		}
		log.Warn("redis cache requested but redis is not connected, falling back to in-memory")
		fallthrough
	case CacheTypeInMemory:
		fallthrough
	default:
		log.Infow("cache system initialized", "type", CacheTypeInMemory)
		return NewInMemoryCache()
	}
}
