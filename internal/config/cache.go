package config

import (
	"time"

	"github.com/redis/go-redis/v9"
)

// CacheConfig tunes the shared read-through cache. When Enabled is
// false or no Redis client could be constructed, caching is disabled
// and every read goes straight to the database.
type CacheConfig struct {
	Enabled bool
	TTL     time.Duration
}

// LoadCacheConfig reads the cache settings from the environment. The
// 5 minute default TTL matches the invalidation discipline: mutations
// drop affected scopes eagerly, so the TTL is only a backstop against
// missed invalidations.
func LoadCacheConfig() CacheConfig {
	return CacheConfig{
		Enabled: envBool("CACHE_ENABLED", true),
		TTL:     envDur("CACHE_TTL", 5*time.Minute),
	}
}

// Client returns rdb when caching is enabled and nil otherwise, so a
// disabled cache degrades to permanent misses.
func (c CacheConfig) Client(rdb *redis.Client) *redis.Client {
	if !c.Enabled {
		return nil
	}
	return rdb
}
