// Package cache provides the read-through Redis cache shared by the
// services. Values are JSON; keys are built deterministically from an
// operation name and its filtering arguments so that mutations can
// invalidate whole collection scopes by prefix. Cache unavailability
// always degrades to miss behavior; it never fails or blocks the
// primary operation.
package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/ahmadyateem/meeting-room-reservation/internal/logger"
)

// DefaultTTL bounds entry lifetime when the caller does not override it.
const DefaultTTL = 5 * time.Minute

// Cache wraps a Redis client. A nil client disables caching entirely;
// every method becomes a no-op miss.
type Cache struct {
	rdb *redis.Client
	ttl time.Duration
}

// New builds a Cache over the given client (which may be nil). A
// non-positive ttl falls back to DefaultTTL.
func New(rdb *redis.Client, ttl time.Duration) *Cache {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &Cache{rdb: rdb, ttl: ttl}
}

// Key builds a deterministic cache key from a collection scope and the
// operation's filtering arguments, e.g.
// Key("room_bookings", 42, "page", 1) -> "room_bookings:42:page:1".
func Key(scope string, args ...any) string {
	parts := make([]string, 0, len(args)+1)
	parts = append(parts, scope)
	for _, a := range args {
		parts = append(parts, fmt.Sprint(a))
	}
	return strings.Join(parts, ":")
}

// Get unmarshals the cached value for key into dest. It returns false
// on miss, on any Redis error, and when caching is disabled.
func (c *Cache) Get(ctx context.Context, key string, dest any) bool {
	if c == nil || c.rdb == nil {
		return false
	}
	raw, err := c.rdb.Get(ctx, key).Bytes()
	if err != nil {
		return false
	}
	if err := json.Unmarshal(raw, dest); err != nil {
		return false
	}
	return true
}

// Set stores value under key with the cache TTL. Errors are logged and
// swallowed.
func (c *Cache) Set(ctx context.Context, key string, value any) {
	if c == nil || c.rdb == nil {
		return
	}
	raw, err := json.Marshal(value)
	if err != nil {
		return
	}
	if err := c.rdb.SetEx(ctx, key, raw, c.ttl).Err(); err != nil {
		logger.Warn("cache set failed", map[string]any{"key": key, "error": err.Error()})
	}
}

// InvalidatePrefix deletes every key under the given collection scope.
// Mutations call this before reporting success to their callers. Uses
// SCAN rather than KEYS so a large keyspace cannot stall Redis.
func (c *Cache) InvalidatePrefix(ctx context.Context, scope string) {
	if c == nil || c.rdb == nil {
		return
	}
	iter := c.rdb.Scan(ctx, 0, scope+":*", 0).Iterator()
	var keys []string
	for iter.Next(ctx) {
		keys = append(keys, iter.Val())
	}
	if err := iter.Err(); err != nil {
		logger.Warn("cache invalidation scan failed", map[string]any{"scope": scope, "error": err.Error()})
		return
	}
	if len(keys) == 0 {
		return
	}
	if err := c.rdb.Del(ctx, keys...).Err(); err != nil {
		logger.Warn("cache invalidation delete failed", map[string]any{"scope": scope, "error": err.Error()})
	}
}
