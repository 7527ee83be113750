// Package cache stores short-lived string values such as resolved file URLs.
package cache

import (
	"context"
	"time"
)

// Cache is a TTL string cache. Get reports a miss with ok=false; backend errors are
// treated as misses by callers.
type Cache interface {
	Get(ctx context.Context, key string) (value string, ok bool, err error)
	Set(ctx context.Context, key, value string, ttl time.Duration) error
	Close() error
}

// New returns a Redis cache when redisURL is set and an in-process LRU otherwise.
func New(redisURL, keyPrefix string, size int) (Cache, error) {
	if redisURL != "" {
		return NewRedisCache(redisURL, keyPrefix)
	}
	return NewMemoryCache(size)
}
