package cache

import (
	"context"
	"time"

	lru "github.com/hashicorp/golang-lru"
)

const defaultMemorySize = 1024

type memoryEntry struct {
	value     string
	expiresAt time.Time
}

// MemoryCache is a size-bounded LRU with per-entry expiry.
type MemoryCache struct {
	cache *lru.Cache
	now   func() time.Time
}

var _ Cache = (*MemoryCache)(nil)

func NewMemoryCache(size int) (*MemoryCache, error) {
	if size <= 0 {
		size = defaultMemorySize
	}
	c, err := lru.New(size)
	if err != nil {
		return nil, err
	}
	return &MemoryCache{cache: c, now: time.Now}, nil
}

func (c *MemoryCache) Get(ctx context.Context, key string) (string, bool, error) {
	val, found := c.cache.Get(key)
	if !found {
		return "", false, nil
	}
	entry := val.(memoryEntry)
	if !entry.expiresAt.IsZero() && !c.now().Before(entry.expiresAt) {
		c.cache.Remove(key)
		return "", false, nil
	}
	return entry.value, true, nil
}

// Set with a non-positive ttl keeps the entry until it is evicted.
func (c *MemoryCache) Set(ctx context.Context, key, value string, ttl time.Duration) error {
	entry := memoryEntry{value: value}
	if ttl > 0 {
		entry.expiresAt = c.now().Add(ttl)
	}
	c.cache.Add(key, entry)
	return nil
}

func (c *MemoryCache) Close() error {
	c.cache.Purge()
	return nil
}
