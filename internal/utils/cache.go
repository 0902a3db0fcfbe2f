package utils

import (
	"strings"
	"time"

	lru "github.com/hashicorp/golang-lru/v2"
)

// CacheItem 包装缓存数据和过期时间
type CacheItem struct {
	Data      interface{}
	ExpiresAt time.Time
}

// TTLCache is a bounded LRU cache whose entries also expire after a TTL.
type TTLCache struct {
	lruCache *lru.Cache[string, CacheItem]
}

// NewTTLCache creates a cache holding at most size entries.
func NewTTLCache(size int) (*TTLCache, error) {
	l, err := lru.New[string, CacheItem](size)
	if err != nil {
		return nil, err
	}
	return &TTLCache{lruCache: l}, nil
}

// Set stores data under key until ttl elapses.
func (c *TTLCache) Set(key string, data interface{}, ttl time.Duration) {
	c.lruCache.Add(key, CacheItem{
		Data:      data,
		ExpiresAt: time.Now().Add(ttl),
	})
}

// Get returns the cached value, or nil if missing or expired.
func (c *TTLCache) Get(key string) interface{} {
	val, ok := c.lruCache.Get(key)
	if !ok {
		return nil
	}

	if time.Now().After(val.ExpiresAt) {
		c.lruCache.Remove(key)
		return nil
	}

	return val.Data
}

// DeletePrefix removes every key starting with prefix and returns how many were removed.
func (c *TTLCache) DeletePrefix(prefix string) int {
	removed := 0
	for _, key := range c.lruCache.Keys() {
		if strings.HasPrefix(key, prefix) && c.lruCache.Remove(key) {
			removed++
		}
	}
	return removed
}

func (c *TTLCache) Len() int {
	return c.lruCache.Len()
}
