// Package cache provides a small concurrent in-memory map with optional
// per-item expiry. It backs the step output store and the per-host request
// limiter, which expires idle hosts; the on-disk HTTP cache lives in
// httpcache.
package cache

import (
	"sync"
	"sync/atomic"
	"time"
)

type cacheItem[V any] struct {
	value     V
	expiresAt int64 // UnixNano, 0 means no expiration
}

func (item *cacheItem[V]) expired(now int64) bool {
	return item.expiresAt != 0 && now > item.expiresAt
}

// Cache is a thread-safe, generic cache with TTL support.
type Cache[K comparable, V any] struct {
	store           sync.Map
	janitorInterval time.Duration
	janitorOnce     sync.Once
	stopOnce        sync.Once
	stopJanitorCh   chan struct{}
	itemCount       atomic.Int64
}

// Option is a functional option type for Cache configuration.
type Option[K comparable, V any] func(*Cache[K, V])

// WithJanitorInterval enables a background sweep of expired items. The
// janitor starts with the first item stored with a TTL.
func WithJanitorInterval[K comparable, V any](interval time.Duration) Option[K, V] {
	return func(c *Cache[K, V]) {
		c.janitorInterval = interval
	}
}

// NewCache creates a new Cache instance with optional configurations.
func NewCache[K comparable, V any](opts ...Option[K, V]) *Cache[K, V] {
	c := &Cache[K, V]{stopJanitorCh: make(chan struct{})}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

func (c *Cache[K, V]) startJanitor() {
	if c.janitorInterval <= 0 {
		return
	}
	c.janitorOnce.Do(func() {
		ticker := time.NewTicker(c.janitorInterval)
		go func() {
			defer ticker.Stop()
			for {
				select {
				case <-ticker.C:
					c.DeleteExpired()
				case <-c.stopJanitorCh:
					return
				}
			}
		}()
	})
}

// Set stores v under k without expiry.
func (c *Cache[K, V]) Set(k K, v V) {
	c.SetWithTTL(k, v, 0)
}

// SetWithTTL stores v under k. A zero ttl never expires; a negative ttl
// removes the key.
func (c *Cache[K, V]) SetWithTTL(k K, v V, ttl time.Duration) {
	if ttl < 0 {
		c.Delete(k)
		return
	}
	item := &cacheItem[V]{value: v}
	if ttl > 0 {
		item.expiresAt = time.Now().Add(ttl).UnixNano()
		c.startJanitor()
	}
	if _, loaded := c.store.Swap(k, item); !loaded {
		c.itemCount.Add(1)
	}
}

// Get returns the live value for k.
func (c *Cache[K, V]) Get(k K) (V, bool) {
	var zero V
	loaded, ok := c.store.Load(k)
	if !ok {
		return zero, false
	}
	item := loaded.(*cacheItem[V])
	if item.expired(time.Now().UnixNano()) {
		if c.store.CompareAndDelete(k, item) {
			c.itemCount.Add(-1)
		}
		return zero, false
	}
	return item.value, true
}

// Delete removes an item from the cache.
func (c *Cache[K, V]) Delete(k K) {
	if _, loaded := c.store.LoadAndDelete(k); loaded {
		c.itemCount.Add(-1)
	}
}

// DeleteExpired drops every expired item. The janitor calls it periodically.
func (c *Cache[K, V]) DeleteExpired() {
	now := time.Now().UnixNano()
	c.store.Range(func(key, value any) bool {
		item := value.(*cacheItem[V])
		if item.expired(now) && c.store.CompareAndDelete(key, item) {
			c.itemCount.Add(-1)
		}
		return true
	})
}

// Range calls f for every live item until f returns false. Order is not
// defined.
func (c *Cache[K, V]) Range(f func(key K, value V) bool) {
	now := time.Now().UnixNano()
	c.store.Range(func(key, value any) bool {
		item := value.(*cacheItem[V])
		if item.expired(now) {
			return true
		}
		return f(key.(K), item.value)
	})
}

// Keys returns the keys of all live items.
func (c *Cache[K, V]) Keys() []K {
	keys := make([]K, 0, c.Len())
	c.Range(func(k K, _ V) bool {
		keys = append(keys, k)
		return true
	})
	return keys
}

// Len counts stored items, including expired ones not yet swept.
func (c *Cache[K, V]) Len() int64 {
	return c.itemCount.Load()
}

// Close stops the janitor. It is safe to call more than once.
func (c *Cache[K, V]) Close() {
	c.stopOnce.Do(func() { close(c.stopJanitorCh) })
}
