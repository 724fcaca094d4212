package cache

import (
	"sync"
	"time"
)

type entry[V any] struct {
	value     V
	expiresAt time.Time
}

// TTL is an in-memory cache whose entries expire a fixed time after they
// were stored.
type TTL[V any] struct {
	mu      sync.Mutex
	items   map[string]entry[V]
	ttl     time.Duration
	maxSize int
	now     func() time.Time
}

// NewTTL returns a cache holding at most maxSize entries. A maxSize of 0
// means unbounded.
func NewTTL[V any](ttl time.Duration, maxSize int) *TTL[V] {
	return &TTL[V]{
		items:   make(map[string]entry[V]),
		ttl:     ttl,
		maxSize: maxSize,
		now:     time.Now,
	}
}

func (c *TTL[V]) Get(key string) (V, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	var zero V
	e, ok := c.items[key]
	if !ok {
		return zero, false
	}
	if c.now().After(e.expiresAt) {
		delete(c.items, key)
		return zero, false
	}
	return e.value, true
}

func (c *TTL[V]) Set(key string, value V) {
	c.mu.Lock()
	defer c.mu.Unlock()

	now := c.now()
	if c.maxSize > 0 && len(c.items) >= c.maxSize {
		if _, exists := c.items[key]; !exists {
			c.evict(now)
		}
	}
	c.items[key] = entry[V]{value: value, expiresAt: now.Add(c.ttl)}
}

// evict drops expired entries, or the one closest to expiry when none have
// expired. Callers hold mu.
func (c *TTL[V]) evict(now time.Time) {
	var (
		oldestKey string
		oldestAt  time.Time
	)
	removed := false
	for k, e := range c.items {
		if now.After(e.expiresAt) {
			delete(c.items, k)
			removed = true
			continue
		}
		if oldestKey == "" || e.expiresAt.Before(oldestAt) {
			oldestKey, oldestAt = k, e.expiresAt
		}
	}
	if !removed && oldestKey != "" {
		delete(c.items, oldestKey)
	}
}

func (c *TTL[V]) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.items)
}

func (c *TTL[V]) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.items = make(map[string]entry[V])
}
