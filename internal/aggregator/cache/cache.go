// Package cache implements the aggregator's fingerprint-keyed result cache
// (spec §4.5 / §3's CacheEntry): bounded LRU storage via
// hashicorp/golang-lru, TTL-based expiry, and singleflight coalescing so
// concurrent misses for the same fingerprint produce exactly one upstream
// fetch.
package cache

import (
	"context"
	"time"

	lru "github.com/hashicorp/golang-lru/v2"
	"golang.org/x/sync/singleflight"
)

// Entry is a cached normalized result alongside its expiry.
type Entry struct {
	Value     any
	ExpiresAt time.Time
}

func (e Entry) expired(now time.Time) bool {
	return now.After(e.ExpiresAt)
}

// Cache bounds total entries and coalesces concurrent fetches for the same
// fingerprint.
type Cache struct {
	lru   *lru.Cache[string, Entry]
	group singleflight.Group
}

// New constructs a Cache holding at most maxEntries, evicting
// least-recently-used entries under pressure.
func New(maxEntries int) (*Cache, error) {
	if maxEntries < 1 {
		maxEntries = 1
	}
	l, err := lru.New[string, Entry](maxEntries)
	if err != nil {
		return nil, err
	}
	return &Cache{lru: l}, nil
}

// Get returns the cached value for fingerprint if present and unexpired.
// An expired entry is evicted lazily and reported as a miss.
func (c *Cache) Get(fingerprint string) (any, bool) {
	entry, ok := c.lru.Get(fingerprint)
	if !ok {
		return nil, false
	}
	if entry.expired(time.Now()) {
		c.lru.Remove(fingerprint)
		return nil, false
	}
	return entry.Value, true
}

// Set stores value under fingerprint with the given TTL.
func (c *Cache) Set(fingerprint string, value any, ttl time.Duration) {
	c.lru.Add(fingerprint, Entry{Value: value, ExpiresAt: time.Now().Add(ttl)})
}

// GetOrFetch returns the cached value for fingerprint if fresh; otherwise
// it calls fetch, coalescing concurrent callers for the same fingerprint
// into a single invocation, caches a successful result under ttl, and
// delivers the same result (or the same error) to every waiter.
func (c *Cache) GetOrFetch(ctx context.Context, fingerprint string, ttl time.Duration, fetch func(context.Context) (any, error)) (any, bool, error) {
	if v, ok := c.Get(fingerprint); ok {
		return v, true, nil
	}

	v, err, _ := c.group.Do(fingerprint, func() (any, error) {
		result, err := fetch(ctx)
		if err != nil {
			return nil, err
		}
		c.Set(fingerprint, result, ttl)
		return result, nil
	})
	if err != nil {
		return nil, false, err
	}
	return v, false, nil
}

// Len reports the current entry count, including not-yet-lazily-evicted
// expired entries.
func (c *Cache) Len() int {
	return c.lru.Len()
}
