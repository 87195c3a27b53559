package resolver

import (
	"strings"
	"sync"
	"time"

	lru "github.com/hashicorp/golang-lru/v2"
)

// KeyEntry is what the DNSKEY cache remembers about one zone's
// validated key set.
type KeyEntry struct {
	Bad     bool
	Expires time.Time
}

func (k KeyEntry) expired(now time.Time) bool { return !k.Expires.After(now) }

// KeyCache is the control-channel-visible surface of the resolver's
// DNSKEY cache, keyed by zone name.
type KeyCache struct {
	mu    sync.RWMutex
	cache *lru.Cache[string, *KeyEntry]
	clock Clock
}

// NewKeyCache builds a cache holding up to capacity entries.
func NewKeyCache(capacity int) *KeyCache {
	c, _ := lru.New[string, *KeyEntry](capacity)
	return &KeyCache{cache: c, clock: defaultClock}
}

// Put inserts or replaces the entry for zone.
func (c *KeyCache) Put(zone string, e *KeyEntry) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.cache.Add(strings.ToLower(zone), e)
}

// Get returns the entry for zone, or nil if absent or expired.
func (c *KeyCache) Get(zone string) *KeyEntry {
	c.mu.RLock()
	defer c.mu.RUnlock()
	e, ok := c.cache.Get(strings.ToLower(zone))
	if !ok || e.expired(c.clock()) {
		return nil
	}
	return e
}

// Len returns the number of entries currently tracked.
func (c *KeyCache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.cache.Len()
}

// FlushAll lowers the TTL of every entry.
func (c *KeyCache) FlushAll() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	lowered := lowerTo(c.clock())
	keys := c.cache.Keys()
	for _, key := range keys {
		if e, ok := c.cache.Peek(key); ok {
			e.Expires = lowered
		}
	}
	return len(keys)
}

// FlushBad lowers the TTL of every entry in a "bad" validation state,
// per spec.md §4.3's flush_negative algorithm for the key cache.
func (c *KeyCache) FlushBad() int {
	c.mu.Lock()
	defer c.mu.Unlock()

	lowered := lowerTo(c.clock())
	count := 0
	for _, key := range c.cache.Keys() {
		e, ok := c.cache.Peek(key)
		if !ok || !e.Bad {
			continue
		}
		e.Expires = lowered
		count++
	}
	return count
}

// FlushZone lowers the TTL of the entry for zone and every entry
// below it. Returns the count touched.
func (c *KeyCache) FlushZone(zone string) int {
	zone = strings.ToLower(strings.TrimSuffix(zone, "."))
	c.mu.Lock()
	defer c.mu.Unlock()

	lowered := lowerTo(c.clock())
	count := 0
	for _, key := range c.cache.Keys() {
		if !isSubdomain(key, zone) {
			continue
		}
		if e, ok := c.cache.Peek(key); ok {
			e.Expires = lowered
			count++
		}
	}
	return count
}
