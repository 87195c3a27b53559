package resolver

import (
	"sync"
	"time"

	lru "github.com/hashicorp/golang-lru/v2"
)

// HostInfo is what the infrastructure cache remembers about one
// upstream nameserver IP: its last measured round-trip time and
// whether it is currently marked unreachable (lame/EDNS-broken).
type HostInfo struct {
	RTT     time.Duration
	Lame    bool
	Expires time.Time
}

func (h HostInfo) expired(now time.Time) bool { return !h.Expires.After(now) }

// InfraCache is the control-channel-visible surface of the
// resolver's per-host infrastructure cache, keyed by host address.
type InfraCache struct {
	mu    sync.RWMutex
	cache *lru.Cache[string, *HostInfo]
	clock Clock
}

// NewInfraCache builds a cache holding up to capacity entries.
func NewInfraCache(capacity int) *InfraCache {
	c, _ := lru.New[string, *HostInfo](capacity)
	return &InfraCache{cache: c, clock: defaultClock}
}

// Put inserts or replaces the entry for host.
func (c *InfraCache) Put(host string, info *HostInfo) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.cache.Add(host, info)
}

// Get returns the entry for host, or nil if absent or expired.
func (c *InfraCache) Get(host string) *HostInfo {
	c.mu.RLock()
	defer c.mu.RUnlock()
	h, ok := c.cache.Get(host)
	if !ok || h.expired(c.clock()) {
		return nil
	}
	return h
}

// Len returns the number of entries currently tracked.
func (c *InfraCache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.cache.Len()
}

// FlushHost lowers the TTL of the entry for host, if any. Returns
// true if an entry was found.
func (c *InfraCache) FlushHost(host string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	h, ok := c.cache.Peek(host)
	if !ok {
		return false
	}
	h.Expires = lowerTo(c.clock())
	return true
}

// FlushAll lowers the TTL of every entry. Returns the count touched.
func (c *InfraCache) FlushAll() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	lowered := lowerTo(c.clock())
	keys := c.cache.Keys()
	for _, key := range keys {
		if h, ok := c.cache.Peek(key); ok {
			h.Expires = lowered
		}
	}
	return len(keys)
}
