package resolver

import (
	"strconv"
	"strings"
	"sync"
	"time"

	lru "github.com/hashicorp/golang-lru/v2"
)

// RRSet is one cached resource record set: an owner name, a type, an
// expiry, and the DNSSEC status the validator assigned it. Negative
// marks a parent-side negative-caching entry (NSEC/NSEC3 "no data"
// marker): single empty-rdata RR, no signatures, per spec.md §4.3.
type RRSet struct {
	Owner      string
	Type       uint16
	Expires    time.Time
	Security   SecurityStatus
	Negative   bool
	RDataCount int
}

func (r RRSet) expired(now time.Time) bool { return !r.Expires.After(now) }

// RRsetCache is the control-channel-visible surface of the resolver's
// RRset cache: an LRU keyed by owner+type, with the flush semantics
// spec.md §4.3 requires (TTL lowering rather than eviction, so
// concurrent readers see the entry go invisible without a race on
// deletion).
type RRsetCache struct {
	mu    sync.RWMutex
	cache *lru.Cache[string, *RRSet]
	clock Clock
}

// NewRRsetCache builds a cache holding up to capacity entries.
func NewRRsetCache(capacity int) *RRsetCache {
	c, _ := lru.New[string, *RRSet](capacity)
	return &RRsetCache{cache: c, clock: defaultClock}
}

func rrsetKey(owner string, qtype uint16) string {
	return strings.ToLower(owner) + "/" + strconv.Itoa(int(qtype))
}

// Put inserts or replaces a cache entry.
func (c *RRsetCache) Put(r *RRSet) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.cache.Add(rrsetKey(r.Owner, r.Type), r)
}

// Get returns the entry for owner/type, or nil if absent or expired.
func (c *RRsetCache) Get(owner string, qtype uint16) *RRSet {
	c.mu.RLock()
	defer c.mu.RUnlock()
	r, ok := c.cache.Get(rrsetKey(owner, qtype))
	if !ok || r.expired(c.clock()) {
		return nil
	}
	return r
}

// Len returns the number of entries currently tracked (including
// entries whose TTL has already been lowered below now).
func (c *RRsetCache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.cache.Len()
}

// Entries returns a snapshot of every cached RRset, for dump_cache.
func (c *RRsetCache) Entries() []*RRSet {
	c.mu.RLock()
	defer c.mu.RUnlock()
	out := make([]*RRSet, 0, c.cache.Len())
	for _, key := range c.cache.Keys() {
		if r, ok := c.cache.Peek(key); ok {
			out = append(out, r)
		}
	}
	return out
}

// FlushName lowers the TTL of every type cached for exactly owner.
// Returns the count of entries touched.
func (c *RRsetCache) FlushName(owner string) int {
	return c.flushWhere(func(r *RRSet) bool {
		return strings.EqualFold(r.Owner, owner)
	})
}

// FlushZone lowers the TTL of every entry whose owner equals or is
// below zone (e.g. zone "example." matches "www.example." too).
func (c *RRsetCache) FlushZone(zone string) int {
	zone = strings.ToLower(strings.TrimSuffix(zone, "."))
	return c.flushWhere(func(r *RRSet) bool {
		return isSubdomain(r.Owner, zone)
	})
}

// FlushType lowers the TTL of every entry owned by name with the
// given qtype.
func (c *RRsetCache) FlushType(owner string, qtype uint16) int {
	return c.flushWhere(func(r *RRSet) bool {
		return strings.EqualFold(r.Owner, owner) && r.Type == qtype
	})
}

// FlushBogus lowers the TTL of every entry whose security status is
// bogus.
func (c *RRsetCache) FlushBogus() int {
	return c.flushWhere(func(r *RRSet) bool { return r.Security == SecurityBogus })
}

// FlushNegative lowers the TTL of every parent-side negative entry.
func (c *RRsetCache) FlushNegative() int {
	return c.flushWhere(func(r *RRSet) bool { return r.Negative })
}

// FlushAll lowers the TTL of every entry.
func (c *RRsetCache) FlushAll() int {
	return c.flushWhere(func(*RRSet) bool { return true })
}

func (c *RRsetCache) flushWhere(match func(*RRSet) bool) int {
	c.mu.Lock()
	defer c.mu.Unlock()

	now := c.clock()
	lowered := lowerTo(now)
	count := 0
	for _, key := range c.cache.Keys() {
		r, ok := c.cache.Peek(key)
		if !ok || !match(r) {
			continue
		}
		r.Expires = lowered
		count++
	}
	return count
}

// isSubdomain reports whether name is zone or a strict descendant of
// zone, both given without trailing dots and already lower-cased by
// the caller's normalization step where relevant.
func isSubdomain(name, zone string) bool {
	name = strings.ToLower(strings.TrimSuffix(name, "."))
	if name == zone {
		return true
	}
	return strings.HasSuffix(name, "."+zone)
}
