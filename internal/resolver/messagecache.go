package resolver

import (
	"strconv"
	"strings"
	"sync"
	"time"

	lru "github.com/hashicorp/golang-lru/v2"
)

// MessageEntry is a cached answer to one (qname, qtype, qclass)
// query, tracked separately from the RRset cache because a message
// can be a negative answer, a referral, or a composed answer built
// from several RRsets.
type MessageEntry struct {
	Rcode       int
	AnswerEmpty bool
	Expires     time.Time
}

func (m MessageEntry) expired(now time.Time) bool { return !m.Expires.After(now) }

// MessageCache is the control-channel-visible surface of the
// resolver's message cache.
type MessageCache struct {
	mu    sync.RWMutex
	cache *lru.Cache[string, *MessageEntry]
	clock Clock
}

// NewMessageCache builds a cache holding up to capacity entries.
func NewMessageCache(capacity int) *MessageCache {
	c, _ := lru.New[string, *MessageEntry](capacity)
	return &MessageCache{cache: c, clock: defaultClock}
}

func messageKey(qname string, qtype, qclass uint16) string {
	return strings.ToLower(qname) + "/" + strconv.Itoa(int(qtype)) + "/" + strconv.Itoa(int(qclass))
}

// Put inserts or replaces a cache entry.
func (c *MessageCache) Put(qname string, qtype, qclass uint16, e *MessageEntry) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.cache.Add(messageKey(qname, qtype, qclass), e)
}

// Get returns the entry for the query tuple, or nil if absent or
// expired.
func (c *MessageCache) Get(qname string, qtype, qclass uint16) *MessageEntry {
	c.mu.RLock()
	defer c.mu.RUnlock()
	e, ok := c.cache.Get(messageKey(qname, qtype, qclass))
	if !ok || e.expired(c.clock()) {
		return nil
	}
	return e
}

// Len returns the number of entries currently tracked.
func (c *MessageCache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.cache.Len()
}

// FlushName lowers the TTL of every cached message for qname,
// regardless of type or class.
func (c *MessageCache) FlushName(qname string) int {
	qname = strings.ToLower(qname)
	c.mu.Lock()
	defer c.mu.Unlock()

	lowered := lowerTo(c.clock())
	count := 0
	for _, key := range c.cache.Keys() {
		if !strings.HasPrefix(key, qname+"/") {
			continue
		}
		e, ok := c.cache.Peek(key)
		if !ok {
			continue
		}
		e.Expires = lowered
		count++
	}
	return count
}

// FlushAll lowers the TTL of every cached message.
func (c *MessageCache) FlushAll() int {
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

// FlushNegative lowers the TTL of every cached message that is a
// negative or non-NOERROR answer, per spec.md §4.3's flush_negative
// algorithm for the message cache.
func (c *MessageCache) FlushNegative() int {
	c.mu.Lock()
	defer c.mu.Unlock()

	lowered := lowerTo(c.clock())
	count := 0
	for _, key := range c.cache.Keys() {
		e, ok := c.cache.Peek(key)
		if !ok || (!e.AnswerEmpty && e.Rcode == 0) {
			continue
		}
		e.Expires = lowered
		count++
	}
	return count
}

// FlushZone lowers the TTL of every cached message whose qname is
// zone or a descendant of zone.
func (c *MessageCache) FlushZone(zone string) int {
	zone = strings.ToLower(strings.TrimSuffix(zone, "."))
	c.mu.Lock()
	defer c.mu.Unlock()

	lowered := lowerTo(c.clock())
	count := 0
	for _, key := range c.cache.Keys() {
		parts := strings.SplitN(key, "/", 2)
		if len(parts) != 2 || !isSubdomain(parts[0], zone) {
			continue
		}
		e, ok := c.cache.Peek(key)
		if !ok {
			continue
		}
		e.Expires = lowered
		count++
	}
	return count
}
