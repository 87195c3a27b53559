package resolver

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestRRsetCachePutGet(t *testing.T) {
	c := NewRRsetCache(16)
	c.Put(&RRSet{Owner: "example.com.", Type: 1, Expires: time.Now().Add(time.Hour)})

	got := c.Get("EXAMPLE.COM.", 1)
	require.NotNil(t, got)
	require.Equal(t, 1, c.Len())
}

func TestRRsetCacheGetExpiredReturnsNil(t *testing.T) {
	c := NewRRsetCache(16)
	now := time.Now()
	c.clock = func() time.Time { return now }
	c.Put(&RRSet{Owner: "example.com.", Type: 1, Expires: now.Add(-time.Second)})

	require.Nil(t, c.Get("example.com.", 1))
}

func TestRRsetCacheFlushNameLowersTTL(t *testing.T) {
	c := NewRRsetCache(16)
	now := time.Now()
	c.clock = func() time.Time { return now }
	c.Put(&RRSet{Owner: "www.example.com.", Type: 1, Expires: now.Add(time.Hour)})
	c.Put(&RRSet{Owner: "other.example.com.", Type: 1, Expires: now.Add(time.Hour)})

	n := c.FlushName("www.example.com.")
	require.Equal(t, 1, n)
	require.Nil(t, c.Get("www.example.com.", 1))
	require.NotNil(t, c.Get("other.example.com.", 1))
}

func TestRRsetCacheFlushZoneCoversDescendants(t *testing.T) {
	c := NewRRsetCache(16)
	now := time.Now()
	c.clock = func() time.Time { return now }
	c.Put(&RRSet{Owner: "example.com.", Type: 1, Expires: now.Add(time.Hour)})
	c.Put(&RRSet{Owner: "www.example.com.", Type: 1, Expires: now.Add(time.Hour)})
	c.Put(&RRSet{Owner: "other.net.", Type: 1, Expires: now.Add(time.Hour)})

	n := c.FlushZone("example.com.")
	require.Equal(t, 2, n)
	require.NotNil(t, c.Get("other.net.", 1))
}

func TestRRsetCacheFlushBogusOnlyTouchesBogus(t *testing.T) {
	c := NewRRsetCache(16)
	now := time.Now()
	c.clock = func() time.Time { return now }
	c.Put(&RRSet{Owner: "a.example.", Type: 1, Security: SecurityBogus, Expires: now.Add(time.Hour)})
	c.Put(&RRSet{Owner: "b.example.", Type: 1, Security: SecuritySecure, Expires: now.Add(time.Hour)})

	require.Equal(t, 1, c.FlushBogus())
	require.NotNil(t, c.Get("b.example.", 1))
}

func TestRRsetCacheEntriesSnapshot(t *testing.T) {
	c := NewRRsetCache(16)
	c.Put(&RRSet{Owner: "a.example.", Type: 1, Expires: time.Now().Add(time.Hour)})
	c.Put(&RRSet{Owner: "b.example.", Type: 28, Expires: time.Now().Add(time.Hour)})

	require.Len(t, c.Entries(), 2)
}

func TestSecurityStatusString(t *testing.T) {
	require.Equal(t, "secure", SecuritySecure.String())
	require.Equal(t, "bogus", SecurityBogus.String())
	require.Equal(t, "unchecked", SecurityUnchecked.String())
}
