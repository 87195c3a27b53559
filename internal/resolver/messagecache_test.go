package resolver

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestMessageCachePutGet(t *testing.T) {
	c := NewMessageCache(16)
	c.Put("example.com.", 1, 1, &MessageEntry{Rcode: 0, Expires: time.Now().Add(time.Hour)})

	got := c.Get("example.com.", 1, 1)
	require.NotNil(t, got)
	require.Equal(t, 0, got.Rcode)
}

func TestMessageCacheDistinguishesType(t *testing.T) {
	c := NewMessageCache(16)
	c.Put("example.com.", 1, 1, &MessageEntry{Expires: time.Now().Add(time.Hour)})

	require.Nil(t, c.Get("example.com.", 28, 1))
}

func TestMessageCacheFlushNameTouchesAllTypes(t *testing.T) {
	c := NewMessageCache(16)
	now := time.Now()
	c.clock = func() time.Time { return now }
	c.Put("example.com.", 1, 1, &MessageEntry{Expires: now.Add(time.Hour)})
	c.Put("example.com.", 28, 1, &MessageEntry{Expires: now.Add(time.Hour)})
	c.Put("other.com.", 1, 1, &MessageEntry{Expires: now.Add(time.Hour)})

	n := c.FlushName("example.com.")
	require.Equal(t, 2, n)
	require.NotNil(t, c.Get("other.com.", 1, 1))
}

func TestMessageCacheFlushZone(t *testing.T) {
	c := NewMessageCache(16)
	now := time.Now()
	c.clock = func() time.Time { return now }
	c.Put("www.example.com.", 1, 1, &MessageEntry{Expires: now.Add(time.Hour)})
	c.Put("other.net.", 1, 1, &MessageEntry{Expires: now.Add(time.Hour)})

	n := c.FlushZone("example.com.")
	require.Equal(t, 1, n)
	require.NotNil(t, c.Get("other.net.", 1, 1))
}

func TestMessageCacheFlushNegativeTouchesOnlyNegativeAnswers(t *testing.T) {
	c := NewMessageCache(16)
	now := time.Now()
	c.clock = func() time.Time { return now }
	c.Put("nxdomain.example.", 1, 1, &MessageEntry{Rcode: 3, Expires: now.Add(time.Hour)})
	c.Put("empty.example.", 1, 1, &MessageEntry{AnswerEmpty: true, Expires: now.Add(time.Hour)})
	c.Put("ok.example.", 1, 1, &MessageEntry{Rcode: 0, Expires: now.Add(time.Hour)})

	n := c.FlushNegative()
	require.Equal(t, 2, n)
	require.NotNil(t, c.Get("ok.example.", 1, 1))
}
