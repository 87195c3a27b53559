// Package clusterlock provides an optional Redis-backed mutual
// exclusion lock so that a fleet of resolver daemons sharing the same
// upstream configuration store cannot run two fast-reload pipelines
// concurrently. The lock is taken per fast-reload launch; within one
// daemon, neither internal/fastreload nor the dispatch launcher stops
// a second fast_reload from starting while one is still running.
package clusterlock

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/redis/go-redis/v9"
)

// ErrNotHeld is returned by Release/Extend when the key no longer
// holds this Lock's token (it expired or another holder took it).
var ErrNotHeld = errors.New("clusterlock: lock not held")

const releaseScript = `
if redis.call("get", KEYS[1]) == ARGV[1] then
	return redis.call("del", KEYS[1])
else
	return 0
end
`

const extendScript = `
if redis.call("get", KEYS[1]) == ARGV[1] then
	return redis.call("expire", KEYS[1], ARGV[2])
else
	return 0
end
`

// Config controls lock timing.
type Config struct {
	TTL            time.Duration
	AcquireTimeout time.Duration
	RetryInterval  time.Duration
}

// DefaultConfig returns sane defaults: a 30s TTL (nothing in the
// daemon renews it, so a lock that is not released lapses after the
// TTL), a 5s acquire timeout (fast-reload should not block indefinitely waiting
// on a peer's reload to finish), and a 100ms retry interval.
func DefaultConfig() Config {
	return Config{
		TTL:            30 * time.Second,
		AcquireTimeout: 5 * time.Second,
		RetryInterval:  100 * time.Millisecond,
	}
}

// Lock is a single acquisition of a named cluster-wide mutex.
type Lock struct {
	client *redis.Client
	key    string
	token  string
	ttl    time.Duration
	logger *slog.Logger
}

// Manager hands out Locks scoped to a keyspace (e.g. "resolverd:reload:<cluster>").
type Manager struct {
	client *redis.Client
	cfg    Config
	logger *slog.Logger
}

// NewManager wraps an existing Redis client. Pass a client backed by
// miniredis in tests to exercise this package without a live server.
func NewManager(client *redis.Client, cfg Config, logger *slog.Logger) *Manager {
	if logger == nil {
		logger = slog.Default()
	}
	return &Manager{client: client, cfg: cfg, logger: logger}
}

// Acquire blocks (respecting ctx and cfg.AcquireTimeout) until the
// named lock is obtained, or returns an error. The returned Lock must
// be released by the caller.
func (m *Manager) Acquire(ctx context.Context, key string) (*Lock, error) {
	acquireCtx, cancel := context.WithTimeout(ctx, m.cfg.AcquireTimeout)
	defer cancel()

	token, err := randomToken()
	if err != nil {
		return nil, fmt.Errorf("clusterlock: generate token: %w", err)
	}

	for {
		ok, err := m.client.SetNX(acquireCtx, key, token, m.cfg.TTL).Result()
		if err != nil {
			return nil, fmt.Errorf("clusterlock: acquire %s: %w", key, err)
		}
		if ok {
			m.logger.Info("cluster lock acquired", "key", key)
			return &Lock{client: m.client, key: key, token: token, ttl: m.cfg.TTL, logger: m.logger}, nil
		}

		select {
		case <-acquireCtx.Done():
			return nil, fmt.Errorf("clusterlock: timed out acquiring %s: %w", key, acquireCtx.Err())
		case <-time.After(m.cfg.RetryInterval):
		}
	}
}

// Release drops the lock if still held by this token. Safe to call
// from a deferred statement even if Acquire failed partway.
func (l *Lock) Release(ctx context.Context) error {
	if l == nil {
		return nil
	}
	releaseCtx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()

	res, err := l.client.Eval(releaseCtx, releaseScript, []string{l.key}, l.token).Result()
	if err != nil {
		return fmt.Errorf("clusterlock: release %s: %w", l.key, err)
	}
	if n, _ := res.(int64); n == 0 {
		l.logger.Warn("cluster lock already expired or stolen", "key", l.key)
		return ErrNotHeld
	}
	l.logger.Info("cluster lock released", "key", l.key)
	return nil
}

// Extend renews the TTL while this token still holds the lock. The
// daemon's cluster-lock launcher does not call it; its lock lasts
// until Release or TTL expiry.
func (l *Lock) Extend(ctx context.Context, ttl time.Duration) error {
	extendCtx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()

	res, err := l.client.Eval(extendCtx, extendScript, []string{l.key}, l.token, int(ttl.Seconds())).Result()
	if err != nil {
		return fmt.Errorf("clusterlock: extend %s: %w", l.key, err)
	}
	if n, _ := res.(int64); n == 0 {
		return ErrNotHeld
	}
	l.ttl = ttl
	return nil
}

func randomToken() (string, error) {
	buf := make([]byte, 16)
	if _, err := rand.Read(buf); err != nil {
		return "", err
	}
	return hex.EncodeToString(buf), nil
}
