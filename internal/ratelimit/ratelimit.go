// Package ratelimit implements the global and per-IP query rate
// limiters whose state the control channel's ratelimit_list,
// ip_ratelimit_list, ratelimit_backoff, and ip_ratelimit_backoff
// commands report and tune (spec.md §1 names "rate-limit tables" as
// in-scope state; SPEC_FULL.md §6 supplements the specific verbs from
// the original remote.c).
package ratelimit

import (
	"net"
	"sync"

	"golang.org/x/time/rate"
)

// Config sets the global and per-IP token-bucket parameters.
type Config struct {
	QPS     int
	Burst   int
	IPQPS   int
	IPBurst int
}

// Registry holds the global limiter plus one limiter per peer IP seen
// so far, and the backoff toggles the control channel can flip.
type Registry struct {
	mu sync.Mutex

	cfg Config

	global        *rate.Limiter
	globalBackoff bool

	perIP     map[string]*rate.Limiter
	ipBackoff bool
}

// NewRegistry builds a Registry from cfg. A zero QPS/IPQPS disables
// the corresponding limiter (Allow always returns true), matching the
// resolver's "rate limiting off by default" posture.
func NewRegistry(cfg Config) *Registry {
	r := &Registry{cfg: cfg, perIP: make(map[string]*rate.Limiter)}
	if cfg.QPS > 0 {
		r.global = rate.NewLimiter(rate.Limit(cfg.QPS), burstOrDefault(cfg.Burst, cfg.QPS))
	}
	return r
}

func burstOrDefault(burst, qps int) int {
	if burst > 0 {
		return burst
	}
	return qps
}

// Allow reports whether a query from ip may proceed, consuming one
// token from the global and per-IP buckets. While global backoff is
// on, the global bucket is not consulted at all; the ip backoff toggle
// is only recorded and reported, and does not change what Allow
// decides.
func (r *Registry) Allow(ip net.IP) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.global != nil && !r.globalBackoff && !r.global.Allow() {
		return false
	}
	if r.cfg.IPQPS <= 0 || ip == nil {
		return true
	}

	key := ip.String()
	lim, ok := r.perIP[key]
	if !ok {
		lim = rate.NewLimiter(rate.Limit(r.cfg.IPQPS), burstOrDefault(r.cfg.IPBurst, r.cfg.IPQPS))
		r.perIP[key] = lim
	}
	return lim.Allow()
}

// SetGlobalBackoff toggles the global ratelimit_backoff state.
func (r *Registry) SetGlobalBackoff(on bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.globalBackoff = on
}

// SetIPBackoff toggles the ip_ratelimit_backoff state.
func (r *Registry) SetIPBackoff(on bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.ipBackoff = on
}

// GlobalBackoff reports the current ratelimit_backoff state.
func (r *Registry) GlobalBackoff() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.globalBackoff
}

// IPBackoff reports the current ip_ratelimit_backoff state.
func (r *Registry) IPBackoff() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.ipBackoff
}

// Entry is one line of a ratelimit_list/ip_ratelimit_list dump.
type Entry struct {
	Key    string
	Tokens float64
	Limit  float64
	Burst  int
}

// ListIP returns the current token state of every per-IP limiter seen
// so far, for the ip_ratelimit_list command.
func (r *Registry) ListIP() []Entry {
	r.mu.Lock()
	defer r.mu.Unlock()

	entries := make([]Entry, 0, len(r.perIP))
	for ip, lim := range r.perIP {
		entries = append(entries, Entry{
			Key:    ip,
			Tokens: lim.Tokens(),
			Limit:  float64(lim.Limit()),
			Burst:  lim.Burst(),
		})
	}
	return entries
}

// ListGlobal returns the global limiter's current state, for
// ratelimit_list. The slice has zero or one entry since there is only
// one global bucket.
func (r *Registry) ListGlobal() []Entry {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.global == nil {
		return nil
	}
	return []Entry{{
		Key:    "global",
		Tokens: r.global.Tokens(),
		Limit:  float64(r.global.Limit()),
		Burst:  r.global.Burst(),
	}}
}
