package handlers

import (
	"context"
	"fmt"
	"strings"

	"github.com/talvera/resolverd/internal/rc/dispatch"
)

func parseOnOff(arg string) (bool, error) {
	switch strings.ToLower(strings.TrimSpace(arg)) {
	case "on", "1", "true":
		return true, nil
	case "off", "0", "false":
		return false, nil
	default:
		return false, fmt.Errorf("expected on/off, got %q", arg)
	}
}

// RatelimitList reports the global token-bucket's current state.
func RatelimitList(ctx context.Context, env *dispatch.Env) (*dispatch.Result, error) {
	entries := env.RateLimiters.ListGlobal()
	lines := make([]string, 0, len(entries))
	for _, e := range entries {
		lines = append(lines, fmt.Sprintf("%s tokens=%.2f limit=%.2f burst=%d", e.Key, e.Tokens, e.Limit, e.Burst))
	}
	if len(lines) == 0 {
		lines = append(lines, "ratelimit disabled")
	}
	return dispatch.Lines(lines...), nil
}

// IPRatelimitList reports every per-IP token bucket seen so far.
func IPRatelimitList(ctx context.Context, env *dispatch.Env) (*dispatch.Result, error) {
	entries := env.RateLimiters.ListIP()
	lines := make([]string, 0, len(entries))
	for _, e := range entries {
		lines = append(lines, fmt.Sprintf("%s tokens=%.2f limit=%.2f burst=%d", e.Key, e.Tokens, e.Limit, e.Burst))
	}
	return dispatch.Lines(lines...), nil
}

// RatelimitBackoff toggles the global ratelimit_backoff throttle.
func RatelimitBackoff(ctx context.Context, env *dispatch.Env) (*dispatch.Result, error) {
	on, err := parseOnOff(env.Args)
	if err != nil {
		return nil, err
	}
	env.RateLimiters.SetGlobalBackoff(on)
	return dispatch.OK(), nil
}

// IPRatelimitBackoff toggles the per-IP ratelimit_backoff throttle.
func IPRatelimitBackoff(ctx context.Context, env *dispatch.Env) (*dispatch.Result, error) {
	on, err := parseOnOff(env.Args)
	if err != nil {
		return nil, err
	}
	env.RateLimiters.SetIPBackoff(on)
	return dispatch.OK(), nil
}
