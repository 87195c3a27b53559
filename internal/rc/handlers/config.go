package handlers

import (
	"context"
	"fmt"
	"strings"

	"github.com/talvera/resolverd/internal/rc/dispatch"
)

// GetOption resolves a dotted configuration path against the live,
// sanitized config (SPEC_FULL.md §6's get_option supplement).
func GetOption(ctx context.Context, env *dispatch.Env) (*dispatch.Result, error) {
	path := strings.TrimSpace(env.Args)
	if path == "" {
		return nil, fmt.Errorf("get_option: option path required")
	}
	v, ok := env.ConfigService.GetOption(path)
	if !ok {
		return nil, fmt.Errorf("no such option %q", path)
	}
	return dispatch.Lines(fmt.Sprintf("%s=%v", path, v)), nil
}

// SetOption writes a runtime-mutable scalar option in place, paired
// with GetOption per SPEC_FULL.md §6.
func SetOption(ctx context.Context, env *dispatch.Env) (*dispatch.Result, error) {
	f := fields(env.Args)
	if len(f) != 2 {
		return nil, fmt.Errorf("set_option: expected 'path value', got %q", env.Args)
	}
	if err := env.ConfigService.SetOption(f[0], f[1]); err != nil {
		return nil, err
	}
	return dispatch.OK(), nil
}
