package handlers

import (
	"context"
	"fmt"
	"strings"

	"github.com/talvera/resolverd/internal/rc/dispatch"
)

// RPZEnable turns application of a configured response-policy zone
// back on.
func RPZEnable(ctx context.Context, env *dispatch.Env) (*dispatch.Result, error) {
	zone := strings.TrimSpace(env.Args)
	if zone == "" {
		return nil, fmt.Errorf("rpz_enable: zone name required")
	}
	if !env.Collab.RPZ.Enable(zone) {
		return nil, fmt.Errorf("no rpz zone named %q", zone)
	}
	return dispatch.OK(), nil
}

// RPZDisable suspends application of a configured response-policy
// zone without removing its configuration.
func RPZDisable(ctx context.Context, env *dispatch.Env) (*dispatch.Result, error) {
	zone := strings.TrimSpace(env.Args)
	if zone == "" {
		return nil, fmt.Errorf("rpz_disable: zone name required")
	}
	if !env.Collab.RPZ.Disable(zone) {
		return nil, fmt.Errorf("no rpz zone named %q", zone)
	}
	return dispatch.OK(), nil
}
