package handlers

import (
	"context"
	"fmt"
	"strings"

	"github.com/talvera/resolverd/internal/rc/dispatch"
)

// InsecureAdd marks zone as a negative trust anchor, skipping DNSSEC
// validation under it. Tagged "always distribute" per spec.md §4.2.
func InsecureAdd(ctx context.Context, env *dispatch.Env) (*dispatch.Result, error) {
	zone := strings.TrimSpace(env.Args)
	if zone == "" {
		return nil, fmt.Errorf("insecure_add: zone name required")
	}
	env.Collab.Anchors.InsecureAdd(zone)
	return dispatch.OK(), nil
}

// InsecureRemove clears a zone's negative-trust-anchor marking.
func InsecureRemove(ctx context.Context, env *dispatch.Env) (*dispatch.Result, error) {
	zone := strings.TrimSpace(env.Args)
	if zone == "" {
		return nil, fmt.Errorf("insecure_remove: zone name required")
	}
	env.Collab.Anchors.InsecureRemove(zone)
	return dispatch.OK(), nil
}
