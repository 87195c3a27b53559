// Package handlers implements the command verbs spec.md §4.2 and
// SPEC_FULL.md §6 name, wired into a dispatch.Table by Build.
package handlers

import (
	"context"

	"github.com/talvera/resolverd/internal/rc/dispatch"
)

// Stop sets the daemon's exit flag and asks the event loop to
// terminate. The actual process teardown lives in cmd/resolverd;
// this handler only requests it.
func Stop(ctx context.Context, env *dispatch.Env) (*dispatch.Result, error) {
	if env.Lifecycle != nil {
		env.Lifecycle.Stop()
	}
	return dispatch.OK(), nil
}

// Reload requests an event-loop restart, optionally retaining caches
// when invoked as reload_keep_cache.
func Reload(keepCache bool) dispatch.HandlerFunc {
	return func(ctx context.Context, env *dispatch.Env) (*dispatch.Result, error) {
		if env.Lifecycle != nil {
			env.Lifecycle.Reload(keepCache)
		}
		return dispatch.OK(), nil
	}
}
