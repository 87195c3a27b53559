package handlers

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"
	"time"

	"github.com/talvera/resolverd/internal/rc/dispatch"
)

// Status emits the one-line diagnostic header spec.md §4.2 names.
func Status(ctx context.Context, env *dispatch.Env) (*dispatch.Result, error) {
	uptime := time.Duration(0)
	if !env.StartedAt.IsZero() {
		uptime = time.Since(env.StartedAt).Round(time.Second)
	}
	version := "unknown"
	source := ""
	if env.ConfigService != nil {
		version = env.ConfigService.GetConfigVersion()
		source = string(env.ConfigService.GetConfigSource())
	}
	return dispatch.Lines(fmt.Sprintf(
		"resolverd is running (uptime %s, config version %s, source %s)",
		uptime, version, source,
	)), nil
}

// Stats emits the key=value statistics block stats and stats_noreset
// both produce; this daemon has no separate reset-on-read counters,
// so the two verbs share one handler.
func Stats(ctx context.Context, env *dispatch.Env) (*dispatch.Result, error) {
	lines := []string{}
	if env.Metrics != nil {
		snap := env.Metrics.Snapshot()
		lines = append(lines,
			fmt.Sprintf("total.sessions_accepted=%d", int64(snap.SessionsAccepted)),
			fmt.Sprintf("total.sessions_rejected=%d", int64(snap.SessionsRejected)),
			fmt.Sprintf("total.sessions_active=%d", int64(snap.SessionsActive)),
			fmt.Sprintf("total.commands=%d", int64(snap.CommandsTotal)),
		)
	}
	if env.Collab != nil {
		lines = append(lines,
			fmt.Sprintf("cache.rrset.entries=%d", env.Collab.RRsets.Len()),
			fmt.Sprintf("cache.message.entries=%d", env.Collab.Messages.Len()),
			fmt.Sprintf("cache.infra.entries=%d", env.Collab.Infra.Len()),
			fmt.Sprintf("cache.key.entries=%d", env.Collab.Keys.Len()),
			fmt.Sprintf("mesh.in_flight=%d", env.Collab.Mesh.Total()),
		)
	}
	return dispatch.Lines(lines...), nil
}

// FlushStats reports the current counters and resets them, the
// "always distribute" counterpart to Stats: every worker's own
// metrics are zeroed against the same baseline so a subsequent
// stats_noreset starts counting from this point on every worker.
func FlushStats(ctx context.Context, env *dispatch.Env) (*dispatch.Result, error) {
	if env.Metrics == nil {
		return dispatch.OK(), nil
	}
	snap := env.Metrics.Snapshot()
	env.Metrics.ResetBaseline()
	return dispatch.Lines(fmt.Sprintf(
		"ok reset total.sessions_accepted=%d total.sessions_rejected=%d total.commands=%d",
		int64(snap.SessionsAccepted), int64(snap.SessionsRejected), int64(snap.CommandsTotal),
	)), nil
}

// PrintExtState emits the extended per-subsystem state block
// (SPEC_FULL.md §6's print_ext_state/ext_state supplement), a finer
// breakdown than Stats of the same underlying counters.
func PrintExtState(ctx context.Context, env *dispatch.Env) (*dispatch.Result, error) {
	if env.Collab == nil {
		return dispatch.Lines("ext_state.caches=unavailable"), nil
	}
	return dispatch.Lines(
		fmt.Sprintf("ext_state.views=%d", env.Collab.Views.Len()),
		fmt.Sprintf("ext_state.forwards=%d", env.Collab.Forwards.Len()),
		fmt.Sprintf("ext_state.stubs=%d", env.Collab.Stubs.Len()),
		fmt.Sprintf("ext_state.locals=%d", env.Collab.Locals.Len()),
		fmt.Sprintf("ext_state.rpz_zones=%d", len(env.Collab.RPZ.Zones())),
	), nil
}

// verbosityLevels maps the operator's integer verbosity argument to a
// slog.Level, the same coarse 0..4 scale the original's -v flag uses.
var verbosityLevels = []slog.Level{
	slog.LevelError,
	slog.LevelWarn,
	slog.LevelInfo,
	slog.LevelDebug,
	slog.LevelDebug,
}

// Verbosity sets the daemon's live log level from an integer argument.
func Verbosity(ctx context.Context, env *dispatch.Env) (*dispatch.Result, error) {
	n, err := strconv.Atoi(env.Args)
	if err != nil {
		return nil, fmt.Errorf("invalid verbosity %q", env.Args)
	}
	if n < 0 {
		n = 0
	}
	if n >= len(verbosityLevels) {
		n = len(verbosityLevels) - 1
	}
	if env.LevelVar == nil {
		return nil, fmt.Errorf("verbosity: no adjustable log level configured")
	}
	env.LevelVar.Set(verbosityLevels[n])
	return dispatch.OK(), nil
}
