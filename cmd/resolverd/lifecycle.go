package main

import (
	"context"
	"log/slog"

	"github.com/talvera/resolverd/internal/config"
	"github.com/talvera/resolverd/internal/resolver"
)

// daemonLifecycle implements dispatch.Lifecycle: the stop and reload
// control commands reach the running daemon through this, rather than
// by holding a direct reference to main's own state.
type daemonLifecycle struct {
	logger  *slog.Logger
	collab  *resolver.Collaborators
	cfgPath string
	cancel  context.CancelFunc
}

func newDaemonLifecycle(logger *slog.Logger, collab *resolver.Collaborators, cfgPath string, cancel context.CancelFunc) *daemonLifecycle {
	return &daemonLifecycle{
		logger:  logger,
		collab:  collab,
		cfgPath: cfgPath,
		cancel:  cancel,
	}
}

// Stop requests the daemon's main loop to shut down.
func (l *daemonLifecycle) Stop() {
	l.logger.Info("stop requested over control channel")
	l.cancel()
}

// Reload re-reads the config file and re-seeds the zone trees from it
// synchronously — the plain "reload"/"reload_keep_cache" commands,
// distinct from fast_reload's backgrounded, streamed rebuild. keepCache
// false additionally flushes every cache before the new zone data is
// applied.
func (l *daemonLifecycle) Reload(keepCache bool) {
	if !keepCache {
		l.collab.FlushAll()
	}

	cfg, err := config.LoadConfig(l.cfgPath)
	if err != nil {
		l.logger.Error("reload: failed to load config, keeping previous zone state", "error", err)
		return
	}
	reseedCollaborators(l.collab, cfg)
	l.logger.Info("reload completed", "keep_cache", keepCache)
}
