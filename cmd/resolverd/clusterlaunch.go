package main

import (
	"context"
	"log/slog"

	"github.com/talvera/resolverd/internal/clusterlock"
	"github.com/talvera/resolverd/internal/fastreload"
	"github.com/talvera/resolverd/internal/ipc"
	"github.com/talvera/resolverd/internal/printq"
	"github.com/talvera/resolverd/internal/rc/dispatch"
)

// lockKey is the cluster-wide mutex name every resolverd instance in
// a deployment contends for before running a fast reload, so two
// instances never rebuild and publish zone state at the same time.
const lockKey = "resolverd:fast_reload"

// clusterLockLauncher wraps a FastReloadLauncher with a cluster-wide
// mutex: it acquires the lock before the inner launcher starts the
// background thread and holds it until that thread reaches a terminal
// notification, forwarding every notification to the caller on a
// fresh endpoint so it remains the sole consumer of the inner one.
// Falls back to running unlocked (with a warning) if the lock cannot
// be acquired, since a missed reload is worse than an unsynchronized
// one for a single node.
type clusterLockLauncher struct {
	inner  dispatch.FastReloadLauncher
	mgr    *clusterlock.Manager
	logger *slog.Logger
}

func newClusterLockLauncher(inner dispatch.FastReloadLauncher, mgr *clusterlock.Manager, logger *slog.Logger) *clusterLockLauncher {
	return &clusterLockLauncher{inner: inner, mgr: mgr, logger: logger}
}

func (l *clusterLockLauncher) Launch(ctx context.Context, pq *printq.Queue, opts fastreload.Options) *ipc.Endpoint {
	lock, err := l.mgr.Acquire(ctx, lockKey)
	if err != nil {
		l.logger.Warn("cluster lock: proceeding without it", "error", err)
		return l.inner.Launch(ctx, pq, opts)
	}

	caller, relay := ipc.NewCommpair()
	inner := l.inner.Launch(ctx, pq, opts)

	go func() {
		defer func() { _ = lock.Release(context.Background()) }()
		for {
			n, err := inner.Recv(ctx, nil)
			if err != nil {
				_ = relay.Send(context.Background(), ipc.NotifyDoneError, nil)
				return
			}
			_ = relay.Send(context.Background(), n, nil)
			switch n {
			case ipc.NotifyDone, ipc.NotifyDoneError, ipc.NotifyExited:
				return
			}
		}
	}()

	return caller
}
