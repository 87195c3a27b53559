package handlers

import (
	"context"
	"time"

	"github.com/talvera/resolverd/internal/fastreload"
	"github.com/talvera/resolverd/internal/ipc"
	"github.com/talvera/resolverd/internal/printq"
	"github.com/talvera/resolverd/internal/rc/dispatch"
)

// FastReload parses the "[+vpd]*" option grammar, transfers the
// session's connection to a printq, and launches the background
// rebuild. The handler returns immediately with no response lines:
// the session is now Moved, and a background goroutine streams the
// reload's output directly to the transferred connection as it
// arrives, per spec.md §4.4/§4.7.
func FastReload(ctx context.Context, env *dispatch.Env) (*dispatch.Result, error) {
	opts, err := fastreload.ParseOptions(env.Args)
	if err != nil {
		return nil, err
	}

	conn := env.Session.IntoPrintQ()
	pq := printq.New(conn)
	ep := env.Launcher.Launch(ctx, pq, opts)

	go streamFastReload(context.Background(), env, pq, ep, opts)
	return &dispatch.Result{}, nil
}

func reloadMode(opts fastreload.Options) string {
	if opts.NoPause {
		return "no_pause"
	}
	return "paused"
}

// streamFastReload polls the notification endpoint and drains the
// printq on every NotifyPrintout, so output reaches the client as
// the background thread produces it rather than all at once at the
// end, per spec.md §4.7's production/consumption split.
func streamFastReload(ctx context.Context, env *dispatch.Env, pq *printq.Queue, ep *ipc.Endpoint, opts fastreload.Options) {
	start := time.Now()
	for {
		n, err := ep.Recv(ctx, nil)
		if err != nil {
			if env.Logger != nil {
				env.Logger.Warn("fast_reload: notification recv failed", "error", err)
			}
			_ = pq.Drain()
			return
		}

		switch n {
		case ipc.NotifyPrintout:
			_ = pq.Drain()
		case ipc.NotifyDone, ipc.NotifyDoneError, ipc.NotifyExited:
			_ = pq.Drain()
			outcome := "ok"
			if n != ipc.NotifyDone {
				outcome = "error"
			}
			if env.Metrics != nil {
				env.Metrics.RecordReload(reloadMode(opts), outcome, time.Since(start).Seconds())
			}
			if pq.Empty() {
				_ = pq.Close()
			} else if env.Orphans != nil {
				env.Orphans.Add(pq)
			} else {
				pq.MarkOrphaned()
			}
			return
		}
	}
}
