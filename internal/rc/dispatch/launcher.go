package dispatch

import (
	"context"
	"log/slog"
	"sync"

	"github.com/talvera/resolverd/internal/config"
	"github.com/talvera/resolverd/internal/fastreload"
	"github.com/talvera/resolverd/internal/ipc"
	"github.com/talvera/resolverd/internal/printq"
	"github.com/talvera/resolverd/internal/resolver"
)

// FastReloadLauncher starts the fast_reload background thread and
// hands back the caller's side of its notification endpoint, the
// boundary the fast_reload handler needs without importing fastreload
// directly.
type FastReloadLauncher interface {
	Launch(ctx context.Context, pq *printq.Queue, opts fastreload.Options) *ipc.Endpoint
}

// ThreadLauncher is the production FastReloadLauncher: it runs an
// actual fastreload.Thread per call and remembers the config each run
// finalized, so the next fast_reload diffs against the current state
// rather than the daemon's original startup config.
type ThreadLauncher struct {
	CfgPath string
	Collab  *resolver.Collaborators
	Tubes   []*ipc.WorkerTube
	Logger  *slog.Logger

	mu        sync.Mutex
	oldConfig *config.Config
}

// NewThreadLauncher builds a launcher seeded with the daemon's
// startup config.
func NewThreadLauncher(cfgPath string, collab *resolver.Collaborators, tubes []*ipc.WorkerTube, initial *config.Config, logger *slog.Logger) *ThreadLauncher {
	return &ThreadLauncher{
		CfgPath:   cfgPath,
		Collab:    collab,
		Tubes:     tubes,
		Logger:    logger,
		oldConfig: initial,
	}
}

// Launch runs a new Thread in the background and returns the endpoint
// the caller polls for NotifyDone/NotifyDoneError/NotifyExited and
// NotifyPrintout. On a terminal notification the launcher's config
// view is updated from the thread before Launch's caller is expected
// to care about it again.
func (l *ThreadLauncher) Launch(ctx context.Context, pq *printq.Queue, opts fastreload.Options) *ipc.Endpoint {
	l.mu.Lock()
	old := l.oldConfig
	l.mu.Unlock()

	th, main := fastreload.New(opts, l.CfgPath, l.Collab, old, l.Tubes, pq, l.Logger)
	go func() {
		th.Run(ctx)
		l.mu.Lock()
		l.oldConfig = th.CurrentConfig()
		l.mu.Unlock()
	}()
	return main
}
