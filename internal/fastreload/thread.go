// Package fastreload implements the background-thread reload
// pipeline the control channel's fast_reload command drives: parse a
// fresh config off disk, build new views/forwards/stubs/locals in the
// background, then publish them to the live Collaborators either
// behind a brief pause or without one, according to what changed.
package fastreload

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/talvera/resolverd/internal/config"
	"github.com/talvera/resolverd/internal/ipc"
	"github.com/talvera/resolverd/internal/printq"
	"github.com/talvera/resolverd/internal/resolver"
)

// Thread runs the 8-phase fast-reload pipeline on its own goroutine,
// the background-thread half of the protocol; the control session
// that launched it holds the other end of commpair and polls it for
// notifications while streaming PrintQ's output back to the client.
type Thread struct {
	opts    Options
	cfgPath string
	collab  *resolver.Collaborators
	tubes   []*ipc.WorkerTube
	logger  *slog.Logger

	// bg is this Thread's end of the commpair; the caller keeps the
	// other end (returned by New) to poll for NotifyDone/DoneError/
	// Exited and to drain NotifyPrintout-triggered output.
	bg *ipc.Endpoint

	printQ *printq.Queue

	mu       sync.Mutex
	output   []string
	quitFlag atomic.Bool

	oldConfig *config.Config
}

// New builds a Thread ready to Run in the background. main is the
// Endpoint the caller keeps to await Done/DoneError/Exited; the
// returned Thread holds the bg end.
func New(opts Options, cfgPath string, collab *resolver.Collaborators, oldConfig *config.Config, tubes []*ipc.WorkerTube, pq *printq.Queue, logger *slog.Logger) (*Thread, *ipc.Endpoint) {
	main, bg := ipc.NewCommpair()
	if logger == nil {
		logger = slog.Default()
	}
	t := &Thread{
		opts:      opts,
		cfgPath:   cfgPath,
		collab:    collab,
		tubes:     tubes,
		logger:    logger,
		bg:        bg,
		printQ:    pq,
		oldConfig: oldConfig,
	}
	return t, main
}

// RequestExit asks a running Thread to abort at its next quit check.
// The caller still must wait for NotifyExited on its Endpoint.
func (t *Thread) RequestExit() {
	t.quitFlag.Store(true)
}

func (t *Thread) quit() bool {
	return t.quitFlag.Load()
}

func (t *Thread) printf(format string, args ...interface{}) {
	line := fmt.Sprintf(format, args...) + "\n"
	t.mu.Lock()
	t.output = append(t.output, line)
	t.mu.Unlock()
	_ = t.printQ.Push(line)
	_ = t.bg.Send(context.Background(), ipc.NotifyPrintout, t.quit)
}

// Run drives the 8-phase pipeline: Start, Read, Construct,
// PrintMemory, ReloadIPC, Finalize, Timings, Terminate. It always
// sends exactly one of NotifyDone/NotifyDoneError on its Endpoint
// before returning, except when an exit is requested mid-run, in
// which case it sends NotifyExited instead.
func (t *Thread) Run(ctx context.Context) {
	start := time.Now()
	t.printf("start of fast reload")

	if t.quit() {
		t.terminate(ctx, ipc.NotifyExited)
		return
	}

	readStart := time.Now()
	newCfg, err := config.LoadConfig(t.cfgPath)
	if err != nil {
		t.printf("error: read config: %v", err)
		t.terminate(ctx, ipc.NotifyDoneError)
		return
	}
	readElapsed := time.Since(readStart)

	constructStart := time.Now()
	nc := BuildConstruct(newCfg)
	constructElapsed := time.Since(constructStart)

	if t.opts.Verbosity >= 2 {
		t.printf("memory estimate: %d bytes", nc.EstimateBytes())
	}

	diff, err := config.NewConfigComparator().Compare(t.oldConfig, newCfg)
	if err != nil {
		t.printf("error: diff config: %v", err)
		t.terminate(ctx, ipc.NotifyDoneError)
		return
	}

	if t.quit() {
		t.terminate(ctx, ipc.NotifyExited)
		return
	}

	reloadStart := time.Now()
	if err := t.runReloadIPC(ctx, nc, diff); err != nil {
		t.printf("error: reload ipc: %v", err)
		t.terminate(ctx, ipc.NotifyDoneError)
		return
	}
	reloadElapsed := time.Since(reloadStart)

	finalizeStart := time.Now()
	t.mu.Lock()
	t.oldConfig = newCfg
	t.mu.Unlock()
	finalizeElapsed := time.Since(finalizeStart)

	if t.opts.Verbosity >= 1 {
		t.printf("read: %d.%06d", int(readElapsed/time.Second), int(readElapsed%time.Second/time.Microsecond))
		t.printf("construct: %d.%06d", int(constructElapsed/time.Second), int(constructElapsed%time.Second/time.Microsecond))
		t.printf("reload: %d.%06d", int(reloadElapsed/time.Second), int(reloadElapsed%time.Second/time.Microsecond))
		t.printf("finalize: %d.%06d", int(finalizeElapsed/time.Second), int(finalizeElapsed%time.Second/time.Microsecond))
		total := time.Since(start)
		t.printf("total: %d.%06d", int(total/time.Second), int(total%time.Second/time.Microsecond))
	}

	t.printf("ok")
	t.terminate(ctx, ipc.NotifyDone)
}

// runReloadIPC is the ReloadIPC phase: publish nc into the live
// Collaborators under the paused or no-pause policy diff calls for.
func (t *Thread) runReloadIPC(ctx context.Context, nc *Construct, diff *config.ConfigDiff) error {
	if diff.IsEmpty() {
		return nil
	}
	return Publish(ctx, t.collab, nc, diff, t.tubes)
}

// terminate sends the final notification and, if an exit was
// requested concurrently, drains that request with NotifyExited
// instead of whatever the pipeline computed.
func (t *Thread) terminate(ctx context.Context, n ipc.Notification) {
	if t.quit() {
		n = ipc.NotifyExited
	}
	if err := t.bg.Send(ctx, n, nil); err != nil {
		t.logger.Warn("fast reload: failed to send terminal notification", "notification", n, "error", err)
	}
	_ = t.printQ.Drain()
}

// Output returns every line the run has produced so far, for a
// session that wants to replay history to a late-attaching client.
func (t *Thread) Output() []string {
	t.mu.Lock()
	defer t.mu.Unlock()
	out := make([]string, len(t.output))
	copy(out, t.output)
	return out
}

// CurrentConfig returns the config this Thread last finalized (or its
// initial oldConfig, if Run hasn't reached Finalize yet). A launcher
// reads this after observing a terminal notification to seed the next
// fast_reload's oldConfig.
func (t *Thread) CurrentConfig() *config.Config {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.oldConfig
}
