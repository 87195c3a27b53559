package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"sync"
	"sync/atomic"
	"syscall"
	"time"
)

// sighupDebounce is the minimum interval between two SIGHUP-triggered
// reloads; a shell script or systemd unit that sends several SIGHUPs
// in quick succession should still only trigger one reload.
const sighupDebounce = 1 * time.Second

// sighupHandler reloads the daemon's configuration on SIGHUP, the
// same signal-driven trigger resolverctl's "reload"/"reload_keep_cache"
// commands expose over the control channel — a SIGHUP is treated as
// "reload_keep_cache" sent by the process's own operator.
type sighupHandler struct {
	lifecycle *daemonLifecycle
	logger    *slog.Logger

	lastReload atomic.Value // time.Time

	sigChan chan os.Signal
	ctx     context.Context
	cancel  context.CancelFunc
	wg      sync.WaitGroup
}

func newSighupHandler(lifecycle *daemonLifecycle, logger *slog.Logger) *sighupHandler {
	ctx, cancel := context.WithCancel(context.Background())
	return &sighupHandler{
		lifecycle: lifecycle,
		logger:    logger,
		sigChan:   make(chan os.Signal, 1),
		ctx:       ctx,
		cancel:    cancel,
	}
}

func (h *sighupHandler) Start() {
	signal.Notify(h.sigChan, syscall.SIGHUP)
	h.wg.Add(1)
	go h.listen()
}

func (h *sighupHandler) Stop() {
	signal.Stop(h.sigChan)
	h.cancel()
	h.wg.Wait()
}

func (h *sighupHandler) listen() {
	defer h.wg.Done()
	for {
		select {
		case _, ok := <-h.sigChan:
			if !ok {
				return
			}
			if h.debounced() {
				h.logger.Debug("sighup: reload debounced")
				continue
			}
			h.lastReload.Store(time.Now())
			h.logger.Info("sighup received, requesting reload")
			h.lifecycle.Reload(true)
		case <-h.ctx.Done():
			return
		}
	}
}

func (h *sighupHandler) debounced() bool {
	v := h.lastReload.Load()
	if v == nil {
		return false
	}
	return time.Since(v.(time.Time)) < sighupDebounce
}
