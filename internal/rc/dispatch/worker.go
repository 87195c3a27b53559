package dispatch

import (
	"bytes"
	"context"

	"github.com/talvera/resolverd/internal/ipc"
)

// Worker plays the "other worker" role spec.md §4.1-§4.5 assigns to
// every resolver thread beyond the one servicing the control session:
// it owns one end of a WorkerTube, replays distributed commands the
// primary fans out by re-entering this same dispatch Table, and acks
// the reload-lifecycle frames the fast-reload pipeline's paused and
// no-pause publish paths wait on.
type Worker struct {
	ID     int
	Tube   *ipc.WorkerTube
	Table  *Table
	Shared *Shared
}

// NewWorker returns a worker bound to tube, ready to Run.
func NewWorker(id int, tube *ipc.WorkerTube, table *Table, shared *Shared) *Worker {
	return &Worker{ID: id, Tube: tube, Table: table, Shared: shared}
}

// Run processes frames from the worker's tube until ctx is done or
// the tube is closed. It never returns an error: a malformed or
// unknown distributed command is logged and dropped rather than
// killing the worker, since one bad fanout must not take a resolver
// thread down.
func (w *Worker) Run(ctx context.Context) {
	for {
		frame, err := w.Tube.Recv(ctx)
		if err != nil {
			return
		}
		switch frame.Kind {
		case ipc.CmdRemote:
			w.replay(ctx, frame.Payload)
		case ipc.CmdReloadStop, ipc.CmdReloadStart, ipc.CmdNopausePoll:
			// Parking (CmdReloadStop) and the no-pause barrier
			// (CmdNopausePoll) need no local action beyond the ack
			// itself: this worker has no query in flight that could
			// hold a pointer into the pre-swap trees, since all tree
			// access goes through Tree's own locking.
			_ = w.Tube.Ack(ctx)
		}
	}
}

// replay re-runs a distributed command line against this worker's own
// Env, the local mutation every peer worker applies to converge on
// the primary's state. It does not write a response anywhere — a
// worker dispatch has no originating session — and it never
// redistributes, since the primary already fanned the command out to
// every worker.
func (w *Worker) replay(ctx context.Context, payload []byte) {
	line := string(bytes.TrimRight(payload, "\x00"))
	verb, args := splitCommand(line)

	cmd, err := w.Table.Lookup(verb)
	if err != nil {
		w.Shared.Logger.Warn("worker: unknown distributed command", "worker", w.ID, "verb", verb, "error", err)
		return
	}
	if cmd.NoReplay {
		// Already applied once by the primary against the collaborators
		// every worker shares; this verb's handler needs a live Session
		// to re-run at all, which a worker replay does not have.
		return
	}

	env := &Env{Shared: w.Shared, Verb: cmd.Verb, Args: args}
	if _, err := cmd.Handler(ctx, env); err != nil {
		w.Shared.Logger.Warn("worker: distributed command failed", "worker", w.ID, "verb", cmd.Verb, "error", err)
	}
}
