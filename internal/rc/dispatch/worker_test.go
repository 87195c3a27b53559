package dispatch

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"github.com/talvera/resolverd/internal/auditlog"
	"github.com/talvera/resolverd/internal/ipc"
	"github.com/talvera/resolverd/internal/resolver"
)

const (
	waitShort = 200 * time.Millisecond
	pollShort = 5 * time.Millisecond
)

var errTestArgs = errors.New("bad args")

func TestWorkerReplaysDistributedCommand(t *testing.T) {
	collab := resolver.NewCollaborators(resolver.Config{})
	shared := &Shared{Collab: collab, Logger: discardLogger(), AuditLog: auditlog.NopLog{}}
	table := NewTable([]Command{
		{Verb: "local_zone", Distributed: true, Handler: LocalZoneForTest},
	})
	tube := ipc.NewWorkerTube(1)
	w := NewWorker(1, tube, table, shared)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go w.Run(ctx)

	require.NoError(t, tube.Send(context.Background(), ipc.Frame{
		Kind:    ipc.CmdRemote,
		Payload: []byte("local_zone example.com. static\x00"),
	}))

	require.Eventually(t, func() bool {
		zone, ok := collab.Locals.Get("example.com.")
		return ok && zone.Type == "static"
	}, waitShort, pollShort)
}

func TestWorkerSkipsNoReplayCommand(t *testing.T) {
	collab := resolver.NewCollaborators(resolver.Config{})
	shared := &Shared{Collab: collab, Logger: discardLogger(), AuditLog: auditlog.NopLog{}}
	called := false
	table := NewTable([]Command{
		{Verb: "local_zones", Distributed: true, NoReplay: true, Handler: func(ctx context.Context, env *Env) (*Result, error) {
			called = true
			return OK(), nil
		}},
	})
	tube := ipc.NewWorkerTube(1)
	w := NewWorker(1, tube, table, shared)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go w.Run(ctx)

	require.NoError(t, tube.Send(context.Background(), ipc.Frame{
		Kind:    ipc.CmdRemote,
		Payload: []byte("local_zones\x00"),
	}))

	// A NoReplay command must never reach the handler: it would
	// dereference a nil Session. Give the worker a moment to have
	// processed the frame, then assert it stayed untouched.
	require.Never(t, func() bool { return called }, waitShort, pollShort)
}

func TestWorkerAcksReloadLifecycleFrames(t *testing.T) {
	shared := &Shared{Logger: discardLogger(), AuditLog: auditlog.NopLog{}}
	tube := ipc.NewWorkerTube(1)
	w := NewWorker(1, tube, NewTable(nil), shared)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go w.Run(ctx)

	require.NoError(t, tube.Send(context.Background(), ipc.Frame{Kind: ipc.CmdReloadStop}))
	require.NoError(t, tube.WaitAck(context.Background()))
}

// LocalZoneForTest mirrors handlers.LocalZone without importing the
// handlers package, which would create an import cycle back into
// dispatch.
func LocalZoneForTest(ctx context.Context, env *Env) (*Result, error) {
	f := strings.Fields(env.Args)
	if len(f) != 2 {
		return nil, errTestArgs
	}
	existing, _ := env.Collab.Locals.Get(f[0])
	existing.Name, existing.Type = f[0], f[1]
	env.Collab.Locals.Put(f[0], existing)
	return OK(), nil
}
