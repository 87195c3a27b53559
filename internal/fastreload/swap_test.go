package fastreload

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/talvera/resolverd/internal/config"
	"github.com/talvera/resolverd/internal/ipc"
	"github.com/talvera/resolverd/internal/resolver"
)

// runAckingWorker drains every frame sent to tube and acks it
// immediately, standing in for a real worker during a swap test.
func runAckingWorker(t *testing.T, ctx context.Context, tube *ipc.WorkerTube) {
	t.Helper()
	go func() {
		for {
			f, err := tube.Recv(ctx)
			if err != nil {
				return
			}
			_ = tube.Ack(ctx)
			if f.Kind == ipc.CmdReloadStart || f.Kind == ipc.CmdNopausePoll {
				return
			}
		}
	}()
}

func TestPublishNoPauseSwapsTrees(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	collab := resolver.NewCollaborators(resolver.Config{})
	tube := ipc.NewWorkerTube(4)
	runAckingWorker(t, ctx, tube)

	nc := BuildConstruct(&config.Config{
		Forwards: []config.ForwardZoneConfig{{Zone: "example.com.", Servers: []string{"1.1.1.1"}}},
	})
	diff := config.NewConfigDiff()
	diff.Modified["ratelimit.qps"] = config.DiffEntry{OldValue: 0, NewValue: 10}

	err := Publish(ctx, collab, nc, diff, []*ipc.WorkerTube{tube})
	require.NoError(t, err)

	_, ok := collab.Forwards.Get("example.com.")
	require.True(t, ok)
}

func TestPublishPausedSwapsTreesAroundStopStart(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	collab := resolver.NewCollaborators(resolver.Config{})
	tube := ipc.NewWorkerTube(4)

	var sawStop, sawStart bool
	go func() {
		for i := 0; i < 2; i++ {
			f, err := tube.Recv(ctx)
			if err != nil {
				return
			}
			switch f.Kind {
			case ipc.CmdReloadStop:
				sawStop = true
			case ipc.CmdReloadStart:
				sawStart = true
			}
			_ = tube.Ack(ctx)
		}
	}()

	nc := BuildConstruct(&config.Config{
		Locals: []config.LocalZoneConfig{{Name: "block.example.", Type: "deny"}},
	})
	diff := config.NewConfigDiff()
	diff.Modified["control.port"] = config.DiffEntry{OldValue: 8953, NewValue: 8954}

	err := Publish(ctx, collab, nc, diff, []*ipc.WorkerTube{tube})
	require.NoError(t, err)
	require.True(t, sawStop)
	require.True(t, sawStart)

	_, ok := collab.Locals.Get("block.example.")
	require.True(t, ok)
}
