package ipc

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestWorkerTubeSendRecvAck(t *testing.T) {
	tube := NewWorkerTube(1)
	ctx := context.Background()

	require.NoError(t, tube.Send(ctx, Frame{Kind: CmdRemote, Payload: []byte("flush_zone example.com.\x00")}))

	f, err := tube.Recv(ctx)
	require.NoError(t, err)
	require.Equal(t, CmdRemote, f.Kind)

	require.NoError(t, tube.Ack(ctx))
	require.NoError(t, tube.WaitAck(ctx))
}

func TestFanoutWaitsForAllAcks(t *testing.T) {
	tubes := []*WorkerTube{NewWorkerTube(1), NewWorkerTube(1)}
	ctx := context.Background()

	for _, tube := range tubes {
		go func(tube *WorkerTube) {
			f, err := tube.Recv(ctx)
			require.NoError(t, err)
			require.Equal(t, CmdReloadStop, f.Kind)
			require.NoError(t, tube.Ack(ctx))
		}(tube)
	}

	done := make(chan error, 1)
	go func() { done <- Fanout(ctx, tubes, Frame{Kind: CmdReloadStop}) }()

	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(time.Second):
		t.Fatal("fanout did not complete")
	}
}
