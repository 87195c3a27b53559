package ipc

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestCommpairSendRecvRoundTrip(t *testing.T) {
	main, bg := NewCommpair()
	defer main.Close()
	defer bg.Close()

	ctx := context.Background()
	done := make(chan error, 1)
	go func() {
		done <- main.Send(ctx, NotifyReloadStop, nil)
	}()

	n, err := bg.Recv(ctx, nil)
	require.NoError(t, err)
	require.Equal(t, NotifyReloadStop, n)
	require.NoError(t, <-done)
}

func TestCommpairRecvHonorsQuit(t *testing.T) {
	main, bg := NewCommpair()
	defer main.Close()
	defer bg.Close()

	quit := false
	go func() {
		time.Sleep(50 * time.Millisecond)
		quit = true
	}()

	_, err := bg.Recv(context.Background(), func() bool { return quit })
	require.ErrorIs(t, err, context.Canceled)
}

func TestCommpairRecvHonorsContextCancellation(t *testing.T) {
	main, bg := NewCommpair()
	defer main.Close()
	defer bg.Close()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := bg.Recv(ctx, nil)
	require.Error(t, err)
}

func TestNotificationStringCoversAllValues(t *testing.T) {
	for n := NotifyNone; n <= NotifyReloadStart; n++ {
		require.NotEmpty(t, n.String())
	}
}
