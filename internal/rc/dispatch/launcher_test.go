package dispatch

import (
	"context"
	"io"
	"net"
	"os"
	"testing"

	"github.com/stretchr/testify/require"
	"github.com/talvera/resolverd/internal/config"
	"github.com/talvera/resolverd/internal/fastreload"
	"github.com/talvera/resolverd/internal/ipc"
	"github.com/talvera/resolverd/internal/printq"
	"github.com/talvera/resolverd/internal/resolver"
)

func writeTestConfig(t *testing.T) string {
	t.Helper()
	f, err := os.CreateTemp(t.TempDir(), "resolverd-*.yaml")
	require.NoError(t, err)
	_, err = f.WriteString("control:\n  use_tls: false\n")
	require.NoError(t, err)
	require.NoError(t, f.Close())
	return f.Name()
}

func recvTerminal(t *testing.T, ctx context.Context, ep *ipc.Endpoint) ipc.Notification {
	t.Helper()
	for {
		n, err := ep.Recv(ctx, nil)
		require.NoError(t, err)
		switch n {
		case ipc.NotifyDone, ipc.NotifyDoneError, ipc.NotifyExited:
			return n
		}
	}
}

func TestThreadLauncherLaunchCompletes(t *testing.T) {
	cfgPath := writeTestConfig(t)
	collab := resolver.NewCollaborators(resolver.Config{})

	serverConn, clientConn := net.Pipe()
	t.Cleanup(func() { clientConn.Close() })
	go io.Copy(io.Discard, clientConn)
	pq := printq.New(serverConn)

	launcher := NewThreadLauncher(cfgPath, collab, nil, &config.Config{}, discardLogger())

	ctx := context.Background()
	ep := launcher.Launch(ctx, pq, fastreload.Options{})
	require.Equal(t, ipc.NotifyDone, recvTerminal(t, ctx, ep))
}
