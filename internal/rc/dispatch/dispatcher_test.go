package dispatch

import (
	"bufio"
	"context"
	"errors"
	"io"
	"log/slog"
	"net"
	"testing"

	"github.com/stretchr/testify/require"
	"github.com/talvera/resolverd/internal/auditlog"
	"github.com/talvera/resolverd/internal/ipc"
	"github.com/talvera/resolverd/internal/rc"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// dialSession returns a Session on one end of an in-process pipe, and
// a bufio.Reader on the other end for the test to write the request
// and read the response, mirroring how a real control client talks to
// the daemon over TCP.
func dialSession(t *testing.T) (*rc.Session, *bufio.ReadWriter) {
	t.Helper()
	serverConn, clientConn := net.Pipe()
	t.Cleanup(func() { clientConn.Close() })

	s := rc.NewSession(serverConn, discardLogger())
	rw := bufio.NewReadWriter(bufio.NewReader(clientConn), bufio.NewWriter(clientConn))
	return s, rw
}

func sendLine(t *testing.T, rw *bufio.ReadWriter, line string) {
	t.Helper()
	_, err := rw.WriteString("UBCT1 " + line + "\n")
	require.NoError(t, err)
	require.NoError(t, rw.Flush())
}

func TestDispatcherRunsHandlerAndWritesResponse(t *testing.T) {
	s, rw := dialSession(t)
	shared := &Shared{Logger: discardLogger(), AuditLog: auditlog.NopLog{}}
	table := NewTable([]Command{
		{Verb: "status", Handler: func(ctx context.Context, env *Env) (*Result, error) {
			return Lines("state: ok"), nil
		}},
	})
	d := NewDispatcher(table, shared)

	done := make(chan error, 1)
	go func() { done <- d.Dispatch(context.Background(), s) }()

	sendLine(t, rw, "status")
	line, err := rw.ReadString('\n')
	require.NoError(t, err)
	require.Equal(t, "state: ok\n", line)
	require.NoError(t, <-done)
}

func TestDispatcherUnknownCommandWritesError(t *testing.T) {
	s, rw := dialSession(t)
	shared := &Shared{Logger: discardLogger(), AuditLog: auditlog.NopLog{}}
	d := NewDispatcher(NewTable(nil), shared)

	done := make(chan error, 1)
	go func() { done <- d.Dispatch(context.Background(), s) }()

	sendLine(t, rw, "bogus")
	line, err := rw.ReadString('\n')
	require.NoError(t, err)
	require.Contains(t, line, "error")
	require.NoError(t, <-done)
}

func TestDispatcherHandlerErrorWritesError(t *testing.T) {
	s, rw := dialSession(t)
	shared := &Shared{Logger: discardLogger(), AuditLog: auditlog.NopLog{}}
	table := NewTable([]Command{
		{Verb: "flush_zone", Handler: func(ctx context.Context, env *Env) (*Result, error) {
			return nil, errors.New("no such zone")
		}},
	})
	d := NewDispatcher(table, shared)

	done := make(chan error, 1)
	go func() { done <- d.Dispatch(context.Background(), s) }()

	sendLine(t, rw, "flush_zone example.com.")
	line, err := rw.ReadString('\n')
	require.NoError(t, err)
	require.Equal(t, "error no such zone\n", line)
	require.NoError(t, <-done)
}

func TestDispatcherDistributesMutatingCommand(t *testing.T) {
	s, rw := dialSession(t)
	tube := ipc.NewWorkerTube(1)
	shared := &Shared{Logger: discardLogger(), AuditLog: auditlog.NopLog{}, Tubes: []*ipc.WorkerTube{tube}}
	table := NewTable([]Command{
		{Verb: "local_zone", Distributed: true, Handler: func(ctx context.Context, env *Env) (*Result, error) {
			return OK(), nil
		}},
	})
	d := NewDispatcher(table, shared)

	done := make(chan error, 1)
	go func() { done <- d.Dispatch(context.Background(), s) }()

	sendLine(t, rw, "local_zone example.com. static")
	_, err := rw.ReadString('\n')
	require.NoError(t, err)
	require.NoError(t, <-done)

	frame, err := tube.Recv(context.Background())
	require.NoError(t, err)
	require.Equal(t, ipc.CmdRemote, frame.Kind)
	require.Contains(t, string(frame.Payload), "local_zone example.com. static")
}
