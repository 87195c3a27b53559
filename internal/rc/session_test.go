package rc

import (
	"io"
	"log/slog"
	"net"
	"testing"

	"github.com/stretchr/testify/require"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestSessionReadMagicAccepts(t *testing.T) {
	server, client := net.Pipe()
	defer server.Close()
	defer client.Close()

	s := newSession(server, discardLogger())
	go client.Write([]byte("UBCT1 status\n"))

	require.NoError(t, s.ReadMagic())
	line, err := s.ReadCommandLine()
	require.NoError(t, err)
	require.Equal(t, "status", line)
}

func TestSessionReadMagicRejectsBadPrefix(t *testing.T) {
	server, client := net.Pipe()
	defer server.Close()
	defer client.Close()

	s := newSession(server, discardLogger())
	go client.Write([]byte("HELO01"))

	require.Error(t, s.ReadMagic())
}

func TestSessionReadBulkLinesStopsAtEmptyLine(t *testing.T) {
	server, client := net.Pipe()
	defer server.Close()
	defer client.Close()

	s := newSession(server, discardLogger())
	go client.Write([]byte("example. IN A 10.0.0.1\nexample. IN A 10.0.0.2\n\n"))

	lines, err := s.ReadBulkLines()
	require.NoError(t, err)
	require.Equal(t, []string{"example. IN A 10.0.0.1", "example. IN A 10.0.0.2"}, lines)
}

func TestSessionReadBulkLinesStopsAtEOTMarker(t *testing.T) {
	server, client := net.Pipe()
	defer server.Close()
	defer client.Close()

	s := newSession(server, discardLogger())
	go client.Write([]byte("one\n\x04\n"))

	lines, err := s.ReadBulkLines()
	require.NoError(t, err)
	require.Equal(t, []string{"one"}, lines)
}

func TestSessionIntoPrintQPreventsDoubleClose(t *testing.T) {
	server, client := net.Pipe()
	defer client.Close()

	s := newSession(server, discardLogger())
	conn := s.IntoPrintQ()
	require.Same(t, server, conn)
	require.True(t, s.Moved())
	require.NoError(t, s.Close())
}

func TestSessionWriteLine(t *testing.T) {
	server, client := net.Pipe()
	defer server.Close()
	defer client.Close()

	s := newSession(server, discardLogger())

	readDone := make(chan string, 1)
	go func() {
		buf := make([]byte, 16)
		n, _ := client.Read(buf)
		readDone <- string(buf[:n])
	}()

	require.NoError(t, s.WriteLine("ok"))
	require.Equal(t, "ok\n", <-readDone)
}
