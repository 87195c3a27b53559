// Package rc implements the control channel's listener and
// per-connection session state machine: accepting TLS or local-socket
// connections, authenticating the peer, reading the magic and command
// line, and handing the line off to the dispatcher.
package rc

import (
	"bufio"
	"crypto/tls"
	"fmt"
	"log/slog"
	"net"
	"time"

	"github.com/talvera/resolverd/pkg/logger"
)

// magicPrefix and the version byte the control protocol requires on
// every connection, per spec.md §4.1/§6: "UBCT1 " (six bytes total).
const (
	magicPrefix    = "UBCT"
	magicVersion   = '1'
	magicLen       = 6
	maxCommandLine = 1024
)

// sessionState mirrors the handshake sub-state spec.md §3 names for a
// Session: none while idle or post-handshake, read/write while a TLS
// renegotiation is waiting on socket readiness. Go's crypto/tls blocks
// internally on Handshake, so this daemon never observes read/write as
// a distinct scheduling state — it is kept as a labeled field so a
// session's lifecycle log line always names its current phase the way
// the source's state machine would.
type sessionState int

const (
	stateNone sessionState = iota
	stateRead
	stateWrite
)

func (s sessionState) String() string {
	switch s {
	case stateRead:
		return "read"
	case stateWrite:
		return "write"
	default:
		return "none"
	}
}

// Session is one accepted control connection. Invariant (spec.md §3):
// a Session is either registered on its Server's busy list with an
// active conn, or has been moved into a printq — never both. moved is
// set exactly once, by IntoPrintQ.
type Session struct {
	ID     string
	conn   net.Conn
	r      *bufio.Reader
	tls    *tls.Conn
	state  sessionState
	moved  bool
	logger *slog.Logger

	remoteAddr string
}

// NewSession wraps conn the same way the server does for an accepted
// connection, for dispatch/handler tests that need a Session without
// standing up a full Server.
func NewSession(conn net.Conn, base *slog.Logger) *Session {
	return newSession(conn, base)
}

// newSession wraps an accepted connection, generating a session ID so
// every log line for this connection's lifetime can be correlated.
func newSession(conn net.Conn, base *slog.Logger) *Session {
	id := logger.NewSessionID()
	tlsConn, _ := conn.(*tls.Conn)
	return &Session{
		ID:         id,
		conn:       conn,
		r:          bufio.NewReader(conn),
		tls:        tlsConn,
		logger:     base.With("session_id", id),
		remoteAddr: conn.RemoteAddr().String(),
	}
}

// Logger returns this session's request-scoped logger.
func (s *Session) Logger() *slog.Logger { return s.logger }

// RemoteAddr returns the originating address, for status/log lines.
func (s *Session) RemoteAddr() string { return s.remoteAddr }

// Conn returns the underlying connection. Handlers that need to set
// deadlines around a long-running command (e.g. bulk input) use this
// directly; everything else should prefer ReadCommandLine/WriteLine.
func (s *Session) Conn() net.Conn { return s.conn }

// handshake runs the TLS handshake (a no-op for plain/local-socket
// connections) and enforces the authentication policy of spec.md
// §4.1: a TLS session requires a verified client certificate; a local
// socket is authenticated only by filesystem permission and is let
// through unconditionally.
func (s *Session) handshake(handshakeTimeout time.Duration) error {
	if s.tls == nil {
		return nil
	}

	s.state = stateRead
	if handshakeTimeout > 0 {
		_ = s.conn.SetDeadline(time.Now().Add(handshakeTimeout))
	}
	if err := s.tls.Handshake(); err != nil {
		s.state = stateNone
		return fmt.Errorf("tls handshake: %w", err)
	}
	if handshakeTimeout > 0 {
		_ = s.conn.SetDeadline(time.Time{})
	}
	s.state = stateNone

	cs := s.tls.ConnectionState()
	if len(cs.PeerCertificates) == 0 {
		return fmt.Errorf("tls handshake: no client certificate presented")
	}
	return nil
}

// ReadMagic reads exactly six bytes and verifies the "UBCT1 " prefix.
// Per spec.md §4.1, a mismatch is not reported to the peer — the
// connection is simply dropped, to avoid responding to port-scanners.
func (s *Session) ReadMagic() error {
	buf := make([]byte, magicLen)
	if _, err := readFull(s.r, buf); err != nil {
		return err
	}
	if string(buf[:len(magicPrefix)]) != magicPrefix {
		return fmt.Errorf("bad magic")
	}
	if buf[len(magicPrefix)] != magicVersion {
		return fmt.Errorf("unsupported protocol version %q", buf[len(magicPrefix)])
	}
	if buf[magicLen-1] != ' ' {
		return fmt.Errorf("bad magic terminator")
	}
	return nil
}

// ReadCommandLine reads one LF-terminated line up to maxCommandLine
// bytes, per spec.md §6.
func (s *Session) ReadCommandLine() (string, error) {
	line, err := s.r.ReadString('\n')
	if err != nil {
		return "", err
	}
	if len(line) > maxCommandLine {
		return "", fmt.Errorf("command line too long")
	}
	return trimEOL(line), nil
}

// ReadBulkLines reads additional input lines for a bulk command (e.g.
// local_zones) until either an empty line or a line containing a
// single 0x04 byte, per spec.md §6.
func (s *Session) ReadBulkLines() ([]string, error) {
	var lines []string
	for {
		line, err := s.r.ReadString('\n')
		if err != nil {
			return lines, err
		}
		line = trimEOL(line)
		if line == "" || line == "\x04" {
			return lines, nil
		}
		lines = append(lines, line)
	}
}

func trimEOL(s string) string {
	for len(s) > 0 && (s[len(s)-1] == '\n' || s[len(s)-1] == '\r') {
		s = s[:len(s)-1]
	}
	return s
}

func readFull(r *bufio.Reader, buf []byte) (int, error) {
	n := 0
	for n < len(buf) {
		m, err := r.Read(buf[n:])
		n += m
		if err != nil {
			return n, err
		}
	}
	return n, nil
}

// WriteLine writes one LF-terminated response line.
func (s *Session) WriteLine(line string) error {
	_, err := s.conn.Write([]byte(line + "\n"))
	return err
}

// IntoPrintQ consumes the session, transferring its connection to a
// fast-reload printer and marking moved so teardown does not close the
// connection a second time. Per spec.md §9's tagged-transfer note.
func (s *Session) IntoPrintQ() net.Conn {
	s.moved = true
	return s.conn
}

// Moved reports whether this session's connection has been absorbed
// into a printq.
func (s *Session) Moved() bool {
	return s.moved
}

// Close tears down the session's connection, unless it has been moved
// into a printq, in which case the printq now owns the connection.
func (s *Session) Close() error {
	if s.moved {
		return nil
	}
	return s.conn.Close()
}
