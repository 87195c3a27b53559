package rc

import (
	"context"
	"crypto/tls"
	"fmt"
	"log/slog"
	"net"
	"sync"
	"time"
)

// DefaultMaxActive is the default bound on concurrent control
// sessions, spec.md §3's "max_active, default 10".
const DefaultMaxActive = 10

// DefaultTCPTimeout is REMOTE_CONTROL_TCP_TIMEOUT from spec.md §4.1:
// the read deadline applied to an accepted connection before a
// command line has been fully read.
const DefaultTCPTimeout = 120 * time.Second

// Dispatcher routes one control session's command line to its
// handler and writes the response. Implemented by internal/rc/dispatch
// so this package has no dependency on the command table.
type Dispatcher interface {
	Dispatch(ctx context.Context, s *Session) error
}

// Config configures a control Server.
type Config struct {
	Addrs            []string
	TLSConfig        *tls.Config // nil for unauthenticated local sockets
	MaxActive        int
	TCPTimeout       time.Duration
	HandshakeTimeout time.Duration
}

// Server is the control channel's listener: RemoteControl in spec.md
// §3. It owns a bounded, named set of Sessions on a busy list and
// hands each accepted connection through the handshake/magic/command
// pipeline before delegating to a Dispatcher.
type Server struct {
	cfg        Config
	dispatcher Dispatcher
	logger     *slog.Logger

	listeners []net.Listener

	mu     sync.Mutex
	busy   map[string]*Session
	active int
}

// NewServer builds a Server bound to cfg.Addrs. Binding happens in
// Serve so construction never fails on a transient listen error.
func NewServer(cfg Config, dispatcher Dispatcher, logger *slog.Logger) *Server {
	if cfg.MaxActive <= 0 {
		cfg.MaxActive = DefaultMaxActive
	}
	if cfg.TCPTimeout <= 0 {
		cfg.TCPTimeout = DefaultTCPTimeout
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Server{
		cfg:        cfg,
		dispatcher: dispatcher,
		logger:     logger,
		busy:       make(map[string]*Session),
	}
}

// Active reports the current number of sessions on the busy list.
func (srv *Server) Active() int {
	srv.mu.Lock()
	defer srv.mu.Unlock()
	return srv.active
}

// Serve binds every configured address and accepts connections until
// ctx is cancelled. Filesystem-socket endpoints and TCP endpoints are
// both plain net.Listeners here — permissioning a unix socket path is
// the caller's responsibility via cfg before NewServer, matching
// spec.md §4.1's "filesystem sockets receive 0660 permissions"
// (applied by the config/startup layer, not repeated here).
func (srv *Server) Serve(ctx context.Context) error {
	network := "tcp"
	for _, addr := range srv.cfg.Addrs {
		n := network
		if isUnixPath(addr) {
			n = "unix"
		}

		var l net.Listener
		var err error
		if srv.cfg.TLSConfig != nil && n == "tcp" {
			l, err = tls.Listen(n, addr, srv.cfg.TLSConfig)
		} else {
			l, err = net.Listen(n, addr)
		}
		if err != nil {
			srv.closeListeners()
			return fmt.Errorf("rc: listen %s: %w", addr, err)
		}
		srv.listeners = append(srv.listeners, l)
		srv.logger.Info("control listener bound", "addr", addr, "network", n, "tls", srv.cfg.TLSConfig != nil)
	}

	var wg sync.WaitGroup
	for _, l := range srv.listeners {
		wg.Add(1)
		go func(l net.Listener) {
			defer wg.Done()
			srv.acceptLoop(ctx, l)
		}(l)
	}

	<-ctx.Done()
	srv.closeListeners()
	wg.Wait()
	srv.Shutdown()
	return nil
}

func isUnixPath(addr string) bool {
	return len(addr) > 0 && (addr[0] == '/' || addr[0] == '.')
}

func (srv *Server) closeListeners() {
	for _, l := range srv.listeners {
		_ = l.Close()
	}
}

func (srv *Server) acceptLoop(ctx context.Context, l net.Listener) {
	for {
		conn, err := l.Accept()
		if err != nil {
			select {
			case <-ctx.Done():
				return
			default:
				srv.logger.Warn("accept error", "error", err)
				return
			}
		}
		go srv.handleConn(ctx, conn)
	}
}

func (srv *Server) handleConn(ctx context.Context, conn net.Conn) {
	if !srv.admit() {
		srv.logger.Warn("too many connections", "remote_addr", conn.RemoteAddr())
		_ = conn.Close()
		return
	}

	s := newSession(conn, srv.logger)
	srv.register(s)
	defer srv.release(s)

	_ = conn.SetReadDeadline(time.Now().Add(srv.cfg.TCPTimeout))

	if err := s.handshake(srv.cfg.HandshakeTimeout); err != nil {
		s.logger.Warn("handshake failed", "error", err)
		return
	}

	if err := srv.dispatcher.Dispatch(ctx, s); err != nil {
		s.logger.Debug("session ended", "error", err)
	}
}

// admit enforces max_active, returning false when the connection must
// be rejected immediately (spec.md §4.1).
func (srv *Server) admit() bool {
	srv.mu.Lock()
	defer srv.mu.Unlock()
	if srv.active >= srv.cfg.MaxActive {
		return false
	}
	srv.active++
	return true
}

func (srv *Server) register(s *Session) {
	srv.mu.Lock()
	defer srv.mu.Unlock()
	srv.busy[s.ID] = s
}

// release removes s from the busy list and closes it (a no-op if it
// was already moved into a printq), per spec.md §4.1 session teardown.
func (srv *Server) release(s *Session) {
	srv.mu.Lock()
	delete(srv.busy, s.ID)
	srv.active--
	srv.mu.Unlock()
	_ = s.Close()
}

// Shutdown closes every still-busy session. Sessions absorbed into a
// printq are unaffected: once the reload settles, the daemon's
// printq.OrphanList takes over that connection (see dispatch.Shared),
// and CloseAll there is responsible for tearing it down.
func (srv *Server) Shutdown() {
	srv.mu.Lock()
	defer srv.mu.Unlock()
	for id, s := range srv.busy {
		_ = s.Close()
		delete(srv.busy, id)
	}
}
