package ipc

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"time"
)

// LoopMax bounds the retry count of any bounded IPC loop (notification
// writes, quit polls), preventing livelock on a broken endpoint.
const LoopMax = 200

// NotificationWait is the poll timeout a waiter uses while blocking
// for the next notification word.
const NotificationWait = 200 * time.Millisecond

// ErrLoopExhausted is returned when a bounded retry loop gives up
// without completing its operation.
var ErrLoopExhausted = errors.New("ipc: retry loop exhausted")

// Endpoint is one side of a duplex notification channel. Two
// Endpoints backed by the same underlying transport form a commpair;
// net.Pipe is Go's portable equivalent of the C socketpair(2) this
// protocol was originally built on — both connect two goroutines in
// the same process with no kernel buffering to configure.
type Endpoint struct {
	conn net.Conn
}

// NewCommpair returns the two ends of a fresh in-process duplex
// notification channel.
func NewCommpair() (main, bg *Endpoint) {
	a, b := net.Pipe()
	return &Endpoint{conn: a}, &Endpoint{conn: b}
}

// Send writes one notification word, retrying on transient errors up
// to LoopMax times. quit, if non-nil, is polled between attempts so a
// slow peer does not block an in-flight exit request indefinitely.
func (e *Endpoint) Send(ctx context.Context, n Notification, quit func() bool) error {
	word := encode(n)

	for attempt := 0; attempt < LoopMax; attempt++ {
		if quit != nil && quit() {
			return context.Canceled
		}

		deadline := time.Now().Add(NotificationWait)
		if err := e.conn.SetWriteDeadline(deadline); err != nil {
			return fmt.Errorf("ipc: set write deadline: %w", err)
		}

		_, err := e.conn.Write(word[:])
		if err == nil {
			return nil
		}
		if ne, ok := err.(net.Error); ok && ne.Timeout() {
			continue
		}
		if ctx.Err() != nil {
			return ctx.Err()
		}
		continue
	}
	return ErrLoopExhausted
}

// Recv blocks for the next notification word, polling in
// NotificationWait slices so a caller can observe ctx cancellation or
// a quit signal without an unbounded block.
func (e *Endpoint) Recv(ctx context.Context, quit func() bool) (Notification, error) {
	for attempt := 0; attempt < LoopMax; attempt++ {
		if quit != nil && quit() {
			return NotifyNone, context.Canceled
		}
		if err := ctx.Err(); err != nil {
			return NotifyNone, err
		}

		deadline := time.Now().Add(NotificationWait)
		if err := e.conn.SetReadDeadline(deadline); err != nil {
			return NotifyNone, fmt.Errorf("ipc: set read deadline: %w", err)
		}

		var buf [wordSize]byte
		_, err := io.ReadFull(e.conn, buf[:])
		if err == nil {
			return decode(buf), nil
		}
		if ne, ok := err.(net.Error); ok && ne.Timeout() {
			continue
		}
		return NotifyNone, err
	}
	return NotifyNone, ErrLoopExhausted
}

// Close releases the endpoint's transport.
func (e *Endpoint) Close() error {
	return e.conn.Close()
}
