// Package printq implements the streaming printer that renders
// fast-reload background output back to the originating control
// connection, decoupled so that connection's lifetime from the
// background thread's: the queue survives the client going away (it
// is simply drained to nowhere and then dropped) and survives the
// fast-reload thread finishing (it is orphaned onto a daemon-wide
// list until its backlog drains).
package printq

import (
	"errors"
	"io"
	"net"
	"sync"
)

// ErrClosed is returned by Push/Drain once the queue has been closed.
var ErrClosed = errors.New("printq: closed")

// Queue spools text lines produced by a fast-reload background
// thread to a client connection, one line at a time, without
// blocking the producer on slow or stalled client I/O.
type Queue struct {
	mu       sync.Mutex
	conn     net.Conn
	toPrint  [][]byte
	closed   bool
	inList   bool // true once orphaned onto the daemon's list
	writeErr error
}

// New wraps conn (the session's comm point, moved away from its
// Session once fast-reload absorbs it) in a streaming printer.
func New(conn net.Conn) *Queue {
	return &Queue{conn: conn}
}

// Push appends a line to the pending output FIFO. Safe to call from
// the background thread while Drain runs concurrently on the
// consumer side.
func (q *Queue) Push(line string) error {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.closed {
		return ErrClosed
	}
	q.toPrint = append(q.toPrint, []byte(line))
	return nil
}

// Pending reports how many lines are queued but not yet written.
func (q *Queue) Pending() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.toPrint)
}

// Drain writes every currently queued line to the client connection,
// one at a time, stopping at the first write error. Per spec.md
// §4.7, a write failure ends the session: the queue is closed and
// the connection torn down rather than retried.
func (q *Queue) Drain() error {
	q.mu.Lock()
	if q.closed {
		q.mu.Unlock()
		return ErrClosed
	}
	pending := q.toPrint
	q.toPrint = nil
	conn := q.conn
	q.mu.Unlock()

	for _, line := range pending {
		if _, err := conn.Write(line); err != nil {
			q.closeWithError(err)
			return err
		}
	}
	return nil
}

func (q *Queue) closeWithError(err error) {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.closed {
		return
	}
	q.closed = true
	q.writeErr = err
	_ = q.conn.Close()
}

// Close shuts the queue down and closes the underlying connection.
// Safe to call multiple times.
func (q *Queue) Close() error {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.closed {
		return nil
	}
	q.closed = true
	return q.conn.Close()
}

// Closed reports whether the queue has been closed, either
// explicitly or by a write failure.
func (q *Queue) Closed() bool {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.closed
}

// Err returns the error that caused the queue to close, if any.
func (q *Queue) Err() error {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.writeErr
}

// Empty reports whether the queue has no pending output. Used by the
// orphan list to decide when a printer can be removed.
func (q *Queue) Empty() bool {
	return q.Pending() == 0
}

// MarkOrphaned records that this queue has been moved onto the
// daemon's orphan list because its FastReloadThread backlink was torn
// down while output was still pending.
func (q *Queue) MarkOrphaned() {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.inList = true
}

// Orphaned reports whether this queue is on the daemon's orphan list.
func (q *Queue) Orphaned() bool {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.inList
}

var _ io.Closer = (*Queue)(nil)
