package printq

import "sync"

// OrphanList is the daemon-wide list of printers whose FastReloadThread
// has torn down while output was still pending. The event loop keeps
// servicing each entry until it drains, then removes it; at daemon
// shutdown the whole list is walked and every remaining printer is
// force-closed.
type OrphanList struct {
	mu    sync.Mutex
	queue []*Queue
}

// NewOrphanList returns an empty orphan list.
func NewOrphanList() *OrphanList {
	return &OrphanList{}
}

// Add moves q onto the orphan list.
func (l *OrphanList) Add(q *Queue) {
	q.MarkOrphaned()
	l.mu.Lock()
	defer l.mu.Unlock()
	l.queue = append(l.queue, q)
}

// Sweep drains every orphaned printer and removes the ones that have
// become empty or closed, returning how many were removed.
func (l *OrphanList) Sweep() int {
	l.mu.Lock()
	defer l.mu.Unlock()

	remaining := l.queue[:0]
	removed := 0
	for _, q := range l.queue {
		if q.Closed() {
			removed++
			continue
		}
		_ = q.Drain()
		if q.Empty() {
			removed++
			continue
		}
		remaining = append(remaining, q)
	}
	l.queue = remaining
	return removed
}

// Len reports how many printers are currently orphaned.
func (l *OrphanList) Len() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.queue)
}

// CloseAll force-closes every remaining orphaned printer, the daemon
// shutdown path.
func (l *OrphanList) CloseAll() {
	l.mu.Lock()
	defer l.mu.Unlock()
	for _, q := range l.queue {
		_ = q.Close()
	}
	l.queue = nil
}
