package resolver

import (
	"strings"
	"sync"
)

// Mesh tracks in-flight query states awaiting upstream answers, so
// the control channel can report query concurrency and drop stuck
// queries for a name without waiting for them to time out on their
// own.
type Mesh struct {
	mu       sync.Mutex
	inFlight map[string]int
}

// NewMesh returns an empty mesh tracker.
func NewMesh() *Mesh {
	return &Mesh{inFlight: make(map[string]int)}
}

// Track records one more in-flight query for qname. Real query
// dispatch (out of scope here) calls this when a query mesh state is
// created.
func (m *Mesh) Track(qname string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.inFlight[strings.ToLower(qname)]++
}

// Settle records that one in-flight query for qname has completed.
func (m *Mesh) Settle(qname string) {
	qname = strings.ToLower(qname)
	m.mu.Lock()
	defer m.mu.Unlock()
	if n := m.inFlight[qname]; n <= 1 {
		delete(m.inFlight, qname)
	} else {
		m.inFlight[qname] = n - 1
	}
}

// InFlight returns the number of queries currently tracked for qname.
func (m *Mesh) InFlight(qname string) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.inFlight[strings.ToLower(qname)]
}

// Total returns the number of queries tracked across all names.
func (m *Mesh) Total() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	total := 0
	for _, n := range m.inFlight {
		total += n
	}
	return total
}

// Drop discards all in-flight state for qname, the effect backing the
// drop-mesh control command: pending queriers waiting on that state
// get an error answer instead of a result.
func (m *Mesh) Drop(qname string) int {
	qname = strings.ToLower(qname)
	m.mu.Lock()
	defer m.mu.Unlock()
	n := m.inFlight[qname]
	delete(m.inFlight, qname)
	return n
}

// FlushAll discards every in-flight query's mesh state across all
// names, the effect backing the flush_requestlist control command,
// and reports how many queries were cleared.
func (m *Mesh) FlushAll() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	total := 0
	for _, n := range m.inFlight {
		total += n
	}
	m.inFlight = make(map[string]int)
	return total
}
