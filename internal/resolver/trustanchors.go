package resolver

import (
	"strings"
	"sync"
)

// TrustAnchors tracks DNSSEC trust anchors and negative trust
// anchors (NTAs) per zone. NTAs are the insecure_add/insecure_remove
// surface: they temporarily suppress validation failures for a zone
// without touching its configured trust anchor.
type TrustAnchors struct {
	mu       sync.RWMutex
	anchors  map[string][]string
	negative map[string]bool
}

// NewTrustAnchors returns an empty trust anchor store.
func NewTrustAnchors() *TrustAnchors {
	return &TrustAnchors{
		anchors:  make(map[string][]string),
		negative: make(map[string]bool),
	}
}

// Add records anchorRR (a DS or DNSKEY RR presentation-format string)
// as a trust anchor for zone.
func (t *TrustAnchors) Add(zone, anchorRR string) {
	zone = strings.ToLower(strings.TrimSuffix(zone, "."))
	t.mu.Lock()
	defer t.mu.Unlock()
	t.anchors[zone] = append(t.anchors[zone], anchorRR)
}

// Anchors returns the configured trust anchor RRs for zone.
func (t *TrustAnchors) Anchors(zone string) []string {
	zone = strings.ToLower(strings.TrimSuffix(zone, "."))
	t.mu.RLock()
	defer t.mu.RUnlock()
	out := make([]string, len(t.anchors[zone]))
	copy(out, t.anchors[zone])
	return out
}

// Zones returns every zone carrying a configured trust anchor.
func (t *TrustAnchors) Zones() []string {
	t.mu.RLock()
	defer t.mu.RUnlock()
	zones := make([]string, 0, len(t.anchors))
	for z := range t.anchors {
		zones = append(zones, z)
	}
	return zones
}

// InsecureAdd marks zone as a negative trust anchor: validation
// failures under zone are treated as insecure rather than bogus.
// Per spec.md §6, NTAs are always distributed to every thread
// regardless of pause/no-pause policy.
func (t *TrustAnchors) InsecureAdd(zone string) {
	zone = strings.ToLower(strings.TrimSuffix(zone, "."))
	t.mu.Lock()
	defer t.mu.Unlock()
	t.negative[zone] = true
}

// InsecureRemove clears a previously added negative trust anchor.
// Returns false if zone had none.
func (t *TrustAnchors) InsecureRemove(zone string) bool {
	zone = strings.ToLower(strings.TrimSuffix(zone, "."))
	t.mu.Lock()
	defer t.mu.Unlock()
	if !t.negative[zone] {
		return false
	}
	delete(t.negative, zone)
	return true
}

// IsNegativeAnchor reports whether zone currently carries a negative
// trust anchor.
func (t *TrustAnchors) IsNegativeAnchor(zone string) bool {
	zone = strings.ToLower(strings.TrimSuffix(zone, "."))
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.negative[zone]
}

// NegativeZones returns every zone currently carrying a negative
// trust anchor.
func (t *TrustAnchors) NegativeZones() []string {
	t.mu.RLock()
	defer t.mu.RUnlock()
	zones := make([]string, 0, len(t.negative))
	for z := range t.negative {
		zones = append(zones, z)
	}
	return zones
}
