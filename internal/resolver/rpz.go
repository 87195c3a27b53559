package resolver

import (
	"strings"
	"sync"
)

// RPZZones tracks the enabled/disabled state of configured
// response-policy zones, the surface the rpz_enable/rpz_disable
// control commands mutate.
type RPZZones struct {
	mu      sync.RWMutex
	enabled map[string]bool
}

// NewRPZZones returns a store with every zone in names initially
// enabled.
func NewRPZZones(names []string) *RPZZones {
	z := &RPZZones{enabled: make(map[string]bool, len(names))}
	for _, n := range names {
		z.enabled[strings.ToLower(strings.TrimSuffix(n, "."))] = true
	}
	return z
}

// Enable turns zone on. Returns false if zone is not configured.
func (z *RPZZones) Enable(zone string) bool {
	return z.set(zone, true)
}

// Disable turns zone off. Returns false if zone is not configured.
func (z *RPZZones) Disable(zone string) bool {
	return z.set(zone, false)
}

func (z *RPZZones) set(zone string, state bool) bool {
	zone = strings.ToLower(strings.TrimSuffix(zone, "."))
	z.mu.Lock()
	defer z.mu.Unlock()
	if _, ok := z.enabled[zone]; !ok {
		return false
	}
	z.enabled[zone] = state
	return true
}

// Enabled reports whether zone is configured and currently enabled.
func (z *RPZZones) Enabled(zone string) bool {
	zone = strings.ToLower(strings.TrimSuffix(zone, "."))
	z.mu.RLock()
	defer z.mu.RUnlock()
	return z.enabled[zone]
}

// Zones returns every configured RPZ zone with its enabled state.
func (z *RPZZones) Zones() map[string]bool {
	z.mu.RLock()
	defer z.mu.RUnlock()
	out := make(map[string]bool, len(z.enabled))
	for k, v := range z.enabled {
		out[k] = v
	}
	return out
}
