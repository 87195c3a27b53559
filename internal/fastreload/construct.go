package fastreload

import (
	"unsafe"

	"github.com/talvera/resolverd/internal/config"
	"github.com/talvera/resolverd/internal/resolver"
)

// Construct holds the config-derived structures a fast-reload rebuild
// produces before publication: views, forward zones, stub zones and
// local zones. Hints is not filled in, since Config has no root-hints
// section, so publishing a Construct leaves the live Collaborators
// with empty hints. Everything here is a pure function of
// the new Config — the rebuild never touches the live caches, so it
// can run entirely on the background thread without synchronization.
type Construct struct {
	Views    map[string]resolver.ViewConfig
	Forwards map[string]resolver.ForwardZone
	Stubs    map[string]resolver.StubZone
	Locals   map[string]resolver.LocalZone
	Hints    resolver.Hints
}

// BuildConstruct rebuilds views/forwards/stubs/locals from cfg; hints
// are not rebuilt.
// This is step 3 of the background pipeline (spec.md §4.4); it must
// not mutate anything reachable from the live Collaborators.
func BuildConstruct(cfg *config.Config) *Construct {
	c := &Construct{
		Views:    make(map[string]resolver.ViewConfig, len(cfg.Views)),
		Forwards: make(map[string]resolver.ForwardZone, len(cfg.Forwards)),
		Stubs:    make(map[string]resolver.StubZone, len(cfg.Stubs)),
		Locals:   make(map[string]resolver.LocalZone, len(cfg.Locals)),
	}

	for _, v := range cfg.Views {
		locals := make(map[string]resolver.LocalZone, len(v.LocalZones))
		for _, lz := range v.LocalZones {
			locals[lz.Name] = resolver.LocalZone{Name: lz.Name, Type: lz.Type, Data: lz.Data}
		}
		c.Views[v.Name] = resolver.ViewConfig{Name: v.Name, LocalZones: locals}
	}

	for _, f := range cfg.Forwards {
		c.Forwards[f.Zone] = resolver.ForwardZone{
			Zone: f.Zone, Insecure: f.Insecure, TLS: f.TLS, Servers: append([]string(nil), f.Servers...),
		}
	}

	for _, s := range cfg.Stubs {
		c.Stubs[s.Zone] = resolver.StubZone{
			Zone: s.Zone, Insecure: s.Insecure, TLS: s.TLS, Prime: s.Prime, Servers: append([]string(nil), s.Servers...),
		}
	}

	for _, lz := range cfg.Locals {
		c.Locals[lz.Name] = resolver.LocalZone{Name: lz.Name, Type: lz.Type, Data: lz.Data}
	}

	return c
}

// EstimateBytes returns a rough estimate of the memory the construct
// occupies, used for the verbose "print memory" phase (spec.md §4.4
// step 4). It does not need to be exact, only indicative.
func (c *Construct) EstimateBytes() int64 {
	var total int64
	total += int64(len(c.Views)) * int64(unsafe.Sizeof(resolver.ViewConfig{}))
	total += int64(len(c.Forwards)) * int64(unsafe.Sizeof(resolver.ForwardZone{}))
	total += int64(len(c.Stubs)) * int64(unsafe.Sizeof(resolver.StubZone{}))
	total += int64(len(c.Locals)) * int64(unsafe.Sizeof(resolver.LocalZone{}))

	for _, f := range c.Forwards {
		for _, s := range f.Servers {
			total += int64(len(s))
		}
	}
	for _, s := range c.Stubs {
		for _, srv := range s.Servers {
			total += int64(len(srv))
		}
	}
	for _, lz := range c.Locals {
		for _, d := range lz.Data {
			total += int64(len(d))
		}
	}
	return total
}
