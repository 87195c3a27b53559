package handlers

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/talvera/resolverd/internal/rc/dispatch"
	"github.com/talvera/resolverd/internal/resolver"
)

func fields(args string) []string {
	return strings.Fields(args)
}

// LocalZone sets or replaces a statically-answered zone: "zone type".
func LocalZone(ctx context.Context, env *dispatch.Env) (*dispatch.Result, error) {
	f := fields(env.Args)
	if len(f) != 2 {
		return nil, fmt.Errorf("local_zone: expected 'zone type', got %q", env.Args)
	}
	existing, _ := env.Collab.Locals.Get(f[0])
	existing.Name = f[0]
	existing.Type = f[1]
	env.Collab.Locals.Put(f[0], existing)
	return dispatch.OK(), nil
}

// LocalZoneRemove deletes a local zone entirely.
func LocalZoneRemove(ctx context.Context, env *dispatch.Env) (*dispatch.Result, error) {
	if strings.TrimSpace(env.Args) == "" {
		return nil, fmt.Errorf("local_zone_remove: zone name required")
	}
	env.Collab.Locals.Delete(strings.TrimSpace(env.Args))
	return dispatch.OK(), nil
}

// LocalData adds one RR text to the zone named by its owner (the RR
// line's first field), creating an implicit static zone if none
// exists yet for that owner.
func LocalData(ctx context.Context, env *dispatch.Env) (*dispatch.Result, error) {
	rr := strings.TrimSpace(env.Args)
	if rr == "" {
		return nil, fmt.Errorf("local_data: RR text required")
	}
	owner := fields(rr)[0]
	zone, _ := env.Collab.Locals.Get(owner)
	zone.Name = owner
	if zone.Type == "" {
		zone.Type = "static"
	}
	zone.Data = append(zone.Data, rr)
	env.Collab.Locals.Put(owner, zone)
	return dispatch.OK(), nil
}

// LocalDataRemove removes a previously added RR text from its zone's
// data list, by exact match.
func LocalDataRemove(ctx context.Context, env *dispatch.Env) (*dispatch.Result, error) {
	rr := strings.TrimSpace(env.Args)
	if rr == "" {
		return nil, fmt.Errorf("local_data_remove: RR text required")
	}
	owner := fields(rr)[0]
	zone, ok := env.Collab.Locals.Get(owner)
	if !ok {
		return dispatch.OK(), nil
	}
	kept := zone.Data[:0]
	for _, line := range zone.Data {
		if line != rr {
			kept = append(kept, line)
		}
	}
	zone.Data = kept
	env.Collab.Locals.Put(owner, zone)
	return dispatch.OK(), nil
}

// bulkApply reads additional lines from the session (spec.md §4.2's
// "(stdin stream)" bulk variants) and applies one(line) to each.
func bulkApply(env *dispatch.Env, one func(line string) error) (*dispatch.Result, error) {
	lines, err := env.Session.ReadBulkLines()
	if err != nil {
		return nil, fmt.Errorf("reading bulk input: %w", err)
	}
	applied := 0
	for _, line := range lines {
		if strings.TrimSpace(line) == "" {
			continue
		}
		if err := one(line); err != nil {
			return nil, err
		}
		applied++
	}
	return dispatch.Lines(fmt.Sprintf("ok %d entries applied", applied)), nil
}

// LocalZones is the bulk variant of LocalZone.
func LocalZones(ctx context.Context, env *dispatch.Env) (*dispatch.Result, error) {
	return bulkApply(env, func(line string) error {
		f := fields(line)
		if len(f) != 2 {
			return fmt.Errorf("local_zones: expected 'zone type', got %q", line)
		}
		existing, _ := env.Collab.Locals.Get(f[0])
		existing.Name, existing.Type = f[0], f[1]
		env.Collab.Locals.Put(f[0], existing)
		return nil
	})
}

// LocalZonesRemove is the bulk variant of LocalZoneRemove.
func LocalZonesRemove(ctx context.Context, env *dispatch.Env) (*dispatch.Result, error) {
	return bulkApply(env, func(line string) error {
		env.Collab.Locals.Delete(strings.TrimSpace(line))
		return nil
	})
}

// LocalDatas is the bulk variant of LocalData.
func LocalDatas(ctx context.Context, env *dispatch.Env) (*dispatch.Result, error) {
	return bulkApply(env, func(line string) error {
		owner := fields(line)[0]
		zone, _ := env.Collab.Locals.Get(owner)
		zone.Name = owner
		if zone.Type == "" {
			zone.Type = "static"
		}
		zone.Data = append(zone.Data, line)
		env.Collab.Locals.Put(owner, zone)
		return nil
	})
}

// LocalDatasRemove is the bulk variant of LocalDataRemove.
func LocalDatasRemove(ctx context.Context, env *dispatch.Env) (*dispatch.Result, error) {
	return bulkApply(env, func(line string) error {
		owner := fields(line)[0]
		zone, ok := env.Collab.Locals.Get(owner)
		if !ok {
			return nil
		}
		kept := zone.Data[:0]
		for _, existing := range zone.Data {
			if existing != line {
				kept = append(kept, existing)
			}
		}
		zone.Data = kept
		env.Collab.Locals.Put(owner, zone)
		return nil
	})
}

// parseFlagToken reads a leading "+<flags>" token if present, and
// returns the flags seen plus the remaining fields.
func parseFlagToken(f []string) (flags string, rest []string) {
	if len(f) > 0 && strings.HasPrefix(f[0], "+") {
		return f[0][1:], f[1:]
	}
	return "", f
}

// forwardFromArgs parses "[+it] zone servers…" into a ForwardZone.
func forwardFromArgs(args string) (resolver.ForwardZone, error) {
	flags, rest := parseFlagToken(fields(args))
	if len(rest) < 2 {
		return resolver.ForwardZone{}, fmt.Errorf("forward: expected 'zone servers...', got %q", args)
	}
	return resolver.ForwardZone{
		Zone:     rest[0],
		Insecure: strings.ContainsRune(flags, 'i'),
		TLS:      strings.ContainsRune(flags, 't'),
		Servers:  rest[1:],
	}, nil
}

// Forward and ForwardAdd both set (or replace) a forward zone entry.
func Forward(ctx context.Context, env *dispatch.Env) (*dispatch.Result, error) {
	fz, err := forwardFromArgs(env.Args)
	if err != nil {
		return nil, err
	}
	env.Collab.Forwards.Put(fz.Zone, fz)
	return dispatch.OK(), nil
}

// forwardFlags renders a ForwardZone's insecure/TLS bits back into the
// "+it"-style token list_forwards echoes.
func forwardFlags(insecure, tls bool) string {
	flags := ""
	if insecure {
		flags += "i"
	}
	if tls {
		flags += "t"
	}
	if flags == "" {
		return ""
	}
	return "+" + flags + " "
}

// ListForwards prints one line per configured forward zone, in the
// "zone IN forward [+flags] server…" shape list_forwards' round-trip
// test expects to see after a forward_add.
func ListForwards(ctx context.Context, env *dispatch.Env) (*dispatch.Result, error) {
	names := env.Collab.Forwards.Names()
	sort.Strings(names)
	lines := make([]string, 0, len(names))
	for _, name := range names {
		fz, ok := env.Collab.Forwards.Get(name)
		if !ok {
			continue
		}
		lines = append(lines, fmt.Sprintf("%s IN forward %s%s", fz.Zone, forwardFlags(fz.Insecure, fz.TLS), strings.Join(fz.Servers, " ")))
	}
	return dispatch.Lines(lines...), nil
}

// ListLocalZones prints one "name type" line per configured local
// zone, the base (non-view) counterpart to ViewListLocalZones.
func ListLocalZones(ctx context.Context, env *dispatch.Env) (*dispatch.Result, error) {
	names := env.Collab.Locals.Names()
	sort.Strings(names)
	lines := make([]string, 0, len(names))
	for _, name := range names {
		z, ok := env.Collab.Locals.Get(name)
		if !ok {
			continue
		}
		lines = append(lines, fmt.Sprintf("%s %s", z.Name, z.Type))
	}
	return dispatch.Lines(lines...), nil
}

// ForwardRemove deletes a forward zone entry.
func ForwardRemove(ctx context.Context, env *dispatch.Env) (*dispatch.Result, error) {
	zone := strings.TrimSpace(env.Args)
	if zone == "" {
		return nil, fmt.Errorf("forward_remove: zone name required")
	}
	env.Collab.Forwards.Delete(zone)
	return dispatch.OK(), nil
}

// StubAdd parses "[+ipt] zone servers…" and sets a stub zone entry.
func StubAdd(ctx context.Context, env *dispatch.Env) (*dispatch.Result, error) {
	flags, rest := parseFlagToken(fields(env.Args))
	if len(rest) < 2 {
		return nil, fmt.Errorf("stub_add: expected 'zone servers...', got %q", env.Args)
	}
	sz := resolver.StubZone{
		Zone:     rest[0],
		Insecure: strings.ContainsRune(flags, 'i'),
		TLS:      strings.ContainsRune(flags, 't'),
		Prime:    strings.ContainsRune(flags, 'p'),
		Servers:  rest[1:],
	}
	env.Collab.Stubs.Put(sz.Zone, sz)
	return dispatch.OK(), nil
}

// StubRemove deletes a stub zone entry.
func StubRemove(ctx context.Context, env *dispatch.Env) (*dispatch.Result, error) {
	zone := strings.TrimSpace(env.Args)
	if zone == "" {
		return nil, fmt.Errorf("stub_remove: zone name required")
	}
	env.Collab.Stubs.Delete(zone)
	return dispatch.OK(), nil
}

// ViewLocalZone is the generalized per-view local_zone handler
// (SPEC_FULL.md §6): "view zone type" sets a local zone scoped to
// one named view, instead of duplicating a handler per view as the
// original does.
func ViewLocalZone(ctx context.Context, env *dispatch.Env) (*dispatch.Result, error) {
	f := fields(env.Args)
	if len(f) != 3 {
		return nil, fmt.Errorf("view_local_zone: expected 'view zone type', got %q", env.Args)
	}
	viewName, zone, typ := f[0], f[1], f[2]

	view, _ := env.Collab.Views.Get(viewName)
	view.Name = viewName
	if view.LocalZones == nil {
		view.LocalZones = make(map[string]resolver.LocalZone)
	}
	view.LocalZones[strings.ToLower(zone)] = resolver.LocalZone{Name: zone, Type: typ}
	env.Collab.Views.Put(viewName, view)
	return dispatch.OK(), nil
}

// ViewListLocalZones lists the local zones configured for one view.
func ViewListLocalZones(ctx context.Context, env *dispatch.Env) (*dispatch.Result, error) {
	viewName := strings.TrimSpace(env.Args)
	if viewName == "" {
		return nil, fmt.Errorf("view_list_local_zones: view name required")
	}
	view, ok := env.Collab.Views.Get(viewName)
	if !ok {
		return nil, fmt.Errorf("no view named %q", viewName)
	}
	lines := make([]string, 0, len(view.LocalZones))
	for _, z := range view.LocalZones {
		lines = append(lines, fmt.Sprintf("%s %s", z.Name, z.Type))
	}
	return dispatch.Lines(lines...), nil
}
