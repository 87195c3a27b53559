package handlers

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/talvera/resolverd/internal/rc/dispatch"
	"github.com/talvera/resolverd/internal/resolver"
)

func longestSuffixMatch(name string, candidates []string) (string, bool) {
	name = strings.ToLower(strings.TrimSuffix(name, "."))
	best, bestNorm := "", ""
	found := false
	for _, orig := range candidates {
		c := strings.ToLower(strings.TrimSuffix(orig, "."))
		if name != c && !strings.HasSuffix(name, "."+c) {
			continue
		}
		if len(c) >= len(bestNorm) {
			best, bestNorm, found = orig, c, true
		}
	}
	return best, found
}

// matchingLocalData returns the local-data RR lines owned by name,
// the records lookup surfaces for a matched local zone: remote.c's
// own lookup prints the data, not just the zone it lives under.
func matchingLocalData(name string, data []string) []string {
	want := strings.ToLower(strings.TrimSuffix(name, "."))
	var lines []string
	for _, rr := range data {
		f := fields(rr)
		if len(f) == 0 {
			continue
		}
		owner := strings.ToLower(strings.TrimSuffix(f[0], "."))
		if owner == want {
			lines = append(lines, rr)
		}
	}
	return lines
}

// Lookup prints which delegation (stub, forward, or local zone) owns
// name, the "delegation lookup diagnostic" spec.md §4.2 describes.
func Lookup(ctx context.Context, env *dispatch.Env) (*dispatch.Result, error) {
	name := strings.TrimSpace(env.Args)
	if name == "" {
		return nil, fmt.Errorf("lookup: name required")
	}

	if zone, ok := longestSuffixMatch(name, env.Collab.Locals.Names()); ok {
		lz, _ := env.Collab.Locals.Get(zone)
		lines := []string{fmt.Sprintf("%s local zone %s (type %s)", name, zone, lz.Type)}
		lines = append(lines, matchingLocalData(name, lz.Data)...)
		return dispatch.Lines(lines...), nil
	}
	if zone, ok := longestSuffixMatch(name, env.Collab.Stubs.Names()); ok {
		sz, _ := env.Collab.Stubs.Get(zone)
		return dispatch.Lines(fmt.Sprintf("%s stub zone %s servers %s", name, zone, strings.Join(sz.Servers, ","))), nil
	}
	if zone, ok := longestSuffixMatch(name, env.Collab.Forwards.Names()); ok {
		fz, _ := env.Collab.Forwards.Get(zone)
		return dispatch.Lines(fmt.Sprintf("%s forward zone %s servers %s", name, zone, strings.Join(fz.Servers, ","))), nil
	}
	if len(env.Collab.Hints.Servers) > 0 {
		return dispatch.Lines(fmt.Sprintf("%s resolved via root hints %s", name, strings.Join(env.Collab.Hints.Servers, ","))), nil
	}
	return dispatch.Lines(fmt.Sprintf("%s no delegation found", name)), nil
}

// DumpCache renders the RRset cache as text lines: "owner type expires".
func DumpCache(ctx context.Context, env *dispatch.Env) (*dispatch.Result, error) {
	entries := env.Collab.RRsets.Entries()
	lines := make([]string, 0, len(entries)+1)
	lines = append(lines, "START_RRSET_CACHE")
	for _, e := range entries {
		lines = append(lines, fmt.Sprintf("%s %d %d", e.Owner, e.Type, e.Expires.Unix()))
	}
	lines = append(lines, "END_RRSET_CACHE")
	return dispatch.Lines(lines...), nil
}

// LoadCache restores RRset cache entries from the bulk text format
// DumpCache produces.
func LoadCache(ctx context.Context, env *dispatch.Env) (*dispatch.Result, error) {
	lines, err := env.Session.ReadBulkLines()
	if err != nil {
		return nil, fmt.Errorf("reading bulk input: %w", err)
	}
	loaded := 0
	for _, line := range lines {
		line = strings.TrimSpace(line)
		if line == "" || line == "START_RRSET_CACHE" || line == "END_RRSET_CACHE" {
			continue
		}
		f := fields(line)
		if len(f) != 3 {
			continue
		}
		qtype, err := strconv.Atoi(f[1])
		if err != nil {
			continue
		}
		expires, err := strconv.ParseInt(f[2], 10, 64)
		if err != nil {
			continue
		}
		env.Collab.RRsets.Put(&resolver.RRSet{
			Owner:   f[0],
			Type:    uint16(qtype),
			Expires: time.Unix(expires, 0),
		})
		loaded++
	}
	return dispatch.Lines(fmt.Sprintf("ok loaded %d rrsets", loaded)), nil
}
