package handlers

import (
	"context"
	"fmt"
	"net"
	"strconv"
	"strings"

	"github.com/talvera/resolverd/internal/rc/dispatch"
)

// commonRRTypes maps the mnemonic RR type names the control protocol
// accepts to their numeric values, covering the types flush_type is
// realistically invoked with; a bare number is also accepted.
var commonRRTypes = map[string]uint16{
	"A": 1, "NS": 2, "CNAME": 5, "SOA": 6, "PTR": 12, "MX": 15,
	"TXT": 16, "AAAA": 28, "SRV": 33, "DS": 43, "RRSIG": 46,
	"NSEC": 47, "DNSKEY": 48, "NSEC3": 50, "TLSA": 52, "CAA": 257,
}

func parseRRType(s string) (uint16, error) {
	if n, ok := commonRRTypes[strings.ToUpper(s)]; ok {
		return n, nil
	}
	n, err := strconv.Atoi(s)
	if err != nil || n < 0 || n > 65535 {
		return 0, fmt.Errorf("unknown RR type %q", s)
	}
	return uint16(n), nil
}

// FlushZone lowers the TTL of every rrset, message, and key-cache
// entry at or below the given zone, per spec.md §4.3.
func FlushZone(ctx context.Context, env *dispatch.Env) (*dispatch.Result, error) {
	zone := strings.TrimSpace(env.Args)
	if zone == "" {
		return nil, fmt.Errorf("flush_zone: zone name required")
	}
	rrsets := env.Collab.RRsets.FlushZone(zone)
	messages := env.Collab.Messages.FlushZone(zone)
	keys := env.Collab.Keys.FlushZone(zone)
	return dispatch.Lines(fmt.Sprintf("ok removed %d rrsets, %d messages and %d key entries", rrsets, messages, keys)), nil
}

// FlushName lowers the TTL of every rrset and message cached for
// exactly the given name.
func FlushName(ctx context.Context, env *dispatch.Env) (*dispatch.Result, error) {
	name := strings.TrimSpace(env.Args)
	if name == "" {
		return nil, fmt.Errorf("flush_name: name required")
	}
	rrsets := env.Collab.RRsets.FlushName(name)
	messages := env.Collab.Messages.FlushName(name)
	return dispatch.Lines(fmt.Sprintf("ok removed %d rrsets and %d messages", rrsets, messages)), nil
}

// FlushType lowers the TTL of every rrset cached for "name type".
func FlushType(ctx context.Context, env *dispatch.Env) (*dispatch.Result, error) {
	f := fields(env.Args)
	if len(f) != 2 {
		return nil, fmt.Errorf("flush_type: expected 'name type', got %q", env.Args)
	}
	qtype, err := parseRRType(f[1])
	if err != nil {
		return nil, err
	}
	n := env.Collab.RRsets.FlushType(f[0], qtype)
	return dispatch.Lines(fmt.Sprintf("ok removed %d rrsets", n)), nil
}

// FlushInfra clears the whole infrastructure cache, or resets one
// host when given an IP argument.
func FlushInfra(ctx context.Context, env *dispatch.Env) (*dispatch.Result, error) {
	arg := strings.TrimSpace(env.Args)
	if arg == "" || strings.EqualFold(arg, "all") {
		n := env.Collab.Infra.FlushAll()
		return dispatch.Lines(fmt.Sprintf("ok removed %d hosts", n)), nil
	}
	if net.ParseIP(arg) == nil {
		return nil, fmt.Errorf("flush_infra: invalid IP %q", arg)
	}
	if env.Collab.Infra.FlushHost(arg) {
		return dispatch.Lines("ok removed 1 host"), nil
	}
	return dispatch.Lines("ok removed 0 hosts"), nil
}

// FlushBogus lowers the TTL of every rrset whose security status is
// bogus.
func FlushBogus(ctx context.Context, env *dispatch.Env) (*dispatch.Result, error) {
	n := env.Collab.RRsets.FlushBogus()
	return dispatch.Lines(fmt.Sprintf("ok removed %d rrsets", n)), nil
}

// FlushNegative lowers the TTL of every negative-caching rrset,
// non-NOERROR/empty-answer message, and bad-state key entry, per
// spec.md §4.3.
func FlushNegative(ctx context.Context, env *dispatch.Env) (*dispatch.Result, error) {
	rrsets := env.Collab.RRsets.FlushNegative()
	messages := env.Collab.Messages.FlushNegative()
	keys := env.Collab.Keys.FlushBad()
	return dispatch.Lines(fmt.Sprintf("ok removed %d rrsets, %d messages and %d key entries", rrsets, messages, keys)), nil
}

// FlushRequestlist drops every in-flight query's mesh state on this
// worker, the "always distribute" counterpart to drop-mesh: pending
// queriers waiting on that state get an error answer rather than a
// stale result once the collaborators it depends on are gone.
func FlushRequestlist(ctx context.Context, env *dispatch.Env) (*dispatch.Result, error) {
	if env.Collab == nil {
		return dispatch.OK(), nil
	}
	n := env.Collab.Mesh.FlushAll()
	return dispatch.Lines(fmt.Sprintf("ok flushed %d requests", n)), nil
}
