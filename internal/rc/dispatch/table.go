// Package dispatch implements the control channel's command grammar:
// longest-unique-prefix verb matching against a fixed table, and the
// distribution policy that replays state-mutating commands over every
// other resolver worker's command tube (spec.md §4.2).
package dispatch

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/talvera/resolverd/internal/auditlog"
	"github.com/talvera/resolverd/internal/config"
	"github.com/talvera/resolverd/internal/ipc"
	"github.com/talvera/resolverd/internal/metrics"
	"github.com/talvera/resolverd/internal/printq"
	"github.com/talvera/resolverd/internal/ratelimit"
	"github.com/talvera/resolverd/internal/rc"
	"github.com/talvera/resolverd/internal/resolver"
)

// LevelVar is the narrow interface the verbosity handler needs onto
// the daemon's live log level, implemented by *slog.LevelVar.
type LevelVar interface {
	Set(slog.Level)
	Level() slog.Level
}

// HandlerFunc implements one command verb's effect and formats its
// response lines.
type HandlerFunc func(ctx context.Context, env *Env) (*Result, error)

// Result is a handler's textual response, one entry per output line
// (without trailing "\n" — the dispatcher appends it).
type Result struct {
	Lines []string
}

// OK is the conventional single-line success response for a mutating
// command, per spec.md §4.1.
func OK() *Result { return &Result{Lines: []string{"ok"}} }

// Lines builds a Result from the given lines.
func Lines(lines ...string) *Result { return &Result{Lines: lines} }

// Command is one entry of the dispatch table: a verb, its handler,
// and the distribution policy spec.md §4.2 assigns it.
type Command struct {
	Verb string
	// Distributed marks a state-mutating command that, once applied
	// locally, is replayed over every other worker's command tube.
	Distributed bool
	// AlwaysDistribute marks a command distributed even when the rest
	// of the distribution machinery would otherwise be disabled (the
	// source's "threads disabled build" carve-out; this Go daemon has
	// no such build mode, so in practice this behaves identically to
	// Distributed — kept as a distinct flag to preserve the policy
	// table's shape and intent).
	AlwaysDistribute bool
	// NoReplay marks a Distributed command whose handler consumes
	// further lines off the originating Session (the bulk "_zones"/
	// "_datas" variants, via bulkApply). Those lines are drained from
	// the wire before distribution and never reach a worker's replay,
	// so a worker receiving this verb cannot re-run the handler
	// safely — it applies the command exactly once, on the primary,
	// against the collaborators every worker already shares.
	NoReplay bool
	Handler  HandlerFunc
}

// Table is the command dispatch table: commands matched by longest
// unique prefix, per spec.md §4.2.
type Table struct {
	commands []Command
}

// NewTable builds a dispatch table from cmds. Verb order does not
// affect matching; prefix uniqueness is checked at lookup time.
func NewTable(cmds []Command) *Table {
	return &Table{commands: cmds}
}

// ErrAmbiguous is returned when a prefix matches more than one verb.
type ErrAmbiguous struct{ Prefix string }

func (e *ErrAmbiguous) Error() string {
	return fmt.Sprintf("ambiguous command prefix %q", e.Prefix)
}

// ErrUnknown is returned when a prefix matches no verb.
type ErrUnknown struct{ Prefix string }

func (e *ErrUnknown) Error() string {
	return fmt.Sprintf("unknown command '%s'", e.Prefix)
}

// Lookup finds the command matching prefix by longest unique prefix
// match: an exact verb match always wins outright; otherwise prefix
// must identify exactly one verb or the match is ambiguous.
func (t *Table) Lookup(prefix string) (*Command, error) {
	for i := range t.commands {
		if t.commands[i].Verb == prefix {
			return &t.commands[i], nil
		}
	}

	var match *Command
	for i := range t.commands {
		if strings.HasPrefix(t.commands[i].Verb, prefix) {
			if match != nil {
				return nil, &ErrAmbiguous{Prefix: prefix}
			}
			match = &t.commands[i]
		}
	}
	if match == nil {
		return nil, &ErrUnknown{Prefix: prefix}
	}
	return match, nil
}

// Lifecycle is the daemon's process-control surface: the stop and
// reload handlers only need to request these transitions, not own
// them, since the actual event-loop teardown lives in cmd/resolverd.
type Lifecycle interface {
	Stop()
	Reload(keepCache bool)
}

// Shared is the daemon-wide state every command handler may touch,
// constructed once and reused across every Session's Env.
type Shared struct {
	Collab        *resolver.Collaborators
	Tubes         []*ipc.WorkerTube
	ConfigService config.ConfigService
	RateLimiters  *ratelimit.Registry
	Metrics       *metrics.Recorder
	AuditLog      auditlog.Log
	Launcher      FastReloadLauncher
	Lifecycle     Lifecycle
	// Orphans holds fast-reload printqs whose originating session has
	// disconnected while output was still pending, per spec.md §4.7.
	Orphans *printq.OrphanList
	Logger  *slog.Logger
	// LevelVar backs the verbosity command's live adjustment of the
	// daemon's log level. Nil when the logger was built without one,
	// in which case verbosity fails with an error.
	LevelVar LevelVar
	// StartedAt is when the daemon came up, for the status command's
	// uptime line.
	StartedAt time.Time
}

// Env is the per-invocation handler context: Shared state plus this
// call's session, verb, and argument string.
type Env struct {
	*Shared
	Session *rc.Session
	Verb    string
	Args    string
}
