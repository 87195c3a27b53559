package dispatch

import (
	"context"
	"fmt"
	"net"
	"time"

	"github.com/talvera/resolverd/internal/auditlog"
	"github.com/talvera/resolverd/internal/ipc"
	"github.com/talvera/resolverd/internal/rc"
)

// Dispatcher is the concrete rc.Dispatcher: it reads the magic and
// command line off a Session, looks the verb up in a Table, runs the
// handler, writes the response, and replays state-mutating commands
// to every other worker's command tube.
type Dispatcher struct {
	table  *Table
	shared *Shared
}

// NewDispatcher builds a Dispatcher over table, sharing shared across
// every Session it handles.
func NewDispatcher(table *Table, shared *Shared) *Dispatcher {
	return &Dispatcher{table: table, shared: shared}
}

// Dispatch implements rc.Dispatcher. Per spec.md §6, the protocol is
// one command per connection: magic, one line, zero or more response
// lines, then the caller tears the connection down (unless the
// handler has moved it into a printq, e.g. fast_reload).
func (d *Dispatcher) Dispatch(ctx context.Context, s *rc.Session) error {
	if err := s.ReadMagic(); err != nil {
		return fmt.Errorf("dispatch: magic: %w", err)
	}

	line, err := s.ReadCommandLine()
	if err != nil {
		return fmt.Errorf("dispatch: command line: %w", err)
	}

	verb, args := splitCommand(line)
	if verb == "" {
		return s.WriteLine("error no command given")
	}

	if d.shared.RateLimiters != nil && !d.shared.RateLimiters.Allow(hostIP(s.RemoteAddr())) {
		d.recordOutcome(ctx, s, verb, args, "rate_limited", "")
		return s.WriteLine("error rate limit exceeded")
	}

	cmd, err := d.table.Lookup(verb)
	if err != nil {
		d.recordOutcome(ctx, s, verb, args, "unknown", err.Error())
		return s.WriteLine(fmt.Sprintf("error %s", err.Error()))
	}

	env := &Env{Shared: d.shared, Session: s, Verb: cmd.Verb, Args: args}

	start := time.Now()
	result, herr := cmd.Handler(ctx, env)
	elapsed := time.Since(start)

	if d.shared.Metrics != nil {
		outcome := "ok"
		if herr != nil {
			outcome = "error"
		}
		d.shared.Metrics.RecordCommand(cmd.Verb, outcome, elapsed.Seconds())
	}

	if herr != nil {
		d.recordOutcome(ctx, s, cmd.Verb, args, "error", herr.Error())
		return s.WriteLine(fmt.Sprintf("error %s", herr.Error()))
	}

	if cmd.Distributed || cmd.AlwaysDistribute {
		d.distribute(ctx, cmd.Verb, line)
	}

	d.recordOutcome(ctx, s, cmd.Verb, args, "ok", "")

	if s.Moved() {
		return nil
	}
	for _, l := range result.Lines {
		if err := s.WriteLine(l); err != nil {
			return fmt.Errorf("dispatch: write response: %w", err)
		}
	}
	return nil
}

// distribute replays line on every other worker's command tube. Per
// spec.md's distribution policy, failure to reach a peer is logged and
// otherwise ignored — this is a best-effort broadcast, not a commit
// protocol, so it does not wait for acks the way the reload-lifecycle
// Fanout does.
func (d *Dispatcher) distribute(ctx context.Context, verb, line string) {
	if len(d.shared.Tubes) == 0 {
		return
	}
	payload := append([]byte(line), 0)
	for i, tube := range d.shared.Tubes {
		if err := tube.Send(ctx, ipc.Frame{Kind: ipc.CmdRemote, Payload: payload}); err != nil {
			d.shared.Logger.Warn("distribution: failed to reach worker", "verb", verb, "worker", i, "error", err)
			if d.shared.Metrics != nil {
				d.shared.Metrics.RecordFanout(verb, "unreachable")
			}
			continue
		}
		if d.shared.Metrics != nil {
			d.shared.Metrics.RecordFanout(verb, "ok")
		}
	}
}

func (d *Dispatcher) recordOutcome(ctx context.Context, s *rc.Session, verb, args, outcome, detail string) {
	if d.shared.AuditLog == nil {
		return
	}
	_ = d.shared.AuditLog.Record(ctx, auditEntry(s, verb, args, outcome, detail))
}

func auditEntry(s *rc.Session, verb, args, outcome, detail string) auditlog.Entry {
	return auditlog.Entry{
		Time:       time.Now(),
		SessionID:  s.ID,
		RemoteAddr: s.RemoteAddr(),
		Verb:       verb,
		Args:       args,
		Outcome:    outcome,
		Detail:     detail,
	}
}

func hostIP(addr string) net.IP {
	host, _, err := net.SplitHostPort(addr)
	if err != nil {
		host = addr
	}
	return net.ParseIP(host)
}
