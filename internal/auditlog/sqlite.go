package auditlog

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	// Pure Go SQLite driver, no CGO required.
	_ "modernc.org/sqlite"
)

// SQLiteLog stores audit entries in a local SQLite database, for
// single-box deployments that don't run a Postgres instance.
type SQLiteLog struct {
	db     *sql.DB
	logger *slog.Logger
}

// OpenSQLite opens (creating if necessary) the SQLite audit database at
// dsn. dsn may be a bare file path or a "file:...?..." DSN; ":memory:"
// is accepted for tests.
func OpenSQLite(ctx context.Context, dsn string, logger *slog.Logger) (*SQLiteLog, error) {
	if dsn == "" {
		return nil, fmt.Errorf("auditlog: sqlite dsn is empty")
	}
	if dsn != ":memory:" {
		if dir := filepath.Dir(dsn); dir != "." {
			if err := os.MkdirAll(dir, 0o700); err != nil {
				return nil, fmt.Errorf("auditlog: create dir: %w", err)
			}
		}
	}

	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("auditlog: open sqlite: %w", err)
	}
	db.SetMaxOpenConns(1) // modernc.org/sqlite serializes writers anyway

	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("auditlog: ping sqlite: %w", err)
	}

	l := &SQLiteLog{db: db, logger: logger}
	if err := l.initSchema(ctx); err != nil {
		db.Close()
		return nil, err
	}
	return l, nil
}

func (l *SQLiteLog) initSchema(ctx context.Context) error {
	const schema = `
CREATE TABLE IF NOT EXISTS audit_entries (
	id          INTEGER PRIMARY KEY AUTOINCREMENT,
	ts          INTEGER NOT NULL,
	session_id  TEXT NOT NULL,
	remote_addr TEXT NOT NULL,
	verb        TEXT NOT NULL,
	args        TEXT NOT NULL,
	outcome     TEXT NOT NULL,
	detail      TEXT NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_audit_entries_ts ON audit_entries(ts);
CREATE INDEX IF NOT EXISTS idx_audit_entries_verb ON audit_entries(verb);
`
	if _, err := l.db.ExecContext(ctx, schema); err != nil {
		return fmt.Errorf("auditlog: init schema: %w", err)
	}
	return nil
}

func (l *SQLiteLog) Record(ctx context.Context, e Entry) error {
	_, err := l.db.ExecContext(ctx, `
INSERT INTO audit_entries (ts, session_id, remote_addr, verb, args, outcome, detail)
VALUES (?, ?, ?, ?, ?, ?, ?)`,
		e.Time.UnixMilli(), e.SessionID, e.RemoteAddr, e.Verb, e.Args, e.Outcome, e.Detail)
	if err != nil {
		return fmt.Errorf("auditlog: insert: %w", err)
	}
	return nil
}

func (l *SQLiteLog) Recent(ctx context.Context, limit int) ([]Entry, error) {
	if limit <= 0 {
		limit = 100
	}
	rows, err := l.db.QueryContext(ctx, `
SELECT ts, session_id, remote_addr, verb, args, outcome, detail
FROM audit_entries ORDER BY id DESC LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("auditlog: query: %w", err)
	}
	defer rows.Close()

	var out []Entry
	for rows.Next() {
		var e Entry
		var ts int64
		if err := rows.Scan(&ts, &e.SessionID, &e.RemoteAddr, &e.Verb, &e.Args, &e.Outcome, &e.Detail); err != nil {
			return nil, fmt.Errorf("auditlog: scan: %w", err)
		}
		e.Time = time.UnixMilli(ts)
		out = append(out, e)
	}
	return out, rows.Err()
}

func (l *SQLiteLog) Close() error { return l.db.Close() }
