package auditlog

import (
	"context"
	"database/sql"
	"embed"
	"fmt"
	"log/slog"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	_ "github.com/jackc/pgx/v5/stdlib" // registers the "pgx" database/sql driver for goose
	"github.com/pressly/goose/v3"
)

//go:embed migrations/*.sql
var migrationsFS embed.FS

// PostgresLog stores audit entries in Postgres, schema-migrated with
// goose, for "standard" multi-daemon deployments that already run a
// shared database for the control plane.
type PostgresLog struct {
	pool   *pgxpool.Pool
	logger *slog.Logger
}

// OpenPostgres connects to dsn and applies any pending goose migrations
// before returning, the same up-front migration step the teacher's
// RunMigrations performs at startup.
func OpenPostgres(ctx context.Context, dsn string, logger *slog.Logger) (*PostgresLog, error) {
	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		return nil, fmt.Errorf("auditlog: connect postgres: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("auditlog: ping postgres: %w", err)
	}

	if err := migrate(dsn); err != nil {
		pool.Close()
		return nil, err
	}

	return &PostgresLog{pool: pool, logger: logger}, nil
}

func migrate(dsn string) error {
	sqlDB, err := sql.Open("pgx", dsn)
	if err != nil {
		return fmt.Errorf("auditlog: open migration conn: %w", err)
	}
	defer sqlDB.Close()

	goose.SetBaseFS(migrationsFS)
	if err := goose.SetDialect("postgres"); err != nil {
		return fmt.Errorf("auditlog: set goose dialect: %w", err)
	}
	if err := goose.Up(sqlDB, "migrations"); err != nil {
		return fmt.Errorf("auditlog: run migrations: %w", err)
	}
	return nil
}

func (l *PostgresLog) Record(ctx context.Context, e Entry) error {
	_, err := l.pool.Exec(ctx, `
INSERT INTO audit_entries (ts, session_id, remote_addr, verb, args, outcome, detail)
VALUES ($1, $2, $3, $4, $5, $6, $7)`,
		e.Time, e.SessionID, e.RemoteAddr, e.Verb, e.Args, e.Outcome, e.Detail)
	if err != nil {
		return fmt.Errorf("auditlog: insert: %w", err)
	}
	return nil
}

func (l *PostgresLog) Recent(ctx context.Context, limit int) ([]Entry, error) {
	if limit <= 0 {
		limit = 100
	}
	rows, err := l.pool.Query(ctx, `
SELECT ts, session_id, remote_addr, verb, args, outcome, detail
FROM audit_entries ORDER BY id DESC LIMIT $1`, limit)
	if err != nil {
		return nil, fmt.Errorf("auditlog: query: %w", err)
	}
	defer rows.Close()

	var out []Entry
	for rows.Next() {
		var e Entry
		var ts time.Time
		if err := rows.Scan(&ts, &e.SessionID, &e.RemoteAddr, &e.Verb, &e.Args, &e.Outcome, &e.Detail); err != nil {
			return nil, fmt.Errorf("auditlog: scan: %w", err)
		}
		e.Time = ts
		out = append(out, e)
	}
	return out, rows.Err()
}

func (l *PostgresLog) Close() error {
	l.pool.Close()
	return nil
}
