//go:build integration

package auditlog

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"
)

func startPostgresLog(t *testing.T) (*PostgresLog, func()) {
	t.Helper()
	ctx := context.Background()

	container, err := postgres.Run(ctx,
		"postgres:15-alpine",
		postgres.WithDatabase("resolverd_audit_test"),
		postgres.WithUsername("test"),
		postgres.WithPassword("test"),
		testcontainers.WithWaitStrategy(
			wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(30*time.Second),
		),
	)
	require.NoError(t, err)

	dsn, err := container.ConnectionString(ctx, "sslmode=disable")
	require.NoError(t, err)

	l, err := OpenPostgres(ctx, dsn, discardLogger())
	require.NoError(t, err)

	return l, func() {
		l.Close()
		_ = container.Terminate(ctx)
	}
}

func TestPostgresLogRecordAndRecent(t *testing.T) {
	l, teardown := startPostgresLog(t)
	defer teardown()
	ctx := context.Background()

	require.NoError(t, l.Record(ctx, Entry{Time: time.Now(), SessionID: "s1", Verb: "status", Outcome: "ok"}))
	require.NoError(t, l.Record(ctx, Entry{Time: time.Now(), SessionID: "s2", Verb: "fast_reload", Outcome: "ok"}))

	entries, err := l.Recent(ctx, 10)
	require.NoError(t, err)
	require.Len(t, entries, 2)
	require.Equal(t, "fast_reload", entries[0].Verb)
	require.Equal(t, "status", entries[1].Verb)
}

func TestPostgresLogMigrationsApplyOnce(t *testing.T) {
	l, teardown := startPostgresLog(t)
	defer teardown()

	entries, err := l.Recent(context.Background(), 5)
	require.NoError(t, err)
	require.Empty(t, entries)
}
