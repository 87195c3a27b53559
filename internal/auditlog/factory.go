package auditlog

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/talvera/resolverd/internal/config"
)

// Open selects and opens an audit log backend from cfg, the same
// backend-switch shape as the teacher's storage.NewStorage: sqlite for
// single-box deployments, postgres for fleets sharing one control
// plane, and NopLog when audit logging isn't configured at all.
func Open(ctx context.Context, cfg config.AuditLogConfig, logger *slog.Logger) (Log, error) {
	switch cfg.Backend {
	case "":
		logger.Info("audit log disabled, no backend configured")
		return NopLog{}, nil

	case "sqlite":
		l, err := OpenSQLite(ctx, cfg.DSN, logger)
		if err != nil {
			return nil, fmt.Errorf("auditlog: sqlite backend: %w", err)
		}
		logger.Info("audit log backend ready", "backend", "sqlite")
		return l, nil

	case "postgres":
		l, err := OpenPostgres(ctx, cfg.DSN, logger)
		if err != nil {
			return nil, fmt.Errorf("auditlog: postgres backend: %w", err)
		}
		logger.Info("audit log backend ready", "backend", "postgres")
		return l, nil

	default:
		return nil, fmt.Errorf("auditlog: unknown backend %q", cfg.Backend)
	}
}
