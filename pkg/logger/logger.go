// Package logger provides structured logging functionality using slog.
package logger

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/google/uuid"
	"gopkg.in/natefinch/lumberjack.v2"
)

// ContextKey is the type for context keys.
type ContextKey string

const (
	// SessionIDKey is the context key for the control-session ID.
	SessionIDKey ContextKey = "session_id"
)

// Config holds logger configuration.
type Config struct {
	Level      string
	Format     string
	Output     string
	Filename   string
	MaxSize    int
	MaxBackups int
	MaxAge     int
	Compress   bool
}

// New creates a new structured logger based on configuration.
func New(cfg Config) *slog.Logger {
	logger, _ := NewLeveled(cfg)
	return logger
}

// NewLeveled is New plus the *slog.LevelVar backing the handler's
// level, so a control command can raise or lower verbosity on the
// running daemon without rebuilding the logger.
func NewLeveled(cfg Config) (*slog.Logger, *slog.LevelVar) {
	var level slog.LevelVar
	level.Set(ParseLevel(cfg.Level))
	writer := SetupWriter(cfg)

	opts := &slog.HandlerOptions{
		Level:     &level,
		AddSource: level.Level() == slog.LevelDebug,
	}

	var handler slog.Handler
	if strings.ToLower(cfg.Format) == "json" {
		handler = slog.NewJSONHandler(writer, opts)
	} else {
		handler = slog.NewTextHandler(writer, opts)
	}

	return slog.New(handler), &level
}

// ParseLevel parses a string log level into an slog.Level.
func ParseLevel(level string) slog.Level {
	switch strings.ToLower(strings.TrimSpace(level)) {
	case "debug":
		return slog.LevelDebug
	case "info", "":
		return slog.LevelInfo
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// SetupWriter configures the output writer based on configuration.
func SetupWriter(cfg Config) io.Writer {
	switch strings.ToLower(cfg.Output) {
	case "file":
		if cfg.Filename == "" {
			return os.Stdout
		}
		return &lumberjack.Logger{
			Filename:   cfg.Filename,
			MaxSize:    cfg.MaxSize,
			MaxBackups: cfg.MaxBackups,
			MaxAge:     cfg.MaxAge,
			Compress:   cfg.Compress,
		}
	case "stderr":
		return os.Stderr
	case "stdout", "":
		return os.Stdout
	default:
		return os.Stdout
	}
}

// NewSessionID generates a time-ordered session identifier (UUIDv7)
// so log lines from one control session sort and correlate cleanly.
// Falls back to a timestamp-based ID if the system RNG is unavailable.
func NewSessionID() string {
	id, err := uuid.NewV7()
	if err != nil {
		return fmt.Sprintf("sess_%d", time.Now().UnixNano())
	}
	return id.String()
}

// WithSessionID attaches a session ID to a context.
func WithSessionID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, SessionIDKey, id)
}

// SessionIDFromContext extracts the session ID from a context, if any.
func SessionIDFromContext(ctx context.Context) string {
	if id, ok := ctx.Value(SessionIDKey).(string); ok {
		return id
	}
	return ""
}

// FromContext returns logger scoped with the session ID found in ctx,
// or the logger unchanged if none is present.
func FromContext(ctx context.Context, logger *slog.Logger) *slog.Logger {
	if id := SessionIDFromContext(ctx); id != "" {
		return logger.With("session_id", id)
	}
	return logger
}
