// Package log is the application logging facade.
//
// Every component logs through the Logger interface with a context, so
// records pick up trace/span ids, and error records pick up the error
// chain and the call sites recorded by internal/xerrors.
package log

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"strings"
)

type Logger interface {
	With(kv ...any) Logger

	Debug(ctx context.Context, msg string, kv ...any)
	Info(ctx context.Context, msg string, kv ...any)
	Warn(ctx context.Context, msg string, kv ...any)
	Error(ctx context.Context, err error, msg string, kv ...any)

	Sync() error
}

type Options struct {
	App               string
	Version           string
	Commit            string
	Level             slog.Level
	StacktraceLevel   slog.Level
	JSON              bool
	MaxErrorLinks     int
	IncludeErrorLinks bool
	Writer            io.Writer
}

// New builds the slog-backed Logger.
func New(opts Options) (Logger, error) { return newSlog(opts) }

// ParseLevel maps debug|info|warn|error (any case) to a slog level.
func ParseLevel(s string) (slog.Level, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "debug":
		return slog.LevelDebug, nil
	case "info":
		return slog.LevelInfo, nil
	case "warn", "warning":
		return slog.LevelWarn, nil
	case "error":
		return slog.LevelError, nil
	}
	return 0, fmt.Errorf("unknown log level %q (valid levels are debug|info|warn|error)", s)
}
