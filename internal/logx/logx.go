// Package logx provides a ctxd.Logger backed by log/slog.
package logx

import (
	"context"
	"io"
	"log/slog"
	"strings"

	"github.com/bool64/ctxd"
)

// Logger writes JSON records through slog. Fields attached to the context
// with ctxd.AddFields are included in every record.
type Logger struct {
	l *slog.Logger
	// important bypasses the level filter for Important records.
	important *slog.Logger
}

// New returns a Logger writing to w at the given minimum level.
func New(w io.Writer, level slog.Level) *Logger {
	return &Logger{
		l:         slog.New(slog.NewJSONHandler(w, &slog.HandlerOptions{Level: level})),
		important: slog.New(slog.NewJSONHandler(w, &slog.HandlerOptions{Level: slog.LevelDebug})),
	}
}

// ParseLevel maps "debug", "info", "warn" and "error" to slog levels.
// Unknown values yield slog.LevelInfo.
func ParseLevel(s string) slog.Level {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// Debug implements ctxd.Logger.
func (l *Logger) Debug(ctx context.Context, msg string, keysAndValues ...interface{}) {
	l.log(ctx, l.l, slog.LevelDebug, msg, keysAndValues)
}

// Info implements ctxd.Logger.
func (l *Logger) Info(ctx context.Context, msg string, keysAndValues ...interface{}) {
	l.log(ctx, l.l, slog.LevelInfo, msg, keysAndValues)
}

// Important logs at info level regardless of the configured level.
func (l *Logger) Important(ctx context.Context, msg string, keysAndValues ...interface{}) {
	l.log(ctx, l.important, slog.LevelInfo, msg, keysAndValues)
}

// Warn logs at warn level.
func (l *Logger) Warn(ctx context.Context, msg string, keysAndValues ...interface{}) {
	l.log(ctx, l.l, slog.LevelWarn, msg, keysAndValues)
}

// Error implements ctxd.Logger.
func (l *Logger) Error(ctx context.Context, msg string, keysAndValues ...interface{}) {
	l.log(ctx, l.l, slog.LevelError, msg, keysAndValues)
}

func (l *Logger) log(ctx context.Context, to *slog.Logger, level slog.Level, msg string, kv []interface{}) {
	if ctx == nil {
		ctx = context.Background()
	}
	if !to.Enabled(ctx, level) {
		return
	}
	if fields := ctxd.Fields(ctx); len(fields) > 0 {
		kv = append(append(make([]interface{}, 0, len(fields)+len(kv)), fields...), kv...)
	}
	to.Log(ctx, level, msg, kv...)
}

var _ ctxd.Logger = (*Logger)(nil)
