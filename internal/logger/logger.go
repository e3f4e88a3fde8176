// Package logger wraps log/slog with a process-wide default and component-scoped
// loggers that pick the request ID up from context.
package logger

import (
	"context"
	"io"
	"log/slog"
	"os"
	"strings"
	"sync/atomic"
)

// ContextKey keys logger values stored in a context.
type ContextKey string

// RequestIDKey holds the request ID set by the request ID middleware.
const RequestIDKey ContextKey = "request_id"

var current atomic.Pointer[slog.Logger]

var levels = map[string]slog.Level{
	"debug":   slog.LevelDebug,
	"info":    slog.LevelInfo,
	"warn":    slog.LevelWarn,
	"warning": slog.LevelWarn,
	"error":   slog.LevelError,
}

// Init installs a stdout logger at the named level. ENV=production selects JSON output.
func Init(level string) {
	l := New(os.Stdout, level, os.Getenv("ENV") == "production")
	current.Store(l)
	slog.SetDefault(l)
}

// New builds a logger writing to w. Unknown levels fall back to info.
func New(w io.Writer, level string, json bool) *slog.Logger {
	opts := &slog.HandlerOptions{Level: parseLevel(level)}
	if json {
		return slog.New(slog.NewJSONHandler(w, opts))
	}
	return slog.New(slog.NewTextHandler(w, opts))
}

// SetDefault swaps the process logger. A nil logger resets it.
func SetDefault(l *slog.Logger) { current.Store(l) }

func parseLevel(s string) slog.Level {
	if lvl, ok := levels[strings.ToLower(strings.TrimSpace(s))]; ok {
		return lvl
	}
	return slog.LevelInfo
}

// Get returns the process logger, initialising it at info level on first use.
func Get() *slog.Logger {
	if l := current.Load(); l != nil {
		return l
	}
	Init("info")
	return current.Load()
}

// Component logs under a fixed component name.
type Component struct {
	name string
}

// For returns the logger for a component.
func For(name string) Component { return Component{name: name} }

func (c Component) with(ctx context.Context) *slog.Logger {
	l := Get().With("component", c.name)
	if ctx == nil {
		return l
	}
	if id, _ := ctx.Value(RequestIDKey).(string); id != "" {
		l = l.With("request_id", id)
	}
	return l
}

func (c Component) Debug(ctx context.Context, msg string, args ...any) {
	c.with(ctx).DebugContext(ctx, msg, args...)
}

func (c Component) Info(ctx context.Context, msg string, args ...any) {
	c.with(ctx).InfoContext(ctx, msg, args...)
}

func (c Component) Warn(ctx context.Context, msg string, args ...any) {
	c.with(ctx).WarnContext(ctx, msg, args...)
}

func (c Component) Error(ctx context.Context, msg string, args ...any) {
	c.with(ctx).ErrorContext(ctx, msg, args...)
}

// Info logs on the process logger.
func Info(msg string, args ...any) { Get().Info(msg, args...) }

// Warn logs on the process logger.
func Warn(msg string, args ...any) { Get().Warn(msg, args...) }

// Error logs on the process logger.
func Error(msg string, args ...any) { Get().Error(msg, args...) }
