package observability

import (
	"context"
	"log/slog"

	"git.home.luguber.info/inful/scopebuild/internal/logfields"
)

// LogContext holds the structured logging context carried through a build.
type LogContext struct {
	BuildID string
	Stage   string
	Scope   string
}

type logContextKeyType string

const logContextKey logContextKeyType = "log-context"

// WithBuildID adds a build ID to the context.
func WithBuildID(ctx context.Context, buildID string) context.Context {
	lc := extractLogContext(ctx)
	lc.BuildID = buildID
	return context.WithValue(ctx, logContextKey, lc)
}

// WithStage adds a stage name to the context.
func WithStage(ctx context.Context, stage string) context.Context {
	lc := extractLogContext(ctx)
	lc.Stage = stage
	return context.WithValue(ctx, logContextKey, lc)
}

// WithScope records the directory scope currently being processed.
func WithScope(ctx context.Context, scope string) context.Context {
	lc := extractLogContext(ctx)
	lc.Scope = scope
	return context.WithValue(ctx, logContextKey, lc)
}

// GetContext returns the structured log context from the provided context.
func GetContext(ctx context.Context) LogContext {
	return extractLogContext(ctx)
}

func extractLogContext(ctx context.Context) LogContext {
	if lc, ok := ctx.Value(logContextKey).(LogContext); ok {
		return lc
	}
	return LogContext{}
}

func contextAttrs(ctx context.Context, attrs []slog.Attr) []slog.Attr {
	lc := extractLogContext(ctx)
	out := make([]slog.Attr, 0, len(attrs)+3)
	if lc.BuildID != "" {
		out = append(out, logfields.BuildID(lc.BuildID))
	}
	if lc.Stage != "" {
		out = append(out, logfields.Stage(lc.Stage))
	}
	if lc.Scope != "" {
		out = append(out, logfields.Scope(lc.Scope))
	}
	return append(out, attrs...)
}

// InfoContext logs an info message with context information.
func InfoContext(ctx context.Context, msg string, attrs ...slog.Attr) {
	slog.LogAttrs(ctx, slog.LevelInfo, msg, contextAttrs(ctx, attrs)...)
}

// WarnContext logs a warning message with context information.
func WarnContext(ctx context.Context, msg string, attrs ...slog.Attr) {
	slog.LogAttrs(ctx, slog.LevelWarn, msg, contextAttrs(ctx, attrs)...)
}

// ErrorContext logs an error message with context information.
func ErrorContext(ctx context.Context, msg string, attrs ...slog.Attr) {
	slog.LogAttrs(ctx, slog.LevelError, msg, contextAttrs(ctx, attrs)...)
}

// DebugContext logs a debug message with context information.
func DebugContext(ctx context.Context, msg string, attrs ...slog.Attr) {
	slog.LogAttrs(ctx, slog.LevelDebug, msg, contextAttrs(ctx, attrs)...)
}
