package observability

import (
	"context"
	"io"
	"log/slog"
	"os"
	"strings"
	"time"

	"go.opentelemetry.io/otel/trace"
)

// Logger is a structured logger for ideprobe components
type Logger struct {
	*slog.Logger
}

// NewLogger creates a new structured logger writing JSON to stdout
func NewLogger(component string, level slog.Level) *Logger {
	return NewLoggerTo(os.Stdout, component, level)
}

// NewLoggerTo creates a structured logger writing JSON to w
func NewLoggerTo(w io.Writer, component string, level slog.Level) *Logger {
	opts := &slog.HandlerOptions{
		Level: level,
	}

	handler := slog.NewJSONHandler(w, opts)

	logger := slog.New(handler).With(
		slog.String("component", component),
		slog.String("system", "ideprobe"),
	)

	return &Logger{Logger: logger}
}

// Nop returns a logger that drops everything.
func Nop() *Logger {
	return &Logger{Logger: slog.New(slog.NewJSONHandler(io.Discard, &slog.HandlerOptions{Level: slog.LevelError + 1}))}
}

// OrNop lets components accept a nil logger.
func OrNop(l *Logger) *Logger {
	if l == nil || l.Logger == nil {
		return Nop()
	}
	return l
}

// ParseLevel maps config strings onto slog levels. Unknown values are info.
func ParseLevel(level string) slog.Level {
	switch strings.ToLower(strings.TrimSpace(level)) {
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

// WithContext returns a logger carrying the trace and span ids of ctx.
func (l *Logger) WithContext(ctx context.Context) *Logger {
	spanCtx := trace.SpanContextFromContext(ctx)
	if !spanCtx.IsValid() {
		return l
	}
	return &Logger{
		Logger: l.Logger.With(
			slog.String("trace_id", spanCtx.TraceID().String()),
			slog.String("span_id", spanCtx.SpanID().String()),
		),
	}
}

// WithSession returns a logger with browser-session fields
func (l *Logger) WithSession(sessionID string) *Logger {
	return &Logger{
		Logger: l.Logger.With(
			slog.String("session_id", sessionID),
		),
	}
}

// WithOperation returns a logger with the id of a retry or search operation
func (l *Logger) WithOperation(operationID, runID string) *Logger {
	return &Logger{
		Logger: l.Logger.With(
			slog.String("operation_id", operationID),
			slog.String("run_id", runID),
		),
	}
}

// RepeatSettled logs a retry session that produced a value
func (l *Logger) RepeatSettled(id string, attempts, resets int, elapsed time.Duration) {
	l.Debug("repeat settled",
		slog.String("operation_id", id),
		slog.Int("attempts", attempts),
		slog.Int("threshold_resets", resets),
		slog.Duration("elapsed", elapsed),
	)
}

// RepeatFailed logs a retry session that ended without a value
func (l *Logger) RepeatFailed(id, outcome string, attempts int, elapsed time.Duration, err error) {
	l.Debug("repeat failed",
		slog.String("operation_id", id),
		slog.String("outcome", outcome),
		slog.Int("attempts", attempts),
		slog.Duration("elapsed", elapsed),
		slog.String("error", err.Error()),
	)
}

// PageTurned logs a scroll step in a virtualized list
func (l *Logger) PageTurned(direction string, anchor string, visible int) {
	l.Debug("page turned",
		slog.String("direction", direction),
		slog.String("anchor", anchor),
		slog.Int("visible_items", visible),
	)
}

// StaleRecovered logs a window re-fetch after a stale element
func (l *Logger) StaleRecovered(scope string, attempt int, err error) {
	l.Debug("stale element recovered",
		slog.String("scope", scope),
		slog.Int("attempt", attempt),
		slog.String("error", err.Error()),
	)
}

// NodeExpanded logs a tree folder expansion during a path search
func (l *Logger) NodeExpanded(path []string) {
	l.Debug("tree node expanded",
		slog.String("path", strings.Join(path, "/")),
	)
}

// SegmentRetried logs a path segment searched again after an expansion
func (l *Logger) SegmentRetried(path []string, index, attempt int) {
	l.Info("tree segment retried",
		slog.String("path", strings.Join(path, "/")),
		slog.Int("segment_index", index),
		slog.Int("attempt", attempt),
	)
}

// PathSearchFailed logs a terminal path search failure
func (l *Logger) PathSearchFailed(path []string, err error) {
	l.Warn("tree path search failed",
		slog.String("path", strings.Join(path, "/")),
		slog.String("error", err.Error()),
	)
}
