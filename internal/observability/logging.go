// Package observability provides logging, metrics, and tracing.
package observability

import (
	"context"
	"io"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/google/uuid"
)

// Logger wraps slog.Logger to provide specialized logging methods.
type Logger struct {
	*slog.Logger
}

// GlobalLogger is the default logger instance for the application.
var GlobalLogger *Logger

var level = new(slog.LevelVar)

func init() {
	level.Set(slog.LevelInfo)
	GlobalLogger = NewLogger(os.Stderr)
}

// NewLogger returns a JSON logger writing to w at the shared level.
func NewLogger(w io.Writer) *Logger {
	handler := slog.NewJSONHandler(w, &slog.HandlerOptions{Level: level})
	return &Logger{Logger: slog.New(handler)}
}

// SetLevel parses debug|info|warn|error and applies it to every logger built
// by this package. Unknown values fall back to info.
func SetLevel(name string) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "debug":
		level.Set(slog.LevelDebug)
	case "warn", "warning":
		level.Set(slog.LevelWarn)
	case "error":
		level.Set(slog.LevelError)
	default:
		level.Set(slog.LevelInfo)
	}
}

// LogContextKey is a type for context keys used by the logging package.
type LogContextKey string

// Context keys for logging
const (
	CorrelationID LogContextKey = "correlation_id"
	TraceID       LogContextKey = "trace_id"
)

// GenerateCorrelationID creates a new unique correlation ID.
func GenerateCorrelationID() string {
	return uuid.NewString()
}

// WithCorrelationID returns a new context with the given correlation ID.
func WithCorrelationID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, CorrelationID, id)
}

// ExtractCorrelationID retrieves the correlation ID from the context.
func ExtractCorrelationID(ctx context.Context) string {
	if id, ok := ctx.Value(CorrelationID).(string); ok {
		return id
	}
	return ""
}

// EnsureCorrelationID returns ctx and its correlation ID, adding a fresh one
// when none is set.
func EnsureCorrelationID(ctx context.Context) (context.Context, string) {
	if id := ExtractCorrelationID(ctx); id != "" {
		return ctx, id
	}
	id := GenerateCorrelationID()
	return WithCorrelationID(ctx, id), id
}

// APILogger provides structured logging for REST API calls.
type APILogger struct {
	component string
	logger    *Logger
}

// NewAPILogger creates a new APILogger for the given component.
func NewAPILogger(component string, logger *Logger) *APILogger {
	if logger == nil {
		logger = GlobalLogger
	}
	return &APILogger{component: component, logger: logger}
}

// LogRequest logs a completed API call.
func (l *APILogger) LogRequest(ctx context.Context, method, endpoint string, status int, elapsed time.Duration) {
	l.logger.DebugContext(ctx, "api request",
		slog.String("component", l.component),
		slog.String("method", method),
		slog.String("endpoint", endpoint),
		slog.Int("status", status),
		slog.Duration("elapsed", elapsed),
		slog.String("correlation_id", ExtractCorrelationID(ctx)),
	)
}

// LogRetry logs a retried API call.
func (l *APILogger) LogRetry(ctx context.Context, method, endpoint string, attempt int, wait time.Duration) {
	l.logger.InfoContext(ctx, "api retry",
		slog.String("component", l.component),
		slog.String("method", method),
		slog.String("endpoint", endpoint),
		slog.Int("attempt", attempt),
		slog.Duration("wait", wait),
		slog.String("correlation_id", ExtractCorrelationID(ctx)),
	)
}

// LogError logs a failed API call.
func (l *APILogger) LogError(ctx context.Context, method, endpoint string, err error) {
	l.logger.WarnContext(ctx, "api error",
		slog.String("component", l.component),
		slog.String("method", method),
		slog.String("endpoint", endpoint),
		slog.String("error", err.Error()),
		slog.String("correlation_id", ExtractCorrelationID(ctx)),
	)
}

// LogAction logs a view action outcome with arbitrary fields.
func (l *APILogger) LogAction(ctx context.Context, action string, fields map[string]interface{}) {
	attrs := []any{
		slog.String("component", l.component),
		slog.String("action", action),
		slog.String("correlation_id", ExtractCorrelationID(ctx)),
	}
	for k, v := range fields {
		attrs = append(attrs, slog.Any(k, v))
	}
	l.logger.InfoContext(ctx, "view action", attrs...)
}
