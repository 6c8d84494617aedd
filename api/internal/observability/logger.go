package observability

import (
	"context"
	"log/slog"

	"github.com/google/uuid"
	"github.com/mama165/sdk-go/logs"
)

type ctxKey string

const ctxKeyRequestID ctxKey = "request_id"

var logger = logs.GetLoggerFromString("INFO")

// Init replaces the base logger, level is one of DEBUG | INFO | WARN | ERROR.
func Init(level string) *slog.Logger {
	logger = logs.GetLoggerFromString(level)
	return logger
}

func Logger() *slog.Logger {
	return logger
}

func NewRequestID() string {
	return uuid.NewString()
}

// WithRequestID stores a request_id in the context.
func WithRequestID(ctx context.Context, requestID string) context.Context {
	return context.WithValue(ctx, ctxKeyRequestID, requestID)
}

func RequestID(ctx context.Context) string {
	id, _ := ctx.Value(ctxKeyRequestID).(string)
	return id
}

// FromContext returns base with request_id attached when present.
func FromContext(ctx context.Context, base *slog.Logger) *slog.Logger {
	if base == nil {
		base = logger
	}
	if id := RequestID(ctx); id != "" {
		return base.With("request_id", id)
	}
	return base
}
