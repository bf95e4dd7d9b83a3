package logging

import (
	"context"
	"io"
	"log/slog"
	"os"
)

type ctxLoggerKey struct {
	Key string
}

var (
	cKey   = ctxLoggerKey{Key: "logger"}
	reqKey = ctxLoggerKey{Key: "request_id"}
)

// GetLoggerFromContext returns the logger stored in ctx, or a JSON logger
// on stderr. The request id from ctx, if any, is attached.
func GetLoggerFromContext(ctx context.Context) *slog.Logger {
	l, ok := ctx.Value(cKey).(*slog.Logger)
	if !ok || l == nil {
		// stdout belongs to the benchmark reports
		l = slog.New(slog.NewJSONHandler(os.Stderr, nil))
	}

	if requestID := GetRequestIDFromCtx(ctx); requestID != "" {
		l = l.With(slog.String("request_id", requestID))
	}

	return l
}

// Returns logger from context and attaches operation name
func GetLoggerFromContextWithOp(ctx context.Context, op string) *slog.Logger {
	return GetLoggerFromContext(ctx).With(slog.String("op", op))
}

func MakeContextWithLogger(ctx context.Context, logger *slog.Logger) context.Context {
	return context.WithValue(ctx, cKey, logger)
}

// NewDiscardLogger is used by tests and by components started without a logger.
func NewDiscardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}
