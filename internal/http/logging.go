package http

import (
	"context"
	"log/slog"

	"github.com/example/class-scheduler/internal/logging"
)

// handlerLogger prefers the request-scoped logger installed by RequestLogger.
func handlerLogger(ctx context.Context, fallback *slog.Logger, handler, operation string, attrs ...any) *slog.Logger {
	return logging.Scoped(ctx, fallback, append([]any{"handler", handler, "operation", operation}, attrs...)...)
}
