package logger

import (
	"context"
	"log/slog"

	"deskmate/internal/middleware"
)

// ContextHandler decorates a slog.Handler with the correlation id carried
// in the request context, so every log line of a turn can be tied together.
type ContextHandler struct {
	slog.Handler
}

func NewContextHandler(h slog.Handler) *ContextHandler {
	return &ContextHandler{Handler: h}
}

func (h *ContextHandler) Handle(ctx context.Context, r slog.Record) error {
	if id, ok := ctx.Value(middleware.CorrelationKey).(string); ok && id != "" {
		r.AddAttrs(slog.String("correlation_id", id))
	}
	return h.Handler.Handle(ctx, r)
}
