// Package lambda adapts the AWS Lambda invocation contract onto the
// dispatcher: raw JSON event in, gateway envelope out. The handler never
// returns a Go error to the runtime; every fault becomes an envelope so
// the gateway always receives a well-formed response.
package lambda

import (
	"context"
	"encoding/json"
	"log/slog"

	"github.com/google/uuid"

	"github.com/Knowledge-Gate/kbgate/internal/ctxkey"
	"github.com/Knowledge-Gate/kbgate/internal/domain/envelope"
	"github.com/Knowledge-Gate/kbgate/internal/domain/tool"
	"github.com/Knowledge-Gate/kbgate/internal/service"
)

// Handler is the Lambda entry adapter.
type Handler struct {
	dispatcher *service.Dispatcher
	logger     *slog.Logger
}

// NewHandler wraps a dispatcher for Lambda invocation.
func NewHandler(dispatcher *service.Dispatcher, logger *slog.Logger) *Handler {
	return &Handler{dispatcher: dispatcher, logger: logger}
}

// Invoke handles one Lambda invocation. The event shape is deliberately
// untyped; normalization happens in the dispatcher.
func (h *Handler) Invoke(ctx context.Context, raw json.RawMessage) (envelope.Response, error) {
	requestID := uuid.NewString()
	logger := h.logger.With("request_id", requestID)
	ctx = context.WithValue(ctx, ctxkey.RequestIDKey{}, requestID)
	ctx = context.WithValue(ctx, ctxkey.LoggerKey{}, logger)

	var event tool.Event
	if err := json.Unmarshal(raw, &event); err != nil {
		logger.Warn("failed to decode invocation event", "error", err)
		return envelope.Failure("invalid invocation event: " + err.Error()), nil
	}

	return h.dispatcher.Dispatch(ctx, event), nil
}
