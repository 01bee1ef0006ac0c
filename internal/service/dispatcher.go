// Package service contains the tool dispatcher and the four tool handlers
// that adapt gateway tool calls onto the knowledge-base collaborators.
package service

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"

	"github.com/Knowledge-Gate/kbgate/internal/ctxkey"
	"github.com/Knowledge-Gate/kbgate/internal/domain/envelope"
	"github.com/Knowledge-Gate/kbgate/internal/domain/guard"
	"github.com/Knowledge-Gate/kbgate/internal/domain/tool"
	"github.com/Knowledge-Gate/kbgate/internal/port/outbound"
)

// instrumentationName scopes the dispatcher's traces and metrics.
const instrumentationName = "github.com/Knowledge-Gate/kbgate/internal/service"

// Settings carries the configuration slice the handlers need.
type Settings struct {
	KnowledgeBaseID   string
	ModelARN          string
	DefaultMaxResults int
	DefaultMaxTokens  int
}

// Observer records per-dispatch outcomes. Implemented by the HTTP
// adapter's Prometheus metrics; nil-safe at the call site.
type Observer interface {
	Observe(toolName, outcome string, elapsed time.Duration)
}

// handlerFunc is one entry of the static dispatch table.
type handlerFunc func(ctx context.Context, call tool.Call) envelope.Response

// Dispatcher resolves raw gateway events into tool calls and routes them
// through the fixed handler table. Stateless across invocations.
type Dispatcher struct {
	settings  Settings
	retriever outbound.Retriever
	generator outbound.Generator
	catalog   outbound.Catalog
	guard     *guard.Guard
	logger    *slog.Logger
	observer  Observer

	tracer      trace.Tracer
	invocations metric.Int64Counter

	handlers map[tool.Name]handlerFunc
}

// Option configures optional dispatcher collaborators.
type Option func(*Dispatcher)

// WithObserver attaches a dispatch outcome observer.
func WithObserver(o Observer) Option {
	return func(d *Dispatcher) { d.observer = o }
}

// WithGuard attaches the access-compliance guard.
func WithGuard(g *guard.Guard) Option {
	return func(d *Dispatcher) { d.guard = g }
}

// NewDispatcher builds the static handler table over the given ports.
func NewDispatcher(settings Settings, retriever outbound.Retriever, generator outbound.Generator, catalog outbound.Catalog, logger *slog.Logger, opts ...Option) *Dispatcher {
	d := &Dispatcher{
		settings:  settings,
		retriever: retriever,
		generator: generator,
		catalog:   catalog,
		logger:    logger,
		tracer:    otel.Tracer(instrumentationName),
	}

	counter, err := otel.Meter(instrumentationName).Int64Counter(
		"kbgate.invocations",
		metric.WithDescription("Tool invocations processed by the dispatcher"),
	)
	if err != nil {
		logger.Warn("failed to create invocation counter", "error", err)
	} else {
		d.invocations = counter
	}

	d.handlers = map[tool.Name]handlerFunc{
		tool.NameQueryKnowledgeBase:   d.handleQuery,
		tool.NameRetrieveAndGenerate:  d.handleGenerate,
		tool.NameListSources:          d.handleListSources,
		tool.NameGetKnowledgeBaseInfo: d.handleInfo,
	}

	for _, opt := range opts {
		opt(d)
	}
	return d
}

// Dispatch normalizes the event, applies the access guard, and routes to
// the matching handler. Every outcome is an envelope; faults never
// propagate to the transport. A panic anywhere below is converted into a
// 500 envelope, the analogue of the transport-level catch-all.
func (d *Dispatcher) Dispatch(ctx context.Context, event tool.Event) (resp envelope.Response) {
	logger := d.loggerFrom(ctx)

	defer func() {
		if r := recover(); r != nil {
			logger.Error("unexpected failure during dispatch", "panic", r)
			resp = envelope.FailureWithStatus(fmt.Sprintf("%v", r), http.StatusInternalServerError)
		}
	}()

	ctx, span := d.tracer.Start(ctx, "dispatch")
	defer span.End()

	if raw, err := json.Marshal(event); err == nil {
		logger.Info("received event", "event", string(raw))
	}

	call, err := tool.Resolve(event)
	if err != nil {
		logger.Warn("failed to resolve tool", "error", err)
		d.record(ctx, "unresolved", "client_error", 0)
		return envelope.Failure(err.Error())
	}

	logger.Info("dispatching tool", "tool", call.Name, "input_keys", keysOf(call.Input), "session_id", call.SessionID)
	span.SetAttributes(attribute.String("kbgate.tool", string(call.Name)))

	if d.guard != nil {
		if err := d.guard.Check(ctx, string(call.Name), call.UserContext); err != nil {
			logger.Warn("access denied", "tool", call.Name, "error", err)
			d.record(ctx, string(call.Name), "denied", 0)
			return envelope.FailureWithStatus(err.Error(), http.StatusForbidden)
		}
	}

	start := time.Now()
	resp = d.handlers[call.Name](ctx, call)
	elapsed := time.Since(start)

	outcome := outcomeFor(resp.StatusCode)
	d.record(ctx, string(call.Name), outcome, elapsed)
	span.SetAttributes(attribute.String("kbgate.outcome", outcome))

	logger.Info("dispatch complete",
		"tool", call.Name,
		"status", resp.StatusCode,
		"outcome", outcome,
		"latency_ms", elapsed.Milliseconds(),
	)
	return resp
}

// record feeds the observer and the otel counter. Both are optional.
func (d *Dispatcher) record(ctx context.Context, toolName, outcome string, elapsed time.Duration) {
	if d.observer != nil {
		d.observer.Observe(toolName, outcome, elapsed)
	}
	if d.invocations != nil {
		d.invocations.Add(ctx, 1, metric.WithAttributes(
			attribute.String("tool", toolName),
			attribute.String("outcome", outcome),
		))
	}
}

// loggerFrom retrieves the invocation-enriched logger from context.
// Falls back to the dispatcher's base logger.
func (d *Dispatcher) loggerFrom(ctx context.Context) *slog.Logger {
	if logger, ok := ctx.Value(ctxkey.LoggerKey{}).(*slog.Logger); ok {
		return logger
	}
	return d.logger
}

// outcomeFor maps an envelope status code to a metric label.
func outcomeFor(status int) string {
	switch {
	case status == http.StatusOK:
		return "success"
	case status == http.StatusTooManyRequests:
		return "throttled"
	case status == http.StatusForbidden:
		return "denied"
	case status >= http.StatusInternalServerError:
		return "server_error"
	default:
		return "client_error"
	}
}

// keysOf lists a mapping's keys for diagnostic logs without dumping values.
func keysOf(m map[string]any) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	return keys
}
