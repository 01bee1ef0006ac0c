package http

import (
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/Knowledge-Gate/kbgate/internal/adapter/inbound/lambda"
)

// maxEventSize bounds the request body read for local invocations.
// Lambda itself enforces a 6MB synchronous payload limit.
const maxEventSize = 6 * 1024 * 1024

// Transport serves the proxy over plain HTTP for local development:
// POST /invoke runs the same path as a Lambda invocation, /metrics exposes
// Prometheus metrics, /healthz answers liveness probes.
type Transport struct {
	handler *lambda.Handler
	logger  *slog.Logger
	mux     *http.ServeMux
}

// NewTransport wires the handler and metrics registry into a mux.
func NewTransport(handler *lambda.Handler, reg *prometheus.Registry, logger *slog.Logger) *Transport {
	t := &Transport{handler: handler, logger: logger, mux: http.NewServeMux()}

	t.mux.HandleFunc("POST /invoke", t.handleInvoke)
	t.mux.Handle("GET /metrics", promhttp.HandlerFor(reg, promhttp.HandlerOpts{}))
	t.mux.HandleFunc("GET /healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})

	return t
}

// ServeHTTP implements http.Handler.
func (t *Transport) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	t.mux.ServeHTTP(w, r)
}

// ListenAndServe blocks serving the transport on addr.
func (t *Transport) ListenAndServe(addr string) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           t.mux,
		ReadHeaderTimeout: 10 * time.Second,
	}
	t.logger.Info("local transport listening", "addr", addr)
	return srv.ListenAndServe()
}

// handleInvoke runs one dispatch and writes the envelope as the HTTP
// response, mirroring what the gateway would receive from Lambda.
func (t *Transport) handleInvoke(w http.ResponseWriter, r *http.Request) {
	raw, err := io.ReadAll(io.LimitReader(r.Body, maxEventSize))
	if err != nil {
		http.Error(w, "failed to read request body", http.StatusBadRequest)
		return
	}

	resp, _ := t.handler.Invoke(r.Context(), raw)

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	if err := json.NewEncoder(w).Encode(resp); err != nil {
		t.logger.Error("failed to write invoke response", "error", err)
	}
}
