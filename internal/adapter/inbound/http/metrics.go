// Package http provides the local development transport for the proxy:
// the same dispatch path as Lambda behind a plain HTTP server, plus
// Prometheus metrics.
package http

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds the proxy's Prometheus metrics. It implements
// service.Observer so the dispatcher records outcomes without knowing
// about Prometheus.
type Metrics struct {
	InvocationsTotal *prometheus.CounterVec
	InvocationTime   *prometheus.HistogramVec
}

// NewMetrics creates and registers all metrics with the given registry.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	return &Metrics{
		InvocationsTotal: promauto.With(reg).NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "kbgate",
				Name:      "invocations_total",
				Help:      "Total tool invocations processed by the dispatcher",
			},
			[]string{"tool", "outcome"},
		),
		InvocationTime: promauto.With(reg).NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: "kbgate",
				Name:      "invocation_duration_seconds",
				Help:      "Tool invocation duration in seconds",
				Buckets:   prometheus.DefBuckets,
			},
			[]string{"tool"},
		),
	}
}

// Observe records one dispatch outcome.
func (m *Metrics) Observe(toolName, outcome string, elapsed time.Duration) {
	m.InvocationsTotal.WithLabelValues(toolName, outcome).Inc()
	if elapsed > 0 {
		m.InvocationTime.WithLabelValues(toolName).Observe(elapsed.Seconds())
	}
}
