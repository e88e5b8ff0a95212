// Package metrics exposes Prometheus collectors for Iris on a private registry.
package metrics

import (
	"errors"
	"net/http"
	"time"

	"github.com/healthcatchers/iris/internal/domain"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "iris"

// Metrics holds every collector. A nil *Metrics records nothing.
type Metrics struct {
	registry *prometheus.Registry

	httpRequests  *prometheus.CounterVec
	httpDuration  *prometheus.HistogramVec
	assessments   *prometheus.CounterVec
	pipelineTime  *prometheus.HistogramVec
	riskLevels    *prometheus.CounterVec
	errorsTotal   *prometheus.CounterVec
	wsConnections prometheus.Gauge
	wsRateLimited prometheus.Counter
	busMessages   *prometheus.CounterVec
	modelInfo     *prometheus.GaugeVec
}

// New registers the collectors on a fresh registry.
func New() *Metrics {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	f := promauto.With(reg)

	return &Metrics{
		registry: reg,

		// Labels: method, route, code
		httpRequests: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "http",
			Name:      "requests_total",
			Help:      "HTTP requests by route and status code",
		}, []string{"method", "route", "code"}),

		httpDuration: f.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "http",
			Name:      "request_duration_seconds",
			Help:      "HTTP request latency in seconds",
			Buckets:   []float64{0.001, 0.0025, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1},
		}, []string{"method", "route"}),

		// Labels: operation (assessment, prediction), outcome (ok, validation, inference, error)
		assessments: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "engine",
			Name:      "operations_total",
			Help:      "Engine operations by outcome",
		}, []string{"operation", "outcome"}),

		pipelineTime: f.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "engine",
			Name:      "duration_seconds",
			Help:      "Engine operation latency in seconds",
			Buckets:   []float64{0.0001, 0.00025, 0.0005, 0.001, 0.0025, 0.005, 0.01, 0.025, 0.05},
		}, []string{"operation"}),

		riskLevels: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "engine",
			Name:      "risk_levels_total",
			Help:      "Predicted dry eye risk levels",
		}, []string{"level"}),

		errorsTotal: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "transport",
			Name:      "errors_total",
			Help:      "Error replies by transport",
		}, []string{"transport"}),

		wsConnections: f.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "websocket",
			Name:      "connections",
			Help:      "Open WebSocket connections",
		}),

		wsRateLimited: f.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "websocket",
			Name:      "rate_limited_total",
			Help:      "WebSocket messages rejected by the per-connection limiter",
		}),

		// Labels: action
		busMessages: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "bus",
			Name:      "messages_total",
			Help:      "Bus requests answered, by reply action",
		}, []string{"action"}),

		modelInfo: f.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "model",
			Name:      "info",
			Help:      "Loaded classifier artifact",
		}, []string{"name", "version", "checksum"}),
	}
}

// Handler serves the registry in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	if m == nil {
		return http.NotFoundHandler()
	}
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry})
}

// Registry returns the underlying registry.
func (m *Metrics) Registry() *prometheus.Registry {
	if m == nil {
		return nil
	}
	return m.registry
}

// ObserveHTTP records one HTTP request.
func (m *Metrics) ObserveHTTP(method, route, code string, d time.Duration) {
	if m == nil {
		return
	}
	m.httpRequests.WithLabelValues(method, route, code).Inc()
	m.httpDuration.WithLabelValues(method, route).Observe(d.Seconds())
}

// ObserveOperation records one engine call and its outcome.
func (m *Metrics) ObserveOperation(operation string, d time.Duration, err error) {
	if m == nil {
		return
	}
	m.assessments.WithLabelValues(operation, Outcome(err)).Inc()
	m.pipelineTime.WithLabelValues(operation).Observe(d.Seconds())
}

// ObserveRisk counts a predicted risk level.
func (m *Metrics) ObserveRisk(level domain.RiskLevel) {
	if m == nil {
		return
	}
	m.riskLevels.WithLabelValues(string(level)).Inc()
}

// TransportError counts an error reply sent by a transport.
func (m *Metrics) TransportError(transport string) {
	if m == nil {
		return
	}
	m.errorsTotal.WithLabelValues(transport).Inc()
}

// WebSocketOpened tracks an accepted connection.
func (m *Metrics) WebSocketOpened() {
	if m != nil {
		m.wsConnections.Inc()
	}
}

// WebSocketClosed tracks a closed connection.
func (m *Metrics) WebSocketClosed() {
	if m != nil {
		m.wsConnections.Dec()
	}
}

// RateLimited counts a WebSocket message rejected by the limiter.
func (m *Metrics) RateLimited() {
	if m != nil {
		m.wsRateLimited.Inc()
	}
}

// BusReply counts a reply published by the bus responder.
func (m *Metrics) BusReply(action string) {
	if m != nil {
		m.busMessages.WithLabelValues(action).Inc()
	}
}

// SetModel publishes the loaded artifact as an info gauge.
func (m *Metrics) SetModel(info domain.ArtifactInfo) {
	if m == nil {
		return
	}
	m.modelInfo.Reset()
	m.modelInfo.WithLabelValues(info.Name, info.Version, info.Checksum).Set(1)
}

// Outcome classifies an engine error for metric labels.
func Outcome(err error) string {
	switch {
	case err == nil:
		return "ok"
	case errors.Is(err, domain.ErrValidation):
		return "validation"
	case errors.Is(err, domain.ErrInference):
		return "inference"
	default:
		return "error"
	}
}
