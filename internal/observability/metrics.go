package observability

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds the service's Prometheus collectors on a private registry.
type Metrics struct {
	registry          *prometheus.Registry
	requests          *prometheus.CounterVec
	requestDuration   *prometheus.HistogramVec
	errors            *prometheus.CounterVec
	dispatches        *prometheus.CounterVec
	panelPushes       *prometheus.CounterVec
	treatmentDuration *prometheus.HistogramVec
}

// NewMetrics registers collectors.
func NewMetrics() *Metrics {
	reg := prometheus.NewRegistry()
	factory := promauto.With(reg)
	return &Metrics{
		registry: reg,
		requests: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "http_requests_total",
			Help: "HTTP requests by route, method and status.",
		}, []string{"route", "method", "status"}),
		requestDuration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "http_request_duration_seconds",
			Help:    "HTTP request latency.",
			Buckets: prometheus.DefBuckets,
		}, []string{"route", "method"}),
		errors: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "http_errors_total",
			Help: "Errors rendered to API callers by type.",
		}, []string{"route", "method", "type"}),
		dispatches: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "queue_dispatch_total",
			Help: "Call-next attempts by outcome.",
		}, []string{"outcome"}),
		panelPushes: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "panel_push_total",
			Help: "Panel pushes by sink and outcome.",
		}, []string{"sink", "outcome"}),
		treatmentDuration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "treatment_duration_minutes",
			Help:    "Closed treatment duration in minutes.",
			Buckets: []float64{1, 2, 5, 10, 15, 20, 30, 45, 60, 90},
		}, []string{"status"}),
	}
}

// Handler exposes the registry in the Prometheus text format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// Registry returns the underlying registry.
func (m *Metrics) Registry() *prometheus.Registry {
	if m == nil {
		return nil
	}
	return m.registry
}

// RecordRequest increments counters for requests.
func (m *Metrics) RecordRequest(route, method string, status int, duration time.Duration) {
	if m == nil {
		return
	}
	m.requests.WithLabelValues(route, method, strconv.Itoa(status)).Inc()
	m.requestDuration.WithLabelValues(route, method).Observe(duration.Seconds())
}

// RecordError increments error counters.
func (m *Metrics) RecordError(route, method, errType string) {
	if m == nil {
		return
	}
	m.errors.WithLabelValues(route, method, errType).Inc()
}

// RecordDispatch counts a call-next outcome ("claimed" or an error type).
func (m *Metrics) RecordDispatch(outcome string) {
	if m == nil {
		return
	}
	m.dispatches.WithLabelValues(outcome).Inc()
}

// RecordPanelPush counts one push attempt against a sink.
func (m *Metrics) RecordPanelPush(sink string, err error) {
	if m == nil {
		return
	}
	outcome := "ok"
	if err != nil {
		outcome = "error"
	}
	m.panelPushes.WithLabelValues(sink, outcome).Inc()
}

// RecordTreatmentClosed observes the duration of a finished or cancelled treatment.
func (m *Metrics) RecordTreatmentClosed(status string, minutes int) {
	if m == nil {
		return
	}
	m.treatmentDuration.WithLabelValues(status).Observe(float64(minutes))
}
