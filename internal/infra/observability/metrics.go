package observability

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	dto "github.com/prometheus/client_model/go"
)

// Metrics holds all Prometheus metrics for selfservice.
type Metrics struct {
	// Registry is the Prometheus registry that owns these metrics.
	// Exposed so the /metrics endpoint can use it.
	Registry *prometheus.Registry

	requestDuration    *prometheus.HistogramVec
	backendDuration    *prometheus.HistogramVec
	backendErrors      *prometheus.CounterVec
	sessionsCreated    prometheus.Counter
	validationFailures *prometheus.CounterVec
}

// NewMetrics creates a dedicated Prometheus registry and registers all
// application metrics in it. Using a private registry avoids "duplicate
// collector" panics when NewMetrics is called more than once (e.g. in tests).
func NewMetrics() *Metrics {
	reg := prometheus.NewRegistry()
	factory := promauto.With(reg)

	return &Metrics{
		Registry: reg,

		requestDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "selfservice_request_duration_seconds",
				Help:    "Duration of page requests by operation.",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"operation"},
		),
		backendDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "selfservice_backend_request_duration_seconds",
				Help:    "Duration of backend calls by backend.",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"backend"},
		),
		backendErrors: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "selfservice_backend_errors_total",
				Help: "Total failed backend calls.",
			},
			[]string{"backend"},
		),
		sessionsCreated: factory.NewCounter(
			prometheus.CounterOpts{
				Name: "selfservice_sessions_created_total",
				Help: "Total sessions created.",
			},
		),
		validationFailures: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "selfservice_validation_failures_total",
				Help: "Total rejected form submissions by form.",
			},
			[]string{"form"},
		),
	}
}

// RecordRequestDuration records the duration of an operation.
func (m *Metrics) RecordRequestDuration(operation string, d time.Duration) {
	m.requestDuration.WithLabelValues(operation).Observe(d.Seconds())
}

// RecordBackendDuration records the duration of one backend call.
func (m *Metrics) RecordBackendDuration(backend string, d time.Duration) {
	m.backendDuration.WithLabelValues(backend).Observe(d.Seconds())
}

// IncrBackendError increments the backend error counter.
func (m *Metrics) IncrBackendError(backend string) {
	m.backendErrors.WithLabelValues(backend).Inc()
}

// IncrSessionCreated increments the session counter.
func (m *Metrics) IncrSessionCreated() {
	m.sessionsCreated.Inc()
}

// IncrValidationFailure increments the validation failure counter for a form.
func (m *Metrics) IncrValidationFailure(form string) {
	m.validationFailures.WithLabelValues(form).Inc()
}

// BackendErrors returns the current error count for a backend.
func (m *Metrics) BackendErrors(backend string) float64 {
	return getCounterValue(m.backendErrors.WithLabelValues(backend))
}

// ValidationFailures returns the current failure count for a form.
func (m *Metrics) ValidationFailures(form string) float64 {
	return getCounterValue(m.validationFailures.WithLabelValues(form))
}

// SessionsCreated returns the number of sessions created.
func (m *Metrics) SessionsCreated() float64 {
	return getCounterValue(m.sessionsCreated)
}

// getCounterValue extracts the current float64 value from a counter.
func getCounterValue(counter prometheus.Counter) float64 {
	m := &dto.Metric{}
	if err := counter.Write(m); err != nil {
		return 0
	}
	if m.Counter != nil && m.Counter.Value != nil {
		return *m.Counter.Value
	}
	return 0
}
