package observability

import (
	"context"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Metrics is the metrics surface shared by the tenant, rotation and
// announcement modules.
type Metrics interface {
	RecordOperationAttempt(ctx context.Context, operation, service string)
	RecordOperationSuccess(ctx context.Context, operation, service string)
	RecordOperationFailure(ctx context.Context, operation, service string)
	RecordOperationDuration(ctx context.Context, operation, service string, duration time.Duration)

	SessionOpened()
	SessionClosed()
	RecordStoreOpenFailure(reason string)

	RecordAssignment(kind string)
	RecordAnnouncement(result string)
}

// PrometheusMetrics implements Metrics with client_golang collectors.
type PrometheusMetrics struct {
	attempts          *prometheus.CounterVec
	successes         *prometheus.CounterVec
	failures          *prometheus.CounterVec
	durations         *prometheus.HistogramVec
	sessionsOpen      prometheus.Gauge
	storeOpenFailures *prometheus.CounterVec
	assignments       *prometheus.CounterVec
	announcements     *prometheus.CounterVec
}

// NewPrometheusMetrics creates the collectors and registers them on reg.
func NewPrometheusMetrics(reg prometheus.Registerer) *PrometheusMetrics {
	m := &PrometheusMetrics{
		attempts: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "operation_attempts_total",
			Help: "Service operations attempted.",
		}, []string{"operation", "service"}),
		successes: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "operation_success_total",
			Help: "Service operations that completed without error.",
		}, []string{"operation", "service"}),
		failures: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "operation_failures_total",
			Help: "Service operations that returned an error or panicked.",
		}, []string{"operation", "service"}),
		durations: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "operation_duration_seconds",
			Help:    "Service operation latency.",
			Buckets: prometheus.DefBuckets,
		}, []string{"operation", "service"}),
		sessionsOpen: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "tenant_sessions_open",
			Help: "Tenant store handles currently held by a session.",
		}),
		storeOpenFailures: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "tenant_store_open_failures_total",
			Help: "Tenant store resolutions that failed.",
		}, []string{"reason"}),
		assignments: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "rotation_assignments_total",
			Help: "Awards assigned, by kind.",
		}, []string{"kind"}),
		announcements: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "announcements_total",
			Help: "Award announcements by delivery result.",
		}, []string{"result"}),
	}

	if reg != nil {
		reg.MustRegister(
			m.attempts,
			m.successes,
			m.failures,
			m.durations,
			m.sessionsOpen,
			m.storeOpenFailures,
			m.assignments,
			m.announcements,
		)
	}
	return m
}

func (m *PrometheusMetrics) RecordOperationAttempt(_ context.Context, operation, service string) {
	m.attempts.WithLabelValues(operation, service).Inc()
}

func (m *PrometheusMetrics) RecordOperationSuccess(_ context.Context, operation, service string) {
	m.successes.WithLabelValues(operation, service).Inc()
}

func (m *PrometheusMetrics) RecordOperationFailure(_ context.Context, operation, service string) {
	m.failures.WithLabelValues(operation, service).Inc()
}

func (m *PrometheusMetrics) RecordOperationDuration(_ context.Context, operation, service string, duration time.Duration) {
	m.durations.WithLabelValues(operation, service).Observe(duration.Seconds())
}

func (m *PrometheusMetrics) SessionOpened() { m.sessionsOpen.Inc() }

func (m *PrometheusMetrics) SessionClosed() { m.sessionsOpen.Dec() }

func (m *PrometheusMetrics) RecordStoreOpenFailure(reason string) {
	m.storeOpenFailures.WithLabelValues(reason).Inc()
}

func (m *PrometheusMetrics) RecordAssignment(kind string) {
	m.assignments.WithLabelValues(kind).Inc()
}

func (m *PrometheusMetrics) RecordAnnouncement(result string) {
	m.announcements.WithLabelValues(result).Inc()
}

// NoOpMetrics discards everything. Used by tests and CLI tooling.
type NoOpMetrics struct{}

// NewNoop returns a Metrics that records nothing.
func NewNoop() Metrics { return NoOpMetrics{} }

func (NoOpMetrics) RecordOperationAttempt(context.Context, string, string)                {}
func (NoOpMetrics) RecordOperationSuccess(context.Context, string, string)                {}
func (NoOpMetrics) RecordOperationFailure(context.Context, string, string)                {}
func (NoOpMetrics) RecordOperationDuration(context.Context, string, string, time.Duration) {}
func (NoOpMetrics) SessionOpened()                                                        {}
func (NoOpMetrics) SessionClosed()                                                        {}
func (NoOpMetrics) RecordStoreOpenFailure(string)                                         {}
func (NoOpMetrics) RecordAssignment(string)                                               {}
func (NoOpMetrics) RecordAnnouncement(string)                                             {}
