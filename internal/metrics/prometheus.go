package metrics

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/imlitech/split/types"
)

// PrometheusCollector implements types.MetricsCollector backed by Prometheus.
//
// Collectors are registered lazily on first use, so constructing one that is
// never exercised leaves the registry untouched.
type PrometheusCollector struct {
	reg       prometheus.Registerer
	namespace string
	once      sync.Once

	assignments    *prometheus.CounterVec
	participations *prometheus.CounterVec
	conversions    *prometheus.CounterVec
	failovers      *prometheus.CounterVec
	storeLatency   *prometheus.HistogramVec
	storeErrors    *prometheus.CounterVec
	cleanups       *prometheus.CounterVec
}

// Compile-time assertion that PrometheusCollector implements MetricsCollector.
var _ types.MetricsCollector = (*PrometheusCollector)(nil)

// NewPrometheus creates a new Prometheus-backed metrics collector.
//
// Parameters:
//   - reg: Prometheus registerer interface (uses prometheus.DefaultRegisterer if nil)
//   - namespace: Prometheus metrics namespace (defaults to "split" if empty)
//
// Returns:
//   - *PrometheusCollector: A MetricsCollector implementation using Prometheus
func NewPrometheus(reg prometheus.Registerer, namespace string) *PrometheusCollector {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	if namespace == "" {
		namespace = "split"
	}

	return &PrometheusCollector{reg: reg, namespace: namespace}
}

func (p *PrometheusCollector) ensureRegistered() {
	p.once.Do(func() {
		p.assignments = prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: p.namespace,
			Subsystem: "trial",
			Name:      "assignments_total",
			Help:      "Assignments returned to callers by experiment, alternative and fallback reason.",
		}, []string{"experiment", "alternative", "fallback"})

		p.participations = prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: p.namespace,
			Subsystem: "trial",
			Name:      "participations_total",
			Help:      "Visitors newly enrolled into an alternative.",
		}, []string{"experiment", "alternative"})

		p.conversions = prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: p.namespace,
			Subsystem: "trial",
			Name:      "conversions_total",
			Help:      "Recorded completions by experiment, alternative and goal.",
		}, []string{"experiment", "alternative", "goal"})

		p.failovers = prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: p.namespace,
			Subsystem: "trial",
			Name:      "failovers_total",
			Help:      "Store failures absorbed by the failover policy, by operation (assign, finish).",
		}, []string{"operation"})

		p.storeLatency = prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: p.namespace,
			Subsystem: "store",
			Name:      "operation_duration_seconds",
			Help:      "Latency of store operations in seconds.",
			Buckets:   prometheus.ExponentialBuckets(0.0005, 2, 12), // 0.5ms .. ~1s
		}, []string{"operation"})

		p.storeErrors = prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: p.namespace,
			Subsystem: "store",
			Name:      "operations_total",
			Help:      "Store operations by operation and outcome (success|failure).",
		}, []string{"operation", "result"})

		p.cleanups = prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: p.namespace,
			Subsystem: "visitor",
			Name:      "cleanup_removed_keys_total",
			Help:      "Visitor keys removed by lazy cleanup, by reason.",
		}, []string{"reason"})

		p.reg.MustRegister(
			p.assignments,
			p.participations,
			p.conversions,
			p.failovers,
			p.storeLatency,
			p.storeErrors,
			p.cleanups,
		)
	})
}

// RecordAssignment increments the assignment counter.
func (p *PrometheusCollector) RecordAssignment(experiment, alternative, fallback string) {
	p.ensureRegistered()
	p.assignments.WithLabelValues(experiment, alternative, fallback).Inc()
}

// RecordParticipation increments the participation counter.
func (p *PrometheusCollector) RecordParticipation(experiment, alternative string) {
	p.ensureRegistered()
	p.participations.WithLabelValues(experiment, alternative).Inc()
}

// RecordConversion increments the conversion counter.
func (p *PrometheusCollector) RecordConversion(experiment, alternative, goal string) {
	p.ensureRegistered()
	p.conversions.WithLabelValues(experiment, alternative, goal).Inc()
}

// RecordFailover increments the failover counter.
func (p *PrometheusCollector) RecordFailover(operation string) {
	p.ensureRegistered()
	p.failovers.WithLabelValues(operation).Inc()
}

// RecordStoreOperation observes store latency and counts the outcome.
func (p *PrometheusCollector) RecordStoreOperation(operation string, duration float64, success bool) {
	p.ensureRegistered()
	p.storeLatency.WithLabelValues(operation).Observe(duration)

	result := "success"
	if !success {
		result = "failure"
	}
	p.storeErrors.WithLabelValues(operation, result).Inc()
}

// RecordCleanup adds removed visitor keys to the cleanup counter.
func (p *PrometheusCollector) RecordCleanup(reason string, removed int) {
	if removed <= 0 {
		return
	}
	p.ensureRegistered()
	p.cleanups.WithLabelValues(reason).Add(float64(removed))
}

