package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds Prometheus collectors for report intake.
type Metrics struct {
	ReportsCreated     *prometheus.CounterVec
	GuardRejections    *prometheus.CounterVec
	ReferenceRejected  prometheus.Counter
	IntakeLockWait     prometheus.Histogram
	IntakeLockAcquired prometheus.Counter
}

// New registers and returns intake metrics collectors.
func New() *Metrics {
	return &Metrics{
		ReportsCreated: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "guidinghand_reports_created_total",
			Help: "Total number of reports persisted, labeled by kind (missing or found)",
		}, []string{"kind"}),
		GuardRejections: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "guidinghand_intake_guard_rejections_total",
			Help: "Total number of missing-person submissions rejected by the intake guard, labeled by reason",
		}, []string{"reason"}),
		ReferenceRejected: promauto.NewCounter(prometheus.CounterOpts{
			Name: "guidinghand_found_reference_rejections_total",
			Help: "Total number of found-person submissions rejected for an invalid missing-person reference",
		}),
		IntakeLockWait: promauto.NewHistogram(prometheus.HistogramOpts{
			Name:    "guidinghand_intake_shard_lock_wait_seconds",
			Help:    "Time spent waiting to acquire the per-reporter intake lock",
			Buckets: []float64{0.0001, 0.0005, 0.001, 0.005, 0.01, 0.05, 0.1, 0.5, 1},
		}),
		IntakeLockAcquired: promauto.NewCounter(prometheus.CounterOpts{
			Name: "guidinghand_intake_shard_lock_acquisitions_total",
			Help: "Total number of per-reporter intake lock acquisitions",
		}),
	}
}

func (m *Metrics) IncCreated(kind string) {
	m.ReportsCreated.WithLabelValues(kind).Inc()
}

func (m *Metrics) IncGuardRejection(reason string) {
	m.GuardRejections.WithLabelValues(reason).Inc()
}

func (m *Metrics) IncReferenceRejected() {
	m.ReferenceRejected.Inc()
}

func (m *Metrics) ObserveLockWait(seconds float64) {
	m.IntakeLockWait.Observe(seconds)
	m.IntakeLockAcquired.Inc()
}
