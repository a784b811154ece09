package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds Prometheus collectors for the matching worker pool.
type Metrics struct {
	TasksProcessed *prometheus.CounterVec
	TaskDuration   *prometheus.HistogramVec
	DequeueErrors  prometheus.Counter
	TasksEnqueued  *prometheus.CounterVec
}

// New registers and returns task metrics collectors.
func New() *Metrics {
	return &Metrics{
		TasksProcessed: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "guidinghand_tasks_processed_total",
			Help: "Total number of matching tasks processed, labeled by kind and outcome",
		}, []string{"kind", "outcome"}),
		TaskDuration: promauto.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "guidinghand_task_duration_seconds",
			Help:    "Duration of matching tasks in seconds",
			Buckets: []float64{0.001, 0.005, 0.01, 0.05, 0.1, 0.5, 1, 5, 10, 30},
		}, []string{"kind"}),
		DequeueErrors: promauto.NewCounter(prometheus.CounterOpts{
			Name: "guidinghand_task_dequeue_errors_total",
			Help: "Total number of failed dequeue attempts",
		}),
		TasksEnqueued: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "guidinghand_tasks_enqueued_total",
			Help: "Total number of enqueue attempts, labeled by kind and outcome",
		}, []string{"kind", "outcome"}),
	}
}

func (m *Metrics) ObserveTask(kind, outcome string, seconds float64) {
	m.TasksProcessed.WithLabelValues(kind, outcome).Inc()
	m.TaskDuration.WithLabelValues(kind).Observe(seconds)
}

func (m *Metrics) IncDequeueErrors() {
	m.DequeueErrors.Inc()
}

func (m *Metrics) IncEnqueued(kind, outcome string) {
	m.TasksEnqueued.WithLabelValues(kind, outcome).Inc()
}
