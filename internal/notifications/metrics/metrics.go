package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds Prometheus collectors for notification delivery.
type Metrics struct {
	NotificationsSent   *prometheus.CounterVec
	NotificationsFailed *prometheus.CounterVec
	RetryOutcomes       *prometheus.CounterVec
	DeadLetters         prometheus.Counter
	PendingDeliveries   prometheus.Gauge
	SendDuration        prometheus.Histogram
}

// New registers and returns notification metrics collectors.
func New() *Metrics {
	return &Metrics{
		NotificationsSent: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "guidinghand_notifications_sent_total",
			Help: "Total number of notifications accepted by the email transport, labeled by path (dispatch or retry)",
		}, []string{"path"}),
		NotificationsFailed: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "guidinghand_notifications_failed_total",
			Help: "Total number of failed notification sends, labeled by path (dispatch or retry)",
		}, []string{"path"}),
		RetryOutcomes: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "guidinghand_notification_retries_total",
			Help: "Total number of retry queue transitions, labeled by outcome (scheduled, delivered, rescheduled, dead)",
		}, []string{"outcome"}),
		DeadLetters: promauto.NewCounter(prometheus.CounterOpts{
			Name: "guidinghand_notification_dead_letters_total",
			Help: "Total number of notifications abandoned after exhausting retries",
		}),
		PendingDeliveries: promauto.NewGauge(prometheus.GaugeOpts{
			Name: "guidinghand_notification_pending_deliveries",
			Help: "Number of notifications waiting in the retry queue",
		}),
		SendDuration: promauto.NewHistogram(prometheus.HistogramOpts{
			Name:    "guidinghand_notification_send_duration_seconds",
			Help:    "Duration of email transport calls in seconds",
			Buckets: []float64{0.01, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10},
		}),
	}
}

func (m *Metrics) IncSent(path string) {
	m.NotificationsSent.WithLabelValues(path).Inc()
}

func (m *Metrics) IncFailed(path string) {
	m.NotificationsFailed.WithLabelValues(path).Inc()
}

func (m *Metrics) IncRetry(outcome string) {
	m.RetryOutcomes.WithLabelValues(outcome).Inc()
}

func (m *Metrics) IncDeadLetters() {
	m.DeadLetters.Inc()
}

func (m *Metrics) SetPending(n int64) {
	m.PendingDeliveries.Set(float64(n))
}

func (m *Metrics) ObserveSend(seconds float64) {
	m.SendDuration.Observe(seconds)
}
