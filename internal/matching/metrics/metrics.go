package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds Prometheus collectors for the matching engine.
type Metrics struct {
	MatchesCreated    *prometheus.CounterVec
	CandidatesScored  prometheus.Counter
	DispatchesStarted prometheus.Counter
	SweepDuration     prometheus.Histogram
}

// New registers and returns matching metrics collectors.
func New() *Metrics {
	return &Metrics{
		MatchesCreated: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "guidinghand_matches_created_total",
			Help: "Total number of new match records, labeled by source (referenced or broad) and score band",
		}, []string{"source", "band"}),
		CandidatesScored: promauto.NewCounter(prometheus.CounterOpts{
			Name: "guidinghand_match_candidates_scored_total",
			Help: "Total number of missing-person reports scored against a found-person report",
		}),
		DispatchesStarted: promauto.NewCounter(prometheus.CounterOpts{
			Name: "guidinghand_match_dispatches_total",
			Help: "Total number of high-confidence matches handed to the notification dispatcher",
		}),
		SweepDuration: promauto.NewHistogram(prometheus.HistogramOpts{
			Name:    "guidinghand_broad_match_sweep_duration_seconds",
			Help:    "Duration of broad-match sweeps in seconds",
			Buckets: []float64{0.001, 0.005, 0.01, 0.05, 0.1, 0.5, 1, 5, 10, 30},
		}),
	}
}

// Band buckets a confidence for labelling: "notify" above the notify
// threshold, "identifier" for 100, otherwise "review".
func Band(score, notifyThreshold int) string {
	switch {
	case score >= 100:
		return "identifier"
	case score > notifyThreshold:
		return "notify"
	default:
		return "review"
	}
}

func (m *Metrics) IncMatchCreated(source string, band string) {
	m.MatchesCreated.WithLabelValues(source, band).Inc()
}

func (m *Metrics) AddScored(n int) {
	m.CandidatesScored.Add(float64(n))
}

func (m *Metrics) IncDispatch() {
	m.DispatchesStarted.Inc()
}

func (m *Metrics) ObserveSweep(seconds float64) {
	m.SweepDuration.Observe(seconds)
}
