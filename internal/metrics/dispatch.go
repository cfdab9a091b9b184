package metrics

import "github.com/prometheus/client_golang/prometheus"

// Dispatcher and matching Prometheus metrics.
var (
	DispatchRunning = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Namespace: "docmatch",
			Name:      "dispatch_running",
			Help:      "Number of matching tasks currently holding a slot",
		},
	)

	DispatchSubmissionsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "docmatch",
			Name:      "dispatch_submissions_total",
			Help:      "Submissions by admission outcome",
		},
		[]string{"outcome"}, // "accepted" / "queued" / "failed"
	)

	DispatchDrainedTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "docmatch",
			Name:      "dispatch_drained_total",
			Help:      "Queue items handled by the drain loop",
		},
		[]string{"result"}, // "launched" / "malformed" / "error"
	)

	MatchDuration = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Namespace: "docmatch",
			Name:      "match_duration_seconds",
			Help:      "Duration of one document match",
			Buckets:   []float64{0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30, 60},
		},
	)

	MatchDocumentsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "docmatch",
			Name:      "match_documents_total",
			Help:      "Matched documents by status",
		},
		[]string{"status"}, // "found" / "not_found" / "error"
	)
)

var dispatchMetricsRegistered bool

// RegisterDispatchMetrics registers dispatcher and matching metrics. Must be called once from main.
func RegisterDispatchMetrics() {
	if dispatchMetricsRegistered {
		return
	}
	prometheus.MustRegister(DispatchRunning)
	prometheus.MustRegister(DispatchSubmissionsTotal)
	prometheus.MustRegister(DispatchDrainedTotal)
	prometheus.MustRegister(MatchDuration)
	prometheus.MustRegister(MatchDocumentsTotal)
	dispatchMetricsRegistered = true
}
