package metrics

import "github.com/prometheus/client_golang/prometheus"

// Fusion retrieval and learning loop Prometheus metrics.
var (
	SearchRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "catalogsearch",
			Name:      "search_requests_total",
			Help:      "Total number of fusion search requests",
		},
		[]string{"tenant"},
	)

	SearchSignalCandidates = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "catalogsearch",
			Name:      "search_signal_candidates",
			Help:      "Candidates returned per signal query",
			Buckets:   []float64{0, 1, 5, 10, 25, 50, 100},
		},
		[]string{"signal"},
	)

	SearchFusedResults = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Namespace: "catalogsearch",
			Name:      "search_fused_results",
			Help:      "Fused rows returned per request",
			Buckets:   []float64{0, 1, 5, 10, 20, 50, 100},
		},
	)

	LearningBridgesTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "catalogsearch",
			Name:      "learning_bridges_total",
			Help:      "Learned bridges touched by the learning loop",
		},
		[]string{"outcome"}, // "aggregated" / "applied" / "retired"
	)
)

var retrievalMetricsRegistered bool

// RegisterRetrievalMetrics registers search and learning metrics. Must
// be called once from main.
func RegisterRetrievalMetrics() {
	if retrievalMetricsRegistered {
		return
	}
	prometheus.MustRegister(SearchRequestsTotal)
	prometheus.MustRegister(SearchSignalCandidates)
	prometheus.MustRegister(SearchFusedResults)
	prometheus.MustRegister(LearningBridgesTotal)
	retrievalMetricsRegistered = true
}
