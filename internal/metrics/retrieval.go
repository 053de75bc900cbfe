package metrics

import "github.com/prometheus/client_golang/prometheus"

// Namespace prefixes every metric name.
const Namespace = "rfprag"

// Retrieval Prometheus metrics. Labels never carry tenant ids.
var (
	RetrievalRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: Namespace,
			Name:      "retrieval_requests_total",
			Help:      "Total number of retrieval calls by outcome",
		},
		[]string{"outcome", "depth"},
	)

	RetrievalDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: Namespace,
			Name:      "retrieval_duration_seconds",
			Help:      "Retrieval call duration in seconds, including the latency floor",
			Buckets:   []float64{0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5},
		},
		[]string{"outcome"},
	)

	RetrievalResultsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: Namespace,
			Name:      "retrieval_results_total",
			Help:      "Ranked results returned, by provenance",
		},
		[]string{"source"},
	)

	RetrievalForeignDroppedTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: Namespace,
			Name:      "retrieval_foreign_matches_dropped_total",
			Help:      "Matches dropped because their tenant did not match the request",
		},
	)

	RetrievalDeduplicatedTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: Namespace,
			Name:      "retrieval_deduplicated_total",
			Help:      "Matches merged away as duplicates",
		},
	)

	RetrievalRedactionsTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: Namespace,
			Name:      "retrieval_text_redactions_total",
			Help:      "Result texts that needed tenant redaction",
		},
	)

	IndexBreakerOpen = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Namespace: Namespace,
			Name:      "index_circuit_open",
			Help:      "1 when the vector index circuit breaker is open",
		},
		[]string{"operation"},
	)

	RateLimitedTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: Namespace,
			Name:      "rate_limited_total",
			Help:      "Requests rejected by the per-tenant rate limiter",
		},
	)
)

var retrievalMetricsRegistered bool

// RegisterRetrievalMetrics registers retrieval metrics. Must be called once from main.
func RegisterRetrievalMetrics() {
	if retrievalMetricsRegistered {
		return
	}
	prometheus.MustRegister(RetrievalRequestsTotal)
	prometheus.MustRegister(RetrievalDuration)
	prometheus.MustRegister(RetrievalResultsTotal)
	prometheus.MustRegister(RetrievalForeignDroppedTotal)
	prometheus.MustRegister(RetrievalDeduplicatedTotal)
	prometheus.MustRegister(RetrievalRedactionsTotal)
	prometheus.MustRegister(IndexBreakerOpen)
	prometheus.MustRegister(RateLimitedTotal)
	retrievalMetricsRegistered = true
}
