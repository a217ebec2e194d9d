package metrics

import "github.com/prometheus/client_golang/prometheus"

// Recommendation pipeline Prometheus metrics.
var (
	RecommendationsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "healthrec",
			Name:      "recommendations_total",
			Help:      "Total recommendation requests by classified outcome",
		},
		[]string{"outcome"}, // "normal" / "emergency" / "out_of_scope" / "no_services"
	)

	RerankFallbacksTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: "healthrec",
			Name:      "rerank_fallbacks_total",
			Help:      "Reranking calls that fell back to retrieval order",
		},
	)

	DuplicatesRemovedTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: "healthrec",
			Name:      "duplicates_removed_total",
			Help:      "Service records dropped by deduplication",
		},
	)

	ChatRequestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "healthrec",
			Name:      "chat_request_duration_seconds",
			Help:      "Chat completion request duration in seconds",
			Buckets:   []float64{0.25, 0.5, 1, 2.5, 5, 10, 30},
		},
		[]string{"model", "status"},
	)
)

var pipelineMetricsRegistered bool

// RegisterPipelineMetrics registers Prometheus pipeline metrics. Must be called once from main.
func RegisterPipelineMetrics() {
	if pipelineMetricsRegistered {
		return
	}
	prometheus.MustRegister(RecommendationsTotal)
	prometheus.MustRegister(RerankFallbacksTotal)
	prometheus.MustRegister(DuplicatesRemovedTotal)
	prometheus.MustRegister(ChatRequestDuration)
	pipelineMetricsRegistered = true
}
