package metrics

import "github.com/prometheus/client_golang/prometheus"

// Embedding and pipeline Prometheus metrics.
var (
	EmbeddingRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "mathnotes",
			Name:      "embedding_requests_total",
			Help:      "Total number of embedding requests",
		},
		[]string{"model", "status"},
	)

	EmbeddingRequestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "mathnotes",
			Name:      "embedding_request_duration_seconds",
			Help:      "Embedding request duration in seconds",
			Buckets:   []float64{0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10},
		},
		[]string{"model"},
	)

	EmbeddingTokensTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "mathnotes",
			Name:      "embedding_tokens_total",
			Help:      "Total embedding tokens consumed",
		},
		[]string{"model", "type"},
	)

	EmbeddingCacheTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "mathnotes",
			Name:      "embedding_cache_total",
			Help:      "Embedding cache hits and misses",
		},
		[]string{"result"}, // "hit" / "miss"
	)

	ChatRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "mathnotes",
			Name:      "chat_requests_total",
			Help:      "Total number of chat completion requests",
		},
		[]string{"model", "status"},
	)

	ChatRequestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "mathnotes",
			Name:      "chat_request_duration_seconds",
			Help:      "Chat completion duration in seconds",
			Buckets:   []float64{0.5, 1, 2.5, 5, 10, 20, 40, 60},
		},
		[]string{"model"},
	)

	DocumentsIndexedTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "mathnotes",
			Name:      "documents_indexed_total",
			Help:      "Documents processed by the indexer",
		},
		[]string{"status"}, // "indexed" / "skipped" / "failed"
	)

	PagesIndexedTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: "mathnotes",
			Name:      "pages_indexed_total",
			Help:      "Page units written to the index",
		},
	)

	ContextPagesPerQuery = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Namespace: "mathnotes",
			Name:      "context_pages_per_query",
			Help:      "Number of rendered pages handed to the model per query",
			Buckets:   []float64{0, 1, 2, 3, 4, 5, 6, 7, 8, 9},
		},
	)
)

// Register registers all pipeline metrics explicitly (no init()).
func Register() {
	prometheus.MustRegister(
		EmbeddingRequestsTotal,
		EmbeddingRequestDuration,
		EmbeddingTokensTotal,
		EmbeddingCacheTotal,
		ChatRequestsTotal,
		ChatRequestDuration,
		DocumentsIndexedTotal,
		PagesIndexedTotal,
		ContextPagesPerQuery,
	)
}
