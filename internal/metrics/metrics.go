// Package metrics provides the centralized Prometheus metrics registry for
// the racing-content backend.
package metrics

import (
	"net/http"
	"sync"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Global registry instance
var (
	registry *prometheus.Registry
	once     sync.Once
)

// Counter metrics
var (
	DocumentsIngestedTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: "turfintel",
		Name:      "documents_ingested_total",
		Help:      "Total number of vector documents written during ingestion",
	})
	RaceIngestionsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "turfintel",
		Name:      "race_ingestions_total",
		Help:      "Total number of race ingestion runs by outcome",
	}, []string{"outcome"})
	SimilaritySearchesTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: "turfintel",
		Name:      "similarity_searches_total",
		Help:      "Total number of similarity searches executed",
	})
	ChatTurnsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "turfintel",
		Name:      "chat_turns_total",
		Help:      "Total number of chat turns answered by template kind",
	}, []string{"template"})
	ChartComputationsTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: "turfintel",
		Name:      "chart_computations_total",
		Help:      "Total number of analytics chart bundle computations",
	})
	StoreCleanupsTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: "turfintel",
		Name:      "store_cleanups_total",
		Help:      "Total number of vector store cleanup sweeps",
	})
	StoresReclaimedTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: "turfintel",
		Name:      "stores_reclaimed_total",
		Help:      "Total number of race vector stores physically removed",
	})
	ProviderRequestsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "turfintel",
		Name:      "provider_requests_total",
		Help:      "Total number of upstream provider requests by outcome",
	}, []string{"endpoint", "outcome"})
)

// Gauge metrics
var (
	VectorStoresOpen = prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: "turfintel",
		Name:      "vector_stores_open",
		Help:      "Number of race vector stores currently open in-process",
	})
	ProviderCacheHitRatio = prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: "turfintel",
		Name:      "provider_cache_hit_ratio",
		Help:      "Hit ratio of the provider read-through cache",
	})
)

// Histogram metrics
var (
	IngestionDuration = prometheus.NewHistogram(prometheus.HistogramOpts{
		Namespace: "turfintel",
		Name:      "ingestion_duration_seconds",
		Help:      "Duration of race document ingestion in seconds",
		Buckets:   prometheus.DefBuckets,
	})
	SearchLatency = prometheus.NewHistogram(prometheus.HistogramOpts{
		Namespace: "turfintel",
		Name:      "search_latency_seconds",
		Help:      "Latency of similarity searches in seconds",
		Buckets:   prometheus.DefBuckets,
	})
	ChartComputationDuration = prometheus.NewHistogram(prometheus.HistogramOpts{
		Namespace: "turfintel",
		Name:      "chart_computation_duration_seconds",
		Help:      "Duration of chart bundle computations in seconds",
		Buckets:   []float64{0.005, 0.01, 0.05, 0.1, 0.5, 1, 5},
	})
	EmbeddingLatency = prometheus.NewHistogram(prometheus.HistogramOpts{
		Namespace: "turfintel",
		Name:      "embedding_latency_seconds",
		Help:      "Latency of embedding service calls in seconds",
		Buckets:   prometheus.DefBuckets,
	})
)

// InitRegistry initializes the global Prometheus registry.
func InitRegistry() *prometheus.Registry {
	once.Do(func() {
		registry = prometheus.NewRegistry()

		registry.MustRegister(DocumentsIngestedTotal)
		registry.MustRegister(RaceIngestionsTotal)
		registry.MustRegister(SimilaritySearchesTotal)
		registry.MustRegister(ChatTurnsTotal)
		registry.MustRegister(ChartComputationsTotal)
		registry.MustRegister(StoreCleanupsTotal)
		registry.MustRegister(StoresReclaimedTotal)
		registry.MustRegister(ProviderRequestsTotal)

		registry.MustRegister(VectorStoresOpen)
		registry.MustRegister(ProviderCacheHitRatio)

		registry.MustRegister(IngestionDuration)
		registry.MustRegister(SearchLatency)
		registry.MustRegister(ChartComputationDuration)
		registry.MustRegister(EmbeddingLatency)
	})
	return registry
}

// GetRegistry returns the global Prometheus registry.
func GetRegistry() *prometheus.Registry {
	if registry == nil {
		return InitRegistry()
	}
	return registry
}

// Handler returns the Prometheus HTTP handler.
func Handler() http.Handler {
	return promhttp.HandlerFor(GetRegistry(), promhttp.HandlerOpts{})
}

// RecordIngestion records one race ingestion run.
func RecordIngestion(outcome string, documents int, durationSeconds float64) {
	RaceIngestionsTotal.WithLabelValues(outcome).Inc()
	DocumentsIngestedTotal.Add(float64(documents))
	IngestionDuration.Observe(durationSeconds)
}

// RecordSearch records one similarity search.
func RecordSearch(durationSeconds float64) {
	SimilaritySearchesTotal.Inc()
	SearchLatency.Observe(durationSeconds)
}

// RecordChatTurn records one answered chat turn.
func RecordChatTurn(template string) {
	ChatTurnsTotal.WithLabelValues(template).Inc()
}

// RecordChartComputation records one chart bundle computation.
func RecordChartComputation(durationSeconds float64) {
	ChartComputationsTotal.Inc()
	ChartComputationDuration.Observe(durationSeconds)
}
