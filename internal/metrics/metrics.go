/*
Package metrics holds the Prometheus collectors for the curation subsystem.

Collectors are registered on the default registry via promauto; the serve
command exposes nothing itself; embedders scrape the default registry.
*/
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// Cache metrics, labelled by namespace (emb, search, library).
	CacheHits = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "curator_cache_hits_total",
			Help: "Total number of cache hits",
		},
		[]string{"namespace"},
	)

	CacheMisses = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "curator_cache_misses_total",
			Help: "Total number of cache misses (including backend errors)",
		},
		[]string{"namespace"},
	)

	CacheErrors = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "curator_cache_errors_total",
			Help: "Total number of swallowed cache backend errors",
		},
		[]string{"namespace", "op"},
	)

	// Embedding provider metrics.
	EmbeddingRequests = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "curator_embedding_requests_total",
			Help: "Embedding provider calls by mode (single, batch) and outcome",
		},
		[]string{"mode", "outcome"},
	)

	EmbeddingTexts = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "curator_embedding_texts_total",
			Help: "Number of texts sent to the embedding provider",
		},
	)

	// Retrieval and sampling.
	SearchOutcomes = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "curator_search_outcomes_total",
			Help: "Vector search outcomes (cache_hit, cache_miss)",
		},
		[]string{"outcome"},
	)

	SamplingStrategy = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "curator_sampling_strategy_total",
			Help: "Which sampling stage produced the final selection",
		},
		[]string{"strategy"},
	)

	// Orchestrator operations.
	OperationDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "curator_operation_duration_seconds",
			Help:    "Duration of curator operations in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"operation", "status"},
	)

	EstimatedCostUSD = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "curator_estimated_cost_usd_total",
			Help: "Accumulated estimated provider spend in USD",
		},
		[]string{"operation", "model"},
	)

	// Provider circuit breakers.
	CircuitBreakerState = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "curator_circuit_breaker_state",
			Help: "Circuit breaker state (0=closed, 1=half-open, 2=open)",
		},
		[]string{"name"},
	)

	CircuitBreakerRequests = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "curator_circuit_breaker_requests_total",
			Help: "Requests through circuit breakers by result (success, failure, rejected)",
		},
		[]string{"name", "result"},
	)
)
