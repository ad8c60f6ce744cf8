package observability

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

//nolint:gochecknoglobals // Prometheus metrics must be global for registration
var (
	// CacheLookups counts cache lookups by result and the index that answered
	CacheLookups = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "clickguard_cache_lookups_total",
			Help: "Total number of query cache lookups",
		},
		[]string{"result", "source"}, // result: hit, miss
	)

	// CacheStores counts entries written per index
	CacheStores = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "clickguard_cache_stores_total",
			Help: "Total number of entries written to a cache index",
		},
		[]string{"index"},
	)

	// CacheEvictions counts stale entries removed on lookup
	CacheEvictions = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "clickguard_cache_evictions_total",
			Help: "Total number of stale cache entries evicted",
		},
		[]string{"index"},
	)

	// CacheBackendErrors counts failed cache backend operations
	CacheBackendErrors = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "clickguard_cache_backend_errors_total",
			Help: "Total number of cache backend failures",
		},
		[]string{"op"},
	)

	// WarehouseQueries counts warehouse round trips by outcome
	WarehouseQueries = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "clickguard_warehouse_queries_total",
			Help: "Total number of warehouse queries",
		},
		[]string{"kind", "status"}, // kind: execute, preview
	)

	// WarehouseQueryDuration measures warehouse query latency
	WarehouseQueryDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "clickguard_warehouse_query_duration_seconds",
			Help:    "Warehouse query duration in seconds",
			Buckets: prometheus.ExponentialBuckets(0.01, 2, 12), // 10ms to ~40s
		},
		[]string{"kind"},
	)

	// SharedExecutions counts callers that waited on an in-flight execution
	SharedExecutions = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "clickguard_gateway_shared_executions_total",
			Help: "Total number of executions shared with concurrent callers",
		},
	)

	// ClarificationOutcomes counts clarification tracker decisions
	ClarificationOutcomes = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "clickguard_clarification_outcomes_total",
			Help: "Total number of clarification tracker decisions",
		},
		[]string{"outcome", "field"},
	)

	// ChatTurns counts conversation turns by resolved intent status
	ChatTurns = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "clickguard_chat_turns_total",
			Help: "Total number of conversation turns",
		},
		[]string{"status"},
	)

	// Completions counts language-model completions by stage and status
	Completions = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "clickguard_assistant_completions_total",
			Help: "Total number of assistant completions",
		},
		[]string{"stage", "status"},
	)

	// CompletionDuration measures language-model completion latency
	CompletionDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "clickguard_assistant_completion_duration_seconds",
			Help:    "Assistant completion duration in seconds",
			Buckets: prometheus.ExponentialBuckets(0.1, 2, 10),
		},
		[]string{"stage"},
	)

	// ErrorsTotal tracks errors by component
	ErrorsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "clickguard_errors_total",
			Help: "Total number of errors",
		},
		[]string{"component", "error_type"},
	)
)

// RecordCacheLookup records a cache lookup
func RecordCacheLookup(result, source string) {
	CacheLookups.WithLabelValues(result, source).Inc()
}

// RecordCacheStore records an index write
func RecordCacheStore(index string) {
	CacheStores.WithLabelValues(index).Inc()
}

// RecordCacheEviction records a stale entry eviction
func RecordCacheEviction(index string) {
	CacheEvictions.WithLabelValues(index).Inc()
}

// RecordCacheBackendError records a failed backend operation
func RecordCacheBackendError(op string) {
	CacheBackendErrors.WithLabelValues(op).Inc()
}

// RecordWarehouseQuery records warehouse query metrics
func RecordWarehouseQuery(kind, status string, duration float64) {
	WarehouseQueries.WithLabelValues(kind, status).Inc()
	WarehouseQueryDuration.WithLabelValues(kind).Observe(duration)
}

// RecordSharedExecution records a caller served by another caller's execution
func RecordSharedExecution() {
	SharedExecutions.Inc()
}

// RecordClarificationOutcome records a clarification decision
func RecordClarificationOutcome(outcome, field string) {
	ClarificationOutcomes.WithLabelValues(outcome, field).Inc()
}

// RecordChatTurn records a conversation turn
func RecordChatTurn(status string) {
	ChatTurns.WithLabelValues(status).Inc()
}

// RecordCompletion records an assistant completion
func RecordCompletion(stage, status string, duration time.Duration) {
	Completions.WithLabelValues(stage, status).Inc()
	CompletionDuration.WithLabelValues(stage).Observe(duration.Seconds())
}

// RecordError records an error
func RecordError(component, errorType string) {
	ErrorsTotal.WithLabelValues(component, errorType).Inc()
}
