// Package observability provides OpenTelemetry metrics (Prometheus exporter) and structured logging helpers.
package observability

// Metric names (Prometheus / OpenTelemetry).
const (
	MetricNameLLMCalls           = "recruit_llm_calls_total"
	MetricNameLLMTokens          = "recruit_llm_tokens_total"
	MetricNameLLMCost            = "recruit_llm_cost_usd_total"
	MetricNameLLMCallDuration    = "recruit_llm_call_duration_seconds"
	MetricNameExtractions        = "recruit_extractions_total"
	MetricNameEmbeddingEnqueued  = "recruit_embedding_jobs_enqueued_total"
	MetricNameEmbeddingEnqErrors = "recruit_embedding_enqueue_errors_total"
	MetricNameEmbeddingOutcomes  = "recruit_embedding_outcomes_total"
	MetricNameEmbeddingDuration  = "recruit_embedding_generation_duration_seconds"
	MetricNameRetrievals         = "recruit_retrievals_total"
	MetricNameRetrievalDuration  = "recruit_retrieval_duration_seconds"
	MetricNameCacheHits          = "recruit_cache_hits_total"
	MetricNameCacheMisses        = "recruit_cache_misses_total"
)

// Attribute keys.
const (
	AttrModel      = "model"
	AttrOperation  = "operation"
	AttrStatus     = "status"
	AttrReason     = "reason"
	AttrCache      = "cache"
	AttrQueryType  = "query_type"
	AttrMethod     = "method"
)

// LLM operation labels (bounded cardinality).
var allowedLLMOperations = map[string]bool{
	"extraction":     true,
	"explanation":    true,
	"sql_generation": true,
	"answer":         true,
}

// Extraction method labels.
var allowedExtractionMethods = map[string]bool{
	"heuristic": true,
	"llm":       true,
	"hybrid":    true,
}

// Embedding outcome labels.
var allowedEmbeddingOutcomes = map[string]bool{
	"success":      true,
	"skipped":      true,
	"retry":        true,
	"failed_final": true,
}

// Retrieval query type labels.
var allowedQueryTypes = map[string]bool{
	"candidates_for_position": true,
	"positions_for_candidate": true,
}

// Cache name labels.
var allowedCacheNames = map[string]bool{
	"explanation":    true,
	"extraction":     true,
	"schema_context": true,
}

// NormalizeLabel returns value if present in allowed, otherwise "other".
func NormalizeLabel(value string, allowed map[string]bool) string {
	if allowed[value] {
		return value
	}

	return "other"
}
