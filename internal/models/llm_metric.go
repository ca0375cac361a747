package models

import (
	"time"

	"github.com/google/uuid"
)

// LLMMetric is an append-only record of one LLM call, including failed calls
// (zeroed usage, Success false, Error set).
type LLMMetric struct {
	ID               uuid.UUID  `json:"id"`
	EntityType       *string    `json:"entity_type"`
	EntityID         *uuid.UUID `json:"entity_id"`
	DocumentID       *uuid.UUID `json:"document_id"`
	Operation        string     `json:"operation"`
	ModelName        string     `json:"model_name"`
	PromptVersion    string     `json:"prompt_version"`
	PromptTokens     int        `json:"prompt_tokens"`
	CompletionTokens int        `json:"completion_tokens"`
	TotalTokens      int        `json:"total_tokens"`
	EstimatedCostUSD float64    `json:"estimated_cost_usd"`
	LatencyMs        int64      `json:"latency_ms"`
	Success          bool       `json:"success"`
	Error            *string    `json:"error"`
	CreatedAt        time.Time  `json:"created_at"`
}

// MetricsSummaryFilters narrows the metrics summary by query parameters.
type MetricsSummaryFilters struct {
	Model *string    `form:"model" validate:"omitempty,max=200,no_null_bytes"`
	Since *time.Time `form:"since"`
}

// ModelMetricsSummary aggregates LLM metrics for one model.
type ModelMetricsSummary struct {
	ModelName        string  `json:"model_name"`
	Calls            int64   `json:"calls"`
	TotalTokens      int64   `json:"total_tokens"`
	TotalCostUSD     float64 `json:"total_cost_usd"`
	AverageLatencyMs float64 `json:"average_latency_ms"`
	SuccessRate      float64 `json:"success_rate"`
}

// MetricsSummary aggregates LLM metrics across all recorded calls.
type MetricsSummary struct {
	TotalCalls       int64                 `json:"total_calls"`
	TotalTokens      int64                 `json:"total_tokens"`
	TotalCostUSD     float64               `json:"total_cost_usd"`
	AverageLatencyMs float64               `json:"average_latency_ms"`
	SuccessRate      float64               `json:"success_rate"`
	ByModel          []ModelMetricsSummary `json:"by_model"`
}
