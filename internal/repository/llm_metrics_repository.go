package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/helliohr/recruit/internal/models"
)

// LLMMetricsRepository handles the append-only llm_metrics table.
type LLMMetricsRepository struct {
	db *pgxpool.Pool
}

// NewLLMMetricsRepository creates a new LLM metrics repository.
func NewLLMMetricsRepository(db *pgxpool.Pool) *LLMMetricsRepository {
	return &LLMMetricsRepository{db: db}
}

// Insert appends one LLM call record, successful or failed.
func (r *LLMMetricsRepository) Insert(ctx context.Context, metric *models.LLMMetric) error {
	_, err := r.db.Exec(ctx, `
		INSERT INTO llm_metrics (
			entity_type, entity_id, document_id, operation, model_name, prompt_version,
			prompt_tokens, completion_tokens, total_tokens, estimated_cost_usd,
			latency_ms, success, error, created_at
		)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14)`,
		metric.EntityType, metric.EntityID, metric.DocumentID, metric.Operation, metric.ModelName, metric.PromptVersion,
		metric.PromptTokens, metric.CompletionTokens, metric.TotalTokens, metric.EstimatedCostUSD,
		metric.LatencyMs, metric.Success, metric.Error, time.Now(),
	)
	if err != nil {
		return fmt.Errorf("insert llm metric: %w", err)
	}

	return nil
}

// SummaryFilters narrows the aggregation window. Zero values mean no filter.
type SummaryFilters struct {
	ModelName string
	Since     time.Time
}

// Summary aggregates recorded LLM calls, overall and per model.
func (r *LLMMetricsRepository) Summary(ctx context.Context, filters SummaryFilters) (*models.MetricsSummary, error) {
	since := filters.Since
	if since.IsZero() {
		since = time.Unix(0, 0)
	}

	rows, err := r.db.Query(ctx, `
		SELECT model_name,
			COUNT(*) AS calls,
			COALESCE(SUM(total_tokens), 0) AS total_tokens,
			COALESCE(SUM(estimated_cost_usd), 0) AS total_cost,
			COALESCE(AVG(latency_ms), 0) AS avg_latency,
			COALESCE(AVG(CASE WHEN success THEN 1.0 ELSE 0.0 END), 0) AS success_rate
		FROM llm_metrics
		WHERE created_at >= $1 AND ($2 = '' OR model_name = $2)
		GROUP BY model_name
		ORDER BY calls DESC`,
		since, filters.ModelName,
	)
	if err != nil {
		return nil, fmt.Errorf("llm metrics summary: %w", err)
	}
	defer rows.Close()

	summary := &models.MetricsSummary{}

	var weightedLatency float64

	for rows.Next() {
		var m models.ModelMetricsSummary

		if err := rows.Scan(&m.ModelName, &m.Calls, &m.TotalTokens, &m.TotalCostUSD,
			&m.AverageLatencyMs, &m.SuccessRate); err != nil {
			return nil, fmt.Errorf("scan model summary: %w", err)
		}

		summary.ByModel = append(summary.ByModel, m)
		summary.TotalCalls += m.Calls
		summary.TotalTokens += m.TotalTokens
		summary.TotalCostUSD += m.TotalCostUSD
		weightedLatency += m.AverageLatencyMs * float64(m.Calls)
		summary.SuccessRate += m.SuccessRate * float64(m.Calls)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating model summaries: %w", err)
	}

	if summary.TotalCalls > 0 {
		summary.AverageLatencyMs = weightedLatency / float64(summary.TotalCalls)
		summary.SuccessRate /= float64(summary.TotalCalls)
	}

	return summary, nil
}
