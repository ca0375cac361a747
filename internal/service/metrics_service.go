package service

import (
	"context"

	"github.com/helliohr/recruit/internal/models"
	"github.com/helliohr/recruit/internal/repository"
)

// LLMMetricsReader aggregates the llm_metrics table.
type LLMMetricsReader interface {
	Summary(ctx context.Context, filters repository.SummaryFilters) (*models.MetricsSummary, error)
}

// MetricsService exposes the LLM usage summary to the API layer.
type MetricsService struct {
	metrics LLMMetricsReader
}

// NewMetricsService creates a MetricsService.
func NewMetricsService(metrics LLMMetricsReader) *MetricsService {
	return &MetricsService{metrics: metrics}
}

// Summary returns call counts, token totals, estimated spend, average latency,
// and success rate, overall and per model, honoring the optional filters.
func (s *MetricsService) Summary(ctx context.Context, filters repository.SummaryFilters) (*models.MetricsSummary, error) {
	//nolint:wrapcheck // repository errors carry context already
	return s.metrics.Summary(ctx, filters)
}
