package handlers

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/helliohr/recruit/internal/api/response"
	"github.com/helliohr/recruit/internal/api/validation"
	"github.com/helliohr/recruit/internal/models"
	"github.com/helliohr/recruit/internal/repository"
)

// MetricsSummarizer aggregates recorded LLM usage.
type MetricsSummarizer interface {
	Summary(ctx context.Context, filters repository.SummaryFilters) (*models.MetricsSummary, error)
}

// MetricsHandler serves LLM usage summaries.
type MetricsHandler struct {
	metrics MetricsSummarizer
	logger  *slog.Logger
}

// NewMetricsHandler creates a new metrics handler.
func NewMetricsHandler(metrics MetricsSummarizer, logger *slog.Logger) *MetricsHandler {
	if logger == nil {
		logger = slog.Default()
	}

	return &MetricsHandler{metrics: metrics, logger: logger}
}

// Summary handles GET /v1/metrics/summary. Optional query params: model
// (exact model name) and since (RFC 3339 timestamp).
func (h *MetricsHandler) Summary(w http.ResponseWriter, r *http.Request) {
	query := &models.MetricsSummaryFilters{}
	if err := validation.ValidateAndDecodeQueryParams(r, query); err != nil {
		validation.RespondValidationError(w, err)
		return
	}

	filters := repository.SummaryFilters{}
	if query.Model != nil {
		filters.ModelName = *query.Model
	}

	if query.Since != nil {
		filters.Since = *query.Since
	}

	summary, err := h.metrics.Summary(r.Context(), filters)
	if err != nil {
		h.logger.Error("metrics summary failed", "error", err)
		response.RespondInternalServerError(w, "failed to aggregate metrics")

		return
	}

	response.RespondJSON(w, http.StatusOK, summary)
}
