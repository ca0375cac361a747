package handlers

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/helliohr/recruit/internal/models"
	"github.com/helliohr/recruit/internal/repository"
)

type mockMetricsSummarizer struct {
	summaryFunc func(ctx context.Context, filters repository.SummaryFilters) (*models.MetricsSummary, error)
}

func (m *mockMetricsSummarizer) Summary(
	ctx context.Context, filters repository.SummaryFilters,
) (*models.MetricsSummary, error) {
	if m.summaryFunc != nil {
		return m.summaryFunc(ctx, filters)
	}

	return &models.MetricsSummary{}, nil
}

func newSummaryRequest(query string) *http.Request {
	target := "http://test/v1/metrics/summary"
	if query != "" {
		target += "?" + query
	}

	return httptest.NewRequest(http.MethodGet, target, nil)
}

func TestMetricsHandler_Summary(t *testing.T) {
	t.Run("no params means no filters", func(t *testing.T) {
		var got repository.SummaryFilters

		mock := &mockMetricsSummarizer{
			summaryFunc: func(_ context.Context, filters repository.SummaryFilters) (*models.MetricsSummary, error) {
				got = filters

				return &models.MetricsSummary{TotalCalls: 7}, nil
			},
		}
		handler := NewMetricsHandler(mock, nil)
		rec := httptest.NewRecorder()

		handler.Summary(rec, newSummaryRequest(""))

		assert.Equal(t, http.StatusOK, rec.Code)
		assert.Empty(t, got.ModelName)
		assert.True(t, got.Since.IsZero())
	})

	t.Run("model and since are decoded and forwarded", func(t *testing.T) {
		var got repository.SummaryFilters

		mock := &mockMetricsSummarizer{
			summaryFunc: func(_ context.Context, filters repository.SummaryFilters) (*models.MetricsSummary, error) {
				got = filters

				return &models.MetricsSummary{}, nil
			},
		}
		handler := NewMetricsHandler(mock, nil)
		rec := httptest.NewRecorder()

		handler.Summary(rec, newSummaryRequest("model=gpt-4o-mini&since=2026-08-01T00:00:00Z"))

		require.Equal(t, http.StatusOK, rec.Code)
		assert.Equal(t, "gpt-4o-mini", got.ModelName)
		assert.Equal(t, time.Date(2026, 8, 1, 0, 0, 0, 0, time.UTC), got.Since.UTC())
	})

	t.Run("malformed since returns 400", func(t *testing.T) {
		called := false
		mock := &mockMetricsSummarizer{
			summaryFunc: func(_ context.Context, _ repository.SummaryFilters) (*models.MetricsSummary, error) {
				called = true

				return &models.MetricsSummary{}, nil
			},
		}
		handler := NewMetricsHandler(mock, nil)
		rec := httptest.NewRecorder()

		handler.Summary(rec, newSummaryRequest("since=yesterday"))

		assert.Equal(t, http.StatusBadRequest, rec.Code)
		assert.False(t, called)
	})

	t.Run("aggregation failure returns 500", func(t *testing.T) {
		mock := &mockMetricsSummarizer{
			summaryFunc: func(_ context.Context, _ repository.SummaryFilters) (*models.MetricsSummary, error) {
				return nil, assert.AnError
			},
		}
		handler := NewMetricsHandler(mock, nil)
		rec := httptest.NewRecorder()

		handler.Summary(rec, newSummaryRequest(""))

		assert.Equal(t, http.StatusInternalServerError, rec.Code)
	})
}
