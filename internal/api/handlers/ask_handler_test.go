package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/helliohr/recruit/internal/service"
)

type mockAsker struct {
	askFunc func(ctx context.Context, question, model string) (*service.AskResult, error)
}

func (m *mockAsker) Ask(ctx context.Context, question, model string) (*service.AskResult, error) {
	if m.askFunc != nil {
		return m.askFunc(ctx, question, model)
	}

	return &service.AskResult{Success: true}, nil
}

func newAskRequest(body []byte) *http.Request {
	req := httptest.NewRequest(http.MethodPost, "http://test/v1/ask", bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")

	return req
}

func TestAskHandler_Ask(t *testing.T) {
	t.Run("invalid JSON returns 400", func(t *testing.T) {
		handler := NewAskHandler(&mockAsker{}, nil)
		rec := httptest.NewRecorder()

		handler.Ask(rec, newAskRequest([]byte(`{"question":`)))

		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})

	t.Run("missing question returns 400", func(t *testing.T) {
		called := false
		mock := &mockAsker{
			askFunc: func(_ context.Context, _, _ string) (*service.AskResult, error) {
				called = true

				return &service.AskResult{Success: true}, nil
			},
		}
		handler := NewAskHandler(mock, nil)
		rec := httptest.NewRecorder()

		handler.Ask(rec, newAskRequest([]byte(`{}`)))

		assert.Equal(t, http.StatusBadRequest, rec.Code)
		assert.False(t, called)
	})

	t.Run("question below minimum length returns 400", func(t *testing.T) {
		handler := NewAskHandler(&mockAsker{}, nil)
		rec := httptest.NewRecorder()

		handler.Ask(rec, newAskRequest([]byte(`{"question":"hi"}`)))

		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})

	t.Run("successful answer returns 200", func(t *testing.T) {
		mock := &mockAsker{
			askFunc: func(_ context.Context, question, model string) (*service.AskResult, error) {
				assert.Equal(t, "How many candidates are there?", question)
				assert.Empty(t, model)

				return &service.AskResult{Success: true, Answer: "There are 42 candidates."}, nil
			},
		}
		handler := NewAskHandler(mock, nil)
		rec := httptest.NewRecorder()

		handler.Ask(rec, newAskRequest([]byte(`{"question":"How many candidates are there?"}`)))

		assert.Equal(t, http.StatusOK, rec.Code)

		var result service.AskResult

		err := json.Unmarshal(rec.Body.Bytes(), &result)
		require.NoError(t, err)
		assert.True(t, result.Success)
		assert.Equal(t, "There are 42 candidates.", result.Answer)
	})

	t.Run("model override is forwarded", func(t *testing.T) {
		mock := &mockAsker{
			askFunc: func(_ context.Context, _, model string) (*service.AskResult, error) {
				assert.Equal(t, "gpt-4o", model)

				return &service.AskResult{Success: true}, nil
			},
		}
		handler := NewAskHandler(mock, nil)
		rec := httptest.NewRecorder()

		handler.Ask(rec, newAskRequest([]byte(`{"question":"How many candidates are there?","model":"gpt-4o"}`)))

		assert.Equal(t, http.StatusOK, rec.Code)
	})

	t.Run("gate rejection still returns 200", func(t *testing.T) {
		mock := &mockAsker{
			askFunc: func(_ context.Context, _, _ string) (*service.AskResult, error) {
				return &service.AskResult{
					Success:    false,
					Error:      "the question needs more context",
					Suggestion: "Name the table or entity you are asking about.",
				}, nil
			},
		}
		handler := NewAskHandler(mock, nil)
		rec := httptest.NewRecorder()

		handler.Ask(rec, newAskRequest([]byte(`{"question":"How many are there?"}`)))

		assert.Equal(t, http.StatusOK, rec.Code)

		var result service.AskResult

		err := json.Unmarshal(rec.Body.Bytes(), &result)
		require.NoError(t, err)
		assert.False(t, result.Success)
		assert.NotEmpty(t, result.Suggestion)
	})

	t.Run("infrastructure failure returns 500", func(t *testing.T) {
		mock := &mockAsker{
			askFunc: func(_ context.Context, _, _ string) (*service.AskResult, error) {
				return nil, assert.AnError
			},
		}
		handler := NewAskHandler(mock, nil)
		rec := httptest.NewRecorder()

		handler.Ask(rec, newAskRequest([]byte(`{"question":"How many candidates are there?"}`)))

		assert.Equal(t, http.StatusInternalServerError, rec.Code)
	})
}
