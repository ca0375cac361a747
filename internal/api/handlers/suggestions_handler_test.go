package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/helliohr/recruit/internal/models"
	"github.com/helliohr/recruit/internal/service"
)

type mockSuggester struct {
	forPositionFunc  func(ctx context.Context, positionID uuid.UUID) (*service.SuggestionResult, error)
	forCandidateFunc func(ctx context.Context, candidateID uuid.UUID) (*service.SuggestionResult, error)
}

func (m *mockSuggester) SuggestCandidatesForPosition(
	ctx context.Context, positionID uuid.UUID,
) (*service.SuggestionResult, error) {
	if m.forPositionFunc != nil {
		return m.forPositionFunc(ctx, positionID)
	}

	return &service.SuggestionResult{}, nil
}

func (m *mockSuggester) SuggestPositionsForCandidate(
	ctx context.Context, candidateID uuid.UUID,
) (*service.SuggestionResult, error) {
	if m.forCandidateFunc != nil {
		return m.forCandidateFunc(ctx, candidateID)
	}

	return &service.SuggestionResult{}, nil
}

func newSuggestionsRequest(t *testing.T, path, id string) *http.Request {
	t.Helper()

	req := httptest.NewRequest(http.MethodGet, "http://test"+path, nil)
	req.SetPathValue("id", id)

	return req
}

func TestSuggestionsHandler_CandidatesForPosition(t *testing.T) {
	positionID := uuid.MustParse("018e1234-5678-9abc-def0-111111111111")
	candidateID := uuid.MustParse("018e1234-5678-9abc-def0-222222222222")

	t.Run("invalid id returns 400", func(t *testing.T) {
		handler := NewSuggestionsHandler(&mockSuggester{}, nil)
		rec := httptest.NewRecorder()

		handler.CandidatesForPosition(rec, newSuggestionsRequest(t, "/v1/positions/nope/suggestions", "nope"))

		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})

	t.Run("missing embedding returns 409", func(t *testing.T) {
		mock := &mockSuggester{
			forPositionFunc: func(_ context.Context, _ uuid.UUID) (*service.SuggestionResult, error) {
				return nil, service.ErrEmbeddingNotFound
			},
		}
		handler := NewSuggestionsHandler(mock, nil)
		rec := httptest.NewRecorder()

		handler.CandidatesForPosition(rec,
			newSuggestionsRequest(t, "/v1/positions/"+positionID.String()+"/suggestions", positionID.String()))

		assert.Equal(t, http.StatusConflict, rec.Code)
	})

	t.Run("success returns ranked suggestions with metadata", func(t *testing.T) {
		mock := &mockSuggester{
			forPositionFunc: func(_ context.Context, id uuid.UUID) (*service.SuggestionResult, error) {
				assert.Equal(t, positionID, id)

				return &service.SuggestionResult{
					Suggestions: []models.Suggestion{
						{EntityID: candidateID, Similarity: 0.91, Rank: 1},
					},
					Metadata: service.SuggestionMetadata{
						QueryEntityID: positionID,
						Fetched:       5,
						FinalCount:    1,
					},
				}, nil
			},
		}
		handler := NewSuggestionsHandler(mock, nil)
		rec := httptest.NewRecorder()

		handler.CandidatesForPosition(rec,
			newSuggestionsRequest(t, "/v1/positions/"+positionID.String()+"/suggestions", positionID.String()))

		assert.Equal(t, http.StatusOK, rec.Code)

		var result service.SuggestionResult

		err := json.Unmarshal(rec.Body.Bytes(), &result)
		require.NoError(t, err)
		require.Len(t, result.Suggestions, 1)
		assert.Equal(t, candidateID, result.Suggestions[0].EntityID)
		assert.Equal(t, 1, result.Suggestions[0].Rank)
		assert.Equal(t, 5, result.Metadata.Fetched)
	})

	t.Run("zero matches is still 200", func(t *testing.T) {
		mock := &mockSuggester{
			forPositionFunc: func(_ context.Context, _ uuid.UUID) (*service.SuggestionResult, error) {
				return &service.SuggestionResult{Suggestions: []models.Suggestion{}}, nil
			},
		}
		handler := NewSuggestionsHandler(mock, nil)
		rec := httptest.NewRecorder()

		handler.CandidatesForPosition(rec,
			newSuggestionsRequest(t, "/v1/positions/"+positionID.String()+"/suggestions", positionID.String()))

		assert.Equal(t, http.StatusOK, rec.Code)
	})
}

func TestSuggestionsHandler_PositionsForCandidate(t *testing.T) {
	candidateID := uuid.MustParse("018e1234-5678-9abc-def0-222222222222")

	t.Run("routes to the candidate direction", func(t *testing.T) {
		called := false
		mock := &mockSuggester{
			forCandidateFunc: func(_ context.Context, id uuid.UUID) (*service.SuggestionResult, error) {
				called = true
				assert.Equal(t, candidateID, id)

				return &service.SuggestionResult{}, nil
			},
		}
		handler := NewSuggestionsHandler(mock, nil)
		rec := httptest.NewRecorder()

		handler.PositionsForCandidate(rec,
			newSuggestionsRequest(t, "/v1/candidates/"+candidateID.String()+"/suggestions", candidateID.String()))

		require.True(t, called)
		assert.Equal(t, http.StatusOK, rec.Code)
	})

	t.Run("repository failure returns 500", func(t *testing.T) {
		mock := &mockSuggester{
			forCandidateFunc: func(_ context.Context, _ uuid.UUID) (*service.SuggestionResult, error) {
				return nil, assert.AnError
			},
		}
		handler := NewSuggestionsHandler(mock, nil)
		rec := httptest.NewRecorder()

		handler.PositionsForCandidate(rec,
			newSuggestionsRequest(t, "/v1/candidates/"+candidateID.String()+"/suggestions", candidateID.String()))

		assert.Equal(t, http.StatusInternalServerError, rec.Code)
	})
}
