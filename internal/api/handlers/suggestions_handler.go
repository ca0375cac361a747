package handlers

import (
	"context"
	"errors"
	"log/slog"
	"net/http"

	"github.com/google/uuid"

	"github.com/helliohr/recruit/internal/api/response"
	"github.com/helliohr/recruit/internal/service"
)

// Suggester produces ranked cross-entity match suggestions.
type Suggester interface {
	SuggestCandidatesForPosition(ctx context.Context, positionID uuid.UUID) (*service.SuggestionResult, error)
	SuggestPositionsForCandidate(ctx context.Context, candidateID uuid.UUID) (*service.SuggestionResult, error)
}

// SuggestionsHandler handles similarity suggestion requests.
type SuggestionsHandler struct {
	suggester Suggester
	logger    *slog.Logger
}

// NewSuggestionsHandler creates a new suggestions handler.
func NewSuggestionsHandler(suggester Suggester, logger *slog.Logger) *SuggestionsHandler {
	if logger == nil {
		logger = slog.Default()
	}

	return &SuggestionsHandler{suggester: suggester, logger: logger}
}

// CandidatesForPosition handles GET /v1/positions/{id}/suggestions.
func (h *SuggestionsHandler) CandidatesForPosition(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(r.PathValue("id"))
	if err != nil {
		response.RespondBadRequest(w, "invalid position id")
		return
	}

	h.respond(w, r, func() (*service.SuggestionResult, error) {
		return h.suggester.SuggestCandidatesForPosition(r.Context(), id)
	})
}

// PositionsForCandidate handles GET /v1/candidates/{id}/suggestions.
func (h *SuggestionsHandler) PositionsForCandidate(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(r.PathValue("id"))
	if err != nil {
		response.RespondBadRequest(w, "invalid candidate id")
		return
	}

	h.respond(w, r, func() (*service.SuggestionResult, error) {
		return h.suggester.SuggestPositionsForCandidate(r.Context(), id)
	})
}

func (h *SuggestionsHandler) respond(w http.ResponseWriter, r *http.Request, suggest func() (*service.SuggestionResult, error)) {
	result, err := suggest()
	if err != nil {
		// No embedding yet is distinct from "no matches": the entity exists but
		// has not been through the embedding pipeline.
		if errors.Is(err, service.ErrEmbeddingNotFound) {
			response.RespondConflict(w, "Embedding Not Ready",
				"entity has no embedding yet; process its document first")
			return
		}

		h.logger.Error("suggestion lookup failed", "path", r.URL.Path, "error", err)
		response.RespondInternalServerError(w, "suggestion lookup failed")

		return
	}

	response.RespondJSON(w, http.StatusOK, result)
}
