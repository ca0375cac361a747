package handlers

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/google/uuid"

	"github.com/helliohr/recruit/internal/api/response"
	"github.com/helliohr/recruit/internal/api/validation"
	"github.com/helliohr/recruit/internal/service"
)

// Explainer generates match explanations for candidate/position pairs.
type Explainer interface {
	ExplainMatches(ctx context.Context, pairs []service.MatchPair) []service.BatchExplanation
}

// ExplainRequest is the batch explanation request body.
type ExplainRequest struct {
	Pairs []service.MatchPair `json:"pairs" validate:"required,min=1,max=20,dive"`
}

// ExplainResponse wraps the batch results.
type ExplainResponse struct {
	Explanations []service.BatchExplanation `json:"explanations"`
}

// ExplanationsHandler handles match explanation requests.
type ExplanationsHandler struct {
	explainer Explainer
	logger    *slog.Logger
}

// NewExplanationsHandler creates a new explanations handler.
func NewExplanationsHandler(explainer Explainer, logger *slog.Logger) *ExplanationsHandler {
	if logger == nil {
		logger = slog.Default()
	}

	return &ExplanationsHandler{explainer: explainer, logger: logger}
}

// Explain handles POST /v1/matches/explain. Every requested pair gets a result;
// pairs that fail or time out carry the fallback text instead of an error status.
func (h *ExplanationsHandler) Explain(w http.ResponseWriter, r *http.Request) {
	var req ExplainRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		response.RespondBadRequest(w, "invalid JSON body")
		return
	}

	if err := validation.ValidateStruct(&req); err != nil {
		validation.RespondValidationError(w, err)
		return
	}

	for _, pair := range req.Pairs {
		if pair.CandidateID == uuid.Nil || pair.PositionID == uuid.Nil {
			response.RespondBadRequest(w, "each pair requires candidate_id and position_id")
			return
		}
	}

	results := h.explainer.ExplainMatches(r.Context(), req.Pairs)

	response.RespondJSON(w, http.StatusOK, ExplainResponse{Explanations: results})
}
