package handlers

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/helliohr/recruit/internal/api/response"
	"github.com/helliohr/recruit/internal/api/validation"
	"github.com/helliohr/recruit/internal/service"
)

// Asker answers natural-language questions over the recruiting database.
type Asker interface {
	Ask(ctx context.Context, question, model string) (*service.AskResult, error)
}

// AskRequest is the question request body. Model optionally overrides the
// configured chat model for this question.
type AskRequest struct {
	Question string `json:"question" validate:"required,min=3,max=500,no_null_bytes"`
	Model    string `json:"model,omitempty" validate:"omitempty,max=100,no_null_bytes"`
}

// AskHandler handles natural-language query requests.
type AskHandler struct {
	asker  Asker
	logger *slog.Logger
}

// NewAskHandler creates a new ask handler.
func NewAskHandler(asker Asker, logger *slog.Logger) *AskHandler {
	if logger == nil {
		logger = slog.Default()
	}

	return &AskHandler{asker: asker, logger: logger}
}

// Ask handles POST /v1/ask. Gate rejections (clarification, relevance,
// validation) are 200 responses with success=false and a suggestion; only
// infrastructure failures produce a 5xx.
func (h *AskHandler) Ask(w http.ResponseWriter, r *http.Request) {
	var req AskRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		response.RespondBadRequest(w, "invalid JSON body")
		return
	}

	if err := validation.ValidateStruct(&req); err != nil {
		validation.RespondValidationError(w, err)
		return
	}

	result, err := h.asker.Ask(r.Context(), req.Question, req.Model)
	if err != nil {
		h.logger.Error("ask failed", "error", err)
		response.RespondInternalServerError(w, "question processing failed")

		return
	}

	response.RespondJSON(w, http.StatusOK, result)
}
