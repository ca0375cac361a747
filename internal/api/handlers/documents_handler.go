// Package handlers contains the HTTP handlers for the recruiting API.
package handlers

import (
	"context"
	"errors"
	"log/slog"
	"net/http"

	"github.com/google/uuid"

	"github.com/helliohr/recruit/internal/api/response"
	"github.com/helliohr/recruit/internal/docparse"
	"github.com/helliohr/recruit/internal/service"
)

// DocumentProcessor runs the extraction pipeline for one document.
type DocumentProcessor interface {
	ProcessDocument(ctx context.Context, documentID uuid.UUID, useLLM bool) (*service.ExtractionResult, error)
}

// DocumentsHandler handles document processing requests.
type DocumentsHandler struct {
	processor DocumentProcessor
	logger    *slog.Logger
}

// NewDocumentsHandler creates a new documents handler.
func NewDocumentsHandler(processor DocumentProcessor, logger *slog.Logger) *DocumentsHandler {
	if logger == nil {
		logger = slog.Default()
	}

	return &DocumentsHandler{processor: processor, logger: logger}
}

// Process handles POST /v1/documents/{id}/process. The llm query parameter
// defaults to true; llm=false forces heuristics-only extraction for CVs and is
// rejected downstream for job descriptions.
func (h *DocumentsHandler) Process(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(r.PathValue("id"))
	if err != nil {
		response.RespondBadRequest(w, "invalid document id")
		return
	}

	useLLM := r.URL.Query().Get("llm") != "false"

	result, err := h.processor.ProcessDocument(r.Context(), id, useLLM)
	if err != nil {
		switch {
		case errors.Is(err, service.ErrDocumentNotFound):
			response.RespondNotFound(w, "document not found")
		case errors.Is(err, service.ErrCandidateNotFound), errors.Is(err, service.ErrPositionNotFound):
			response.RespondNotFound(w, "document's linked entity not found")
		case errors.Is(err, &docparse.UnsupportedFormatError{}):
			// Client-supplied file type, not an infrastructure fault.
			response.RespondError(w, http.StatusUnprocessableEntity, "Unsupported Document Format", err.Error())
		default:
			h.logger.Error("document processing failed", "documentId", id.String(), "error", err)
			response.RespondInternalServerError(w, "document processing failed")
		}

		return
	}

	status := http.StatusOK
	if !result.Success {
		status = http.StatusUnprocessableEntity
	}

	response.RespondJSON(w, status, result)
}
