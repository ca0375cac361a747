package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/helliohr/recruit/internal/docparse"
	"github.com/helliohr/recruit/internal/extract"
	"github.com/helliohr/recruit/internal/llm"
	"github.com/helliohr/recruit/internal/models"
	"github.com/helliohr/recruit/internal/repository"
)

// Sentinel errors for extraction (used by handlers for status mapping).
var (
	ErrDocumentNotFound  = repository.ErrDocumentNotFound
	ErrCandidateNotFound = repository.ErrCandidateNotFound
	ErrPositionNotFound  = repository.ErrPositionNotFound

	// ErrLLMRequiredForJob is terminal: job descriptions have no heuristic
	// fallback, so a missing or failing LLM ends the pipeline.
	ErrLLMRequiredForJob = errors.New("LLM required for job description extraction")
)

// DocumentsRepositoryForExtraction provides the document operations the pipeline needs.
type DocumentsRepositoryForExtraction interface {
	GetByID(ctx context.Context, id uuid.UUID) (*models.Document, error)
	SetRawText(ctx context.Context, id uuid.UUID, rawText string) error
	MarkEnriched(ctx context.Context, id uuid.UUID) error
}

// CandidatesRepositoryForExtraction provides the candidate operations the pipeline needs.
type CandidatesRepositoryForExtraction interface {
	GetByID(ctx context.Context, id uuid.UUID) (*models.Candidate, error)
	UpdateExtraction(ctx context.Context, id uuid.UUID, update repository.CandidateExtractionUpdate) error
	MarkExtractionFailed(ctx context.Context, id uuid.UUID) error
}

// PositionsRepositoryForExtraction provides the position operations the pipeline needs.
type PositionsRepositoryForExtraction interface {
	GetByID(ctx context.Context, id uuid.UUID) (*models.Position, error)
	UpdateExtraction(ctx context.Context, id uuid.UUID, update repository.PositionExtractionUpdate) error
	MarkExtractionFailed(ctx context.Context, id uuid.UUID) error
}

// DocumentParser extracts text from a file on disk.
type DocumentParser interface {
	Parse(path, filename string) (*docparse.Result, error)
}

// EmbeddingEnqueuer hands an entity to the async embedding queue.
type EmbeddingEnqueuer interface {
	EnqueueEntity(ctx context.Context, entityType string, entityID uuid.UUID) error
}

// ExtractionResult is the outcome of one ProcessDocument call.
type ExtractionResult struct {
	Success    bool                        `json:"success"`
	Cached     bool                        `json:"cached"`
	Extraction *extract.CombinedExtraction `json:"extraction,omitempty"`
	Validation *extract.ValidationResult   `json:"validation,omitempty"`
	Error      string                      `json:"error,omitempty"`
}

// ExtractionService runs the document pipeline:
// pending -> parse -> heuristics -> optional LLM enrichment -> validate ->
// persist -> enriched, then triggers embedding asynchronously.
type ExtractionService struct {
	documents  DocumentsRepositoryForExtraction
	candidates CandidatesRepositoryForExtraction
	positions  PositionsRepositoryForExtraction
	parser     DocumentParser
	llm        *MeteredLLM
	enqueuer   EmbeddingEnqueuer

	freshnessWindow   time.Duration
	promptVersion     string
	embeddingsEnabled bool

	logger *slog.Logger
}

// ExtractionServiceParams configures ExtractionService. LLM and Enqueuer may be
// nil (heuristics-only operation, no async embedding).
type ExtractionServiceParams struct {
	Documents  DocumentsRepositoryForExtraction
	Candidates CandidatesRepositoryForExtraction
	Positions  PositionsRepositoryForExtraction
	Parser     DocumentParser
	LLM        *MeteredLLM
	Enqueuer   EmbeddingEnqueuer

	FreshnessWindow   time.Duration
	PromptVersion     string
	EmbeddingsEnabled bool

	Logger *slog.Logger
}

// NewExtractionService creates an ExtractionService.
func NewExtractionService(p ExtractionServiceParams) *ExtractionService {
	logger := p.Logger
	if logger == nil {
		logger = slog.Default()
	}

	return &ExtractionService{
		documents:         p.Documents,
		candidates:        p.Candidates,
		positions:         p.Positions,
		parser:            p.Parser,
		llm:               p.LLM,
		enqueuer:          p.Enqueuer,
		freshnessWindow:   p.FreshnessWindow,
		promptVersion:     p.PromptVersion,
		embeddingsEnabled: p.EmbeddingsEnabled,
		logger:            logger,
	}
}

// ProcessDocument runs the pipeline for one document. The freshness check runs
// before any other work: a successful extraction younger than the freshness
// window short-circuits with Cached=true and the stored fields.
func (s *ExtractionService) ProcessDocument(ctx context.Context, documentID uuid.UUID, useLLM bool) (*ExtractionResult, error) {
	doc, err := s.documents.GetByID(ctx, documentID)
	if err != nil {
		//nolint:wrapcheck // return as-is so handler can map ErrDocumentNotFound to 404
		return nil, err
	}

	cached, err := s.freshExtraction(ctx, doc)
	if err != nil {
		return nil, err
	}

	if cached != nil {
		s.logger.Info("extraction served from cache", "documentId", documentID.String(), "type", doc.Type)

		return cached, nil
	}

	rawText, err := s.documentText(ctx, doc)
	if err != nil {
		//nolint:wrapcheck // UnsupportedFormatError must stay matchable
		return nil, err
	}

	combined, err := s.extract(ctx, doc, rawText, useLLM)
	if err != nil {
		if errors.Is(err, ErrLLMRequiredForJob) {
			s.markFailed(ctx, doc)

			return &ExtractionResult{Success: false, Error: ErrLLMRequiredForJob.Error()}, nil
		}

		return nil, err
	}

	validation := s.validate(doc.Type, combined)
	for _, warning := range validation.Warnings {
		s.logger.Warn("extraction validation warning", "documentId", documentID.String(), "warning", warning)
	}

	if !validation.Valid() {
		s.markFailed(ctx, doc)

		return &ExtractionResult{
			Success:    false,
			Validation: &validation,
			Error:      "extraction validation failed: " + strings.Join(validation.Errors, "; "),
		}, nil
	}

	if err := s.persistExtraction(ctx, doc, combined); err != nil {
		return nil, err
	}

	s.triggerEmbedding(ctx, doc)

	return &ExtractionResult{Success: true, Extraction: combined, Validation: &validation}, nil
}

// freshExtraction returns a cached result when the owning entity's last
// successful extraction is younger than the freshness window, nil otherwise.
func (s *ExtractionService) freshExtraction(ctx context.Context, doc *models.Document) (*ExtractionResult, error) {
	switch doc.Type {
	case models.DocumentTypeCV:
		if doc.CandidateID == nil {
			return nil, fmt.Errorf("document %s has type CV but no candidate", doc.ID)
		}

		candidate, err := s.candidates.GetByID(ctx, *doc.CandidateID)
		if err != nil {
			//nolint:wrapcheck // sentinel must stay matchable
			return nil, err
		}

		if !s.isFresh(candidate.ExtractionStatus, candidate.LastExtractionDate) {
			return nil, nil //nolint:nilnil // nil result means "not cached, do the work"
		}

		return &ExtractionResult{Success: true, Cached: true, Extraction: snapshotCandidate(candidate)}, nil

	case models.DocumentTypeJobDescription:
		if doc.PositionID == nil {
			return nil, fmt.Errorf("document %s has type JOB_DESCRIPTION but no position", doc.ID)
		}

		position, err := s.positions.GetByID(ctx, *doc.PositionID)
		if err != nil {
			//nolint:wrapcheck // sentinel must stay matchable
			return nil, err
		}

		if !s.isFresh(position.ExtractionStatus, position.LastExtractionDate) {
			return nil, nil //nolint:nilnil // nil result means "not cached, do the work"
		}

		return &ExtractionResult{Success: true, Cached: true, Extraction: snapshotPosition(position)}, nil

	default:
		return nil, fmt.Errorf("document %s has unknown type %q", doc.ID, doc.Type)
	}
}

func (s *ExtractionService) isFresh(status string, lastExtraction *time.Time) bool {
	if status != models.ExtractionStatusSuccess || lastExtraction == nil {
		return false
	}

	return time.Since(*lastExtraction) < s.freshnessWindow
}

// documentText returns the document's raw text, parsing the file only on the
// first call; parsed text is cached on the document row.
func (s *ExtractionService) documentText(ctx context.Context, doc *models.Document) (string, error) {
	if doc.RawText != nil && *doc.RawText != "" {
		return *doc.RawText, nil
	}

	parsed, err := s.parser.Parse(doc.FilePath, doc.FileName)
	if err != nil {
		return "", fmt.Errorf("parse document %s: %w", doc.ID, err)
	}

	if err := s.documents.SetRawText(ctx, doc.ID, parsed.Text); err != nil {
		return "", err
	}

	s.logger.Info("document parsed",
		"documentId", doc.ID.String(), "method", parsed.Metadata.ParseMethod, "words", parsed.Metadata.WordCount)

	return parsed.Text, nil
}

func (s *ExtractionService) extract(ctx context.Context, doc *models.Document, rawText string, useLLM bool) (*extract.CombinedExtraction, error) {
	if doc.Type == models.DocumentTypeJobDescription {
		return s.extractJob(ctx, doc, rawText, useLLM)
	}

	return s.extractCV(ctx, doc, rawText, useLLM)
}

func (s *ExtractionService) extractCV(ctx context.Context, doc *models.Document, rawText string, useLLM bool) (*extract.CombinedExtraction, error) {
	heuristic := extract.ExtractCandidateInfo(rawText)

	if !useLLM || s.llm == nil {
		combined := combineCandidateResults(heuristic, nil)

		return &combined, nil
	}

	llmResult, err := s.enrichCV(ctx, doc, rawText)
	if err != nil {
		// LLM failure degrades a CV to heuristic-only; the pipeline continues.
		s.logger.Warn("llm enrichment failed, falling back to heuristics",
			"documentId", doc.ID.String(), "error", err)

		combined := combineCandidateResults(heuristic, nil)

		return &combined, nil
	}

	combined := combineCandidateResults(heuristic, llmResult)

	return &combined, nil
}

func (s *ExtractionService) extractJob(ctx context.Context, doc *models.Document, rawText string, useLLM bool) (*extract.CombinedExtraction, error) {
	if !useLLM || s.llm == nil {
		return nil, ErrLLMRequiredForJob
	}

	llmResult, err := s.enrichJob(ctx, doc, rawText)
	if err != nil {
		s.logger.Error("llm enrichment failed for job description", "documentId", doc.ID.String(), "error", err)

		return nil, ErrLLMRequiredForJob
	}

	combined := combineJobResults(llmResult)

	return &combined, nil
}

// llmCVExtraction is the JSON shape the CV extraction prompt asks for.
type llmCVExtraction struct {
	Name       string          `json:"name"`
	Email      string          `json:"email"`
	Phone      string          `json:"phone"`
	Summary    string          `json:"summary"`
	Skills     []string        `json:"skills"`
	Experience []llmExperience `json:"experience"`
	Education  []llmEducation  `json:"education"`
}

type llmExperience struct {
	Role         string   `json:"role"`
	Company      string   `json:"company"`
	Period       string   `json:"period"`
	Achievements []string `json:"achievements"`
}

type llmEducation struct {
	Degree      string `json:"degree"`
	Institution string `json:"institution"`
	Year        string `json:"year"`
}

// llmJobExtraction is the JSON shape the job description prompt asks for.
type llmJobExtraction struct {
	Summary          string   `json:"summary"`
	Requirements     []string `json:"requirements"`
	Responsibilities []string `json:"responsibilities"`
}

func (s *ExtractionService) enrichCV(ctx context.Context, doc *models.Document, rawText string) (*llmCVExtraction, error) {
	var parsed llmCVExtraction

	_, err := s.llm.GenerateJSON(ctx, s.callContext(doc), llm.GenerateRequest{
		SystemPrompt: cvExtractionSystemPrompt,
		Prompt:       renderCVExtractionPrompt(rawText),
		Temperature:  0.1,
	}, &parsed)
	if err != nil {
		return nil, fmt.Errorf("llm cv extraction: %w", err)
	}

	return &parsed, nil
}

func (s *ExtractionService) enrichJob(ctx context.Context, doc *models.Document, rawText string) (*llmJobExtraction, error) {
	var parsed llmJobExtraction

	_, err := s.llm.GenerateJSON(ctx, s.callContext(doc), llm.GenerateRequest{
		SystemPrompt: jobExtractionSystemPrompt,
		Prompt:       renderJobExtractionPrompt(rawText),
		Temperature:  0.1,
	}, &parsed)
	if err != nil {
		return nil, fmt.Errorf("llm job extraction: %w", err)
	}

	return &parsed, nil
}

func (s *ExtractionService) callContext(doc *models.Document) LLMCallContext {
	call := LLMCallContext{
		Operation:     "extraction",
		PromptVersion: s.promptVersion,
		DocumentID:    &doc.ID,
	}

	if doc.CandidateID != nil {
		entityType := models.EntityTypeCandidate
		call.EntityType = &entityType
		call.EntityID = doc.CandidateID
	} else if doc.PositionID != nil {
		entityType := models.EntityTypePosition
		call.EntityType = &entityType
		call.EntityID = doc.PositionID
	}

	return call
}

// combineCandidateResults merges heuristic and LLM output. Contact fields
// (name, email, phone) come from heuristics when present: exact-format regex
// beats a generative model for those. LLM wins the structured fields. Method
// reflects LLM involvement, not which side won per field.
func combineCandidateResults(heuristic extract.CandidateInfo, llmResult *llmCVExtraction) extract.CombinedExtraction {
	combined := extract.CombinedExtraction{
		Method:     models.ExtractionMethodHeuristic,
		Confidence: heuristic.Confidence,
	}

	if heuristic.Name != nil {
		combined.Name = heuristic.Name.Value
	}

	if heuristic.Email != nil {
		combined.Email = heuristic.Email.Value
	}

	if heuristic.Phone != nil {
		combined.Phone = heuristic.Phone.Value
	}

	combined.Skills = heuristic.Skills
	combined.Experience = flattenExperience(heuristic.Experience)
	combined.Education = flattenEducation(heuristic.Education)

	if llmResult == nil {
		return combined
	}

	combined.Method = models.ExtractionMethodHybrid

	if combined.Name == "" {
		combined.Name = llmResult.Name
	}

	if combined.Email == "" {
		combined.Email = llmResult.Email
	}

	if combined.Phone == "" {
		combined.Phone = llmResult.Phone
	}

	combined.Summary = llmResult.Summary

	if len(llmResult.Skills) > 0 {
		combined.Skills = llmResult.Skills
	}

	if len(llmResult.Experience) > 0 {
		combined.Experience = flattenLLMExperience(llmResult.Experience)
	}

	if len(llmResult.Education) > 0 {
		combined.Education = flattenLLMEducation(llmResult.Education)
	}

	return combined
}

func combineJobResults(llmResult *llmJobExtraction) extract.CombinedExtraction {
	return extract.CombinedExtraction{
		Summary:          llmResult.Summary,
		Requirements:     joinLines(llmResult.Requirements),
		Responsibilities: joinLines(llmResult.Responsibilities),
		Method:           models.ExtractionMethodLLM,
	}
}

// flattenExperience renders heuristic experience entries as multi-line text for storage.
func flattenExperience(entries []extract.ExperienceEntry) string {
	var lines []string

	for _, entry := range entries {
		lines = append(lines, fmt.Sprintf("%s at %s (%s - %s)", entry.Role, entry.Company, entry.StartYear, entry.EndYear))
		for _, achievement := range entry.Achievements {
			lines = append(lines, "- "+achievement)
		}
	}

	return strings.Join(lines, "\n")
}

func flattenEducation(entries []extract.EducationEntry) string {
	var lines []string

	for _, entry := range entries {
		lines = append(lines, fmt.Sprintf("%s, %s (%s)", entry.Degree, entry.Institution, entry.Year))
	}

	return strings.Join(lines, "\n")
}

func flattenLLMExperience(entries []llmExperience) string {
	var lines []string

	for _, entry := range entries {
		lines = append(lines, fmt.Sprintf("%s at %s (%s)", entry.Role, entry.Company, entry.Period))
		for _, achievement := range entry.Achievements {
			lines = append(lines, "- "+achievement)
		}
	}

	return strings.Join(lines, "\n")
}

func flattenLLMEducation(entries []llmEducation) string {
	var lines []string

	for _, entry := range entries {
		lines = append(lines, fmt.Sprintf("%s, %s (%s)", entry.Degree, entry.Institution, entry.Year))
	}

	return strings.Join(lines, "\n")
}

func joinLines(items []string) string {
	return strings.Join(items, "\n")
}

func (s *ExtractionService) validate(docType string, combined *extract.CombinedExtraction) extract.ValidationResult {
	if docType == models.DocumentTypeJobDescription {
		return extract.ValidateJobExtraction(*combined)
	}

	return extract.ValidateCandidateExtraction(*combined)
}

func (s *ExtractionService) persistExtraction(ctx context.Context, doc *models.Document, combined *extract.CombinedExtraction) error {
	switch doc.Type {
	case models.DocumentTypeCV:
		err := s.candidates.UpdateExtraction(ctx, *doc.CandidateID, repository.CandidateExtractionUpdate{
			Name:          combined.Name,
			Email:         combined.Email,
			Phone:         combined.Phone,
			Skills:        combined.Skills,
			Summary:       combined.Summary,
			Experience:    combined.Experience,
			Education:     combined.Education,
			Method:        combined.Method,
			PromptVersion: s.promptVersion,
		})
		if err != nil {
			return err
		}

	case models.DocumentTypeJobDescription:
		err := s.positions.UpdateExtraction(ctx, *doc.PositionID, repository.PositionExtractionUpdate{
			Summary:          combined.Summary,
			Requirements:     combined.Requirements,
			Responsibilities: combined.Responsibilities,
			Method:           combined.Method,
			PromptVersion:    s.promptVersion,
		})
		if err != nil {
			return err
		}
	}

	return s.documents.MarkEnriched(ctx, doc.ID)
}

// markFailed records a failed run on the owning entity; the previously
// extracted fields stay untouched.
func (s *ExtractionService) markFailed(ctx context.Context, doc *models.Document) {
	var err error

	switch {
	case doc.Type == models.DocumentTypeCV && doc.CandidateID != nil:
		err = s.candidates.MarkExtractionFailed(ctx, *doc.CandidateID)
	case doc.Type == models.DocumentTypeJobDescription && doc.PositionID != nil:
		err = s.positions.MarkExtractionFailed(ctx, *doc.PositionID)
	}

	if err != nil {
		s.logger.Error("mark extraction failed", "documentId", doc.ID.String(), "error", err)
	}
}

// triggerEmbedding hands the owning entity to the embedding queue. Failures
// are logged and never surfaced: the extraction result is already final.
func (s *ExtractionService) triggerEmbedding(ctx context.Context, doc *models.Document) {
	if !s.embeddingsEnabled || s.enqueuer == nil {
		return
	}

	var (
		entityType string
		entityID   uuid.UUID
	)

	switch {
	case doc.CandidateID != nil:
		entityType, entityID = models.EntityTypeCandidate, *doc.CandidateID
	case doc.PositionID != nil:
		entityType, entityID = models.EntityTypePosition, *doc.PositionID
	default:
		return
	}

	if err := s.enqueuer.EnqueueEntity(ctx, entityType, entityID); err != nil {
		s.logger.Error("enqueue embedding job failed", "entityType", entityType, "entityId", entityID.String(), "error", err)
	}
}

// snapshotCandidate rebuilds the extraction payload from persisted candidate fields.
func snapshotCandidate(c *models.Candidate) *extract.CombinedExtraction {
	combined := &extract.CombinedExtraction{
		Name:   c.Name,
		Skills: c.Skills,
	}

	if c.Email != nil {
		combined.Email = *c.Email
	}

	if c.Phone != nil {
		combined.Phone = *c.Phone
	}

	if c.ExtractedSummary != nil {
		combined.Summary = *c.ExtractedSummary
	}

	if c.ExtractedExperience != nil {
		combined.Experience = *c.ExtractedExperience
	}

	if c.ExtractedEducation != nil {
		combined.Education = *c.ExtractedEducation
	}

	if c.ExtractionMethod != nil {
		combined.Method = *c.ExtractionMethod
	}

	return combined
}

// snapshotPosition rebuilds the extraction payload from persisted position fields.
func snapshotPosition(p *models.Position) *extract.CombinedExtraction {
	combined := &extract.CombinedExtraction{}

	if p.ExtractedSummary != nil {
		combined.Summary = *p.ExtractedSummary
	}

	if p.ExtractedRequirements != nil {
		combined.Requirements = *p.ExtractedRequirements
	}

	if p.ExtractedResponsibilities != nil {
		combined.Responsibilities = *p.ExtractedResponsibilities
	}

	if p.ExtractionMethod != nil {
		combined.Method = *p.ExtractionMethod
	}

	return combined
}
