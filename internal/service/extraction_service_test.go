package service

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/helliohr/recruit/internal/docparse"
	"github.com/helliohr/recruit/internal/extract"
	"github.com/helliohr/recruit/internal/llm"
	"github.com/helliohr/recruit/internal/models"
	"github.com/helliohr/recruit/internal/repository"
)

const sampleCV = `ALICE JOHNSON
Email: alice.johnson@email.com | Phone: +1-555-0101

SKILLS
JavaScript, TypeScript, React

EXPERIENCE
Senior Developer | TechCorp | 2021 - Present
- Led team

EDUCATION
B.S. Computer Science | University | 2019`

type mockDocumentsRepo struct {
	getByIDFunc      func(ctx context.Context, id uuid.UUID) (*models.Document, error)
	setRawTextFunc   func(ctx context.Context, id uuid.UUID, rawText string) error
	markEnrichedFunc func(ctx context.Context, id uuid.UUID) error
	enriched         []uuid.UUID
}

func (m *mockDocumentsRepo) GetByID(ctx context.Context, id uuid.UUID) (*models.Document, error) {
	if m.getByIDFunc != nil {
		return m.getByIDFunc(ctx, id)
	}

	return nil, repository.ErrDocumentNotFound
}

func (m *mockDocumentsRepo) SetRawText(ctx context.Context, id uuid.UUID, rawText string) error {
	if m.setRawTextFunc != nil {
		return m.setRawTextFunc(ctx, id, rawText)
	}

	return nil
}

func (m *mockDocumentsRepo) MarkEnriched(ctx context.Context, id uuid.UUID) error {
	m.enriched = append(m.enriched, id)

	if m.markEnrichedFunc != nil {
		return m.markEnrichedFunc(ctx, id)
	}

	return nil
}

type mockCandidatesRepo struct {
	getByIDFunc          func(ctx context.Context, id uuid.UUID) (*models.Candidate, error)
	updateExtractionFunc func(ctx context.Context, id uuid.UUID, update repository.CandidateExtractionUpdate) error
	markFailedFunc       func(ctx context.Context, id uuid.UUID) error
	updates              []repository.CandidateExtractionUpdate
	failed               []uuid.UUID
}

func (m *mockCandidatesRepo) GetByID(ctx context.Context, id uuid.UUID) (*models.Candidate, error) {
	if m.getByIDFunc != nil {
		return m.getByIDFunc(ctx, id)
	}

	return &models.Candidate{ID: id, Status: models.CandidateStatusActive, ExtractionStatus: models.ExtractionStatusPending}, nil
}

func (m *mockCandidatesRepo) UpdateExtraction(ctx context.Context, id uuid.UUID, update repository.CandidateExtractionUpdate) error {
	m.updates = append(m.updates, update)

	if m.updateExtractionFunc != nil {
		return m.updateExtractionFunc(ctx, id, update)
	}

	return nil
}

func (m *mockCandidatesRepo) MarkExtractionFailed(ctx context.Context, id uuid.UUID) error {
	m.failed = append(m.failed, id)

	if m.markFailedFunc != nil {
		return m.markFailedFunc(ctx, id)
	}

	return nil
}

type mockPositionsRepo struct {
	getByIDFunc          func(ctx context.Context, id uuid.UUID) (*models.Position, error)
	updateExtractionFunc func(ctx context.Context, id uuid.UUID, update repository.PositionExtractionUpdate) error
	updates              []repository.PositionExtractionUpdate
	failed               []uuid.UUID
}

func (m *mockPositionsRepo) GetByID(ctx context.Context, id uuid.UUID) (*models.Position, error) {
	if m.getByIDFunc != nil {
		return m.getByIDFunc(ctx, id)
	}

	return &models.Position{ID: id, Title: "Engineer", Status: models.PositionStatusOpen, ExtractionStatus: models.ExtractionStatusPending}, nil
}

func (m *mockPositionsRepo) UpdateExtraction(ctx context.Context, id uuid.UUID, update repository.PositionExtractionUpdate) error {
	m.updates = append(m.updates, update)

	if m.updateExtractionFunc != nil {
		return m.updateExtractionFunc(ctx, id, update)
	}

	return nil
}

func (m *mockPositionsRepo) MarkExtractionFailed(_ context.Context, id uuid.UUID) error {
	m.failed = append(m.failed, id)

	return nil
}

type mockParser struct {
	parseFunc func(path, filename string) (*docparse.Result, error)
	calls     int
}

func (m *mockParser) Parse(path, filename string) (*docparse.Result, error) {
	m.calls++

	if m.parseFunc != nil {
		return m.parseFunc(path, filename)
	}

	return &docparse.Result{Text: sampleCV, Metadata: docparse.Metadata{ParseMethod: "text", WordCount: 30}}, nil
}

type mockEnqueuer struct {
	enqueueFunc func(ctx context.Context, entityType string, entityID uuid.UUID) error
	enqueued    []string
}

func (m *mockEnqueuer) EnqueueEntity(ctx context.Context, entityType string, entityID uuid.UUID) error {
	m.enqueued = append(m.enqueued, entityType+":"+entityID.String())

	if m.enqueueFunc != nil {
		return m.enqueueFunc(ctx, entityType, entityID)
	}

	return nil
}

func newTestMeteredLLM(respond func(req llm.GenerateRequest) string) (*MeteredLLM, *mockLLMMetricsRecorder) {
	recorder := &mockLLMMetricsRecorder{}
	client := llm.NewMockClient(llm.WithMockResponder(respond))

	return NewMeteredLLM(client, recorder, nil, nil), recorder
}

func cvDocument(candidateID uuid.UUID) *models.Document {
	return &models.Document{
		ID:               uuid.New(),
		Type:             models.DocumentTypeCV,
		FileName:         "cv.txt",
		FilePath:         "/uploads/cv.txt",
		ProcessingStatus: models.ProcessingStatusPending,
		CandidateID:      &candidateID,
	}
}

func jobDocument(positionID uuid.UUID) *models.Document {
	return &models.Document{
		ID:               uuid.New(),
		Type:             models.DocumentTypeJobDescription,
		FileName:         "jd.txt",
		FilePath:         "/uploads/jd.txt",
		ProcessingStatus: models.ProcessingStatusPending,
		PositionID:       &positionID,
	}
}

func newExtractionService(docs *mockDocumentsRepo, cands *mockCandidatesRepo, poss *mockPositionsRepo, parser *mockParser, metered *MeteredLLM, enq *mockEnqueuer) *ExtractionService {
	params := ExtractionServiceParams{
		Documents:         docs,
		Candidates:        cands,
		Positions:         poss,
		Parser:            parser,
		LLM:               metered,
		FreshnessWindow:   time.Hour,
		PromptVersion:     "v3",
		EmbeddingsEnabled: true,
	}

	// Assign only when non-nil so a nil *mockEnqueuer stays a nil interface.
	if enq != nil {
		params.Enqueuer = enq
	}

	return NewExtractionService(params)
}

func TestExtractionService_ProcessDocument_CV(t *testing.T) {
	t.Run("document not found maps to sentinel", func(t *testing.T) {
		svc := newExtractionService(&mockDocumentsRepo{}, &mockCandidatesRepo{}, &mockPositionsRepo{}, &mockParser{}, nil, nil)

		_, err := svc.ProcessDocument(context.Background(), uuid.New(), false)
		assert.ErrorIs(t, err, ErrDocumentNotFound)
	})

	t.Run("fresh extraction short-circuits with cached payload", func(t *testing.T) {
		candidateID := uuid.New()
		doc := cvDocument(candidateID)
		recent := time.Now().Add(-time.Minute)
		method := models.ExtractionMethodHybrid
		email := "alice.johnson@email.com"

		docs := &mockDocumentsRepo{getByIDFunc: func(_ context.Context, _ uuid.UUID) (*models.Document, error) { return doc, nil }}
		cands := &mockCandidatesRepo{getByIDFunc: func(_ context.Context, _ uuid.UUID) (*models.Candidate, error) {
			return &models.Candidate{
				ID:                 candidateID,
				Name:               "ALICE JOHNSON",
				Email:              &email,
				Skills:             []string{"JavaScript"},
				ExtractionStatus:   models.ExtractionStatusSuccess,
				ExtractionMethod:   &method,
				LastExtractionDate: &recent,
			}, nil
		}}
		parser := &mockParser{}
		svc := newExtractionService(docs, cands, &mockPositionsRepo{}, parser, nil, nil)

		result, err := svc.ProcessDocument(context.Background(), doc.ID, true)
		require.NoError(t, err)
		assert.True(t, result.Success)
		assert.True(t, result.Cached)
		require.NotNil(t, result.Extraction)
		assert.Equal(t, "ALICE JOHNSON", result.Extraction.Name)
		assert.Equal(t, "alice.johnson@email.com", result.Extraction.Email)
		assert.Equal(t, models.ExtractionMethodHybrid, result.Extraction.Method)
		assert.Zero(t, parser.calls, "cached path must not re-parse")
		assert.Empty(t, cands.updates, "cached path must not persist")
	})

	t.Run("heuristics only sets method heuristic and keeps extracted contact fields", func(t *testing.T) {
		candidateID := uuid.New()
		doc := cvDocument(candidateID)
		docs := &mockDocumentsRepo{getByIDFunc: func(_ context.Context, _ uuid.UUID) (*models.Document, error) { return doc, nil }}
		cands := &mockCandidatesRepo{}
		enq := &mockEnqueuer{}
		svc := newExtractionService(docs, cands, &mockPositionsRepo{}, &mockParser{}, nil, enq)

		result, err := svc.ProcessDocument(context.Background(), doc.ID, false)
		require.NoError(t, err)
		assert.True(t, result.Success)
		assert.False(t, result.Cached)
		require.NotNil(t, result.Extraction)
		assert.Equal(t, models.ExtractionMethodHeuristic, result.Extraction.Method)
		assert.Equal(t, "ALICE JOHNSON", result.Extraction.Name)
		assert.Equal(t, "alice.johnson@email.com", result.Extraction.Email)
		assert.Equal(t, "+1-555-0101", result.Extraction.Phone)
		assert.Contains(t, result.Extraction.Skills, "TypeScript")

		require.Len(t, cands.updates, 1)
		assert.Equal(t, models.ExtractionMethodHeuristic, cands.updates[0].Method)
		assert.Equal(t, "v3", cands.updates[0].PromptVersion)
		assert.Len(t, docs.enriched, 1)
		assert.Equal(t, []string{"candidate:" + candidateID.String()}, enq.enqueued)
	})

	t.Run("llm success sets method hybrid and keeps heuristic contact fields", func(t *testing.T) {
		candidateID := uuid.New()
		doc := cvDocument(candidateID)
		docs := &mockDocumentsRepo{getByIDFunc: func(_ context.Context, _ uuid.UUID) (*models.Document, error) { return doc, nil }}
		cands := &mockCandidatesRepo{}
		metered, recorder := newTestMeteredLLM(func(llm.GenerateRequest) string {
			return `{"name":"A. Johnson","email":"wrong@llm.example","summary":"Seasoned frontend engineer.","skills":["React","Redux"]}`
		})
		svc := newExtractionService(docs, cands, &mockPositionsRepo{}, &mockParser{}, metered, &mockEnqueuer{})

		result, err := svc.ProcessDocument(context.Background(), doc.ID, true)
		require.NoError(t, err)
		assert.True(t, result.Success)
		assert.Equal(t, models.ExtractionMethodHybrid, result.Extraction.Method)
		assert.Equal(t, "alice.johnson@email.com", result.Extraction.Email, "heuristic email wins over LLM")
		assert.Equal(t, "ALICE JOHNSON", result.Extraction.Name)
		assert.Equal(t, "Seasoned frontend engineer.", result.Extraction.Summary)
		assert.Equal(t, []string{"React", "Redux"}, result.Extraction.Skills, "LLM wins structured fields")
		assert.Len(t, recorder.recorded(), 1)
	})

	t.Run("llm failure falls back to heuristics and continues", func(t *testing.T) {
		candidateID := uuid.New()
		doc := cvDocument(candidateID)
		docs := &mockDocumentsRepo{getByIDFunc: func(_ context.Context, _ uuid.UUID) (*models.Document, error) { return doc, nil }}
		cands := &mockCandidatesRepo{}
		metered, recorder := newTestMeteredLLM(func(llm.GenerateRequest) string {
			return "this is not json"
		})
		svc := newExtractionService(docs, cands, &mockPositionsRepo{}, &mockParser{}, metered, &mockEnqueuer{})

		result, err := svc.ProcessDocument(context.Background(), doc.ID, true)
		require.NoError(t, err)
		assert.True(t, result.Success)
		assert.Equal(t, models.ExtractionMethodHeuristic, result.Extraction.Method)
		assert.Equal(t, "ALICE JOHNSON", result.Extraction.Name)
		require.Len(t, cands.updates, 1)

		records := recorder.recorded()
		require.Len(t, records, 1)
		assert.False(t, records[0].Success, "parse failure is a failed call in the metrics trail")
	})

	t.Run("raw text cache skips the parser", func(t *testing.T) {
		candidateID := uuid.New()
		doc := cvDocument(candidateID)
		raw := sampleCV
		doc.RawText = &raw

		docs := &mockDocumentsRepo{getByIDFunc: func(_ context.Context, _ uuid.UUID) (*models.Document, error) { return doc, nil }}
		parser := &mockParser{}
		svc := newExtractionService(docs, &mockCandidatesRepo{}, &mockPositionsRepo{}, parser, nil, nil)

		result, err := svc.ProcessDocument(context.Background(), doc.ID, false)
		require.NoError(t, err)
		assert.True(t, result.Success)
		assert.Zero(t, parser.calls)
	})

	t.Run("unsupported format propagates", func(t *testing.T) {
		candidateID := uuid.New()
		doc := cvDocument(candidateID)
		doc.FileName = "cv.png"

		docs := &mockDocumentsRepo{getByIDFunc: func(_ context.Context, _ uuid.UUID) (*models.Document, error) { return doc, nil }}
		parser := &mockParser{parseFunc: func(_, filename string) (*docparse.Result, error) {
			return nil, &docparse.UnsupportedFormatError{Extension: ".png"}
		}}
		svc := newExtractionService(docs, &mockCandidatesRepo{}, &mockPositionsRepo{}, parser, nil, nil)

		_, err := svc.ProcessDocument(context.Background(), doc.ID, false)
		require.Error(t, err)

		var unsupported *docparse.UnsupportedFormatError
		assert.ErrorAs(t, err, &unsupported)
	})

	t.Run("invalid llm email on empty heuristics blocks persistence", func(t *testing.T) {
		candidateID := uuid.New()
		doc := cvDocument(candidateID)
		docs := &mockDocumentsRepo{getByIDFunc: func(_ context.Context, _ uuid.UUID) (*models.Document, error) { return doc, nil }}
		cands := &mockCandidatesRepo{}
		parser := &mockParser{parseFunc: func(_, _ string) (*docparse.Result, error) {
			return &docparse.Result{Text: "https://example.com/profile\nno contact details here"}, nil
		}}
		metered, _ := newTestMeteredLLM(func(llm.GenerateRequest) string {
			return `{"email":"not-an-address"}`
		})
		svc := newExtractionService(docs, cands, &mockPositionsRepo{}, parser, metered, nil)

		result, err := svc.ProcessDocument(context.Background(), doc.ID, true)
		require.NoError(t, err)
		assert.False(t, result.Success)
		require.NotNil(t, result.Validation)
		assert.NotEmpty(t, result.Validation.Errors)
		assert.Empty(t, cands.updates)
		assert.Contains(t, cands.failed, candidateID)
	})
}

func TestExtractionService_ProcessDocument_JobDescription(t *testing.T) {
	t.Run("no llm is terminal", func(t *testing.T) {
		positionID := uuid.New()
		doc := jobDocument(positionID)
		docs := &mockDocumentsRepo{getByIDFunc: func(_ context.Context, _ uuid.UUID) (*models.Document, error) { return doc, nil }}
		poss := &mockPositionsRepo{}
		svc := newExtractionService(docs, &mockCandidatesRepo{}, poss, &mockParser{}, nil, nil)

		result, err := svc.ProcessDocument(context.Background(), doc.ID, false)
		require.NoError(t, err)
		assert.False(t, result.Success)
		assert.Equal(t, "LLM required for job description extraction", result.Error)
		assert.Contains(t, poss.failed, positionID)
		assert.Empty(t, poss.updates)
	})

	t.Run("llm failure is terminal with the same error", func(t *testing.T) {
		positionID := uuid.New()
		doc := jobDocument(positionID)
		docs := &mockDocumentsRepo{getByIDFunc: func(_ context.Context, _ uuid.UUID) (*models.Document, error) { return doc, nil }}
		metered, _ := newTestMeteredLLM(func(llm.GenerateRequest) string { return "not json" })
		svc := newExtractionService(docs, &mockCandidatesRepo{}, &mockPositionsRepo{}, &mockParser{}, metered, nil)

		result, err := svc.ProcessDocument(context.Background(), doc.ID, true)
		require.NoError(t, err)
		assert.False(t, result.Success)
		assert.Equal(t, "LLM required for job description extraction", result.Error)
	})

	t.Run("llm success sets method llm and persists position fields", func(t *testing.T) {
		positionID := uuid.New()
		doc := jobDocument(positionID)
		docs := &mockDocumentsRepo{getByIDFunc: func(_ context.Context, _ uuid.UUID) (*models.Document, error) { return doc, nil }}
		poss := &mockPositionsRepo{}
		enq := &mockEnqueuer{}
		metered, _ := newTestMeteredLLM(func(llm.GenerateRequest) string {
			return `{"summary":"Backend role.","requirements":["Go","PostgreSQL"],"responsibilities":["Build services"]}`
		})
		svc := newExtractionService(docs, &mockCandidatesRepo{}, poss, &mockParser{}, metered, enq)

		result, err := svc.ProcessDocument(context.Background(), doc.ID, true)
		require.NoError(t, err)
		assert.True(t, result.Success)
		assert.Equal(t, models.ExtractionMethodLLM, result.Extraction.Method)
		assert.Equal(t, "Go\nPostgreSQL", result.Extraction.Requirements)

		require.Len(t, poss.updates, 1)
		assert.Equal(t, models.ExtractionMethodLLM, poss.updates[0].Method)
		assert.Equal(t, []string{"position:" + positionID.String()}, enq.enqueued)
	})
}

func TestCombineCandidateResults_MethodReflectsLLMInvolvement(t *testing.T) {
	// Even when heuristics found nothing, a successful LLM result makes the
	// extraction hybrid: method tracks involvement, not per-field wins.
	combined := combineCandidateResults(
		extract.CandidateInfo{Confidence: "low"},
		&llmCVExtraction{Summary: "Great engineer."},
	)
	assert.Equal(t, models.ExtractionMethodHybrid, combined.Method)
	assert.Equal(t, "Great engineer.", combined.Summary)
}
