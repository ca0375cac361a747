package tests

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/helliohr/recruit/internal/repository"
)

func TestCandidatesRepository_UpdateExtraction(t *testing.T) {
	db := requireDB(t)
	ctx := context.Background()
	repo := repository.NewCandidatesRepository(db)

	id := insertCandidate(t, db, "Alice Johnson", "ACTIVE")

	_, err := db.Exec(ctx,
		`UPDATE candidates SET email = 'alice@example.com' WHERE id = $1`, id)
	require.NoError(t, err)

	require.NoError(t, repo.UpdateExtraction(ctx, id, repository.CandidateExtractionUpdate{
		Name:          "Alice Johnson",
		Skills:        []string{"Go", "React"},
		Summary:       "Senior engineer with frontend focus.",
		Experience:    "Senior Frontend Engineer at Acme (2019-2024)",
		Method:        "llm",
		PromptVersion: "v3",
	}))

	got, err := repo.GetByID(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, "success", got.ExtractionStatus)
	assert.Equal(t, []string{"Go", "React"}, got.Skills)
	require.NotNil(t, got.ExtractionMethod)
	assert.Equal(t, "llm", *got.ExtractionMethod)
	require.NotNil(t, got.ExtractedSummary)
	assert.Equal(t, "Senior engineer with frontend focus.", *got.ExtractedSummary)
	assert.NotNil(t, got.LastExtractionDate)

	// Empty update fields never blank previously stored values.
	require.NotNil(t, got.Email)
	assert.Equal(t, "alice@example.com", *got.Email)

	t.Run("unknown id returns sentinel", func(t *testing.T) {
		err := repo.UpdateExtraction(ctx, uuid.New(), repository.CandidateExtractionUpdate{Method: "llm"})
		assert.ErrorIs(t, err, repository.ErrCandidateNotFound)
	})

	t.Run("failed extraction keeps fields", func(t *testing.T) {
		require.NoError(t, repo.MarkExtractionFailed(ctx, id))

		got, err := repo.GetByID(ctx, id)
		require.NoError(t, err)
		assert.Equal(t, "failed", got.ExtractionStatus)
		assert.NotNil(t, got.ExtractedSummary)
	})
}

func TestCandidatesRepository_LinksAndStatuses(t *testing.T) {
	db := requireDB(t)
	ctx := context.Background()
	repo := repository.NewCandidatesRepository(db)

	positionID := insertPosition(t, db, "Backend Engineer", "OPEN")
	linked := insertCandidate(t, db, "Linked Candidate", "ACTIVE")
	unlinked := insertCandidate(t, db, "Unlinked Candidate", "INACTIVE")

	linkCandidate(t, db, positionID, linked)

	ids, err := repo.LinkedCandidateIDs(ctx, positionID)
	require.NoError(t, err)
	assert.Equal(t, []uuid.UUID{linked}, ids)

	statuses, err := repo.StatusByIDs(ctx, []uuid.UUID{linked, unlinked})
	require.NoError(t, err)
	assert.Equal(t, "ACTIVE", statuses[linked])
	assert.Equal(t, "INACTIVE", statuses[unlinked])
}

func TestPositionsRepository_UpdateExtraction(t *testing.T) {
	db := requireDB(t)
	ctx := context.Background()
	repo := repository.NewPositionsRepository(db)

	id := insertPosition(t, db, "Backend Engineer", "OPEN")

	require.NoError(t, repo.UpdateExtraction(ctx, id, repository.PositionExtractionUpdate{
		Summary:          "Own the payments platform backend.",
		Requirements:     "5+ years Go, PostgreSQL",
		Responsibilities: "Design and operate payment services",
		Method:           "llm",
		PromptVersion:    "v3",
	}))

	got, err := repo.GetByID(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, "success", got.ExtractionStatus)
	require.NotNil(t, got.ExtractedRequirements)
	assert.Equal(t, "5+ years Go, PostgreSQL", *got.ExtractedRequirements)

	t.Run("unknown id returns sentinel", func(t *testing.T) {
		err := repo.UpdateExtraction(ctx, uuid.New(), repository.PositionExtractionUpdate{Method: "llm"})
		assert.ErrorIs(t, err, repository.ErrPositionNotFound)
	})
}

func TestDocumentsRepository_RawTextLifecycle(t *testing.T) {
	db := requireDB(t)
	ctx := context.Background()
	repo := repository.NewDocumentsRepository(db)

	candidateID := insertCandidate(t, db, "Alice Johnson", "ACTIVE")
	docID := insertDocument(t, db, "cv", &candidateID, nil)

	doc, err := repo.GetByID(ctx, docID)
	require.NoError(t, err)
	assert.Equal(t, "pending", doc.ProcessingStatus)
	assert.Nil(t, doc.RawText)
	require.NotNil(t, doc.CandidateID)
	assert.Equal(t, candidateID, *doc.CandidateID)

	require.NoError(t, repo.SetRawText(ctx, docID, "Alice Johnson\nalice@example.com"))

	doc, err = repo.GetByID(ctx, docID)
	require.NoError(t, err)
	assert.Equal(t, "extracted", doc.ProcessingStatus)
	require.NotNil(t, doc.RawText)
	assert.Contains(t, *doc.RawText, "alice@example.com")

	require.NoError(t, repo.MarkEnriched(ctx, docID))

	doc, err = repo.GetByID(ctx, docID)
	require.NoError(t, err)
	assert.Equal(t, "enriched", doc.ProcessingStatus)
	assert.NotNil(t, doc.ProcessedAt)

	t.Run("unknown id returns sentinel", func(t *testing.T) {
		_, err := repo.GetByID(ctx, uuid.New())
		assert.ErrorIs(t, err, repository.ErrDocumentNotFound)
	})
}
