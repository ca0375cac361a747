package tests

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/helliohr/recruit/internal/models"
	"github.com/helliohr/recruit/internal/repository"
)

func TestRetrievalLogsRepository_Insert(t *testing.T) {
	db := requireDB(t)
	ctx := context.Background()
	repo := repository.NewRetrievalLogsRepository(db)

	queryID := uuid.New()
	hitID := uuid.New()

	require.NoError(t, repo.Insert(ctx, &models.RetrievalLog{
		QueryType:     models.QueryTypeCandidatesForPosition,
		QueryEntityID: queryID,
		TopK: []models.RetrievalHit{
			{EntityID: hitID, Similarity: 0.91},
		},
		FiltersApplied: []string{"status", "existing_links"},
		FinalCount:     1,
		ElapsedMs:      12,
	}))

	var (
		queryType string
		topKRaw   []byte
		filters   []string
		count     int
		elapsed   int64
	)

	err := db.QueryRow(ctx, `
		SELECT query_type, top_k, filters_applied, final_count, elapsed_ms
		FROM retrieval_logs WHERE query_entity_id = $1`, queryID,
	).Scan(&queryType, &topKRaw, &filters, &count, &elapsed)
	require.NoError(t, err)

	assert.Equal(t, models.QueryTypeCandidatesForPosition, queryType)
	assert.Equal(t, []string{"status", "existing_links"}, filters)
	assert.Equal(t, 1, count)
	assert.Equal(t, int64(12), elapsed)

	var hits []models.RetrievalHit

	require.NoError(t, json.Unmarshal(topKRaw, &hits))
	require.Len(t, hits, 1)
	assert.Equal(t, hitID, hits[0].EntityID)
	assert.InDelta(t, 0.91, hits[0].Similarity, 1e-9)
}

func TestRetrievalLogsRepository_Insert_EmptyTopK(t *testing.T) {
	db := requireDB(t)
	ctx := context.Background()
	repo := repository.NewRetrievalLogsRepository(db)

	queryID := uuid.New()

	// Zero-result retrievals are still logged.
	require.NoError(t, repo.Insert(ctx, &models.RetrievalLog{
		QueryType:      models.QueryTypePositionsForCandidate,
		QueryEntityID:  queryID,
		TopK:           nil,
		FiltersApplied: []string{"status", "existing_links", "min_similarity"},
		FinalCount:     0,
		ElapsedMs:      3,
	}))

	var count int
	err := db.QueryRow(ctx,
		`SELECT COUNT(*) FROM retrieval_logs WHERE query_entity_id = $1`, queryID).Scan(&count)
	require.NoError(t, err)
	assert.Equal(t, 1, count)
}
