package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/helliohr/recruit/internal/llm"
	"github.com/helliohr/recruit/internal/models"
	"github.com/helliohr/recruit/internal/observability"
	"github.com/helliohr/recruit/internal/repository"
	"github.com/helliohr/recruit/pkg/cache"
	pkgembeddings "github.com/helliohr/recruit/pkg/embeddings"
)

const explanationCacheName = "explanation"

// hedgePhrases mark an explanation as guessing rather than grounding; any
// occurrence rejects the text in favor of the fallback.
var hedgePhrases = []string{
	"unverified skill",
	"assumed expertise",
	"probably knows",
	"likely has experience",
}

// shortExplanationLimit: explanations under this length are treated as
// intentionally generic and skip the token-overlap requirement.
const shortExplanationLimit = 50

const explanationSystemPrompt = `You are a recruiting assistant. Explain why a candidate matches a position ` +
	`using only the facts provided. Never claim skills or experience that are not listed. ` +
	`If the provided data is insufficient, say so plainly.`

const explanationPromptTemplate = `Candidate skills: %s
Candidate experience:
%s

Position title: %s
Position requirements:
%s

Match similarity score: %.0f%%

In two or three sentences, explain this match using only the facts above.`

// ExplanationsRepositoryForMatch is the cache table contract.
type ExplanationsRepositoryForMatch interface {
	Get(ctx context.Context, candidateID, positionID uuid.UUID, candidateHash, positionHash, promptVersion string) (*models.MatchExplanation, error)
	Insert(ctx context.Context, entry *models.MatchExplanation) error
}

// EmbeddingsReader loads embedding rows for hash and similarity computation.
type EmbeddingsReader interface {
	GetByEntity(ctx context.Context, entityID uuid.UUID, entityType string) (*models.EmbeddingRecord, error)
}

// explanationKey is the composite cache key; any hash or prompt-version change
// produces a new key, orphaning the old entry.
type explanationKey struct {
	CandidateID   uuid.UUID
	PositionID    uuid.UUID
	CandidateHash string
	PositionHash  string
	PromptVersion string
}

func (k explanationKey) String() string {
	return k.CandidateID.String() + "|" + k.PositionID.String() + "|" + k.CandidateHash + "|" + k.PositionHash + "|" + k.PromptVersion
}

// MatchPair identifies one candidate/position pair in a batch request.
type MatchPair struct {
	CandidateID uuid.UUID `json:"candidate_id"`
	PositionID  uuid.UUID `json:"position_id"`
}

// BatchExplanation is one batch result. Fallback is true when the text is the
// deterministic template rather than model output.
type BatchExplanation struct {
	CandidateID uuid.UUID `json:"candidate_id"`
	PositionID  uuid.UUID `json:"position_id"`
	Explanation string    `json:"explanation"`
	Similarity  float64   `json:"similarity"`
	Fallback    bool      `json:"fallback"`
	Error       string    `json:"error,omitempty"`
}

// ExplanationService generates cached, guardrail-checked match explanations.
// An in-process LoaderCache deduplicates concurrent lookups per key; the
// database table is the durable cache shared across processes.
type ExplanationService struct {
	llm          *MeteredLLM
	explanations ExplanationsRepositoryForMatch
	embeddings   EmbeddingsReader
	candidates   CandidatesRepositoryForEmbedding
	positions    PositionsRepositoryForEmbedding

	memCache      *cache.LoaderCache[explanationKey, *models.MatchExplanation]
	cacheMetrics  observability.CacheMetrics
	promptVersion string
	timeout       time.Duration

	logger *slog.Logger
}

// ExplanationServiceParams configures ExplanationService. MemCache and
// CacheMetrics may be nil (no in-process layer).
type ExplanationServiceParams struct {
	LLM          *MeteredLLM
	Explanations ExplanationsRepositoryForMatch
	Embeddings   EmbeddingsReader
	Candidates   CandidatesRepositoryForEmbedding
	Positions    PositionsRepositoryForEmbedding

	MemCache      *cache.LoaderCache[explanationKey, *models.MatchExplanation]
	CacheMetrics  observability.CacheMetrics
	PromptVersion string
	Timeout       time.Duration

	Logger *slog.Logger
}

// NewExplanationMemCache creates the in-process explanation cache layer.
func NewExplanationMemCache(maxEntries int) (*cache.LoaderCache[explanationKey, *models.MatchExplanation], error) {
	//nolint:wrapcheck // constructor error is descriptive as-is
	return cache.NewLoaderCache[explanationKey, *models.MatchExplanation](maxEntries, func(k explanationKey) string {
		return k.String()
	})
}

// NewExplanationService creates an ExplanationService.
func NewExplanationService(p ExplanationServiceParams) *ExplanationService {
	logger := p.Logger
	if logger == nil {
		logger = slog.Default()
	}

	return &ExplanationService{
		llm:           p.LLM,
		explanations:  p.Explanations,
		embeddings:    p.Embeddings,
		candidates:    p.Candidates,
		positions:     p.Positions,
		memCache:      p.MemCache,
		cacheMetrics:  p.CacheMetrics,
		promptVersion: p.PromptVersion,
		timeout:       p.Timeout,
		logger:        logger,
	}
}

// ExplainMatch returns the explanation for one pair, from cache when the
// composite key matches, generating and caching otherwise. Fallback texts are
// cached too so a failing key does not retrigger LLM calls.
func (s *ExplanationService) ExplainMatch(ctx context.Context, candidateID, positionID uuid.UUID) (*models.MatchExplanation, error) {
	candEmb, err := s.embeddings.GetByEntity(ctx, candidateID, models.EntityTypeCandidate)
	if err != nil {
		//nolint:wrapcheck // ErrEmbeddingNotFound must stay matchable
		return nil, err
	}

	posEmb, err := s.embeddings.GetByEntity(ctx, positionID, models.EntityTypePosition)
	if err != nil {
		//nolint:wrapcheck // ErrEmbeddingNotFound must stay matchable
		return nil, err
	}

	similarity := pkgembeddings.CosineSimilarity(candEmb.Embedding, posEmb.Embedding)

	key := explanationKey{
		CandidateID:   candidateID,
		PositionID:    positionID,
		CandidateHash: candEmb.EmbeddingTextHash,
		PositionHash:  posEmb.EmbeddingTextHash,
		PromptVersion: s.promptVersion,
	}

	if s.memCache == nil {
		return s.lookupOrGenerate(ctx, key, similarity)
	}

	entry, hit, err := s.memCache.Get(ctx, key, func(ctx context.Context, key explanationKey) (*models.MatchExplanation, error) {
		return s.lookupOrGenerate(ctx, key, similarity)
	})

	if s.cacheMetrics != nil {
		if hit {
			s.cacheMetrics.RecordHit(ctx, explanationCacheName)
		} else {
			s.cacheMetrics.RecordMiss(ctx, explanationCacheName)
		}
	}

	return entry, err
}

// ExplainMatches generates all pairs concurrently, racing each against the
// configured timeout. A slow pair is settled with the fallback text without
// canceling the underlying call, and never blocks the other pairs.
func (s *ExplanationService) ExplainMatches(ctx context.Context, pairs []MatchPair) []BatchExplanation {
	results := make([]BatchExplanation, len(pairs))

	var wg sync.WaitGroup

	for i, pair := range pairs {
		wg.Add(1)

		go func(i int, pair MatchPair) {
			defer wg.Done()

			results[i] = s.explainWithTimeout(ctx, pair)
		}(i, pair)
	}

	wg.Wait()

	return results
}

func (s *ExplanationService) explainWithTimeout(ctx context.Context, pair MatchPair) BatchExplanation {
	type outcome struct {
		entry *models.MatchExplanation
		err   error
	}

	done := make(chan outcome, 1)

	// The generation goroutine keeps the parent context so a timeout here does
	// not cancel the call; a late success still lands in the cache.
	go func() {
		entry, err := s.ExplainMatch(ctx, pair.CandidateID, pair.PositionID)
		done <- outcome{entry: entry, err: err}
	}()

	timer := time.NewTimer(s.timeout)
	defer timer.Stop()

	select {
	case out := <-done:
		if out.err != nil {
			return BatchExplanation{
				CandidateID: pair.CandidateID,
				PositionID:  pair.PositionID,
				Explanation: timeoutFallbackExplanation(),
				Fallback:    true,
				Error:       out.err.Error(),
			}
		}

		return BatchExplanation{
			CandidateID: pair.CandidateID,
			PositionID:  pair.PositionID,
			Explanation: out.entry.Explanation,
			Similarity:  out.entry.SimilarityScore,
			Fallback:    false,
		}
	case <-timer.C:
		s.logger.Warn("explanation timed out, returning fallback",
			"candidateId", pair.CandidateID.String(), "positionId", pair.PositionID.String(), "timeout", s.timeout)

		return BatchExplanation{
			CandidateID: pair.CandidateID,
			PositionID:  pair.PositionID,
			Explanation: timeoutFallbackExplanation(),
			Fallback:    true,
		}
	}
}

// lookupOrGenerate checks the durable cache table before generating.
func (s *ExplanationService) lookupOrGenerate(ctx context.Context, key explanationKey, similarity float64) (*models.MatchExplanation, error) {
	cached, err := s.explanations.Get(ctx, key.CandidateID, key.PositionID, key.CandidateHash, key.PositionHash, key.PromptVersion)
	if err == nil {
		return cached, nil
	}

	if !errors.Is(err, repository.ErrExplanationNotFound) {
		//nolint:wrapcheck // repository errors carry context already
		return nil, err
	}

	return s.generate(ctx, key, similarity)
}

func (s *ExplanationService) generate(ctx context.Context, key explanationKey, similarity float64) (*models.MatchExplanation, error) {
	candidate, err := s.candidates.GetByID(ctx, key.CandidateID)
	if err != nil {
		//nolint:wrapcheck // sentinel must stay matchable
		return nil, err
	}

	position, err := s.positions.GetByID(ctx, key.PositionID)
	if err != nil {
		//nolint:wrapcheck // sentinel must stay matchable
		return nil, err
	}

	text := s.generateText(ctx, key, candidate, position, similarity)

	entry := &models.MatchExplanation{
		ID:                     uuid.New(),
		CandidateID:            key.CandidateID,
		PositionID:             key.PositionID,
		CandidateEmbeddingHash: key.CandidateHash,
		PositionEmbeddingHash:  key.PositionHash,
		PromptVersion:          key.PromptVersion,
		Explanation:            text,
		SimilarityScore:        similarity,
		ModelName:              s.llm.ModelName(),
	}

	if err := s.explanations.Insert(ctx, entry); err != nil {
		//nolint:wrapcheck // repository errors carry context already
		return nil, err
	}

	return entry, nil
}

// generateText calls the model and applies the guardrails; any failure resolves
// to the deterministic fallback rather than a possibly hallucinated text.
func (s *ExplanationService) generateText(ctx context.Context, key explanationKey, candidate *models.Candidate, position *models.Position, similarity float64) string {
	entityType := models.EntityTypeCandidate
	call := LLMCallContext{
		Operation:     "explanation",
		PromptVersion: key.PromptVersion,
		EntityType:    &entityType,
		EntityID:      &key.CandidateID,
	}

	result, err := s.llm.Generate(ctx, call, llm.GenerateRequest{
		SystemPrompt: explanationSystemPrompt,
		Prompt:       renderExplanationPrompt(candidate, position, similarity),
		Temperature:  0.3,
	})
	if err != nil {
		s.logger.Warn("explanation generation failed, using fallback",
			"candidateId", key.CandidateID.String(), "positionId", key.PositionID.String(), "error", err)

		return fallbackExplanation(similarity)
	}

	explanation := strings.TrimSpace(result.Text)

	if reason, ok := validateExplanation(explanation, candidate); !ok {
		s.logger.Warn("explanation rejected by guardrail",
			"candidateId", key.CandidateID.String(), "positionId", key.PositionID.String(), "reason", reason)

		return fallbackExplanation(similarity)
	}

	return explanation
}

func renderExplanationPrompt(candidate *models.Candidate, position *models.Position, similarity float64) string {
	requirements := derefOr(position.ExtractedRequirements, "(none listed)")
	experience := derefOr(candidate.ExtractedExperience, "(none listed)")

	skills := "(none listed)"
	if len(candidate.Skills) > 0 {
		skills = strings.Join(candidate.Skills, ", ")
	}

	return fmt.Sprintf(explanationPromptTemplate, skills, experience, position.Title, requirements, similarity*100)
}

// validateExplanation applies the hallucination guardrails: no hedge phrases,
// and at least one token overlap with the candidate's skills or role titles
// unless the text is short enough to be intentionally generic.
func validateExplanation(text string, candidate *models.Candidate) (string, bool) {
	lower := strings.ToLower(text)

	for _, phrase := range hedgePhrases {
		if strings.Contains(lower, phrase) {
			return "hedge phrase: " + phrase, false
		}
	}

	if len(text) < shortExplanationLimit {
		return "", true
	}

	for _, skill := range candidate.Skills {
		if skill != "" && strings.Contains(lower, strings.ToLower(skill)) {
			return "", true
		}
	}

	for _, role := range roleTitles(derefOr(candidate.ExtractedExperience, "")) {
		if role != "" && strings.Contains(lower, strings.ToLower(role)) {
			return "", true
		}
	}

	return "no overlap with candidate skills or role titles", false
}

// roleTitles pulls the role part out of "Role at Company (...)" experience lines.
func roleTitles(experience string) []string {
	var roles []string

	for _, line := range strings.Split(experience, "\n") {
		line = strings.TrimSpace(line)
		if line == "" || strings.HasPrefix(line, "-") {
			continue
		}

		if at := strings.Index(line, " at "); at > 0 {
			roles = append(roles, line[:at])
		}
	}

	return roles
}

func fallbackExplanation(similarity float64) string {
	return fmt.Sprintf("Match similarity: %.0f%%. An automated explanation could not be generated for this pair; please review the candidate profile manually.", similarity*100)
}

func timeoutFallbackExplanation() string {
	return "An automated explanation was not available in time for this pair; please review the candidate profile manually."
}
