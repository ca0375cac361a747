package service

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"regexp"
	"strings"

	"github.com/helliohr/recruit/internal/llm"
)

// entityNouns anchor a question to something askable; a vague quantifier or
// pronoun without one of these triggers the clarification gate.
var entityNouns = []string{
	"candidate", "candidates", "position", "positions", "skill", "skills",
	"department", "departments", "document", "documents", "cv", "cvs",
	"resume", "resumes", "role", "roles", "job", "jobs",
	"application", "applications", "applicant", "applicants",
}

// hrVocabulary is the relevance gate: a question must mention at least one of
// these to reach SQL generation. Supersets entityNouns with domain verbs and
// field names.
var hrVocabulary = append([]string{
	"hire", "hired", "hiring", "recruit", "recruiting", "recruitment",
	"active", "inactive", "open", "closed", "status",
	"experience", "education", "email", "phone", "name",
	"match", "matches", "interview", "shortlist",
}, entityNouns...)

var (
	vagueQuantifierPattern = regexp.MustCompile(`(?i)\bhow (many|much)\b`)
	danglingPronounPattern = regexp.MustCompile(`(?i)\b(they|them|their|it)\b`)
	wordPattern            = regexp.MustCompile(`[a-zA-Z]+`)
)

const sqlGenerationSystemPrompt = `You translate recruiting questions into PostgreSQL SELECT queries. ` +
	`Respond with a single JSON object {"sql": string, "reasoning": string} and nothing else. ` +
	`Only generate SELECT statements over the documented schema.`

const answerSystemPrompt = `You answer recruiting questions from query results. ` +
	`Use only the information present in the retrieved data; do not use information not present in it. ` +
	`If the result set is empty, say that no matching records were found.`

// SQLGenerationTrace records the generation stage of one question.
type SQLGenerationTrace struct {
	SQL       string       `json:"sql"`
	Reasoning string       `json:"reasoning"`
	Metrics   StageMetrics `json:"metrics"`
}

// SQLExecutionTrace records the execution stage.
type SQLExecutionTrace struct {
	Columns   []string `json:"columns"`
	RowCount  int      `json:"row_count"`
	ElapsedMs int64    `json:"elapsed_ms"`
}

// AnswerTrace records the answering stage.
type AnswerTrace struct {
	Metrics StageMetrics `json:"metrics"`
}

// AskTrace is the per-stage diagnostic trail of one question.
type AskTrace struct {
	SQLGeneration    *SQLGenerationTrace `json:"sql_generation,omitempty"`
	SQLExecution     *SQLExecutionTrace  `json:"sql_execution,omitempty"`
	AnswerGeneration *AnswerTrace        `json:"answer_generation,omitempty"`
}

// TotalMetrics aggregates the stage metrics. For a successful question,
// LLMCalls is exactly 2 and every total is the sum of the two stages.
type TotalMetrics struct {
	LLMCalls         int     `json:"llm_calls"`
	TotalTokens      int     `json:"total_tokens"`
	EstimatedCostUSD float64 `json:"estimated_cost_usd"`
	TotalLatencyMs   int64   `json:"total_latency_ms"`
}

// AskResult is the outcome of one question. Terminal failures carry an
// actionable Suggestion distinct from Error.
type AskResult struct {
	Success      bool          `json:"success"`
	Answer       string        `json:"answer,omitempty"`
	Error        string        `json:"error,omitempty"`
	Suggestion   string        `json:"suggestion,omitempty"`
	Trace        *AskTrace     `json:"trace,omitempty"`
	TotalMetrics *TotalMetrics `json:"total_metrics,omitempty"`
}

// SQLRagService answers natural-language questions over the recruiting
// database: gate checks, SQL generation, validation, sandboxed execution,
// grounded answering. Each gate short-circuits to a terminal response; the two
// LLM stages run only for questions that pass every gate before them.
type SQLRagService struct {
	llm      *MeteredLLM
	executor SQLExecutor
	maxRows  int
	logger   *slog.Logger
}

// SQLRagServiceParams configures SQLRagService.
type SQLRagServiceParams struct {
	LLM      *MeteredLLM
	Executor SQLExecutor
	MaxRows  int
	Logger   *slog.Logger
}

// NewSQLRagService creates a SQLRagService.
func NewSQLRagService(p SQLRagServiceParams) *SQLRagService {
	logger := p.Logger
	if logger == nil {
		logger = slog.Default()
	}

	return &SQLRagService{
		llm:      p.LLM,
		executor: p.Executor,
		maxRows:  p.MaxRows,
		logger:   logger,
	}
}

// Ask runs one question through the full gate chain. model overrides the
// configured chat model for both LLM stages when non-empty.
func (s *SQLRagService) Ask(ctx context.Context, question, model string) (*AskResult, error) {
	question = strings.TrimSpace(question)

	if suggestion := clarificationNeeded(question); suggestion != "" {
		return &AskResult{
			Success:    false,
			Error:      "question needs clarification",
			Suggestion: suggestion,
		}, nil
	}

	if !isRelevant(question) {
		return &AskResult{
			Success:    false,
			Error:      "question is outside the recruiting domain",
			Suggestion: "Ask about candidates, positions, skills, departments, or documents, e.g. \"List all active candidates\".",
		}, nil
	}

	generation, err := s.generateSQL(ctx, question, model)
	if err != nil {
		s.logger.Error("sql generation failed", "question", question, "error", err)

		return &AskResult{
			Success:    false,
			Error:      "could not generate SQL for this question",
			Suggestion: "Rephrase the question with concrete entities, e.g. \"How many open positions are in Engineering?\".",
		}, nil
	}

	trace := &AskTrace{SQLGeneration: generation}

	validated, err := ValidateSQL(generation.SQL, s.maxRows)
	if err != nil {
		s.logger.Warn("generated sql rejected", "question", question, "sql", generation.SQL, "error", err)

		return &AskResult{
			Success:    false,
			Error:      fmt.Sprintf("generated SQL failed validation: %v", err),
			Suggestion: "Rephrase the question as a read-only lookup over candidates or positions.",
			Trace:      trace,
		}, nil
	}

	execution, err := s.executor.Execute(ctx, validated)
	if err != nil {
		s.logger.Error("sql execution failed", "sql", validated, "error", err)

		return &AskResult{
			Success:    false,
			Error:      "query execution failed",
			Suggestion: "Try a simpler version of the question.",
			Trace:      trace,
		}, nil
	}

	trace.SQLExecution = &SQLExecutionTrace{
		Columns:   execution.Columns,
		RowCount:  execution.RowCount,
		ElapsedMs: execution.ElapsedMs,
	}

	answer, answerTrace, err := s.generateAnswer(ctx, question, model, execution)
	if err != nil {
		s.logger.Error("answer generation failed", "question", question, "error", err)

		return &AskResult{
			Success:    false,
			Error:      "could not generate an answer from the query results",
			Suggestion: "Retry the question; the data was retrieved successfully.",
			Trace:      trace,
		}, nil
	}

	trace.AnswerGeneration = answerTrace

	return &AskResult{
		Success:      true,
		Answer:       answer,
		Trace:        trace,
		TotalMetrics: sumStageMetrics(generation.Metrics, answerTrace.Metrics),
	}, nil
}

// clarificationNeeded returns a suggestion when the question is too vague to
// answer: a quantifier or pronoun with no entity noun to anchor it. Runs
// before anything else and never costs an LLM call.
func clarificationNeeded(question string) string {
	if question == "" {
		return "Ask a question about candidates, positions, skills, or departments."
	}

	if mentionsAny(question, entityNouns) {
		return ""
	}

	if vagueQuantifierPattern.MatchString(question) {
		return "Specify what to count, e.g. \"How many active candidates are there?\"."
	}

	if danglingPronounPattern.MatchString(question) {
		return "Name the entity instead of a pronoun, e.g. \"Which skills do the shortlisted candidates have?\"."
	}

	return ""
}

// isRelevant is an LLM-free keyword test against the HR vocabulary.
func isRelevant(question string) bool {
	return mentionsAny(question, hrVocabulary)
}

func mentionsAny(question string, vocabulary []string) bool {
	words := wordPattern.FindAllString(strings.ToLower(question), -1)

	wordSet := make(map[string]struct{}, len(words))
	for _, word := range words {
		wordSet[word] = struct{}{}
	}

	for _, term := range vocabulary {
		if _, ok := wordSet[term]; ok {
			return true
		}
	}

	return false
}

// sqlGenerationResponse is the strict JSON shape the generation prompt demands.
type sqlGenerationResponse struct {
	SQL       string `json:"sql"`
	Reasoning string `json:"reasoning"`
}

func (s *SQLRagService) generateSQL(ctx context.Context, question, model string) (*SQLGenerationTrace, error) {
	prompt := schemaContext + "\n\n" + sqlFewShotExamples + "\n\nQuestion: " + question + "\nAnswer:"

	var parsed sqlGenerationResponse

	result, err := s.llm.GenerateJSON(ctx, LLMCallContext{Operation: "sql_generation"}, llm.GenerateRequest{
		SystemPrompt: sqlGenerationSystemPrompt,
		Prompt:       prompt,
		Model:        model,
		Temperature:  0,
	}, &parsed)
	if err != nil {
		return nil, err
	}

	return &SQLGenerationTrace{
		SQL:       parsed.SQL,
		Reasoning: parsed.Reasoning,
		Metrics:   stageMetricsFromResult(result),
	}, nil
}

func (s *SQLRagService) generateAnswer(ctx context.Context, question, model string, execution *QueryResult) (string, *AnswerTrace, error) {
	data, err := json.Marshal(map[string]any{
		"columns":   execution.Columns,
		"rows":      execution.Rows,
		"row_count": execution.RowCount,
	})
	if err != nil {
		return "", nil, fmt.Errorf("marshal query result: %w", err)
	}

	prompt := fmt.Sprintf("Question: %s\n\nRetrieved data:\n%s\n\nAnswer the question using only the retrieved data.", question, data)

	result, err := s.llm.Generate(ctx, LLMCallContext{Operation: "answer"}, llm.GenerateRequest{
		SystemPrompt: answerSystemPrompt,
		Prompt:       prompt,
		Model:        model,
		Temperature:  0.2,
	})
	if err != nil {
		return "", nil, err
	}

	return strings.TrimSpace(result.Text), &AnswerTrace{Metrics: stageMetricsFromResult(result)}, nil
}

// sumStageMetrics enforces the additive invariant: totals are exactly the sum
// of the two stage metrics, with LLMCalls fixed at 2.
func sumStageMetrics(generation, answer StageMetrics) *TotalMetrics {
	return &TotalMetrics{
		LLMCalls:         2,
		TotalTokens:      generation.TotalTokens + answer.TotalTokens,
		EstimatedCostUSD: generation.EstimatedCostUSD + answer.EstimatedCostUSD,
		TotalLatencyMs:   generation.LatencyMs + answer.LatencyMs,
	}
}
