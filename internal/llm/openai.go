package llm

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/hashicorp/go-retryablehttp"
	openaisdk "github.com/openai/openai-go/v3"
	"github.com/openai/openai-go/v3/option"
	"github.com/openai/openai-go/v3/packages/param"
)

const defaultChatModel = "gpt-4o-mini"

// OpenAIClient calls the OpenAI chat completions API via the official SDK.
type OpenAIClient struct {
	sdk   openaisdk.Client
	model string
}

// OpenAIOption configures the OpenAIClient.
type OpenAIOption func(*OpenAIClient)

// WithModel sets the chat model name. Empty uses the default.
func WithModel(model string) OpenAIOption {
	return func(c *OpenAIClient) {
		if model != "" {
			c.model = model
		}
	}
}

// NewOpenAIClient creates an OpenAI chat client. Requests go through a
// retrying HTTP client so transient provider errors (429, 5xx) are retried
// before surfacing to the pipeline.
func NewOpenAIClient(apiKey string, opts ...OpenAIOption) *OpenAIClient {
	retryClient := retryablehttp.NewClient()
	retryClient.RetryMax = 2
	retryClient.Logger = nil

	client := &OpenAIClient{
		sdk: openaisdk.NewClient(
			option.WithAPIKey(apiKey),
			option.WithHTTPClient(retryClient.StandardClient()),
		),
		model: defaultChatModel,
	}

	for _, opt := range opts {
		opt(client)
	}

	return client
}

// ModelName returns the configured chat model.
func (c *OpenAIClient) ModelName() string {
	return c.model
}

// Generate sends the prompt (and optional system prompt) to the chat
// completions API and returns the completion with usage and latency.
func (c *OpenAIClient) Generate(ctx context.Context, req GenerateRequest) (*GenerateResult, error) {
	if strings.TrimSpace(req.Prompt) == "" {
		return nil, ErrEmptyPrompt
	}

	var messages []openaisdk.ChatCompletionMessageParamUnion
	if req.SystemPrompt != "" {
		messages = append(messages, openaisdk.SystemMessage(req.SystemPrompt))
	}

	messages = append(messages, openaisdk.UserMessage(req.Prompt))

	model := c.model
	if req.Model != "" {
		model = req.Model
	}

	params := openaisdk.ChatCompletionNewParams{
		Model:    openaisdk.ChatModel(model),
		Messages: messages,
	}

	if req.MaxTokens > 0 {
		params.MaxCompletionTokens = param.NewOpt(int64(req.MaxTokens))
	}

	if req.Temperature > 0 {
		params.Temperature = param.NewOpt(req.Temperature)
	}

	start := time.Now()

	resp, err := c.sdk.Chat.Completions.New(ctx, params)
	if err != nil {
		return nil, fmt.Errorf("openai chat completion: %w", err)
	}

	if len(resp.Choices) == 0 {
		return nil, ErrNoChoicesInResponse
	}

	return &GenerateResult{
		Text: resp.Choices[0].Message.Content,
		Usage: Usage{
			PromptTokens:     int(resp.Usage.PromptTokens),
			CompletionTokens: int(resp.Usage.CompletionTokens),
			TotalTokens:      int(resp.Usage.TotalTokens),
		},
		ModelID:   resp.Model,
		LatencyMs: time.Since(start).Milliseconds(),
	}, nil
}
