// Package llm summarizes note content with a hosted language model.
package llm

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/sashabaranov/go-openai"

	apperrors "github.com/DaX-523/notes-ai-1811/internal/errors"
)

const (
	DefaultGroqBaseURL = "https://api.groq.com/openai/v1"
	DefaultGroqModel   = "llama3-70b-8192"

	SystemPrompt = "You are a helpful assistant that summarizes note's description in a concise and informative way."
	userPrefix   = "Please summarize the following description:\n\n"
)

// Provider is the summarization boundary: a prompt pair in, text out.
type Provider interface {
	Complete(ctx context.Context, req CompletionRequest) (string, error)
	IsAvailable() bool
}

// CompletionRequest configures one completion.
type CompletionRequest struct {
	SystemPrompt string
	UserContent  string
	Temperature  float32
	MaxTokens    int
}

// SummaryRequest builds the request used for note summaries.
func SummaryRequest(content string) CompletionRequest {
	return CompletionRequest{
		SystemPrompt: SystemPrompt,
		UserContent:  userPrefix + content,
		Temperature:  0.3,
		MaxTokens:    500,
	}
}

// GroqConfig configures GroqProvider.
type GroqConfig struct {
	APIKey  string
	Model   string
	BaseURL string
}

// GroqProvider talks to Groq's OpenAI-compatible chat completions API.
type GroqProvider struct {
	client *openai.Client
	model  string
	apiKey string
}

// NewGroqProvider creates a provider. An empty key yields a provider that
// reports itself unavailable.
func NewGroqProvider(cfg GroqConfig) *GroqProvider {
	if cfg.Model == "" {
		cfg.Model = DefaultGroqModel
	}
	if cfg.BaseURL == "" {
		cfg.BaseURL = DefaultGroqBaseURL
	}

	clientConfig := openai.DefaultConfig(cfg.APIKey)
	clientConfig.BaseURL = strings.TrimSuffix(cfg.BaseURL, "/")

	return &GroqProvider{
		client: openai.NewClientWithConfig(clientConfig),
		model:  cfg.Model,
		apiKey: cfg.APIKey,
	}
}

func (p *GroqProvider) IsAvailable() bool {
	return p.apiKey != ""
}

// Complete sends a system and a user message and returns the first choice.
func (p *GroqProvider) Complete(ctx context.Context, req CompletionRequest) (string, error) {
	if !p.IsAvailable() {
		return "", apperrors.Summarization(apperrors.CodeProviderMissing, "Groq API key is missing").
			WithOperation("Complete").
			WithRetryable(false).
			Build()
	}

	resp, err := p.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model: p.model,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: req.SystemPrompt},
			{Role: openai.ChatMessageRoleUser, Content: req.UserContent},
		},
		Temperature: req.Temperature,
		MaxTokens:   req.MaxTokens,
	})
	if err != nil {
		return "", providerError(err)
	}
	if len(resp.Choices) == 0 {
		return "", apperrors.Summarization(apperrors.CodeSummaryEmpty, "the model returned no choices").
			WithOperation("Complete").
			Build()
	}
	return resp.Choices[0].Message.Content, nil
}

func providerError(err error) error {
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
		return apperrors.Summarization(apperrors.CodeTimeout, "the summary request timed out").
			WithOperation("Complete").
			WithCause(err).
			Build()
	}

	retryable := true
	var apiErr *openai.APIError
	if errors.As(err, &apiErr) {
		retryable = apiErr.HTTPStatusCode == http.StatusTooManyRequests || apiErr.HTTPStatusCode >= 500
	}
	var reqErr *openai.RequestError
	if errors.As(err, &reqErr) {
		retryable = reqErr.HTTPStatusCode == http.StatusTooManyRequests || reqErr.HTTPStatusCode >= 500
	}

	return apperrors.Summarization(apperrors.CodeSummaryFailed, "the summarization service failed").
		WithOperation("Complete").
		WithRetryable(retryable).
		WithCause(err).
		Build()
}

var _ Provider = (*GroqProvider)(nil)
