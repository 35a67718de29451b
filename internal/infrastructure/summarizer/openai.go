// Package summarizer calls an OpenAI-compatible chat completion API to
// summarize documents and answer questions about them.
package summarizer

import (
	"context"
	"errors"
	"fmt"
	"strings"

	openai "github.com/sashabaranov/go-openai"
	"go.uber.org/zap"

	billingerrors "github.com/codeabuu/simplifydocs/internal/domain/errors"
)

const (
	summarizeSystemPrompt = "You are a helpful assistant that summarizes: "
	answerSystemPrompt    = "You are a helpful assistant. Answer the user's question strictly based on the provided document. If the document does not contain the answer, say so."
)

// Config configures the chat completion client.
type Config struct {
	APIKey    string
	BaseURL   string
	Model     string
	MaxTokens int
}

// OpenAISummarizer implements document summarization on go-openai.
type OpenAISummarizer struct {
	api       *openai.Client
	model     string
	maxTokens int
	logger    *zap.Logger
}

// NewOpenAISummarizer creates a summarizer. BaseURL may point at any
// OpenAI-compatible endpoint.
func NewOpenAISummarizer(cfg Config, logger *zap.Logger) *OpenAISummarizer {
	clientCfg := openai.DefaultConfig(cfg.APIKey)
	if cfg.BaseURL != "" {
		clientCfg.BaseURL = cfg.BaseURL
	}
	model := cfg.Model
	if model == "" {
		model = openai.GPT3Dot5Turbo
	}
	return &OpenAISummarizer{
		api:       openai.NewClientWithConfig(clientCfg),
		model:     model,
		maxTokens: cfg.MaxTokens,
		logger:    logger.Named("summarizer"),
	}
}

// Summarize condenses text following instruction.
func (s *OpenAISummarizer) Summarize(ctx context.Context, text, instruction string) (string, error) {
	return s.complete(ctx, summarizeSystemPrompt, instruction+"\n"+text)
}

// Answer answers question using only text.
func (s *OpenAISummarizer) Answer(ctx context.Context, text, question string) (string, error) {
	return s.complete(ctx, answerSystemPrompt, fmt.Sprintf("Document:\n%s\n\nQuestion: %s", text, question))
}

func (s *OpenAISummarizer) complete(ctx context.Context, system, user string) (string, error) {
	resp, err := s.api.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model:     s.model,
		MaxTokens: s.maxTokens,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: system},
			{Role: openai.ChatMessageRoleUser, Content: user},
		},
	})
	if err != nil {
		s.logger.Warn("Chat completion failed", zap.String("model", s.model), zap.Error(err))
		var apiErr *openai.APIError
		if errors.As(err, &apiErr) && apiErr.HTTPStatusCode > 0 && apiErr.HTTPStatusCode < 500 && apiErr.HTTPStatusCode != 429 {
			return "", billingerrors.Internal("summarization request rejected", err)
		}
		return "", billingerrors.ProviderUnavailable("summarization service unavailable", err)
	}
	if len(resp.Choices) == 0 {
		return "", billingerrors.ProviderUnavailable("summarization service returned no answer", nil)
	}
	return strings.TrimSpace(resp.Choices[0].Message.Content), nil
}
