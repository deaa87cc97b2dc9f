// Package openai re-ranks candidates through an OpenAI-compatible chat API.
package openai

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/tmc/langchaingo/llms"
	"github.com/tmc/langchaingo/llms/openai"

	"github.com/kirillkom/movie-recommender/internal/core/domain"
	"github.com/kirillkom/movie-recommender/internal/infrastructure/llm/prompt"
)

type Config struct {
	BaseURL     string
	APIKey      string
	Model       string
	Temperature float64
	MaxTokens   int
}

type Reranker struct {
	model       llms.Model
	temperature float64
	maxTokens   int
}

func NewReranker(cfg Config) (*Reranker, error) {
	opts := []openai.Option{openai.WithModel(cfg.Model)}
	if strings.TrimSpace(cfg.BaseURL) != "" {
		opts = append(opts, openai.WithBaseURL(cfg.BaseURL))
	}
	token := cfg.APIKey
	if token == "" {
		// Local OpenAI-compatible servers accept any token.
		token = "none"
	}
	opts = append(opts, openai.WithToken(token))

	client, err := openai.New(opts...)
	if err != nil {
		return nil, fmt.Errorf("create openai client: %w", err)
	}
	return newReranker(client, cfg), nil
}

func newReranker(model llms.Model, cfg Config) *Reranker {
	maxTokens := cfg.MaxTokens
	if maxTokens <= 0 {
		maxTokens = 1024
	}
	return &Reranker{
		model:       model,
		temperature: cfg.Temperature,
		maxTokens:   maxTokens,
	}
}

func (r *Reranker) Rerank(ctx context.Context, query string, candidates []domain.Movie) (string, error) {
	content := []llms.MessageContent{
		llms.TextParts(llms.ChatMessageTypeHuman, prompt.Recommendation(query, candidates)),
	}
	response, err := r.model.GenerateContent(ctx, content,
		llms.WithTemperature(r.temperature),
		llms.WithMaxTokens(r.maxTokens),
		llms.WithJSONMode(),
	)
	if err != nil {
		return "", fmt.Errorf("openai generate: %w", err)
	}
	if response == nil || len(response.Choices) == 0 {
		return "", errors.New("openai generate: no choices returned")
	}
	return strings.TrimSpace(response.Choices[0].Content), nil
}
