package openai

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/tmc/langchaingo/llms"

	"github.com/kirillkom/movie-recommender/internal/core/domain"
)

type modelFake struct {
	messages []llms.MessageContent
	options  llms.CallOptions
	content  string
	err      error
}

func (f *modelFake) GenerateContent(_ context.Context, messages []llms.MessageContent, options ...llms.CallOption) (*llms.ContentResponse, error) {
	f.messages = messages
	for _, opt := range options {
		opt(&f.options)
	}
	if f.err != nil {
		return nil, f.err
	}
	return &llms.ContentResponse{Choices: []*llms.ContentChoice{{Content: f.content}}}, nil
}

func (f *modelFake) Call(ctx context.Context, prompt string, options ...llms.CallOption) (string, error) {
	return llms.GenerateFromSinglePrompt(ctx, f, prompt, options...)
}

func TestRerankerUsesJSONMode(t *testing.T) {
	model := &modelFake{content: "\n[{\"title\":\"Inception\",\"reason\":\"dreams\"}]\n"}
	reranker := newReranker(model, Config{Temperature: 0.7})

	raw, err := reranker.Rerank(context.Background(), "dream heist", []domain.Movie{{Title: "Inception"}})
	if err != nil {
		t.Fatalf("Rerank() error = %v", err)
	}
	if raw != `[{"title":"Inception","reason":"dreams"}]` {
		t.Fatalf("unexpected payload %q", raw)
	}
	if !model.options.JSONMode || model.options.Temperature != 0.7 || model.options.MaxTokens != 1024 {
		t.Fatalf("unexpected call options %+v", model.options)
	}
	if len(model.messages) != 1 || model.messages[0].Role != llms.ChatMessageTypeHuman {
		t.Fatalf("expected one human message, got %+v", model.messages)
	}
	text, _ := model.messages[0].Parts[0].(llms.TextContent)
	if !strings.Contains(text.Text, "dream heist") {
		t.Fatalf("prompt does not carry the query: %s", text.Text)
	}
}

func TestRerankerPropagatesModelError(t *testing.T) {
	reranker := newReranker(&modelFake{err: errors.New("rate limited")}, Config{})
	if _, err := reranker.Rerank(context.Background(), "q", nil); err == nil || !strings.Contains(err.Error(), "rate limited") {
		t.Fatalf("expected model error, got %v", err)
	}
}
