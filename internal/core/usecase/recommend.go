package usecase

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/kirillkom/movie-recommender/internal/core/domain"
	"github.com/kirillkom/movie-recommender/internal/core/ports"
)

const defaultRerankTimeout = 60 * time.Second

// RecommendUseCase runs the planner, hands the candidates to the re-ranker and
// reconciles the model's picks back to catalog records.
type RecommendUseCase struct {
	searcher ports.MovieSearcher
	reranker ports.Reranker
	timeout  time.Duration
}

func NewRecommendUseCase(
	searcher ports.MovieSearcher,
	reranker ports.Reranker,
	timeout time.Duration,
) *RecommendUseCase {
	if timeout <= 0 {
		timeout = defaultRerankTimeout
	}
	return &RecommendUseCase{
		searcher: searcher,
		reranker: reranker,
		timeout:  timeout,
	}
}

func (uc *RecommendUseCase) Recommend(ctx context.Context, query string, limit int) (*domain.RecommendationResult, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return nil, domain.WrapError(domain.ErrInvalidInput, "recommend", fmt.Errorf("query is required"))
	}

	found, err := uc.searcher.Search(ctx, query, limit)
	if err != nil {
		return nil, fmt.Errorf("search candidates: %w", err)
	}

	result := &domain.RecommendationResult{
		Query:           query,
		Candidates:      found.Movies,
		Recommendations: []domain.Recommendation{},
	}
	if len(found.Movies) == 0 {
		return result, nil
	}

	rerankCtx, cancel := context.WithTimeout(ctx, uc.timeout)
	defer cancel()

	raw, err := uc.reranker.Rerank(rerankCtx, query, found.Movies)
	if err != nil {
		return nil, domain.WrapError(domain.ErrUpstream, "rerank candidates", err)
	}

	payload, err := ParseRerankPayload(raw)
	if err != nil {
		slog.Warn("rerank_payload_malformed",
			"query", query,
			"error", err,
			"payload_preview", preview(raw, 256),
		)
		return result, nil
	}

	result.Recommendations = Reconcile(payload.Candidates, found.Movies)
	slog.Info("recommendations_reconciled",
		"query", query,
		"shape", payload.Shape,
		"candidates", len(found.Movies),
		"recommendations", len(result.Recommendations),
	)
	return result, nil
}

func preview(s string, n int) string {
	if len(s) <= n {
		return s
	}
	for n > 0 && !utf8.RuneStart(s[n]) {
		n--
	}
	return s[:n] + "..."
}
