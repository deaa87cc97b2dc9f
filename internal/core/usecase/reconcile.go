package usecase

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/kirillkom/movie-recommender/internal/core/domain"
)

// PayloadShape tells which of the accepted re-ranker layouts was decoded.
type PayloadShape string

const (
	ShapeObject PayloadShape = "object"
	ShapeArray  PayloadShape = "array"
)

// RerankPayload is the decoded re-ranker output.
type RerankPayload struct {
	Shape      PayloadShape
	Candidates []domain.Candidate
}

// ParseRerankPayload accepts {"recommendations": [...]} or a bare array of
// {title, reason} objects, optionally wrapped in a fenced code block.
func ParseRerankPayload(raw string) (RerankPayload, error) {
	cleaned := stripCodeFence(raw)
	if cleaned == "" {
		return RerankPayload{}, domain.WrapError(domain.ErrMalformedPayload, "parse rerank payload", fmt.Errorf("empty payload"))
	}

	var (
		items []json.RawMessage
		shape PayloadShape
	)
	switch cleaned[0] {
	case '{':
		var envelope struct {
			Recommendations []json.RawMessage `json:"recommendations"`
		}
		if err := json.Unmarshal([]byte(cleaned), &envelope); err != nil {
			return RerankPayload{}, domain.WrapError(domain.ErrMalformedPayload, "parse rerank payload", err)
		}
		items, shape = envelope.Recommendations, ShapeObject
	case '[':
		if err := json.Unmarshal([]byte(cleaned), &items); err != nil {
			return RerankPayload{}, domain.WrapError(domain.ErrMalformedPayload, "parse rerank payload", err)
		}
		shape = ShapeArray
	default:
		return RerankPayload{}, domain.WrapError(domain.ErrMalformedPayload, "parse rerank payload", fmt.Errorf("unexpected leading %q", cleaned[0]))
	}

	candidates := make([]domain.Candidate, 0, len(items))
	for _, item := range items {
		var fields map[string]any
		if err := json.Unmarshal(item, &fields); err != nil || fields == nil {
			continue
		}
		title := strings.TrimSpace(stringify(fields["title"]))
		if title == "" {
			continue
		}
		candidates = append(candidates, domain.Candidate{
			Title:  title,
			Reason: strings.TrimSpace(stringify(fields["reason"])),
		})
	}
	return RerankPayload{Shape: shape, Candidates: candidates}, nil
}

func stringify(v any) string {
	switch typed := v.(type) {
	case nil:
		return ""
	case string:
		return typed
	default:
		return fmt.Sprint(typed)
	}
}

func stripCodeFence(raw string) string {
	cleaned := strings.TrimSpace(raw)
	if strings.HasPrefix(cleaned, "```") {
		cleaned = strings.TrimPrefix(cleaned, "```")
		if len(cleaned) >= 4 && strings.EqualFold(cleaned[:4], "json") {
			cleaned = cleaned[4:]
		}
	}
	cleaned = strings.TrimSuffix(strings.TrimSpace(cleaned), "```")
	return strings.TrimSpace(cleaned)
}

// Reconcile joins each candidate with the first record whose normalized title
// is contained in the candidate's normalized title. Unmatched candidates keep
// their title and reason with blank details.
func Reconcile(candidates []domain.Candidate, movies []domain.Movie) []domain.Recommendation {
	out := make([]domain.Recommendation, 0, len(candidates))
	for _, candidate := range candidates {
		rec := domain.Recommendation{Title: candidate.Title, Reason: candidate.Reason}
		if movie, ok := matchMovie(candidate.Title, movies); ok {
			rec.Matched = true
			rec.Details = movie
		}
		out = append(out, rec)
	}
	return out
}

func matchMovie(title string, movies []domain.Movie) (domain.Movie, bool) {
	needle := domain.NormalizeKey(title)
	if needle == "" {
		return domain.Movie{}, false
	}
	for _, movie := range movies {
		candidate := domain.NormalizeKey(movie.Title)
		if candidate == "" {
			continue
		}
		if strings.Contains(needle, candidate) {
			return movie, true
		}
	}
	return domain.Movie{}, false
}
