package usecase

import (
	"context"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/kirillkom/movie-recommender/internal/core/domain"
	"github.com/kirillkom/movie-recommender/internal/core/ports"
)

const defaultOfferTimeout = 15 * time.Second

// OfferUseCase annotates titles with purchase and streaming offers found via
// web search. Failures degrade to an empty list for the affected title.
type OfferUseCase struct {
	searcher ports.WebSearcher
	pool     ports.TaskPool
	timeout  time.Duration
}

func NewOfferUseCase(searcher ports.WebSearcher, pool ports.TaskPool, timeout time.Duration) *OfferUseCase {
	if timeout <= 0 {
		timeout = defaultOfferTimeout
	}
	return &OfferUseCase{
		searcher: searcher,
		pool:     pool,
		timeout:  timeout,
	}
}

func (uc *OfferUseCase) Offers(ctx context.Context, title string) []domain.Offer {
	if uc.searcher == nil || strings.TrimSpace(title) == "" {
		return []domain.Offer{}
	}
	searchCtx, cancel := context.WithTimeout(ctx, uc.timeout)
	defer cancel()

	hits, err := uc.searcher.Search(searchCtx, OfferSearchQuery(title))
	if err != nil {
		slog.Warn("offer_search_failed", "title", title, "error", err)
		return []domain.Offer{}
	}
	return ExtractOffers(hits)
}

// OffersForTitles looks titles up concurrently; output order follows input.
func (uc *OfferUseCase) OffersForTitles(ctx context.Context, titles []string) []domain.TitleOffers {
	out := make([]domain.TitleOffers, len(titles))
	var wg sync.WaitGroup
	for i, title := range titles {
		task := func() {
			defer wg.Done()
			out[i] = domain.TitleOffers{Title: title, Offers: uc.Offers(ctx, title)}
		}
		wg.Add(1)
		if uc.pool == nil {
			go task()
			continue
		}
		if err := uc.pool.Submit(task); err != nil {
			task()
		}
	}
	wg.Wait()
	return out
}

// AttachOffers fills the Offers field of each recommendation in place.
func (uc *OfferUseCase) AttachOffers(ctx context.Context, recs []domain.Recommendation) {
	titles := make([]string, len(recs))
	for i, rec := range recs {
		titles[i] = rec.Title
	}
	for i, found := range uc.OffersForTitles(ctx, titles) {
		recs[i].Offers = found.Offers
	}
}
