package usecase

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"

	"github.com/kirillkom/movie-recommender/internal/core/domain"
)

type webSearcherFake struct {
	mu      sync.Mutex
	queries []string
	hits    map[string][]domain.SearchSnippet
	failFor string
}

func (f *webSearcherFake) Search(_ context.Context, query string) ([]domain.SearchSnippet, error) {
	f.mu.Lock()
	f.queries = append(f.queries, query)
	f.mu.Unlock()
	if f.failFor != "" && strings.Contains(query, f.failFor) {
		return nil, errors.New("status 500")
	}
	for title, hits := range f.hits {
		if strings.Contains(query, " "+title+" movie") {
			return hits, nil
		}
	}
	return nil, nil
}

func TestOfferSearchQueryStripsReleaseSuffix(t *testing.T) {
	for _, title := range []string{"Inception (2010)", "Inception (2010-07)", "Inception (2010-07-15)", "Inception"} {
		got := OfferSearchQuery(title)
		want := "buy rent stream Inception movie site:justwatch.com OR site:amazon.com OR site:apple.com OR site:google.com/movies"
		if got != want {
			t.Fatalf("OfferSearchQuery(%q) = %q", title, got)
		}
	}
}

func TestExtractPrices(t *testing.T) {
	tests := []struct {
		snippet string
		rent    string
		buy     string
	}{
		{snippet: "$3.99 rent or $14.99 buy in HD", rent: "$3.99", buy: "$14.99"},
		{snippet: "Rent it for $2.99 or own it for $9.99", rent: "$2.99", buy: "$9.99"},
		{snippet: "Only $5 today", rent: "$5", buy: ""},
		{snippet: "$4.99 RENT", rent: "$4.99", buy: ""},
		{snippet: "", rent: "", buy: ""},
	}
	for _, tt := range tests {
		rent, buy := ExtractPrices(tt.snippet)
		if rent != tt.rent || buy != tt.buy {
			t.Errorf("ExtractPrices(%q) = (%q, %q), want (%q, %q)", tt.snippet, rent, buy, tt.rent, tt.buy)
		}
	}
}

func TestDetectFormat(t *testing.T) {
	tests := map[string]domain.OfferFormat{
		"Stream Inception in 4K":      domain.FormatStreaming,
		"Buy the digital copy":        domain.FormatStreaming,
		"Inception DVD edition":       domain.FormatDVD,
		"Inception Blu-ray + extras":  domain.FormatBluRay,
		"Inception bluray steelbook":  domain.FormatBluRay,
		"A film by Christopher Nolan": domain.FormatUnknown,
	}
	for snippet, want := range tests {
		if got := DetectFormat(snippet); got != want {
			t.Errorf("DetectFormat(%q) = %s, want %s", snippet, got, want)
		}
	}
}

func TestDetectPlatform(t *testing.T) {
	tests := []struct {
		hit  domain.SearchSnippet
		want string
	}{
		{hit: domain.SearchSnippet{Title: "Watch Inception | Netflix"}, want: "Netflix"},
		{hit: domain.SearchSnippet{Snippet: "Available on Apple TV from $3.99"}, want: "Apple TV"},
		{hit: domain.SearchSnippet{Snippet: "see amazon.com listing"}, want: "Amazon"},
		{hit: domain.SearchSnippet{Title: "Inception", Link: "https://www.primevideo.com/detail/0ABC"}, want: "Amazon"},
		{hit: domain.SearchSnippet{Title: "Inception", Link: "https://play.google.com/store/movies/details?id=x"}, want: "Google Play"},
		{hit: domain.SearchSnippet{Title: "Inception - JustWatch", Link: "https://www.justwatch.com/us/movie/inception"}, want: ""},
		{hit: domain.SearchSnippet{Title: "Inception", Link: "::not a url"}, want: ""},
	}
	for _, tt := range tests {
		if got := DetectPlatform(tt.hit); got != tt.want {
			t.Errorf("DetectPlatform(%+v) = %q, want %q", tt.hit, got, tt.want)
		}
	}
}

func TestExtractOffersDropsHitsWithoutPlatform(t *testing.T) {
	offers := ExtractOffers([]domain.SearchSnippet{
		{Title: "Inception - JustWatch", Snippet: "Where to watch", Link: "https://www.justwatch.com/us/movie/inception"},
		{Title: "Inception - Prime Video", Snippet: "$3.99 rent $14.99 buy. Stream now", Link: "https://www.amazon.com/dp/B0047WJ11G"},
	})
	if len(offers) != 1 {
		t.Fatalf("expected one offer, got %+v", offers)
	}
	got := offers[0]
	if got.Rank != 2 || got.Platform != "Amazon" || got.Format != domain.FormatStreaming {
		t.Fatalf("unexpected offer %+v", got)
	}
	if got.Costs != "$3.99, $14.99" {
		t.Fatalf("unexpected costs %q", got.Costs)
	}
}

func TestOfferUseCaseFailureIsolatedPerTitle(t *testing.T) {
	searcher := &webSearcherFake{
		failFor: "Titanic",
		hits: map[string][]domain.SearchSnippet{
			"Inception": {{Title: "Inception on Netflix", Snippet: "Stream now", Link: "https://www.netflix.com/title/70131314"}},
		},
	}
	uc := NewOfferUseCase(searcher, goroutinePool{}, 0)

	got := uc.OffersForTitles(context.Background(), []string{"Inception (2010)", "Titanic (1997)"})
	if len(got) != 2 {
		t.Fatalf("expected 2 entries, got %d", len(got))
	}
	if got[0].Title != "Inception (2010)" || len(got[0].Offers) != 1 || got[0].Offers[0].Platform != "Netflix" {
		t.Fatalf("unexpected offers for Inception: %+v", got[0])
	}
	if got[1].Title != "Titanic (1997)" || got[1].Offers == nil || len(got[1].Offers) != 0 {
		t.Fatalf("expected empty offers for failing title, got %+v", got[1])
	}
}

func TestOfferUseCaseAttachOffers(t *testing.T) {
	searcher := &webSearcherFake{hits: map[string][]domain.SearchSnippet{
		"Inception": {{Title: "Inception | Apple TV", Snippet: "$4.99 rent"}},
	}}
	uc := NewOfferUseCase(searcher, nil, 0)
	recs := []domain.Recommendation{{Title: "Inception (2010)"}, {Title: "Unknown"}}
	uc.AttachOffers(context.Background(), recs)

	if len(recs[0].Offers) != 1 || recs[0].Offers[0].Rent != "$4.99" {
		t.Fatalf("unexpected offers %+v", recs[0].Offers)
	}
	if len(recs[1].Offers) != 0 {
		t.Fatalf("expected no offers for unknown title")
	}
}
