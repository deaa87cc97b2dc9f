package usecase

import (
	"net/url"
	"regexp"
	"strings"

	"golang.org/x/net/publicsuffix"

	"github.com/kirillkom/movie-recommender/internal/core/domain"
)

var (
	releaseSuffixPattern = regexp.MustCompile(`\s*\(\d{4}(-\d{2}){0,2}\)`)
	rentPricePattern     = regexp.MustCompile(`(?i)(\$\d+(?:\.\d{1,2})?)\s*rent`)
	buyPricePattern      = regexp.MustCompile(`(?i)(\$\d+(?:\.\d{1,2})?)\s*buy`)
	anyPricePattern      = regexp.MustCompile(`\$\d+(?:\.\d{1,2})?`)
	streamingPattern     = regexp.MustCompile(`(?i)\bstream|digital\b`)
	dvdPattern           = regexp.MustCompile(`(?i)\bDVD\b`)
	bluRayPattern        = regexp.MustCompile(`(?i)\bBlu[- ]?ray\b`)
)

var offerPlatforms = []string{"Netflix", "Amazon", "Apple TV", "Google Play", "Disney+", "HBO Max", "YouTube"}

// platformDomains maps registrable domains of result links to platforms.
var platformDomains = map[string]string{
	"netflix.com":    "Netflix",
	"amazon.com":     "Amazon",
	"primevideo.com": "Amazon",
	"apple.com":      "Apple TV",
	"google.com":     "Google Play",
	"disneyplus.com": "Disney+",
	"hbomax.com":     "HBO Max",
	"max.com":        "HBO Max",
	"youtube.com":    "YouTube",
}

// CleanOfferTitle drops a trailing "(YYYY)", "(YYYY-MM)" or "(YYYY-MM-DD)".
func CleanOfferTitle(title string) string {
	return strings.TrimSpace(releaseSuffixPattern.ReplaceAllString(title, ""))
}

// OfferSearchQuery is the web-search string used to find offers for title.
func OfferSearchQuery(title string) string {
	return "buy rent stream " + CleanOfferTitle(title) +
		" movie site:justwatch.com OR site:amazon.com OR site:apple.com OR site:google.com/movies"
}

// ExtractPrices returns labelled rent/buy prices, falling back to the first
// and second dollar amounts in the snippet.
func ExtractPrices(snippet string) (rent, buy string) {
	if snippet == "" {
		return "", ""
	}
	if m := rentPricePattern.FindStringSubmatch(snippet); m != nil {
		rent = m[1]
	}
	if m := buyPricePattern.FindStringSubmatch(snippet); m != nil {
		buy = m[1]
	}
	all := anyPricePattern.FindAllString(snippet, 2)
	if rent == "" && len(all) >= 1 {
		rent = all[0]
	}
	if buy == "" && len(all) >= 2 {
		buy = all[1]
	}
	return rent, buy
}

func DetectFormat(snippet string) domain.OfferFormat {
	switch {
	case streamingPattern.MatchString(snippet):
		return domain.FormatStreaming
	case dvdPattern.MatchString(snippet):
		return domain.FormatDVD
	case bluRayPattern.MatchString(snippet):
		return domain.FormatBluRay
	default:
		return domain.FormatUnknown
	}
}

// DetectPlatform checks the keyword list against title and snippet, then
// falls back to the registrable domain of the result link.
func DetectPlatform(hit domain.SearchSnippet) string {
	combined := strings.ToLower(hit.Title + " " + hit.Snippet)
	for _, platform := range offerPlatforms {
		if strings.Contains(combined, strings.ToLower(platform)) {
			return platform
		}
	}
	if strings.Contains(combined, "amazon.com") {
		return "Amazon"
	}
	return platformFromLink(hit.Link)
}

func platformFromLink(link string) string {
	if link == "" {
		return ""
	}
	parsed, err := url.Parse(link)
	if err != nil || parsed.Hostname() == "" {
		return ""
	}
	registrable, err := publicsuffix.EffectiveTLDPlusOne(strings.ToLower(parsed.Hostname()))
	if err != nil {
		return ""
	}
	return platformDomains[registrable]
}

// ExtractOffers converts ranked snippets into offers, dropping hits without a
// recognizable platform. Rank is the 1-based position in the search results.
func ExtractOffers(hits []domain.SearchSnippet) []domain.Offer {
	offers := make([]domain.Offer, 0, len(hits))
	for i, hit := range hits {
		platform := DetectPlatform(hit)
		if platform == "" {
			continue
		}
		rent, buy := ExtractPrices(hit.Snippet)
		offers = append(offers, domain.Offer{
			Rank:     i + 1,
			Title:    hit.Title,
			Platform: platform,
			Format:   DetectFormat(hit.Snippet),
			Rent:     rent,
			Buy:      buy,
			Costs:    joinNonEmpty(", ", rent, buy),
			URL:      hit.Link,
		})
	}
	return offers
}

func joinNonEmpty(sep string, values ...string) string {
	kept := make([]string, 0, len(values))
	for _, v := range values {
		if v != "" {
			kept = append(kept, v)
		}
	}
	return strings.Join(kept, sep)
}
