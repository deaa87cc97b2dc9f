package domain

type OfferFormat string

const (
	FormatStreaming OfferFormat = "Streaming"
	FormatDVD       OfferFormat = "DVD"
	FormatBluRay    OfferFormat = "Blu-ray"
	FormatUnknown   OfferFormat = "Unknown"
)

// SearchSnippet is one organic web-search hit.
type SearchSnippet struct {
	Title   string `json:"title"`
	Snippet string `json:"snippet"`
	Link    string `json:"link"`
}

// Offer is a platform/price signal extracted from a search snippet.
type Offer struct {
	Rank     int         `json:"rank"`
	Title    string      `json:"title"`
	Platform string      `json:"platform"`
	Format   OfferFormat `json:"format"`
	Rent     string      `json:"rent,omitempty"`
	Buy      string      `json:"buy,omitempty"`
	Costs    string      `json:"costs,omitempty"`
	URL      string      `json:"url,omitempty"`
}

// TitleOffers pairs a movie title with the offers found for it.
type TitleOffers struct {
	Title  string  `json:"title"`
	Offers []Offer `json:"offers"`
}
