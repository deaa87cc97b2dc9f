package domain

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"

	"github.com/google/uuid"
)

// Movie is the unit of retrieval. Attribute values keep their original case;
// normalization happens only when a value is used as an index key.
type Movie struct {
	Title               string   `json:"title"`
	Genres              []string `json:"genres"`
	Director            string   `json:"director,omitempty"`
	Actors              []string `json:"actors"`
	ProductionCompanies []string `json:"production_companies"`
	ReleaseDate         string   `json:"release_date"`
	Rating              float64  `json:"rating"`
	Popularity          float64  `json:"popularity"`
	Runtime             int      `json:"runtime"`
	Overview            string   `json:"overview"`
}

// Key identifies a movie across indexes, vector entries and result sets.
// Titles alone collide (remakes), so the release date is part of the key.
func (m Movie) Key() string {
	return m.Title + "_" + m.ReleaseDate
}

// VectorID is the deterministic vector-store id derived from Key, so repeated
// rebuilds overwrite instead of duplicating entries.
func (m Movie) VectorID() string {
	return uuid.NewSHA1(uuid.NameSpaceURL, []byte(m.Key())).String()
}

// ReleaseYear returns the leading year component of the release date, or ""
// when the date does not start with a 4-digit year.
func (m Movie) ReleaseYear() string {
	year, _, _ := strings.Cut(strings.TrimSpace(m.ReleaseDate), "-")
	if len(year) != 4 {
		return ""
	}
	if _, err := strconv.Atoi(year); err != nil {
		return ""
	}
	return year
}

// EmbeddingText is the source text used to embed a movie into the vector store.
func (m Movie) EmbeddingText() string {
	var b strings.Builder
	fmt.Fprintf(&b, "Title: %s\n", m.Title)
	fmt.Fprintf(&b, "Overview: %s\n", m.Overview)
	fmt.Fprintf(&b, "Genres: %s\n", strings.Join(m.Genres, ", "))
	fmt.Fprintf(&b, "Release Date: %s\n", m.ReleaseDate)
	fmt.Fprintf(&b, "Rating: %s\n", formatNumber(m.Rating))
	fmt.Fprintf(&b, "Popularity: %s\n", formatNumber(m.Popularity))
	fmt.Fprintf(&b, "Director: %s\n", m.Director)
	fmt.Fprintf(&b, "Actors: %s\n", strings.Join(m.Actors, ", "))
	fmt.Fprintf(&b, "Production Companies: %s\n", strings.Join(m.ProductionCompanies, ", "))
	fmt.Fprintf(&b, "Runtime: %d", m.Runtime)
	return b.String()
}

// UnmarshalJSON accepts catalogs where numeric fields were written as
// placeholders such as "N/A"; those decode to zero.
func (m *Movie) UnmarshalJSON(data []byte) error {
	type movieAlias Movie
	var raw struct {
		movieAlias
		Rating     json.RawMessage `json:"rating"`
		Popularity json.RawMessage `json:"popularity"`
		Runtime    json.RawMessage `json:"runtime"`
	}
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	*m = Movie(raw.movieAlias)
	m.Rating = parseLooseNumber(raw.Rating)
	m.Popularity = parseLooseNumber(raw.Popularity)
	m.Runtime = int(parseLooseNumber(raw.Runtime))
	return nil
}

func parseLooseNumber(raw json.RawMessage) float64 {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 || bytes.Equal(raw, []byte("null")) {
		return 0
	}
	var n float64
	if err := json.Unmarshal(raw, &n); err == nil {
		return n
	}
	var s string
	if err := json.Unmarshal(raw, &s); err != nil {
		return 0
	}
	n, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
	if err != nil {
		return 0
	}
	return n
}

func formatNumber(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}

// NormalizeKey lowercases, trims and collapses inner whitespace so that index
// keys and captured clause values compare equal.
func NormalizeKey(s string) string {
	return strings.Join(strings.Fields(strings.ToLower(s)), " ")
}

// MoviePage is one page of the catalog listing.
type MoviePage struct {
	Movies []Movie `json:"movies"`
	Total  int     `json:"total"`
	Offset int     `json:"offset"`
	Limit  int     `json:"limit"`
}
