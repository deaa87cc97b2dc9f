package prompt

import (
	"fmt"
	"strings"

	"github.com/kirillkom/movie-recommender/internal/core/domain"
)

const maxOverviewChars = 600

// Recommendation builds the re-ranking prompt for a query and its candidate
// movies. Both generator backends send the same text.
func Recommendation(query string, candidates []domain.Movie) string {
	return fmt.Sprintf(`You are a movie expert helping a user find the best movie based on their query.

User query: %q

Here are some candidate movies:
%s

Respond with only valid JSON. Only recommend movies from the candidate list and only when they match the query.
You can use release date, director and rating to rank them. If nothing matches, return an empty list.
Use this exact format:

{
  "recommendations": [
    {
      "title": "Movie Title",
      "reason": "Why this movie fits the query and a short plot summary."
    }
  ]
}
`, query, formatCandidates(candidates))
}

func formatCandidates(movies []domain.Movie) string {
	if len(movies) == 0 {
		return "No movies found."
	}
	blocks := make([]string, 0, len(movies))
	for i, m := range movies {
		overview := m.Overview
		if len(overview) > maxOverviewChars {
			overview = overview[:maxOverviewChars] + "..."
		}
		blocks = append(blocks, fmt.Sprintf(
			"%d. Title: %s\n   Release: %s\n   Genres: %s\n   Director: %s\n   Cast: %s\n   Rating: %s\n   Overview: %s",
			i+1,
			orUnknown(m.Title, "Unknown Title"),
			orUnknown(m.ReleaseDate, "Unknown Date"),
			orUnknown(strings.Join(m.Genres, ", "), "Unknown Genre"),
			orUnknown(m.Director, "Unknown Director"),
			orUnknown(strings.Join(m.Actors, ", "), "Unknown Cast"),
			formatRating(m.Rating),
			overview,
		))
	}
	return strings.Join(blocks, "\n\n")
}

func orUnknown(value, fallback string) string {
	if strings.TrimSpace(value) == "" {
		return fallback
	}
	return value
}

func formatRating(rating float64) string {
	if rating <= 0 {
		return "Unrated"
	}
	return fmt.Sprintf("%.1f", rating)
}
