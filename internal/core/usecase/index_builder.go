package usecase

import "github.com/kirillkom/movie-recommender/internal/core/domain"

// BuildIndexes derives the five inverted indexes from a catalog. Each movie is
// recorded at most once per distinct normalized value of a facet.
func BuildIndexes(movies []domain.Movie) *domain.IndexSet {
	set := domain.NewIndexSet()
	for _, movie := range dedupeByKey(movies) {
		addValues(set.Facet(domain.FacetActor), movie, movie.Actors)
		addValues(set.Facet(domain.FacetGenre), movie, movie.Genres)
		addValues(set.Facet(domain.FacetCompany), movie, movie.ProductionCompanies)
		addValues(set.Facet(domain.FacetDirector), movie, []string{movie.Director})
		if year := movie.ReleaseYear(); year != "" {
			set.Facet(domain.FacetYear).Add(year, movie)
		}
	}
	return set
}

func addValues(index *domain.InvertedIndex, movie domain.Movie, values []string) {
	seen := make(map[string]struct{}, len(values))
	for _, value := range values {
		key := domain.NormalizeKey(value)
		if key == "" {
			continue
		}
		if _, ok := seen[key]; ok {
			continue
		}
		seen[key] = struct{}{}
		index.Add(key, movie)
	}
}
