package usecase

import "github.com/kirillkom/movie-recommender/internal/core/domain"

func dedupeByKey(movies []domain.Movie) []domain.Movie {
	if len(movies) == 0 {
		return nil
	}
	seen := make(map[string]struct{}, len(movies))
	out := make([]domain.Movie, 0, len(movies))
	for _, movie := range movies {
		key := movie.Key()
		if _, ok := seen[key]; ok {
			continue
		}
		seen[key] = struct{}{}
		out = append(out, movie)
	}
	return out
}

// intersectByKey keeps the movies of the first set that appear in every other
// set. Membership is decided on Movie.Key, so structurally equal records from
// different backends compare equal. Output order follows the first set.
func intersectByKey(sets [][]domain.Movie) []domain.Movie {
	if len(sets) == 0 {
		return nil
	}
	out := dedupeByKey(sets[0])
	for _, other := range sets[1:] {
		if len(out) == 0 {
			return nil
		}
		members := make(map[string]struct{}, len(other))
		for _, movie := range other {
			members[movie.Key()] = struct{}{}
		}
		kept := out[:0:0]
		for _, movie := range out {
			if _, ok := members[movie.Key()]; ok {
				kept = append(kept, movie)
			}
		}
		out = kept
	}
	if len(out) == 0 {
		return nil
	}
	return out
}

func truncateMovies(movies []domain.Movie, limit int) []domain.Movie {
	if limit <= 0 || len(movies) <= limit {
		return movies
	}
	return movies[:limit]
}
