// Package tmdb pulls the movie catalog from The Movie Database API.
package tmdb

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"slices"
	"strconv"
	"strings"
	"time"

	"github.com/kirillkom/movie-recommender/internal/core/domain"
	"github.com/kirillkom/movie-recommender/internal/infrastructure/resilience"
)

const (
	DefaultBaseURL = "https://api.themoviedb.org/3"
	topCastSize    = 5
)

type Config struct {
	BaseURL           string
	Token             string
	RequestsPerSecond float64
	Burst             int
}

type Client struct {
	baseURL    string
	token      string
	httpClient *http.Client
	limiter    *RateLimiter
	executor   *resilience.Executor
}

func New(cfg Config, executor *resilience.Executor) *Client {
	baseURL := strings.TrimRight(strings.TrimSpace(cfg.BaseURL), "/")
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	if executor == nil {
		executor = resilience.NewExecutor(resilience.DefaultConfig())
	}
	return &Client{
		baseURL:    baseURL,
		token:      cfg.Token,
		httpClient: &http.Client{Timeout: 30 * time.Second},
		limiter:    NewRateLimiter(cfg.RequestsPerSecond, cfg.Burst),
		executor:   executor,
	}
}

type genre struct {
	ID   int    `json:"id"`
	Name string `json:"name"`
}

type discoverResult struct {
	ID          int     `json:"id"`
	Title       string  `json:"title"`
	ReleaseDate string  `json:"release_date"`
	VoteAverage float64 `json:"vote_average"`
	Overview    string  `json:"overview"`
}

type movieDetails struct {
	Runtime             int     `json:"runtime"`
	Popularity          float64 `json:"popularity"`
	ProductionCompanies []struct {
		Name string `json:"name"`
	} `json:"production_companies"`
}

type movieCredits struct {
	Cast []struct {
		Name string `json:"name"`
	} `json:"cast"`
	Crew []struct {
		Name string `json:"name"`
		Job  string `json:"job"`
	} `json:"crew"`
}

// FetchMovies discovers up to maxPages pages per genre, merges results by
// TMDB id (collecting every genre a movie appeared under) and enriches each
// movie with details and credits.
func (c *Client) FetchMovies(ctx context.Context, maxPages int) ([]domain.Movie, error) {
	if maxPages <= 0 {
		maxPages = 1
	}
	genres, err := c.genres(ctx)
	if err != nil {
		return nil, err
	}

	var order []int
	byID := make(map[int]*domain.Movie)
	for _, g := range genres {
		for page := 1; page <= maxPages; page++ {
			results, err := c.discover(ctx, g.ID, page)
			if err != nil {
				if ctx.Err() != nil {
					return nil, ctx.Err()
				}
				slog.Warn("tmdb_discover_failed", "genre", g.Name, "page", page, "error", err)
				break
			}
			for _, r := range results {
				if existing, ok := byID[r.ID]; ok {
					if !slices.Contains(existing.Genres, g.Name) {
						existing.Genres = append(existing.Genres, g.Name)
					}
					continue
				}
				byID[r.ID] = &domain.Movie{
					Title:       r.Title,
					Genres:      []string{g.Name},
					ReleaseDate: r.ReleaseDate,
					Rating:      r.VoteAverage,
					Overview:    r.Overview,
				}
				order = append(order, r.ID)
			}
			if len(results) == 0 {
				break
			}
		}
	}
	slog.Info("tmdb_discover_done", "genres", len(genres), "movies", len(order))

	movies := make([]domain.Movie, 0, len(order))
	for _, id := range order {
		movie := byID[id]
		if err := c.enrich(ctx, id, movie); err != nil {
			if ctx.Err() != nil {
				return nil, ctx.Err()
			}
			slog.Warn("tmdb_enrich_failed", "id", id, "title", movie.Title, "error", err)
		}
		movies = append(movies, *movie)
	}
	return movies, nil
}

func (c *Client) genres(ctx context.Context) ([]genre, error) {
	var out struct {
		Genres []genre `json:"genres"`
	}
	if err := c.getJSON(ctx, "genres", "/genre/movie/list", url.Values{"language": {"en"}}, &out); err != nil {
		return nil, fmt.Errorf("fetch genres: %w", err)
	}
	return out.Genres, nil
}

func (c *Client) discover(ctx context.Context, genreID, page int) ([]discoverResult, error) {
	query := url.Values{
		"with_genres": {strconv.Itoa(genreID)},
		"language":    {"en-US"},
		"page":        {strconv.Itoa(page)},
	}
	var out struct {
		Results []discoverResult `json:"results"`
	}
	if err := c.getJSON(ctx, "discover", "/discover/movie", query, &out); err != nil {
		return nil, err
	}
	return out.Results, nil
}

// enrich fills details and credits. Each part is best effort.
func (c *Client) enrich(ctx context.Context, id int, movie *domain.Movie) error {
	var errs []error

	var details movieDetails
	if err := c.getJSON(ctx, "details", "/movie/"+strconv.Itoa(id), url.Values{"language": {"en-US"}}, &details); err != nil {
		errs = append(errs, fmt.Errorf("details: %w", err))
	} else {
		movie.Runtime = details.Runtime
		movie.Popularity = details.Popularity
		movie.ProductionCompanies = make([]string, 0, len(details.ProductionCompanies))
		for _, company := range details.ProductionCompanies {
			movie.ProductionCompanies = append(movie.ProductionCompanies, company.Name)
		}
	}

	var credits movieCredits
	if err := c.getJSON(ctx, "credits", "/movie/"+strconv.Itoa(id)+"/credits", nil, &credits); err != nil {
		errs = append(errs, fmt.Errorf("credits: %w", err))
	} else {
		movie.Actors = make([]string, 0, topCastSize)
		for i, member := range credits.Cast {
			if i == topCastSize {
				break
			}
			movie.Actors = append(movie.Actors, member.Name)
		}
		for _, member := range credits.Crew {
			if member.Job == "Director" {
				movie.Director = member.Name
				break
			}
		}
	}
	return errors.Join(errs...)
}

func (c *Client) getJSON(ctx context.Context, operation, path string, query url.Values, out any) error {
	return c.executor.Execute(ctx, "tmdb."+operation, func(ctx context.Context) error {
		if err := c.limiter.Wait(ctx); err != nil {
			return err
		}
		endpoint := c.baseURL + path
		if len(query) > 0 {
			endpoint += "?" + query.Encode()
		}
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
		if err != nil {
			return fmt.Errorf("create %s request: %w", operation, err)
		}
		req.Header.Set("Accept", "application/json")
		req.Header.Set("Authorization", "Bearer "+c.token)

		resp, err := c.httpClient.Do(req)
		if err != nil {
			return fmt.Errorf("tmdb %s request: %w", operation, err)
		}
		defer resp.Body.Close()

		if resp.StatusCode >= 300 {
			statusErr := resilience.NewHTTPStatusError("tmdb", operation, resp)
			if resp.StatusCode == http.StatusTooManyRequests && statusErr.RetryAfter > 0 {
				c.limiter.RecordRateLimit(statusErr.RetryAfter)
			}
			return statusErr
		}
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			return fmt.Errorf("decode %s response: %w", operation, err)
		}
		return nil
	}, resilience.ClassifyHTTP)
}
