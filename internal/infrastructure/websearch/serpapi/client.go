// Package serpapi returns Google organic results through SerpAPI.
package serpapi

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/kirillkom/movie-recommender/internal/core/domain"
	"github.com/kirillkom/movie-recommender/internal/infrastructure/resilience"
)

const (
	DefaultBaseURL = "https://serpapi.com/search"
	resultCount    = 10
)

type Client struct {
	baseURL    string
	apiKey     string
	location   string
	httpClient *http.Client
}

func New(baseURL, apiKey, location string) *Client {
	baseURL = strings.TrimSpace(baseURL)
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	return &Client{
		baseURL:    baseURL,
		apiKey:     apiKey,
		location:   location,
		httpClient: &http.Client{Timeout: 20 * time.Second},
	}
}

// Search runs one query without retries. Any non-2xx status is an error.
func (c *Client) Search(ctx context.Context, query string) ([]domain.SearchSnippet, error) {
	params := url.Values{
		"engine":  {"google"},
		"q":       {query},
		"api_key": {c.apiKey},
		"num":     {strconv.Itoa(resultCount)},
	}
	if c.location != "" {
		params.Set("location", c.location)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"?"+params.Encode(), nil)
	if err != nil {
		return nil, fmt.Errorf("create search request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("serpapi search request: %w", redactKey(err))
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, resilience.NewHTTPStatusError("serpapi", "search", resp)
	}

	var body struct {
		OrganicResults []struct {
			Title   string `json:"title"`
			Snippet string `json:"snippet"`
			Link    string `json:"link"`
		} `json:"organic_results"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return nil, fmt.Errorf("decode search response: %w", err)
	}

	out := make([]domain.SearchSnippet, 0, len(body.OrganicResults))
	for _, r := range body.OrganicResults {
		out = append(out, domain.SearchSnippet{Title: r.Title, Snippet: r.Snippet, Link: r.Link})
	}
	return out, nil
}

// redactKey drops api_key from the URL that net/http embeds in transport errors.
func redactKey(err error) error {
	var urlErr *url.Error
	if !errors.As(err, &urlErr) {
		return err
	}
	parsed, parseErr := url.Parse(urlErr.URL)
	if parseErr != nil {
		return &url.Error{Op: urlErr.Op, URL: "<redacted>", Err: urlErr.Err}
	}
	query := parsed.Query()
	query.Del("api_key")
	parsed.RawQuery = query.Encode()
	return &url.Error{Op: urlErr.Op, URL: parsed.String(), Err: urlErr.Err}
}
