package qdrant

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/kirillkom/movie-recommender/internal/core/domain"
	"github.com/kirillkom/movie-recommender/internal/infrastructure/resilience"
)

// Client stores one point per movie in a Qdrant collection over the REST API.
type Client struct {
	baseURL    string
	collection string
	httpClient *http.Client
	executor   *resilience.Executor

	ensureMu          sync.Mutex
	ensuredCollection bool
	ensuredVectorSize int
}

func New(baseURL, collection string, executor *resilience.Executor) *Client {
	if executor == nil {
		executor = resilience.NewExecutor(resilience.DefaultConfig())
	}
	return &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		collection: collection,
		httpClient: &http.Client{Timeout: 60 * time.Second},
		executor:   executor,
	}
}

type point struct {
	ID      string       `json:"id"`
	Vector  []float32    `json:"vector"`
	Payload pointPayload `json:"payload"`
}

type pointPayload struct {
	Movie domain.Movie `json:"movie"`
	Text  string       `json:"text"`
}

// EnsureReady reports domain.ErrCollectionNotFound when the collection has
// not been built yet.
func (c *Client) EnsureReady(ctx context.Context) error {
	status, err := c.do(ctx, "collection_info", http.MethodGet, c.collectionURL(), nil, nil, http.StatusNotFound)
	if err != nil {
		return err
	}
	if status == http.StatusNotFound {
		return domain.WrapError(domain.ErrCollectionNotFound, "qdrant ensure ready", fmt.Errorf("collection %q does not exist", c.collection))
	}
	return nil
}

// Reset drops the collection. It is recreated on the next Upsert with the
// vector size of the first batch.
func (c *Client) Reset(ctx context.Context) error {
	if _, err := c.do(ctx, "delete_collection", http.MethodDelete, c.collectionURL(), nil, nil, http.StatusNotFound); err != nil {
		return err
	}
	c.ensureMu.Lock()
	c.ensuredCollection = false
	c.ensuredVectorSize = 0
	c.ensureMu.Unlock()
	return nil
}

func (c *Client) Upsert(ctx context.Context, entries []domain.VectorEntry) error {
	if len(entries) == 0 {
		return nil
	}
	size := len(entries[0].Vector)
	points := make([]point, 0, len(entries))
	for _, entry := range entries {
		if len(entry.Vector) != size {
			return fmt.Errorf("qdrant upsert: vector size %d for %q, expected %d", len(entry.Vector), entry.Movie.Title, size)
		}
		id := entry.ID
		if id == "" {
			id = entry.Movie.VectorID()
		}
		points = append(points, point{
			ID:      id,
			Vector:  entry.Vector,
			Payload: pointPayload{Movie: entry.Movie, Text: entry.Text},
		})
	}

	if err := c.ensureCollection(ctx, size); err != nil {
		return err
	}
	_, err := c.do(ctx, "upsert", http.MethodPut, c.collectionURL()+"/points?wait=true", map[string]any{"points": points}, nil)
	return err
}

func (c *Client) Query(ctx context.Context, vector []float32, k int) ([]domain.Movie, error) {
	if len(vector) == 0 || k <= 0 {
		return nil, nil
	}
	reqBody := map[string]any{
		"vector":       vector,
		"limit":        k,
		"with_payload": true,
	}
	var searchResp struct {
		Result []struct {
			Score   float64      `json:"score"`
			Payload pointPayload `json:"payload"`
		} `json:"result"`
	}
	status, err := c.do(ctx, "search", http.MethodPost, c.collectionURL()+"/points/search", reqBody, &searchResp, http.StatusNotFound)
	if err != nil {
		return nil, err
	}
	if status == http.StatusNotFound {
		return nil, domain.WrapError(domain.ErrCollectionNotFound, "qdrant search", fmt.Errorf("collection %q does not exist", c.collection))
	}

	out := make([]domain.Movie, 0, len(searchResp.Result))
	for _, r := range searchResp.Result {
		if r.Payload.Movie.Title == "" {
			continue
		}
		out = append(out, r.Payload.Movie)
	}
	return out, nil
}

func (c *Client) ensureCollection(ctx context.Context, vectorSize int) error {
	c.ensureMu.Lock()
	if c.ensuredCollection && c.ensuredVectorSize == vectorSize {
		c.ensureMu.Unlock()
		return nil
	}
	c.ensureMu.Unlock()

	reqBody := map[string]any{
		"vectors": map[string]any{
			"size":     vectorSize,
			"distance": "Cosine",
		},
	}
	// 409 means the collection already exists.
	if _, err := c.do(ctx, "ensure_collection", http.MethodPut, c.collectionURL(), reqBody, nil, http.StatusConflict); err != nil {
		return err
	}

	c.ensureMu.Lock()
	c.ensuredCollection = true
	c.ensuredVectorSize = vectorSize
	c.ensureMu.Unlock()
	return nil
}

func (c *Client) collectionURL() string {
	return fmt.Sprintf("%s/collections/%s", c.baseURL, c.collection)
}

// do sends one JSON request through the executor. Statuses listed in
// tolerated are returned to the caller instead of being treated as errors.
func (c *Client) do(ctx context.Context, operation, method, url string, payload any, out any, tolerated ...int) (int, error) {
	var body []byte
	if payload != nil {
		encoded, err := json.Marshal(payload)
		if err != nil {
			return 0, fmt.Errorf("marshal %s body: %w", operation, err)
		}
		body = encoded
	}

	status, err := resilience.Do(ctx, c.executor, "qdrant."+operation, func(ctx context.Context) (int, error) {
		req, err := http.NewRequestWithContext(ctx, method, url, bytes.NewReader(body))
		if err != nil {
			return 0, fmt.Errorf("create %s request: %w", operation, err)
		}
		if body != nil {
			req.Header.Set("Content-Type", "application/json")
		}

		resp, err := c.httpClient.Do(req)
		if err != nil {
			return 0, fmt.Errorf("qdrant %s request: %w", operation, err)
		}
		defer resp.Body.Close()

		for _, code := range tolerated {
			if resp.StatusCode == code {
				return code, nil
			}
		}
		if resp.StatusCode >= 300 {
			return 0, resilience.NewHTTPStatusError("qdrant", operation, resp)
		}
		if out != nil {
			if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
				return 0, fmt.Errorf("decode %s response: %w", operation, err)
			}
		}
		return resp.StatusCode, nil
	}, resilience.ClassifyHTTP)
	if err != nil {
		return 0, resilience.WrapTemporary("qdrant "+operation, err)
	}
	return status, nil
}
