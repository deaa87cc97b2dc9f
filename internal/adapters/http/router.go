package httpadapter

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"golang.org/x/time/rate"

	"github.com/kirillkom/movie-recommender/internal/config"
	"github.com/kirillkom/movie-recommender/internal/core/domain"
	"github.com/kirillkom/movie-recommender/internal/core/ports"
	"github.com/kirillkom/movie-recommender/internal/observability/metrics"
)

const (
	serviceName      = "api"
	maxRequestBytes  = 1 << 20
	backpressureWait = 50 * time.Millisecond
)

// RebuildPublisher hands catalog rebuild requests to the worker fleet, or to
// an in-process rebuilder when vectors are embedded.
type RebuildPublisher interface {
	PublishCatalogRebuild(ctx context.Context, requestID string) error
}

type Router struct {
	cfg         config.Config
	searcher    ports.MovieSearcher
	recommender ports.MovieRecommender
	offers      ports.OfferAnnotator
	catalog     ports.CatalogReader
	rebuilds    RebuildPublisher
	metrics     *metrics.HTTPServerMetrics
}

func NewRouter(
	cfg config.Config,
	searcher ports.MovieSearcher,
	recommender ports.MovieRecommender,
	offers ports.OfferAnnotator,
	catalog ports.CatalogReader,
	rebuilds RebuildPublisher,
) *Router {
	return &Router{
		cfg:         cfg,
		searcher:    searcher,
		recommender: recommender,
		offers:      offers,
		catalog:     catalog,
		rebuilds:    rebuilds,
	}
}

func (rt *Router) WithMetrics(m *metrics.HTTPServerMetrics) *Router {
	rt.metrics = m
	return rt
}

func (rt *Router) Handler() http.Handler {
	api := http.NewServeMux()
	api.HandleFunc("POST /v1/search", rt.search)
	api.HandleFunc("POST /v1/recommendations", rt.recommend)
	api.HandleFunc("GET /v1/offers", rt.getOffers)
	api.HandleFunc("GET /v1/movies", rt.listMovies)
	api.HandleFunc("GET /v1/movies/export.xlsx", rt.exportMovies)
	api.HandleFunc("POST /v1/catalog/rebuild", rt.requestRebuild)

	var limiter *rate.Limiter
	if rt.cfg.APIRateLimitRPS > 0 {
		burst := max(rt.cfg.APIRateLimitBurst, 1)
		limiter = rate.NewLimiter(rate.Limit(rt.cfg.APIRateLimitRPS), burst)
	}
	guarded := rateLimitMiddleware(backpressureMiddleware(api, rt.cfg.APIMaxInFlight, backpressureWait), limiter)

	mux := http.NewServeMux()
	mux.HandleFunc("GET /healthz", rt.healthz)
	if rt.metrics != nil {
		mux.Handle("GET /metrics", rt.metrics.Handler())
	}
	mux.Handle("/v1/", guarded)

	var handler http.Handler = mux
	if rt.metrics != nil {
		handler = rt.metrics.Middleware(serviceName, handler)
	}
	return requestIDMiddleware(accessLogMiddleware(handler))
}

func (rt *Router) healthz(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

type queryRequest struct {
	Query      string `json:"query"`
	Limit      int    `json:"limit"`
	WithOffers bool   `json:"with_offers"`
}

func decodeQuery(w http.ResponseWriter, r *http.Request) (queryRequest, bool) {
	var req queryRequest
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxRequestBytes)).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid json"})
		return req, false
	}
	req.Query = strings.TrimSpace(req.Query)
	if req.Query == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "query is required"})
		return req, false
	}
	if req.Limit < 0 {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "limit must be >= 0"})
		return req, false
	}
	return req, true
}

func (rt *Router) search(w http.ResponseWriter, r *http.Request) {
	req, ok := decodeQuery(w, r)
	if !ok {
		return
	}

	start := time.Now()
	result, err := rt.searcher.Search(r.Context(), req.Query, rt.limitOrDefault(req.Limit))
	if err != nil {
		rt.writeError(w, r, "search", err)
		return
	}
	if rt.metrics != nil {
		rt.metrics.RecordQuery(serviceName, "search", *result, time.Since(start))
	}
	writeJSON(w, http.StatusOK, result)
}

func (rt *Router) recommend(w http.ResponseWriter, r *http.Request) {
	req, ok := decodeQuery(w, r)
	if !ok {
		return
	}

	result, err := rt.recommender.Recommend(r.Context(), req.Query, rt.limitOrDefault(req.Limit))
	if err != nil {
		rt.writeError(w, r, "recommend", err)
		return
	}
	if req.WithOffers && rt.offers != nil && len(result.Recommendations) > 0 {
		rt.offers.AttachOffers(r.Context(), result.Recommendations)
		if rt.metrics != nil {
			for _, rec := range result.Recommendations {
				rt.metrics.RecordOfferLookup(serviceName, len(rec.Offers))
			}
		}
	}
	if rt.metrics != nil {
		rt.metrics.RecordRecommendations(serviceName, result.Recommendations)
	}
	writeJSON(w, http.StatusOK, result)
}

func (rt *Router) getOffers(w http.ResponseWriter, r *http.Request) {
	title := strings.TrimSpace(r.URL.Query().Get("title"))
	if title == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "title is required"})
		return
	}
	offers := []domain.Offer{}
	if rt.offers != nil {
		offers = rt.offers.Offers(r.Context(), title)
	}
	if rt.metrics != nil {
		rt.metrics.RecordOfferLookup(serviceName, len(offers))
	}
	writeJSON(w, http.StatusOK, domain.TitleOffers{Title: title, Offers: offers})
}

func (rt *Router) listMovies(w http.ResponseWriter, r *http.Request) {
	offset, err := queryInt(r, "offset")
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": err.Error()})
		return
	}
	limit, err := queryInt(r, "limit")
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": err.Error()})
		return
	}

	page, err := rt.catalog.ListMovies(r.Context(), offset, limit)
	if err != nil {
		rt.writeError(w, r, "list movies", err)
		return
	}
	writeJSON(w, http.StatusOK, page)
}

func (rt *Router) requestRebuild(w http.ResponseWriter, r *http.Request) {
	if rt.rebuilds == nil {
		writeJSON(w, http.StatusServiceUnavailable, map[string]string{"error": "catalog rebuild queue is not configured"})
		return
	}

	requestID := requestIDFromContext(r.Context())
	if requestID == "" {
		requestID = uuid.NewString()
	}
	if err := rt.rebuilds.PublishCatalogRebuild(r.Context(), requestID); err != nil {
		rt.writeError(w, r, "publish catalog rebuild", err)
		return
	}
	writeJSON(w, http.StatusAccepted, map[string]string{"request_id": requestID, "status": "queued"})
}

func (rt *Router) limitOrDefault(limit int) int {
	if limit > 0 {
		return limit
	}
	return rt.cfg.SearchResultLimit
}

func queryInt(r *http.Request, key string) (int, error) {
	raw := strings.TrimSpace(r.URL.Query().Get(key))
	if raw == "" {
		return 0, nil
	}
	n, err := strconv.Atoi(raw)
	if err != nil {
		return 0, fmt.Errorf("%s must be an integer", key)
	}
	return n, nil
}

func (rt *Router) writeError(w http.ResponseWriter, r *http.Request, op string, err error) {
	status := mapErrorToHTTPStatus(err)
	attrs := []any{"request_id", requestIDFromContext(r.Context()), "operation", op, "status", status, "error", err}
	if status >= http.StatusInternalServerError {
		slog.Error("http_handler_failed", attrs...)
	} else {
		slog.Warn("http_handler_failed", attrs...)
	}

	message := err.Error()
	if errors.Is(err, context.DeadlineExceeded) {
		message = "upstream timed out"
	}
	writeJSON(w, status, map[string]string{"error": message})
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}
