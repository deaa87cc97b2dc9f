package metrics

import (
	"bufio"
	"fmt"
	"net"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/kirillkom/movie-recommender/internal/core/domain"
)

type HTTPServerMetrics struct {
	registry *prometheus.Registry

	requestTotal    *prometheus.CounterVec
	requestDuration *prometheus.HistogramVec
	requestInFlight prometheus.Gauge

	queryTotal          *prometheus.CounterVec
	queryClausesTotal   *prometheus.CounterVec
	queryAbortsTotal    *prometheus.CounterVec
	queryResultSize     *prometheus.HistogramVec
	queryDuration       *prometheus.HistogramVec
	recommendationTotal *prometheus.CounterVec
	offerLookupsTotal   *prometheus.CounterVec
	retriesTotal        *prometheus.CounterVec
	indexReloadsTotal   *prometheus.CounterVec
}

func NewHTTPServerMetrics(service string) *HTTPServerMetrics {
	registry := prometheus.NewRegistry()

	requestTotal := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "movies",
			Subsystem: "http",
			Name:      "requests_total",
			Help:      "Total HTTP requests processed.",
		},
		[]string{"service", "method", "path", "status"},
	)
	requestDuration := prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "movies",
			Subsystem: "http",
			Name:      "request_duration_seconds",
			Help:      "HTTP request duration in seconds.",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{"service", "method", "path"},
	)
	requestInFlight := prometheus.NewGauge(
		prometheus.GaugeOpts{
			Namespace: "movies",
			Subsystem: "http",
			Name:      "in_flight_requests",
			Help:      "Number of in-flight HTTP requests.",
			ConstLabels: prometheus.Labels{
				"service": service,
			},
		},
	)
	queryTotal := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "movies",
			Subsystem: "query",
			Name:      "requests_total",
			Help:      "Total planned queries by merge mode.",
		},
		[]string{"service", "endpoint", "merge"},
	)
	queryClausesTotal := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "movies",
			Subsystem: "query",
			Name:      "clauses_total",
			Help:      "Total classified clauses by kind.",
		},
		[]string{"service", "kind"},
	)
	queryAbortsTotal := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "movies",
			Subsystem: "query",
			Name:      "aborts_total",
			Help:      "Total queries aborted by an empty clause, by clause kind.",
		},
		[]string{"service", "kind"},
	)
	queryResultSize := prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "movies",
			Subsystem: "query",
			Name:      "result_size",
			Help:      "Distribution of movies returned per query.",
			Buckets:   []float64{0, 1, 2, 3, 5, 8, 13, 21},
		},
		[]string{"service", "endpoint"},
	)
	queryDuration := prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "movies",
			Subsystem: "query",
			Name:      "duration_seconds",
			Help:      "Query planning and resolution duration in seconds.",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{"service", "endpoint"},
	)
	recommendationTotal := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "movies",
			Subsystem: "recommend",
			Name:      "items_total",
			Help:      "Total re-ranked recommendations by catalog match outcome.",
		},
		[]string{"service", "outcome"},
	)
	offerLookupsTotal := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "movies",
			Subsystem: "offers",
			Name:      "lookups_total",
			Help:      "Total per-title offer lookups by outcome.",
		},
		[]string{"service", "outcome"},
	)
	retriesTotal := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "movies",
			Subsystem: "upstream",
			Name:      "retries_total",
			Help:      "Total retried upstream calls by operation.",
		},
		[]string{"service", "operation"},
	)
	indexReloadsTotal := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "movies",
			Subsystem: "index",
			Name:      "reloads_total",
			Help:      "Total index snapshot reloads by status.",
		},
		[]string{"service", "status"},
	)

	registry.MustRegister(
		requestTotal,
		requestDuration,
		requestInFlight,
		queryTotal,
		queryClausesTotal,
		queryAbortsTotal,
		queryResultSize,
		queryDuration,
		recommendationTotal,
		offerLookupsTotal,
		retriesTotal,
		indexReloadsTotal,
	)

	return &HTTPServerMetrics{
		registry:            registry,
		requestTotal:        requestTotal,
		requestDuration:     requestDuration,
		requestInFlight:     requestInFlight,
		queryTotal:          queryTotal,
		queryClausesTotal:   queryClausesTotal,
		queryAbortsTotal:    queryAbortsTotal,
		queryResultSize:     queryResultSize,
		queryDuration:       queryDuration,
		recommendationTotal: recommendationTotal,
		offerLookupsTotal:   offerLookupsTotal,
		retriesTotal:        retriesTotal,
		indexReloadsTotal:   indexReloadsTotal,
	}
}

func (m *HTTPServerMetrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

func (m *HTTPServerMetrics) Middleware(service string, next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		path := normalizePath(r.URL.Path)
		recorder := &statusRecorder{
			ResponseWriter: w,
			statusCode:     http.StatusOK,
		}

		m.requestInFlight.Inc()
		defer m.requestInFlight.Dec()

		next.ServeHTTP(recorder, r)

		m.requestTotal.WithLabelValues(
			service,
			r.Method,
			path,
			strconv.Itoa(recorder.statusCode),
		).Inc()
		m.requestDuration.WithLabelValues(service, r.Method, path).Observe(time.Since(start).Seconds())
	})
}

func normalizePath(path string) string {
	switch {
	case path == "/v1/movies/export.xlsx":
		return path
	case strings.HasPrefix(path, "/v1/movies/"):
		return "/v1/movies/{rest}"
	default:
		return path
	}
}

func (m *HTTPServerMetrics) RecordQuery(service, endpoint string, result domain.SearchResult, duration time.Duration) {
	merge := string(result.Merge)
	if result.AbortedBy != nil {
		merge = "aborted"
		m.queryAbortsTotal.WithLabelValues(service, string(result.AbortedBy.Kind)).Inc()
	}
	if merge == "" {
		merge = "none"
	}
	m.queryTotal.WithLabelValues(service, endpoint, merge).Inc()
	for _, trace := range result.Clauses {
		m.queryClausesTotal.WithLabelValues(service, string(trace.Clause.Kind)).Inc()
	}
	m.queryResultSize.WithLabelValues(service, endpoint).Observe(float64(len(result.Movies)))
	m.queryDuration.WithLabelValues(service, endpoint).Observe(duration.Seconds())
}

func (m *HTTPServerMetrics) RecordRecommendations(service string, recs []domain.Recommendation) {
	for _, rec := range recs {
		outcome := "unmatched"
		if rec.Matched {
			outcome = "matched"
		}
		m.recommendationTotal.WithLabelValues(service, outcome).Inc()
	}
}

func (m *HTTPServerMetrics) RecordOfferLookup(service string, offers int) {
	outcome := "hit"
	if offers == 0 {
		outcome = "empty"
	}
	m.offerLookupsTotal.WithLabelValues(service, outcome).Inc()
}

// RetryObserver returns a hook for resilience.Executor.OnRetry.
func (m *HTTPServerMetrics) RetryObserver(service string) func(string, int, error) {
	return func(operation string, _ int, _ error) {
		m.retriesTotal.WithLabelValues(service, operation).Inc()
	}
}

func (m *HTTPServerMetrics) RecordIndexReload(service string, err error) {
	status := "success"
	if err != nil {
		status = "error"
	}
	m.indexReloadsTotal.WithLabelValues(service, status).Inc()
}

type statusRecorder struct {
	http.ResponseWriter
	statusCode int
}

func (w *statusRecorder) WriteHeader(statusCode int) {
	w.statusCode = statusCode
	w.ResponseWriter.WriteHeader(statusCode)
}

func (w *statusRecorder) Flush() {
	flusher, ok := w.ResponseWriter.(http.Flusher)
	if ok {
		flusher.Flush()
	}
}

func (w *statusRecorder) Hijack() (net.Conn, *bufio.ReadWriter, error) {
	hijacker, ok := w.ResponseWriter.(http.Hijacker)
	if !ok {
		return nil, nil, fmt.Errorf("response writer does not implement http.Hijacker")
	}
	return hijacker.Hijack()
}

func (w *statusRecorder) Push(target string, opts *http.PushOptions) error {
	pusher, ok := w.ResponseWriter.(http.Pusher)
	if !ok {
		return http.ErrNotSupported
	}
	return pusher.Push(target, opts)
}
