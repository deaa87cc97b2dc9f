package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/kirillkom/movie-recommender/internal/core/domain"
)

type WorkerMetrics struct {
	registry *prometheus.Registry

	rebuildTotal    *prometheus.CounterVec
	rebuildDuration *prometheus.HistogramVec
	rebuildInFlight prometheus.Gauge
	vectorsTotal    *prometheus.CounterVec
	retriesTotal    *prometheus.CounterVec
}

func NewWorkerMetrics(service string) *WorkerMetrics {
	registry := prometheus.NewRegistry()

	rebuildTotal := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "movies",
			Subsystem: "worker",
			Name:      "catalog_rebuild_total",
			Help:      "Total catalog rebuild runs by status.",
		},
		[]string{"service", "status"},
	)
	rebuildDuration := prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "movies",
			Subsystem: "worker",
			Name:      "catalog_rebuild_duration_seconds",
			Help:      "Catalog rebuild duration in seconds by status.",
			Buckets:   []float64{1, 5, 15, 30, 60, 120, 300, 600, 1200},
		},
		[]string{"service", "status"},
	)
	rebuildInFlight := prometheus.NewGauge(
		prometheus.GaugeOpts{
			Namespace: "movies",
			Subsystem: "worker",
			Name:      "catalog_rebuild_in_flight",
			Help:      "Number of in-flight catalog rebuilds.",
			ConstLabels: prometheus.Labels{
				"service": service,
			},
		},
	)
	vectorsTotal := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "movies",
			Subsystem: "worker",
			Name:      "vectors_total",
			Help:      "Total movie vectors handled during rebuilds by outcome.",
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

	registry.MustRegister(rebuildTotal, rebuildDuration, rebuildInFlight, vectorsTotal, retriesTotal)

	return &WorkerMetrics{
		registry:        registry,
		rebuildTotal:    rebuildTotal,
		rebuildDuration: rebuildDuration,
		rebuildInFlight: rebuildInFlight,
		vectorsTotal:    vectorsTotal,
		retriesTotal:    retriesTotal,
	}
}

func (m *WorkerMetrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

func (m *WorkerMetrics) StartRebuild() {
	m.rebuildInFlight.Inc()
}

func (m *WorkerMetrics) FinishRebuild(service string, report domain.BuildReport, duration time.Duration, err error) {
	m.rebuildInFlight.Dec()

	status := "success"
	if err != nil {
		status = "error"
	}

	m.rebuildTotal.WithLabelValues(service, status).Inc()
	m.rebuildDuration.WithLabelValues(service, status).Observe(duration.Seconds())
	if report.VectorsIndexed > 0 {
		m.vectorsTotal.WithLabelValues(service, "indexed").Add(float64(report.VectorsIndexed))
	}
	if report.VectorsSkipped > 0 {
		m.vectorsTotal.WithLabelValues(service, "skipped").Add(float64(report.VectorsSkipped))
	}
}

// RetryObserver returns a hook for resilience.Executor.OnRetry.
func (m *WorkerMetrics) RetryObserver(service string) func(string, int, error) {
	return func(operation string, _ int, _ error) {
		m.retriesTotal.WithLabelValues(service, operation).Inc()
	}
}
