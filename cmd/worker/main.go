package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/kirillkom/movie-recommender/internal/bootstrap"
	"github.com/kirillkom/movie-recommender/internal/config"
	"github.com/kirillkom/movie-recommender/internal/core/domain"
	"github.com/kirillkom/movie-recommender/internal/observability/logging"
	"github.com/kirillkom/movie-recommender/internal/observability/metrics"
)

const (
	serviceName    = "worker"
	rebuildTimeout = 2 * time.Hour
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		slog.Error("config_load_failed", "error", err)
		os.Exit(1)
	}
	slog.SetDefault(logging.NewJSONLogger(serviceName, cfg.LogLevel))

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if bootstrap.EmbeddedVectorBackend(cfg) {
		slog.Error("worker_unsupported_vector_backend",
			"backend", cfg.VectorBackend,
			"hint", "the api rebuilds the badger catalog in-process",
		)
		os.Exit(1)
	}

	app, err := bootstrap.New(ctx, cfg)
	if err != nil {
		slog.Error("bootstrap_failed", "error", err)
		os.Exit(1)
	}
	defer app.Close()

	if app.Queue == nil {
		slog.Error("worker_requires_nats", "hint", "set NATS_URL")
		os.Exit(1)
	}

	workerMetrics := metrics.NewWorkerMetrics(serviceName)
	app.Executor.OnRetry(workerMetrics.RetryObserver(serviceName))

	metricsServer := &http.Server{
		Addr:              ":" + cfg.WorkerMetricsPort,
		Handler:           workerMetrics.Handler(),
		ReadHeaderTimeout: 5 * time.Second,
	}
	go func() {
		slog.Info("worker_metrics_listening", "addr", metricsServer.Addr)
		if err := metricsServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			slog.Error("worker_metrics_server_failed", "error", err)
		}
	}()
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = metricsServer.Shutdown(shutdownCtx)
	}()

	// One rebuild at a time per worker; rebuilds reset the shared collection.
	var rebuildMu sync.Mutex

	slog.Info("worker_subscribed", "subject", cfg.NATSRebuildSubject)
	err = app.Queue.SubscribeCatalogRebuild(ctx, func(handlerCtx context.Context, requestID string) error {
		rebuildMu.Lock()
		defer rebuildMu.Unlock()

		rebuildCtx, cancel := context.WithTimeout(handlerCtx, rebuildTimeout)
		defer cancel()

		workerMetrics.StartRebuild()
		start := time.Now()
		report, err := app.BuildUC.Rebuild(rebuildCtx)
		var summary domain.BuildReport
		if report != nil {
			summary = *report
		}
		workerMetrics.FinishRebuild(serviceName, summary, time.Since(start), err)
		if err != nil {
			return err
		}

		slog.Info("catalog_rebuild_done", "request_id", requestID, "movies", summary.Movies, "vectors", summary.VectorsIndexed)
		return app.Queue.PublishCatalogRebuilt(handlerCtx, requestID)
	})
	if err != nil {
		slog.Error("worker_subscribe_failed", "error", err)
		os.Exit(1)
	}
}
