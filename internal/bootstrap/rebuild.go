package bootstrap

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/kirillkom/movie-recommender/internal/core/domain"
	"github.com/kirillkom/movie-recommender/internal/core/ports"
)

const localRebuildTimeout = 2 * time.Hour

// LocalRebuilder runs catalog rebuilds inside the API process and reloads the
// indexes when one succeeds. Badger keeps an exclusive lock on its directory,
// so with the embedded backend no worker process can open the collection.
type LocalRebuilder struct {
	baseCtx context.Context
	builder ports.CatalogBuilder
	reload  func(context.Context) error
	timeout time.Duration

	running atomic.Bool
	wg      sync.WaitGroup
}

// NewLocalRebuilder ties rebuild lifetimes to baseCtx rather than to the
// request that triggered them.
func NewLocalRebuilder(baseCtx context.Context, builder ports.CatalogBuilder, reload func(context.Context) error) *LocalRebuilder {
	return &LocalRebuilder{
		baseCtx: baseCtx,
		builder: builder,
		reload:  reload,
		timeout: localRebuildTimeout,
	}
}

// PublishCatalogRebuild starts a rebuild in the background. A second request
// while one is running is rejected as temporary.
func (r *LocalRebuilder) PublishCatalogRebuild(_ context.Context, requestID string) error {
	if !r.running.CompareAndSwap(false, true) {
		return domain.WrapError(domain.ErrTemporary, "rebuild catalog", errors.New("a rebuild is already running"))
	}
	r.wg.Add(1)
	go func() {
		defer r.wg.Done()
		defer r.running.Store(false)
		r.run(requestID)
	}()
	return nil
}

func (r *LocalRebuilder) run(requestID string) {
	ctx, cancel := context.WithTimeout(r.baseCtx, r.timeout)
	defer cancel()

	report, err := r.builder.Rebuild(ctx)
	if err != nil {
		slog.Error("catalog_rebuild_failed", "request_id", requestID, "error", err)
		return
	}
	if err := r.reload(ctx); err != nil {
		slog.Error("index_reload_failed", "request_id", requestID, "error", err)
		return
	}
	slog.Info("catalog_rebuild_done", "request_id", requestID, "movies", report.Movies, "vectors", report.VectorsIndexed)
}

// Wait blocks until the running rebuild, if any, has finished.
func (r *LocalRebuilder) Wait() {
	r.wg.Wait()
}
