package nats

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/nats-io/nats.go"

	"github.com/kirillkom/movie-recommender/internal/infrastructure/resilience"
)

const (
	DefaultRebuildSubject = "catalog.rebuild"
	DefaultRebuiltSubject = "catalog.rebuilt"
	workerQueueGroup      = "workers"
)

// Queue carries catalog rebuild requests to workers and rebuild
// notifications back to every API instance.
type Queue struct {
	conn           *nats.Conn
	rebuildSubject string
	rebuiltSubject string
	executor       *resilience.Executor
}

type Options struct {
	RebuildSubject       string
	RebuiltSubject       string
	ClientName           string
	ConnectTimeout       time.Duration
	ReconnectWait        time.Duration
	MaxReconnects        int
	RetryOnFailedConnect *bool
	ResilienceExecutor   *resilience.Executor
}

func New(url string, options Options) (*Queue, error) {
	connectTimeout := options.ConnectTimeout
	if connectTimeout <= 0 {
		connectTimeout = 2 * time.Second
	}
	reconnectWait := options.ReconnectWait
	if reconnectWait <= 0 {
		reconnectWait = 2 * time.Second
	}
	maxReconnects := options.MaxReconnects
	if maxReconnects <= 0 {
		maxReconnects = 60
	}
	retryOnFailedConnect := true
	if options.RetryOnFailedConnect != nil {
		retryOnFailedConnect = *options.RetryOnFailedConnect
	}
	name := options.ClientName
	if name == "" {
		name = "movie-recommender"
	}

	conn, err := nats.Connect(
		url,
		nats.Name(name),
		nats.Timeout(connectTimeout),
		nats.ReconnectWait(reconnectWait),
		nats.MaxReconnects(maxReconnects),
		nats.RetryOnFailedConnect(retryOnFailedConnect),
		nats.DisconnectErrHandler(func(_ *nats.Conn, err error) {
			slog.Warn("nats_disconnected", "error", err)
		}),
		nats.ReconnectHandler(func(nc *nats.Conn) {
			slog.Info("nats_reconnected", "url", nc.ConnectedUrl())
		}),
	)
	if err != nil {
		return nil, fmt.Errorf("connect nats: %w", err)
	}
	return &Queue{
		conn:           conn,
		rebuildSubject: orDefault(options.RebuildSubject, DefaultRebuildSubject),
		rebuiltSubject: orDefault(options.RebuiltSubject, DefaultRebuiltSubject),
		executor:       options.ResilienceExecutor,
	}, nil
}

func (q *Queue) Close() {
	if q.conn != nil {
		q.conn.Close()
	}
}

func (q *Queue) PublishCatalogRebuild(ctx context.Context, requestID string) error {
	return q.publish(ctx, q.rebuildSubject, requestID)
}

func (q *Queue) PublishCatalogRebuilt(ctx context.Context, requestID string) error {
	return q.publish(ctx, q.rebuiltSubject, requestID)
}

// SubscribeCatalogRebuild load-balances rebuild requests across workers and
// blocks until ctx is done.
func (q *Queue) SubscribeCatalogRebuild(ctx context.Context, handler func(context.Context, string) error) error {
	return q.subscribe(ctx, q.rebuildSubject, workerQueueGroup, handler)
}

// SubscribeCatalogRebuilt delivers every rebuild notice to this instance and
// blocks until ctx is done.
func (q *Queue) SubscribeCatalogRebuilt(ctx context.Context, handler func(context.Context, string) error) error {
	return q.subscribe(ctx, q.rebuiltSubject, "", handler)
}

func (q *Queue) publish(ctx context.Context, subject, payload string) error {
	call := func(_ context.Context) error {
		if err := q.conn.Publish(subject, []byte(payload)); err != nil {
			return fmt.Errorf("nats publish %s: %w", subject, err)
		}
		return nil
	}

	var err error
	if q.executor != nil {
		err = q.executor.Execute(ctx, "nats.publish", call, classifyNATSError)
	} else {
		err = call(ctx)
	}
	return wrapTemporaryIfNeeded(err)
}

func (q *Queue) subscribe(ctx context.Context, subject, group string, handler func(context.Context, string) error) error {
	callback := func(msg *nats.Msg) {
		if ctx.Err() != nil {
			return
		}
		handlerCtx, cancel := context.WithCancel(ctx)
		defer cancel()
		if err := handler(handlerCtx, string(msg.Data)); err != nil {
			slog.Error("queue_handler_failed", "subject", subject, "payload", string(msg.Data), "error", err)
		}
	}

	var (
		sub *nats.Subscription
		err error
	)
	if group != "" {
		sub, err = q.conn.QueueSubscribe(subject, group, callback)
	} else {
		sub, err = q.conn.Subscribe(subject, callback)
	}
	if err != nil {
		return fmt.Errorf("nats subscribe %s: %w", subject, err)
	}

	if err := q.conn.Flush(); err != nil {
		return fmt.Errorf("nats flush: %w", err)
	}

	<-ctx.Done()
	if err := sub.Drain(); err != nil {
		return fmt.Errorf("nats drain subscription: %w", err)
	}
	if err := q.conn.FlushTimeout(5 * time.Second); err != nil {
		return fmt.Errorf("nats flush after drain: %w", err)
	}
	return nil
}

func orDefault(value, fallback string) string {
	if value == "" {
		return fallback
	}
	return value
}
