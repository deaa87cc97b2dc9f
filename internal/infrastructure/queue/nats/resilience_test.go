package nats

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/nats-io/nats.go"

	"github.com/kirillkom/movie-recommender/internal/core/domain"
)

func TestClassifyNATSError(t *testing.T) {
	tests := []struct {
		name  string
		err   error
		retry bool
	}{
		{name: "no servers", err: fmt.Errorf("publish: %w", nats.ErrNoServers), retry: true},
		{name: "closed", err: nats.ErrConnectionClosed, retry: true},
		{name: "canceled", err: context.Canceled, retry: false},
		{name: "bad subject", err: nats.ErrBadSubject, retry: false},
	}
	for _, tt := range tests {
		if got := classifyNATSError(tt.err); got.Retryable != tt.retry {
			t.Errorf("%s: classifyNATSError() = %+v", tt.name, got)
		}
	}
}

func TestWrapTemporaryIfNeeded(t *testing.T) {
	if err := wrapTemporaryIfNeeded(nil); err != nil {
		t.Fatalf("nil should stay nil")
	}
	if err := wrapTemporaryIfNeeded(nats.ErrDisconnected); !domain.IsKind(err, domain.ErrTemporary) {
		t.Fatalf("expected temporary kind, got %v", err)
	}
	plain := errors.New("payload too large")
	if err := wrapTemporaryIfNeeded(plain); domain.IsKind(err, domain.ErrTemporary) {
		t.Fatalf("permanent error must not become temporary")
	}
}
