package resilience

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/sony/gobreaker/v2"

	"github.com/kirillkom/movie-recommender/internal/core/domain"
)

func fastConfig() Config {
	return Config{
		RetryMaxAttempts:    3,
		RetryInitialBackoff: 1 * time.Millisecond,
		RetryMaxBackoff:     2 * time.Millisecond,
		RetryMultiplier:     2,
		RetryAfterCap:       5 * time.Millisecond,
		BreakerEnabled:      false,
	}
}

func TestExecuteRetriesTemporaryFailure(t *testing.T) {
	exec := NewExecutor(fastConfig())

	attempts := 0
	retried := 0
	exec.OnRetry(func(string, int, error) { retried++ })

	errTemp := errors.New("temporary")
	err := exec.Execute(context.Background(), "tmdb.discover", func(context.Context) error {
		attempts++
		if attempts < 3 {
			return errTemp
		}
		return nil
	}, func(err error) ErrorClassification {
		return ErrorClassification{
			Retryable:     errors.Is(err, errTemp),
			RecordFailure: true,
		}
	})
	if err != nil {
		t.Fatalf("expected success after retries, got %v", err)
	}
	if attempts != 3 || retried != 2 {
		t.Fatalf("expected 3 attempts and 2 retry notifications, got %d/%d", attempts, retried)
	}
}

func TestExecuteDoesNotRetryPermanentFailure(t *testing.T) {
	exec := NewExecutor(fastConfig())

	attempts := 0
	errPermanent := errors.New("permanent")
	err := exec.Execute(context.Background(), "qdrant.search", func(context.Context) error {
		attempts++
		return errPermanent
	}, func(error) ErrorClassification {
		return ErrorClassification{
			Retryable:     false,
			RecordFailure: false,
		}
	})
	if !errors.Is(err, errPermanent) {
		t.Fatalf("expected permanent error, got %v", err)
	}
	if attempts != 1 {
		t.Fatalf("expected 1 attempt, got %d", attempts)
	}
}

func TestExecuteOpensCircuitAfterFailures(t *testing.T) {
	exec := NewExecutor(Config{
		RetryMaxAttempts:        1,
		RetryInitialBackoff:     1 * time.Millisecond,
		RetryMaxBackoff:         1 * time.Millisecond,
		RetryMultiplier:         2,
		BreakerEnabled:          true,
		BreakerMinRequests:      2,
		BreakerFailureRatio:     0.5,
		BreakerOpenTimeout:      50 * time.Millisecond,
		BreakerHalfOpenMaxCalls: 1,
	})

	errTemp := errors.New("temporary")
	classifier := func(error) ErrorClassification {
		return ErrorClassification{
			Retryable:     false,
			RecordFailure: true,
		}
	}

	for i := 0; i < 2; i++ {
		err := exec.Execute(context.Background(), "ollama.embed", func(context.Context) error {
			return errTemp
		}, classifier)
		if !errors.Is(err, errTemp) {
			t.Fatalf("expected temporary error on iteration %d, got %v", i, err)
		}
	}

	err := exec.Execute(context.Background(), "ollama.embed", func(context.Context) error {
		t.Fatalf("circuit should be open and must not call operation")
		return nil
	}, classifier)
	if !errors.Is(err, gobreaker.ErrOpenState) {
		t.Fatalf("expected open state error, got %v", err)
	}
	if !IsCircuitOpen(err) || !domain.IsKind(WrapTemporary("embed", err), domain.ErrTemporary) {
		t.Fatalf("open circuit should be reported as temporary")
	}
}

func TestDoReturnsValueAfterRetry(t *testing.T) {
	exec := NewExecutor(fastConfig())
	attempts := 0
	got, err := Do(context.Background(), exec, "serp.search", func(context.Context) (int, error) {
		attempts++
		if attempts == 1 {
			return 0, &HTTPStatusError{Service: "serpapi", Operation: "search", StatusCode: http.StatusBadGateway, Status: "502 Bad Gateway"}
		}
		return 42, nil
	}, ClassifyHTTP)
	if err != nil {
		t.Fatalf("Do() error = %v", err)
	}
	if got != 42 || attempts != 2 {
		t.Fatalf("expected 42 after 2 attempts, got %d after %d", got, attempts)
	}
}

func TestDoWithoutExecutorCallsOnce(t *testing.T) {
	got, err := Do(context.Background(), nil, "noop", func(context.Context) (string, error) {
		return "ok", nil
	}, nil)
	if err != nil || got != "ok" {
		t.Fatalf("unexpected result %q, %v", got, err)
	}
}

func TestRetryAfterHintIsCapped(t *testing.T) {
	exec := NewExecutor(fastConfig())
	attempts := 0
	started := time.Now()
	err := exec.Execute(context.Background(), "tmdb.details", func(context.Context) error {
		attempts++
		if attempts == 1 {
			return &HTTPStatusError{StatusCode: http.StatusTooManyRequests, Status: "429", RetryAfter: time.Hour}
		}
		return nil
	}, ClassifyHTTP)
	if err != nil {
		t.Fatalf("Execute() error = %v", err)
	}
	if elapsed := time.Since(started); elapsed > time.Second {
		t.Fatalf("retry-after hint was not capped, waited %s", elapsed)
	}
}

func TestClassifyHTTP(t *testing.T) {
	tests := []struct {
		name   string
		err    error
		retry  bool
		record bool
	}{
		{name: "canceled", err: context.Canceled, retry: false, record: false},
		{name: "503", err: &HTTPStatusError{StatusCode: http.StatusServiceUnavailable}, retry: true, record: true},
		{name: "429", err: &HTTPStatusError{StatusCode: http.StatusTooManyRequests}, retry: true, record: true},
		{name: "404", err: &HTTPStatusError{StatusCode: http.StatusNotFound}, retry: false, record: false},
		{name: "other", err: errors.New("boom"), retry: false, record: true},
	}
	for _, tt := range tests {
		got := ClassifyHTTP(tt.err)
		if got.Retryable != tt.retry || got.RecordFailure != tt.record {
			t.Errorf("%s: ClassifyHTTP() = %+v", tt.name, got)
		}
	}
}

func TestNewHTTPStatusErrorReadsRetryAfter(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Retry-After", "3")
		http.Error(w, "slow down", http.StatusTooManyRequests)
	}))
	defer server.Close()

	resp, err := http.Get(server.URL)
	if err != nil {
		t.Fatalf("GET error = %v", err)
	}
	defer resp.Body.Close()

	statusErr := NewHTTPStatusError("tmdb", "discover", resp)
	if statusErr.RetryAfter != 3*time.Second || statusErr.Body != "slow down" {
		t.Fatalf("unexpected status error %+v", statusErr)
	}
	if statusErr.Error() != "tmdb discover status: 429 Too Many Requests: slow down" {
		t.Fatalf("unexpected message %q", statusErr.Error())
	}
}

func TestParseRetryAfter(t *testing.T) {
	now := time.Date(2025, 1, 1, 12, 0, 0, 0, time.UTC)
	if got := ParseRetryAfter("7", now); got != 7*time.Second {
		t.Fatalf("seconds: got %s", got)
	}
	date := now.Add(90 * time.Second).Format(http.TimeFormat)
	if got := ParseRetryAfter(date, now); got != 90*time.Second {
		t.Fatalf("date: got %s", got)
	}
	for _, value := range []string{"", "-1", "soon"} {
		if got := ParseRetryAfter(value, now); got != 0 {
			t.Fatalf("ParseRetryAfter(%q) = %s, want 0", value, got)
		}
	}
}

func TestRetryOverrideUsesLongestPrefix(t *testing.T) {
	cfg := fastConfig()
	cfg.RetryOverrides = map[string]RetryOverride{
		"tmdb":         {MaxAttempts: 5},
		"tmdb.details": {MaxAttempts: 2},
	}
	exec := NewExecutor(cfg)

	count := func(operation string) int {
		attempts := 0
		_ = exec.Execute(context.Background(), operation, func(context.Context) error {
			attempts++
			return errors.New("temporary")
		}, func(error) ErrorClassification {
			return ErrorClassification{Retryable: true, RecordFailure: true}
		})
		return attempts
	}

	if got := count("tmdb.discover"); got != 5 {
		t.Fatalf("tmdb.discover: expected 5 attempts, got %d", got)
	}
	if got := count("tmdb.details"); got != 2 {
		t.Fatalf("tmdb.details: expected 2 attempts, got %d", got)
	}
	if got := count("tmdbx.discover"); got != 3 {
		t.Fatalf("unrelated prefix must keep the global schedule, got %d", got)
	}
}
