package tmdb

import (
	"context"
	"sync"
	"time"

	"golang.org/x/time/rate"
)

const defaultRateLimitBackoff = 10 * time.Second

// RateLimiter is a token bucket that also honours server-imposed backoff
// after a 429 response.
type RateLimiter struct {
	mu      sync.Mutex
	limiter *rate.Limiter
	retryAt time.Time
}

func NewRateLimiter(requestsPerSecond float64, burst int) *RateLimiter {
	if requestsPerSecond <= 0 {
		requestsPerSecond = 20
	}
	if burst <= 0 {
		burst = 1
	}
	return &RateLimiter{limiter: rate.NewLimiter(rate.Limit(requestsPerSecond), burst)}
}

// Wait blocks until the backoff window has passed and a token is available.
func (r *RateLimiter) Wait(ctx context.Context) error {
	r.mu.Lock()
	retryAt := r.retryAt
	r.mu.Unlock()

	if wait := time.Until(retryAt); wait > 0 {
		timer := time.NewTimer(wait)
		select {
		case <-ctx.Done():
			timer.Stop()
			return ctx.Err()
		case <-timer.C:
		}
	}
	return r.limiter.Wait(ctx)
}

// RecordRateLimit pushes the next allowed request out by retryAfter.
func (r *RateLimiter) RecordRateLimit(retryAfter time.Duration) {
	if retryAfter <= 0 {
		retryAfter = defaultRateLimitBackoff
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if next := time.Now().Add(retryAfter); next.After(r.retryAt) {
		r.retryAt = next
	}
}
