package resilience

import (
	"strings"
	"time"
)

type Config struct {
	RetryMaxAttempts    int
	RetryInitialBackoff time.Duration
	RetryMaxBackoff     time.Duration
	RetryMultiplier     float64
	RetryAfterCap       time.Duration

	// RetryOverrides tunes retries per upstream, keyed by operation prefix
	// ("tmdb" matches "tmdb.discover"). The longest matching prefix wins.
	RetryOverrides map[string]RetryOverride

	BreakerEnabled          bool
	BreakerMinRequests      uint32
	BreakerFailureRatio     float64
	BreakerOpenTimeout      time.Duration
	BreakerHalfOpenMaxCalls uint32
}

// RetryOverride replaces the global retry schedule for matching operations.
// Zero fields keep the global value.
type RetryOverride struct {
	MaxAttempts    int
	InitialBackoff time.Duration
}

type retrySchedule struct {
	maxAttempts    int
	initialBackoff time.Duration
	maxBackoff     time.Duration
}

func (c Config) scheduleFor(operation string) retrySchedule {
	schedule := retrySchedule{
		maxAttempts:    c.RetryMaxAttempts,
		initialBackoff: c.RetryInitialBackoff,
	}
	matched := ""
	for prefix, override := range c.RetryOverrides {
		if len(prefix) <= len(matched) || !matchesOperation(operation, prefix) {
			continue
		}
		matched = prefix
		schedule = retrySchedule{maxAttempts: c.RetryMaxAttempts, initialBackoff: c.RetryInitialBackoff}
		if override.MaxAttempts > 0 {
			schedule.maxAttempts = override.MaxAttempts
		}
		if override.InitialBackoff > 0 {
			schedule.initialBackoff = override.InitialBackoff
		}
	}
	schedule.maxBackoff = max(c.RetryMaxBackoff, schedule.initialBackoff)
	return schedule
}

func matchesOperation(operation, prefix string) bool {
	if operation == prefix {
		return true
	}
	return strings.HasPrefix(operation, prefix+".")
}

func DefaultConfig() Config {
	return Config{
		RetryMaxAttempts:    3,
		RetryInitialBackoff: 100 * time.Millisecond,
		RetryMaxBackoff:     400 * time.Millisecond,
		RetryMultiplier:     2.0,
		RetryAfterCap:       5 * time.Second,

		BreakerEnabled:          true,
		BreakerMinRequests:      10,
		BreakerFailureRatio:     0.5,
		BreakerOpenTimeout:      30 * time.Second,
		BreakerHalfOpenMaxCalls: 2,
	}
}

func (c Config) normalize() Config {
	out := c
	def := DefaultConfig()

	if out.RetryMaxAttempts <= 0 {
		out.RetryMaxAttempts = def.RetryMaxAttempts
	}
	if out.RetryInitialBackoff <= 0 {
		out.RetryInitialBackoff = def.RetryInitialBackoff
	}
	if out.RetryMaxBackoff <= 0 {
		out.RetryMaxBackoff = def.RetryMaxBackoff
	}
	if out.RetryMaxBackoff < out.RetryInitialBackoff {
		out.RetryMaxBackoff = out.RetryInitialBackoff
	}
	if out.RetryMultiplier < 1.0 {
		out.RetryMultiplier = def.RetryMultiplier
	}
	if out.RetryAfterCap <= 0 {
		out.RetryAfterCap = def.RetryAfterCap
	}

	if out.BreakerMinRequests == 0 {
		out.BreakerMinRequests = def.BreakerMinRequests
	}
	if out.BreakerFailureRatio <= 0 || out.BreakerFailureRatio > 1 {
		out.BreakerFailureRatio = def.BreakerFailureRatio
	}
	if out.BreakerOpenTimeout <= 0 {
		out.BreakerOpenTimeout = def.BreakerOpenTimeout
	}
	if out.BreakerHalfOpenMaxCalls == 0 {
		out.BreakerHalfOpenMaxCalls = def.BreakerHalfOpenMaxCalls
	}

	return out
}
