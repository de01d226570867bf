// Package resilience wraps the outbound event connection in a retry policy
// and a circuit breaker.
package resilience

import (
	"context"
	"log/slog"
	"math/rand/v2"
	"time"

	"github.com/sony/gobreaker"
)

// RetryPolicy bounds RetryWithBackoff. The wait before attempt n+1 is
// InitialBackoff*2^n plus up to 50% jitter, capped at MaxBackoff.
type RetryPolicy struct {
	MaxRetries     int
	InitialBackoff time.Duration
	MaxBackoff     time.Duration

	// Retryable decides whether an error is worth another attempt. Nil retries everything.
	Retryable func(error) bool
}

// DefaultRetryPolicy is used when dialing the broker.
var DefaultRetryPolicy = RetryPolicy{
	MaxRetries:     3,
	InitialBackoff: 200 * time.Millisecond,
	MaxBackoff:     5 * time.Second,
}

// Backoff returns the base wait before the retry following attempt.
func (p RetryPolicy) Backoff(attempt int) time.Duration {
	d := p.InitialBackoff
	for i := 0; i < attempt; i++ {
		d *= 2
		if p.MaxBackoff > 0 && d >= p.MaxBackoff {
			return p.MaxBackoff
		}
	}
	return d
}

// RetryWithBackoff runs fn until it succeeds, the policy gives up or ctx ends.
// The last error from fn is returned.
func RetryWithBackoff(ctx context.Context, p RetryPolicy, fn func() error) error {
	var err error
	for attempt := 0; attempt <= p.MaxRetries; attempt++ {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return ctxErr
		}

		if err = fn(); err == nil {
			return nil
		}
		if p.Retryable != nil && !p.Retryable(err) {
			return err
		}
		if attempt == p.MaxRetries {
			break
		}

		wait := p.Backoff(attempt)
		if half := int64(wait / 2); half > 0 {
			wait += time.Duration(rand.Int64N(half))
		}
		slog.DebugContext(ctx, "Retrying after failure",
			"attempt", attempt+1,
			"wait", wait,
			"error", err)

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(wait):
		}
	}
	return err
}

// BreakerSettings tunes NewCircuitBreaker. Zero fields fall back to defaults.
type BreakerSettings struct {
	// MinRequests and FailureRatio decide when a closed breaker trips.
	MinRequests  uint32
	FailureRatio float64
	// Timeout is how long the breaker stays open before probing again.
	Timeout time.Duration
}

// NewCircuitBreaker returns a breaker that logs its state transitions.
func NewCircuitBreaker(name string, s BreakerSettings) *gobreaker.CircuitBreaker {
	if s.MinRequests == 0 {
		s.MinRequests = 5
	}
	if s.FailureRatio <= 0 {
		s.FailureRatio = 0.6
	}
	if s.Timeout <= 0 {
		s.Timeout = 10 * time.Second
	}

	return gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:        name,
		MaxRequests: 3,
		Interval:    30 * time.Second,
		Timeout:     s.Timeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			if counts.Requests < s.MinRequests {
				return false
			}
			return float64(counts.TotalFailures)/float64(counts.Requests) >= s.FailureRatio
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			slog.Warn("Circuit breaker state changed",
				"breaker", name,
				"from", from.String(),
				"to", to.String())
		},
	})
}
