// Package retry provides the shared exponential-backoff-with-jitter loop
// used by the crawler's fetches, the embedding providers, and the
// classifier fallback.
package retry

import (
	"context"
	"fmt"
	"math/rand"
	"time"
)

// Policy parameterizes a retry loop.
type Policy struct {
	MaxAttempts int
	BaseDelay   time.Duration
	Multiplier  float64
	// JitterFraction adds up to this fraction of the computed delay as
	// random jitter, so many concurrent jobs don't synchronize.
	JitterFraction float64
	// Retryable decides whether an error is worth another attempt.
	// Nil means every error is retryable.
	Retryable func(error) bool
}

// DefaultPolicy matches the crawler's fetch discipline: 2^attempt seconds
// of backoff with a random jitter fraction.
func DefaultPolicy(maxAttempts int) Policy {
	return Policy{
		MaxAttempts:    maxAttempts,
		BaseDelay:      time.Second,
		Multiplier:     2,
		JitterFraction: 0.3,
	}
}

// Do runs fn until it succeeds, the policy is exhausted, or the context is
// canceled. It returns the last error once attempts run out.
func Do(ctx context.Context, p Policy, fn func(ctx context.Context) error) error {
	if p.MaxAttempts < 1 {
		p.MaxAttempts = 1
	}
	if p.Multiplier <= 0 {
		p.Multiplier = 2
	}

	var lastErr error
	delay := p.BaseDelay
	for attempt := 0; attempt < p.MaxAttempts; attempt++ {
		if attempt > 0 {
			wait := delay
			if p.JitterFraction > 0 {
				wait += time.Duration(rand.Float64() * p.JitterFraction * float64(delay))
			}
			select {
			case <-time.After(wait):
			case <-ctx.Done():
				return ctx.Err()
			}
			delay = time.Duration(float64(delay) * p.Multiplier)
		}

		lastErr = fn(ctx)
		if lastErr == nil {
			return nil
		}
		if ctx.Err() != nil {
			return lastErr
		}
		if p.Retryable != nil && !p.Retryable(lastErr) {
			return lastErr
		}
	}
	return fmt.Errorf("after %d attempts: %w", p.MaxAttempts, lastErr)
}
