package retry

import (
	"context"
	"fmt"
	"time"
)

// Policy bounds how a call is retried. Delay doubles after each failed attempt,
// starting at BaseDelay and capped at MaxDelay.
type Policy struct {
	Retries   int
	BaseDelay time.Duration
	MaxDelay  time.Duration
	// Retryable decides whether an error is worth another attempt. Nil retries everything.
	Retryable func(error) bool
}

func (p Policy) delay(attempt int) time.Duration {
	d := p.BaseDelay << (attempt - 1)
	if p.MaxDelay > 0 && d > p.MaxDelay {
		d = p.MaxDelay
	}
	return d
}

// Do runs fn until it succeeds, the error is not retryable, or Retries extra
// attempts have been spent.
func Do[T any](ctx context.Context, p Policy, fn func(ctx context.Context) (T, error)) (T, error) {
	var zero T
	var lastErr error
	for attempt := 0; attempt <= p.Retries; attempt++ {
		if attempt > 0 {
			select {
			case <-ctx.Done():
				return zero, ctx.Err()
			case <-time.After(p.delay(attempt)):
			}
		}

		v, err := fn(ctx)
		if err == nil {
			return v, nil
		}
		lastErr = err
		if p.Retryable != nil && !p.Retryable(err) {
			return zero, err
		}
	}
	if p.Retries == 0 {
		return zero, lastErr
	}
	return zero, fmt.Errorf("retries exhausted after %d attempts: %w", p.Retries+1, lastErr)
}
