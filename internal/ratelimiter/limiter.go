// Package ratelimiter implements Blaze's global admission control: a
// token bucket producing one permit per acquire() at a target RPS.
package ratelimiter

import (
	"context"
	"fmt"

	"golang.org/x/time/rate"
)

// Limiter wraps golang.org/x/time/rate.Limiter, which computes refill
// lazily from a monotonic clock on every call with no background
// goroutine and keeps waiters FIFO-ordered.
type Limiter struct {
	inner *rate.Limiter
}

// New builds a limiter with capacity = max(ratePerSecond/10, workers),
// refilling at ratePerSecond tokens/second. Config validation (see
// internal/config) rejects a rate below 1 first; New also returns an
// error for ratePerSecond <= 0.
func New(ratePerSecond, workers int) (*Limiter, error) {
	if ratePerSecond <= 0 {
		return nil, fmt.Errorf("rate_per_second must be > 0, got %d", ratePerSecond)
	}

	burst := ratePerSecond / 10
	if burst < workers {
		burst = workers
	}
	if burst < 1 {
		burst = 1
	}

	return &Limiter{
		inner: rate.NewLimiter(rate.Limit(ratePerSecond), burst),
	}, nil
}

// Acquire blocks cooperatively until one token is available, then
// decrements it. It is cancellable at the suspension point: a cancelled
// ctx returns without consuming a token.
func (l *Limiter) Acquire(ctx context.Context) error {
	return l.inner.Wait(ctx)
}

// Burst reports the bucket's capacity, useful for tests and for the
// dry-run config summary.
func (l *Limiter) Burst() int {
	return l.inner.Burst()
}
