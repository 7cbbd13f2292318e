// Package retry implements the per-record retry loop that leases an
// endpoint, attempts the request, and decides whether to retry, wait,
// or terminate.
package retry

import (
	"context"
	"time"

	"github.com/thushan/blaze/internal/domain"
	"github.com/thushan/blaze/internal/endpointpool"
	"github.com/thushan/blaze/internal/ratelimiter"
	"github.com/thushan/blaze/internal/util"
)

// Attempter is the subset of httpclient.Client the engine depends on,
// so tests can substitute a fake.
type Attempter interface {
	Attempt(ctx context.Context, rec *domain.RequestRecord, spec *domain.EndpointSpec) domain.AttemptResult
}

// Engine drives one record through lease/attempt/retry to a terminal
// OutcomeRecord.
type Engine struct {
	pool    *endpointpool.Pool
	client  Attempter
	limiter *ratelimiter.Limiter
	policy  domain.RetryPolicy
}

func New(pool *endpointpool.Pool, client Attempter, limiter *ratelimiter.Limiter, policy domain.RetryPolicy) *Engine {
	return &Engine{pool: pool, client: client, limiter: limiter, policy: policy}
}

// Run executes the retry loop for one record and returns its terminal
// outcome. It never returns an error: every failure mode is folded into
// the OutcomeRecord itself.
func (e *Engine) Run(ctx context.Context, rec *domain.RequestRecord) domain.OutcomeRecord {
	var (
		lastErr       string
		lastStatus    *int
		lastEndpoint  string
		lastLatency   time.Duration
		totalBytesIn  int64
		totalBytesOut int64
	)

	for attempt := 1; attempt <= e.policy.MaxAttempts; attempt++ {
		if err := e.limiter.Acquire(ctx); err != nil {
			return terminal(rec, lastEndpoint, attempt-1, lastLatency, "rate_limiter_cancelled: "+err.Error(), nil, totalBytesIn, totalBytesOut)
		}

		handle, permit, err := e.pool.Lease(ctx)
		if err != nil {
			return terminal(rec, lastEndpoint, attempt-1, lastLatency, "lease_failed: "+err.Error(), nil, totalBytesIn, totalBytesOut)
		}

		result := e.client.Attempt(ctx, rec, handle.Spec())
		e.pool.Report(handle, result.Kind == domain.OutcomeOk)
		permit.Release()

		lastEndpoint = handle.URL()
		lastLatency = result.Latency
		totalBytesIn += result.BytesIn
		totalBytesOut += result.BytesOut
		if result.StatusCode != 0 {
			status := result.StatusCode
			lastStatus = &status
		}

		switch result.Kind {
		case domain.OutcomeOk:
			return domain.OutcomeRecord{
				Response:  result.Response,
				Input:     rec.Original,
				Endpoint:  lastEndpoint,
				LatencyMs: lastLatency.Milliseconds(),
				Attempts:  attempt,
				Success:   true,
				BytesIn:   totalBytesIn,
				BytesOut:  totalBytesOut,
			}

		case domain.OutcomeFatal:
			reason := result.Reason
			if reason == "" {
				reason = result.TransportErr
			}
			return terminal(rec, lastEndpoint, attempt, lastLatency, reason, lastStatus, totalBytesIn, totalBytesOut)

		case domain.OutcomeRetryableHTTP, domain.OutcomeRetryableTransport:
			lastErr = classificationReason(result)
			if attempt == e.policy.MaxAttempts {
				return terminal(rec, lastEndpoint, attempt, lastLatency, "max_attempts_exceeded: "+lastErr, lastStatus, totalBytesIn, totalBytesOut)
			}

			wait := util.FullJitterBackoff(attempt, e.policy.InitialBackoff, e.policy.MaxBackoff, e.policy.Multiplier)
			if result.RetryAfter > wait {
				wait = result.RetryAfter
			}
			if err := sleep(ctx, wait); err != nil {
				return terminal(rec, lastEndpoint, attempt, lastLatency, "cancelled_during_backoff", lastStatus, totalBytesIn, totalBytesOut)
			}
		}
	}

	return terminal(rec, lastEndpoint, e.policy.MaxAttempts, lastLatency, lastErr, lastStatus, totalBytesIn, totalBytesOut)
}

func classificationReason(result domain.AttemptResult) string {
	if result.TransportErr != "" {
		return result.TransportErr
	}
	if result.StatusCode != 0 {
		return "http_status"
	}
	return "unknown"
}

func terminal(rec *domain.RequestRecord, endpoint string, attempts int, latency time.Duration, reason string, status *int, bytesIn, bytesOut int64) domain.OutcomeRecord {
	return domain.OutcomeRecord{
		Error:      reason,
		Input:      rec.Original,
		Endpoint:   endpoint,
		StatusCode: status,
		LatencyMs:  latency.Milliseconds(),
		Attempts:   attempts,
		Success:    false,
		BytesIn:    bytesIn,
		BytesOut:   bytesOut,
	}
}

func sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return nil
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
