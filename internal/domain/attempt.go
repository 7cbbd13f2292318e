package domain

import (
	"encoding/json"
	"time"
)

// OutcomeKind classifies the result of a single HTTP attempt.
type OutcomeKind int

const (
	OutcomeOk OutcomeKind = iota
	OutcomeRetryableHTTP
	OutcomeRetryableTransport
	OutcomeFatal
)

func (k OutcomeKind) String() string {
	switch k {
	case OutcomeOk:
		return "ok"
	case OutcomeRetryableHTTP:
		return "retryable_http"
	case OutcomeRetryableTransport:
		return "retryable_transport"
	case OutcomeFatal:
		return "fatal"
	default:
		return "unknown"
	}
}

// AttemptResult is what HttpClient.Attempt returns for one HTTP exchange.
type AttemptResult struct {
	Kind         OutcomeKind
	Response     json.RawMessage
	StatusCode   int    // 0 for transport-level failures
	TransportErr string // transport or context error text, or "request_timeout" for an HTTP 408
	Reason       string // human string for Fatal outcomes
	RetryAfter   time.Duration
	Latency      time.Duration
	BytesIn      int64
	BytesOut     int64
}
