package httpclient

import (
	"context"
	"crypto/tls"
	"errors"
	"net"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/thushan/blaze/internal/domain"
)

// classifyTransportError turns a net/http transport-level error into an
// AttemptResult. Context cancellation/deadline is surfaced as a fatal
// classification since the caller (RetryEngine) owns that decision;
// everything else that looks like a connectivity hiccup is retryable.
func classifyTransportError(ctx context.Context, err error, latency time.Duration, bytesOut int64) domain.AttemptResult {
	if ctx.Err() != nil {
		return domain.AttemptResult{
			Kind:         domain.OutcomeFatal,
			TransportErr: ctx.Err().Error(),
			Reason:       "context_cancelled",
			Latency:      latency,
			BytesOut:     bytesOut,
		}
	}

	if isConnectionError(err) {
		return domain.AttemptResult{
			Kind:         domain.OutcomeRetryableTransport,
			TransportErr: err.Error(),
			Latency:      latency,
			BytesOut:     bytesOut,
		}
	}

	return domain.AttemptResult{
		Kind:         domain.OutcomeFatal,
		TransportErr: err.Error(),
		Reason:       "transport_error",
		Latency:      latency,
		BytesOut:     bytesOut,
	}
}

// isConnectionError reports whether err reflects a transient connectivity
// failure (refused, reset, timeout, DNS, TLS handshake) rather than a
// structural one.
func isConnectionError(err error) bool {
	if err == nil {
		return false
	}

	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return true
	}

	var dnsErr *net.DNSError
	if errors.As(err, &dnsErr) {
		return true
	}

	var opErr *net.OpError
	if errors.As(err, &opErr) {
		return true
	}

	var tlsErr *tls.RecordHeaderError
	if errors.As(err, &tlsErr) {
		return true
	}

	msg := err.Error()
	for _, marker := range []string{
		"connection refused",
		"connection reset",
		"broken pipe",
		"no such host",
		"EOF",
		"i/o timeout",
		"TLS handshake timeout",
	} {
		if strings.Contains(msg, marker) {
			return true
		}
	}
	return false
}

// parseRetryAfter accepts the delta-seconds form as primary; an
// HTTP-date value is parsed best-effort and converted to a duration
// from now. A missing or unparsable header yields zero, letting the
// caller fall back to computed backoff.
func parseRetryAfter(value string) time.Duration {
	if value == "" {
		return 0
	}
	if secs, err := strconv.Atoi(strings.TrimSpace(value)); err == nil {
		if secs < 0 {
			return 0
		}
		return time.Duration(secs) * time.Second
	}
	if when, err := http.ParseTime(value); err == nil {
		if d := time.Until(when); d > 0 {
			return d
		}
	}
	return 0
}
