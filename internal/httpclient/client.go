// Package httpclient provides the single shared HTTP client that
// performs one timed attempt per call and classifies the outcome for
// the retry engine.
package httpclient

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net"
	"net/http"
	"time"

	"github.com/thushan/blaze/internal/domain"
)

const (
	DefaultMaxIdleConns        = 100
	DefaultMaxIdleConnsPerHost = 20
	DefaultIdleConnTimeout     = 90 * time.Second
	DefaultTLSHandshakeTimeout = 10 * time.Second
	DefaultDialTimeout         = 10 * time.Second
	DefaultDialKeepAlive       = 60 * time.Second

	headerContentType   = "Content-Type"
	headerAuthorization = "Authorization"
	headerRetryAfter    = "Retry-After"
	contentTypeJSON     = "application/json"
)

// Client is Blaze's shared pooled transport, tuned for long-lived LLM
// backends: generous idle-connection reuse and keep-alive per host.
type Client struct {
	http *http.Client
}

func New(requestTimeout time.Duration) *Client {
	transport := &http.Transport{
		MaxIdleConns:        DefaultMaxIdleConns,
		MaxIdleConnsPerHost: DefaultMaxIdleConnsPerHost,
		IdleConnTimeout:     DefaultIdleConnTimeout,
		TLSHandshakeTimeout: DefaultTLSHandshakeTimeout,
		DialContext: (&net.Dialer{
			Timeout:   DefaultDialTimeout,
			KeepAlive: DefaultDialKeepAlive,
		}).DialContext,
	}

	return &Client{
		http: &http.Client{
			Transport: transport,
			Timeout:   requestTimeout,
		},
	}
}

// CloseIdleConnections releases pooled connections at shutdown.
func (c *Client) CloseIdleConnections() {
	c.http.CloseIdleConnections()
}

// buildBody constructs the outbound JSON payload: a passthrough
// {"body": ...} is used verbatim; otherwise {"input": ...} is templated
// into the endpoint's expected shape.
func buildBody(rec *domain.RequestRecord, spec *domain.EndpointSpec) ([]byte, error) {
	if len(rec.Body) > 0 {
		return rec.Body, nil
	}

	switch spec.BodyTemplate {
	case "messages":
		payload := map[string]any{
			"messages": []map[string]string{{"role": "user", "content": rec.Input}},
		}
		if spec.Model != "" {
			payload["model"] = spec.Model
		}
		return json.Marshal(payload)
	default:
		payload := map[string]any{"prompt": rec.Input}
		if spec.Model != "" {
			payload["model"] = spec.Model
		}
		return json.Marshal(payload)
	}
}

// Attempt performs one HTTP exchange and classifies the result. Latency
// is measured around the full exchange including body read.
func (c *Client) Attempt(ctx context.Context, rec *domain.RequestRecord, spec *domain.EndpointSpec) domain.AttemptResult {
	start := time.Now()

	body, err := buildBody(rec, spec)
	if err != nil {
		return domain.AttemptResult{
			Kind:    domain.OutcomeFatal,
			Reason:  fmt.Sprintf("body_build_failed: %v", err),
			Latency: time.Since(start),
		}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, spec.URL.String(), bytes.NewReader(body))
	if err != nil {
		return domain.AttemptResult{
			Kind:    domain.OutcomeFatal,
			Reason:  fmt.Sprintf("request_build_failed: %v", err),
			Latency: time.Since(start),
		}
	}
	req.Header.Set(headerContentType, contentTypeJSON)
	if spec.APIKey != "" {
		req.Header.Set(headerAuthorization, "Bearer "+spec.APIKey)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return classifyTransportError(ctx, err, time.Since(start), int64(len(body)))
	}
	defer resp.Body.Close()

	respBody, readErr := io.ReadAll(resp.Body)
	latency := time.Since(start)

	if resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode >= 500 {
		return domain.AttemptResult{
			Kind:       domain.OutcomeRetryableHTTP,
			StatusCode: resp.StatusCode,
			RetryAfter: parseRetryAfter(resp.Header.Get(headerRetryAfter)),
			Latency:    latency,
			BytesOut:   int64(len(body)),
			BytesIn:    int64(len(respBody)),
		}
	}
	if resp.StatusCode == http.StatusRequestTimeout {
		return domain.AttemptResult{
			Kind:         domain.OutcomeRetryableTransport,
			StatusCode:   resp.StatusCode,
			TransportErr: "request_timeout",
			Latency:      latency,
			BytesOut:     int64(len(body)),
			BytesIn:      int64(len(respBody)),
		}
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return domain.AttemptResult{
			Kind:       domain.OutcomeFatal,
			StatusCode: resp.StatusCode,
			Reason:     fmt.Sprintf("http_%d", resp.StatusCode),
			Latency:    latency,
			BytesOut:   int64(len(body)),
			BytesIn:    int64(len(respBody)),
		}
	}

	if readErr != nil {
		return domain.AttemptResult{
			Kind:       domain.OutcomeFatal,
			StatusCode: resp.StatusCode,
			Reason:     "invalid_json",
			Latency:    latency,
			BytesOut:   int64(len(body)),
		}
	}

	var parsed json.RawMessage
	if err := json.Unmarshal(respBody, &parsed); err != nil || !json.Valid(respBody) {
		return domain.AttemptResult{
			Kind:       domain.OutcomeFatal,
			StatusCode: resp.StatusCode,
			Reason:     "invalid_json",
			Latency:    latency,
			BytesOut:   int64(len(body)),
			BytesIn:    int64(len(respBody)),
		}
	}

	return domain.AttemptResult{
		Kind:       domain.OutcomeOk,
		Response:   parsed,
		StatusCode: resp.StatusCode,
		Latency:    latency,
		BytesOut:   int64(len(body)),
		BytesIn:    int64(len(respBody)),
	}
}
