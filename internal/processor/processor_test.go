package processor

import (
	"bufio"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/thushan/blaze/internal/domain"
	"github.com/thushan/blaze/internal/endpointpool"
	"github.com/thushan/blaze/internal/logger"
	"github.com/thushan/blaze/theme"
)

func quietLogger() *logger.StyledLogger {
	return logger.NewStyledLogger(slog.New(slog.NewTextHandler(io.Discard, nil)), theme.Default())
}

func writeInputFile(t *testing.T, dir string, lines []string) string {
	t.Helper()
	path := filepath.Join(dir, "input.jsonl")
	if err := os.WriteFile(path, []byte(strings.Join(lines, "\n")+"\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

func readLines(t *testing.T, path string) []string {
	t.Helper()
	f, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		t.Fatal(err)
	}
	defer f.Close()

	var lines []string
	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 64*1024), 16*1024*1024)
	for scanner.Scan() {
		if len(scanner.Bytes()) > 0 {
			lines = append(lines, scanner.Text())
		}
	}
	if err := scanner.Err(); err != nil {
		t.Fatal(err)
	}
	return lines
}

func endpointFor(t *testing.T, rawURL string, weight, maxConcurrent int) *domain.EndpointSpec {
	t.Helper()
	u, err := url.Parse(rawURL)
	if err != nil {
		t.Fatal(err)
	}
	return &domain.EndpointSpec{URL: u, Weight: weight, MaxConcurrent: maxConcurrent}
}

func fastRetry(maxAttempts int) domain.RetryPolicy {
	return domain.RetryPolicy{
		MaxAttempts:    maxAttempts,
		InitialBackoff: 5 * time.Millisecond,
		MaxBackoff:     50 * time.Millisecond,
		Multiplier:     2.0,
		JitterFraction: 1.0,
	}
}

func testConfig(t *testing.T, dir, input string, endpoints []*domain.EndpointSpec, retry domain.RetryPolicy) Config {
	t.Helper()
	return Config{
		Input:      input,
		Output:     filepath.Join(dir, "results.jsonl"),
		Errors:     filepath.Join(dir, "errors.jsonl"),
		Endpoints:  endpoints,
		Retry:      retry,
		Rate:       100000,
		Workers:    4,
		Timeout:    5 * time.Second,
		NoProgress: true,
	}
}

func runPipeline(t *testing.T, ctx context.Context, cfg Config) *Result {
	t.Helper()
	proc, err := New(cfg, quietLogger())
	if err != nil {
		t.Fatalf("new processor: %v", err)
	}
	result, err := proc.Run(ctx)
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	return result
}

func TestRunHappyPath(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"ok":true}`))
	}))
	defer srv.Close()

	dir := t.TempDir()
	input := writeInputFile(t, dir, []string{
		`{"input":"one"}`,
		`{"input":"two"}`,
		`{"input":"three"}`,
	})
	cfg := testConfig(t, dir, input, []*domain.EndpointSpec{endpointFor(t, srv.URL, 1, 10)}, fastRetry(3))

	result := runPipeline(t, context.Background(), cfg)

	if result.RecordsRead != 3 || result.Successes != 3 || result.Errors != 0 {
		t.Fatalf("expected 3/3/0, got read=%d ok=%d err=%d", result.RecordsRead, result.Successes, result.Errors)
	}

	okLines := readLines(t, cfg.Output)
	if len(okLines) != 3 {
		t.Fatalf("expected 3 success lines, got %d", len(okLines))
	}
	for _, line := range okLines {
		var decoded struct {
			Response json.RawMessage `json:"response"`
			Metadata struct {
				Endpoint  string `json:"endpoint"`
				LatencyMs int64  `json:"latency_ms"`
				Attempts  int    `json:"attempts"`
			} `json:"metadata"`
		}
		if err := json.Unmarshal([]byte(line), &decoded); err != nil {
			t.Fatalf("unparseable success line %q: %v", line, err)
		}
		if decoded.Metadata.Attempts != 1 {
			t.Fatalf("expected attempts=1, got %d", decoded.Metadata.Attempts)
		}
		if decoded.Metadata.Endpoint != srv.URL {
			t.Fatalf("expected endpoint %s, got %s", srv.URL, decoded.Metadata.Endpoint)
		}
		if decoded.Metadata.LatencyMs < 0 {
			t.Fatalf("expected non-negative latency, got %d", decoded.Metadata.LatencyMs)
		}
	}

	if errLines := readLines(t, cfg.Errors); len(errLines) != 0 {
		t.Fatalf("expected empty error file, got %d lines", len(errLines))
	}
}

func TestRunRetriesThrottledRequestThenSucceeds(t *testing.T) {
	var calls int64
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if atomic.AddInt64(&calls, 1) <= 2 {
			w.WriteHeader(http.StatusTooManyRequests)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"ok":true}`))
	}))
	defer srv.Close()

	dir := t.TempDir()
	input := writeInputFile(t, dir, []string{`{"input":"one"}`})
	cfg := testConfig(t, dir, input, []*domain.EndpointSpec{endpointFor(t, srv.URL, 1, 10)}, fastRetry(3))

	result := runPipeline(t, context.Background(), cfg)

	if result.Successes != 1 || result.Errors != 0 {
		t.Fatalf("expected one success, got ok=%d err=%d", result.Successes, result.Errors)
	}
	if result.Retries != 2 {
		t.Fatalf("expected retry counter 2, got %d", result.Retries)
	}

	okLines := readLines(t, cfg.Output)
	if len(okLines) != 1 {
		t.Fatalf("expected 1 success line, got %d", len(okLines))
	}
	var decoded struct {
		Metadata struct {
			Attempts int `json:"attempts"`
		} `json:"metadata"`
	}
	if err := json.Unmarshal([]byte(okLines[0]), &decoded); err != nil {
		t.Fatal(err)
	}
	if decoded.Metadata.Attempts != 3 {
		t.Fatalf("expected attempts=3, got %d", decoded.Metadata.Attempts)
	}
}

func TestRunDoesNotRetryClientError(t *testing.T) {
	var calls int64
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt64(&calls, 1)
		w.WriteHeader(http.StatusBadRequest)
	}))
	defer srv.Close()

	dir := t.TempDir()
	input := writeInputFile(t, dir, []string{`{"input":"one"}`})
	cfg := testConfig(t, dir, input, []*domain.EndpointSpec{endpointFor(t, srv.URL, 1, 10)}, fastRetry(3))

	result := runPipeline(t, context.Background(), cfg)

	if result.Successes != 0 || result.Errors != 1 {
		t.Fatalf("expected one error, got ok=%d err=%d", result.Successes, result.Errors)
	}
	if atomic.LoadInt64(&calls) != 1 {
		t.Fatalf("expected exactly one HTTP call for a 400, got %d", calls)
	}

	errLines := readLines(t, cfg.Errors)
	if len(errLines) != 1 {
		t.Fatalf("expected 1 error line, got %d", len(errLines))
	}
	var decoded struct {
		StatusCode *int `json:"status_code"`
		Attempts   int  `json:"attempts"`
	}
	if err := json.Unmarshal([]byte(errLines[0]), &decoded); err != nil {
		t.Fatal(err)
	}
	if decoded.StatusCode == nil || *decoded.StatusCode != 400 {
		t.Fatalf("expected status_code=400, got %v", decoded.StatusCode)
	}
	if decoded.Attempts != 1 {
		t.Fatalf("expected attempts=1, got %d", decoded.Attempts)
	}
}

func TestRunBalancesByWeight(t *testing.T) {
	okHandler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"ok":true}`))
	})
	srvA := httptest.NewServer(okHandler)
	defer srvA.Close()
	srvB := httptest.NewServer(okHandler)
	defer srvB.Close()

	const records = 400
	lines := make([]string, records)
	for i := range lines {
		lines[i] = `{"input":"r"}`
	}

	dir := t.TempDir()
	input := writeInputFile(t, dir, lines)
	cfg := testConfig(t, dir, input, []*domain.EndpointSpec{
		endpointFor(t, srvA.URL, 3, 50),
		endpointFor(t, srvB.URL, 1, 50),
	}, fastRetry(1))

	result := runPipeline(t, context.Background(), cfg)

	if result.Successes != records {
		t.Fatalf("expected %d successes, got %d", records, result.Successes)
	}

	counts := map[string]int64{}
	for _, ep := range result.PerEndpoint {
		counts[ep.URL] = ep.Successes
	}
	a, b := counts[srvA.URL], counts[srvB.URL]
	if a == 0 || b == 0 {
		t.Fatalf("expected both endpoints to receive traffic, got a=%d b=%d", a, b)
	}
	ratio := float64(a) / float64(b)
	if ratio < 2.0 || ratio > 4.5 {
		t.Fatalf("expected roughly 3:1 split, got a=%d b=%d (ratio %.2f)", a, b, ratio)
	}
}

func TestRunRoutesAroundFailingEndpoint(t *testing.T) {
	failing := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer failing.Close()
	healthy := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"ok":true}`))
	}))
	defer healthy.Close()

	const records = 60
	lines := make([]string, records)
	for i := range lines {
		lines[i] = `{"input":"r"}`
	}

	dir := t.TempDir()
	input := writeInputFile(t, dir, lines)
	cfg := testConfig(t, dir, input, []*domain.EndpointSpec{
		endpointFor(t, failing.URL, 1, 10),
		endpointFor(t, healthy.URL, 1, 10),
	}, fastRetry(3))

	result := runPipeline(t, context.Background(), cfg)

	if result.Successes+result.Errors != records {
		t.Fatalf("accounting broken: ok=%d err=%d read=%d", result.Successes, result.Errors, result.RecordsRead)
	}

	var failingRollup, healthyRollup *EndpointRollup
	for i := range result.PerEndpoint {
		switch result.PerEndpoint[i].URL {
		case failing.URL:
			failingRollup = &result.PerEndpoint[i]
		case healthy.URL:
			healthyRollup = &result.PerEndpoint[i]
		}
	}
	if failingRollup == nil || healthyRollup == nil {
		t.Fatal("expected rollups for both endpoints")
	}
	if healthyRollup.Successes == 0 {
		t.Fatal("expected the healthy endpoint to absorb traffic")
	}
	if failingRollup.Failures < endpointpool.DefaultConsecutiveFailureThreshold {
		t.Fatalf("expected the failing endpoint to accumulate failures, got %d", failingRollup.Failures)
	}
	if failingRollup.FinalState == domain.HealthHealthy.String() {
		t.Fatalf("expected the failing endpoint to leave healthy state, got %s", failingRollup.FinalState)
	}
}

func TestRunAccountsForMalformedLines(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"ok":true}`))
	}))
	defer srv.Close()

	dir := t.TempDir()
	input := writeInputFile(t, dir, []string{
		`{"input":"one"}`,
		`not json at all`,
		`{"body":{"prompt":"two"}}`,
		`{"neither":"shape"}`,
		`{"input":"three"}`,
	})
	cfg := testConfig(t, dir, input, []*domain.EndpointSpec{endpointFor(t, srv.URL, 1, 10)}, fastRetry(2))

	result := runPipeline(t, context.Background(), cfg)

	if result.RecordsRead != 5 {
		t.Fatalf("expected 5 records read, got %d", result.RecordsRead)
	}
	if result.Successes+result.Errors != result.RecordsRead {
		t.Fatalf("every line must reach exactly one output: ok=%d err=%d read=%d",
			result.Successes, result.Errors, result.RecordsRead)
	}

	okLines := readLines(t, cfg.Output)
	errLines := readLines(t, cfg.Errors)
	if len(okLines) != 3 || len(errLines) != 2 {
		t.Fatalf("expected 3 successes and 2 errors, got %d/%d", len(okLines), len(errLines))
	}
	for _, line := range errLines {
		if !strings.Contains(line, "invalid_input") {
			t.Fatalf("expected invalid_input error, got %q", line)
		}
	}
}

func TestRunCancellationLeavesNoTruncatedOutput(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		time.Sleep(150 * time.Millisecond)
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"ok":true}`))
	}))
	defer srv.Close()

	const records = 100
	lines := make([]string, records)
	for i := range lines {
		lines[i] = `{"input":"r"}`
	}

	dir := t.TempDir()
	input := writeInputFile(t, dir, lines)
	cfg := testConfig(t, dir, input, []*domain.EndpointSpec{endpointFor(t, srv.URL, 1, 20)}, fastRetry(1))
	cfg.Workers = 10

	proc, err := New(cfg, quietLogger())
	if err != nil {
		t.Fatalf("new processor: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		time.Sleep(100 * time.Millisecond)
		cancel()
	}()

	done := make(chan error, 1)
	go func() {
		_, runErr := proc.Run(ctx)
		done <- runErr
	}()

	select {
	case runErr := <-done:
		if runErr != nil {
			t.Fatalf("run: %v", runErr)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("run did not shut down after cancellation")
	}

	for _, path := range []string{cfg.Output, cfg.Errors} {
		for _, line := range readLines(t, path) {
			if !json.Valid([]byte(line)) {
				t.Fatalf("truncated or invalid JSON line in %s: %q", path, line)
			}
		}
	}
}
