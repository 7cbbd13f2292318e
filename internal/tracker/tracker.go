// Package tracker keeps lock-free run accounting and a latency
// histogram, sampled by the progress renderer at >=10Hz.
package tracker

import (
	"sync/atomic"
	"time"

	"github.com/thushan/blaze/internal/endpointpool"
)

// Tracker accumulates counters via atomic ops only, so the hot path
// (one call per record, from any worker goroutine) never blocks on a
// mutex.
type Tracker struct {
	recordsTotal int64
	recordsDone  int64
	successes    int64
	errors       int64
	retries      int64
	bytesIn      int64
	bytesOut     int64

	latency *latencyHistogram

	pool      *endpointpool.Pool
	startedAt time.Time
}

func New(total int64, pool *endpointpool.Pool) *Tracker {
	return &Tracker{
		recordsTotal: total,
		latency:      newLatencyHistogram(),
		pool:         pool,
		startedAt:    time.Now(),
	}
}

// RecordRead bumps the running total as the reader ingests lines, so
// the progress surface can show completion against what has actually
// been read rather than a pre-counted file size.
func (t *Tracker) RecordRead() {
	atomic.AddInt64(&t.recordsTotal, 1)
}

// RecordAttempt folds one record's attempt history into the running
// counters. retries is how many attempts beyond the first the record
// consumed.
func (t *Tracker) RecordAttempt(latencyMs int64, bytesIn, bytesOut int64, retries int) {
	t.latency.Observe(latencyMs)
	atomic.AddInt64(&t.bytesIn, bytesIn)
	atomic.AddInt64(&t.bytesOut, bytesOut)
	if retries > 0 {
		atomic.AddInt64(&t.retries, int64(retries))
	}
}

// RecordOutcome folds one record's terminal outcome into the running
// counters.
func (t *Tracker) RecordOutcome(success bool) {
	atomic.AddInt64(&t.recordsDone, 1)
	if success {
		atomic.AddInt64(&t.successes, 1)
	} else {
		atomic.AddInt64(&t.errors, 1)
	}
}

// Snapshot is an immutable point-in-time view for the progress
// renderer and the final run summary.
type Snapshot struct {
	RecordsTotal int64
	RecordsDone  int64
	Successes    int64
	Errors       int64
	Retries      int64
	BytesIn      int64
	BytesOut     int64
	Elapsed      time.Duration
	P50Ms        int64
	P95Ms        int64
	P99Ms        int64
	Endpoints    []endpointpool.EndpointSnapshot
}

func (t *Tracker) Snapshot() Snapshot {
	snap := Snapshot{
		RecordsTotal: atomic.LoadInt64(&t.recordsTotal),
		RecordsDone:  atomic.LoadInt64(&t.recordsDone),
		Successes:    atomic.LoadInt64(&t.successes),
		Errors:       atomic.LoadInt64(&t.errors),
		Retries:      atomic.LoadInt64(&t.retries),
		BytesIn:      atomic.LoadInt64(&t.bytesIn),
		BytesOut:     atomic.LoadInt64(&t.bytesOut),
		Elapsed:      time.Since(t.startedAt),
		P50Ms:        t.latency.Percentile(0.50),
		P95Ms:        t.latency.Percentile(0.95),
		P99Ms:        t.latency.Percentile(0.99),
	}
	if t.pool != nil {
		snap.Endpoints = t.pool.Snapshot()
	}
	return snap
}

// Throughput returns records/sec done so far.
func (s Snapshot) Throughput() float64 {
	secs := s.Elapsed.Seconds()
	if secs <= 0 {
		return 0
	}
	return float64(s.RecordsDone) / secs
}
