package tracker

import "testing"

func TestTrackerSnapshotCoherence(t *testing.T) {
	trk := New(0, nil)

	trk.RecordRead()
	trk.RecordRead()
	trk.RecordAttempt(50, 100, 200, 0)
	trk.RecordOutcome(true)
	trk.RecordAttempt(75, 50, 60, 1)
	trk.RecordOutcome(false)

	snap := trk.Snapshot()
	if snap.RecordsTotal != 2 {
		t.Fatalf("expected 2 records read, got %d", snap.RecordsTotal)
	}
	if snap.RecordsDone != 2 {
		t.Fatalf("expected 2 records done, got %d", snap.RecordsDone)
	}
	if snap.Successes != 1 || snap.Errors != 1 {
		t.Fatalf("expected 1 success and 1 error, got successes=%d errors=%d", snap.Successes, snap.Errors)
	}
	if snap.Retries != 1 {
		t.Fatalf("expected 1 retry, got %d", snap.Retries)
	}
	if snap.BytesIn != 150 || snap.BytesOut != 260 {
		t.Fatalf("expected aggregated byte counts, got in=%d out=%d", snap.BytesIn, snap.BytesOut)
	}
}

func TestTrackerThroughputZeroBeforeElapsed(t *testing.T) {
	snap := Snapshot{RecordsDone: 10, Elapsed: 0}
	if snap.Throughput() != 0 {
		t.Fatalf("expected zero throughput for zero elapsed time, got %f", snap.Throughput())
	}
}

func TestLatencyHistogramPercentiles(t *testing.T) {
	h := newLatencyHistogram()
	for i := 1; i <= 100; i++ {
		h.Observe(int64(i))
	}

	p50 := h.Percentile(0.5)
	p99 := h.Percentile(0.99)

	if p50 <= 0 || p50 > 100 {
		t.Fatalf("expected p50 within observed range, got %d", p50)
	}
	if p99 < p50 {
		t.Fatalf("expected p99 >= p50, got p50=%d p99=%d", p50, p99)
	}
}

func TestLatencyHistogramEmpty(t *testing.T) {
	h := newLatencyHistogram()
	if p := h.Percentile(0.5); p != 0 {
		t.Fatalf("expected 0 for an empty histogram, got %d", p)
	}
}

func TestLatencyHistogramClampsOutOfRangeValues(t *testing.T) {
	h := newLatencyHistogram()
	h.Observe(0)
	h.Observe(1_000_000)

	if p := h.Percentile(1.0); p <= 0 {
		t.Fatalf("expected a positive upper bound for clamped max, got %d", p)
	}
}
