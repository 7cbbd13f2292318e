package ratelimiter

import (
	"context"
	"testing"
	"time"
)

func TestNewRejectsNonPositiveRate(t *testing.T) {
	if _, err := New(0, 5); err == nil {
		t.Fatal("expected an error for rate 0")
	}
	if _, err := New(-1, 5); err == nil {
		t.Fatal("expected an error for a negative rate")
	}
}

func TestNewBurstIsMaxOfRateFractionAndWorkers(t *testing.T) {
	l, err := New(100, 5)
	if err != nil {
		t.Fatalf("new: %v", err)
	}
	if l.Burst() != 10 {
		t.Fatalf("expected burst 10 for rate=100 workers=5, got %d", l.Burst())
	}

	l, err = New(50, 20)
	if err != nil {
		t.Fatalf("new: %v", err)
	}
	if l.Burst() != 20 {
		t.Fatalf("expected burst 20 for rate=50 workers=20, got %d", l.Burst())
	}
}

func TestAcquireReturnsOnCancelledContext(t *testing.T) {
	l, err := New(1, 1)
	if err != nil {
		t.Fatalf("new: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if err := l.Acquire(ctx); err == nil {
		t.Fatal("expected an error from a cancelled context")
	}
}

func TestAcquireBoundsAdmissionRate(t *testing.T) {
	l, err := New(100, 1)
	if err != nil {
		t.Fatalf("new: %v", err)
	}

	deadline := time.Now().Add(300 * time.Millisecond)
	admitted := 0
	for time.Now().Before(deadline) {
		ctx, cancel := context.WithDeadline(context.Background(), deadline)
		if l.Acquire(ctx) != nil {
			cancel()
			break
		}
		cancel()
		admitted++
	}

	// Burst (10) plus ~30 refilled tokens over the window; anything far
	// beyond that means the bucket is not limiting at all.
	if admitted > 80 {
		t.Fatalf("admitted %d permits in 300ms at rate=100/s, limiter not enforcing", admitted)
	}
	if admitted == 0 {
		t.Fatal("expected at least one admission")
	}
}
