package util

import (
	"testing"
	"time"
)

func TestFullJitterBackoffWithinBounds(t *testing.T) {
	initial := 100 * time.Millisecond
	maxBackoff := time.Second
	multiplier := 2.0

	for attempt := 1; attempt <= 10; attempt++ {
		ceiling := float64(initial) * pow(multiplier, attempt-1)
		if ceiling > float64(maxBackoff) {
			ceiling = float64(maxBackoff)
		}
		for i := 0; i < 20; i++ {
			d := FullJitterBackoff(attempt, initial, maxBackoff, multiplier)
			if d < 0 || float64(d) > ceiling {
				t.Fatalf("attempt %d: backoff %v outside [0, %v]", attempt, d, time.Duration(ceiling))
			}
		}
	}
}

func TestFullJitterBackoffZeroForNonPositiveAttempt(t *testing.T) {
	if d := FullJitterBackoff(0, time.Second, time.Minute, 2.0); d != 0 {
		t.Fatalf("expected 0 backoff for attempt 0, got %v", d)
	}
}

func pow(base float64, exp int) float64 {
	result := 1.0
	for i := 0; i < exp; i++ {
		result *= base
	}
	return result
}
