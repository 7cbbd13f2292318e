package util

import (
	"math"
	"math/rand"
	"time"
)

// FullJitterBackoff computes a full-jitter exponential backoff duration
// for the given attempt (1-indexed): a uniform draw between 0 and
// min(maxBackoff, initialBackoff*multiplier^(attempt-1)).
func FullJitterBackoff(attempt int, initialBackoff, maxBackoff time.Duration, multiplier float64) time.Duration {
	if attempt <= 0 {
		return 0
	}

	ceiling := float64(initialBackoff) * math.Pow(multiplier, float64(attempt-1))
	if ceiling > float64(maxBackoff) {
		ceiling = float64(maxBackoff)
	}
	if ceiling <= 0 {
		return 0
	}

	return time.Duration(rand.Float64() * ceiling)
}
