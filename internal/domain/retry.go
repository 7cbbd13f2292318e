package domain

import "time"

// RetryPolicy governs how many attempts a record gets and how backoff
// between attempts is computed. Validated once at config load time.
type RetryPolicy struct {
	MaxAttempts    int
	InitialBackoff time.Duration
	MaxBackoff     time.Duration
	Multiplier     float64
	JitterFraction float64
}

// Validate rejects policies that cannot terminate or cannot back off.
func (p RetryPolicy) Validate() error {
	switch {
	case p.MaxAttempts < 1:
		return &ConfigValidationError{Field: "max_attempts", Value: p.MaxAttempts, Reason: "must be >= 1"}
	case p.Multiplier <= 1.0:
		return &ConfigValidationError{Field: "retry.multiplier", Value: p.Multiplier, Reason: "must be > 1.0"}
	case p.MaxBackoff < p.InitialBackoff:
		return &ConfigValidationError{Field: "retry.max_backoff", Value: p.MaxBackoff, Reason: "must be >= initial_backoff"}
	}
	return nil
}
