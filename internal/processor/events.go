package processor

import "github.com/thushan/blaze/internal/domain"

// HealthEvent is published onto the processor's event bus whenever an
// endpoint enters cooling or recovers. Its one consumer is the logging
// subscriber, which keeps that notification work off the worker hot
// path; the progress TUI reads tracker snapshots instead.
type HealthEvent struct {
	Endpoint string
	Health   domain.Health
}
