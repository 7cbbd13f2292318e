package processor

import (
	"time"

	"github.com/thushan/blaze/internal/domain"
)

// Config is everything Processor.Run needs, already resolved from
// internal/config.Config into domain types by the entry point.
type Config struct {
	Input  string
	Output string
	Errors string

	Endpoints []*domain.EndpointSpec
	Strategy  string
	Retry     domain.RetryPolicy

	Rate    int
	Workers int
	Timeout time.Duration

	NoProgress      bool
	ProgressRefresh time.Duration
	DryRun          bool
}

// workChanDepth sizes the bounded channel between the reader and the
// worker pool: deep enough to keep workers fed without letting the
// reader race arbitrarily far ahead of backpressure.
func workChanDepth(workers int) int {
	return workers * 2
}

// outChanDepth sizes the success/error channels feeding the writers.
func outChanDepth(workers int) int {
	return workers * 2
}
