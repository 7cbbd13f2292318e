package processor

import (
	"context"
	"sync"

	"github.com/thushan/blaze/internal/domain"
	"github.com/thushan/blaze/internal/retry"
	"github.com/thushan/blaze/internal/tracker"
)

// runWorkers fans work out across n goroutines, each driving one record
// at a time through the retry engine and tracker, then handing the
// terminal outcome to the appropriate writer channel. It returns once
// in is closed and every in-flight record has been accounted for.
func runWorkers(ctx context.Context, n int, in <-chan readResult, engine *retry.Engine, trk *tracker.Tracker, okOut, errOut chan<- domain.OutcomeRecord) {
	var wg sync.WaitGroup
	wg.Add(n)
	for i := 0; i < n; i++ {
		go func() {
			defer wg.Done()
			worker(ctx, in, engine, trk, okOut, errOut)
		}()
	}
	wg.Wait()
	close(okOut)
	close(errOut)
}

func worker(ctx context.Context, in <-chan readResult, engine *retry.Engine, trk *tracker.Tracker, okOut, errOut chan<- domain.OutcomeRecord) {
	for item := range in {
		if item.invalid != nil {
			trk.RecordOutcome(false)
			dispatch(ctx, errOut, *item.invalid)
			continue
		}

		outcome := engine.Run(ctx, item.record)
		trk.RecordAttempt(outcome.LatencyMs, outcome.BytesIn, outcome.BytesOut, outcome.Retries())
		trk.RecordOutcome(outcome.Success)

		if outcome.Success {
			dispatch(ctx, okOut, outcome)
		} else {
			dispatch(ctx, errOut, outcome)
		}
	}
}

// dispatch sends to out, but never blocks past ctx cancellation: a
// cancelled run drains workers without stalling on a writer that the
// shutdown path is also tearing down.
func dispatch(ctx context.Context, out chan<- domain.OutcomeRecord, rec domain.OutcomeRecord) {
	select {
	case out <- rec:
	case <-ctx.Done():
	}
}
