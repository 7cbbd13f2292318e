package progress

import (
	"context"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/thushan/blaze/internal/tracker"
)

// Run starts the live progress TUI against the given tracker and
// returns a stop function. Stop blocks until the bubbletea program has
// fully exited, so it is safe to call from a deferred cleanup.
func Run(ctx context.Context, trk *tracker.Tracker, refresh time.Duration) func() {
	if refresh <= 0 {
		refresh = 100 * time.Millisecond
	}

	snapshots := make(chan tracker.Snapshot, 1)
	done := make(chan struct{})

	program := tea.NewProgram(newModel(snapshots, done, refresh))

	pollCtx, cancelPoll := context.WithCancel(ctx)
	go pollSnapshots(pollCtx, trk, refresh, snapshots)

	programDone := make(chan struct{})
	go func() {
		defer close(programDone)
		_, _ = program.Run()
	}()

	return func() {
		close(done)
		cancelPoll()
		<-programDone
	}
}

// pollSnapshots feeds the TUI at a steady cadence independent of the
// worker hot path, so progress rendering never contends with request
// dispatch.
func pollSnapshots(ctx context.Context, trk *tracker.Tracker, refresh time.Duration, out chan<- tracker.Snapshot) {
	ticker := time.NewTicker(refresh)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			select {
			case out <- trk.Snapshot():
			default:
			}
		}
	}
}
