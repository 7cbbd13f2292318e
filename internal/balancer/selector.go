// Package balancer implements the endpoint selection strategies,
// pluggable via a small factory keyed by strategy name.
package balancer

import (
	"context"
	"fmt"

	"github.com/thushan/blaze/internal/domain"
)

// Candidate is everything a Selector needs to weigh one endpoint: its
// state, which carries the immutable spec and yields a coherent snapshot
// of current health.
type Candidate struct {
	State *domain.EndpointState
}

// Selector chooses one routable endpoint from a candidate set. Selectors
// are data-driven and hold no reference back to the pool that calls
// them, so leases never form ownership cycles.
type Selector interface {
	Name() string
	Select(ctx context.Context, candidates []Candidate) (*domain.EndpointState, error)
}

var ErrNoneSelectable = fmt.Errorf("no endpoints selectable")

func routable(candidates []Candidate) []Candidate {
	out := make([]Candidate, 0, len(candidates))
	for _, c := range candidates {
		snap := c.State.Snapshot()
		if snap.Health.Routable() && snap.InFlight < int64(c.State.Spec.MaxConcurrent) {
			out = append(out, c)
		}
	}
	return out
}
