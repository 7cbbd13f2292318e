package balancer

import (
	"context"
	"sync/atomic"

	"github.com/thushan/blaze/internal/domain"
)

const DefaultStrategyRoundRobin = "round-robin"

// RoundRobinSelector cycles through routable endpoints in index order:
// an atomic counter mod the routable-set length.
type RoundRobinSelector struct {
	counter uint64
}

func NewRoundRobinSelector() *RoundRobinSelector {
	return &RoundRobinSelector{}
}

func (r *RoundRobinSelector) Name() string { return DefaultStrategyRoundRobin }

func (r *RoundRobinSelector) Select(ctx context.Context, candidates []Candidate) (*domain.EndpointState, error) {
	eligible := routable(candidates)
	if len(eligible) == 0 {
		return nil, ErrNoneSelectable
	}

	current := atomic.AddUint64(&r.counter, 1) - 1
	index := current % uint64(len(eligible))
	return eligible[index].State, nil
}
