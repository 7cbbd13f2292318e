package balancer

import (
	"context"
	"math/rand"
	"sort"

	"github.com/thushan/blaze/internal/domain"
)

const DefaultStrategyWeighted = "weighted"

// WeightedSelector performs prefix-sum weighted selection over routable
// endpoints: cumulative weights are built once per call and a single
// binary search over them resolves a uniform draw, keeping selection
// O(log n) in the endpoint count. Ties (equal cumulative weight) are
// broken by endpoint index order, which is how the slice is built.
type WeightedSelector struct{}

func NewWeightedSelector() *WeightedSelector {
	return &WeightedSelector{}
}

func (w *WeightedSelector) Name() string { return DefaultStrategyWeighted }

func (w *WeightedSelector) Select(ctx context.Context, candidates []Candidate) (*domain.EndpointState, error) {
	eligible := routable(candidates)
	if len(eligible) == 0 {
		return nil, ErrNoneSelectable
	}
	if len(eligible) == 1 {
		return eligible[0].State, nil
	}

	cumulative := make([]int, len(eligible))
	total := 0
	for i, c := range eligible {
		total += c.State.Spec.Weight
		cumulative[i] = total
	}

	draw := rand.Intn(total) + 1
	idx := sort.SearchInts(cumulative, draw)
	if idx >= len(eligible) {
		idx = len(eligible) - 1
	}
	return eligible[idx].State, nil
}
