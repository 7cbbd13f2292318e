// Package endpointpool manages the set of weighted endpoints with their
// health state, dispensing a selected endpoint and a per-endpoint
// concurrency permit to each caller.
package endpointpool

import (
	"context"
	"time"

	"github.com/thushan/blaze/internal/balancer"
	"github.com/thushan/blaze/internal/domain"
)

const (
	// DefaultConsecutiveFailureThreshold is how many failures in a row
	// trip an endpoint into cooling.
	DefaultConsecutiveFailureThreshold = 5
	DefaultBaseCooldown                = time.Second
	DefaultMaxCooldown                 = 60 * time.Second

	// pollInterval is how long Lease sleeps between selection retries
	// while waiting for an endpoint to free up or recover.
	pollInterval = 20 * time.Millisecond
)

// Pool owns every EndpointState for the run and hands out leases.
type Pool struct {
	selector     balancer.Selector
	states       []*domain.EndpointState
	policy       domain.CoolingPolicy
	onTransition func(url string, health domain.Health)
}

type Option func(*Pool)

func WithCoolingPolicy(policy domain.CoolingPolicy) Option {
	return func(p *Pool) { p.policy = policy }
}

// WithTransitionNotifier registers a callback fired once per health
// transition (cooling or recovered). It is invoked synchronously from
// Report, so callers that need it off the hot path should publish onto
// an event bus rather than doing slow work inline. Tick's promotion from
// cooling to degraded fires no callback.
func WithTransitionNotifier(fn func(url string, health domain.Health)) Option {
	return func(p *Pool) { p.onTransition = fn }
}

// New constructs a pool over the given endpoint specs, choosing among
// them with the given selector.
func New(specs []*domain.EndpointSpec, selector balancer.Selector, opts ...Option) *Pool {
	states := make([]*domain.EndpointState, len(specs))
	for i, spec := range specs {
		states[i] = domain.NewEndpointState(spec)
	}

	p := &Pool{
		selector: selector,
		states:   states,
		policy: domain.CoolingPolicy{
			ConsecutiveFailureThreshold: DefaultConsecutiveFailureThreshold,
			BaseCooldown:                DefaultBaseCooldown,
			MaxCooldown:                 DefaultMaxCooldown,
		},
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Handle identifies a leased endpoint; it is a value, not a reference
// back into the pool, so leases never create ownership cycles.
type Handle struct {
	state *domain.EndpointState
}

func (h Handle) URL() string {
	return h.state.Spec.URL.String()
}

func (h Handle) Spec() *domain.EndpointSpec {
	return h.state.Spec
}

// Permit guarantees in_flight release on every exit path: call Release
// exactly once, typically via defer, regardless of success, error, panic
// or cancellation.
type Permit struct {
	state    *domain.EndpointState
	released *bool
}

func (p Permit) Release() {
	if !*p.released {
		*p.released = true
		p.state.Release()
	}
}

// Lease selects a routable endpoint and atomically reserves one of its
// concurrency slots. If none are immediately selectable it re-runs
// selection every pollInterval until one frees up or recovers, or ctx is
// done; releasing a permit does not wake a waiting Lease early.
func (p *Pool) Lease(ctx context.Context) (Handle, Permit, error) {
	start := time.Now()
	p.tickAll(start)

	for {
		if state := p.tryLeaseOnce(); state != nil {
			released := false
			return Handle{state: state}, Permit{state: state, released: &released}, nil
		}

		select {
		case <-ctx.Done():
			if ctx.Err() == context.DeadlineExceeded {
				return Handle{}, Permit{}, &domain.NoEndpointAvailableError{
					Endpoints: len(p.states),
					Waited:    time.Since(start),
				}
			}
			return Handle{}, Permit{}, ctx.Err()
		case <-time.After(pollInterval):
			p.tickAll(time.Now())
		}
	}
}

func (p *Pool) tryLeaseOnce() *domain.EndpointState {
	candidates := make([]balancer.Candidate, len(p.states))
	for i, s := range p.states {
		candidates[i] = balancer.Candidate{State: s}
	}

	state, err := p.selector.Select(context.Background(), candidates)
	if err != nil {
		return nil
	}
	if state.TryAcquire() {
		return state
	}
	// Selector picked an endpoint that lost its slot between the
	// snapshot read and the acquire attempt; try the remaining
	// candidates once each before giving up this round.
	for _, c := range candidates {
		if c.State == state {
			continue
		}
		if c.State.TryAcquire() {
			return c.State
		}
	}
	return nil
}

// Report updates success/failure bookkeeping for a leased endpoint.
// success indicates the attempt's outcome was Ok.
func (p *Pool) Report(h Handle, success bool) {
	if success {
		if h.state.RecordSuccess() && p.onTransition != nil {
			p.onTransition(h.URL(), domain.HealthHealthy)
		}
		return
	}
	if h.state.RecordFailure(time.Now(), p.policy) && p.onTransition != nil {
		p.onTransition(h.URL(), domain.HealthCooling)
	}
}

// Tick promotes any endpoint whose cooldown has elapsed back to
// degraded. Called lazily at Lease and may also be driven by a timer.
func (p *Pool) Tick() {
	p.tickAll(time.Now())
}

func (p *Pool) tickAll(now time.Time) {
	for _, s := range p.states {
		s.Tick(now)
	}
}

// Snapshot returns every endpoint's current state, for Tracker rollups
// and the progress TUI.
func (p *Pool) Snapshot() []EndpointSnapshot {
	out := make([]EndpointSnapshot, len(p.states))
	for i, s := range p.states {
		out[i] = EndpointSnapshot{
			URL:      s.Spec.URL.String(),
			Snapshot: s.Snapshot(),
		}
	}
	return out
}

type EndpointSnapshot struct {
	URL string
	domain.Snapshot
}

// Len reports the number of configured endpoints.
func (p *Pool) Len() int {
	return len(p.states)
}
