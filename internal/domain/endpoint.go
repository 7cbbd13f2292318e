// Package domain holds the plain data types shared across Blaze's
// request pipeline: endpoints, records, attempts and outcomes.
package domain

import (
	"net/url"
	"sync"
	"time"
)

// Health describes the routability of an endpoint as tracked by the
// endpoint pool's cooling state machine.
type Health string

const (
	HealthHealthy  Health = "healthy"
	HealthDegraded Health = "degraded"
	HealthCooling  Health = "cooling"
)

func (h Health) Routable() bool {
	return h != HealthCooling
}

func (h Health) String() string {
	return string(h)
}

// EndpointSpec is the immutable configuration for one upstream endpoint.
type EndpointSpec struct {
	URL           *url.URL
	APIKey        string
	Model         string
	BodyTemplate  string // "messages" builds a chat-shaped body from an input; any other value, including empty, builds a "prompt" body
	Weight        int
	MaxConcurrent int
}

// EndpointState is the mutable sibling of EndpointSpec. Its fields are
// guarded by a per-endpoint mutex and only mutated through the methods
// below, which EndpointPool drives; readers take a consistent copy via
// Snapshot.
type EndpointState struct {
	Spec *EndpointSpec

	mu sync.Mutex

	inFlight            int64
	successes           int64
	failures            int64
	consecutiveFailures int64
	health              Health
	cooldownUntil       time.Time
}

// NewEndpointState constructs a healthy, idle state for the given spec.
func NewEndpointState(spec *EndpointSpec) *EndpointState {
	return &EndpointState{
		Spec:   spec,
		health: HealthHealthy,
	}
}

// Snapshot is a coherent, point-in-time copy suitable for selection and
// for progress rendering.
type Snapshot struct {
	Health              Health
	InFlight            int64
	Successes           int64
	Failures            int64
	ConsecutiveFailures int64
	CooldownUntil       time.Time
}

func (s *EndpointState) Snapshot() Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	return Snapshot{
		Health:              s.health,
		InFlight:            s.inFlight,
		Successes:           s.successes,
		Failures:            s.failures,
		ConsecutiveFailures: s.consecutiveFailures,
		CooldownUntil:       s.cooldownUntil,
	}
}

// TryAcquire increments in_flight iff the endpoint is selectable, i.e.
// not cooling and below its concurrency cap. Returns false if the
// endpoint cannot currently take more work.
func (s *EndpointState) TryAcquire() bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.health == HealthCooling || s.inFlight >= int64(s.Spec.MaxConcurrent) {
		return false
	}
	s.inFlight++
	return true
}

// Release decrements in_flight. Safe to call exactly once per successful
// TryAcquire, on every exit path.
func (s *EndpointState) Release() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.inFlight > 0 {
		s.inFlight--
	}
}

// RecordSuccess resets the failure streak and restores healthy status.
// It returns true the instant the endpoint recovers from a non-healthy
// state, so callers can emit a single recovery event.
func (s *EndpointState) RecordSuccess() (recovered bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.successes++
	s.consecutiveFailures = 0
	wasHealthy := s.health == HealthHealthy
	s.health = HealthHealthy
	return !wasHealthy
}

// CoolingPolicy bundles the tunables that govern when an endpoint trips
// into cooling and for how long.
type CoolingPolicy struct {
	ConsecutiveFailureThreshold int64
	BaseCooldown                time.Duration
	MaxCooldown                 time.Duration
}

// RecordFailure increments the failure streak and, once it reaches the
// policy's threshold, transitions the endpoint to cooling with an
// exponentially scaled cooldown window. Returns true the instant the
// endpoint newly enters cooling (so callers can emit a single event).
func (s *EndpointState) RecordFailure(now time.Time, policy CoolingPolicy) (nowCooling bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.failures++
	s.consecutiveFailures++

	if s.consecutiveFailures < policy.ConsecutiveFailureThreshold {
		return false
	}

	streak := s.consecutiveFailures - policy.ConsecutiveFailureThreshold
	doublings := streak / policy.ConsecutiveFailureThreshold
	cooldown := policy.BaseCooldown * time.Duration(1<<uint(min64(doublings, 20)))
	if cooldown > policy.MaxCooldown {
		cooldown = policy.MaxCooldown
	}

	wasCooling := s.health == HealthCooling
	s.health = HealthCooling
	s.cooldownUntil = now.Add(cooldown)
	return !wasCooling
}

// Tick promotes an endpoint whose cooldown has elapsed back to degraded;
// it becomes healthy again only after its next successful attempt via
// RecordSuccess.
func (s *EndpointState) Tick(now time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.health == HealthCooling && !s.cooldownUntil.After(now) {
		s.health = HealthDegraded
	}
}

func min64(a, b int64) int64 {
	if a < b {
		return a
	}
	return b
}
