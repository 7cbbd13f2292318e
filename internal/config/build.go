package config

import (
	"fmt"
	"net/url"
	"time"

	"github.com/thushan/blaze/internal/domain"
)

// BuildEndpointSpecs turns the resolved endpoint configs into immutable
// domain.EndpointSpec values, parsing and validating each URL.
func BuildEndpointSpecs(cfg *Config) ([]*domain.EndpointSpec, error) {
	specs := make([]*domain.EndpointSpec, 0, len(cfg.Endpoints))
	for i, ep := range cfg.Endpoints {
		parsed, err := url.Parse(ep.URL)
		if err != nil {
			return nil, fmt.Errorf("endpoints[%d].url %q: %w", i, ep.URL, err)
		}
		weight := ep.Weight
		if weight < 1 {
			weight = 1
		}
		maxConcurrent := ep.MaxConcurrent
		if maxConcurrent < 1 {
			maxConcurrent = cfg.Workers
		}
		specs = append(specs, &domain.EndpointSpec{
			URL:           parsed,
			APIKey:        ep.APIKey,
			Model:         ep.Model,
			BodyTemplate:  ep.BodyTemplate,
			Weight:        weight,
			MaxConcurrent: maxConcurrent,
		})
	}
	return specs, nil
}

// BuildRetryPolicy derives the domain.RetryPolicy from the resolved
// config, applying the default jitter fraction of 1.0 (full jitter)
// since the CLI surface does not expose a separate tunable for it.
func BuildRetryPolicy(cfg *Config) domain.RetryPolicy {
	maxAttempts := cfg.Retry.MaxAttempts
	if maxAttempts < 1 {
		maxAttempts = cfg.MaxAttempts
	}
	initial := cfg.Retry.InitialBackoff
	if initial <= 0 {
		initial = DefaultInitialBackoff
	}
	maxBackoff := cfg.Retry.MaxBackoff
	if maxBackoff <= 0 {
		maxBackoff = DefaultMaxBackoff
	}
	multiplier := cfg.Retry.Multiplier
	if multiplier <= 1.0 {
		multiplier = DefaultMultiplier
	}

	return domain.RetryPolicy{
		MaxAttempts:    maxAttempts,
		InitialBackoff: initial,
		MaxBackoff:     maxBackoff,
		Multiplier:     multiplier,
		JitterFraction: DefaultJitterFraction,
	}
}

// RequestTimeout resolves the per-attempt timeout, defaulting if unset.
func RequestTimeout(cfg *Config) time.Duration {
	if cfg.Timeout <= 0 {
		return DefaultTimeout
	}
	return cfg.Timeout
}
