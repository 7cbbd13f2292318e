// Package processor is the orchestrator: it wires together the rate
// limiter, endpoint pool, HTTP client and retry engine into a
// reader -> workers -> writers pipeline over one input file.
package processor

import (
	"context"
	"sync"
	"time"

	"github.com/thushan/blaze/internal/balancer"
	"github.com/thushan/blaze/internal/domain"
	"github.com/thushan/blaze/internal/endpointpool"
	"github.com/thushan/blaze/internal/httpclient"
	"github.com/thushan/blaze/internal/logger"
	"github.com/thushan/blaze/internal/progress"
	"github.com/thushan/blaze/internal/ratelimiter"
	"github.com/thushan/blaze/internal/retry"
	"github.com/thushan/blaze/internal/tracker"
	"github.com/thushan/blaze/pkg/eventbus"
	"github.com/thushan/blaze/pkg/format"
)

// Processor owns one run's worth of wired components. It is built fresh
// for every invocation; there is no cross-run reuse.
type Processor struct {
	cfg     Config
	log     *logger.StyledLogger
	pool    *endpointpool.Pool
	client  *httpclient.Client
	tracker *tracker.Tracker
	events  *eventbus.EventBus[HealthEvent]
}

// New constructs every component a run needs but starts nothing. Run
// attaches the HealthEvent bus's one subscriber, the health logger.
func New(cfg Config, log *logger.StyledLogger) (*Processor, error) {
	if len(cfg.Endpoints) == 0 {
		return nil, &domain.ConfigValidationError{Field: "endpoints", Value: nil, Reason: "must not be empty"}
	}
	if err := cfg.Retry.Validate(); err != nil {
		return nil, err
	}

	factory := balancer.NewFactory()
	strategy := cfg.Strategy
	if strategy == "" {
		strategy = balancer.DefaultStrategyWeighted
	}
	selector, err := factory.Create(strategy)
	if err != nil {
		return nil, err
	}

	events := eventbus.New[HealthEvent]()

	pool := endpointpool.New(cfg.Endpoints, selector, endpointpool.WithTransitionNotifier(func(url string, health domain.Health) {
		events.PublishAsync(HealthEvent{Endpoint: url, Health: health})
	}))

	p := &Processor{
		cfg:     cfg,
		log:     log,
		pool:    pool,
		client:  httpclient.New(cfg.Timeout),
		tracker: tracker.New(0, pool),
		events:  events,
	}
	return p, nil
}

// subscribeHealthLog attaches a logging subscriber to the health event
// bus; it runs for the lifetime of ctx and is the decoupled counterpart
// to endpointpool's synchronous onTransition callback.
func (p *Processor) subscribeHealthLog(ctx context.Context) {
	ch, _ := p.events.Subscribe(ctx)
	go func() {
		for ev := range ch {
			switch ev.Health {
			case domain.HealthCooling:
				p.log.WarnWithEndpoint("endpoint entered cooling", ev.Endpoint)
			case domain.HealthHealthy:
				p.log.InfoHealthStatus("endpoint recovered", ev.Endpoint, ev.Health)
			}
		}
	}()
}

// runProgress launches the live TUI and returns a func that tears it
// down. When progress is disabled, runProgress itself isn't called;
// Run falls back to runPlainSummary's periodic log lines instead.
func (p *Processor) runProgress(ctx context.Context) func() {
	return progress.Run(ctx, p.tracker, p.cfg.ProgressRefresh)
}

// runPlainSummary is the --no-progress fallback: one log line every
// second, rather than a TUI redraw loop.
func (p *Processor) runPlainSummary(ctx context.Context) func() {
	stop := make(chan struct{})
	go func() {
		ticker := time.NewTicker(time.Second)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-stop:
				return
			case <-ticker.C:
				snap := p.tracker.Snapshot()
				p.log.InfoWithNumbers("processed %d of %d records", snap.RecordsDone, snap.RecordsTotal)

				var healthy, degraded, cooling int
				for _, ep := range snap.Endpoints {
					switch ep.Health {
					case domain.HealthHealthy:
						healthy++
					case domain.HealthDegraded:
						degraded++
					case domain.HealthCooling:
						cooling++
					}
				}
				if degraded > 0 || cooling > 0 {
					p.log.InfoWithHealthStats("endpoint health", healthy, degraded, cooling,
						"up", format.EndpointsUp(healthy, len(snap.Endpoints)))
				}
			}
		}
	}()
	return func() { close(stop) }
}

// Run executes the full pipeline to completion or cancellation and
// returns a summary. A non-nil error is always fatal (I/O failure or a
// config problem caught late); per-record failures are folded into the
// Result counters instead.
func (p *Processor) Run(ctx context.Context) (*Result, error) {
	defer p.client.CloseIdleConnections()
	defer p.events.Shutdown()

	p.subscribeHealthLog(ctx)

	limiter, err := ratelimiter.New(p.cfg.Rate, p.cfg.Workers)
	if err != nil {
		return nil, err
	}
	engine := retry.New(p.pool, p.client, limiter, p.cfg.Retry)

	start := time.Now()

	workCh := make(chan readResult, workChanDepth(p.cfg.Workers))
	okCh := make(chan domain.OutcomeRecord, outChanDepth(p.cfg.Workers))
	errCh := make(chan domain.OutcomeRecord, outChanDepth(p.cfg.Workers))

	var (
		wg          sync.WaitGroup
		readErr     error
		writeOkErr  error
		writeErrErr error
		recordsRead int64
	)

	wg.Add(1)
	go func() {
		defer wg.Done()
		defer close(workCh)
		recordsRead, readErr = readInput(ctx, p.cfg.Input, p.tracker, workCh)
	}()

	wg.Add(1)
	go func() {
		defer wg.Done()
		runWorkers(ctx, p.cfg.Workers, workCh, engine, p.tracker, okCh, errCh)
	}()

	wg.Add(1)
	go func() {
		defer wg.Done()
		writeOkErr = runWriter(p.cfg.Output, okCh)
	}()

	wg.Add(1)
	go func() {
		defer wg.Done()
		writeErrErr = runWriter(p.cfg.Errors, errCh)
	}()

	if p.cfg.NoProgress {
		stop := p.runPlainSummary(ctx)
		defer stop()
	} else {
		stop := p.runProgress(ctx)
		defer stop()
	}

	wg.Wait()

	if readErr != nil {
		return nil, readErr
	}
	if writeOkErr != nil {
		return nil, writeOkErr
	}
	if writeErrErr != nil {
		return nil, writeErrErr
	}

	snap := p.tracker.Snapshot()
	result := &Result{
		RecordsRead: recordsRead,
		Successes:   snap.Successes,
		Errors:      snap.Errors,
		Retries:     snap.Retries,
		WallTime:    time.Since(start),
		P50Ms:       snap.P50Ms,
		P95Ms:       snap.P95Ms,
		P99Ms:       snap.P99Ms,
	}
	for _, ep := range snap.Endpoints {
		result.PerEndpoint = append(result.PerEndpoint, EndpointRollup{
			URL:        ep.URL,
			Successes:  ep.Successes,
			Failures:   ep.Failures,
			FinalState: ep.Health.String(),
		})
	}
	return result, nil
}
