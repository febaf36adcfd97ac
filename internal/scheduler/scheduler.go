package scheduler

import (
	"context"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/semaphore"

	"github.com/netradar/netradar/internal/domain"
	"github.com/netradar/netradar/internal/probe"
)

// Sink receives a completed cycle's outcomes. The agent's reporter and
// the collector's local ingest path both satisfy it.
type Sink interface {
	Submit(ctx context.Context, outcomes []domain.CheckOutcome) error
}

const (
	defaultConcurrency  = 6
	defaultProbeTimeout = 15 * time.Second
)

// Runner executes one probe cycle per interval over a fixed target set.
// Cycles never overlap: a slow cycle delays the next one.
type Runner struct {
	Logger      *zap.Logger
	AgentID     string
	Targets     []domain.Target
	Probes      probe.Set
	Sink        Sink
	Interval    time.Duration
	Concurrency int64

	// ProbeTimeout is an outer bound per target; the individual
	// checkers enforce their own tighter protocol timeouts inside it.
	ProbeTimeout time.Duration

	now func() time.Time
}

func NewRunner(logger *zap.Logger, agentID string, targets []domain.Target, probes probe.Set, sink Sink, interval time.Duration, concurrency int) *Runner {
	if concurrency < 1 {
		concurrency = defaultConcurrency
	}
	if interval <= 0 {
		interval = time.Minute
	}
	return &Runner{
		Logger:       logger,
		AgentID:      agentID,
		Targets:      targets,
		Probes:       probes,
		Sink:         sink,
		Interval:     interval,
		Concurrency:  int64(concurrency),
		ProbeTimeout: defaultProbeTimeout,
		now:          time.Now,
	}
}

// Run executes cycles until the context is cancelled. Each cycle starts
// on the next interval boundary (round minutes for the usual 60s
// interval), so distributed agents sample on a shared grid.
func (r *Runner) Run(ctx context.Context) error {
	for {
		next := r.now().Truncate(r.Interval).Add(r.Interval)
		if err := r.sleepUntil(ctx, next); err != nil {
			return err
		}

		outcomes := r.RunCycle(ctx)
		if err := r.Sink.Submit(ctx, outcomes); err != nil {
			// A failed hand-off loses this batch but never the loop.
			r.Logger.Warn("cycle_submit_failed",
				zap.Int("outcomes", len(outcomes)),
				zap.Error(err),
			)
		}
	}
}

// RunCycle probes every target once, at most Concurrency at a time, and
// returns outcomes in completion order.
func (r *Runner) RunCycle(ctx context.Context) []domain.CheckOutcome {
	start := r.now()
	sem := semaphore.NewWeighted(r.Concurrency)
	results := make(chan domain.CheckOutcome, len(r.Targets))

	var wg sync.WaitGroup
	for _, t := range r.Targets {
		wg.Add(1)
		go func(t domain.Target) {
			defer wg.Done()
			if err := sem.Acquire(ctx, 1); err != nil {
				results <- r.synthetic(t, err.Error())
				return
			}
			defer sem.Release(1)
			results <- r.checkOne(ctx, t)
		}(t)
	}
	wg.Wait()
	close(results)

	outcomes := make([]domain.CheckOutcome, 0, len(r.Targets))
	for o := range results {
		outcomes = append(outcomes, o)
	}

	r.Logger.Info("cycle_done",
		zap.Int("targets", len(r.Targets)),
		zap.Duration("took", r.now().Sub(start)),
	)
	return outcomes
}

// checkOne runs a single probe with its own deadline. A probe that
// panics becomes a synthetic offline outcome so one broken target can
// never abort the cycle.
func (r *Runner) checkOne(ctx context.Context, t domain.Target) (outcome domain.CheckOutcome) {
	defer func() {
		if rec := recover(); rec != nil {
			r.Logger.Error("probe_panic",
				zap.String("target", t.Name),
				zap.Any("panic", rec),
			)
			outcome = r.synthetic(t, fmt.Sprint(rec))
		}
	}()

	cctx, cancel := context.WithTimeout(ctx, r.ProbeTimeout)
	defer cancel()

	out := r.Probes.For(t).Check(cctx, t)
	return domain.CheckOutcome{
		AgentID:    r.AgentID,
		TargetName: t.Name,
		Host:       t.Host,
		Type:       t.Type,
		Status:     domain.DeriveStatus(out.Success, out.LatencyMS),
		LatencyMS:  domain.RoundLatency(out.LatencyMS),
		Timestamp:  r.now().UTC(),
		Error:      out.Error,
		Details:    out.Details,
	}
}

func (r *Runner) synthetic(t domain.Target, errText string) domain.CheckOutcome {
	return domain.CheckOutcome{
		AgentID:    r.AgentID,
		TargetName: t.Name,
		Host:       t.Host,
		Type:       t.Type,
		Status:     domain.StatusOffline,
		LatencyMS:  0,
		Timestamp:  r.now().UTC(),
		Error:      errText,
	}
}

func (r *Runner) sleepUntil(ctx context.Context, at time.Time) error {
	d := at.Sub(r.now())
	if d <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
