// Package retention deletes check records once they age past the
// configured horizon.
package retention

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/netradar/netradar/internal/store"
)

const defaultPeriod = time.Hour

// Sweeper periodically removes records with timestamp < now - horizon.
// Sweeps are idempotent and only touch already-durable old rows, so
// they are safe to run alongside ingestion.
type Sweeper struct {
	Logger  *zap.Logger
	Store   store.Store
	Horizon time.Duration
	Period  time.Duration

	now func() time.Time
}

func NewSweeper(logger *zap.Logger, st store.Store, horizon time.Duration) *Sweeper {
	return &Sweeper{
		Logger:  logger,
		Store:   st,
		Horizon: horizon,
		Period:  defaultPeriod,
		now:     time.Now,
	}
}

// Run sweeps immediately, then once per period until cancelled.
func (s *Sweeper) Run(ctx context.Context) error {
	if s.Horizon <= 0 {
		s.Logger.Info("retention_disabled")
		return nil
	}

	s.sweep(ctx)

	t := time.NewTicker(s.Period)
	defer t.Stop()
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-t.C:
			s.sweep(ctx)
		}
	}
}

// SweepOnce removes everything older than the horizon and reports how
// many rows went.
func (s *Sweeper) SweepOnce(ctx context.Context) (int64, error) {
	cutoff := s.now().UTC().Add(-s.Horizon)
	return s.Store.DeleteBefore(ctx, cutoff)
}

func (s *Sweeper) sweep(ctx context.Context) {
	n, err := s.SweepOnce(ctx)
	if err != nil {
		s.Logger.Warn("retention_sweep_failed", zap.Error(err))
		return
	}
	if n > 0 {
		s.Logger.Info("retention_sweep_done", zap.Int64("removed", n))
	}
}
