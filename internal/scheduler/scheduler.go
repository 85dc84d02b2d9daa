package scheduler

import (
	"context"
	"errors"
	"time"

	"github.com/rs/zerolog"

	"github.com/senoxone/qbshop/internal/logging"
	"github.com/senoxone/qbshop/internal/storage"
)

// TickFunc is invoked on every cycle.
type TickFunc func(ctx context.Context) error

// Options tune scheduler behaviour.
type Options struct {
	Interval     time.Duration
	StartupDelay time.Duration
}

// Scheduler drives fixed-interval refresh cycles. The interval is measured
// from cycle start to cycle start; a slow cycle simply delays the next one.
type Scheduler struct {
	opts   Options
	logger zerolog.Logger
}

// New constructs a Scheduler instance.
func New(opts Options, logger zerolog.Logger) *Scheduler {
	if opts.Interval <= 0 {
		panic("scheduler interval must be positive")
	}
	return &Scheduler{opts: opts, logger: logging.Component(logger, "scheduler")}
}

// Run blocks, invoking the tick function immediately and then at each
// interval until ctx is cancelled. Tick failures are logged, never fatal:
// a lease held elsewhere or a transient site error should not stop the loop.
func (s *Scheduler) Run(ctx context.Context, tick TickFunc) error {
	if s.opts.StartupDelay > 0 {
		if err := wait(ctx, s.opts.StartupDelay); err != nil {
			return err
		}
	}

	ticker := time.NewTicker(s.opts.Interval)
	defer ticker.Stop()

	for {
		s.runTick(ctx, tick)

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
		}
	}
}

func (s *Scheduler) runTick(ctx context.Context, tick TickFunc) {
	start := time.Now()
	s.logger.Info().Msg("executing scheduled tick")

	err := tick(ctx)
	var held *storage.LeaseHeldError
	switch {
	case err == nil:
		s.logger.Debug().Dur("elapsed", time.Since(start)).Msg("tick complete")
	case errors.As(err, &held):
		s.logger.Info().Err(err).Msg("skipping tick, refresh lease held elsewhere")
	case errors.Is(err, context.Canceled):
	default:
		s.logger.Error().Err(err).Msg("tick execution failed")
	}
}

func wait(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
