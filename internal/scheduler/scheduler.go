package scheduler

import (
	"context"
	"log/slog"
	"time"

	"github.com/jonboulle/clockwork"

	"bird_alerts/internal/domain"
)

// CycleRunner runs one full notification pass over all subscriptions.
type CycleRunner interface {
	RunCycle(ctx context.Context) (*domain.CycleStats, error)
}

// Scheduler triggers notification cycles on a fixed interval, with one eager
// cycle at startup so a restart does not wait a full interval. Cycles run
// inline on the scheduler goroutine, so two cycles never overlap.
type Scheduler struct {
	runner       CycleRunner
	interval     time.Duration
	cycleTimeout time.Duration
	clock        clockwork.Clock
	logger       *slog.Logger
}

func NewScheduler(runner CycleRunner, interval, cycleTimeout time.Duration, clock clockwork.Clock, logger *slog.Logger) *Scheduler {
	return &Scheduler{
		runner:       runner,
		interval:     interval,
		cycleTimeout: cycleTimeout,
		clock:        clock,
		logger:       logger,
	}
}

func (s *Scheduler) Start(ctx context.Context) error {
	s.logger.Info("scheduler started", "interval", s.interval)

	s.runCycle(ctx)

	ticker := s.clock.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			s.logger.Info("scheduler stopped")
			return ctx.Err()
		case <-ticker.Chan():
			s.runCycle(ctx)
		}
	}
}

func (s *Scheduler) runCycle(ctx context.Context) {
	cycleCtx, cancel := context.WithTimeout(ctx, s.cycleTimeout)
	defer cancel()

	if _, err := s.runner.RunCycle(cycleCtx); err != nil {
		s.logger.Error("cycle failed", "error", err)
	}
}
