package matchmaking

import (
	"context"
	"errors"
	"log/slog"
	"time"
)

// Scheduler runs a Cycle on a fixed interval until its context ends
type Scheduler struct {
	cycle    *Cycle
	interval time.Duration
	timeout  time.Duration
	logger   *slog.Logger
}

// NewScheduler creates a Scheduler. Each cycle gets at most timeout to finish;
// a non-positive timeout means the interval.
func NewScheduler(cycle *Cycle, interval, timeout time.Duration, logger *slog.Logger) *Scheduler {
	if timeout <= 0 {
		timeout = interval
	}
	return &Scheduler{
		cycle:    cycle,
		interval: interval,
		timeout:  timeout,
		logger:   logger,
	}
}

// Run blocks until ctx is done. A non-positive interval returns at once.
func (s *Scheduler) Run(ctx context.Context) {
	if s.interval <= 0 {
		s.logger.Info("matchmaking scheduler disabled")
		return
	}
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	s.logger.Info("matchmaking scheduler started", slog.Duration("interval", s.interval))
	for {
		select {
		case <-ctx.Done():
			s.logger.Info("matchmaking scheduler stopped")
			return
		case <-ticker.C:
			s.tick(ctx)
		}
	}
}

func (s *Scheduler) tick(ctx context.Context) {
	cctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	if _, err := s.cycle.Run(cctx); err != nil {
		if ctx.Err() != nil {
			return
		}
		level := slog.LevelError
		if errors.Is(err, context.DeadlineExceeded) {
			level = slog.LevelWarn
		}
		s.logger.Log(ctx, level, "matchmaking cycle failed", slog.String("error", err.Error()))
	}
}
