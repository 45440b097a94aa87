// Package scheduler drives the aggregation cycle on a fixed interval and
// the retention sweep on a daily schedule.
package scheduler

import (
	"context"
	"log/slog"
	"time"

	"github.com/robfig/cron/v3"
)

// cleanupSchedule runs the retention sweep at 03:00 every day, a far
// coarser cadence than the scrape cycle.
const cleanupSchedule = "0 3 * * *"

// Cycler is the aggregator surface the scheduler drives.
type Cycler interface {
	RunCycle(ctx context.Context) error
	Cleanup(ctx context.Context) error
}

// Scheduler triggers cycles sequentially on a timer. No cycle failure stops
// the loop.
type Scheduler struct {
	agg  Cycler
	tick time.Duration
	log  *slog.Logger
}

// New creates a Scheduler with the given cycle interval.
func New(agg Cycler, tick time.Duration, log *slog.Logger) *Scheduler {
	return &Scheduler{agg: agg, tick: tick, log: log}
}

// Run executes one cycle immediately, then loops until ctx is cancelled.
// Cycles never overlap: each tick waits for the previous cycle to finish.
func (s *Scheduler) Run(ctx context.Context) {
	c := cron.New()
	if _, err := c.AddFunc(cleanupSchedule, func() {
		if err := s.agg.Cleanup(ctx); err != nil {
			s.log.Error("scheduled cleanup", "error", err)
		}
	}); err != nil {
		s.log.Error("register cleanup schedule", "error", err)
	}
	c.Start()
	defer c.Stop()

	s.runCycle(ctx)

	ticker := time.NewTicker(s.tick)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.runCycle(ctx)
		}
	}
}

func (s *Scheduler) runCycle(ctx context.Context) {
	if ctx.Err() != nil {
		return
	}
	if err := s.agg.RunCycle(ctx); err != nil {
		s.log.Error("cycle failed", "error", err)
	}
}
