// Package scheduler triggers the nightly aggregation run and the periodic
// all-accounts observation sweep. The core jobs are pure with respect to
// scheduling; this package is the external trigger.
package scheduler

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/lumenpulse/analytics-backend/internal/usecase/aggregation"
	"github.com/lumenpulse/analytics-backend/internal/usecase/portfolio"
)

// aggregationGrace is how long after UTC midnight the nightly run fires, so
// the targeted day has fully elapsed even across clock skew between hosts.
const aggregationGrace = 5 * time.Minute

// Scheduler runs the nightly aggregation and the observation sweep until
// stopped.
type Scheduler struct {
	Job           *aggregation.Job
	Recorder      *portfolio.Recorder
	SweepInterval time.Duration
	Logger        *slog.Logger

	wg   sync.WaitGroup
	stop chan struct{}
	once sync.Once
}

// New creates a new Scheduler instance
func New(job *aggregation.Job, recorder *portfolio.Recorder, sweepInterval time.Duration, logger *slog.Logger) *Scheduler {
	return &Scheduler{
		Job:           job,
		Recorder:      recorder,
		SweepInterval: sweepInterval,
		Logger:        logger,
		stop:          make(chan struct{}),
	}
}

// Start launches the trigger loops. It returns immediately; use Stop to shut
// down.
func (s *Scheduler) Start(ctx context.Context) {
	s.wg.Add(2)
	go s.nightlyLoop(ctx)
	go s.sweepLoop(ctx)
}

// Stop halts the trigger loops and waits for in-flight runs to finish.
func (s *Scheduler) Stop() {
	s.once.Do(func() { close(s.stop) })
	s.wg.Wait()
}

func (s *Scheduler) nightlyLoop(ctx context.Context) {
	defer s.wg.Done()

	for {
		next := NextAggregationRun(time.Now())
		s.Logger.Info("nightly aggregation scheduled", "next_run", next)

		timer := time.NewTimer(time.Until(next))
		select {
		case <-s.stop:
			timer.Stop()
			return
		case <-timer.C:
		}

		if _, err := s.Job.RunForYesterday(ctx); err != nil {
			s.Logger.Error("nightly aggregation failed", "error", err)
		}
	}
}

func (s *Scheduler) sweepLoop(ctx context.Context) {
	defer s.wg.Done()

	ticker := time.NewTicker(s.SweepInterval)
	defer ticker.Stop()

	for {
		select {
		case <-s.stop:
			return
		case <-ticker.C:
			if _, err := s.Recorder.RecordAll(ctx); err != nil {
				s.Logger.Error("observation sweep failed", "error", err)
			}
		}
	}
}

// NextAggregationRun returns the next instant the nightly aggregation should
// fire: the first UTC midnight after now, plus a short grace period.
func NextAggregationRun(now time.Time) time.Time {
	u := now.UTC()
	midnight := time.Date(u.Year(), u.Month(), u.Day(), 0, 0, 0, 0, time.UTC).AddDate(0, 0, 1)
	return midnight.Add(aggregationGrace)
}
