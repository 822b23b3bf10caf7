package aggregation

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/lumenpulse/analytics-backend/internal/domain"
)

// RunResult summarizes one date's aggregation run.
type RunResult struct {
	Date                 time.Time
	NonGlobalRowsWritten int
	GlobalRowWritten     bool
	Duration             time.Duration
}

// Job orchestrates the daily aggregation pipeline: engine -> snapshot store.
// Scheduling is an external concern; every run is a pure function of the
// day's raw data, so re-running any date is always safe.
type Job struct {
	Engine    *Engine
	Snapshots domain.SnapshotRepository
	Logger    *slog.Logger

	// Now is the clock used to resolve "yesterday" and measure durations.
	// Overridable in tests.
	Now func() time.Time
}

// NewJob creates a new Job instance
func NewJob(engine *Engine, snapshots domain.SnapshotRepository, logger *slog.Logger) *Job {
	return &Job{
		Engine:    engine,
		Snapshots: snapshots,
		Logger:    logger,
		Now:       time.Now,
	}
}

// RunForDate aggregates one UTC calendar day and upserts the result.
// Logic:
//  1. Normalize the date to UTC midnight (time-of-day is dropped)
//  2. Aggregate the day's raw signals
//  3. If non-empty, upsert all rows in a single batch; else record a
//     zero-write result
//
// Re-running the same date overwrites rather than duplicates: the upsert is
// keyed by (date, key). Exactly one aggregation read and at most one batch
// write happen per invocation; no retries are performed here.
func (j *Job) RunForDate(ctx context.Context, date time.Time) (*RunResult, error) {
	day := domain.DayUTC(date)
	started := j.Now()

	rows, err := j.Engine.Aggregate(ctx, day)
	if err != nil {
		return nil, fmt.Errorf("aggregation failed for %s: %w", day.Format("2006-01-02"), err)
	}

	result := &RunResult{Date: day}

	if len(rows) > 0 {
		if _, err := j.Snapshots.Upsert(ctx, day, rows); err != nil {
			return nil, fmt.Errorf("snapshot upsert failed for %s: %w", day.Format("2006-01-02"), err)
		}

		for _, row := range rows {
			if row.Key.IsGlobal() {
				result.GlobalRowWritten = true
			} else {
				result.NonGlobalRowsWritten++
			}
		}
	}

	result.Duration = j.Now().Sub(started)

	j.Logger.Info("daily aggregation run complete",
		"date", day.Format("2006-01-02"),
		"non_global_rows", result.NonGlobalRowsWritten,
		"global_row", result.GlobalRowWritten,
		"duration", result.Duration,
	)

	return result, nil
}

// RunForYesterday aggregates the previous UTC calendar day. This is the
// canonical nightly entry point; it must be triggered only after the UTC day
// boundary it targets has fully elapsed.
func (j *Job) RunForYesterday(ctx context.Context) (*RunResult, error) {
	yesterday := domain.DayUTC(j.Now()).AddDate(0, 0, -1)
	return j.RunForDate(ctx, yesterday)
}

// RunBackfill aggregates every calendar day from from to to, inclusive, in
// ascending date order. If from is after to, it returns an empty result
// without performing any work.
//
// Day-level failures are not isolated here: an error on any day halts the
// backfill and propagates, identifying the failing date. Days already
// processed are durable (each day's upsert is committed independently), so
// callers resume from the last successful date. The results collected before
// the failure are returned alongside the error.
func (j *Job) RunBackfill(ctx context.Context, from, to time.Time) ([]*RunResult, error) {
	start := domain.DayUTC(from)
	end := domain.DayUTC(to)

	if start.After(end) {
		return nil, nil
	}

	var results []*RunResult
	for day := start; !day.After(end); day = day.AddDate(0, 0, 1) {
		result, err := j.RunForDate(ctx, day)
		if err != nil {
			return results, fmt.Errorf("backfill halted at %s: %w", day.Format("2006-01-02"), err)
		}
		results = append(results, result)
	}

	return results, nil
}
