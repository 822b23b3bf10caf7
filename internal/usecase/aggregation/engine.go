package aggregation

import (
	"context"
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"github.com/lumenpulse/analytics-backend/internal/domain"
)

// Engine computes daily statistical rollups from raw signal records.
type Engine struct {
	Source domain.RawSignalSource
}

// NewEngine creates a new Engine instance
func NewEngine(source domain.RawSignalSource) *Engine {
	return &Engine{Source: source}
}

// Aggregate computes one rollup per distinct key observed on the given UTC
// calendar day, plus one global rollup over all of the day's signals.
// Logic:
//  1. Pull all raw signals for the day
//  2. Accumulate per-key statistics and global statistics in a single pass
//  3. Finalize: avg, min, max, count, total weight, weighted average
//
// A day with zero signals yields an empty result; callers use that as the
// signal to skip writing. Output order is insignificant.
func (e *Engine) Aggregate(ctx context.Context, date time.Time) ([]*domain.DailyRollup, error) {
	day := domain.DayUTC(date)

	signals, err := e.Source.QueryDay(ctx, day)
	if err != nil {
		return nil, fmt.Errorf("failed to query signals for %s: %w", day.Format("2006-01-02"), err)
	}

	if len(signals) == 0 {
		return nil, nil
	}

	global := newAccumulator()
	perKey := make(map[string]*accumulator)

	for _, sig := range signals {
		acc, ok := perKey[sig.Key]
		if !ok {
			acc = newAccumulator()
			perKey[sig.Key] = acc
		}
		acc.add(sig)
		global.add(sig)
	}

	rows := make([]*domain.DailyRollup, 0, len(perKey)+1)
	for key, acc := range perKey {
		rows = append(rows, acc.finalize(day, domain.AssetKey(key)))
	}
	rows = append(rows, global.finalize(day, domain.GlobalKey()))

	if err := domain.ValidateRollupBatch(rows); err != nil {
		return nil, fmt.Errorf("invalid rollup batch for %s: %w", day.Format("2006-01-02"), err)
	}

	return rows, nil
}

// accumulator collects one group's running statistics during the single
// aggregation pass.
type accumulator struct {
	count       int64
	scoreSum    decimal.Decimal
	min         decimal.Decimal
	max         decimal.Decimal
	weightSum   decimal.Decimal
	weightedSum decimal.Decimal // sum of score*weight over weighted signals
	hasWeight   bool
}

func newAccumulator() *accumulator {
	return &accumulator{}
}

func (a *accumulator) add(sig domain.RawSignal) {
	if a.count == 0 {
		a.min = sig.Score
		a.max = sig.Score
	} else {
		if sig.Score.LessThan(a.min) {
			a.min = sig.Score
		}
		if sig.Score.GreaterThan(a.max) {
			a.max = sig.Score
		}
	}

	a.count++
	a.scoreSum = a.scoreSum.Add(sig.Score)

	if sig.Weight != nil {
		a.hasWeight = true
		a.weightSum = a.weightSum.Add(*sig.Weight)
		a.weightedSum = a.weightedSum.Add(sig.Score.Mul(*sig.Weight))
	}
}

func (a *accumulator) finalize(day time.Time, key domain.GroupKey) *domain.DailyRollup {
	rollup := &domain.DailyRollup{
		SnapshotDate: day,
		Key:          key,
		Avg:          a.scoreSum.Div(decimal.NewFromInt(a.count)),
		Min:          a.min,
		Max:          a.max,
		Count:        a.count,
	}

	if a.hasWeight {
		totalWeight := a.weightSum
		rollup.TotalWeight = &totalWeight

		// Weighted average is only defined for a positive weight sum;
		// zero-weight groups keep it nil.
		if a.weightSum.GreaterThan(decimal.Zero) {
			weightedAvg := a.weightedSum.Div(a.weightSum)
			rollup.WeightedAvg = &weightedAvg
		}
	}

	return rollup
}
