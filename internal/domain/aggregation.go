package domain

import (
	"errors"
	"fmt"
	"time"

	"github.com/shopspring/decimal"
)

// GroupKey identifies an aggregation group: either a single asset key or the
// global cross-asset group. Modelled as a tagged variant rather than a
// nullable string so the "exactly one global row per day" invariant can be
// checked without sentinel values leaking through the domain layer. The SQL
// mapping (NULL = global) lives entirely in the repository adapters.
type GroupKey struct {
	asset  string
	global bool
}

// GlobalKey returns the key of the cross-asset global group.
func GlobalKey() GroupKey {
	return GroupKey{global: true}
}

// AssetKey returns the key of a per-asset group.
func AssetKey(code string) GroupKey {
	return GroupKey{asset: code}
}

// IsGlobal reports whether the key denotes the global group.
func (k GroupKey) IsGlobal() bool {
	return k.global
}

// Asset returns the asset code for a per-asset key, and the empty string for
// the global key.
func (k GroupKey) Asset() string {
	return k.asset
}

// String returns a human-readable representation, used in logs and errors.
func (k GroupKey) String() string {
	if k.global {
		return "global"
	}
	return k.asset
}

// DailyRollup holds the statistical aggregation of one group's raw signals
// over one UTC calendar day. It is recomputed in full on every job run and
// persisted via upsert; it is never partially updated.
//
// TotalWeight is nil when no signal in the group carried a weight.
// WeightedAvg is nil iff TotalWeight is nil or zero.
type DailyRollup struct {
	SnapshotDate time.Time
	Key          GroupKey
	Avg          decimal.Decimal
	Min          decimal.Decimal
	Max          decimal.Decimal
	Count        int64
	TotalWeight  *decimal.Decimal
	WeightedAvg  *decimal.Decimal
}

// Validate ensures the rollup adheres to domain rules.
// Returns an error if validation fails.
func (r *DailyRollup) Validate() error {
	if r.Count < 0 {
		return errors.New("rollup count cannot be negative")
	}

	// WeightedAvg must be nil exactly when TotalWeight is nil or zero
	weightUsable := r.TotalWeight != nil && r.TotalWeight.GreaterThan(decimal.Zero)
	if weightUsable && r.WeightedAvg == nil {
		return errors.New("rollup with positive total weight must have a weighted average")
	}
	if !weightUsable && r.WeightedAvg != nil {
		return errors.New("rollup without positive total weight cannot have a weighted average")
	}

	return nil
}

// ValidateRollupBatch ensures a full day's rollup set adheres to domain rules:
// exactly one global row, and all per-asset keys distinct.
func ValidateRollupBatch(rows []*DailyRollup) error {
	globals := 0
	seen := make(map[string]bool, len(rows))

	for _, row := range rows {
		if err := row.Validate(); err != nil {
			return err
		}
		if row.Key.IsGlobal() {
			globals++
			continue
		}
		if seen[row.Key.Asset()] {
			return fmt.Errorf("duplicate rollup key %q in batch", row.Key.Asset())
		}
		seen[row.Key.Asset()] = true
	}

	if globals != 1 {
		return fmt.Errorf("rollup batch must contain exactly one global row, found %d", globals)
	}

	return nil
}
