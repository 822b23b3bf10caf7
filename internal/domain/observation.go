package domain

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// ResolutionSource tags how an observation's holdings were resolved.
type ResolutionSource string

const (
	// ResolutionLive means holdings came from the ledger valuation source.
	ResolutionLive ResolutionSource = "live"
	// ResolutionFallback means the valuation source failed and the last
	// known local holdings were used instead. Fallback observations are
	// valid data but indicate degraded data quality.
	ResolutionFallback ResolutionSource = "fallback"
)

// Holding is one (asset, amount) position inside an observation.
// Issuer is nil for the network's native asset.
type Holding struct {
	AssetCode string
	Issuer    *string
	Amount    decimal.Decimal
	Value     decimal.Decimal // value in the reference currency at observation time
}

// ValueObservation is one immutable timestamped total-value record for an
// account. TotalValue is the sum of per-holding values at creation time; it
// is a frozen historical fact and is never recomputed.
type ValueObservation struct {
	ID         uuid.UUID
	AccountID  uuid.UUID
	ObservedAt time.Time
	Holdings   []Holding
	TotalValue decimal.Decimal
	Source     ResolutionSource
}

// NewValueObservation builds an observation from priced holdings, freezing
// the total value at creation time.
func NewValueObservation(accountID uuid.UUID, observedAt time.Time, holdings []Holding, source ResolutionSource) *ValueObservation {
	total := decimal.Zero
	for _, h := range holdings {
		total = total.Add(h.Value)
	}

	return &ValueObservation{
		ID:         uuid.New(),
		AccountID:  accountID,
		ObservedAt: observedAt,
		Holdings:   holdings,
		TotalValue: total,
		Source:     source,
	}
}
