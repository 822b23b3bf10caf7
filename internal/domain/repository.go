package domain

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// SnapshotRepository defines the interface for daily rollup persistence.
// It is the only component allowed to mutate persisted rollups.
type SnapshotRepository interface {
	// Upsert writes a full day's rollup batch atomically and returns the
	// number of rows written. On conflict of the (date, key) identity all
	// statistic columns and the update timestamp are overwritten; the row
	// identity and creation timestamp are preserved. An empty batch is a
	// no-op returning 0; the job layer guards against invoking it.
	Upsert(ctx context.Context, date time.Time, rows []*DailyRollup) (int, error)

	// FindByDate retrieves all rollups for a date, global row first, then
	// per-asset keys in ascending order.
	FindByDate(ctx context.Context, date time.Time) ([]*DailyRollup, error)

	// FindByKeyAndDateRange retrieves one group's rollups over an inclusive
	// date range, in ascending date order.
	FindByKeyAndDateRange(ctx context.Context, key GroupKey, from, to time.Time) ([]*DailyRollup, error)
}

// RawSignalSource defines the interface for reading raw signal records.
type RawSignalSource interface {
	// QueryDay returns all signals whose timestamp falls on the given UTC
	// calendar day (midnight-to-midnight).
	QueryDay(ctx context.Context, day time.Time) ([]RawSignal, error)
}

// ObservationRepository defines the interface for value observation
// persistence. Observations are append-only: the core never updates or
// deletes them.
type ObservationRepository interface {
	// Add persists a new observation with all its holdings.
	Add(ctx context.Context, obs *ValueObservation) error

	// ListByAccount retrieves all observations for an account in ascending
	// ObservedAt order.
	ListByAccount(ctx context.Context, accountID uuid.UUID) ([]*ValueObservation, error)
}

// AccountRepository defines the interface for account lookups.
type AccountRepository interface {
	// GetByID retrieves an account by its ID.
	// Returns an error wrapping ErrAccountNotFound if it does not exist.
	GetByID(ctx context.Context, id uuid.UUID) (*Account, error)

	// List retrieves all accounts.
	List(ctx context.Context) ([]*Account, error)
}

// ValuationSource defines the external interface for fetching an account's
// live holdings from the ledger network. Implementations must distinguish
// a missing ledger account (ErrAccountNotFound) from an unreachable source
// (ErrSourceUnavailable) via errors.Is.
type ValuationSource interface {
	FetchHoldings(ctx context.Context, stellarAddress string) ([]Holding, error)
}

// AssetStore defines the interface for the last known local holdings of an
// account, used as the fallback when the valuation source fails.
type AssetStore interface {
	ListHoldings(ctx context.Context, accountID uuid.UUID) ([]Holding, error)
}

// PricingFunc converts a holding into its value in the reference currency.
// Implementations are synchronous from the core's perspective and may return
// zero for unknown assets.
type PricingFunc func(assetCode string, issuer *string, amount decimal.Decimal) decimal.Decimal
