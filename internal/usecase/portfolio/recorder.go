package portfolio

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/lumenpulse/analytics-backend/internal/domain"
)

// SweepResult summarizes an all-accounts recording sweep.
type SweepResult struct {
	Succeeded int
	Failed    int
	Fallbacks int
}

// Recorder converts an account's current holdings into one immutable
// timestamped total-value observation.
type Recorder struct {
	Accounts     domain.AccountRepository
	Valuation    domain.ValuationSource
	Assets       domain.AssetStore
	Observations domain.ObservationRepository
	Price        domain.PricingFunc
	Logger       *slog.Logger

	// Now is the clock used to timestamp observations. Overridable in tests.
	Now func() time.Time
}

// NewRecorder creates a new Recorder instance
func NewRecorder(
	accounts domain.AccountRepository,
	valuation domain.ValuationSource,
	assets domain.AssetStore,
	observations domain.ObservationRepository,
	price domain.PricingFunc,
	logger *slog.Logger,
) *Recorder {
	return &Recorder{
		Accounts:     accounts,
		Valuation:    valuation,
		Assets:       assets,
		Observations: observations,
		Price:        price,
		Logger:       logger,
		Now:          time.Now,
	}
}

// Record captures one value observation for an account.
// Logic:
//  1. Resolve the account; a missing account fails fast (no fallback)
//  2. Fetch live holdings from the valuation source; on any source failure,
//     fall back to the last known local holdings. The fallback is tagged on
//     the observation and logged, since it indicates degraded data quality.
//  3. Price each holding and freeze the total
//  4. Persist and return the immutable observation
func (r *Recorder) Record(ctx context.Context, accountID uuid.UUID) (*domain.ValueObservation, error) {
	account, err := r.Accounts.GetByID(ctx, accountID)
	if err != nil {
		return nil, err
	}

	source := domain.ResolutionLive
	holdings, err := r.Valuation.FetchHoldings(ctx, account.StellarAddress)
	if err != nil {
		r.Logger.Warn("live valuation failed, using last known holdings",
			"account_id", accountID,
			"error", err,
		)

		holdings, err = r.Assets.ListHoldings(ctx, accountID)
		if err != nil {
			return nil, fmt.Errorf("failed to resolve holdings for account %s: %w", accountID, err)
		}
		source = domain.ResolutionFallback
	}

	priced := make([]domain.Holding, 0, len(holdings))
	for _, h := range holdings {
		h.Value = r.Price(h.AssetCode, h.Issuer, h.Amount)
		priced = append(priced, h)
	}

	obs := domain.NewValueObservation(accountID, r.Now(), priced, source)

	if err := r.Observations.Add(ctx, obs); err != nil {
		return nil, fmt.Errorf("failed to persist observation for account %s: %w", accountID, err)
	}

	return obs, nil
}

// RecordAll records one observation per known account.
// One account's failure is logged with its identifier, counted, and never
// aborts the sweep; each account is treated independently.
func (r *Recorder) RecordAll(ctx context.Context) (*SweepResult, error) {
	accounts, err := r.Accounts.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list accounts: %w", err)
	}

	result := &SweepResult{}
	for _, account := range accounts {
		obs, err := r.Record(ctx, account.ID)
		if err != nil {
			r.Logger.Error("failed to record observation",
				"account_id", account.ID,
				"error", err,
			)
			result.Failed++
			continue
		}
		if obs.Source == domain.ResolutionFallback {
			result.Fallbacks++
		}
		result.Succeeded++
	}

	r.Logger.Info("observation sweep complete",
		"succeeded", result.Succeeded,
		"failed", result.Failed,
		"fallbacks", result.Fallbacks,
	)

	return result, nil
}
