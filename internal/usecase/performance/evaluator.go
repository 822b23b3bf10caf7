package performance

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/lumenpulse/analytics-backend/internal/domain"
)

var oneHundred = decimal.NewFromInt(100)

// Evaluate computes one performance result per configured window, in the
// order the windows were configured.
//
// For each window the baseline is the observation with the maximum ObservedAt
// not exceeding now minus the window's lookback. Observations after that
// target instant are never eligible, even if nominally closer in time, so the
// result always reflects genuine trailing performance. When no observation
// qualifies, HasData is false and all derived fields are nil; CurrentValue is
// populated regardless.
//
// The input need not be sorted; the scan is order-independent, with ties on
// ObservedAt broken by observation ID so identical inputs always yield
// identical outputs.
func Evaluate(currentValue decimal.Decimal, observations []*domain.ValueObservation, windows []domain.Window, now time.Time) []domain.WindowPerformance {
	results := make([]domain.WindowPerformance, 0, len(windows))

	for _, window := range windows {
		target := now.Add(-window.Duration())
		baseline := nearestPreceding(observations, target)

		result := domain.WindowPerformance{
			Window:       window,
			CurrentValue: currentValue,
		}

		if baseline != nil {
			result.HasData = true

			baselineValue := baseline.TotalValue
			baselineAt := baseline.ObservedAt
			result.BaselineValue = &baselineValue
			result.BaselineObservedAt = &baselineAt

			absolutePnl := currentValue.Sub(baselineValue).Round(2)
			result.AbsolutePnl = &absolutePnl

			// A zero baseline reports a defined zero percentage rather
			// than failing on division by zero.
			percentageChange := decimal.Zero
			if !baselineValue.IsZero() {
				percentageChange = absolutePnl.Div(baselineValue).Mul(oneHundred).Round(4)
			}
			result.PercentageChange = &percentageChange
		}

		results = append(results, result)
	}

	return results
}

// nearestPreceding returns the observation with the maximum ObservedAt at or
// before target, or nil when none qualifies.
func nearestPreceding(observations []*domain.ValueObservation, target time.Time) *domain.ValueObservation {
	var best *domain.ValueObservation

	for _, obs := range observations {
		if obs.ObservedAt.After(target) {
			continue
		}
		if best == nil || obs.ObservedAt.After(best.ObservedAt) {
			best = obs
			continue
		}
		// Tie on ObservedAt: prefer the larger ID so the choice does not
		// depend on input order.
		if obs.ObservedAt.Equal(best.ObservedAt) && obs.ID.String() > best.ID.String() {
			best = obs
		}
	}

	return best
}

// Service evaluates trailing performance for stored accounts.
type Service struct {
	Observations domain.ObservationRepository
	Windows      []domain.Window
}

// NewService creates a new Service instance with the canonical windows.
func NewService(observations domain.ObservationRepository) *Service {
	return &Service{
		Observations: observations,
		Windows:      domain.DefaultWindows(),
	}
}

// EvaluateAccount loads an account's observation history and evaluates the
// configured windows against it.
func (s *Service) EvaluateAccount(ctx context.Context, accountID uuid.UUID, currentValue decimal.Decimal, now time.Time) ([]domain.WindowPerformance, error) {
	observations, err := s.Observations.ListByAccount(ctx, accountID)
	if err != nil {
		return nil, fmt.Errorf("failed to load observations for account %s: %w", accountID, err)
	}

	return Evaluate(currentValue, observations, s.Windows, now), nil
}
