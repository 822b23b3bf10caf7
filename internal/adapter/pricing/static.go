// Package pricing provides reference-currency price sources and the
// PricingFunc adapter consumed by the core.
package pricing

import (
	"context"

	"github.com/shopspring/decimal"
)

// Source resolves the unit price of an asset in the reference currency.
type Source interface {
	// UnitPrice returns the price of one unit of the asset. Unknown assets
	// price at zero.
	UnitPrice(ctx context.Context, assetCode string, issuer *string) (decimal.Decimal, error)
}

// StaticSource serves unit prices from a fixed in-memory table keyed by
// asset code. It stands in for an external price oracle.
type StaticSource struct {
	prices map[string]decimal.Decimal
}

// NewStaticSource creates a new StaticSource instance
func NewStaticSource(prices map[string]decimal.Decimal) *StaticSource {
	table := make(map[string]decimal.Decimal, len(prices))
	for code, price := range prices {
		table[code] = price
	}
	return &StaticSource{prices: table}
}

// UnitPrice returns the configured price for the asset code, or zero when
// the asset is unknown.
func (s *StaticSource) UnitPrice(_ context.Context, assetCode string, _ *string) (decimal.Decimal, error) {
	price, ok := s.prices[assetCode]
	if !ok {
		return decimal.Zero, nil
	}
	return price, nil
}
