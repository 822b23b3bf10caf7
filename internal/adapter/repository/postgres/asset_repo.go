package postgres

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/lumenpulse/analytics-backend/internal/domain"
)

// assetRepository implements domain.AssetStore
type assetRepository struct {
	db *DB
}

// NewAssetRepository creates a new fallback asset repository
func NewAssetRepository(db *DB) domain.AssetStore {
	return &assetRepository{db: db}
}

// ListHoldings retrieves the last known local holdings for an account.
// Values are left zero; holdings are priced by the recorder.
func (r *assetRepository) ListHoldings(ctx context.Context, accountID uuid.UUID) ([]domain.Holding, error) {
	query := `
		SELECT asset_code, issuer, balance
		FROM account_assets
		WHERE account_id = $1
		ORDER BY asset_code ASC
	`

	sqlRows, err := r.db.QueryContext(ctx, query, accountID)
	if err != nil {
		return nil, fmt.Errorf("failed to query account assets: %w", err)
	}
	defer sqlRows.Close()

	var holdings []domain.Holding

	for sqlRows.Next() {
		var (
			holding    domain.Holding
			issuer     sql.NullString
			balanceStr string
		)

		err := sqlRows.Scan(&holding.AssetCode, &issuer, &balanceStr)
		if err != nil {
			return nil, fmt.Errorf("failed to scan account asset row: %w", err)
		}

		if issuer.Valid {
			issuerStr := issuer.String
			holding.Issuer = &issuerStr
		}
		if holding.Amount, err = decimal.NewFromString(balanceStr); err != nil {
			return nil, fmt.Errorf("failed to parse asset balance: %w", err)
		}

		holdings = append(holdings, holding)
	}

	if err := sqlRows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate account asset rows: %w", err)
	}

	return holdings, nil
}
