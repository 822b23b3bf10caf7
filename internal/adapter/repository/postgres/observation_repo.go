package postgres

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/lumenpulse/analytics-backend/internal/domain"
)

// observationRepository implements domain.ObservationRepository
type observationRepository struct {
	db *DB
}

// NewObservationRepository creates a new value observation repository
func NewObservationRepository(db *DB) domain.ObservationRepository {
	return &observationRepository{db: db}
}

// Add persists an observation header with all its holdings in a database
// transaction. Observations are append-only; there is no update path.
func (r *observationRepository) Add(ctx context.Context, obs *domain.ValueObservation) error {
	dbTx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer dbTx.Rollback()

	insertObsQuery := `
		INSERT INTO value_observations (id, account_id, observed_at, total_value, source)
		VALUES ($1, $2, $3, $4, $5)
	`

	_, err = dbTx.ExecContext(ctx, insertObsQuery,
		obs.ID,
		obs.AccountID,
		obs.ObservedAt,
		obs.TotalValue.String(),
		string(obs.Source),
	)
	if err != nil {
		return fmt.Errorf("failed to insert observation: %w", err)
	}

	insertHoldingQuery := `
		INSERT INTO observation_holdings (id, observation_id, position, asset_code, issuer, amount, value)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
	`

	for i, holding := range obs.Holdings {
		var issuer interface{}
		if holding.Issuer != nil {
			issuer = *holding.Issuer
		}

		_, err = dbTx.ExecContext(ctx, insertHoldingQuery,
			uuid.New(),
			obs.ID,
			i,
			holding.AssetCode,
			issuer,
			holding.Amount.String(),
			holding.Value.String(),
		)
		if err != nil {
			return fmt.Errorf("failed to insert observation holding: %w", err)
		}
	}

	if err := dbTx.Commit(); err != nil {
		return fmt.Errorf("failed to commit observation: %w", err)
	}

	return nil
}

// ListByAccount retrieves all observations for an account in ascending
// ObservedAt order, with holdings in their original position order.
func (r *observationRepository) ListByAccount(ctx context.Context, accountID uuid.UUID) ([]*domain.ValueObservation, error) {
	query := `
		SELECT id, account_id, observed_at, total_value, source
		FROM value_observations
		WHERE account_id = $1
		ORDER BY observed_at ASC, id ASC
	`

	sqlRows, err := r.db.QueryContext(ctx, query, accountID)
	if err != nil {
		return nil, fmt.Errorf("failed to query observations: %w", err)
	}
	defer sqlRows.Close()

	var observations []*domain.ValueObservation

	for sqlRows.Next() {
		var (
			obs      domain.ValueObservation
			totalStr string
			source   string
		)

		err := sqlRows.Scan(&obs.ID, &obs.AccountID, &obs.ObservedAt, &totalStr, &source)
		if err != nil {
			return nil, fmt.Errorf("failed to scan observation row: %w", err)
		}

		if obs.TotalValue, err = decimal.NewFromString(totalStr); err != nil {
			return nil, fmt.Errorf("failed to parse total_value: %w", err)
		}
		obs.Source = domain.ResolutionSource(source)

		observations = append(observations, &obs)
	}

	if err := sqlRows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate observation rows: %w", err)
	}

	for _, obs := range observations {
		holdings, err := r.loadHoldings(ctx, obs.ID)
		if err != nil {
			return nil, err
		}
		obs.Holdings = holdings
	}

	return observations, nil
}

func (r *observationRepository) loadHoldings(ctx context.Context, observationID uuid.UUID) ([]domain.Holding, error) {
	query := `
		SELECT asset_code, issuer, amount, value
		FROM observation_holdings
		WHERE observation_id = $1
		ORDER BY position ASC
	`

	sqlRows, err := r.db.QueryContext(ctx, query, observationID)
	if err != nil {
		return nil, fmt.Errorf("failed to query observation holdings: %w", err)
	}
	defer sqlRows.Close()

	var holdings []domain.Holding

	for sqlRows.Next() {
		var (
			holding   domain.Holding
			issuer    sql.NullString
			amountStr string
			valueStr  string
		)

		err := sqlRows.Scan(&holding.AssetCode, &issuer, &amountStr, &valueStr)
		if err != nil {
			return nil, fmt.Errorf("failed to scan holding row: %w", err)
		}

		if issuer.Valid {
			issuerStr := issuer.String
			holding.Issuer = &issuerStr
		}
		if holding.Amount, err = decimal.NewFromString(amountStr); err != nil {
			return nil, fmt.Errorf("failed to parse holding amount: %w", err)
		}
		if holding.Value, err = decimal.NewFromString(valueStr); err != nil {
			return nil, fmt.Errorf("failed to parse holding value: %w", err)
		}

		holdings = append(holdings, holding)
	}

	if err := sqlRows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate holding rows: %w", err)
	}

	return holdings, nil
}
