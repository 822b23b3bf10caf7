package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"github.com/lumenpulse/analytics-backend/internal/domain"
)

// signalRepository implements domain.RawSignalSource
type signalRepository struct {
	db *DB
}

// NewSignalRepository creates a new raw signal repository
func NewSignalRepository(db *DB) domain.RawSignalSource {
	return &signalRepository{db: db}
}

// QueryDay retrieves all signals recorded on the given UTC calendar day,
// i.e. in [midnight, next midnight).
func (r *signalRepository) QueryDay(ctx context.Context, day time.Time) ([]domain.RawSignal, error) {
	start := domain.DayUTC(day)
	end := start.AddDate(0, 0, 1)

	query := `
		SELECT key, score, weight, recorded_at
		FROM raw_signals
		WHERE recorded_at >= $1 AND recorded_at < $2
	`

	sqlRows, err := r.db.QueryContext(ctx, query, start, end)
	if err != nil {
		return nil, fmt.Errorf("failed to query raw signals: %w", err)
	}
	defer sqlRows.Close()

	var signals []domain.RawSignal

	for sqlRows.Next() {
		var (
			signal   domain.RawSignal
			scoreStr string
			weight   sql.NullString
		)

		err := sqlRows.Scan(&signal.Key, &scoreStr, &weight, &signal.RecordedAt)
		if err != nil {
			return nil, fmt.Errorf("failed to scan raw signal row: %w", err)
		}

		if signal.Score, err = decimal.NewFromString(scoreStr); err != nil {
			return nil, fmt.Errorf("failed to parse signal score: %w", err)
		}
		if signal.Weight, err = parseNullableDecimal(weight); err != nil {
			return nil, fmt.Errorf("failed to parse signal weight: %w", err)
		}

		signals = append(signals, signal)
	}

	if err := sqlRows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate raw signal rows: %w", err)
	}

	return signals, nil
}
