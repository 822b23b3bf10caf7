package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/lumenpulse/analytics-backend/internal/domain"
)

// rollupRepository implements domain.SnapshotRepository
type rollupRepository struct {
	db *DB
}

// NewSnapshotRepository creates a new daily snapshot repository
func NewSnapshotRepository(db *DB) domain.SnapshotRepository {
	return &rollupRepository{db: db}
}

// Upsert writes a full day's rollup batch in one database transaction.
// Conflicts on the (snapshot_date, key) unique constraint overwrite the
// statistic columns and updated_at while preserving id and created_at, so
// re-running a date converges on one row per (date, key). The global group
// is stored with key NULL; the constraint treats NULLs as not distinct.
func (r *rollupRepository) Upsert(ctx context.Context, date time.Time, rows []*domain.DailyRollup) (int, error) {
	if len(rows) == 0 {
		return 0, nil
	}

	day := domain.DayUTC(date)

	dbTx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer dbTx.Rollback()

	query := `
		INSERT INTO daily_snapshots
			(id, snapshot_date, key, avg_score, min_score, max_score, signal_count, total_weight, weighted_avg, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, NOW(), NOW())
		ON CONFLICT (snapshot_date, key) DO UPDATE SET
			avg_score    = EXCLUDED.avg_score,
			min_score    = EXCLUDED.min_score,
			max_score    = EXCLUDED.max_score,
			signal_count = EXCLUDED.signal_count,
			total_weight = EXCLUDED.total_weight,
			weighted_avg = EXCLUDED.weighted_avg,
			updated_at   = NOW()
	`

	for _, row := range rows {
		_, err = dbTx.ExecContext(ctx, query,
			uuid.New(),
			day,
			keyColumn(row.Key),
			row.Avg.String(),
			row.Min.String(),
			row.Max.String(),
			row.Count,
			nullableDecimal(row.TotalWeight),
			nullableDecimal(row.WeightedAvg),
		)
		if err != nil {
			return 0, fmt.Errorf("failed to upsert rollup for key %s: %w", row.Key, err)
		}
	}

	if err := dbTx.Commit(); err != nil {
		return 0, fmt.Errorf("failed to commit rollup batch: %w", err)
	}

	return len(rows), nil
}

// FindByDate retrieves all rollups for a date: the global row first, then
// per-asset keys in ascending order.
func (r *rollupRepository) FindByDate(ctx context.Context, date time.Time) ([]*domain.DailyRollup, error) {
	query := `
		SELECT snapshot_date, key, avg_score, min_score, max_score, signal_count, total_weight, weighted_avg
		FROM daily_snapshots
		WHERE snapshot_date = $1
		ORDER BY key ASC NULLS FIRST
	`

	sqlRows, err := r.db.QueryContext(ctx, query, domain.DayUTC(date))
	if err != nil {
		return nil, fmt.Errorf("failed to query rollups by date: %w", err)
	}
	defer sqlRows.Close()

	return scanRollups(sqlRows)
}

// FindByKeyAndDateRange retrieves one group's rollups over an inclusive date
// range, in ascending date order.
func (r *rollupRepository) FindByKeyAndDateRange(ctx context.Context, key domain.GroupKey, from, to time.Time) ([]*domain.DailyRollup, error) {
	var (
		sqlRows *sql.Rows
		err     error
	)

	if key.IsGlobal() {
		query := `
			SELECT snapshot_date, key, avg_score, min_score, max_score, signal_count, total_weight, weighted_avg
			FROM daily_snapshots
			WHERE key IS NULL AND snapshot_date BETWEEN $1 AND $2
			ORDER BY snapshot_date ASC
		`
		sqlRows, err = r.db.QueryContext(ctx, query, domain.DayUTC(from), domain.DayUTC(to))
	} else {
		query := `
			SELECT snapshot_date, key, avg_score, min_score, max_score, signal_count, total_weight, weighted_avg
			FROM daily_snapshots
			WHERE key = $1 AND snapshot_date BETWEEN $2 AND $3
			ORDER BY snapshot_date ASC
		`
		sqlRows, err = r.db.QueryContext(ctx, query, key.Asset(), domain.DayUTC(from), domain.DayUTC(to))
	}
	if err != nil {
		return nil, fmt.Errorf("failed to query rollups for key %s: %w", key, err)
	}
	defer sqlRows.Close()

	return scanRollups(sqlRows)
}

func scanRollups(sqlRows *sql.Rows) ([]*domain.DailyRollup, error) {
	var rollups []*domain.DailyRollup

	for sqlRows.Next() {
		var (
			rollup      domain.DailyRollup
			key         sql.NullString
			avgStr      string
			minStr      string
			maxStr      string
			totalWeight sql.NullString
			weightedAvg sql.NullString
		)

		err := sqlRows.Scan(
			&rollup.SnapshotDate,
			&key,
			&avgStr,
			&minStr,
			&maxStr,
			&rollup.Count,
			&totalWeight,
			&weightedAvg,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan rollup row: %w", err)
		}

		if key.Valid {
			rollup.Key = domain.AssetKey(key.String)
		} else {
			rollup.Key = domain.GlobalKey()
		}

		if rollup.Avg, err = decimal.NewFromString(avgStr); err != nil {
			return nil, fmt.Errorf("failed to parse avg_score: %w", err)
		}
		if rollup.Min, err = decimal.NewFromString(minStr); err != nil {
			return nil, fmt.Errorf("failed to parse min_score: %w", err)
		}
		if rollup.Max, err = decimal.NewFromString(maxStr); err != nil {
			return nil, fmt.Errorf("failed to parse max_score: %w", err)
		}
		if rollup.TotalWeight, err = parseNullableDecimal(totalWeight); err != nil {
			return nil, fmt.Errorf("failed to parse total_weight: %w", err)
		}
		if rollup.WeightedAvg, err = parseNullableDecimal(weightedAvg); err != nil {
			return nil, fmt.Errorf("failed to parse weighted_avg: %w", err)
		}

		rollups = append(rollups, &rollup)
	}

	if err := sqlRows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate rollup rows: %w", err)
	}

	return rollups, nil
}

// keyColumn maps a group key to its nullable SQL representation.
func keyColumn(key domain.GroupKey) interface{} {
	if key.IsGlobal() {
		return nil
	}
	return key.Asset()
}

func nullableDecimal(d *decimal.Decimal) interface{} {
	if d == nil {
		return nil
	}
	return d.String()
}

func parseNullableDecimal(s sql.NullString) (*decimal.Decimal, error) {
	if !s.Valid {
		return nil, nil
	}
	d, err := decimal.NewFromString(s.String)
	if err != nil {
		return nil, err
	}
	return &d, nil
}
