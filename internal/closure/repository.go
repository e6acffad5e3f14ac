package closure

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/camcamberst/iam-sistema-de-gestion-sub002/internal/earnings"
	"github.com/camcamberst/iam-sistema-de-gestion-sub002/internal/platform/db"
	"github.com/camcamberst/iam-sistema-de-gestion-sub002/internal/shared"
)

// Repository persists archived records and the period status machine.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs a closure repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

const uniqueViolation = "23505"

// PeriodStatus returns the closure status for a period, defaulting to OPEN
// when the period row does not exist yet.
func (r *Repository) PeriodStatus(ctx context.Context, period shared.Period) (string, error) {
	if r == nil || r.pool == nil {
		return "", fmt.Errorf("closure repo not initialised")
	}
	const query = `
		SELECT status FROM periods
		WHERE period_date = $1 AND period_type = $2`
	var status string
	err := r.pool.QueryRow(ctx, query, period.Date, period.Type).Scan(&status)
	if errors.Is(err, pgx.ErrNoRows) {
		return shared.PeriodStatusOpen, nil
	}
	if err != nil {
		return "", err
	}
	return status, nil
}

// SetPeriodStatus upserts the period row with the new status.
func (r *Repository) SetPeriodStatus(ctx context.Context, period shared.Period, status string) error {
	const query = `
		INSERT INTO periods (period_date, period_type, status, updated_at)
		VALUES ($1, $2, $3, NOW())
		ON CONFLICT (period_date, period_type)
		DO UPDATE SET status = EXCLUDED.status, updated_at = NOW()`
	_, err := r.pool.Exec(ctx, query, period.Date, period.Type, status)
	return err
}

// ArchiveModel inserts the model's archived records and clears its source
// platform values in one transaction. A uniqueness conflict on
// (model, platform, period) means the model was already archived; the whole
// transaction rolls back and ErrDuplicateArchive is returned.
func (r *Repository) ArchiveModel(ctx context.Context, modelID int64, period shared.Period, records []ArchivedRecord) error {
	return db.WithTx(ctx, r.pool, func(tx pgx.Tx) error {
		const insertQuery = `
			INSERT INTO archived_records (
				id, model_id, platform_id, period_date, period_type,
				raw_value, platform_percentage_used,
				rate_a_used, rate_b_used, rate_c_used,
				derived_gross, derived_model_settlement, derived_model_local,
				archived_at
			) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14)`
		for _, rec := range records {
			_, err := tx.Exec(ctx, insertQuery,
				rec.ID,
				rec.ModelID,
				rec.PlatformID,
				rec.Period.Date,
				rec.Period.Type,
				rec.RawValue,
				rec.PlatformPercentage,
				rec.RatesUsed.EURUSD,
				rec.RatesUsed.GBPUSD,
				rec.RatesUsed.USDCOP,
				rec.Gross,
				rec.ModelSettlement,
				rec.ModelLocal,
				rec.ArchivedAt,
			)
			if err != nil {
				var pgErr *pgconn.PgError
				if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
					return ErrDuplicateArchive
				}
				return err
			}
		}

		const clearQuery = `
			DELETE FROM platform_values
			WHERE model_id = $1 AND period_date = $2 AND period_type = $3`
		_, err := tx.Exec(ctx, clearQuery, modelID, period.Date, period.Type)
		return err
	})
}

const archivedColumns = `
	id, model_id, platform_id, period_date, period_type,
	raw_value, platform_percentage_used,
	rate_a_used, rate_b_used, rate_c_used,
	derived_gross, derived_model_settlement, derived_model_local,
	archived_at`

func (r *Repository) scanArchived(rows pgx.Rows) ([]ArchivedRecord, error) {
	defer rows.Close()
	var out []ArchivedRecord
	for rows.Next() {
		var rec ArchivedRecord
		err := rows.Scan(
			&rec.ID,
			&rec.ModelID,
			&rec.PlatformID,
			&rec.Period.Date,
			&rec.Period.Type,
			&rec.RawValue,
			&rec.PlatformPercentage,
			&rec.RatesUsed.EURUSD,
			&rec.RatesUsed.GBPUSD,
			&rec.RatesUsed.USDCOP,
			&rec.Gross,
			&rec.ModelSettlement,
			&rec.ModelLocal,
			&rec.ArchivedAt,
		)
		if err != nil {
			return nil, err
		}
		out = append(out, rec)
	}
	return out, rows.Err()
}

// ListArchived returns the archived records for a period, optionally limited
// to a set of models.
func (r *Repository) ListArchived(ctx context.Context, period shared.Period, modelIDs []int64) ([]ArchivedRecord, error) {
	query := `
		SELECT ` + archivedColumns + `
		FROM archived_records
		WHERE period_date = $1 AND period_type = $2`
	args := []any{period.Date, period.Type}
	if len(modelIDs) > 0 {
		query += ` AND model_id = ANY($3)`
		args = append(args, modelIDs)
	}
	query += ` ORDER BY model_id, platform_id`
	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	return r.scanArchived(rows)
}

// UpdateDerived rewrites the rates-used and derived fields of one archived
// record. Raw value and percentage stay untouched; only closed records
// qualify.
func (r *Repository) UpdateDerived(ctx context.Context, rec ArchivedRecord) error {
	const query = `
		UPDATE archived_records SET
			rate_a_used = $2, rate_b_used = $3, rate_c_used = $4,
			derived_gross = $5, derived_model_settlement = $6, derived_model_local = $7
		WHERE id = $1 AND archived_at IS NOT NULL`
	tag, err := r.pool.Exec(ctx, query,
		rec.ID,
		rec.RatesUsed.EURUSD,
		rec.RatesUsed.GBPUSD,
		rec.RatesUsed.USDCOP,
		rec.Gross,
		rec.ModelSettlement,
		rec.ModelLocal,
	)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return shared.ErrNotFound
	}
	return nil
}

// PeriodArchived reports whether the period holds at least one closed record.
func (r *Repository) PeriodArchived(ctx context.Context, period shared.Period) (bool, error) {
	const query = `
		SELECT EXISTS (
			SELECT 1 FROM archived_records
			WHERE period_date = $1 AND period_type = $2 AND archived_at IS NOT NULL
		)`
	var exists bool
	if err := r.pool.QueryRow(ctx, query, period.Date, period.Type).Scan(&exists); err != nil {
		return false, err
	}
	return exists, nil
}

// ListArchivedLines adapts archived records for the aggregator.
func (r *Repository) ListArchivedLines(ctx context.Context, modelID int64, period shared.Period) ([]earnings.ArchivedLine, error) {
	records, err := r.ListArchived(ctx, period, []int64{modelID})
	if err != nil {
		return nil, err
	}
	lines := make([]earnings.ArchivedLine, 0, len(records))
	for _, rec := range records {
		lines = append(lines, earnings.ArchivedLine{
			PlatformID:      rec.PlatformID,
			Gross:           rec.Gross,
			ModelSettlement: rec.ModelSettlement,
			ModelLocal:      rec.ModelLocal,
		})
	}
	return lines, nil
}
