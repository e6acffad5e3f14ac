package advances

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"

	"github.com/camcamberst/iam-sistema-de-gestion-sub002/internal/shared"
)

// PgRepository provides PostgreSQL backed persistence for advances,
// deductions and savings requests. Its sum queries double as the ledger
// source the aggregator nets payouts against.
type PgRepository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs a repository.
func NewRepository(pool *pgxpool.Pool) *PgRepository {
	return &PgRepository{pool: pool}
}

// InsertAdvance writes a new advance request.
func (r *PgRepository) InsertAdvance(ctx context.Context, adv Advance) (Advance, error) {
	const query = `
		INSERT INTO advances (model_id, period_date, period_type, amount_requested, amount_available, status, requested_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING id`
	err := r.pool.QueryRow(ctx, query,
		adv.ModelID,
		adv.Period.Date,
		adv.Period.Type,
		adv.AmountRequested,
		adv.AmountAvailable,
		adv.Status,
		adv.RequestedAt,
	).Scan(&adv.ID)
	if err != nil {
		return Advance{}, err
	}
	return adv, nil
}

// GetAdvance loads one advance by id.
func (r *PgRepository) GetAdvance(ctx context.Context, id int64) (Advance, error) {
	const query = `
		SELECT id, model_id, period_date, period_type, amount_requested, amount_available,
		       status, requested_at, resolved_at, COALESCE(resolved_by, 0)
		FROM advances
		WHERE id = $1`
	var adv Advance
	var periodDate time.Time
	var periodType string
	err := r.pool.QueryRow(ctx, query, id).Scan(
		&adv.ID,
		&adv.ModelID,
		&periodDate,
		&periodType,
		&adv.AmountRequested,
		&adv.AmountAvailable,
		&adv.Status,
		&adv.RequestedAt,
		&adv.ResolvedAt,
		&adv.ResolvedBy,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Advance{}, shared.ErrNotFound
		}
		return Advance{}, err
	}
	adv.Period = shared.NewPeriod(periodDate, shared.PeriodType(periodType))
	return adv, nil
}

// UpdateAdvanceStatus moves an advance between states. The previous state is
// part of the predicate so concurrent decisions cannot race past each other.
func (r *PgRepository) UpdateAdvanceStatus(ctx context.Context, id int64, from, to Status, actorID int64, at time.Time) error {
	const query = `
		UPDATE advances
		SET status = $1, resolved_at = $2, resolved_by = $3
		WHERE id = $4 AND status = $5`
	tag, err := r.pool.Exec(ctx, query, to, at, actorID, id, from)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("%w: advance %d no longer %s", ErrInvalidTransition, id, from)
	}
	return nil
}

// ListAdvances returns the model's advances in one period, newest first.
func (r *PgRepository) ListAdvances(ctx context.Context, modelID int64, period shared.Period) ([]Advance, error) {
	const query = `
		SELECT id, model_id, amount_requested, amount_available, status, requested_at, resolved_at, COALESCE(resolved_by, 0)
		FROM advances
		WHERE model_id = $1 AND period_date = $2 AND period_type = $3
		ORDER BY requested_at DESC`
	rows, err := r.pool.Query(ctx, query, modelID, period.Date, period.Type)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []Advance
	for rows.Next() {
		adv := Advance{Period: period}
		if err := rows.Scan(
			&adv.ID,
			&adv.ModelID,
			&adv.AmountRequested,
			&adv.AmountAvailable,
			&adv.Status,
			&adv.RequestedAt,
			&adv.ResolvedAt,
			&adv.ResolvedBy,
		); err != nil {
			return nil, err
		}
		out = append(out, adv)
	}
	return out, rows.Err()
}

// SumDisbursedAdvances totals the disbursed advances a period's payout nets
// out. Satisfies the aggregator's ledger contract.
func (r *PgRepository) SumDisbursedAdvances(ctx context.Context, modelID int64, period shared.Period) (decimal.Decimal, error) {
	const query = `
		SELECT COALESCE(SUM(amount_requested), 0)
		FROM advances
		WHERE model_id = $1 AND period_date = $2 AND period_type = $3
		  AND status IN ('DISBURSED', 'CONFIRMED')`
	var sum decimal.Decimal
	if err := r.pool.QueryRow(ctx, query, modelID, period.Date, period.Type).Scan(&sum); err != nil {
		return decimal.Zero, err
	}
	return sum, nil
}

// InsertDeduction writes one manual deduction.
func (r *PgRepository) InsertDeduction(ctx context.Context, ded Deduction) (Deduction, error) {
	const query = `
		INSERT INTO deductions (model_id, period_date, period_type, concept, amount, created_at, created_by)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING id`
	err := r.pool.QueryRow(ctx, query,
		ded.ModelID,
		ded.Period.Date,
		ded.Period.Type,
		ded.Concept,
		ded.Amount,
		ded.CreatedAt,
		ded.CreatedBy,
	).Scan(&ded.ID)
	if err != nil {
		return Deduction{}, err
	}
	return ded, nil
}

// DeleteDeduction removes one deduction row.
func (r *PgRepository) DeleteDeduction(ctx context.Context, id int64) error {
	const query = `DELETE FROM deductions WHERE id = $1`
	tag, err := r.pool.Exec(ctx, query, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return shared.ErrNotFound
	}
	return nil
}

// ListDeductions returns the model's deductions in one period.
func (r *PgRepository) ListDeductions(ctx context.Context, modelID int64, period shared.Period) ([]Deduction, error) {
	const query = `
		SELECT id, model_id, concept, amount, created_at, created_by
		FROM deductions
		WHERE model_id = $1 AND period_date = $2 AND period_type = $3
		ORDER BY created_at`
	rows, err := r.pool.Query(ctx, query, modelID, period.Date, period.Type)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []Deduction
	for rows.Next() {
		ded := Deduction{Period: period}
		if err := rows.Scan(&ded.ID, &ded.ModelID, &ded.Concept, &ded.Amount, &ded.CreatedAt, &ded.CreatedBy); err != nil {
			return nil, err
		}
		out = append(out, ded)
	}
	return out, rows.Err()
}

// SumDeductions totals a model's deductions for the period.
func (r *PgRepository) SumDeductions(ctx context.Context, modelID int64, period shared.Period) (decimal.Decimal, error) {
	const query = `
		SELECT COALESCE(SUM(amount), 0)
		FROM deductions
		WHERE model_id = $1 AND period_date = $2 AND period_type = $3`
	var sum decimal.Decimal
	if err := r.pool.QueryRow(ctx, query, modelID, period.Date, period.Type).Scan(&sum); err != nil {
		return decimal.Zero, err
	}
	return sum, nil
}

// InsertSavings writes one savings request.
func (r *PgRepository) InsertSavings(ctx context.Context, req SavingsRequest) (SavingsRequest, error) {
	const query = `
		INSERT INTO savings_requests (model_id, period_date, period_type, percentage, amount, status, requested_at, respond_by)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		RETURNING id`
	err := r.pool.QueryRow(ctx, query,
		req.ModelID,
		req.Period.Date,
		req.Period.Type,
		req.Percentage,
		req.Amount,
		req.Status,
		req.RequestedAt,
		req.RespondBy,
	).Scan(&req.ID)
	if err != nil {
		return SavingsRequest{}, err
	}
	return req, nil
}
