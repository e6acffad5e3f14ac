package rates

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/camcamberst/iam-sistema-de-gestion-sub002/internal/shared"
)

// Repository provides persistence for time-scoped conversion rates.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs a rates repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

const rateColumns = `id, scope, kind, raw_value, adjustment, effective_value, source, valid_from, valid_to`

func scanRate(row pgx.Row) (Rate, error) {
	var rate Rate
	err := row.Scan(
		&rate.ID,
		&rate.Scope,
		&rate.Kind,
		&rate.RawValue,
		&rate.Adjustment,
		&rate.EffectiveValue,
		&rate.Source,
		&rate.ValidFrom,
		&rate.ValidTo,
	)
	return rate, err
}

// FindApplicable selects the rate valid at asOf for the scope and kind,
// most recent valid_from winning.
func (r *Repository) FindApplicable(ctx context.Context, scope Scope, kind Kind, asOf time.Time) (Rate, error) {
	if r == nil || r.pool == nil {
		return Rate{}, fmt.Errorf("rates repo not initialised")
	}
	const query = `
		SELECT ` + rateColumns + `
		FROM rates
		WHERE scope = $1 AND kind = $2
		  AND valid_from <= $3
		  AND (valid_to IS NULL OR valid_to > $3)
		ORDER BY valid_from DESC
		LIMIT 1`
	rate, err := scanRate(r.pool.QueryRow(ctx, query, scope, kind, asOf))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Rate{}, shared.ErrRateNotFound
		}
		return Rate{}, err
	}
	return rate, nil
}

// Create inserts a new rate and closes the previous validity window for the
// same scope and kind in one transaction. The superseded row keeps its values
// untouched apart from valid_to.
func (r *Repository) Create(ctx context.Context, in CreateRateInput) (Rate, error) {
	if r == nil || r.pool == nil {
		return Rate{}, fmt.Errorf("rates repo not initialised")
	}
	validFrom := in.ValidFrom
	if validFrom.IsZero() {
		validFrom = time.Now().UTC()
	}
	tx, err := r.pool.BeginTx(ctx, pgx.TxOptions{IsoLevel: pgx.RepeatableRead})
	if err != nil {
		return Rate{}, err
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback(ctx)
		}
	}()

	const closeQuery = `
		UPDATE rates SET valid_to = $3
		WHERE scope = $1 AND kind = $2 AND valid_to IS NULL`
	if _, err = tx.Exec(ctx, closeQuery, in.Scope, in.Kind, validFrom); err != nil {
		return Rate{}, err
	}

	const insertQuery = `
		INSERT INTO rates (scope, kind, raw_value, adjustment, effective_value, source, valid_from, created_by)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		RETURNING ` + rateColumns
	rate, err := scanRate(tx.QueryRow(ctx, insertQuery,
		in.Scope,
		in.Kind,
		in.RawValue,
		in.Adjustment,
		in.RawValue.Add(in.Adjustment),
		in.Source,
		validFrom,
		in.ActorID,
	))
	if err != nil {
		return Rate{}, err
	}
	if err = tx.Commit(ctx); err != nil {
		return Rate{}, err
	}
	return rate, nil
}

// ListActive returns the currently open rates for a scope.
func (r *Repository) ListActive(ctx context.Context, scope Scope) ([]Rate, error) {
	const query = `
		SELECT ` + rateColumns + `
		FROM rates
		WHERE scope = $1 AND valid_to IS NULL
		ORDER BY kind`
	rows, err := r.pool.Query(ctx, query, scope)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []Rate
	for rows.Next() {
		rate, err := scanRate(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, rate)
	}
	return out, rows.Err()
}
