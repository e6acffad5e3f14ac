package earnings

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"

	"github.com/camcamberst/iam-sistema-de-gestion-sub002/internal/shared"
)

// Repository provides PostgreSQL backed persistence for platform values and
// model profiles.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs a repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

// ListForModel returns the model's raw values for the period.
func (r *Repository) ListForModel(ctx context.Context, modelID int64, period shared.Period) ([]PlatformValue, error) {
	if r == nil || r.pool == nil {
		return nil, fmt.Errorf("earnings repo not initialised")
	}
	const query = `
		SELECT id, model_id, platform_id, raw_value, updated_at
		FROM platform_values
		WHERE model_id = $1 AND period_date = $2 AND period_type = $3
		ORDER BY platform_id`
	rows, err := r.pool.Query(ctx, query, modelID, period.Date, period.Type)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []PlatformValue
	for rows.Next() {
		value := PlatformValue{Period: period}
		if err := rows.Scan(&value.ID, &value.ModelID, &value.PlatformID, &value.RawValue, &value.UpdatedAt); err != nil {
			return nil, err
		}
		out = append(out, value)
	}
	return out, rows.Err()
}

// Upsert writes the raw value for (model, platform, period), replacing any
// previous figure while the period remains open.
func (r *Repository) Upsert(ctx context.Context, value PlatformValue) (PlatformValue, error) {
	const query = `
		INSERT INTO platform_values (model_id, platform_id, period_date, period_type, raw_value, updated_at)
		VALUES ($1, $2, $3, $4, $5, NOW())
		ON CONFLICT (model_id, platform_id, period_date, period_type)
		DO UPDATE SET raw_value = EXCLUDED.raw_value, updated_at = NOW()
		RETURNING id, updated_at`
	err := r.pool.QueryRow(ctx, query,
		value.ModelID,
		value.PlatformID,
		value.Period.Date,
		value.Period.Type,
		value.RawValue,
	).Scan(&value.ID, &value.UpdatedAt)
	if err != nil {
		return PlatformValue{}, err
	}
	return value, nil
}

// ModelProfile loads the model's group and per-platform share overrides.
func (r *Repository) ModelProfile(ctx context.Context, modelID int64) (Profile, error) {
	const query = `SELECT id, COALESCE(group_id, 0) FROM models WHERE id = $1`
	profile := Profile{Shares: map[string]decimal.Decimal{}}
	if err := r.pool.QueryRow(ctx, query, modelID).Scan(&profile.ModelID, &profile.GroupID); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Profile{}, shared.ErrNotFound
		}
		return Profile{}, err
	}
	const sharesQuery = `
		SELECT platform_id, percentage
		FROM model_platform_shares
		WHERE model_id = $1`
	rows, err := r.pool.Query(ctx, sharesQuery, modelID)
	if err != nil {
		return Profile{}, err
	}
	defer rows.Close()
	for rows.Next() {
		var platformID string
		var pct decimal.Decimal
		if err := rows.Scan(&platformID, &pct); err != nil {
			return Profile{}, err
		}
		profile.Shares[platformID] = pct
	}
	return profile, rows.Err()
}

// ModelsWithValues lists the models holding at least one platform value in
// the period. Closure iterates this set.
func (r *Repository) ModelsWithValues(ctx context.Context, period shared.Period) ([]int64, error) {
	const query = `
		SELECT DISTINCT model_id
		FROM platform_values
		WHERE period_date = $1 AND period_type = $2
		ORDER BY model_id`
	rows, err := r.pool.Query(ctx, query, period.Date, period.Type)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []int64
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		out = append(out, id)
	}
	return out, rows.Err()
}

// ClearForModel removes the model's raw values after archival.
func (r *Repository) ClearForModel(ctx context.Context, tx pgx.Tx, modelID int64, period shared.Period) error {
	const query = `
		DELETE FROM platform_values
		WHERE model_id = $1 AND period_date = $2 AND period_type = $3`
	_, err := tx.Exec(ctx, query, modelID, period.Date, period.Type)
	return err
}
