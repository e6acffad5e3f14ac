package audit

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/camcamberst/iam-sistema-de-gestion-sub002/internal/rates"
	"github.com/camcamberst/iam-sistema-de-gestion-sub002/internal/shared"
)

// PgRepository writes audit entries into audit_logs.
type PgRepository struct {
	pool *pgxpool.Pool
}

// NewPgRepository returns a new PgRepository.
func NewPgRepository(pool *pgxpool.Pool) *PgRepository {
	return &PgRepository{pool: pool}
}

type ratesPayload struct {
	Before rates.Set `json:"before"`
	After  rates.Set `json:"after"`
	Filter []int64   `json:"model_filter,omitempty"`
}

// Insert appends the entry. Rows are never updated or deleted.
func (r *PgRepository) Insert(ctx context.Context, entry Entry) error {
	if r == nil || r.pool == nil {
		return fmt.Errorf("audit repo not initialised")
	}
	meta, err := json.Marshal(ratesPayload{
		Before: entry.RatesBefore,
		After:  entry.RatesAfter,
		Filter: entry.ModelFilter,
	})
	if err != nil {
		return err
	}
	const query = `
		INSERT INTO audit_logs (id, action, period_date, period_type, actor_id, actor_name, records_affected, meta, occurred_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`
	_, err = r.pool.Exec(ctx, query,
		entry.ID,
		entry.Action,
		entry.Period.Date,
		entry.Period.Type,
		entry.ActorID,
		entry.ActorName,
		entry.RecordsAffected,
		meta,
		entry.At,
	)
	return err
}

// ListForPeriod returns the entries recorded against the period, newest first.
func (r *PgRepository) ListForPeriod(ctx context.Context, period shared.Period) ([]Entry, error) {
	const query = `
		SELECT id, action, period_date, period_type, actor_id, actor_name, records_affected, meta, occurred_at
		FROM audit_logs
		WHERE period_date = $1 AND period_type = $2
		ORDER BY occurred_at DESC`
	rows, err := r.pool.Query(ctx, query, period.Date, period.Type)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []Entry
	for rows.Next() {
		var entry Entry
		var meta []byte
		err := rows.Scan(
			&entry.ID,
			&entry.Action,
			&entry.Period.Date,
			&entry.Period.Type,
			&entry.ActorID,
			&entry.ActorName,
			&entry.RecordsAffected,
			&meta,
			&entry.At,
		)
		if err != nil {
			return nil, err
		}
		var payload ratesPayload
		if len(meta) > 0 {
			if err := json.Unmarshal(meta, &payload); err != nil {
				return nil, err
			}
		}
		entry.RatesBefore = payload.Before
		entry.RatesAfter = payload.After
		entry.ModelFilter = payload.Filter
		out = append(out, entry)
	}
	return out, rows.Err()
}
