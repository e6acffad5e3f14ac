package auth

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/camcamberst/iam-sistema-de-gestion-sub002/internal/shared"
)

// PgRepository loads API tokens from postgres.
type PgRepository struct {
	pool *pgxpool.Pool
}

// NewPgRepository constructs the repository.
func NewPgRepository(pool *pgxpool.Pool) *PgRepository {
	return &PgRepository{pool: pool}
}

// FindTokenByPrefix loads a token record and the capabilities granted to its
// actor.
func (r *PgRepository) FindTokenByPrefix(ctx context.Context, prefix string) (Token, error) {
	if r == nil || r.pool == nil {
		return Token{}, fmt.Errorf("auth repo not initialised")
	}
	const query = `
		SELECT t.prefix, t.secret_hash, t.revoked, u.id, u.name
		FROM api_tokens t
		JOIN users u ON u.id = t.user_id
		WHERE t.prefix = $1`
	var token Token
	err := r.pool.QueryRow(ctx, query, prefix).Scan(
		&token.Prefix,
		&token.SecretHash,
		&token.Revoked,
		&token.Actor.ID,
		&token.Actor.Name,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Token{}, shared.ErrNotFound
		}
		return Token{}, err
	}
	const capsQuery = `
		SELECT c.code
		FROM user_capabilities uc
		JOIN capabilities c ON c.id = uc.capability_id
		WHERE uc.user_id = $1
		ORDER BY c.code`
	rows, err := r.pool.Query(ctx, capsQuery, token.Actor.ID)
	if err != nil {
		return Token{}, err
	}
	defer rows.Close()
	for rows.Next() {
		var code string
		if err := rows.Scan(&code); err != nil {
			return Token{}, err
		}
		token.Actor.Capabilities = append(token.Actor.Capabilities, code)
	}
	return token, rows.Err()
}
