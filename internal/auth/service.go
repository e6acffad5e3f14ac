package auth

import (
	"context"
	"errors"
	"strings"

	"golang.org/x/crypto/bcrypt"

	"github.com/camcamberst/iam-sistema-de-gestion-sub002/internal/shared"
)

// ErrInvalidToken indicates the presented API token is unknown or revoked.
var ErrInvalidToken = errors.New("auth: invalid token")

// Token is a stored API credential. Secret material is kept only as a bcrypt
// hash; the prefix allows lookup without comparing against every row.
type Token struct {
	Prefix     string
	SecretHash string
	Actor      shared.Actor
	Revoked    bool
}

// Repository loads token records.
type Repository interface {
	FindTokenByPrefix(ctx context.Context, prefix string) (Token, error)
}

// Service validates bearer tokens and resolves the calling actor.
type Service struct {
	repo Repository
}

// NewService constructs a new Service.
func NewService(repo Repository) *Service {
	return &Service{repo: repo}
}

// Authenticate resolves an actor from a raw bearer token of the form
// "<prefix>.<secret>".
func (s *Service) Authenticate(ctx context.Context, raw string) (shared.Actor, error) {
	if s == nil || s.repo == nil {
		return shared.Actor{}, errors.New("auth service not initialised")
	}
	prefix, secret, ok := strings.Cut(strings.TrimSpace(raw), ".")
	if !ok || prefix == "" || secret == "" {
		return shared.Actor{}, ErrInvalidToken
	}
	token, err := s.repo.FindTokenByPrefix(ctx, prefix)
	if err != nil {
		if errors.Is(err, shared.ErrNotFound) {
			return shared.Actor{}, ErrInvalidToken
		}
		return shared.Actor{}, err
	}
	if token.Revoked {
		return shared.Actor{}, ErrInvalidToken
	}
	if err := bcrypt.CompareHashAndPassword([]byte(token.SecretHash), []byte(secret)); err != nil {
		return shared.Actor{}, ErrInvalidToken
	}
	return token.Actor, nil
}

// HashSecret derives the stored hash for a token secret.
func HashSecret(secret string) (string, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(secret), bcrypt.DefaultCost)
	if err != nil {
		return "", err
	}
	return string(hash), nil
}
