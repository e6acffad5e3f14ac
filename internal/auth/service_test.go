package auth

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/camcamberst/iam-sistema-de-gestion-sub002/internal/shared"
)

type mockRepo struct {
	tokens map[string]Token
}

func (m *mockRepo) FindTokenByPrefix(_ context.Context, prefix string) (Token, error) {
	token, ok := m.tokens[prefix]
	if !ok {
		return Token{}, shared.ErrNotFound
	}
	return token, nil
}

func storedToken(t *testing.T, prefix, secret string, actor shared.Actor) Token {
	t.Helper()
	hash, err := HashSecret(secret)
	require.NoError(t, err)
	return Token{Prefix: prefix, SecretHash: hash, Actor: actor}
}

func TestAuthenticateResolvesActor(t *testing.T) {
	actor := shared.Actor{ID: 42, Name: "admin", Capabilities: []string{shared.CapRatesView}}
	repo := &mockRepo{tokens: map[string]Token{
		"tok1": storedToken(t, "tok1", "s3cret", actor),
	}}
	svc := NewService(repo)

	got, err := svc.Authenticate(context.Background(), "tok1.s3cret")
	require.NoError(t, err)
	require.Equal(t, actor, got)
}

func TestAuthenticateRejectsBadCredentials(t *testing.T) {
	repo := &mockRepo{tokens: map[string]Token{
		"tok1": storedToken(t, "tok1", "s3cret", shared.Actor{ID: 42}),
	}}
	svc := NewService(repo)

	for _, raw := range []string{"", "tok1", "tok1.", ".s3cret", "tok1.wrong", "unknown.s3cret"} {
		_, err := svc.Authenticate(context.Background(), raw)
		require.ErrorIs(t, err, ErrInvalidToken, "token %q", raw)
	}
}

func TestAuthenticateRejectsRevokedToken(t *testing.T) {
	token := storedToken(t, "tok1", "s3cret", shared.Actor{ID: 42})
	token.Revoked = true
	svc := NewService(&mockRepo{tokens: map[string]Token{"tok1": token}})

	_, err := svc.Authenticate(context.Background(), "tok1.s3cret")
	require.ErrorIs(t, err, ErrInvalidToken)
}
