package auth

import (
	"log/slog"
	"net/http"
	"strings"

	"github.com/camcamberst/iam-sistema-de-gestion-sub002/internal/platform/httpx"
	"github.com/camcamberst/iam-sistema-de-gestion-sub002/internal/shared"
)

// Middleware wires token authentication and capability checks for HTTP handlers.
type Middleware struct {
	Service *Service
	Logger  *slog.Logger
}

// Authenticate resolves the bearer token into an actor stored on the request
// context. Requests without a valid token are rejected.
func (m Middleware) Authenticate(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		header := r.Header.Get("Authorization")
		raw, ok := strings.CutPrefix(header, "Bearer ")
		if !ok {
			httpx.Problem(w, http.StatusUnauthorized, "Unauthorized", "falta el token de acceso")
			return
		}
		actor, err := m.Service.Authenticate(r.Context(), raw)
		if err != nil {
			if m.Logger != nil {
				m.Logger.Warn("token authentication failed", slog.Any("error", err))
			}
			httpx.Problem(w, http.StatusUnauthorized, "Unauthorized", "token inválido o revocado")
			return
		}
		next.ServeHTTP(w, r.WithContext(shared.ContextWithActor(r.Context(), actor)))
	})
}

// RequireAny ensures the current actor holds at least one listed capability.
func (m Middleware) RequireAny(caps ...string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			actor, ok := shared.ActorFromContext(r.Context())
			if ok {
				for _, cap := range caps {
					if actor.HasCapability(cap) {
						next.ServeHTTP(w, r)
						return
					}
				}
			}
			httpx.RespondError(w, shared.ErrCapabilityDenied)
		})
	}
}

// Require ensures the current actor holds every listed capability.
func (m Middleware) Require(caps ...string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			actor, ok := shared.ActorFromContext(r.Context())
			if !ok {
				httpx.RespondError(w, shared.ErrCapabilityDenied)
				return
			}
			for _, cap := range caps {
				if !actor.HasCapability(cap) {
					httpx.RespondError(w, shared.ErrCapabilityDenied)
					return
				}
			}
			next.ServeHTTP(w, r)
		})
	}
}
