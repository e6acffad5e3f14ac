package rates

import (
	"context"
	"fmt"
	"time"
)

// Store defines the persistence behaviour required by the service.
type Store interface {
	RateSource
	Create(ctx context.Context, in CreateRateInput) (Rate, error)
	ListActive(ctx context.Context, scope Scope) ([]Rate, error)
}

// Service orchestrates rate administration and resolution.
type Service struct {
	store    Store
	resolver *Resolver
	now      func() time.Time
}

// NewService constructs a rates service.
func NewService(store Store) *Service {
	return &Service{
		store:    store,
		resolver: NewResolver(store),
		now:      time.Now,
	}
}

// WithNow overrides the clock for deterministic tests.
func (s *Service) WithNow(now func() time.Time) {
	if now != nil {
		s.now = now
	}
}

// Resolve returns the effective rate set for the scope at asOf.
func (s *Service) Resolve(ctx context.Context, scope Scope, asOf time.Time) (Set, error) {
	if s == nil || s.resolver == nil {
		return Set{}, fmt.Errorf("rates service not initialised")
	}
	if asOf.IsZero() {
		asOf = s.now().UTC()
	}
	return s.resolver.Resolve(ctx, scope, asOf)
}

// CreateRate records a new rate, superseding the currently active one for the
// same scope and kind.
func (s *Service) CreateRate(ctx context.Context, in CreateRateInput) (Rate, error) {
	if s == nil || s.store == nil {
		return Rate{}, fmt.Errorf("rates service not initialised")
	}
	if err := in.Validate(); err != nil {
		return Rate{}, err
	}
	if in.ValidFrom.IsZero() {
		in.ValidFrom = s.now().UTC()
	}
	return s.store.Create(ctx, in)
}

// ActiveRates lists the open-window rates for a scope.
func (s *Service) ActiveRates(ctx context.Context, scope Scope) ([]Rate, error) {
	if scope == "" {
		scope = ScopeGlobal
	}
	return s.store.ListActive(ctx, scope)
}
