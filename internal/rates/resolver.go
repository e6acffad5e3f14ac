package rates

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/camcamberst/iam-sistema-de-gestion-sub002/internal/shared"
)

// RateSource exposes lookup of a single applicable rate.
type RateSource interface {
	FindApplicable(ctx context.Context, scope Scope, kind Kind, asOf time.Time) (Rate, error)
}

// Resolver selects the effective rate set for a scope and point in time,
// falling back to the global scope when no group override exists. Used by
// live computation and by historical reconstruction alike.
type Resolver struct {
	source RateSource
}

// NewResolver constructs a Resolver.
func NewResolver(source RateSource) *Resolver {
	return &Resolver{source: source}
}

// Resolve returns the effective rate set for the scope at asOf. A missing
// rate for any required kind is fatal for the computation requesting it.
func (r *Resolver) Resolve(ctx context.Context, scope Scope, asOf time.Time) (Set, error) {
	if r == nil || r.source == nil {
		return Set{}, fmt.Errorf("rate resolver not initialised")
	}
	if asOf.IsZero() {
		return Set{}, fmt.Errorf("rates: as-of instant required")
	}
	if scope == "" {
		scope = ScopeGlobal
	}
	var set Set
	for _, kind := range RequiredKinds() {
		rate, err := r.lookup(ctx, scope, kind, asOf)
		if err != nil {
			return Set{}, err
		}
		switch kind {
		case KindEURUSD:
			set.EURUSD = rate.EffectiveValue
		case KindGBPUSD:
			set.GBPUSD = rate.EffectiveValue
		case KindUSDCOP:
			set.USDCOP = rate.EffectiveValue
		}
	}
	return set, nil
}

func (r *Resolver) lookup(ctx context.Context, scope Scope, kind Kind, asOf time.Time) (Rate, error) {
	rate, err := r.source.FindApplicable(ctx, scope, kind, asOf)
	if err == nil {
		return rate, nil
	}
	if !errors.Is(err, shared.ErrRateNotFound) {
		return Rate{}, err
	}
	if scope.IsGlobal() {
		return Rate{}, fmt.Errorf("%w: %s for scope %s", shared.ErrRateNotFound, kind, scope)
	}
	rate, err = r.source.FindApplicable(ctx, ScopeGlobal, kind, asOf)
	if err != nil {
		if errors.Is(err, shared.ErrRateNotFound) {
			return Rate{}, fmt.Errorf("%w: %s for scope %s", shared.ErrRateNotFound, kind, scope)
		}
		return Rate{}, err
	}
	return rate, nil
}
