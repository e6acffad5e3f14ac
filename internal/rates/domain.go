package rates

import (
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/camcamberst/iam-sistema-de-gestion-sub002/internal/shared"
)

// Kind enumerates the fixed currency pairs the engine depends on.
type Kind string

const (
	// KindEURUSD converts euro-denominated platform earnings into USD.
	KindEURUSD Kind = "EUR_USD"
	// KindGBPUSD converts sterling-denominated platform earnings into USD.
	KindGBPUSD Kind = "GBP_USD"
	// KindUSDCOP converts the settlement currency into the model's local currency.
	KindUSDCOP Kind = "USD_COP"
)

// RequiredKinds lists every kind a complete rate set must carry.
func RequiredKinds() []Kind {
	return []Kind{KindEURUSD, KindGBPUSD, KindUSDCOP}
}

// ParseKind validates a rate kind string.
func ParseKind(raw string) (Kind, error) {
	kind := Kind(strings.ToUpper(strings.TrimSpace(raw)))
	switch kind {
	case KindEURUSD, KindGBPUSD, KindUSDCOP:
		return kind, nil
	}
	return "", fmt.Errorf("unknown rate kind %q", raw)
}

// Scope selects which rate table applies: the global default or a group
// override.
type Scope string

// ScopeGlobal is the fallback scope when no group override exists.
const ScopeGlobal Scope = "global"

// GroupScope builds the scope string for a model group.
func GroupScope(groupID int64) Scope {
	return Scope(fmt.Sprintf("group:%d", groupID))
}

// IsGlobal reports whether the scope is the global fallback.
func (s Scope) IsGlobal() bool {
	return s == ScopeGlobal
}

// Rate is one time-scoped conversion quote. Rows are never mutated after
// creation, only superseded by closing the validity window.
type Rate struct {
	ID             int64
	Scope          Scope
	Kind           Kind
	RawValue       decimal.Decimal
	Adjustment     decimal.Decimal
	EffectiveValue decimal.Decimal
	Source         string
	ValidFrom      time.Time
	ValidTo        *time.Time
}

// Set carries the effective value for every required kind.
type Set struct {
	EURUSD decimal.Decimal `json:"eur_usd"`
	GBPUSD decimal.Decimal `json:"gbp_usd"`
	USDCOP decimal.Decimal `json:"usd_cop"`
}

// Value returns the effective rate for a kind.
func (s Set) Value(kind Kind) decimal.Decimal {
	switch kind {
	case KindEURUSD:
		return s.EURUSD
	case KindGBPUSD:
		return s.GBPUSD
	case KindUSDCOP:
		return s.USDCOP
	}
	return decimal.Zero
}

// Validate ensures the set carries a positive value for every required kind.
func (s Set) Validate() error {
	for _, kind := range RequiredKinds() {
		if s.Value(kind).LessThanOrEqual(decimal.Zero) {
			return fmt.Errorf("%w: missing %s", shared.ErrIncompleteRateSet, kind)
		}
	}
	return nil
}

// CreateRateInput captures validation rules for new rates.
type CreateRateInput struct {
	Scope      Scope
	Kind       Kind
	RawValue   decimal.Decimal
	Adjustment decimal.Decimal
	Source     string
	ValidFrom  time.Time
	ActorID    int64
}

// Validate ensures the create rate input is coherent.
func (in CreateRateInput) Validate() error {
	if in.Scope == "" {
		return fmt.Errorf("rates: scope required")
	}
	if _, err := ParseKind(string(in.Kind)); err != nil {
		return fmt.Errorf("rates: %w", err)
	}
	if in.RawValue.LessThanOrEqual(decimal.Zero) {
		return fmt.Errorf("rates: raw value must be positive")
	}
	if in.RawValue.Add(in.Adjustment).LessThanOrEqual(decimal.Zero) {
		return fmt.Errorf("rates: effective value must be positive")
	}
	return nil
}
