package platforms

import (
	"errors"
	"sort"

	"github.com/shopspring/decimal"
)

// Currency enumerates the units a platform reports earnings in.
type Currency string

const (
	CurrencyUSD    Currency = "USD"
	CurrencyEUR    Currency = "EUR"
	CurrencyGBP    Currency = "GBP"
	CurrencyTokens Currency = "TOKENS"
	CurrencyPoints Currency = "POINTS"
)

// FormulaKind selects the gross-stage computation for a platform.
type FormulaKind string

const (
	// FormulaFX converts the raw value with the source-currency rate and
	// applies the platform haircut.
	FormulaFX FormulaKind = "FX"
	// FormulaUnit multiplies the raw token/point count by a fixed unit value.
	// No currency conversion applies.
	FormulaUnit FormulaKind = "UNIT"
)

// Rule is the immutable conversion rule for one platform. Seeded as
// configuration, never user-editable.
type Rule struct {
	PlatformID      string
	Currency        Currency
	Formula         FormulaKind
	Haircut         decimal.Decimal
	UnitValue       decimal.Decimal
	DefaultShare    decimal.Decimal
	FullPassthrough bool
}

// ErrUnknownPlatform indicates no rule is configured for the platform id.
var ErrUnknownPlatform = errors.New("platforms: unknown platform")

var defaultShare = decimal.NewFromInt(80)

func fxRule(id string, ccy Currency, haircut string) Rule {
	return Rule{
		PlatformID:   id,
		Currency:     ccy,
		Formula:      FormulaFX,
		Haircut:      decimal.RequireFromString(haircut),
		DefaultShare: defaultShare,
	}
}

func unitRule(id string, ccy Currency, unitValue string) Rule {
	return Rule{
		PlatformID:   id,
		Currency:     ccy,
		Formula:      FormulaUnit,
		UnitValue:    decimal.RequireFromString(unitValue),
		DefaultShare: defaultShare,
	}
}

// rules is the business-critical constant table. The multipliers are
// contractual haircuts agreed with each platform; do not derive them.
var rules = map[string]Rule{
	"big7":          fxRule("big7", CurrencyEUR, "0.84"),
	"mondo":         fxRule("mondo", CurrencyEUR, "0.78"),
	"mdh":           fxRule("mdh", CurrencyEUR, "0.78"),
	"vx":            fxRule("vx", CurrencyEUR, "0.75"),
	"777live":       fxRule("777live", CurrencyEUR, "0.60"),
	"livecreator":   fxRule("livecreator", CurrencyEUR, "0.60"),
	"xmodels":       fxRule("xmodels", CurrencyEUR, "0.50"),
	"secretfriends": fxRule("secretfriends", CurrencyEUR, "0.50"),
	"modelka":       fxRule("modelka", CurrencyEUR, "1.0"),
	"aw":            fxRule("aw", CurrencyGBP, "0.677"),
	"dirtyfans":     fxRule("dirtyfans", CurrencyUSD, "1.0"),
	"camlust":       fxRule("camlust", CurrencyUSD, "0.75"),
	"superfoon": func() Rule {
		r := fxRule("superfoon", CurrencyEUR, "1.0")
		r.FullPassthrough = true
		return r
	}(),
	"chaturbate": unitRule("chaturbate", CurrencyTokens, "0.05"),
	"stripchat":  unitRule("stripchat", CurrencyTokens, "0.05"),
	"myfreecams": unitRule("myfreecams", CurrencyTokens, "0.05"),
	"camsoda":    unitRule("camsoda", CurrencyTokens, "0.05"),
	"dxlive":     unitRule("dxlive", CurrencyPoints, "0.60"),
}

// Lookup returns the rule for the platform id.
func Lookup(platformID string) (Rule, error) {
	rule, ok := rules[platformID]
	if !ok {
		return Rule{}, ErrUnknownPlatform
	}
	return rule, nil
}

// All returns every configured rule sorted by platform id.
func All() []Rule {
	out := make([]Rule, 0, len(rules))
	for _, rule := range rules {
		out = append(out, rule)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].PlatformID < out[j].PlatformID })
	return out
}
