package platforms

import (
	"errors"
	"testing"

	"github.com/shopspring/decimal"
)

func TestLookup_KnownPlatforms(t *testing.T) {
	cases := []struct {
		platform string
		currency Currency
		formula  FormulaKind
		factor   string
	}{
		{"big7", CurrencyEUR, FormulaFX, "0.84"},
		{"mondo", CurrencyEUR, FormulaFX, "0.78"},
		{"aw", CurrencyGBP, FormulaFX, "0.677"},
		{"vx", CurrencyEUR, FormulaFX, "0.75"},
		{"777live", CurrencyEUR, FormulaFX, "0.60"},
		{"xmodels", CurrencyEUR, FormulaFX, "0.50"},
		{"dirtyfans", CurrencyUSD, FormulaFX, "1.0"},
		{"chaturbate", CurrencyTokens, FormulaUnit, "0.05"},
		{"dxlive", CurrencyPoints, FormulaUnit, "0.60"},
	}
	for _, tc := range cases {
		rule, err := Lookup(tc.platform)
		if err != nil {
			t.Fatalf("Lookup(%s) returned error: %v", tc.platform, err)
		}
		if rule.Currency != tc.currency {
			t.Fatalf("%s: expected currency %s, got %s", tc.platform, tc.currency, rule.Currency)
		}
		if rule.Formula != tc.formula {
			t.Fatalf("%s: expected formula %s, got %s", tc.platform, tc.formula, rule.Formula)
		}
		want := decimal.RequireFromString(tc.factor)
		got := rule.Haircut
		if tc.formula == FormulaUnit {
			got = rule.UnitValue
		}
		if !got.Equal(want) {
			t.Fatalf("%s: expected factor %s, got %s", tc.platform, want, got)
		}
	}
}

func TestLookup_UnknownPlatform(t *testing.T) {
	_, err := Lookup("acme")
	if !errors.Is(err, ErrUnknownPlatform) {
		t.Fatalf("expected ErrUnknownPlatform, got %v", err)
	}
}

func TestLookup_FullPassthrough(t *testing.T) {
	rule, err := Lookup("superfoon")
	if err != nil {
		t.Fatalf("Lookup returned error: %v", err)
	}
	if !rule.FullPassthrough {
		t.Fatalf("expected superfoon to be full passthrough")
	}
}

func TestAll_SortedAndComplete(t *testing.T) {
	all := All()
	if len(all) != len(rules) {
		t.Fatalf("expected %d rules, got %d", len(rules), len(all))
	}
	for i := 1; i < len(all); i++ {
		if all[i-1].PlatformID >= all[i].PlatformID {
			t.Fatalf("rules not sorted at index %d", i)
		}
	}
	for _, rule := range all {
		if rule.DefaultShare.LessThanOrEqual(decimal.Zero) {
			t.Fatalf("%s: default share must be positive", rule.PlatformID)
		}
		switch rule.Formula {
		case FormulaFX:
			if rule.Haircut.LessThanOrEqual(decimal.Zero) {
				t.Fatalf("%s: haircut must be positive", rule.PlatformID)
			}
		case FormulaUnit:
			if rule.UnitValue.LessThanOrEqual(decimal.Zero) {
				t.Fatalf("%s: unit value must be positive", rule.PlatformID)
			}
		default:
			t.Fatalf("%s: unknown formula %s", rule.PlatformID, rule.Formula)
		}
	}
}
