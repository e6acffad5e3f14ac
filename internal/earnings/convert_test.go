package earnings

import (
	"errors"
	"testing"

	"github.com/shopspring/decimal"

	"github.com/camcamberst/iam-sistema-de-gestion-sub002/internal/platforms"
	"github.com/camcamberst/iam-sistema-de-gestion-sub002/internal/rates"
	"github.com/camcamberst/iam-sistema-de-gestion-sub002/internal/shared"
)

func testRates() rates.Set {
	return rates.Set{
		EURUSD: decimal.RequireFromString("1.05"),
		GBPUSD: decimal.RequireFromString("1.20"),
		USDCOP: decimal.RequireFromString("4000"),
	}
}

func mustRule(t *testing.T, platformID string) platforms.Rule {
	t.Helper()
	rule, err := platforms.Lookup(platformID)
	if err != nil {
		t.Fatalf("Lookup(%s): %v", platformID, err)
	}
	return rule
}

func TestConvert_EURPlatformWithHaircut(t *testing.T) {
	// 100 EUR at 1.05 with 16% haircut, 80% share, 4000 COP per USD.
	rule := mustRule(t, "big7")
	res, err := Convert(rule, decimal.NewFromInt(100), testRates(), decimal.NewFromInt(80))
	if err != nil {
		t.Fatalf("Convert returned error: %v", err)
	}
	if !res.Gross.Equal(decimal.RequireFromString("88.20")) {
		t.Fatalf("unexpected gross: %s", res.Gross)
	}
	if !res.ModelSettlement.Equal(decimal.RequireFromString("70.56")) {
		t.Fatalf("unexpected settlement: %s", res.ModelSettlement)
	}
	if !res.ModelLocal.Equal(decimal.RequireFromString("282240.00")) {
		t.Fatalf("unexpected local: %s", res.ModelLocal)
	}
}

func TestConvert_TokenPlatform(t *testing.T) {
	// 1000 tokens at 0.05 each, no FX stage, 80% share.
	rule := mustRule(t, "chaturbate")
	res, err := Convert(rule, decimal.NewFromInt(1000), testRates(), decimal.NewFromInt(80))
	if err != nil {
		t.Fatalf("Convert returned error: %v", err)
	}
	if !res.Gross.Equal(decimal.RequireFromString("50.00")) {
		t.Fatalf("unexpected gross: %s", res.Gross)
	}
	if !res.ModelSettlement.Equal(decimal.RequireFromString("40.00")) {
		t.Fatalf("unexpected settlement: %s", res.ModelSettlement)
	}
	if !res.ModelLocal.Equal(decimal.RequireFromString("160000.00")) {
		t.Fatalf("unexpected local: %s", res.ModelLocal)
	}
}

func TestConvert_FullPassthroughIgnoresPercentage(t *testing.T) {
	rule := platforms.Rule{
		PlatformID:      "superfoon",
		Currency:        platforms.CurrencyUSD,
		Formula:         platforms.FormulaFX,
		Haircut:         decimal.NewFromInt(1),
		FullPassthrough: true,
	}
	res, err := Convert(rule, decimal.NewFromInt(200), testRates(), decimal.NewFromInt(30))
	if err != nil {
		t.Fatalf("Convert returned error: %v", err)
	}
	if !res.Gross.Equal(decimal.RequireFromString("200.00")) {
		t.Fatalf("unexpected gross: %s", res.Gross)
	}
	if !res.ModelSettlement.Equal(res.Gross) {
		t.Fatalf("passthrough settlement must equal gross, got %s", res.ModelSettlement)
	}
}

func TestConvert_GBPPlatform(t *testing.T) {
	rule := mustRule(t, "aw")
	res, err := Convert(rule, decimal.NewFromInt(100), testRates(), decimal.NewFromInt(80))
	if err != nil {
		t.Fatalf("Convert returned error: %v", err)
	}
	// 100 * 1.20 * 0.677 = 81.24
	if !res.Gross.Equal(decimal.RequireFromString("81.24")) {
		t.Fatalf("unexpected gross: %s", res.Gross)
	}
}

func TestConvert_Deterministic(t *testing.T) {
	rule := mustRule(t, "vx")
	raw := decimal.RequireFromString("123.45")
	pct := decimal.RequireFromString("72.5")
	first, err := Convert(rule, raw, testRates(), pct)
	if err != nil {
		t.Fatalf("Convert returned error: %v", err)
	}
	for i := 0; i < 10; i++ {
		again, err := Convert(rule, raw, testRates(), pct)
		if err != nil {
			t.Fatalf("Convert returned error: %v", err)
		}
		if !again.Gross.Equal(first.Gross) || !again.ModelSettlement.Equal(first.ModelSettlement) || !again.ModelLocal.Equal(first.ModelLocal) {
			t.Fatalf("conversion not deterministic: %+v vs %+v", again, first)
		}
	}
}

func TestConvert_MissingSourceRate(t *testing.T) {
	rule := mustRule(t, "big7")
	set := testRates()
	set.EURUSD = decimal.Zero
	_, err := Convert(rule, decimal.NewFromInt(100), set, decimal.NewFromInt(80))
	if !errors.Is(err, shared.ErrRateNotFound) {
		t.Fatalf("expected ErrRateNotFound, got %v", err)
	}
}

func TestConvert_MissingLocalRate(t *testing.T) {
	rule := mustRule(t, "chaturbate")
	set := testRates()
	set.USDCOP = decimal.Zero
	_, err := Convert(rule, decimal.NewFromInt(100), set, decimal.NewFromInt(80))
	if !errors.Is(err, shared.ErrRateNotFound) {
		t.Fatalf("expected ErrRateNotFound, got %v", err)
	}
}

func TestConvert_RejectsNegativeRaw(t *testing.T) {
	rule := mustRule(t, "chaturbate")
	if _, err := Convert(rule, decimal.NewFromInt(-1), testRates(), decimal.NewFromInt(80)); err == nil {
		t.Fatalf("expected error for negative raw value")
	}
}

func TestConvert_RejectsPercentageOutOfRange(t *testing.T) {
	rule := mustRule(t, "chaturbate")
	if _, err := Convert(rule, decimal.NewFromInt(10), testRates(), decimal.NewFromInt(101)); err == nil {
		t.Fatalf("expected error for percentage above 100")
	}
}

func TestConvert_RoundsToTwoDecimals(t *testing.T) {
	rule := mustRule(t, "aw")
	// 33 * 1.20 * 0.677 = 26.8092 -> 26.81
	res, err := Convert(rule, decimal.NewFromInt(33), testRates(), decimal.NewFromInt(100))
	if err != nil {
		t.Fatalf("Convert returned error: %v", err)
	}
	if !res.Gross.Equal(decimal.RequireFromString("26.81")) {
		t.Fatalf("expected 2dp rounding, got %s", res.Gross)
	}
}
