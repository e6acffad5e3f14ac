package earnings

import (
	"fmt"

	"github.com/shopspring/decimal"

	"github.com/camcamberst/iam-sistema-de-gestion-sub002/internal/platforms"
	"github.com/camcamberst/iam-sistema-de-gestion-sub002/internal/rates"
	"github.com/camcamberst/iam-sistema-de-gestion-sub002/internal/shared"
)

var oneHundred = decimal.NewFromInt(100)

// Convert derives the gross, model-settlement and model-local values for one
// platform figure. Pure and deterministic: identical inputs always yield
// identical outputs. Persisted values are rounded to 2 decimal places.
func Convert(rule platforms.Rule, rawValue decimal.Decimal, set rates.Set, percentage decimal.Decimal) (ConversionResult, error) {
	if rawValue.IsNegative() {
		return ConversionResult{}, fmt.Errorf("earnings: raw value cannot be negative")
	}
	if percentage.IsNegative() || percentage.GreaterThan(oneHundred) {
		return ConversionResult{}, fmt.Errorf("earnings: percentage out of range: %s", percentage)
	}

	var gross decimal.Decimal
	switch rule.Formula {
	case platforms.FormulaUnit:
		gross = rawValue.Mul(rule.UnitValue)
	case platforms.FormulaFX:
		fxRate, err := sourceRate(rule.Currency, set)
		if err != nil {
			return ConversionResult{}, err
		}
		gross = rawValue.Mul(fxRate).Mul(rule.Haircut)
	default:
		return ConversionResult{}, fmt.Errorf("earnings: platform %s has unknown formula %s", rule.PlatformID, rule.Formula)
	}

	settlement := gross
	if !rule.FullPassthrough {
		settlement = gross.Mul(percentage.Div(oneHundred))
	}

	if set.USDCOP.LessThanOrEqual(decimal.Zero) {
		return ConversionResult{}, fmt.Errorf("%w: %s", shared.ErrRateNotFound, rates.KindUSDCOP)
	}
	local := settlement.Mul(set.USDCOP)

	return ConversionResult{
		Gross:           gross.Round(2),
		ModelSettlement: settlement.Round(2),
		ModelLocal:      local.Round(2),
	}, nil
}

// sourceRate selects the source-currency conversion into USD. Settlement-like
// platforms report in USD and need no conversion. A missing rate propagates;
// monetary computations never default to zero.
func sourceRate(currency platforms.Currency, set rates.Set) (decimal.Decimal, error) {
	switch currency {
	case platforms.CurrencyUSD:
		return decimal.NewFromInt(1), nil
	case platforms.CurrencyEUR:
		if set.EURUSD.LessThanOrEqual(decimal.Zero) {
			return decimal.Decimal{}, fmt.Errorf("%w: %s", shared.ErrRateNotFound, rates.KindEURUSD)
		}
		return set.EURUSD, nil
	case platforms.CurrencyGBP:
		if set.GBPUSD.LessThanOrEqual(decimal.Zero) {
			return decimal.Decimal{}, fmt.Errorf("%w: %s", shared.ErrRateNotFound, rates.KindGBPUSD)
		}
		return set.GBPUSD, nil
	}
	return decimal.Decimal{}, fmt.Errorf("earnings: currency %s does not convert through fx", currency)
}
