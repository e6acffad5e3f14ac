package advances

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"github.com/camcamberst/iam-sistema-de-gestion-sub002/internal/shared"
)

// WindowPolicy decides when advance requests are accepted and how much of
// the live aggregate may be advanced. All boundaries come from configuration.
type WindowPolicy struct {
	// MaxRatio caps the advance at this fraction of the live local total.
	MaxRatio decimal.Decimal
	// MonthStartBlackoutUntil blocks requests from the last day of the
	// previous month through this day (inclusive).
	MonthStartBlackoutUntil int
	// MidBlackoutFrom and MidBlackoutUntil block requests around the
	// mid-month closure (inclusive on both ends).
	MidBlackoutFrom  int
	MidBlackoutUntil int
}

// DefaultWindowPolicy mirrors the production payout calendar: requests pause
// from end-of-month through day 5 and from day 15 through day 20.
func DefaultWindowPolicy() WindowPolicy {
	return WindowPolicy{
		MaxRatio:                decimal.RequireFromString("0.90"),
		MonthStartBlackoutUntil: 5,
		MidBlackoutFrom:         15,
		MidBlackoutUntil:        20,
	}
}

// Check rejects instants inside a blackout window.
func (p WindowPolicy) Check(at time.Time) error {
	day := at.Day()
	lastDay := time.Date(at.Year(), at.Month()+1, 0, 0, 0, 0, 0, at.Location()).Day()
	switch {
	case day == lastDay || day <= p.MonthStartBlackoutUntil:
		return fmt.Errorf("%w: day %d", shared.ErrOutsideRequestWindow, day)
	case day >= p.MidBlackoutFrom && day <= p.MidBlackoutUntil:
		return fmt.Errorf("%w: day %d", shared.ErrOutsideRequestWindow, day)
	}
	return nil
}

// Cap applies the configured ratio to the live local aggregate.
func (p WindowPolicy) Cap(liveLocal decimal.Decimal) decimal.Decimal {
	return liveLocal.Mul(p.MaxRatio).Round(2)
}
