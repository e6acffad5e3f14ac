package shared

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"
)

// PeriodType distinguishes the two half-month accounting windows.
type PeriodType string

const (
	// PeriodFirstHalf covers day 1 through day 15.
	PeriodFirstHalf PeriodType = "FIRST_HALF"
	// PeriodSecondHalf covers day 16 through the end of the month.
	PeriodSecondHalf PeriodType = "SECOND_HALF"
)

// Period statuses for the closure lifecycle.
const (
	PeriodStatusOpen     = "OPEN"
	PeriodStatusClosing  = "CLOSING"
	PeriodStatusArchived = "ARCHIVED"
)

// ErrInvalidPeriodTransition indicates status change not allowed.
var ErrInvalidPeriodTransition = errors.New("period transition invalid")

// Period identifies one half-month accounting window. Date is normalised to
// the first day of the month at midnight UTC.
type Period struct {
	Date time.Time
	Type PeriodType
}

// NewPeriod normalises the supplied date to the period's month anchor.
func NewPeriod(date time.Time, typ PeriodType) Period {
	return Period{
		Date: time.Date(date.Year(), date.Month(), 1, 0, 0, 0, 0, time.UTC),
		Type: typ,
	}
}

// PeriodContaining returns the period that covers the given instant.
// Computed once at the API boundary and threaded through every call.
func PeriodContaining(t time.Time) Period {
	typ := PeriodFirstHalf
	if t.Day() > 15 {
		typ = PeriodSecondHalf
	}
	return NewPeriod(t, typ)
}

// ParsePeriodType validates and normalises a period type string.
func ParsePeriodType(raw string) (PeriodType, error) {
	switch PeriodType(strings.ToUpper(strings.TrimSpace(raw))) {
	case PeriodFirstHalf:
		return PeriodFirstHalf, nil
	case PeriodSecondHalf:
		return PeriodSecondHalf, nil
	}
	return "", fmt.Errorf("unknown period type %q", raw)
}

// ParsePeriod reads a compact period code such as 2026-08-H1.
func ParsePeriod(raw string) (Period, error) {
	code := strings.ToUpper(strings.TrimSpace(raw))
	var half PeriodType
	switch {
	case strings.HasSuffix(code, "-H1"):
		half = PeriodFirstHalf
	case strings.HasSuffix(code, "-H2"):
		half = PeriodSecondHalf
	default:
		return Period{}, fmt.Errorf("malformed period code %q", raw)
	}
	date, err := time.Parse("2006-01", strings.TrimSuffix(strings.TrimSuffix(code, "-H1"), "-H2"))
	if err != nil {
		return Period{}, fmt.Errorf("malformed period code %q", raw)
	}
	return NewPeriod(date, half), nil
}

// String renders a compact period code such as 2026-08-H1.
func (p Period) String() string {
	half := "H1"
	if p.Type == PeriodSecondHalf {
		half = "H2"
	}
	return fmt.Sprintf("%s-%s", p.Date.Format("2006-01"), half)
}

// MarshalJSON renders the compact period code.
func (p Period) MarshalJSON() ([]byte, error) {
	return json.Marshal(p.String())
}

// UnmarshalJSON reads the compact period code.
func (p *Period) UnmarshalJSON(data []byte) error {
	var code string
	if err := json.Unmarshal(data, &code); err != nil {
		return err
	}
	parsed, err := ParsePeriod(code)
	if err != nil {
		return err
	}
	*p = parsed
	return nil
}

// Start returns the first instant covered by the period.
func (p Period) Start() time.Time {
	if p.Type == PeriodSecondHalf {
		return p.Date.AddDate(0, 0, 15)
	}
	return p.Date
}

// End returns the first instant after the period.
func (p Period) End() time.Time {
	if p.Type == PeriodFirstHalf {
		return p.Date.AddDate(0, 0, 15)
	}
	return p.Date.AddDate(0, 1, 0)
}

// IsZero reports whether the period carries no date.
func (p Period) IsZero() bool {
	return p.Date.IsZero()
}

// ValidatePeriodTransition checks closure status changes according to policy.
// A period never reverts to OPEN once closing has begun.
func ValidatePeriodTransition(current, target string) error {
	if current == target {
		return nil
	}
	switch current {
	case PeriodStatusOpen:
		if target == PeriodStatusClosing {
			return nil
		}
	case PeriodStatusClosing:
		if target == PeriodStatusArchived {
			return nil
		}
	}
	return ErrInvalidPeriodTransition
}
