package earnings

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/camcamberst/iam-sistema-de-gestion-sub002/internal/shared"
)

// PlatformValue is the raw per-platform figure a model reports for an open
// period. One row per (model, platform, period); cleared at closure.
type PlatformValue struct {
	ID         int64
	ModelID    int64
	PlatformID string
	Period     shared.Period
	RawValue   decimal.Decimal
	UpdatedAt  time.Time
}

// ConversionResult carries the three derived monetary figures for one
// platform value.
type ConversionResult struct {
	Gross           decimal.Decimal `json:"gross"`
	ModelSettlement decimal.Decimal `json:"model_settlement"`
	ModelLocal      decimal.Decimal `json:"model_local"`
}

// AggregateResult sums a model's converted earnings for one period and nets
// out disbursed advances and deductions. NetPayable may be negative; callers
// see over-advancement instead of a silent floor at zero.
type AggregateResult struct {
	ModelID              int64           `json:"model_id"`
	Period               shared.Period   `json:"period"`
	TotalGross           decimal.Decimal `json:"total_gross"`
	TotalModelSettlement decimal.Decimal `json:"total_model_settlement"`
	TotalModelLocal      decimal.Decimal `json:"total_model_local"`
	AdvancesDisbursed    decimal.Decimal `json:"advances_disbursed"`
	Deductions           decimal.Decimal `json:"deductions"`
	NetPayable           decimal.Decimal `json:"net_payable"`
	Archived             bool            `json:"archived"`
}

// ArchivedLine is the slice of an archived record the aggregator needs when
// the period is already closed.
type ArchivedLine struct {
	PlatformID      string
	Gross           decimal.Decimal
	ModelSettlement decimal.Decimal
	ModelLocal      decimal.Decimal
}

// Profile carries the model attributes the aggregator depends on: the rate
// scope group and any per-platform share overrides.
type Profile struct {
	ModelID int64
	GroupID int64
	Shares  map[string]decimal.Decimal
}
