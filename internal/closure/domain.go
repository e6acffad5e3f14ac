package closure

import (
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/camcamberst/iam-sistema-de-gestion-sub002/internal/rates"
	"github.com/camcamberst/iam-sistema-de-gestion-sub002/internal/shared"
)

// ArchivedRecord freezes one (model, platform, period) computation at closure
// time. RawValue and PlatformPercentage are immutable after creation; only the
// rates-used and derived fields may be rewritten, and only by retroactive rate
// correction while ArchivedAt is set.
type ArchivedRecord struct {
	ID                 uuid.UUID
	ModelID            int64
	PlatformID         string
	Period             shared.Period
	RawValue           decimal.Decimal
	PlatformPercentage decimal.Decimal
	RatesUsed          rates.Set
	Gross              decimal.Decimal
	ModelSettlement    decimal.Decimal
	ModelLocal         decimal.Decimal
	ArchivedAt         *time.Time
}

// ModelFailure reports one model skipped during closure.
type ModelFailure struct {
	ModelID int64  `json:"model_id"`
	Reason  string `json:"reason"`
}

// Manifest is the per-model outcome of a closure run. One model's missing
// data never blocks the rest.
type Manifest struct {
	Period   shared.Period  `json:"period"`
	Archived []int64        `json:"archived"`
	Skipped  []ModelFailure `json:"skipped"`
	Records  int            `json:"records"`
}

// RecordError reports one archived record that failed to update during
// correction.
type RecordError struct {
	RecordID   uuid.UUID `json:"record_id"`
	ModelID    int64     `json:"model_id"`
	PlatformID string    `json:"platform_id"`
	Reason     string    `json:"reason"`
}

// CorrectionResult is the partial-success outcome of a retroactive rate
// correction.
type CorrectionResult struct {
	UpdatedCount    int           `json:"updated_count"`
	TotalCandidates int           `json:"total_candidates"`
	Errors          []RecordError `json:"errors"`
}

// CorrectionInput bundles parameters for a retroactive rate correction.
type CorrectionInput struct {
	Period      shared.Period
	NewRates    rates.Set
	Actor       shared.Actor
	ModelFilter []int64
}

// ErrDuplicateArchive indicates a record for (model, platform, period)
// already exists; a duplicate closure attempt fails idempotently.
var ErrDuplicateArchive = errors.New("closure: record already archived")

// ErrClosureInProgress indicates another closure run holds the period lock.
var ErrClosureInProgress = errors.New("closure: period closure already in progress")
