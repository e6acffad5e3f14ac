// Package advances manages early disbursements against in-progress period
// earnings, plus the manual deductions and savings requests that net out of
// a model's payout.
package advances

import (
	"errors"
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"github.com/camcamberst/iam-sistema-de-gestion-sub002/internal/shared"
)

// Status values of the advance lifecycle.
type Status string

const (
	StatusRequested Status = "REQUESTED"
	StatusApproved  Status = "APPROVED"
	StatusRejected  Status = "REJECTED"
	StatusDisbursed Status = "DISBURSED"
	StatusConfirmed Status = "CONFIRMED"
	StatusCancelled Status = "CANCELLED"
)

// ErrInvalidTransition indicates an advance status change not allowed by the
// lifecycle.
var ErrInvalidTransition = errors.New("advances: status transition invalid")

// ErrAmountExceedsAvailable indicates a request above the advance cap.
var ErrAmountExceedsAvailable = errors.New("advances: amount exceeds available")

// ValidateTransition checks an advance status change. Rejected, confirmed
// and cancelled are terminal.
func ValidateTransition(current, target Status) error {
	allowed := map[Status][]Status{
		StatusRequested: {StatusApproved, StatusRejected, StatusCancelled},
		StatusApproved:  {StatusDisbursed, StatusCancelled},
		StatusDisbursed: {StatusConfirmed},
	}
	for _, next := range allowed[current] {
		if next == target {
			return nil
		}
	}
	return fmt.Errorf("%w: %s -> %s", ErrInvalidTransition, current, target)
}

// Advance is one early disbursement request against the open period.
// AmountAvailable snapshots the cap at request time so later earnings
// changes never retroactively invalidate the request.
type Advance struct {
	ID              int64           `json:"id"`
	ModelID         int64           `json:"model_id"`
	Period          shared.Period   `json:"period"`
	AmountRequested decimal.Decimal `json:"amount_requested"`
	AmountAvailable decimal.Decimal `json:"amount_available_at_request_time"`
	Status          Status          `json:"status"`
	RequestedAt     time.Time       `json:"requested_at"`
	ResolvedAt      *time.Time      `json:"resolved_at,omitempty"`
	ResolvedBy      int64           `json:"resolved_by,omitempty"`
}

// Deduction is a manual amount an admin nets out of a closed period.
type Deduction struct {
	ID        int64           `json:"id"`
	ModelID   int64           `json:"model_id"`
	Period    shared.Period   `json:"period"`
	Concept   string          `json:"concept"`
	Amount    decimal.Decimal `json:"amount"`
	CreatedAt time.Time       `json:"created_at"`
	CreatedBy int64           `json:"created_by"`
}

// SavingsRequest is a model's request to move part of a closed period's net
// payable into savings. RespondBy is the service-level deadline for an
// administrative decision.
type SavingsRequest struct {
	ID          int64           `json:"id"`
	ModelID     int64           `json:"model_id"`
	Period      shared.Period   `json:"period"`
	Percentage  decimal.Decimal `json:"percentage"`
	Amount      decimal.Decimal `json:"amount"`
	Status      Status          `json:"status"`
	RequestedAt time.Time       `json:"requested_at"`
	RespondBy   time.Time       `json:"respond_by"`
}
