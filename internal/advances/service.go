package advances

import (
	"context"
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"github.com/camcamberst/iam-sistema-de-gestion-sub002/internal/earnings"
	"github.com/camcamberst/iam-sistema-de-gestion-sub002/internal/shared"
)

// EarningsSource reads the aggregates advance and savings caps derive from.
type EarningsSource interface {
	LiveTotals(ctx context.Context, modelID int64, period shared.Period) (earnings.AggregateResult, error)
	Aggregate(ctx context.Context, modelID int64, period shared.Period) (earnings.AggregateResult, error)
}

// PeriodSource reports whether a period is already archived.
type PeriodSource interface {
	PeriodArchived(ctx context.Context, period shared.Period) (bool, error)
}

// Repository persists advances, deductions and savings requests.
type Repository interface {
	InsertAdvance(ctx context.Context, adv Advance) (Advance, error)
	GetAdvance(ctx context.Context, id int64) (Advance, error)
	UpdateAdvanceStatus(ctx context.Context, id int64, from, to Status, actorID int64, at time.Time) error
	ListAdvances(ctx context.Context, modelID int64, period shared.Period) ([]Advance, error)
	SumDisbursedAdvances(ctx context.Context, modelID int64, period shared.Period) (decimal.Decimal, error)

	InsertDeduction(ctx context.Context, ded Deduction) (Deduction, error)
	DeleteDeduction(ctx context.Context, id int64) error
	ListDeductions(ctx context.Context, modelID int64, period shared.Period) ([]Deduction, error)
	SumDeductions(ctx context.Context, modelID int64, period shared.Period) (decimal.Decimal, error)

	InsertSavings(ctx context.Context, req SavingsRequest) (SavingsRequest, error)
}

// Options tune the savings caps and response SLA.
type Options struct {
	// SavingsMaxPercentage caps a savings request as a share of net payable.
	SavingsMaxPercentage decimal.Decimal
	// SavingsSLA is the administrative response deadline for new requests.
	SavingsSLA time.Duration
}

// Service manages the advance lifecycle and the manual payout adjustments.
type Service struct {
	repo     Repository
	earnings EarningsSource
	periods  PeriodSource
	policy   WindowPolicy
	opts     Options
	now      func() time.Time
}

// NewService constructs an advances service.
func NewService(repo Repository, earnings EarningsSource, periods PeriodSource, policy WindowPolicy, opts Options) *Service {
	if opts.SavingsMaxPercentage.LessThanOrEqual(decimal.Zero) {
		opts.SavingsMaxPercentage = decimal.NewFromInt(50)
	}
	if opts.SavingsSLA <= 0 {
		opts.SavingsSLA = 72 * time.Hour
	}
	return &Service{
		repo:     repo,
		earnings: earnings,
		periods:  periods,
		policy:   policy,
		opts:     opts,
		now:      time.Now,
	}
}

// WithNow overrides the clock for deterministic tests.
func (s *Service) WithNow(now func() time.Time) {
	if now != nil {
		s.now = now
	}
}

// AvailableAdvance computes how much the model may still request against the
// currently open period: live local aggregate scaled by the configured ratio,
// minus what has already been disbursed. Never negative.
func (s *Service) AvailableAdvance(ctx context.Context, modelID int64) (decimal.Decimal, error) {
	if modelID <= 0 {
		return decimal.Zero, fmt.Errorf("advances: model id required")
	}
	period := shared.PeriodContaining(s.now().UTC())
	live, err := s.earnings.LiveTotals(ctx, modelID, period)
	if err != nil {
		return decimal.Zero, err
	}
	disbursed, err := s.repo.SumDisbursedAdvances(ctx, modelID, period)
	if err != nil {
		return decimal.Zero, err
	}
	available := s.policy.Cap(live.TotalModelLocal).Sub(disbursed)
	if available.IsNegative() {
		return decimal.Zero, nil
	}
	return available, nil
}

// RequestAdvance opens an advance for the current period. The availability
// figure is snapshotted on the row so later earnings swings never invalidate
// an accepted request.
func (s *Service) RequestAdvance(ctx context.Context, actor shared.Actor, modelID int64, amount decimal.Decimal) (Advance, error) {
	if !actor.HasCapability(shared.CapAdvancesRequest) {
		return Advance{}, shared.ErrCapabilityDenied
	}
	if amount.LessThanOrEqual(decimal.Zero) {
		return Advance{}, fmt.Errorf("advances: amount must be positive")
	}
	now := s.now().UTC()
	if err := s.policy.Check(now); err != nil {
		return Advance{}, err
	}
	available, err := s.AvailableAdvance(ctx, modelID)
	if err != nil {
		return Advance{}, err
	}
	if amount.GreaterThan(available) {
		return Advance{}, fmt.Errorf("%w: %s > %s", ErrAmountExceedsAvailable, amount, available)
	}
	return s.repo.InsertAdvance(ctx, Advance{
		ModelID:         modelID,
		Period:          shared.PeriodContaining(now),
		AmountRequested: amount,
		AmountAvailable: available,
		Status:          StatusRequested,
		RequestedAt:     now,
	})
}

// Transition moves an advance through its lifecycle. Approval, rejection and
// disbursement are administrative; confirmation belongs to the requester.
func (s *Service) Transition(ctx context.Context, actor shared.Actor, advanceID int64, target Status) (Advance, error) {
	required := shared.CapAdvancesManage
	if target == StatusConfirmed || target == StatusCancelled {
		required = shared.CapAdvancesRequest
	}
	if !actor.HasCapability(required) && !actor.HasCapability(shared.CapAdvancesManage) {
		return Advance{}, shared.ErrCapabilityDenied
	}
	adv, err := s.repo.GetAdvance(ctx, advanceID)
	if err != nil {
		return Advance{}, err
	}
	if err := ValidateTransition(adv.Status, target); err != nil {
		return Advance{}, err
	}
	at := s.now().UTC()
	if err := s.repo.UpdateAdvanceStatus(ctx, advanceID, adv.Status, target, actor.ID, at); err != nil {
		return Advance{}, err
	}
	adv.Status = target
	adv.ResolvedAt = &at
	adv.ResolvedBy = actor.ID
	return adv, nil
}

// Advances lists a model's advances for one period.
func (s *Service) Advances(ctx context.Context, modelID int64, period shared.Period) ([]Advance, error) {
	return s.repo.ListAdvances(ctx, modelID, period)
}

// AddDeduction records a manual deduction against an archived period.
// Deductions affect the net payable figure, never the per-platform archive.
func (s *Service) AddDeduction(ctx context.Context, actor shared.Actor, ded Deduction) (Deduction, error) {
	if !actor.HasCapability(shared.CapDeductionsEdit) {
		return Deduction{}, shared.ErrCapabilityDenied
	}
	if ded.ModelID <= 0 || ded.Period.IsZero() {
		return Deduction{}, fmt.Errorf("advances: deduction requires model and period")
	}
	if ded.Amount.LessThanOrEqual(decimal.Zero) {
		return Deduction{}, fmt.Errorf("advances: deduction amount must be positive")
	}
	archived, err := s.periods.PeriodArchived(ctx, ded.Period)
	if err != nil {
		return Deduction{}, err
	}
	if !archived {
		return Deduction{}, fmt.Errorf("%w: deductions apply to archived periods", shared.ErrPeriodNotClosed)
	}
	ded.CreatedAt = s.now().UTC()
	ded.CreatedBy = actor.ID
	return s.repo.InsertDeduction(ctx, ded)
}

// RemoveDeduction deletes one deduction row.
func (s *Service) RemoveDeduction(ctx context.Context, actor shared.Actor, id int64) error {
	if !actor.HasCapability(shared.CapDeductionsEdit) {
		return shared.ErrCapabilityDenied
	}
	return s.repo.DeleteDeduction(ctx, id)
}

// Deductions lists a model's deductions for one period.
func (s *Service) Deductions(ctx context.Context, modelID int64, period shared.Period) ([]Deduction, error) {
	return s.repo.ListDeductions(ctx, modelID, period)
}

// RequestSavings opens a savings request against a closed period's net
// payable, capped at the configured percentage.
func (s *Service) RequestSavings(ctx context.Context, actor shared.Actor, modelID int64, period shared.Period, percentage decimal.Decimal) (SavingsRequest, error) {
	if !actor.HasCapability(shared.CapSavingsRequest) {
		return SavingsRequest{}, shared.ErrCapabilityDenied
	}
	if percentage.LessThanOrEqual(decimal.Zero) || percentage.GreaterThan(s.opts.SavingsMaxPercentage) {
		return SavingsRequest{}, fmt.Errorf("advances: savings percentage must be in (0, %s]", s.opts.SavingsMaxPercentage)
	}
	archived, err := s.periods.PeriodArchived(ctx, period)
	if err != nil {
		return SavingsRequest{}, err
	}
	if !archived {
		return SavingsRequest{}, fmt.Errorf("%w: savings consume a closed period", shared.ErrPeriodNotClosed)
	}
	agg, err := s.earnings.Aggregate(ctx, modelID, period)
	if err != nil {
		return SavingsRequest{}, err
	}
	if agg.NetPayable.LessThanOrEqual(decimal.Zero) {
		return SavingsRequest{}, fmt.Errorf("advances: period %s has no positive net payable", period)
	}
	now := s.now().UTC()
	return s.repo.InsertSavings(ctx, SavingsRequest{
		ModelID:     modelID,
		Period:      period,
		Percentage:  percentage,
		Amount:      agg.NetPayable.Mul(percentage).Div(decimal.NewFromInt(100)).Round(2),
		Status:      StatusRequested,
		RequestedAt: now,
		RespondBy:   now.Add(s.opts.SavingsSLA),
	})
}
