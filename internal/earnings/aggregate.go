package earnings

import (
	"context"
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"github.com/camcamberst/iam-sistema-de-gestion-sub002/internal/platforms"
	"github.com/camcamberst/iam-sistema-de-gestion-sub002/internal/rates"
	"github.com/camcamberst/iam-sistema-de-gestion-sub002/internal/shared"
)

// ValueStore persists raw platform values for open periods.
type ValueStore interface {
	ListForModel(ctx context.Context, modelID int64, period shared.Period) ([]PlatformValue, error)
	Upsert(ctx context.Context, value PlatformValue) (PlatformValue, error)
	ModelProfile(ctx context.Context, modelID int64) (Profile, error)
}

// ArchiveSource reads frozen per-platform values once a period is closed.
type ArchiveSource interface {
	PeriodArchived(ctx context.Context, period shared.Period) (bool, error)
	ListArchivedLines(ctx context.Context, modelID int64, period shared.Period) ([]ArchivedLine, error)
}

// LedgerSource sums the amounts netted out of a period's earnings.
type LedgerSource interface {
	SumDisbursedAdvances(ctx context.Context, modelID int64, period shared.Period) (decimal.Decimal, error)
	SumDeductions(ctx context.Context, modelID int64, period shared.Period) (decimal.Decimal, error)
}

// RateResolver resolves the effective rate set for a scope.
type RateResolver interface {
	Resolve(ctx context.Context, scope rates.Scope, asOf time.Time) (rates.Set, error)
}

// Service aggregates per-platform earnings into period totals.
type Service struct {
	values   ValueStore
	archive  ArchiveSource
	ledger   LedgerSource
	resolver RateResolver
	now      func() time.Time
}

// NewService constructs the aggregation service.
func NewService(values ValueStore, archive ArchiveSource, ledger LedgerSource, resolver RateResolver) *Service {
	return &Service{
		values:   values,
		archive:  archive,
		ledger:   ledger,
		resolver: resolver,
		now:      time.Now,
	}
}

// WithNow overrides the clock for deterministic tests.
func (s *Service) WithNow(now func() time.Time) {
	if now != nil {
		s.now = now
	}
}

// ShareFor selects the model-share percentage for a platform: the model's
// override when configured, the rule default otherwise.
func ShareFor(profile Profile, rule platforms.Rule) decimal.Decimal {
	if pct, ok := profile.Shares[rule.PlatformID]; ok && pct.GreaterThan(decimal.Zero) {
		return pct
	}
	return rule.DefaultShare
}

// ScopeFor maps a model profile to its rate scope.
func ScopeFor(profile Profile) rates.Scope {
	if profile.GroupID > 0 {
		return rates.GroupScope(profile.GroupID)
	}
	return rates.ScopeGlobal
}

// Aggregate computes the period totals and net payable for one model. Closed
// periods read the archived records verbatim; open periods convert the live
// platform values with the currently effective rates.
func (s *Service) Aggregate(ctx context.Context, modelID int64, period shared.Period) (AggregateResult, error) {
	if s == nil || s.values == nil {
		return AggregateResult{}, fmt.Errorf("earnings service not initialised")
	}
	if modelID <= 0 {
		return AggregateResult{}, fmt.Errorf("earnings: model id required")
	}
	if period.IsZero() {
		return AggregateResult{}, fmt.Errorf("earnings: period required")
	}
	result := AggregateResult{ModelID: modelID, Period: period}

	archived, err := s.archive.PeriodArchived(ctx, period)
	if err != nil {
		return AggregateResult{}, err
	}
	if archived {
		lines, err := s.archive.ListArchivedLines(ctx, modelID, period)
		if err != nil {
			return AggregateResult{}, err
		}
		for _, line := range lines {
			result.TotalGross = result.TotalGross.Add(line.Gross)
			result.TotalModelSettlement = result.TotalModelSettlement.Add(line.ModelSettlement)
			result.TotalModelLocal = result.TotalModelLocal.Add(line.ModelLocal)
		}
		result.Archived = true
	} else {
		live, err := s.liveTotals(ctx, modelID, period)
		if err != nil {
			return AggregateResult{}, err
		}
		result.TotalGross = live.TotalGross
		result.TotalModelSettlement = live.TotalModelSettlement
		result.TotalModelLocal = live.TotalModelLocal
	}

	advances, err := s.ledger.SumDisbursedAdvances(ctx, modelID, period)
	if err != nil {
		return AggregateResult{}, err
	}
	deductions, err := s.ledger.SumDeductions(ctx, modelID, period)
	if err != nil {
		return AggregateResult{}, err
	}
	result.AdvancesDisbursed = advances
	result.Deductions = deductions
	result.NetPayable = result.TotalModelLocal.Sub(advances).Sub(deductions)
	return result, nil
}

// LiveTotals converts the open period's platform values with current rates.
// Advance availability reads this figure before disbursements are netted.
func (s *Service) LiveTotals(ctx context.Context, modelID int64, period shared.Period) (AggregateResult, error) {
	if modelID <= 0 {
		return AggregateResult{}, fmt.Errorf("earnings: model id required")
	}
	return s.liveTotals(ctx, modelID, period)
}

func (s *Service) liveTotals(ctx context.Context, modelID int64, period shared.Period) (AggregateResult, error) {
	result := AggregateResult{ModelID: modelID, Period: period}
	values, err := s.values.ListForModel(ctx, modelID, period)
	if err != nil {
		return AggregateResult{}, err
	}
	if len(values) == 0 {
		return result, nil
	}
	profile, err := s.values.ModelProfile(ctx, modelID)
	if err != nil {
		return AggregateResult{}, err
	}
	set, err := s.resolver.Resolve(ctx, ScopeFor(profile), s.now().UTC())
	if err != nil {
		return AggregateResult{}, err
	}
	for _, value := range values {
		rule, err := platforms.Lookup(value.PlatformID)
		if err != nil {
			return AggregateResult{}, fmt.Errorf("model %d: %w", modelID, err)
		}
		converted, err := Convert(rule, value.RawValue, set, ShareFor(profile, rule))
		if err != nil {
			return AggregateResult{}, fmt.Errorf("model %d platform %s: %w", modelID, value.PlatformID, err)
		}
		result.TotalGross = result.TotalGross.Add(converted.Gross)
		result.TotalModelSettlement = result.TotalModelSettlement.Add(converted.ModelSettlement)
		result.TotalModelLocal = result.TotalModelLocal.Add(converted.ModelLocal)
	}
	return result, nil
}

// RecordValue upserts one raw platform figure for an open period.
func (s *Service) RecordValue(ctx context.Context, value PlatformValue) (PlatformValue, error) {
	if value.ModelID <= 0 {
		return PlatformValue{}, fmt.Errorf("earnings: model id required")
	}
	if value.Period.IsZero() {
		return PlatformValue{}, fmt.Errorf("earnings: period required")
	}
	if _, err := platforms.Lookup(value.PlatformID); err != nil {
		return PlatformValue{}, err
	}
	if value.RawValue.IsNegative() {
		return PlatformValue{}, fmt.Errorf("earnings: raw value cannot be negative")
	}
	archived, err := s.archive.PeriodArchived(ctx, value.Period)
	if err != nil {
		return PlatformValue{}, err
	}
	if archived {
		return PlatformValue{}, fmt.Errorf("%w: %s", shared.ErrPeriodArchived, value.Period)
	}
	return s.values.Upsert(ctx, value)
}
