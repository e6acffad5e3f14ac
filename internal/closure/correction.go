package closure

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"golang.org/x/sync/errgroup"

	"github.com/camcamberst/iam-sistema-de-gestion-sub002/internal/audit"
	"github.com/camcamberst/iam-sistema-de-gestion-sub002/internal/earnings"
	"github.com/camcamberst/iam-sistema-de-gestion-sub002/internal/platforms"
	"github.com/camcamberst/iam-sistema-de-gestion-sub002/internal/shared"
)

// AuditSink records correction invocations durably.
type AuditSink interface {
	Record(ctx context.Context, entry audit.Entry) error
}

// CorrectPeriodRates replaces the frozen rates of an archived period and
// recomputes every derived value. Preconditions fail before any write; once
// the batch starts, per-record failures accumulate into the result instead
// of aborting sibling writes.
func (s *Service) CorrectPeriodRates(ctx context.Context, in CorrectionInput) (CorrectionResult, error) {
	if s == nil || s.store == nil {
		return CorrectionResult{}, fmt.Errorf("closure service not initialised")
	}
	if in.Period.IsZero() {
		return CorrectionResult{}, fmt.Errorf("closure: period required")
	}
	if !in.Actor.HasCapability(shared.CapClosureEdit) {
		return CorrectionResult{}, shared.ErrCapabilityDenied
	}
	if err := in.NewRates.Validate(); err != nil {
		return CorrectionResult{}, err
	}

	status, err := s.store.PeriodStatus(ctx, in.Period)
	if err != nil {
		return CorrectionResult{}, err
	}
	if status != shared.PeriodStatusArchived {
		return CorrectionResult{}, fmt.Errorf("%w: period %s is %s", shared.ErrPeriodNotClosed, in.Period, status)
	}

	candidates, err := s.store.ListArchived(ctx, in.Period, in.ModelFilter)
	if err != nil {
		return CorrectionResult{}, err
	}
	closed := candidates[:0]
	for _, rec := range candidates {
		if rec.ArchivedAt != nil {
			closed = append(closed, rec)
		}
	}
	if len(closed) == 0 {
		return CorrectionResult{}, fmt.Errorf("%w: period %s has no archived records", shared.ErrPeriodNotClosed, in.Period)
	}

	ratesBefore := closed[0].RatesUsed
	result := CorrectionResult{TotalCandidates: len(closed), Errors: []RecordError{}}
	var mu sync.Mutex

	for start := 0; start < len(closed); start += s.batchSize {
		end := start + s.batchSize
		if end > len(closed) {
			end = len(closed)
		}
		batch := closed[start:end]

		var g errgroup.Group
		g.SetLimit(s.workers)
		for _, rec := range batch {
			rec := rec
			g.Go(func() error {
				// A single record's failure must not cancel siblings;
				// outcomes are accumulated, never returned.
				if err := s.correctRecord(ctx, rec, in); err != nil {
					mu.Lock()
					result.Errors = append(result.Errors, RecordError{
						RecordID:   rec.ID,
						ModelID:    rec.ModelID,
						PlatformID: rec.PlatformID,
						Reason:     err.Error(),
					})
					mu.Unlock()
					return nil
				}
				mu.Lock()
				result.UpdatedCount++
				mu.Unlock()
				return nil
			})
		}
		_ = g.Wait()
	}

	entry := audit.Entry{
		Action:          audit.ActionRateCorrection,
		Period:          in.Period,
		ActorID:         in.Actor.ID,
		ActorName:       in.Actor.Name,
		RatesBefore:     ratesBefore,
		RatesAfter:      in.NewRates,
		RecordsAffected: result.UpdatedCount,
		ModelFilter:     in.ModelFilter,
	}
	if s.audit != nil {
		if err := s.audit.Record(ctx, entry); err != nil && s.logger != nil {
			s.logger.Error("record correction audit entry",
				slog.String("period", in.Period.String()),
				slog.Any("error", err),
			)
		}
	}
	return result, nil
}

// correctRecord re-runs the conversion with the frozen raw value and
// percentage against the new rate set, then rewrites the derived fields.
func (s *Service) correctRecord(ctx context.Context, rec ArchivedRecord, in CorrectionInput) error {
	rule, err := platforms.Lookup(rec.PlatformID)
	if err != nil {
		return err
	}
	converted, err := earnings.Convert(rule, rec.RawValue, in.NewRates, rec.PlatformPercentage)
	if err != nil {
		return err
	}
	rec.RatesUsed = in.NewRates
	rec.Gross = converted.Gross
	rec.ModelSettlement = converted.ModelSettlement
	rec.ModelLocal = converted.ModelLocal
	return s.store.UpdateDerived(ctx, rec)
}
