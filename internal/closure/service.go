package closure

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/camcamberst/iam-sistema-de-gestion-sub002/internal/earnings"
	"github.com/camcamberst/iam-sistema-de-gestion-sub002/internal/platforms"
	"github.com/camcamberst/iam-sistema-de-gestion-sub002/internal/rates"
	"github.com/camcamberst/iam-sistema-de-gestion-sub002/internal/shared"
)

// ValueSource exposes the open-period data closure consumes.
type ValueSource interface {
	ModelsWithValues(ctx context.Context, period shared.Period) ([]int64, error)
	ListForModel(ctx context.Context, modelID int64, period shared.Period) ([]earnings.PlatformValue, error)
	ModelProfile(ctx context.Context, modelID int64) (earnings.Profile, error)
}

// ArchiveStore persists the frozen records and the period state machine.
type ArchiveStore interface {
	PeriodStatus(ctx context.Context, period shared.Period) (string, error)
	SetPeriodStatus(ctx context.Context, period shared.Period, status string) error
	ArchiveModel(ctx context.Context, modelID int64, period shared.Period, records []ArchivedRecord) error
	ListArchived(ctx context.Context, period shared.Period, modelIDs []int64) ([]ArchivedRecord, error)
	UpdateDerived(ctx context.Context, rec ArchivedRecord) error
}

// RateResolver resolves the effective rate set for a scope.
type RateResolver interface {
	Resolve(ctx context.Context, scope rates.Scope, asOf time.Time) (rates.Set, error)
}

// Locker guards a period against concurrent closure runs.
type Locker interface {
	Acquire(ctx context.Context, period shared.Period, owner string) error
	Release(ctx context.Context, period shared.Period, owner string) error
}

// Service orchestrates period closure and retroactive rate correction.
type Service struct {
	values    ValueSource
	store     ArchiveStore
	resolver  RateResolver
	lock      Locker
	audit     AuditSink
	logger    *slog.Logger
	batchSize int
	workers   int
	now       func() time.Time
}

// Options tune the correction batch behaviour.
type Options struct {
	BatchSize int
	Workers   int
}

// NewService constructs the closure service.
func NewService(values ValueSource, store ArchiveStore, resolver RateResolver, lock Locker, audit AuditSink, logger *slog.Logger, opts Options) *Service {
	if opts.BatchSize <= 0 {
		opts.BatchSize = 50
	}
	if opts.Workers <= 0 {
		opts.Workers = 8
	}
	return &Service{
		values:    values,
		store:     store,
		resolver:  resolver,
		lock:      lock,
		audit:     audit,
		logger:    logger,
		batchSize: opts.BatchSize,
		workers:   opts.Workers,
		now:       time.Now,
	}
}

// WithNow overrides the clock for deterministic tests.
func (s *Service) WithNow(now func() time.Time) {
	if now != nil {
		s.now = now
	}
}

// PeriodState reports the closure status of a period.
func (s *Service) PeriodState(ctx context.Context, period shared.Period) (string, error) {
	if period.IsZero() {
		return "", fmt.Errorf("closure: period required")
	}
	return s.store.PeriodStatus(ctx, period)
}

// ArchivedRecords lists the frozen records of a period, optionally filtered
// by model.
func (s *Service) ArchivedRecords(ctx context.Context, period shared.Period, modelIDs []int64) ([]ArchivedRecord, error) {
	if period.IsZero() {
		return nil, fmt.Errorf("closure: period required")
	}
	return s.store.ListArchived(ctx, period, modelIDs)
}

// ClosePeriod freezes every model's computed values for the period into
// archived records and clears the source platform values. Models that fail
// (missing rates, unknown platforms) are skipped and reported in the
// manifest; a failed model never blocks the rest.
func (s *Service) ClosePeriod(ctx context.Context, period shared.Period) (Manifest, error) {
	if s == nil || s.store == nil {
		return Manifest{}, fmt.Errorf("closure service not initialised")
	}
	if period.IsZero() {
		return Manifest{}, fmt.Errorf("closure: period required")
	}

	owner := uuid.NewString()
	if s.lock != nil {
		if err := s.lock.Acquire(ctx, period, owner); err != nil {
			if errors.Is(err, shared.ErrLockHeld) {
				return Manifest{}, ErrClosureInProgress
			}
			return Manifest{}, err
		}
		defer func() {
			if err := s.lock.Release(context.WithoutCancel(ctx), period, owner); err != nil && s.logger != nil {
				s.logger.Warn("release period lock", slog.Any("error", err))
			}
		}()
	}

	status, err := s.store.PeriodStatus(ctx, period)
	if err != nil {
		return Manifest{}, err
	}
	if err := shared.ValidatePeriodTransition(status, shared.PeriodStatusClosing); err != nil {
		return Manifest{}, fmt.Errorf("closure: period %s is %s: %w", period, status, err)
	}
	if err := s.store.SetPeriodStatus(ctx, period, shared.PeriodStatusClosing); err != nil {
		return Manifest{}, err
	}

	models, err := s.values.ModelsWithValues(ctx, period)
	if err != nil {
		return Manifest{}, err
	}

	manifest := Manifest{Period: period, Archived: []int64{}, Skipped: []ModelFailure{}}
	archivedAt := s.now().UTC()
	for _, modelID := range models {
		records, err := s.buildRecords(ctx, modelID, period, archivedAt)
		if err != nil {
			s.skip(&manifest, modelID, err)
			continue
		}
		if err := s.store.ArchiveModel(ctx, modelID, period, records); err != nil {
			if errors.Is(err, ErrDuplicateArchive) {
				// Already archived by an earlier run; idempotent outcome.
				s.skip(&manifest, modelID, err)
				continue
			}
			s.skip(&manifest, modelID, err)
			continue
		}
		manifest.Archived = append(manifest.Archived, modelID)
		manifest.Records += len(records)
	}

	if err := s.store.SetPeriodStatus(ctx, period, shared.PeriodStatusArchived); err != nil {
		return manifest, err
	}
	return manifest, nil
}

func (s *Service) skip(manifest *Manifest, modelID int64, err error) {
	if s.logger != nil {
		s.logger.Warn("model skipped during closure",
			slog.Int64("model_id", modelID),
			slog.String("period", manifest.Period.String()),
			slog.Any("error", err),
		)
	}
	manifest.Skipped = append(manifest.Skipped, ModelFailure{ModelID: modelID, Reason: err.Error()})
}

// buildRecords converts every platform value of the model with the rates
// effective right now and stamps the archive time.
func (s *Service) buildRecords(ctx context.Context, modelID int64, period shared.Period, archivedAt time.Time) ([]ArchivedRecord, error) {
	values, err := s.values.ListForModel(ctx, modelID, period)
	if err != nil {
		return nil, err
	}
	profile, err := s.values.ModelProfile(ctx, modelID)
	if err != nil {
		return nil, err
	}
	set, err := s.resolver.Resolve(ctx, earnings.ScopeFor(profile), archivedAt)
	if err != nil {
		return nil, err
	}
	records := make([]ArchivedRecord, 0, len(values))
	for _, value := range values {
		rule, err := platforms.Lookup(value.PlatformID)
		if err != nil {
			return nil, err
		}
		pct := earnings.ShareFor(profile, rule)
		converted, err := earnings.Convert(rule, value.RawValue, set, pct)
		if err != nil {
			return nil, fmt.Errorf("platform %s: %w", value.PlatformID, err)
		}
		at := archivedAt
		records = append(records, ArchivedRecord{
			ID:                 uuid.New(),
			ModelID:            modelID,
			PlatformID:         value.PlatformID,
			Period:             period,
			RawValue:           value.RawValue,
			PlatformPercentage: pct,
			RatesUsed:          set,
			Gross:              converted.Gross,
			ModelSettlement:    converted.ModelSettlement,
			ModelLocal:         converted.ModelLocal,
			ArchivedAt:         &at,
		})
	}
	return records, nil
}
