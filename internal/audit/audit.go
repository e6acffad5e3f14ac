package audit

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"

	"github.com/camcamberst/iam-sistema-de-gestion-sub002/internal/rates"
	"github.com/camcamberst/iam-sistema-de-gestion-sub002/internal/shared"
)

// Actions recorded by the earnings core.
const (
	ActionRateCorrection = "period.rates.corrected"
	ActionPeriodClosed   = "period.closed"
)

// Entry is one append-only audit record. Entries are created once and never
// mutated or deleted.
type Entry struct {
	ID              uuid.UUID     `json:"id"`
	Action          string        `json:"action"`
	Period          shared.Period `json:"period"`
	ActorID         int64         `json:"actor_id"`
	ActorName       string        `json:"actor_name"`
	RatesBefore     rates.Set     `json:"rates_before"`
	RatesAfter      rates.Set     `json:"rates_after"`
	RecordsAffected int           `json:"records_affected"`
	ModelFilter     []int64       `json:"model_filter,omitempty"`
	At              time.Time     `json:"at"`
}

// Repository persists audit entries.
type Repository interface {
	Insert(ctx context.Context, entry Entry) error
	ListForPeriod(ctx context.Context, period shared.Period) ([]Entry, error)
}

// Service coordinates audit writes and reads.
type Service struct {
	repo Repository
	now  func() time.Time
}

// NewService constructs an audit service.
func NewService(repo Repository) *Service {
	return &Service{repo: repo, now: time.Now}
}

// WithNow overrides the clock for deterministic tests.
func (s *Service) WithNow(now func() time.Time) {
	if now != nil {
		s.now = now
	}
}

// Record persists the entry, assigning id and timestamp when absent.
func (s *Service) Record(ctx context.Context, entry Entry) error {
	if s == nil || s.repo == nil {
		return errors.New("audit service not initialised")
	}
	if entry.Action == "" {
		return errors.New("audit entry requires an action")
	}
	if entry.ID == uuid.Nil {
		entry.ID = uuid.New()
	}
	if entry.At.IsZero() {
		entry.At = s.now().UTC()
	}
	return s.repo.Insert(ctx, entry)
}

// Timeline returns the entries recorded against a period.
func (s *Service) Timeline(ctx context.Context, period shared.Period) ([]Entry, error) {
	if s == nil || s.repo == nil {
		return nil, errors.New("audit service not initialised")
	}
	return s.repo.ListForPeriod(ctx, period)
}
