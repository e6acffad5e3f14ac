package closure

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/camcamberst/iam-sistema-de-gestion-sub002/internal/audit"
	"github.com/camcamberst/iam-sistema-de-gestion-sub002/internal/earnings"
	"github.com/camcamberst/iam-sistema-de-gestion-sub002/internal/rates"
	"github.com/camcamberst/iam-sistema-de-gestion-sub002/internal/shared"
)

// ============================================================================
// MOCKS
// ============================================================================

type mockValues struct {
	values   map[int64][]earnings.PlatformValue
	profiles map[int64]earnings.Profile

	profileErr map[int64]error
}

func newMockValues() *mockValues {
	return &mockValues{
		values:     make(map[int64][]earnings.PlatformValue),
		profiles:   make(map[int64]earnings.Profile),
		profileErr: make(map[int64]error),
	}
}

func (m *mockValues) ModelsWithValues(ctx context.Context, period shared.Period) ([]int64, error) {
	ids := make([]int64, 0, len(m.values))
	for id := range m.values {
		ids = append(ids, id)
	}
	sortInt64s(ids)
	return ids, nil
}

func (m *mockValues) ListForModel(ctx context.Context, modelID int64, period shared.Period) ([]earnings.PlatformValue, error) {
	return m.values[modelID], nil
}

func (m *mockValues) ModelProfile(ctx context.Context, modelID int64) (earnings.Profile, error) {
	if err := m.profileErr[modelID]; err != nil {
		return earnings.Profile{}, err
	}
	profile, ok := m.profiles[modelID]
	if !ok {
		return earnings.Profile{ModelID: modelID}, nil
	}
	return profile, nil
}

func sortInt64s(ids []int64) {
	for i := 1; i < len(ids); i++ {
		for j := i; j > 0 && ids[j-1] > ids[j]; j-- {
			ids[j-1], ids[j] = ids[j], ids[j-1]
		}
	}
}

type mockStore struct {
	mu       sync.Mutex
	status   map[string]string
	archived map[string][]ArchivedRecord

	archiveErr    map[int64]error
	updateErr     map[string]error
	updateCalls   int
	statusHistory []string
}

func newMockStore() *mockStore {
	return &mockStore{
		status:     make(map[string]string),
		archived:   make(map[string][]ArchivedRecord),
		archiveErr: make(map[int64]error),
		updateErr:  make(map[string]error),
	}
}

func (m *mockStore) PeriodStatus(ctx context.Context, period shared.Period) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	status, ok := m.status[period.String()]
	if !ok {
		return shared.PeriodStatusOpen, nil
	}
	return status, nil
}

func (m *mockStore) SetPeriodStatus(ctx context.Context, period shared.Period, status string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.status[period.String()] = status
	m.statusHistory = append(m.statusHistory, status)
	return nil
}

func (m *mockStore) ArchiveModel(ctx context.Context, modelID int64, period shared.Period, records []ArchivedRecord) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.archiveErr[modelID]; err != nil {
		return err
	}
	key := period.String()
	for _, existing := range m.archived[key] {
		for _, rec := range records {
			if existing.ModelID == rec.ModelID && existing.PlatformID == rec.PlatformID {
				return ErrDuplicateArchive
			}
		}
	}
	m.archived[key] = append(m.archived[key], records...)
	return nil
}

func (m *mockStore) ListArchived(ctx context.Context, period shared.Period, modelIDs []int64) ([]ArchivedRecord, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	records := m.archived[period.String()]
	if len(modelIDs) == 0 {
		out := make([]ArchivedRecord, len(records))
		copy(out, records)
		return out, nil
	}
	want := make(map[int64]struct{}, len(modelIDs))
	for _, id := range modelIDs {
		want[id] = struct{}{}
	}
	var out []ArchivedRecord
	for _, rec := range records {
		if _, ok := want[rec.ModelID]; ok {
			out = append(out, rec)
		}
	}
	return out, nil
}

func (m *mockStore) UpdateDerived(ctx context.Context, rec ArchivedRecord) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.updateCalls++
	if err := m.updateErr[rec.PlatformID]; err != nil {
		return err
	}
	records := m.archived[rec.Period.String()]
	for i, existing := range records {
		if existing.ID == rec.ID {
			if existing.ArchivedAt == nil {
				return shared.ErrNotFound
			}
			// Only rates-used and derived fields are rewritten.
			records[i].RatesUsed = rec.RatesUsed
			records[i].Gross = rec.Gross
			records[i].ModelSettlement = rec.ModelSettlement
			records[i].ModelLocal = rec.ModelLocal
			return nil
		}
	}
	return shared.ErrNotFound
}

type fakeResolver struct {
	set rates.Set
	err error
	// perScope lets one model's group miss its rates.
	errScopes map[rates.Scope]error
}

func (f fakeResolver) Resolve(ctx context.Context, scope rates.Scope, asOf time.Time) (rates.Set, error) {
	if err, ok := f.errScopes[scope]; ok {
		return rates.Set{}, err
	}
	if f.err != nil {
		return rates.Set{}, f.err
	}
	return f.set, nil
}

type fakeLock struct {
	mu     sync.Mutex
	held   map[string]string
	failed bool
}

func (f *fakeLock) Acquire(ctx context.Context, period shared.Period, owner string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failed {
		return shared.ErrLockHeld
	}
	if f.held == nil {
		f.held = make(map[string]string)
	}
	if _, ok := f.held[period.String()]; ok {
		return shared.ErrLockHeld
	}
	f.held[period.String()] = owner
	return nil
}

func (f *fakeLock) Release(ctx context.Context, period shared.Period, owner string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.held, period.String())
	return nil
}

type mockAudit struct {
	mu      sync.Mutex
	entries []audit.Entry
}

func (m *mockAudit) Record(ctx context.Context, entry audit.Entry) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.entries = append(m.entries, entry)
	return nil
}

// ============================================================================
// HELPERS
// ============================================================================

func testSet() rates.Set {
	return rates.Set{
		EURUSD: decimal.RequireFromString("1.05"),
		GBPUSD: decimal.RequireFromString("1.20"),
		USDCOP: decimal.RequireFromString("4000"),
	}
}

func testPeriod() shared.Period {
	return shared.NewPeriod(time.Date(2026, 8, 1, 0, 0, 0, 0, time.UTC), shared.PeriodFirstHalf)
}

func newTestService(values ValueSource, store ArchiveStore, resolver RateResolver, sink AuditSink) *Service {
	logger := slog.New(slog.DiscardHandler)
	return NewService(values, store, resolver, &fakeLock{}, sink, logger, Options{BatchSize: 50, Workers: 4})
}

func pv(modelID int64, platformID string, raw string) earnings.PlatformValue {
	return earnings.PlatformValue{
		ModelID:    modelID,
		PlatformID: platformID,
		Period:     testPeriod(),
		RawValue:   decimal.RequireFromString(raw),
	}
}

// ============================================================================
// CLOSE PERIOD
// ============================================================================

func TestClosePeriod_ArchivesEveryModel(t *testing.T) {
	values := newMockValues()
	values.values[1] = []earnings.PlatformValue{pv(1, "big7", "100"), pv(1, "chaturbate", "1000")}
	values.values[2] = []earnings.PlatformValue{pv(2, "aw", "50")}
	store := newMockStore()
	svc := newTestService(values, store, fakeResolver{set: testSet()}, &mockAudit{})

	manifest, err := svc.ClosePeriod(context.Background(), testPeriod())
	require.NoError(t, err)
	assert.Equal(t, []int64{1, 2}, manifest.Archived)
	assert.Empty(t, manifest.Skipped)
	assert.Equal(t, 3, manifest.Records)

	records, err := store.ListArchived(context.Background(), testPeriod(), nil)
	require.NoError(t, err)
	require.Len(t, records, 3)
	for _, rec := range records {
		require.NotNil(t, rec.ArchivedAt)
		assert.True(t, rec.RatesUsed.USDCOP.Equal(decimal.RequireFromString("4000")))
	}

	status, err := store.PeriodStatus(context.Background(), testPeriod())
	require.NoError(t, err)
	assert.Equal(t, shared.PeriodStatusArchived, status)
}

func TestClosePeriod_DerivedValuesFrozenFromRates(t *testing.T) {
	values := newMockValues()
	values.values[1] = []earnings.PlatformValue{pv(1, "big7", "100")}
	store := newMockStore()
	svc := newTestService(values, store, fakeResolver{set: testSet()}, &mockAudit{})

	_, err := svc.ClosePeriod(context.Background(), testPeriod())
	require.NoError(t, err)

	records, err := store.ListArchived(context.Background(), testPeriod(), []int64{1})
	require.NoError(t, err)
	require.Len(t, records, 1)
	rec := records[0]
	assert.True(t, rec.Gross.Equal(decimal.RequireFromString("88.20")), "gross: %s", rec.Gross)
	assert.True(t, rec.ModelSettlement.Equal(decimal.RequireFromString("70.56")), "settlement: %s", rec.ModelSettlement)
	assert.True(t, rec.ModelLocal.Equal(decimal.RequireFromString("282240.00")), "local: %s", rec.ModelLocal)
	assert.True(t, rec.PlatformPercentage.Equal(decimal.NewFromInt(80)))
}

func TestClosePeriod_SkipsFailingModelWithoutBlockingOthers(t *testing.T) {
	group := earnings.Profile{ModelID: 2, GroupID: 9}
	values := newMockValues()
	values.values[1] = []earnings.PlatformValue{pv(1, "big7", "100")}
	values.values[2] = []earnings.PlatformValue{pv(2, "big7", "200")}
	values.profiles[2] = group
	store := newMockStore()
	resolver := fakeResolver{
		set:       testSet(),
		errScopes: map[rates.Scope]error{rates.GroupScope(9): shared.ErrRateNotFound},
	}
	svc := newTestService(values, store, resolver, &mockAudit{})

	manifest, err := svc.ClosePeriod(context.Background(), testPeriod())
	require.NoError(t, err)
	assert.Equal(t, []int64{1}, manifest.Archived)
	require.Len(t, manifest.Skipped, 1)
	assert.Equal(t, int64(2), manifest.Skipped[0].ModelID)
	assert.Contains(t, manifest.Skipped[0].Reason, "rate not found")

	status, err := store.PeriodStatus(context.Background(), testPeriod())
	require.NoError(t, err)
	assert.Equal(t, shared.PeriodStatusArchived, status)
}

func TestClosePeriod_DuplicateModelIsIdempotent(t *testing.T) {
	values := newMockValues()
	values.values[1] = []earnings.PlatformValue{pv(1, "big7", "100")}
	store := newMockStore()
	store.archiveErr[1] = ErrDuplicateArchive
	svc := newTestService(values, store, fakeResolver{set: testSet()}, &mockAudit{})

	manifest, err := svc.ClosePeriod(context.Background(), testPeriod())
	require.NoError(t, err)
	assert.Empty(t, manifest.Archived)
	require.Len(t, manifest.Skipped, 1)
	assert.Contains(t, manifest.Skipped[0].Reason, "already archived")
}

func TestClosePeriod_RejectsArchivedPeriod(t *testing.T) {
	values := newMockValues()
	store := newMockStore()
	store.status[testPeriod().String()] = shared.PeriodStatusArchived
	svc := newTestService(values, store, fakeResolver{set: testSet()}, &mockAudit{})

	_, err := svc.ClosePeriod(context.Background(), testPeriod())
	require.Error(t, err)
	assert.ErrorIs(t, err, shared.ErrInvalidPeriodTransition)
}

func TestClosePeriod_LockHeld(t *testing.T) {
	values := newMockValues()
	store := newMockStore()
	logger := slog.New(slog.DiscardHandler)
	svc := NewService(values, store, fakeResolver{set: testSet()}, &fakeLock{failed: true}, &mockAudit{}, logger, Options{})

	_, err := svc.ClosePeriod(context.Background(), testPeriod())
	assert.ErrorIs(t, err, ErrClosureInProgress)
}

func TestClosePeriod_RequiresPeriod(t *testing.T) {
	svc := newTestService(newMockValues(), newMockStore(), fakeResolver{set: testSet()}, &mockAudit{})
	_, err := svc.ClosePeriod(context.Background(), shared.Period{})
	require.Error(t, err)
}

func TestClosePeriod_GroupScopedRatesUsed(t *testing.T) {
	groupSet := testSet()
	groupSet.USDCOP = decimal.RequireFromString("4200")
	values := newMockValues()
	values.values[1] = []earnings.PlatformValue{pv(1, "chaturbate", "1000")}
	values.profiles[1] = earnings.Profile{ModelID: 1, GroupID: 4}
	store := newMockStore()
	svc := newTestService(values, store, fakeResolver{set: groupSet}, &mockAudit{})

	_, err := svc.ClosePeriod(context.Background(), testPeriod())
	require.NoError(t, err)
	records, err := store.ListArchived(context.Background(), testPeriod(), []int64{1})
	require.NoError(t, err)
	require.Len(t, records, 1)
	// 1000 * 0.05 * 0.80 * 4200 = 168000
	assert.True(t, records[0].ModelLocal.Equal(decimal.RequireFromString("168000.00")), "local: %s", records[0].ModelLocal)
}

func TestClosePeriod_StatusProgression(t *testing.T) {
	values := newMockValues()
	values.values[1] = []earnings.PlatformValue{pv(1, "big7", "10")}
	store := newMockStore()
	svc := newTestService(values, store, fakeResolver{set: testSet()}, &mockAudit{})

	_, err := svc.ClosePeriod(context.Background(), testPeriod())
	require.NoError(t, err)
	assert.Equal(t, []string{shared.PeriodStatusClosing, shared.PeriodStatusArchived}, store.statusHistory)
}

func TestClosePeriod_ModelErrorReasonSurfaced(t *testing.T) {
	values := newMockValues()
	values.values[3] = []earnings.PlatformValue{pv(3, "big7", "10")}
	values.profileErr[3] = fmt.Errorf("profile unavailable")
	store := newMockStore()
	svc := newTestService(values, store, fakeResolver{set: testSet()}, &mockAudit{})

	manifest, err := svc.ClosePeriod(context.Background(), testPeriod())
	require.NoError(t, err)
	require.Len(t, manifest.Skipped, 1)
	assert.Contains(t, manifest.Skipped[0].Reason, "profile unavailable")
}
