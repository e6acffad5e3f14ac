package earnings

import (
	"context"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"github.com/camcamberst/iam-sistema-de-gestion-sub002/internal/platforms"
	"github.com/camcamberst/iam-sistema-de-gestion-sub002/internal/rates"
	"github.com/camcamberst/iam-sistema-de-gestion-sub002/internal/shared"
)

func d(value string) decimal.Decimal {
	return decimal.RequireFromString(value)
}

func testSet() rates.Set {
	return rates.Set{EURUSD: d("1.05"), GBPUSD: d("1.20"), USDCOP: d("4000")}
}

func testPeriod() shared.Period {
	return shared.NewPeriod(time.Date(2026, 8, 1, 0, 0, 0, 0, time.UTC), shared.PeriodFirstHalf)
}

type stubValues struct {
	values   map[int64][]PlatformValue
	profiles map[int64]Profile
	upserts  []PlatformValue
}

func (s *stubValues) ListForModel(_ context.Context, modelID int64, _ shared.Period) ([]PlatformValue, error) {
	return s.values[modelID], nil
}

func (s *stubValues) Upsert(_ context.Context, value PlatformValue) (PlatformValue, error) {
	value.ID = int64(len(s.upserts) + 1)
	s.upserts = append(s.upserts, value)
	return value, nil
}

func (s *stubValues) ModelProfile(_ context.Context, modelID int64) (Profile, error) {
	if profile, ok := s.profiles[modelID]; ok {
		return profile, nil
	}
	return Profile{ModelID: modelID}, nil
}

type stubArchive struct {
	archived bool
	lines    map[int64][]ArchivedLine
}

func (s *stubArchive) PeriodArchived(context.Context, shared.Period) (bool, error) {
	return s.archived, nil
}

func (s *stubArchive) ListArchivedLines(_ context.Context, modelID int64, _ shared.Period) ([]ArchivedLine, error) {
	return s.lines[modelID], nil
}

type stubLedger struct {
	advances   decimal.Decimal
	deductions decimal.Decimal
}

func (s *stubLedger) SumDisbursedAdvances(context.Context, int64, shared.Period) (decimal.Decimal, error) {
	return s.advances, nil
}

func (s *stubLedger) SumDeductions(context.Context, int64, shared.Period) (decimal.Decimal, error) {
	return s.deductions, nil
}

type stubResolver struct {
	set       rates.Set
	err       error
	lastScope rates.Scope
}

func (s *stubResolver) Resolve(_ context.Context, scope rates.Scope, _ time.Time) (rates.Set, error) {
	s.lastScope = scope
	if s.err != nil {
		return rates.Set{}, s.err
	}
	return s.set, nil
}

func value(modelID int64, platformID, raw string) PlatformValue {
	return PlatformValue{
		ModelID:    modelID,
		PlatformID: platformID,
		Period:     testPeriod(),
		RawValue:   d(raw),
	}
}

func TestAggregateOpenPeriodConvertsLiveValues(t *testing.T) {
	values := &stubValues{
		values: map[int64][]PlatformValue{
			1: {value(1, "big7", "100"), value(1, "chaturbate", "1000")},
		},
	}
	ledger := &stubLedger{advances: d("100000"), deductions: d("42240")}
	svc := NewService(values, &stubArchive{}, ledger, &stubResolver{set: testSet()})

	got, err := svc.Aggregate(context.Background(), 1, testPeriod())
	require.NoError(t, err)

	require.False(t, got.Archived)
	require.True(t, got.TotalGross.Equal(d("138.20")), "gross = %s", got.TotalGross)
	require.True(t, got.TotalModelSettlement.Equal(d("110.56")), "settlement = %s", got.TotalModelSettlement)
	require.True(t, got.TotalModelLocal.Equal(d("442240.00")), "local = %s", got.TotalModelLocal)
	require.True(t, got.NetPayable.Equal(d("300000.00")), "net = %s", got.NetPayable)
}

func TestAggregateArchivedPeriodReadsArchiveVerbatim(t *testing.T) {
	resolver := &stubResolver{err: shared.ErrRateNotFound}
	archive := &stubArchive{
		archived: true,
		lines: map[int64][]ArchivedLine{
			1: {
				{PlatformID: "big7", Gross: d("88.20"), ModelSettlement: d("70.56"), ModelLocal: d("282240.00")},
			},
		},
	}
	svc := NewService(&stubValues{}, archive, &stubLedger{}, resolver)

	got, err := svc.Aggregate(context.Background(), 1, testPeriod())
	require.NoError(t, err, "archived reads must not resolve current rates")

	require.True(t, got.Archived)
	require.True(t, got.TotalModelLocal.Equal(d("282240.00")), "local = %s", got.TotalModelLocal)
	require.True(t, got.NetPayable.Equal(d("282240.00")), "net = %s", got.NetPayable)
}

func TestAggregateSurfacesNegativeNetPayable(t *testing.T) {
	archive := &stubArchive{
		archived: true,
		lines: map[int64][]ArchivedLine{
			1: {{PlatformID: "chaturbate", Gross: d("50.00"), ModelSettlement: d("40.00"), ModelLocal: d("160000.00")}},
		},
	}
	ledger := &stubLedger{advances: d("200000"), deductions: d("10000")}
	svc := NewService(&stubValues{}, archive, ledger, &stubResolver{set: testSet()})

	got, err := svc.Aggregate(context.Background(), 1, testPeriod())
	require.NoError(t, err)
	require.True(t, got.NetPayable.Equal(d("-50000.00")), "net = %s", got.NetPayable)
}

func TestAggregateUsesGroupScope(t *testing.T) {
	resolver := &stubResolver{set: testSet()}
	values := &stubValues{
		values:   map[int64][]PlatformValue{1: {value(1, "big7", "100")}},
		profiles: map[int64]Profile{1: {ModelID: 1, GroupID: 7}},
	}
	svc := NewService(values, &stubArchive{}, &stubLedger{}, resolver)

	_, err := svc.Aggregate(context.Background(), 1, testPeriod())
	require.NoError(t, err)
	require.Equal(t, rates.GroupScope(7), resolver.lastScope)
}

func TestAggregateHonoursShareOverride(t *testing.T) {
	values := &stubValues{
		values: map[int64][]PlatformValue{1: {value(1, "big7", "100")}},
		profiles: map[int64]Profile{
			1: {ModelID: 1, Shares: map[string]decimal.Decimal{"big7": d("60")}},
		},
	}
	svc := NewService(values, &stubArchive{}, &stubLedger{}, &stubResolver{set: testSet()})

	got, err := svc.Aggregate(context.Background(), 1, testPeriod())
	require.NoError(t, err)
	require.True(t, got.TotalModelSettlement.Equal(d("52.92")), "settlement = %s", got.TotalModelSettlement)
	require.True(t, got.TotalModelLocal.Equal(d("211680.00")), "local = %s", got.TotalModelLocal)
}

func TestRecordValueUpsertsOpenPeriod(t *testing.T) {
	values := &stubValues{}
	svc := NewService(values, &stubArchive{}, &stubLedger{}, &stubResolver{set: testSet()})

	saved, err := svc.RecordValue(context.Background(), value(1, "big7", "100"))
	require.NoError(t, err)
	require.NotZero(t, saved.ID)
	require.Len(t, values.upserts, 1)
}

func TestRecordValueRejectsArchivedPeriod(t *testing.T) {
	svc := NewService(&stubValues{}, &stubArchive{archived: true}, &stubLedger{}, &stubResolver{set: testSet()})

	_, err := svc.RecordValue(context.Background(), value(1, "big7", "100"))
	require.ErrorIs(t, err, shared.ErrPeriodArchived)
}

func TestRecordValueValidatesInput(t *testing.T) {
	values := &stubValues{}
	svc := NewService(values, &stubArchive{}, &stubLedger{}, &stubResolver{set: testSet()})

	_, err := svc.RecordValue(context.Background(), value(1, "onlyfans", "100"))
	require.ErrorIs(t, err, platforms.ErrUnknownPlatform)

	_, err = svc.RecordValue(context.Background(), value(1, "big7", "-5"))
	require.Error(t, err)

	require.Empty(t, values.upserts)
}
