package audit

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	"github.com/camcamberst/iam-sistema-de-gestion-sub002/internal/shared"
)

type mockRepo struct {
	entries []Entry
}

func (m *mockRepo) Insert(_ context.Context, entry Entry) error {
	m.entries = append(m.entries, entry)
	return nil
}

func (m *mockRepo) ListForPeriod(_ context.Context, period shared.Period) ([]Entry, error) {
	var out []Entry
	for _, entry := range m.entries {
		if entry.Period == period {
			out = append(out, entry)
		}
	}
	return out, nil
}

func TestRecordStampsIDAndTime(t *testing.T) {
	repo := &mockRepo{}
	svc := NewService(repo)
	at := time.Date(2026, 8, 16, 3, 0, 0, 0, time.UTC)
	svc.WithNow(func() time.Time { return at })

	period := shared.NewPeriod(at, shared.PeriodFirstHalf)
	err := svc.Record(context.Background(), Entry{Action: ActionRateCorrection, Period: period, ActorID: 42})
	require.NoError(t, err)

	require.Len(t, repo.entries, 1)
	got := repo.entries[0]
	require.NotEqual(t, uuid.Nil, got.ID)
	require.Equal(t, at, got.At)
}

func TestRecordRequiresAction(t *testing.T) {
	svc := NewService(&mockRepo{})
	err := svc.Record(context.Background(), Entry{})
	require.Error(t, err)
}

func TestTimelineFiltersByPeriod(t *testing.T) {
	repo := &mockRepo{}
	svc := NewService(repo)

	aug := shared.NewPeriod(time.Date(2026, 8, 1, 0, 0, 0, 0, time.UTC), shared.PeriodFirstHalf)
	sep := shared.NewPeriod(time.Date(2026, 9, 1, 0, 0, 0, 0, time.UTC), shared.PeriodFirstHalf)
	require.NoError(t, svc.Record(context.Background(), Entry{Action: ActionPeriodClosed, Period: aug}))
	require.NoError(t, svc.Record(context.Background(), Entry{Action: ActionRateCorrection, Period: sep}))

	got, err := svc.Timeline(context.Background(), aug)
	require.NoError(t, err)
	require.Len(t, got, 1)
	require.Equal(t, ActionPeriodClosed, got[0].Action)
}
