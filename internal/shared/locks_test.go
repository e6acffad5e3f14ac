package shared

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"
)

func testLock(t *testing.T) (*PeriodLock, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return NewPeriodLock(client, time.Minute), mr
}

func TestPeriodLockExcludesSecondOwner(t *testing.T) {
	lock, _ := testLock(t)
	ctx := context.Background()
	period := NewPeriod(time.Date(2026, 8, 1, 0, 0, 0, 0, time.UTC), PeriodFirstHalf)

	require.NoError(t, lock.Acquire(ctx, period, "owner-a"))
	require.ErrorIs(t, lock.Acquire(ctx, period, "owner-b"), ErrLockHeld)

	require.NoError(t, lock.Release(ctx, period, "owner-a"))
	require.NoError(t, lock.Acquire(ctx, period, "owner-b"))
}

func TestPeriodLockReleaseByNonOwnerIsNoOp(t *testing.T) {
	lock, _ := testLock(t)
	ctx := context.Background()
	period := NewPeriod(time.Date(2026, 8, 1, 0, 0, 0, 0, time.UTC), PeriodSecondHalf)

	require.NoError(t, lock.Acquire(ctx, period, "owner-a"))
	require.NoError(t, lock.Release(ctx, period, "owner-b"))
	require.ErrorIs(t, lock.Acquire(ctx, period, "owner-c"), ErrLockHeld)
}

func TestPeriodLockExpiresWithTTL(t *testing.T) {
	lock, mr := testLock(t)
	ctx := context.Background()
	period := NewPeriod(time.Date(2026, 8, 1, 0, 0, 0, 0, time.UTC), PeriodFirstHalf)

	require.NoError(t, lock.Acquire(ctx, period, "owner-a"))
	mr.FastForward(2 * time.Minute)
	require.NoError(t, lock.Acquire(ctx, period, "owner-b"))
}

func TestPeriodLockKeysAreScopedPerPeriod(t *testing.T) {
	lock, _ := testLock(t)
	ctx := context.Background()
	h1 := NewPeriod(time.Date(2026, 8, 1, 0, 0, 0, 0, time.UTC), PeriodFirstHalf)
	h2 := NewPeriod(time.Date(2026, 8, 1, 0, 0, 0, 0, time.UTC), PeriodSecondHalf)

	require.NoError(t, lock.Acquire(ctx, h1, "owner-a"))
	require.NoError(t, lock.Acquire(ctx, h2, "owner-a"))
}
