package shared

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// PeriodLockKey builds redis keys for period closure critical sections.
func PeriodLockKey(period Period) string {
	return fmt.Sprintf("payouts:period:%s:lock", period.String())
}

// ErrLockHeld indicates another process holds the closure lock.
var ErrLockHeld = errors.New("period lock already held")

// PeriodLock guards long-running period operations against concurrent runs.
type PeriodLock struct {
	client *redis.Client
	ttl    time.Duration
}

// NewPeriodLock constructs a PeriodLock with the given lease duration.
func NewPeriodLock(client *redis.Client, ttl time.Duration) *PeriodLock {
	if ttl <= 0 {
		ttl = 10 * time.Minute
	}
	return &PeriodLock{client: client, ttl: ttl}
}

// Acquire takes the lock for the period or fails with ErrLockHeld.
func (l *PeriodLock) Acquire(ctx context.Context, period Period, owner string) error {
	if l == nil || l.client == nil {
		return errors.New("period lock not initialised")
	}
	ok, err := l.client.SetNX(ctx, PeriodLockKey(period), owner, l.ttl).Result()
	if err != nil {
		return err
	}
	if !ok {
		return ErrLockHeld
	}
	return nil
}

// Release frees the lock when held by owner. Releasing a lock owned by
// another process is a no-op.
func (l *PeriodLock) Release(ctx context.Context, period Period, owner string) error {
	if l == nil || l.client == nil {
		return nil
	}
	key := PeriodLockKey(period)
	current, err := l.client.Get(ctx, key).Result()
	if errors.Is(err, redis.Nil) {
		return nil
	}
	if err != nil {
		return err
	}
	if current != owner {
		return nil
	}
	return l.client.Del(ctx, key).Err()
}
