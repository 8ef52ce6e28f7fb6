// Package lock provides a best-effort distributed mutex on top of Redis.
// Callers must not rely on it for correctness: the database remains the
// arbiter, the lock only keeps concurrent moderators from racing needlessly.
package lock

import (
	"context"
	"errors"
	"time"

	"github.com/bsm/redislock"
	"github.com/redis/go-redis/v9"
)

// ErrNotObtained is returned when another holder owns the key.
var ErrNotObtained = errors.New("lock not obtained")

// Locker is safe to use as a nil pointer; every Obtain then succeeds with a no-op release.
type Locker struct {
	client *redislock.Client
	ttl    time.Duration
}

func New(rdb *redis.Client, ttl time.Duration) *Locker {
	if rdb == nil {
		return nil
	}
	return &Locker{client: redislock.New(rdb), ttl: ttl}
}

// Obtain acquires key without retrying. The returned release func is never nil.
func (l *Locker) Obtain(ctx context.Context, key string) (func(context.Context) error, error) {
	noop := func(context.Context) error { return nil }
	if l == nil {
		return noop, nil
	}

	lk, err := l.client.Obtain(ctx, key, l.ttl, nil)
	if errors.Is(err, redislock.ErrNotObtained) {
		return noop, ErrNotObtained
	}
	if err != nil {
		return noop, err
	}
	return lk.Release, nil
}
