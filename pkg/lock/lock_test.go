package lock

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newLocker(t *testing.T) *Locker {
	t.Helper()
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { rdb.Close() })
	return New(rdb, time.Minute)
}

func TestNilLockerAlwaysSucceeds(t *testing.T) {
	var l *Locker
	release, err := l.Obtain(context.Background(), "k")
	require.NoError(t, err)
	assert.NoError(t, release(context.Background()))
	assert.Nil(t, New(nil, time.Second))
}

func TestSecondHolderIsRefused(t *testing.T) {
	ctx := context.Background()
	l := newLocker(t)

	release, err := l.Obtain(ctx, "lock:bulk-request:1")
	require.NoError(t, err)

	_, err = l.Obtain(ctx, "lock:bulk-request:1")
	assert.ErrorIs(t, err, ErrNotObtained)

	// Different keys never contend.
	other, err := l.Obtain(ctx, "lock:bulk-request:2")
	require.NoError(t, err)
	require.NoError(t, other(ctx))

	require.NoError(t, release(ctx))
	again, err := l.Obtain(ctx, "lock:bulk-request:1")
	require.NoError(t, err)
	assert.NoError(t, again(ctx))
}
