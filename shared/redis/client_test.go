package redis

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	goredis "github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cuongbtq/jobboard-be/shared/logger"
)

func TestNewClient_InvalidURL(t *testing.T) {
	_, err := NewClient(context.Background(), "memcached://localhost:11211", logger.NewDiscard())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to parse redis url")
}

func newTestLocker(t *testing.T, prefix string) (*Locker, *miniredis.Miniredis) {
	t.Helper()

	mr := miniredis.RunT(t)
	client := goredis.NewClient(&goredis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { client.Close() })

	return NewLocker(client, prefix, logger.NewDiscard()), mr
}

func TestLocker_Key(t *testing.T) {
	tests := []struct {
		prefix string
		want   string
	}{
		{prefix: "jobboard:alert-scheduler", want: "jobboard:alert-scheduler:tier:daily"},
		{prefix: "jobboard:alert-scheduler:", want: "jobboard:alert-scheduler:tier:daily"},
		{prefix: "", want: "tier:daily"},
	}

	for _, tt := range tests {
		t.Run(tt.want, func(t *testing.T) {
			l := NewLocker(nil, tt.prefix, logger.NewDiscard())
			assert.Equal(t, tt.want, l.Key("tier:daily"))
		})
	}
}

func TestLocker_TryLock(t *testing.T) {
	l, mr := newTestLocker(t, "app")
	ctx := context.Background()

	lock, err := l.TryLock(ctx, "tier:daily", time.Minute)
	require.NoError(t, err)
	require.NotNil(t, lock)
	assert.Equal(t, "app:tier:daily", lock.Key())
	assert.True(t, mr.Exists("app:tier:daily"))
	assert.Equal(t, time.Minute, mr.TTL("app:tier:daily"))

	second, err := l.TryLock(ctx, "tier:daily", time.Minute)
	require.NoError(t, err)
	assert.Nil(t, second)

	require.NoError(t, lock.Release(ctx))
	assert.False(t, mr.Exists("app:tier:daily"))
	assert.ErrorIs(t, lock.Release(ctx), ErrLockNotHeld)
}

func TestLock_Refresh(t *testing.T) {
	l, mr := newTestLocker(t, "app")
	ctx := context.Background()

	lock, err := l.TryLock(ctx, "tier:weekly", time.Minute)
	require.NoError(t, err)
	require.NotNil(t, lock)

	mr.FastForward(50 * time.Second)
	require.NoError(t, lock.Refresh(ctx, time.Minute))
	assert.Equal(t, time.Minute, mr.TTL("app:tier:weekly"))

	mr.FastForward(2 * time.Minute)
	assert.ErrorIs(t, lock.Refresh(ctx, time.Minute), ErrLockNotHeld)

	// a new holder must not have its key extended by the old token
	require.NoError(t, mr.Set("app:tier:weekly", "someone-else"))
	assert.ErrorIs(t, lock.Refresh(ctx, time.Minute), ErrLockNotHeld)
	assert.ErrorIs(t, lock.Release(ctx), ErrLockNotHeld)
	got, err := mr.Get("app:tier:weekly")
	require.NoError(t, err)
	assert.Equal(t, "someone-else", got)
}
