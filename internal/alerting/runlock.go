package alerting

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/cuongbtq/jobboard-be/shared/redis"
)

type redisRunLock struct {
	locker *redis.Locker
	ttl    time.Duration
	renew  time.Duration
	logger *slog.Logger
}

// NewRedisRunLock guards tiers with Redis keys that expire after ttl. The key
// is renewed every ttl/3 while a run holds it.
func NewRedisRunLock(locker *redis.Locker, ttl time.Duration, logger *slog.Logger) RunLock {
	return &redisRunLock{locker: locker, ttl: ttl, renew: ttl / 3, logger: logger}
}

func tierLockKey(tier Frequency) string {
	return "tier:" + string(tier)
}

func (l *redisRunLock) Acquire(ctx context.Context, tier Frequency) (context.Context, func(context.Context) error, error) {
	lock, err := l.locker.TryLock(ctx, tierLockKey(tier), l.ttl)
	if err != nil {
		return nil, nil, err
	}
	if lock == nil {
		return nil, nil, fmt.Errorf("%w: %s (held by another process)", ErrTierBusy, tier)
	}

	runCtx, cancel := context.WithCancelCause(ctx)
	done := make(chan struct{})
	stopped := make(chan struct{})

	go func() {
		defer close(stopped)
		l.keepAlive(runCtx, cancel, done, lock, tier)
	}()

	release := func(ctx context.Context) error {
		close(done)
		<-stopped
		cancel(nil)
		return lock.Release(ctx)
	}

	return runCtx, release, nil
}

// keepAlive renews lock until done closes. A failed renewal cancels the run
// since another process may take the tier once the key expires.
func (l *redisRunLock) keepAlive(ctx context.Context, cancel context.CancelCauseFunc, done <-chan struct{}, lock *redis.Lock, tier Frequency) {
	ticker := time.NewTicker(l.renew)
	defer ticker.Stop()

	for {
		select {
		case <-done:
			return
		case <-ctx.Done():
			return
		case <-ticker.C:
			if err := lock.Refresh(ctx, l.ttl); err != nil {
				l.logger.Error("Failed to renew tier lock, aborting run",
					slog.String("frequency", string(tier)),
					slog.String("key", lock.Key()),
					slog.Any("error", err),
				)
				cancel(fmt.Errorf("%w: %s: %w", ErrTierLockLost, tier, err))
				return
			}
		}
	}
}

// cronLogger routes robfig/cron logging into slog
type cronLogger struct {
	logger *slog.Logger
}

func (l cronLogger) Info(msg string, keysAndValues ...interface{}) {
	l.logger.Debug(msg, keysAndValues...)
}

func (l cronLogger) Error(err error, msg string, keysAndValues ...interface{}) {
	l.logger.Error(msg, append(keysAndValues, slog.Any("error", err))...)
}
