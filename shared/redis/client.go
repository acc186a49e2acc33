package redis

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"
	goredis "github.com/redis/go-redis/v9"
)

// ErrLockNotHeld is returned when releasing a lock whose token no longer matches
var ErrLockNotHeld = errors.New("redis lock not held")

// releaseScript deletes the key only if it still carries our token
var releaseScript = goredis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
end
return 0
`)

// refreshScript extends the key's expiry only if it still carries our token
var refreshScript = goredis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("PEXPIRE", KEYS[1], ARGV[2])
end
return 0
`)

// NewClient parses redisURL and verifies connectivity
func NewClient(ctx context.Context, redisURL string, logger *slog.Logger) (*goredis.Client, error) {
	opts, err := goredis.ParseURL(redisURL)
	if err != nil {
		return nil, fmt.Errorf("failed to parse redis url: %w", err)
	}

	client := goredis.NewClient(opts)

	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("redis ping failed: %w", err)
	}

	logger.Info("Successfully connected to Redis",
		slog.String("addr", opts.Addr),
		slog.Int("db", opts.DB),
	)

	return client, nil
}

// Locker hands out expiring mutual-exclusion locks keyed by name
type Locker struct {
	client *goredis.Client
	prefix string
	logger *slog.Logger
}

// NewLocker creates a Locker whose keys are namespaced under prefix. Keys
// are joined to the prefix with a colon.
func NewLocker(client *goredis.Client, prefix string, logger *slog.Logger) *Locker {
	return &Locker{
		client: client,
		prefix: strings.TrimSuffix(prefix, ":"),
		logger: logger,
	}
}

// Key returns the full Redis key used for name
func (l *Locker) Key(name string) string {
	if l.prefix == "" {
		return name
	}
	return l.prefix + ":" + name
}

// Lock is a held lock. Release it once the guarded work is done.
type Lock struct {
	locker *Locker
	key    string
	token  string
}

// TryLock attempts to take key for ttl. It returns (nil, nil) when another
// holder already owns it.
func (l *Locker) TryLock(ctx context.Context, key string, ttl time.Duration) (*Lock, error) {
	fullKey := l.Key(key)
	token := uuid.NewString()

	ok, err := l.client.SetNX(ctx, fullKey, token, ttl).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to acquire lock %s: %w", fullKey, err)
	}
	if !ok {
		l.logger.Debug("Lock already held", slog.String("key", fullKey))
		return nil, nil
	}

	return &Lock{locker: l, key: fullKey, token: token}, nil
}

// Release frees the lock if it is still ours
func (lk *Lock) Release(ctx context.Context) error {
	n, err := releaseScript.Run(ctx, lk.locker.client, []string{lk.key}, lk.token).Int()
	if err != nil {
		return fmt.Errorf("failed to release lock %s: %w", lk.key, err)
	}
	if n == 0 {
		return ErrLockNotHeld
	}
	return nil
}

// Refresh resets the lock's expiry to ttl. It returns ErrLockNotHeld when the
// key expired or was taken over since the last refresh.
func (lk *Lock) Refresh(ctx context.Context, ttl time.Duration) error {
	n, err := refreshScript.Run(ctx, lk.locker.client, []string{lk.key}, lk.token, ttl.Milliseconds()).Int()
	if err != nil {
		return fmt.Errorf("failed to refresh lock %s: %w", lk.key, err)
	}
	if n == 0 {
		return ErrLockNotHeld
	}
	return nil
}

// Key returns the Redis key backing the lock
func (lk *Lock) Key() string {
	return lk.key
}
