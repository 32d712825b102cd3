package redis

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
)

const (
	defaultLockTTL   = 2 * time.Minute
	defaultLockRetry = 50 * time.Millisecond
	lockKeyPrefix    = "vpnbot:lock:user:"
)

// releaseScript deletes the key only while it still holds our token, so an
// expired lock taken over by another process is left alone.
var releaseScript = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
end
return 0
`)

// UserLock serializes work per user across processes sharing one Redis.
// The TTL must exceed the longest critical section (two panel round trips);
// config validation rejects a LOCK_TTL that does not.
type UserLock struct {
	client *redis.Client
	ttl    time.Duration
	retry  time.Duration
	log    zerolog.Logger
}

func NewUserLock(client *redis.Client, ttl time.Duration, log zerolog.Logger) *UserLock {
	if ttl <= 0 {
		ttl = defaultLockTTL
	}
	return &UserLock{client: client, ttl: ttl, retry: defaultLockRetry, log: log}
}

// Do blocks until the user's lock is held or ctx is done, then runs fn.
func (l *UserLock) Do(ctx context.Context, userID int64, fn func(ctx context.Context) error) error {
	key := fmt.Sprintf("%s%d", lockKeyPrefix, userID)
	token := uuid.NewString()

	if err := l.acquire(ctx, key, token); err != nil {
		return err
	}
	defer l.release(ctx, key, token)

	return fn(ctx)
}

func (l *UserLock) acquire(ctx context.Context, key, token string) error {
	ticker := time.NewTicker(l.retry)
	defer ticker.Stop()

	for {
		ok, err := l.client.SetNX(ctx, key, token, l.ttl).Result()
		if err != nil {
			return fmt.Errorf("acquire user lock: %w", err)
		}
		if ok {
			return nil
		}

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
		}
	}
}

func (l *UserLock) release(ctx context.Context, key, token string) {
	// Release even when the caller's context is already cancelled.
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), defaultTimeout)
	defer cancel()

	n, err := releaseScript.Run(ctx, l.client, []string{key}, token).Int()
	if err != nil && !errors.Is(err, redis.Nil) {
		l.log.Warn().Err(err).Str("key", key).Msg("release user lock failed, waiting for ttl")
		return
	}
	if n == 0 {
		l.log.Warn().Str("key", key).Msg("user lock expired before release")
	}
}
