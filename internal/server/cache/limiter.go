package cache

import (
	"context"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"
)

const loginAttemptsPrefix = "login_attempts:"

// LoginLimiter counts failed sign-in attempts per key in a fixed window that
// starts with the first failure.
type LoginLimiter struct {
	rdb         redis.Cmdable
	maxAttempts int
	window      time.Duration
}

func NewLoginLimiter(rdb redis.Cmdable, maxAttempts int, window time.Duration) *LoginLimiter {
	return &LoginLimiter{rdb: rdb, maxAttempts: maxAttempts, window: window}
}

// Allow reports whether another attempt for key may proceed.
func (l *LoginLimiter) Allow(ctx context.Context, key string) (bool, error) {
	n, err := l.rdb.Get(ctx, loginAttemptsPrefix+key).Int()
	if errors.Is(err, redis.Nil) {
		return true, nil
	}
	if err != nil {
		return true, err
	}
	return n < l.maxAttempts, nil
}

// Fail records one failed attempt.
func (l *LoginLimiter) Fail(ctx context.Context, key string) error {
	k := loginAttemptsPrefix + key
	n, err := l.rdb.Incr(ctx, k).Result()
	if err != nil {
		return err
	}
	if n == 1 {
		return l.rdb.Expire(ctx, k, l.window).Err()
	}
	return nil
}

// Reset forgets the failures for key.
func (l *LoginLimiter) Reset(ctx context.Context, key string) error {
	return l.rdb.Del(ctx, loginAttemptsPrefix+key).Err()
}
