package cache

import (
	"context"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"
)

const (
	sessionKeyPrefix = "session:"
	revokedMarker    = "-"
	revokedTTL       = time.Minute
)

// SessionCache remembers which user a valid session token belongs to.
type SessionCache struct {
	rdb redis.Cmdable
}

func NewSessionCache(rdb redis.Cmdable) *SessionCache {
	return &SessionCache{rdb: rdb}
}

func sessionKey(token string) string {
	return sessionKeyPrefix + token
}

// Get returns the cached user id. ok is false on a miss.
func (c *SessionCache) Get(ctx context.Context, token string) (string, bool, error) {
	userID, err := c.rdb.Get(ctx, sessionKey(token)).Result()
	if errors.Is(err, redis.Nil) {
		return "", false, nil
	}
	if err != nil {
		return "", false, err
	}
	if userID == revokedMarker {
		return "", false, nil
	}
	return userID, true, nil
}

// Set caches token -> userID for ttl unless the key already holds a value,
// so a lookup that raced with Revoke cannot overwrite the revoked marker.
// A non-positive ttl is a no-op.
func (c *SessionCache) Set(ctx context.Context, token, userID string, ttl time.Duration) error {
	if ttl <= 0 {
		return nil
	}
	return c.rdb.SetNX(ctx, sessionKey(token), userID, ttl).Err()
}

// Revoke replaces the cached entries of tokens with a short-lived marker.
// Get reports a marked token as a miss.
func (c *SessionCache) Revoke(ctx context.Context, tokens ...string) error {
	if len(tokens) == 0 {
		return nil
	}
	_, err := c.rdb.Pipelined(ctx, func(p redis.Pipeliner) error {
		for _, t := range tokens {
			p.Set(ctx, sessionKey(t), revokedMarker, revokedTTL)
		}
		return nil
	})
	return err
}
