// Package idempotency guards concurrent checkout retries that carry the same Idempotency-Key.
package idempotency

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

var ErrInFlight = errors.New("request with this idempotency key is already in progress")

const luaReleaseIfMatch = `
if redis.call('GET', KEYS[1]) == ARGV[1] then
  return redis.call('DEL', KEYS[1])
end
return 0
`

// Locker holds a short-lived lock per (customer, key) while a checkout runs.
type Locker interface {
	// Acquire returns a release func, or ErrInFlight when another request holds the key.
	Acquire(ctx context.Context, customerID, key string) (func(), error)
}

type redisLocker struct {
	rdb *redis.Client
	ttl time.Duration
}

func NewRedisLocker(rdb *redis.Client, ttl time.Duration) Locker {
	return &redisLocker{
		rdb: rdb,
		ttl: ttl,
	}
}

func Key(customerID, key string) string {
	return fmt.Sprintf("checkout:idem:%s:%s", customerID, key)
}

func (l *redisLocker) Acquire(ctx context.Context, customerID, key string) (func(), error) {
	lockKey := Key(customerID, key)
	token := uuid.NewString()

	ok, err := l.rdb.SetNX(ctx, lockKey, token, l.ttl).Result()
	if err != nil {
		return nil, fmt.Errorf("acquire idempotency lock: %w", err)
	}
	if !ok {
		return nil, ErrInFlight
	}

	release := func() {
		// release on a fresh context so a cancelled request still frees the key
		releaseCtx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		_ = l.rdb.Eval(releaseCtx, luaReleaseIfMatch, []string{lockKey}, token).Err()
	}

	return release, nil
}
