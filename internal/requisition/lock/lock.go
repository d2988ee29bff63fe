// Package lock serialises transitions on the same request across replicas.
package lock

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

// ErrLockAcquire is returned when the lock cannot be acquired before the context ends.
var ErrLockAcquire = errors.New("failed to acquire request lock")

// UnlockFunc releases a held lock.
type UnlockFunc func(ctx context.Context) error

// Locker acquires a named lock, blocking until it is free or ctx is done.
type Locker interface {
	Lock(ctx context.Context, key string, ttl time.Duration) (UnlockFunc, error)
}

// Noop is used when Redis is not configured; the optimistic version check
// in the repository still rejects lost updates.
type Noop struct{}

func (Noop) Lock(ctx context.Context, key string, ttl time.Duration) (UnlockFunc, error) {
	return func(context.Context) error { return nil }, nil
}

const unlockScript = `
if redis.call("get", KEYS[1]) == ARGV[1] then
	return redis.call("del", KEYS[1])
else
	return 0
end`

// RedisLocker implements Locker with SET NX PX and a compare-and-delete release.
type RedisLocker struct {
	client       redis.UniversalClient
	prefix       string
	pollInterval time.Duration
}

func NewRedisLocker(client redis.UniversalClient, prefix string) *RedisLocker {
	return &RedisLocker{
		client:       client,
		prefix:       prefix,
		pollInterval: 50 * time.Millisecond,
	}
}

func (l *RedisLocker) Lock(ctx context.Context, key string, ttl time.Duration) (UnlockFunc, error) {
	lockKey := l.prefix + "lock:" + key
	token := uuid.New().String()

	ok, err := l.client.SetNX(ctx, lockKey, token, ttl).Result()
	if err != nil {
		return nil, fmt.Errorf("redis error acquiring lock: %w", err)
	}

	if !ok {
		ticker := time.NewTicker(l.pollInterval)
		defer ticker.Stop()
		for !ok {
			select {
			case <-ctx.Done():
				return nil, fmt.Errorf("%w: %v", ErrLockAcquire, ctx.Err())
			case <-ticker.C:
				ok, err = l.client.SetNX(ctx, lockKey, token, ttl).Result()
				if err != nil && ctx.Err() != nil {
					return nil, fmt.Errorf("%w: %v", ErrLockAcquire, ctx.Err())
				}
				if err != nil {
					return nil, fmt.Errorf("redis error acquiring lock: %w", err)
				}
			}
		}
	}

	return func(ctx context.Context) error {
		return l.client.Eval(ctx, unlockScript, []string{lockKey}, token).Err()
	}, nil
}
