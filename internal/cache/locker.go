package cache

import (
	"context"
	"errors"
	"time"

	"github.com/bsm/redislock"
	"github.com/rs/zerolog/log"
)

// ErrLockHeld is returned when another instance holds the lock.
var ErrLockHeld = errors.New("lock held by another instance")

// Locker hands out short-lived distributed locks.
type Locker struct {
	client *redislock.Client
}

// NewLocker creates a Locker on the given Redis connection.
func NewLocker(redis *RedisClient) *Locker {
	return &Locker{client: redislock.New(redis.client)}
}

// Obtain takes key for ttl. The returned release func is safe to defer.
func (l *Locker) Obtain(ctx context.Context, key string, ttl time.Duration) (func(), error) {
	lock, err := l.client.Obtain(ctx, "lock:"+key, ttl, nil)
	if err == redislock.ErrNotObtained {
		return nil, ErrLockHeld
	} else if err != nil {
		return nil, err
	}

	return func() {
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		if err := lock.Release(ctx); err != nil && err != redislock.ErrLockNotHeld {
			log.Warn().Err(err).Str("key", key).Msg("Failed to release redis lock")
		}
	}, nil
}
