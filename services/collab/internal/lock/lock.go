// Package lock implements a distributed lock over Redis: set-if-absent
// with a random token and a safety TTL, released by a scripted
// compare-and-delete.
package lock

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

// ErrNotAcquired is returned by Acquire when the deadline elapses without
// obtaining the lock.
var ErrNotAcquired = errors.New("lock: not acquired before deadline")

var releaseScript = redis.NewScript(`
if redis.call("get", KEYS[1]) == ARGV[1] then
	return redis.call("del", KEYS[1])
else
	return 0
end
`)

// Lock is a held distributed lock. Release must be called exactly once.
type Lock struct {
	rdb   *redis.Client
	key   string
	token string
}

// Acquire blocks (with short sleeps) until the lock at key is obtained or
// retryFor elapses, returning ErrNotAcquired on timeout. ttl bounds how long
// the lock is held even if Release is never called.
func Acquire(ctx context.Context, rdb *redis.Client, key string, ttl, retryFor time.Duration) (*Lock, error) {
	token := uuid.NewString()
	deadline := time.Now().Add(retryFor)
	for {
		ok, err := rdb.SetNX(ctx, key, token, ttl).Result()
		if err != nil {
			return nil, err
		}
		if ok {
			return &Lock{rdb: rdb, key: key, token: token}, nil
		}
		if time.Now().After(deadline) {
			return nil, ErrNotAcquired
		}
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(50 * time.Millisecond):
		}
	}
}

// Release performs the compare-and-delete; it is safe to call even if the
// lock already expired (the script is a no-op in that case).
func (l *Lock) Release(ctx context.Context) error {
	return releaseScript.Run(ctx, l.rdb, []string{l.key}, l.token).Err()
}
