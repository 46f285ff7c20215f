package redis

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"github.com/mcoot/omokgame/internal/model"
	"github.com/mcoot/omokgame/internal/storage"
)

// releaseScript deletes the lease only if it still carries our token
var releaseScript = redis.NewScript(`
if redis.call('GET', KEYS[1]) == ARGV[1] then
	return redis.call('DEL', KEYS[1])
end
return 0
`)

// Locker is a lease-based lock shared by every process using the same Redis
type Locker struct {
	client    *redis.Client
	ttl       time.Duration
	retryWait time.Duration
}

// NewLocker creates a Locker on top of an existing client
func NewLocker(client *redis.Client, cfg Config) *Locker {
	return &Locker{
		client:    client,
		ttl:       cfg.LockTTL,
		retryWait: cfg.LockRetryWait,
	}
}

var _ storage.Locker = (*Locker)(nil)

// Lock polls SET NX PX until the lease is taken or ctx is done
func (l *Locker) Lock(ctx context.Context, key string) (func(), error) {
	rkey := lockKey(key)
	token := uuid.NewString()

	for {
		ok, err := l.client.SetNX(ctx, rkey, token, l.ttl).Result()
		if err != nil {
			if ctx.Err() != nil {
				return nil, fmt.Errorf("%w: %w", model.ErrLockNotAcquired, ctx.Err())
			}
			return nil, model.NewStoreError("lock", err)
		}
		if ok {
			break
		}

		select {
		case <-ctx.Done():
			return nil, fmt.Errorf("%w: %w", model.ErrLockNotAcquired, ctx.Err())
		case <-time.After(l.retryWait):
		}
	}

	return func() {
		// Release must run even when the caller's context is already cancelled
		releaseCtx, cancel := context.WithTimeout(context.Background(), time.Second)
		defer cancel()
		_ = releaseScript.Run(releaseCtx, l.client, []string{rkey}, token).Err()
	}, nil
}
