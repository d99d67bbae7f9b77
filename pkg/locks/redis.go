package locks

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

const (
	lockKeyPrefix = "zapflow:conversation:"
	retryInterval = 50 * time.Millisecond
)

// releaseScript deletes the key only when it still holds our token, so an
// expired lock re-acquired by another worker is never released by us.
var releaseScript = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
end
return 0
`)

// RedisLocker is the multi-worker locker: SET NX with a TTL, so a crashed
// engine worker frees its conversations after the TTL instead of wedging
// them forever.
type RedisLocker struct {
	client *redis.Client
}

// NewRedisLocker creates a Redis-backed locker.
func NewRedisLocker(client *redis.Client) *RedisLocker {
	return &RedisLocker{client: client}
}

// Acquire polls SET NX until the lock is held or the context is done.
func (l *RedisLocker) Acquire(ctx context.Context, key string, ttl time.Duration) (Release, error) {
	redisKey := lockKeyPrefix + key
	token := uuid.New().String()

	for {
		ok, err := l.client.SetNX(ctx, redisKey, token, ttl).Result()
		if err != nil {
			return nil, err
		}

		if ok {
			return func(ctx context.Context) error {
				return releaseScript.Run(ctx, l.client, []string{redisKey}, token).Err()
			}, nil
		}

		select {
		case <-time.After(retryInterval):
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
}
