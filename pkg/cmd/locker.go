package cmd

import (
	"fmt"

	"github.com/redis/go-redis/v9"

	"github.com/zapflow/zapflow/pkg/locks"
)

// NewLocker returns the Redis-backed conversation locker when a Redis URL is
// configured, otherwise the in-process one. Multi-worker deployments need
// Redis; the in-process locker only protects a single process.
func NewLocker(redisURL string) locks.Locker {
	if redisURL == "" {
		return locks.NewMemoryLocker()
	}

	opts, err := redis.ParseURL(redisURL)
	if err != nil {
		panic(fmt.Errorf("invalid redis URL: %w", err))
	}

	return locks.NewRedisLocker(redis.NewClient(opts))
}
