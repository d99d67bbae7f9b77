// Package locks provides the per-conversation exclusive lock. One inbound
// cycle holds the lock for its whole resolve-execute-persist sequence, so a
// conversation never has two interleaved executions.
package locks

import (
	"context"
	"errors"
	"time"
)

// ErrNotAcquired is returned when the lock is already held elsewhere.
var ErrNotAcquired = errors.New("conversation lock not acquired")

// ConversationKey builds the canonical lock key for a conversation. The same
// key partitions the Kafka topic, so lock contention only happens across
// redeliveries, never across in-order consumption.
func ConversationKey(organizationID, contactID string) string {
	return organizationID + ":" + contactID
}

// Locker acquires exclusive locks by key. Acquire blocks until the lock is
// held, the TTL of a crashed holder expires, or the context is done.
type Locker interface {
	Acquire(ctx context.Context, key string, ttl time.Duration) (Release, error)
}

// Release frees a held lock.
type Release func(ctx context.Context) error
