package locks

import (
	"context"
	"sync"
	"time"
)

// MemoryLocker is the single-process locker: one mutex per key. TTLs are
// ignored, a crashed holder takes the process down with it.
type MemoryLocker struct {
	mu      sync.Mutex
	mutexes map[string]*keyMutex
}

type keyMutex struct {
	ch   chan struct{}
	refs int
}

// NewMemoryLocker creates an in-process locker.
func NewMemoryLocker() *MemoryLocker {
	return &MemoryLocker{mutexes: make(map[string]*keyMutex)}
}

// Acquire blocks until the key's mutex is held or the context is done.
func (l *MemoryLocker) Acquire(ctx context.Context, key string, _ time.Duration) (Release, error) {
	l.mu.Lock()

	km, ok := l.mutexes[key]
	if !ok {
		km = &keyMutex{ch: make(chan struct{}, 1)}
		l.mutexes[key] = km
	}

	km.refs++
	l.mu.Unlock()

	select {
	case km.ch <- struct{}{}:
	case <-ctx.Done():
		l.release(key, km, false)

		return nil, ctx.Err()
	}

	return func(context.Context) error {
		l.release(key, km, true)

		return nil
	}, nil
}

func (l *MemoryLocker) release(key string, km *keyMutex, held bool) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if held {
		<-km.ch
	}

	km.refs--
	if km.refs == 0 {
		delete(l.mutexes, key)
	}
}
