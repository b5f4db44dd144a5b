package chat

import (
	"context"
	"sync"
)

// UserLocker serializes session resolution per user so two concurrent
// requests cannot both observe no-active-session and create two.
type UserLocker interface {
	Lock(ctx context.Context, userID uint64) (release func(), err error)
}

// MemoryLocker is a process-local UserLocker for tests and single-instance
// deployments without redis. Each user gets a one-slot semaphore channel so
// a blocked acquire still honors ctx, matching the redis locker's deadline
// behavior.
type MemoryLocker struct {
	mu    sync.Mutex
	locks map[uint64]chan struct{}
}

func NewMemoryLocker() *MemoryLocker {
	return &MemoryLocker{locks: make(map[uint64]chan struct{})}
}

func (l *MemoryLocker) Lock(ctx context.Context, userID uint64) (func(), error) {
	l.mu.Lock()
	sem, ok := l.locks[userID]
	if !ok {
		sem = make(chan struct{}, 1)
		l.locks[userID] = sem
	}
	l.mu.Unlock()

	select {
	case sem <- struct{}{}:
		return func() { <-sem }, nil
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}
