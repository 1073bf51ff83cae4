package conversation

import (
	"context"
	"sync"

	"golang.org/x/sync/semaphore"
)

// turnLocks hands out one turn token per session. Entries are dropped once
// no turn holds or waits for them.
type turnLocks struct {
	mu    sync.Mutex
	locks map[string]*turnLock
}

type turnLock struct {
	sem  *semaphore.Weighted
	refs int
}

func newTurnLocks() *turnLocks {
	return &turnLocks{locks: make(map[string]*turnLock)}
}

// acquire blocks until the session's token is free or ctx is done.
func (l *turnLocks) acquire(ctx context.Context, sessionID string) (func(), error) {
	l.mu.Lock()
	lock, ok := l.locks[sessionID]
	if !ok {
		lock = &turnLock{sem: semaphore.NewWeighted(1)}
		l.locks[sessionID] = lock
	}
	lock.refs++
	l.mu.Unlock()

	if err := lock.sem.Acquire(ctx, 1); err != nil {
		l.unref(sessionID, lock)
		return nil, err
	}

	var once sync.Once
	return func() {
		once.Do(func() {
			lock.sem.Release(1)
			l.unref(sessionID, lock)
		})
	}, nil
}

func (l *turnLocks) unref(sessionID string, lock *turnLock) {
	l.mu.Lock()
	defer l.mu.Unlock()
	lock.refs--
	if lock.refs == 0 {
		delete(l.locks, sessionID)
	}
}

// active returns the number of sessions with a turn in flight or queued.
func (l *turnLocks) active() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.locks)
}

// queued returns the number of turns holding or waiting for a session's token.
func (l *turnLocks) queued(sessionID string) int {
	l.mu.Lock()
	defer l.mu.Unlock()
	if lock, ok := l.locks[sessionID]; ok {
		return lock.refs
	}
	return 0
}
