// Package daylock serializes work on a single user's calendar day.
//
// Creating a time entry reads the day's current total, validates the
// projected total and then writes. Holding the (user, date) lock across
// those steps closes the check-then-act race between concurrent creates.
package daylock

import (
	"context"
	"fmt"
	"sync"

	"cloud.google.com/go/civil"
)

// Locker acquires exclusive locks by key.
type Locker interface {
	// Lock blocks until the key is held or ctx is done.
	// The returned function releases the lock and is safe to call once.
	Lock(ctx context.Context, key string) (func(), error)
}

// Key returns the lock key of a user's calendar day.
func Key(userID string, date civil.Date) string {
	return fmt.Sprintf("timesheet:day:%s:%s", userID, date)
}

// Local is an in-process keyed mutex.
// Entries are removed once no goroutine holds or waits for them.
type Local struct {
	mu    sync.Mutex
	locks map[string]*keyLock
}

type keyLock struct {
	ch   chan struct{}
	refs int
}

// NewLocal creates an in-process locker.
func NewLocal() *Local {
	return &Local{locks: make(map[string]*keyLock)}
}

// Lock acquires the key.
func (l *Local) Lock(ctx context.Context, key string) (func(), error) {
	l.mu.Lock()
	kl, ok := l.locks[key]
	if !ok {
		kl = &keyLock{ch: make(chan struct{}, 1)}
		l.locks[key] = kl
	}
	kl.refs++
	l.mu.Unlock()

	select {
	case kl.ch <- struct{}{}:
	case <-ctx.Done():
		l.release(key, kl)
		return nil, fmt.Errorf("acquire lock %s: %w", key, ctx.Err())
	}

	var once sync.Once
	return func() {
		once.Do(func() {
			<-kl.ch
			l.release(key, kl)
		})
	}, nil
}

func (l *Local) release(key string, kl *keyLock) {
	l.mu.Lock()
	defer l.mu.Unlock()

	kl.refs--
	if kl.refs == 0 {
		delete(l.locks, key)
	}
}

// size returns the number of tracked keys.
func (l *Local) size() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.locks)
}
