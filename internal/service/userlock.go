package service

import (
	"context"
	"sync"
)

// userLocks serializes work per username. Entries are reference counted
// and dropped once nobody holds or waits for them.
type userLocks struct {
	mu    sync.Mutex
	locks map[string]*userLock
}

type userLock struct {
	ch   chan struct{}
	refs int
}

func newUserLocks() *userLocks {
	return &userLocks{locks: make(map[string]*userLock)}
}

// Lock blocks until the lock for username is held or ctx is done.
// The returned func releases it.
func (u *userLocks) Lock(ctx context.Context, username string) (func(), error) {
	u.mu.Lock()
	l, ok := u.locks[username]
	if !ok {
		l = &userLock{ch: make(chan struct{}, 1)}
		u.locks[username] = l
	}
	l.refs++
	u.mu.Unlock()

	select {
	case l.ch <- struct{}{}:
		var once sync.Once
		return func() {
			once.Do(func() {
				<-l.ch
				u.release(username, l)
			})
		}, nil
	case <-ctx.Done():
		u.release(username, l)
		return nil, ctx.Err()
	}
}

func (u *userLocks) release(username string, l *userLock) {
	u.mu.Lock()
	defer u.mu.Unlock()
	l.refs--
	if l.refs == 0 {
		delete(u.locks, username)
	}
}

func (u *userLocks) size() int {
	u.mu.Lock()
	defer u.mu.Unlock()
	return len(u.locks)
}
