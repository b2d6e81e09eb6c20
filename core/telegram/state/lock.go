package state

import "sync"

// Locker is a keyed mutex. Entries are reference counted and released when
// the last holder unlocks, so the map only holds users with turns in flight.
type Locker struct {
	mu    sync.Mutex
	locks map[int64]*keyedLock
}

type keyedLock struct {
	mu   sync.Mutex
	refs int
}

// NewLocker constructs an empty Locker.
func NewLocker() *Locker {
	return &Locker{locks: make(map[int64]*keyedLock)}
}

// Lock blocks until the caller holds userID's lock and returns its release func.
func (l *Locker) Lock(userID int64) func() {
	l.mu.Lock()
	kl, ok := l.locks[userID]
	if !ok {
		kl = &keyedLock{}
		l.locks[userID] = kl
	}
	kl.refs++
	l.mu.Unlock()

	kl.mu.Lock()

	var once sync.Once
	return func() {
		once.Do(func() {
			kl.mu.Unlock()
			l.mu.Lock()
			kl.refs--
			if kl.refs == 0 {
				delete(l.locks, userID)
			}
			l.mu.Unlock()
		})
	}
}

// Held reports how many users currently have a holder or waiter.
func (l *Locker) Held() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.locks)
}
