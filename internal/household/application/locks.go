package application

import "sync"

// AccountLocks serializes mutating use cases per account id.
// The treasury model assumes a single writer per account: every guarded
// mutation and every payment attempt runs to completion before the next
// operation on the same account begins.
type AccountLocks struct {
	mu    sync.Mutex
	locks map[string]*sync.Mutex
}

// NewAccountLocks constructs the lock registry.
func NewAccountLocks() *AccountLocks {
	return &AccountLocks{locks: make(map[string]*sync.Mutex)}
}

// Lock acquires the account lock and returns its release function.
func (l *AccountLocks) Lock(accountID string) func() {
	l.mu.Lock()
	lock, ok := l.locks[accountID]
	if !ok {
		lock = &sync.Mutex{}
		l.locks[accountID] = lock
	}
	l.mu.Unlock()

	lock.Lock()
	return lock.Unlock
}
