// Package lock provides per-supplier mutual exclusion for sync runs.
// The local implementation guards a single process; the Redis one extends
// the guarantee across replicas sharing a store.
package lock

import (
	"context"
	"sync"

	"github.com/voyagedesk/inventory-sync/internal/inventory"
)

// Release gives a held lock back. It is safe to call more than once.
type Release func()

// Locker hands out at most one lock per key at a time.
type Locker interface {
	// TryLock acquires key without blocking. It returns
	// inventory.ErrAlreadyRunning when the key is held.
	TryLock(ctx context.Context, key string) (Release, error)
}

// Local is an in-process Locker
type Local struct {
	mu   sync.Mutex
	held map[string]struct{}
}

var _ Locker = (*Local)(nil)

// NewLocal creates an empty in-process lock table
func NewLocal() *Local {
	return &Local{held: make(map[string]struct{})}
}

// TryLock implements Locker
func (l *Local) TryLock(_ context.Context, key string) (Release, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if _, ok := l.held[key]; ok {
		return nil, inventory.ErrAlreadyRunning
	}
	l.held[key] = struct{}{}

	var once sync.Once
	return func() {
		once.Do(func() {
			l.mu.Lock()
			delete(l.held, key)
			l.mu.Unlock()
		})
	}, nil
}

// Held reports whether key is currently locked
func (l *Local) Held(key string) bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	_, ok := l.held[key]
	return ok
}
