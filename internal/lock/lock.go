// Package lock serializes work per identity. Events for the same phone
// number run one at a time; different numbers run in parallel.
//
// Two implementations are provided:
//   - Memory: a reference-counted keyed mutex for single-process deployments
//   - Redis: a lease lock (SET NX PX + compare-and-delete release) shared by
//     every replica
package lock

import (
	"context"
	"sync"
)

// Locker acquires an exclusive lock on key. The returned unlock function
// is safe to call more than once. Lock gives up with ctx.Err() when ctx is
// done before the lock is acquired.
type Locker interface {
	Lock(ctx context.Context, key string) (unlock func(), err error)
}

// entry is a one-slot semaphore plus the number of goroutines holding or
// waiting for it.
type entry struct {
	sem  chan struct{}
	refs int
}

// Memory is an in-process keyed mutex. Entries are removed once no one
// holds or waits for them, so memory stays bounded by the number of
// identities in flight. Safe for concurrent use.
type Memory struct {
	mu      sync.Mutex
	entries map[string]*entry
}

// NewMemory returns an empty keyed mutex.
func NewMemory() *Memory {
	return &Memory{entries: make(map[string]*entry)}
}

// Lock implements Locker.
func (m *Memory) Lock(ctx context.Context, key string) (func(), error) {
	m.mu.Lock()
	e, ok := m.entries[key]
	if !ok {
		e = &entry{sem: make(chan struct{}, 1)}
		m.entries[key] = e
	}
	e.refs++
	m.mu.Unlock()

	select {
	case e.sem <- struct{}{}:
	case <-ctx.Done():
		m.release(key, e)
		return nil, ctx.Err()
	}

	var once sync.Once
	return func() {
		once.Do(func() {
			<-e.sem
			m.release(key, e)
		})
	}, nil
}

func (m *Memory) release(key string, e *entry) {
	m.mu.Lock()
	e.refs--
	if e.refs == 0 {
		delete(m.entries, key)
	}
	m.mu.Unlock()
}

// Len reports how many keys are currently held or waited on.
func (m *Memory) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.entries)
}
