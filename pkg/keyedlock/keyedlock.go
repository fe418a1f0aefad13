// Package keyedlock provides per-key mutual exclusion with context-bounded
// acquisition. Entries are created on demand and dropped once no goroutine
// holds or waits on a key, so the map does not grow with the ID space.
package keyedlock

import (
	"context"
	"sync"
)

type entry struct {
	ch   chan struct{}
	refs int
}

type KeyedLock struct {
	mu      sync.Mutex
	entries map[string]*entry
}

func New() *KeyedLock {
	return &KeyedLock{entries: make(map[string]*entry)}
}

// Acquire blocks until the key's lock is held or ctx is done. On success it
// returns the release function; the caller must invoke it exactly once.
func (l *KeyedLock) Acquire(ctx context.Context, key string) (func(), error) {
	l.mu.Lock()
	e, ok := l.entries[key]
	if !ok {
		e = &entry{ch: make(chan struct{}, 1)}
		l.entries[key] = e
	}
	e.refs++
	l.mu.Unlock()

	select {
	case e.ch <- struct{}{}:
		return func() {
			<-e.ch
			l.drop(key, e)
		}, nil
	case <-ctx.Done():
		l.drop(key, e)
		return nil, ctx.Err()
	}
}

func (l *KeyedLock) drop(key string, e *entry) {
	l.mu.Lock()
	e.refs--
	if e.refs == 0 {
		delete(l.entries, key)
	}
	l.mu.Unlock()
}
