package memory

import (
	"context"
	"fmt"
	"sync"

	"github.com/mcoot/omokgame/internal/model"
	"github.com/mcoot/omokgame/internal/storage"
)

// Locker serializes work per key within a single process
type Locker struct {
	mu    sync.Mutex
	locks map[string]*keyLock
}

type keyLock struct {
	ch   chan struct{} // holds one token while the key is free
	refs int
}

// NewLocker creates a new in-process Locker
func NewLocker() *Locker {
	return &Locker{locks: make(map[string]*keyLock)}
}

var _ storage.Locker = (*Locker)(nil)

// Lock waits for exclusive access to key
func (l *Locker) Lock(ctx context.Context, key string) (func(), error) {
	l.mu.Lock()
	kl, ok := l.locks[key]
	if !ok {
		kl = &keyLock{ch: make(chan struct{}, 1)}
		kl.ch <- struct{}{}
		l.locks[key] = kl
	}
	kl.refs++
	l.mu.Unlock()

	select {
	case <-kl.ch:
	case <-ctx.Done():
		l.release(key, kl, false)
		return nil, fmt.Errorf("%w: %w", model.ErrLockNotAcquired, ctx.Err())
	}

	var once sync.Once
	return func() {
		once.Do(func() { l.release(key, kl, true) })
	}, nil
}

func (l *Locker) release(key string, kl *keyLock, held bool) {
	if held {
		kl.ch <- struct{}{}
	}
	l.mu.Lock()
	kl.refs--
	if kl.refs == 0 {
		delete(l.locks, key)
	}
	l.mu.Unlock()
}
