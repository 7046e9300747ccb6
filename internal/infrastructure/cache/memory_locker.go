package cache

import (
	"context"
	"sync"
	"time"

	"github.com/storefront/backend/internal/domain/shared"
)

// MemoryLocker is a process-local keyed mutex. Idle keys are dropped so
// the map only holds locks that are held or awaited.
type MemoryLocker struct {
	mu    sync.Mutex
	locks map[string]*keyedLock
}

type keyedLock struct {
	ch   chan struct{}
	refs int
}

// NewMemoryLocker creates a new MemoryLocker
func NewMemoryLocker() *MemoryLocker {
	return &MemoryLocker{locks: make(map[string]*keyedLock)}
}

// Lock acquires the named lock, giving up after wait or when ctx is done
func (l *MemoryLocker) Lock(ctx context.Context, name string, wait time.Duration) (func(), error) {
	kl := l.acquireRef(name)

	timer := time.NewTimer(wait)
	defer timer.Stop()

	select {
	case kl.ch <- struct{}{}:
	case <-timer.C:
		l.releaseRef(name, kl)
		return nil, shared.ErrLockTimeout
	case <-ctx.Done():
		l.releaseRef(name, kl)
		return nil, ctx.Err()
	}

	var once sync.Once
	return func() {
		once.Do(func() {
			<-kl.ch
			l.releaseRef(name, kl)
		})
	}, nil
}

func (l *MemoryLocker) acquireRef(name string) *keyedLock {
	l.mu.Lock()
	defer l.mu.Unlock()

	kl, ok := l.locks[name]
	if !ok {
		kl = &keyedLock{ch: make(chan struct{}, 1)}
		l.locks[name] = kl
	}
	kl.refs++
	return kl
}

func (l *MemoryLocker) releaseRef(name string, kl *keyedLock) {
	l.mu.Lock()
	defer l.mu.Unlock()

	kl.refs--
	if kl.refs == 0 {
		delete(l.locks, name)
	}
}

var _ shared.Locker = (*MemoryLocker)(nil)
