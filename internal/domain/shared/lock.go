package shared

import (
	"context"
	"time"
)

// Locker provides named mutual exclusion. Implementations may be process
// local or shared between replicas.
type Locker interface {
	// Lock blocks until the named lock is held, ctx is done, or wait elapses.
	// The returned function releases the lock and is safe to call once.
	Lock(ctx context.Context, name string, wait time.Duration) (unlock func(), err error)
}

// ErrLockTimeout is returned when a lock could not be acquired in time
var ErrLockTimeout = NewDomainError(CodeConcurrencyConflict, "Another request is modifying this resource, please retry")
