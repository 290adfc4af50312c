package persistence

import (
	"context"
	"fmt"
	"time"

	"github.com/gofrs/flock"

	"jasondb/internal/globalconst"
)

const (
	lockMaxRetries = 3
	lockRetryDelay = 100 * time.Millisecond
)

// FileLock is an exclusive advisory lock.
type FileLock interface {
	// TryLockContext attempts to acquire the lock, polling every
	// retryInterval until ctx is done.
	TryLockContext(ctx context.Context, retryInterval time.Duration) (bool, error)
	// Unlock releases the lock.
	Unlock() error
}

// LockFactory creates the FileLock guarding a path.
type LockFactory interface {
	New(path string) FileLock
}

// FlockFactory creates locks backed by github.com/gofrs/flock.
type FlockFactory struct{}

// New implements LockFactory.
func (FlockFactory) New(path string) FileLock {
	return flock.New(path)
}

// lock acquires the lock file next to path and returns its release function.
func (s *FileStorage) lock(ctx context.Context, path string) (func(), error) {
	factory := s.Locks
	if factory == nil {
		factory = FlockFactory{}
	}
	timeout := s.LockTimeout
	if timeout <= 0 {
		timeout = DefaultLockTimeout
	}

	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	fl := factory.New(path + globalconst.LockFileSuffix)
	for i := 0; i < lockMaxRetries; i++ {
		locked, err := fl.TryLockContext(ctx, lockRetryDelay)
		if err != nil {
			return nil, fmt.Errorf("failed to lock '%s': %w", path, err)
		}
		if locked {
			return func() { _ = fl.Unlock() }, nil
		}

		select {
		case <-ctx.Done():
			return nil, fmt.Errorf("failed to lock '%s': %w", path, ctx.Err())
		case <-time.After(lockRetryDelay):
		}
	}
	return nil, fmt.Errorf("failed to lock '%s' after %d attempts", path, lockMaxRetries)
}
