package flock

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/mrz1836/taskclock/internal/constants"
	tcerrors "github.com/mrz1836/taskclock/internal/errors"
)

// lockFilePerm keeps lock files private to the user.
const lockFilePerm = 0o600

// Lock is a held exclusive lock on a lock file.
type Lock struct {
	f *os.File
}

// Acquire opens (creating if needed) the lock file at path and takes an
// exclusive lock on it, retrying until timeout elapses or ctx is done.
// Returns an error wrapping errors.ErrLockTimeout when the lock stays busy.
func Acquire(ctx context.Context, path string, timeout time.Duration) (*Lock, error) {
	f, err := os.OpenFile(path, os.O_CREATE|os.O_RDWR, lockFilePerm) //#nosec G304 -- lock path is built by the caller from configuration
	if err != nil {
		return nil, fmt.Errorf("failed to open lock file: %w", err)
	}

	deadline := time.Now().Add(timeout)
	for {
		if err := ctx.Err(); err != nil {
			_ = f.Close()
			return nil, err
		}

		if err := tryExclusive(f.Fd()); err == nil {
			return &Lock{f: f}, nil
		}

		if time.Now().After(deadline) {
			_ = f.Close()
			return nil, fmt.Errorf("failed to lock %s: %w", path, tcerrors.ErrLockTimeout)
		}

		select {
		case <-ctx.Done():
		case <-time.After(constants.LockRetryInterval):
		}
	}
}

// Release unlocks and closes the lock file. It is safe to call on a nil Lock.
func (l *Lock) Release() error {
	if l == nil || l.f == nil {
		return nil
	}
	f := l.f
	l.f = nil

	if err := unlock(f.Fd()); err != nil {
		_ = f.Close()
		return fmt.Errorf("failed to release lock: %w", err)
	}
	return f.Close()
}
