// Package flock provides cross-platform exclusive file locks.
//
// Locks are taken on a dedicated lock file next to the data they protect,
// never on the data file itself, so the data file can be replaced by rename
// while the lock is held.
//
// Usage:
//
//	lock, err := flock.Acquire(ctx, path+".lock", 5*time.Second)
//	if err != nil {
//	    return err // errors.ErrLockTimeout if another process holds it
//	}
//	defer func() { _ = lock.Release() }()
package flock
