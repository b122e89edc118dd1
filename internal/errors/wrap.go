package errors

import "fmt"

// Wrap adds context to errors at package boundaries.
// It returns nil if err is nil, allowing for safe inline usage.
//
// The wrapped error preserves the original error chain, so callers
// can still check for sentinel errors:
//
//	if errors.Is(err, errors.ErrTaskNotFound) {
//	    // respond 404
//	}
//
// IMPORTANT: Only wrap errors at package boundaries to avoid
// overly nested error messages.
func Wrap(err error, msg string) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%s: %w", msg, err)
}

// Wrapf adds formatted context to errors at package boundaries.
// It returns nil if err is nil, allowing for safe inline usage.
//
// Use it when the context names the thing that failed, usually a task id:
//
//	if err := r.store.Save(ctx, tasks); err != nil {
//	    return errors.Wrapf(err, "failed to start timer for task %d", id)
//	}
//
// Like Wrap, the result keeps the original chain, so errors.Is still
// matches ErrStorage or ErrTaskNotFound underneath the added message.
func Wrapf(err error, format string, args ...any) error {
	if err == nil {
		return nil
	}
	msg := fmt.Sprintf(format, args...)
	return fmt.Errorf("%s: %w", msg, err)
}
