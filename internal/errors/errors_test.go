package errors_test

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	tcerrors "github.com/mrz1836/taskclock/internal/errors"
)

// testError is a custom error type that matches no sentinel.
type testError struct {
	msg string
}

func (e testError) Error() string {
	return e.msg
}

func TestSentinelErrors_Messages(t *testing.T) {
	tests := []struct {
		name     string
		err      error
		expected string
	}{
		{"ErrStorage", tcerrors.ErrStorage, "task storage error"},
		{"ErrTaskNotFound", tcerrors.ErrTaskNotFound, "task not found"},
		{"ErrCapacityExceeded", tcerrors.ErrCapacityExceeded, "task capacity exceeded"},
		{"ErrTimerRunning", tcerrors.ErrTimerRunning, "timer already running"},
		{"ErrTickFailed", tcerrors.ErrTickFailed, "countdown tick failed"},
		{"ErrLockTimeout", tcerrors.ErrLockTimeout, "lock acquisition timeout"},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			require.Error(t, tc.err)
			assert.Equal(t, tc.expected, tc.err.Error())
		})
	}
}

func TestWrap(t *testing.T) {
	t.Run("nil error stays nil", func(t *testing.T) {
		require.NoError(t, tcerrors.Wrap(nil, "context"))
		require.NoError(t, tcerrors.Wrapf(nil, "context %d", 1))
	})

	t.Run("preserves chain", func(t *testing.T) {
		err := tcerrors.Wrap(tcerrors.ErrTaskNotFound, "failed to rename task")
		require.ErrorIs(t, err, tcerrors.ErrTaskNotFound)
		assert.Equal(t, "failed to rename task: task not found", err.Error())
	})

	t.Run("formats message", func(t *testing.T) {
		err := tcerrors.Wrapf(tcerrors.ErrStorage, "failed to save %d tasks", 3)
		require.ErrorIs(t, err, tcerrors.ErrStorage)
		assert.Equal(t, "failed to save 3 tasks: task storage error", err.Error())
	})
}

func TestUserMessage(t *testing.T) {
	assert.Empty(t, tcerrors.UserMessage(nil))
	assert.Equal(t, "Task not found.", tcerrors.UserMessage(tcerrors.ErrTaskNotFound))

	wrapped := fmt.Errorf("delete 4: %w", tcerrors.ErrTaskNotFound)
	assert.Equal(t, "Task not found.", tcerrors.UserMessage(wrapped))

	assert.Equal(t, "boom", tcerrors.UserMessage(testError{msg: "boom"}))
}

func TestActionable(t *testing.T) {
	msg, action := tcerrors.Actionable(nil)
	assert.Empty(t, msg)
	assert.Empty(t, action)

	msg, action = tcerrors.Actionable(fmt.Errorf("add: %w", tcerrors.ErrCapacityExceeded))
	assert.Equal(t, "The task list is full.", msg)
	assert.Contains(t, action, "Delete a task")

	msg, action = tcerrors.Actionable(tcerrors.ErrEmptyValue)
	assert.NotEmpty(t, msg)
	assert.Empty(t, action)
}
