package errors

import "errors"

// ErrorInfo holds user-facing message and suggested action for an error.
type ErrorInfo struct {
	// Message is the user-friendly error description.
	Message string
	// Action is a suggested action to resolve the issue (empty if none).
	Action string
}

// errorEntry pairs a sentinel error with its user-facing info.
type errorEntry struct {
	err  error
	info ErrorInfo
}

// errorInfoEntries maps sentinel errors to their user-facing messages.
// A slice (not a map) because errors.Is() needs to walk wrapped chains.
//
//nolint:gochecknoglobals // Pre-built mapping for efficiency
var errorInfoEntries = []errorEntry{
	{
		err: ErrTaskNotFound,
		info: ErrorInfo{
			Message: "Task not found.",
			Action:  "Run 'taskclock list' to see the current task ids.",
		},
	},
	{
		err: ErrCapacityExceeded,
		info: ErrorInfo{
			Message: "The task list is full.",
			Action:  "Delete a task before adding another one.",
		},
	},
	{
		err: ErrLockTimeout,
		info: ErrorInfo{
			Message: "The task file is locked by another process.",
			Action:  "Wait a moment and retry, or check for a stuck taskclock process.",
		},
	},
	{
		err: ErrStorage,
		info: ErrorInfo{
			Message: "The task file could not be read or written.",
			Action:  "Check the store.path setting and the file's permissions.",
		},
	},
	{
		err: ErrEmptyValue,
		info: ErrorInfo{
			Message: "A required value was empty.",
		},
	},
	{
		err: ErrValueOutOfRange,
		info: ErrorInfo{
			Message: "A value was outside the allowed range.",
		},
	},
	{
		err: ErrConfigNil,
		info: ErrorInfo{
			Message: "No configuration was loaded.",
		},
	},
	{
		err: ErrInvalidOutputFormat,
		info: ErrorInfo{
			Message: "Unknown output format.",
			Action:  "Use --output text or --output json.",
		},
	},
	{
		err: ErrBoardUnavailable,
		info: ErrorInfo{
			Message: "The display board is not connected.",
			Action:  "Plug the board in or set board.enabled to false.",
		},
	},
	{
		err: ErrMissingAPIKey,
		info: ErrorInfo{
			Message: "No API key is configured for duration suggestions.",
			Action:  "Export the variable named by ai.api_key_env_var or set ai.enabled to false.",
		},
	},
}

// getErrorInfo finds the first entry matching err, falling back to err's own text.
func getErrorInfo(err error) ErrorInfo {
	for _, entry := range errorInfoEntries {
		if errors.Is(err, entry.err) {
			return entry.info
		}
	}
	return ErrorInfo{Message: err.Error()}
}

// UserMessage returns a user-friendly message for common errors.
// For unrecognized errors, it returns the error's original message.
func UserMessage(err error) string {
	if err == nil {
		return ""
	}
	return getErrorInfo(err).Message
}

// Actionable returns a user-friendly error message along with a suggested
// action. The action is empty when there is nothing obvious to do.
func Actionable(err error) (message, action string) {
	if err == nil {
		return "", ""
	}
	info := getErrorInfo(err)
	return info.Message, info.Action
}
