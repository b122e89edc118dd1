// Package errors provides centralized error handling for taskclock.
//
// This package defines sentinel errors used for programmatic error categorization
// throughout the application. All error types can be checked using errors.Is().
//
// IMPORTANT: This package MUST NOT import any other internal packages.
// Only standard library imports are allowed.
package errors

import "errors"

// Sentinel errors for error categorization.
// These allow callers to check error types with errors.Is().
var (
	// ErrStorage indicates that the persisted task collection could not be
	// read, parsed, or written.
	ErrStorage = errors.New("task storage error")

	// ErrTaskNotFound indicates that an operation referenced an unknown task id.
	ErrTaskNotFound = errors.New("task not found")

	// ErrCapacityExceeded indicates that adding a task would exceed the
	// maximum number of tasks.
	ErrCapacityExceeded = errors.New("task capacity exceeded")

	// ErrTimerRunning indicates a countdown is already active for the task.
	// Start reports this as a false return, not as an error.
	ErrTimerRunning = errors.New("timer already running")

	// ErrTickFailed indicates a countdown cycle could not reload or persist
	// the task collection. It never leaves the countdown goroutine.
	ErrTickFailed = errors.New("countdown tick failed")

	// ErrRegistryClosed indicates the timer registry has been shut down.
	ErrRegistryClosed = errors.New("timer registry closed")

	// ErrEmptyValue indicates that a required value was empty.
	ErrEmptyValue = errors.New("value cannot be empty")

	// ErrValueOutOfRange indicates that a value is outside the allowed range.
	ErrValueOutOfRange = errors.New("value out of range")

	// ErrLockTimeout indicates a file lock could not be acquired within the timeout period.
	ErrLockTimeout = errors.New("lock acquisition timeout")

	// ErrConfigNil indicates that a nil config was passed to validation.
	ErrConfigNil = errors.New("config is nil")

	// ErrConfigInvalidServer indicates an invalid server configuration value.
	ErrConfigInvalidServer = errors.New("invalid server configuration")

	// ErrConfigInvalidStore indicates an invalid store configuration value.
	ErrConfigInvalidStore = errors.New("invalid store configuration")

	// ErrConfigInvalidTimer indicates an invalid timer configuration value.
	ErrConfigInvalidTimer = errors.New("invalid timer configuration")

	// ErrConfigInvalidBoard indicates an invalid board configuration value.
	ErrConfigInvalidBoard = errors.New("invalid board configuration")

	// ErrConfigInvalidAI indicates an invalid AI configuration value.
	ErrConfigInvalidAI = errors.New("invalid AI configuration")

	// ErrInvalidOutputFormat indicates an invalid output format was specified.
	ErrInvalidOutputFormat = errors.New("invalid output format")

	// ErrBoardUnavailable indicates the serial port of the display board
	// is not present on this machine.
	ErrBoardUnavailable = errors.New("display board unavailable")

	// ErrBoardNoResponse indicates the display board accepted the write
	// but did not acknowledge it.
	ErrBoardNoResponse = errors.New("display board did not respond")

	// ErrSuggestionFailed indicates the language-model service could not
	// be reached or returned an error status.
	ErrSuggestionFailed = errors.New("duration suggestion failed")

	// ErrSuggestionInvalid indicates the language-model reply did not
	// contain a usable positive duration.
	ErrSuggestionInvalid = errors.New("invalid duration suggestion")

	// ErrMissingAPIKey indicates the API key environment variable is unset.
	ErrMissingAPIKey = errors.New("api key not set")
)
