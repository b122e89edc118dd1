// Package constants provides centralized constant values used throughout taskclock.
// This package is the single source of truth for all shared constants and MUST NOT
// import any other internal packages.
package constants

import "time"

// Task limits.
const (
	// MaxTasks is the maximum number of tasks the tracker holds at once.
	// It also bounds the number of concurrently running countdowns.
	MaxTasks = 8
)

// Timer configuration defaults.
const (
	// DefaultTickInterval is how long a countdown sleeps between ticks.
	DefaultTickInterval = 1 * time.Second
)

// Store configuration defaults.
const (
	// DefaultLockTimeout is the maximum duration to wait for the task file lock.
	DefaultLockTimeout = 5 * time.Second

	// LockRetryInterval is the pause between lock attempts.
	LockRetryInterval = 50 * time.Millisecond
)

// HTTP server defaults.
const (
	// DefaultServerAddress is the listen address used by `taskclock serve`.
	DefaultServerAddress = "0.0.0.0:8080"

	// DefaultShutdownTimeout bounds graceful HTTP shutdown.
	DefaultShutdownTimeout = 10 * time.Second

	// DefaultReadHeaderTimeout guards against slow-header clients.
	DefaultReadHeaderTimeout = 5 * time.Second
)

// Display board (serial) defaults.
const (
	// DefaultBoardPort is the serial device of the display board.
	DefaultBoardPort = "COM6"

	// DefaultBoardBaudRate matches the board firmware's UART setup.
	DefaultBoardBaudRate = 9600

	// DefaultBoardReadTimeout is the serial read timeout for the acknowledgement.
	DefaultBoardReadTimeout = 2 * time.Second

	// DefaultBoardSettleDelay is how long to wait after opening the port
	// before writing; the board resets when the port opens.
	DefaultBoardSettleDelay = 1 * time.Second

	// DefaultBoardResponseDelay is the pause between writing and reading the reply.
	DefaultBoardResponseDelay = 100 * time.Millisecond

	// DefaultBoardRetries is the number of attempts per notification.
	DefaultBoardRetries = 3

	// DefaultBoardRetryDelay is the pause between failed attempts.
	DefaultBoardRetryDelay = 500 * time.Millisecond

	// DefaultBoardNotifyTimeout bounds one background notification.
	DefaultBoardNotifyTimeout = 15 * time.Second
)

// AI duration suggestion defaults.
const (
	// DefaultAIBaseURL is the OpenAI-compatible API root.
	DefaultAIBaseURL = "https://api.openai.com/v1"

	// DefaultAIModel is the chat model asked for duration suggestions.
	DefaultAIModel = "gpt-4o-mini"

	// DefaultAIAPIKeyEnvVar names the environment variable holding the API key.
	DefaultAIAPIKeyEnvVar = "OPENAI_API_KEY" //nolint:gosec // env var name, not a credential

	// DefaultAITimeout bounds a single suggestion request.
	DefaultAITimeout = 20 * time.Second

	// DefaultAIMaxRetries is the number of attempts for retryable failures.
	DefaultAIMaxRetries = 3

	// AIInitialBackoff is the delay before the first retry; it doubles per attempt.
	AIInitialBackoff = 1 * time.Second
)

// Log rotation settings for the CLI log file.
const (
	// LogMaxSizeMB is the size at which the log file is rotated.
	LogMaxSizeMB = 10

	// LogMaxBackups is the number of rotated files kept.
	LogMaxBackups = 3

	// LogMaxAgeDays is how long rotated files are kept.
	LogMaxAgeDays = 28

	// LogCompress enables gzip of rotated files.
	LogCompress = true
)
