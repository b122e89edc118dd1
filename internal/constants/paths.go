package constants

// Directory names used by taskclock.
const (
	// AppHome is the hidden directory in the user's home where taskclock keeps its data.
	AppHome = ".taskclock"

	// LogsDir is the directory name where log files are stored.
	LogsDir = "logs"
)

// File names.
const (
	// TasksFileName is the JSON document holding the whole task collection.
	TasksFileName = "tasks.json"

	// LockSuffix is appended to the tasks file path to form its lock file.
	LockSuffix = ".lock"

	// TempSuffix is appended to the tasks file path for atomic writes.
	TempSuffix = ".tmp"

	// CLILogFileName is the name of the rotating log file in ~/.taskclock/logs.
	CLILogFileName = "taskclock.log"

	// GlobalConfigName is the name of the global configuration file in AppHome.
	GlobalConfigName = "config.yaml"

	// ProjectConfigName is the name of the per-directory configuration file.
	ProjectConfigName = ".taskclock.yaml"
)

// EnvPrefix is the prefix for environment variable overrides (TASKCLOCK_*).
const EnvPrefix = "TASKCLOCK"

// EnvHome overrides the AppHome location when set.
const EnvHome = "TASKCLOCK_HOME"
