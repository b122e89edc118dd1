// Package config provides configuration management for taskclock with layered precedence.
//
// Configuration sources are loaded in the following order (highest precedence first):
//  1. CLI flags (passed via LoadWithOverrides)
//  2. Environment variables (TASKCLOCK_* prefix)
//  3. Project config (.taskclock.yaml in the working directory)
//  4. Global config (~/.taskclock/config.yaml)
//  5. Built-in defaults
//
// Each higher level completely overrides the lower level for the same key.
//
// IMPORTANT: This package may import internal/constants and internal/errors,
// but MUST NOT import internal/domain or other internal packages.
package config

import "time"

// Config is the root configuration structure for taskclock.
type Config struct {
	// Server contains the HTTP listener settings.
	Server ServerConfig `yaml:"server" json:"server" mapstructure:"server"`

	// Store contains settings for the task document.
	Store StoreConfig `yaml:"store" json:"store" mapstructure:"store"`

	// Timer contains countdown settings.
	Timer TimerConfig `yaml:"timer" json:"timer" mapstructure:"timer"`

	// Board contains settings for the serial completion-rate display.
	Board BoardConfig `yaml:"board" json:"board" mapstructure:"board"`

	// AI contains settings for the duration suggestion service.
	AI AIConfig `yaml:"ai" json:"ai" mapstructure:"ai"`
}

// ServerConfig contains HTTP server settings.
type ServerConfig struct {
	// Address is the host:port to listen on.
	// Default: "0.0.0.0:8080"
	Address string `yaml:"address" json:"address" mapstructure:"address"`

	// ShutdownTimeout bounds graceful shutdown of in-flight requests and countdowns.
	// Default: 10 seconds
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout" json:"shutdown_timeout" mapstructure:"shutdown_timeout"`
}

// StoreConfig contains task document settings.
type StoreConfig struct {
	// Path is the task document location. Empty means ~/.taskclock/tasks.json
	// (or $TASKCLOCK_HOME/tasks.json).
	Path string `yaml:"path" json:"path" mapstructure:"path"`

	// LockTimeout is how long a load or save waits for the file lock.
	// Default: 5 seconds
	LockTimeout time.Duration `yaml:"lock_timeout" json:"lock_timeout" mapstructure:"lock_timeout"`
}

// TimerConfig contains countdown settings.
type TimerConfig struct {
	// TickInterval is the pause between two decrements of a running countdown.
	// Default: 1 second
	TickInterval time.Duration `yaml:"tick_interval" json:"tick_interval" mapstructure:"tick_interval"`
}

// BoardConfig contains serial display settings.
type BoardConfig struct {
	// Enabled turns completion-rate notifications on.
	// Default: false
	Enabled bool `yaml:"enabled" json:"enabled" mapstructure:"enabled"`

	// Port is the serial device name, e.g. "COM6" or "/dev/ttyUSB0".
	Port string `yaml:"port" json:"port" mapstructure:"port"`

	// BaudRate of the serial link.
	// Default: 9600
	BaudRate int `yaml:"baud_rate" json:"baud_rate" mapstructure:"baud_rate"`

	// ReadTimeout bounds the wait for the board's acknowledgement.
	ReadTimeout time.Duration `yaml:"read_timeout" json:"read_timeout" mapstructure:"read_timeout"`

	// SettleDelay is the pause between opening the port and writing.
	SettleDelay time.Duration `yaml:"settle_delay" json:"settle_delay" mapstructure:"settle_delay"`

	// Retries is the number of attempts per notification.
	Retries int `yaml:"retries" json:"retries" mapstructure:"retries"`

	// RetryDelay is the pause between attempts.
	RetryDelay time.Duration `yaml:"retry_delay" json:"retry_delay" mapstructure:"retry_delay"`
}

// AIConfig contains duration suggestion settings.
type AIConfig struct {
	// Enabled turns suggestions on. Without an API key suggestions stay off.
	// Default: true
	Enabled bool `yaml:"enabled" json:"enabled" mapstructure:"enabled"`

	// BaseURL of an OpenAI-compatible API.
	BaseURL string `yaml:"base_url" json:"base_url" mapstructure:"base_url"`

	// Model name sent with each request.
	Model string `yaml:"model" json:"model" mapstructure:"model"`

	// APIKeyEnvVar names the environment variable holding the API key.
	// The key itself is never read from config files.
	APIKeyEnvVar string `yaml:"api_key_env_var" json:"api_key_env_var" mapstructure:"api_key_env_var"`

	// Timeout bounds a single request.
	Timeout time.Duration `yaml:"timeout" json:"timeout" mapstructure:"timeout"`

	// MaxRetries is the number of attempts for rate-limited or failed requests.
	MaxRetries int `yaml:"max_retries" json:"max_retries" mapstructure:"max_retries"`
}
