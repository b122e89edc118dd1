package config

import (
	"github.com/mrz1836/taskclock/internal/constants"
)

// DefaultConfig returns a new Config with the built-in default values.
// These are the base layer that config files, environment variables and
// CLI flags override.
func DefaultConfig() *Config {
	return &Config{
		Server: ServerConfig{
			Address:         constants.DefaultServerAddress,
			ShutdownTimeout: constants.DefaultShutdownTimeout,
		},
		Store: StoreConfig{
			// Path: empty resolves to the taskclock home directory.
			Path:        "",
			LockTimeout: constants.DefaultLockTimeout,
		},
		Timer: TimerConfig{
			TickInterval: constants.DefaultTickInterval,
		},
		Board: BoardConfig{
			// Enabled: off by default; most machines have no board attached.
			Enabled:     false,
			Port:        constants.DefaultBoardPort,
			BaudRate:    constants.DefaultBoardBaudRate,
			ReadTimeout: constants.DefaultBoardReadTimeout,
			SettleDelay: constants.DefaultBoardSettleDelay,
			Retries:     constants.DefaultBoardRetries,
			RetryDelay:  constants.DefaultBoardRetryDelay,
		},
		AI: AIConfig{
			Enabled:      true,
			BaseURL:      constants.DefaultAIBaseURL,
			Model:        constants.DefaultAIModel,
			APIKeyEnvVar: constants.DefaultAIAPIKeyEnvVar,
			Timeout:      constants.DefaultAITimeout,
			MaxRetries:   constants.DefaultAIMaxRetries,
		},
	}
}
