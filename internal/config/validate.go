package config

import (
	"net/url"
	"time"

	"github.com/mrz1836/taskclock/internal/errors"
)

const (
	minTickInterval = time.Millisecond
	maxTickInterval = time.Hour
	maxRetries      = 10
)

// Validate checks the configuration for invalid or inconsistent values.
// It returns an error describing the first validation failure found.
//
// Board and AI settings are only checked when the feature is enabled.
func Validate(cfg *Config) error {
	if cfg == nil {
		return errors.ErrConfigNil
	}

	if err := validateServerConfig(&cfg.Server); err != nil {
		return err
	}
	if err := validateStoreConfig(&cfg.Store); err != nil {
		return err
	}
	if err := validateTimerConfig(&cfg.Timer); err != nil {
		return err
	}
	if err := validateBoardConfig(&cfg.Board); err != nil {
		return err
	}
	return validateAIConfig(&cfg.AI)
}

func validateServerConfig(cfg *ServerConfig) error {
	if cfg.Address == "" {
		return errors.Wrap(errors.ErrConfigInvalidServer, "server.address must not be empty")
	}
	if cfg.ShutdownTimeout <= 0 {
		return errors.Wrapf(errors.ErrConfigInvalidServer,
			"server.shutdown_timeout must be positive, got %s", cfg.ShutdownTimeout)
	}
	return nil
}

func validateStoreConfig(cfg *StoreConfig) error {
	if cfg.LockTimeout <= 0 {
		return errors.Wrapf(errors.ErrConfigInvalidStore,
			"store.lock_timeout must be positive, got %s", cfg.LockTimeout)
	}
	return nil
}

func validateTimerConfig(cfg *TimerConfig) error {
	if cfg.TickInterval < minTickInterval || cfg.TickInterval > maxTickInterval {
		return errors.Wrapf(errors.ErrConfigInvalidTimer,
			"timer.tick_interval must be between %s and %s, got %s",
			minTickInterval, maxTickInterval, cfg.TickInterval)
	}
	return nil
}

func validateBoardConfig(cfg *BoardConfig) error {
	if !cfg.Enabled {
		return nil
	}
	if cfg.Port == "" {
		return errors.Wrap(errors.ErrConfigInvalidBoard, "board.port must not be empty")
	}
	if cfg.BaudRate <= 0 {
		return errors.Wrapf(errors.ErrConfigInvalidBoard,
			"board.baud_rate must be positive, got %d", cfg.BaudRate)
	}
	if cfg.ReadTimeout <= 0 {
		return errors.Wrapf(errors.ErrConfigInvalidBoard,
			"board.read_timeout must be positive, got %s", cfg.ReadTimeout)
	}
	if cfg.SettleDelay < 0 || cfg.RetryDelay < 0 {
		return errors.Wrap(errors.ErrConfigInvalidBoard, "board delays cannot be negative")
	}
	if cfg.Retries < 1 || cfg.Retries > maxRetries {
		return errors.Wrapf(errors.ErrConfigInvalidBoard,
			"board.retries must be between 1 and %d, got %d", maxRetries, cfg.Retries)
	}
	return nil
}

func validateAIConfig(cfg *AIConfig) error {
	if !cfg.Enabled {
		return nil
	}
	u, err := url.Parse(cfg.BaseURL)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return errors.Wrapf(errors.ErrConfigInvalidAI,
			"ai.base_url must be an http(s) URL, got %q", cfg.BaseURL)
	}
	if cfg.Model == "" {
		return errors.Wrap(errors.ErrConfigInvalidAI, "ai.model must not be empty")
	}
	if cfg.APIKeyEnvVar == "" {
		return errors.Wrap(errors.ErrConfigInvalidAI, "ai.api_key_env_var must not be empty")
	}
	if cfg.Timeout <= 0 {
		return errors.Wrapf(errors.ErrConfigInvalidAI,
			"ai.timeout must be positive, got %s", cfg.Timeout)
	}
	if cfg.MaxRetries < 1 || cfg.MaxRetries > maxRetries {
		return errors.Wrapf(errors.ErrConfigInvalidAI,
			"ai.max_retries must be between 1 and %d, got %d", maxRetries, cfg.MaxRetries)
	}
	return nil
}
