package config

import (
	"context"
	stderrors "errors"
	"os"
	"strings"

	"github.com/go-viper/mapstructure/v2"
	"github.com/rs/zerolog"
	"github.com/spf13/viper"

	"github.com/mrz1836/taskclock/internal/constants"
	"github.com/mrz1836/taskclock/internal/errors"
)

// newViperInstance creates a new Viper instance with the taskclock environment
// prefix (TASKCLOCK_), key replacer and defaults.
func newViperInstance() *viper.Viper {
	v := viper.New()
	setDefaults(v)
	v.SetEnvPrefix(constants.EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	return v
}

// isConfigNotFoundError returns true if the error is a viper config file not found error.
func isConfigNotFoundError(err error) bool {
	if err == nil {
		return false
	}
	var configNotFoundErr viper.ConfigFileNotFoundError
	return stderrors.As(err, &configNotFoundErr)
}

// unmarshalAndValidate unmarshals viper config into Config struct and validates it.
func unmarshalAndValidate(v *viper.Viper) (*Config, error) {
	var cfg Config
	if err := v.Unmarshal(&cfg, viperDecoderOption()); err != nil {
		return nil, errors.Wrap(err, "failed to unmarshal config")
	}
	if err := Validate(&cfg); err != nil {
		return nil, errors.Wrap(err, "invalid configuration")
	}
	return &cfg, nil
}

// Load reads configuration from all available sources with proper precedence.
// Configuration is loaded in the following order (highest precedence first):
//  1. Environment variables (TASKCLOCK_* prefix)
//  2. Project config (.taskclock.yaml)
//  3. Global config (~/.taskclock/config.yaml)
//  4. Built-in defaults
//
// Missing config files are not an error.
func Load(ctx context.Context) (*Config, error) {
	v := newViperInstance()

	if err := loadGlobalConfig(v); err != nil {
		return nil, err
	}
	if err := loadProjectConfig(v); err != nil {
		return nil, err
	}

	cfg, err := unmarshalAndValidate(v)
	if err != nil {
		return nil, err
	}

	logger := zerolog.Ctx(ctx).With().Str("component", "config").Logger()
	logger.Debug().
		Str("server.address", cfg.Server.Address).
		Str("store.path", cfg.Store.Path).
		Dur("timer.tick_interval", cfg.Timer.TickInterval).
		Bool("board.enabled", cfg.Board.Enabled).
		Bool("ai.enabled", cfg.AI.Enabled).
		Msg("configuration loaded")

	return cfg, nil
}

// loadGlobalConfig reads the global config file if it exists.
func loadGlobalConfig(v *viper.Viper) error {
	path, err := GlobalConfigPath()
	if err != nil || !fileExists(path) {
		return nil //nolint:nilerr // no home directory means no global config
	}

	v.SetConfigFile(path)
	if err := v.ReadInConfig(); err != nil && !isConfigNotFoundError(err) {
		return errors.Wrap(err, "failed to read global config file")
	}
	return nil
}

// loadProjectConfig merges the project config file over the global one if it exists.
func loadProjectConfig(v *viper.Viper) error {
	path := ProjectConfigPath()
	if !fileExists(path) {
		return nil
	}

	v.SetConfigFile(path)
	if err := v.MergeInConfig(); err != nil && !isConfigNotFoundError(err) {
		return errors.Wrap(err, "failed to read project config file")
	}
	return nil
}

// fileExists returns true if the file at path exists.
func fileExists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}

// LoadWithOverrides loads configuration and applies CLI flag overrides.
// Only non-zero values in overrides are applied.
func LoadWithOverrides(ctx context.Context, overrides *Config) (*Config, error) {
	cfg, err := Load(ctx)
	if err != nil {
		return nil, err
	}

	if overrides != nil {
		applyOverrides(cfg, overrides)
	}

	if err := Validate(cfg); err != nil {
		return nil, errors.Wrap(err, "invalid configuration after overrides")
	}
	return cfg, nil
}

// LoadFromPaths loads configuration from specific file paths.
// projectConfigPath takes precedence over globalConfigPath; either may be
// empty to skip that level.
func LoadFromPaths(_ context.Context, projectConfigPath, globalConfigPath string) (*Config, error) {
	v := newViperInstance()

	if globalConfigPath != "" {
		v.SetConfigFile(globalConfigPath)
		if err := v.ReadInConfig(); err != nil && !isConfigNotFoundError(err) && !os.IsNotExist(err) {
			return nil, errors.Wrapf(err, "failed to read global config: %s", globalConfigPath)
		}
	}

	if projectConfigPath != "" {
		v.SetConfigFile(projectConfigPath)
		if err := v.MergeInConfig(); err != nil && !isConfigNotFoundError(err) && !os.IsNotExist(err) {
			return nil, errors.Wrapf(err, "failed to read project config: %s", projectConfigPath)
		}
	}

	return unmarshalAndValidate(v)
}

// setDefaults configures all default values on the Viper instance.
// Keys must match the mapstructure tag names exactly.
func setDefaults(v *viper.Viper) {
	d := DefaultConfig()

	v.SetDefault("server.address", d.Server.Address)
	v.SetDefault("server.shutdown_timeout", d.Server.ShutdownTimeout.String())

	v.SetDefault("store.path", d.Store.Path)
	v.SetDefault("store.lock_timeout", d.Store.LockTimeout.String())

	v.SetDefault("timer.tick_interval", d.Timer.TickInterval.String())

	v.SetDefault("board.enabled", d.Board.Enabled)
	v.SetDefault("board.port", d.Board.Port)
	v.SetDefault("board.baud_rate", d.Board.BaudRate)
	v.SetDefault("board.read_timeout", d.Board.ReadTimeout.String())
	v.SetDefault("board.settle_delay", d.Board.SettleDelay.String())
	v.SetDefault("board.retries", d.Board.Retries)
	v.SetDefault("board.retry_delay", d.Board.RetryDelay.String())

	v.SetDefault("ai.enabled", d.AI.Enabled)
	v.SetDefault("ai.base_url", d.AI.BaseURL)
	v.SetDefault("ai.model", d.AI.Model)
	v.SetDefault("ai.api_key_env_var", d.AI.APIKeyEnvVar)
	v.SetDefault("ai.timeout", d.AI.Timeout.String())
	v.SetDefault("ai.max_retries", d.AI.MaxRetries)
}

// applyOverrides merges non-zero override values into the config.
// Boolean fields cannot be overridden to false this way; CLI commands handle
// those with cmd.Flags().Changed.
func applyOverrides(cfg, overrides *Config) {
	if overrides.Server.Address != "" {
		cfg.Server.Address = overrides.Server.Address
	}
	if overrides.Server.ShutdownTimeout != 0 {
		cfg.Server.ShutdownTimeout = overrides.Server.ShutdownTimeout
	}
	if overrides.Store.Path != "" {
		cfg.Store.Path = overrides.Store.Path
	}
	if overrides.Timer.TickInterval != 0 {
		cfg.Timer.TickInterval = overrides.Timer.TickInterval
	}
	if overrides.Board.Port != "" {
		cfg.Board.Port = overrides.Board.Port
	}
}

// viperDecoderOption configures mapstructure to decode durations from strings.
func viperDecoderOption() viper.DecoderConfigOption {
	return viper.DecodeHook(
		mapstructure.ComposeDecodeHookFunc(
			mapstructure.StringToTimeDurationHookFunc(),
		),
	)
}
