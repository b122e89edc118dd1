package config

import (
	"os"
	"path/filepath"

	"github.com/mrz1836/taskclock/internal/constants"
	"github.com/mrz1836/taskclock/internal/errors"
)

// GlobalConfigDir returns the taskclock home directory: $TASKCLOCK_HOME when
// set, otherwise ~/.taskclock.
//
// Returns an error if the home directory cannot be determined.
func GlobalConfigDir() (string, error) {
	if home := os.Getenv(constants.EnvHome); home != "" {
		return home, nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", errors.Wrap(err, "failed to get home directory")
	}
	return filepath.Join(home, constants.AppHome), nil
}

// GlobalConfigPath returns the full path to the global configuration file.
func GlobalConfigPath() (string, error) {
	dir, err := GlobalConfigDir()
	if err != nil {
		return "", errors.Wrap(err, "get global config path")
	}
	return filepath.Join(dir, constants.GlobalConfigName), nil
}

// ProjectConfigPath returns the project configuration file, relative to the
// working directory.
func ProjectConfigPath() string {
	return constants.ProjectConfigName
}
