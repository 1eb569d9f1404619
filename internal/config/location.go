package config

import (
	"os"
	"path/filepath"
)

// EnvConfigPath overrides the config file location.
const EnvConfigPath = "BOTCORE_CONFIG"

// GetConfigPath returns the configuration file path: $BOTCORE_CONFIG if set
// and non-empty, otherwise ~/.botcore/config.
func GetConfigPath() (string, error) {
	if configPath := os.Getenv(EnvConfigPath); configPath != "" {
		return configPath, nil
	}

	homeDir, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(homeDir, ".botcore", "config"), nil
}

// EnsureConfigDir ensures that the directory holding the config file at
// configPath exists.
func EnsureConfigDir(configPath string) error {
	return os.MkdirAll(filepath.Dir(configPath), 0755)
}
