package app

import (
	"fmt"
	"os"
	"path/filepath"
)

// GetDefaults returns application default paths, checking environment variables first.
// Environment variables:
//   - USBB_CONFIG_PATH: config file location (default: ~/.config/usbb.toml)
//   - USBB_HOME: base directory for usbb data (default: ~/.local/share/usbb)
func GetDefaults() (map[string]string, error) {
	configPath, err := getConfigPath()
	if err != nil {
		return nil, err
	}

	baseDir, err := getBaseDir()
	if err != nil {
		return nil, err
	}

	return map[string]string{
		"config_path": configPath,
		"base_dir":    baseDir,
		"log_dir":     filepath.Join(baseDir, "log"),
		"db_dir":      filepath.Join(baseDir, "db"),
	}, nil
}

// getConfigPath returns the config file path, checking USBB_CONFIG_PATH env var first,
// then falling back to the default ~/.config/usbb.toml.
func getConfigPath() (string, error) {
	if path := os.Getenv("USBB_CONFIG_PATH"); path != "" {
		return path, nil
	}

	homeDir, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("cannot determine home directory: %w", err)
	}
	return filepath.Join(homeDir, ".config", "usbb.toml"), nil
}

// getBaseDir returns the base directory for usbb data (catalog and logs), checking
// USBB_HOME env var first, then falling back to the XDG default ~/.local/share/usbb.
func getBaseDir() (string, error) {
	if path := os.Getenv("USBB_HOME"); path != "" {
		return path, nil
	}

	homeDir, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("cannot determine home directory: %w", err)
	}
	return filepath.Join(homeDir, ".local", "share", "usbb"), nil
}
