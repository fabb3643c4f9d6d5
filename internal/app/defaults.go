package app

import (
	"fmt"
	"os"
	"path/filepath"

	"negma/internal/config"
	"negma/internal/database"
	"negma/internal/marker"
)

// GetDefaults returns negma's default paths, checking environment variables first.
// Environment variables:
//   - NEGMA_HOME: config root holding config, marker, history and logs (default: ~/.config/negma)
//   - NEGMA_CONFIG_PATH: config file location (default: <root>/config.cfg)
func GetDefaults() (map[string]string, error) {
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return nil, fmt.Errorf("cannot determine home directory: %w", err)
	}

	rootDir := getRootDir(homeDir)

	return map[string]string{
		"home_dir":     homeDir,
		"root_dir":     rootDir,
		"config_path":  getConfigPath(rootDir),
		"log_dir":      filepath.Join(rootDir, "log"),
		"marker_path":  filepath.Join(rootDir, marker.FileName),
		"history_path": filepath.Join(rootDir, database.FileName),
	}, nil
}

// getRootDir returns the config root, checking NEGMA_HOME first.
func getRootDir(homeDir string) string {
	if path := os.Getenv("NEGMA_HOME"); path != "" {
		return path
	}
	return filepath.Join(homeDir, ".config", "negma")
}

// getConfigPath returns the config file path, checking NEGMA_CONFIG_PATH first.
func getConfigPath(rootDir string) string {
	if path := os.Getenv("NEGMA_CONFIG_PATH"); path != "" {
		return path
	}
	return filepath.Join(rootDir, config.FileName)
}
