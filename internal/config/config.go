package config

import (
	"os"
	"path/filepath"
	"strings"
)

const (
	envDataDir       = "QUANTQUERY_DATA_DIR"
	envStaticBaseURL = "QUANTQUERY_STATIC_BASE_URL"

	defaultDBName = "quantquery.db"
)

var runtimeDataDir string
var runtimePort = 8000

// SetRuntimeDataDir overrides the data directory for this process.
func SetRuntimeDataDir(dir string) {
	runtimeDataDir = dir
}

// SetRuntimePort overrides the HTTP port for this process.
func SetRuntimePort(port int) {
	if port > 0 {
		runtimePort = port
	}
}

// GetRuntimePort returns the configured HTTP port.
func GetRuntimePort() int {
	return runtimePort
}

// GetDataDir resolves the data directory: runtime flag, then environment,
// then a per-user config location.
func GetDataDir() (string, error) {
	if runtimeDataDir != "" {
		return runtimeDataDir, nil
	}
	if dir := strings.TrimSpace(os.Getenv(envDataDir)); dir != "" {
		return dir, nil
	}
	configDir, err := os.UserConfigDir()
	if err != nil {
		home, homeErr := os.UserHomeDir()
		if homeErr != nil {
			return "", homeErr
		}
		return filepath.Join(home, ".config", "quantquery"), nil
	}
	return filepath.Join(configDir, "quantquery"), nil
}

// GetDBPath returns the sqlite database path inside the data directory.
func GetDBPath() (string, error) {
	dir, err := GetDataDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, defaultDBName), nil
}

// GetStaticDir returns the directory holding persisted chart files.
func GetStaticDir() (string, error) {
	dir, err := GetDataDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "static", "visuals"), nil
}

// GetStaticBaseURL returns the public prefix for chart URLs, empty when
// charts are served from this process.
func GetStaticBaseURL() string {
	return strings.TrimRight(strings.TrimSpace(os.Getenv(envStaticBaseURL)), "/")
}
