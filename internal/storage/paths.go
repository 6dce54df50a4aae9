package storage

import (
	"os"
	"path/filepath"
)

// PathManager resolves the on-disk locations used by RepairForge.
type PathManager struct {
	homeDir string
	dataDir string
}

// NewPathManager creates a path manager rooted at ~/.repairforge, or at the
// current directory when no home directory is available.
func NewPathManager() *PathManager {
	homeDir, err := os.UserHomeDir()
	if err != nil {
		homeDir = "."
	}
	return &PathManager{
		homeDir: homeDir,
		dataDir: filepath.Join(homeDir, ".repairforge"),
	}
}

// NewPathManagerAt roots every path at dir.
func NewPathManagerAt(dir string) *PathManager {
	return &PathManager{homeDir: dir, dataDir: dir}
}

// GetDataDir returns the data directory, creating it if needed.
func (pm *PathManager) GetDataDir() (string, error) {
	if err := os.MkdirAll(pm.dataDir, 0755); err != nil {
		return "", err
	}
	return pm.dataDir, nil
}

// GetDatabasePath returns the path of the key-value database.
func (pm *PathManager) GetDatabasePath() (string, error) {
	return pm.join("repairforge.db")
}

// GetPreferencesPath returns the path of the TOML preferences file.
func (pm *PathManager) GetPreferencesPath() (string, error) {
	return pm.join("preferences.toml")
}

// GetLogsDir returns the directory for log files.
func (pm *PathManager) GetLogsDir() (string, error) {
	dir, err := pm.join("logs")
	if err != nil {
		return "", err
	}
	if err := os.MkdirAll(dir, 0755); err != nil {
		return "", err
	}
	return dir, nil
}

func (pm *PathManager) join(name string) (string, error) {
	dir, err := pm.GetDataDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, name), nil
}

// DefaultPathManager is a global instance for convenience
var DefaultPathManager = NewPathManager()
