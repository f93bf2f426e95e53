package config

import (
	"os"
	"path/filepath"
	"strings"

	"github.com/adrg/xdg"
)

const appName = "bblaunch"

// DefaultConfigDir returns $XDG_CONFIG_HOME/bblaunch
func DefaultConfigDir() string {
	return filepath.Join(xdg.ConfigHome, appName)
}

// DefaultDataDir returns $XDG_DATA_HOME/bblaunch
func DefaultDataDir() string {
	return filepath.Join(xdg.DataHome, appName)
}

// DefaultDBPath returns the activation journal location inside dataDir
func DefaultDBPath(dataDir string) string {
	return filepath.Join(dataDir, "bblaunch.db")
}

// ExpandPath replaces a leading ~ with the user's home directory
func ExpandPath(path string) string {
	if path != "~" && !strings.HasPrefix(path, "~/") {
		return path
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return path
	}
	return filepath.Join(home, strings.TrimPrefix(path, "~"))
}
