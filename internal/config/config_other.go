//go:build !linux

package config

import (
	"os"
	"path/filepath"
)

// GetConfigPath returns the configuration path in the user config dir.
func GetConfigPath() string {
	dir, err := os.UserConfigDir()
	if err != nil {
		return "config.yaml"
	}
	return filepath.Join(dir, "app-blackhole", "config.yaml")
}

func defaultInterfaceName() string {
	return "utun"
}

func defaultSettingsPath() string {
	return filepath.Join(filepath.Dir(GetConfigPath()), "blocked.yaml")
}
