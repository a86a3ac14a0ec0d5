//go:build linux

package logger

import (
	"os"
	"path/filepath"
)

// getLogDir returns /var/log/app-blackhole when running as root, otherwise
// the directory next to the executable.
func getLogDir() string {
	if os.Geteuid() == 0 {
		return "/var/log/app-blackhole"
	}
	exe, err := os.Executable()
	if err != nil {
		return "."
	}
	return filepath.Dir(exe)
}
