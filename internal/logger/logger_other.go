//go:build !linux

package logger

import (
	"os"
	"path/filepath"
)

// getLogDir returns the per-user cache dir.
func getLogDir() string {
	dir, err := os.UserCacheDir()
	if err != nil {
		return "."
	}
	return filepath.Join(dir, "app-blackhole")
}
