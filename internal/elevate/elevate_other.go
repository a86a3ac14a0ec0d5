//go:build !linux

package elevate

import "errors"

// IsPrivileged is always false off Linux.
func IsPrivileged() bool {
	return false
}

// RunAsAdmin is not supported off Linux.
func RunAsAdmin() error {
	return errors.New("privilege elevation is only supported on Linux")
}
