//go:build !linux

package connmon

import "errors"

// List is only supported on Linux.
func List() ([]Connection, error) {
	return nil, errors.New("connection listing is only supported on Linux")
}
