//go:build !linux

package killswitch

import "errors"

// New is only supported on Linux.
func New() (*Guard, error) {
	return nil, errors.New("gap guard is only supported on Linux")
}
