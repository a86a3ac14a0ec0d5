//go:build !linux

package core

import "errors"

// OpenUDPSocket is only implemented on Linux.
func OpenUDPSocket() (ControlSocket, error) {
	return nil, errors.New("control sockets are not supported on this platform")
}
