//go:build !linux

package platform

import "errors"

func setSocketMark(int, uint32) error {
	return errors.New("socket marks are only supported on Linux")
}
