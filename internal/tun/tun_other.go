//go:build !linux

package tun

import (
	"errors"
	"net/netip"
)

var errUnsupported = errors.New("black-hole interfaces are only supported on Linux")

func linkIndex(string) (int, error)            { return 0, errUnsupported }
func assignAddress(string, netip.Prefix) error { return errUnsupported }
func setLinkUp(string) error                   { return errUnsupported }
func setLinkDown(string)                       {}
