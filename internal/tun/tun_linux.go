//go:build linux

package tun

import (
	"fmt"
	"net/netip"

	"github.com/vishvananda/netlink"
)

func linkIndex(name string) (int, error) {
	link, err := netlink.LinkByName(name)
	if err != nil {
		return 0, fmt.Errorf("failed to find link %s: %w", name, err)
	}
	return link.Attrs().Index, nil
}

// assignAddress assigns an address block to the link (Linux).
func assignAddress(name string, prefix netip.Prefix) error {
	link, err := netlink.LinkByName(name)
	if err != nil {
		return fmt.Errorf("failed to find link %s: %w", name, err)
	}
	addr, err := netlink.ParseAddr(prefix.String())
	if err != nil {
		return fmt.Errorf("failed to parse address: %w", err)
	}
	if err := netlink.AddrAdd(link, addr); err != nil {
		return fmt.Errorf("failed to set IP address: %w", err)
	}
	return nil
}

// setLinkUp brings the link up (Linux).
func setLinkUp(name string) error {
	link, err := netlink.LinkByName(name)
	if err != nil {
		return fmt.Errorf("failed to find link %s: %w", name, err)
	}
	if err := netlink.LinkSetUp(link); err != nil {
		return fmt.Errorf("failed to bring interface up: %w", err)
	}
	return nil
}

// setLinkDown brings the link down (Linux). Errors are ignored: the device
// is about to be destroyed anyway.
func setLinkDown(name string) {
	link, err := netlink.LinkByName(name)
	if err != nil {
		return
	}
	netlink.LinkSetDown(link)
}
