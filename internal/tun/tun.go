// Package tun manages the black-hole TUN interface. The device is created
// and configured but never read from or written to: packets routed into it
// queue in the kernel and are dropped.
package tun

import (
	"fmt"
	"net/netip"
	"sync"

	"golang.zx2c4.com/wireguard/tun"
)

// Interface is one black-hole TUN device.
type Interface struct {
	mu      sync.Mutex
	name    string
	device  tun.Device
	index   int
	address netip.Prefix
	mtu     int
	isUp    bool
	closed  bool
}

// Config represents TUN interface configuration.
type Config struct {
	Name string
	MTU  int
}

// New creates a new, not yet created, interface.
func New(cfg *Config) *Interface {
	name := cfg.Name
	if name == "" {
		name = "blackhole0"
	}
	mtu := cfg.MTU
	if mtu == 0 {
		mtu = 1500
	}

	return &Interface{
		name: name,
		mtu:  mtu,
	}
}

// Create creates the TUN device.
func (i *Interface) Create() error {
	i.mu.Lock()
	defer i.mu.Unlock()

	if i.closed {
		return fmt.Errorf("interface %s already closed", i.name)
	}
	if i.device != nil {
		return fmt.Errorf("interface %s already created", i.name)
	}

	device, err := tun.CreateTUN(i.name, i.mtu)
	if err != nil {
		return fmt.Errorf("failed to create TUN device: %w", err)
	}
	i.device = device

	if realName, err := device.Name(); err == nil {
		i.name = realName
	}

	index, err := linkIndex(i.name)
	if err != nil {
		device.Close()
		i.device = nil
		return err
	}
	i.index = index

	return nil
}

// Configure assigns the address block to the interface.
func (i *Interface) Configure(address netip.Prefix) error {
	i.mu.Lock()
	defer i.mu.Unlock()

	if i.device == nil {
		return fmt.Errorf("interface not created")
	}

	if err := assignAddress(i.name, address); err != nil {
		return err
	}
	i.address = address
	return nil
}

// Up brings the interface up.
func (i *Interface) Up() error {
	i.mu.Lock()
	defer i.mu.Unlock()

	if i.device == nil {
		return fmt.Errorf("interface not created")
	}

	if err := setLinkUp(i.name); err != nil {
		return err
	}
	i.isUp = true
	return nil
}

// Close destroys the device. Closing twice is a no-op.
func (i *Interface) Close() error {
	i.mu.Lock()
	defer i.mu.Unlock()

	if i.closed {
		return nil
	}
	i.closed = true

	if i.isUp {
		setLinkDown(i.name)
		i.isUp = false
	}

	if i.device != nil {
		err := i.device.Close()
		i.device = nil
		if err != nil {
			return fmt.Errorf("failed to close TUN device: %w", err)
		}
	}

	return nil
}

// Name returns the interface name.
func (i *Interface) Name() string {
	i.mu.Lock()
	defer i.mu.Unlock()
	return i.name
}

// Index returns the kernel link index.
func (i *Interface) Index() int {
	i.mu.Lock()
	defer i.mu.Unlock()
	return i.index
}
