package config

import (
	"fmt"
	"net/netip"
	"strings"
)

// Validate validates the configuration.
func (c *Config) Validate() error {
	if c.Version < 1 {
		return fmt.Errorf("invalid config version")
	}

	if err := c.Interface.Validate(); err != nil {
		return fmt.Errorf("interface config: %w", err)
	}

	if err := c.Routing.Validate(); err != nil {
		return fmt.Errorf("routing config: %w", err)
	}

	if c.Engine.EstablishTimeout < 0 {
		return fmt.Errorf("engine config: establish_timeout cannot be negative")
	}

	for id := range c.Apps {
		if strings.TrimSpace(id) == "" {
			return fmt.Errorf("apps: empty application id")
		}
	}

	if c.SettingsPath == "" {
		return fmt.Errorf("settings_path is required")
	}

	return nil
}

// Validate validates interface configuration.
func (i *Interface) Validate() error {
	if i.Name == "" {
		return fmt.Errorf("name is required")
	}
	if len(i.Name) > 15 {
		return fmt.Errorf("name %q is longer than 15 characters", i.Name)
	}
	if i.MTU < 576 || i.MTU > 65535 {
		return fmt.Errorf("mtu must be between 576 and 65535")
	}
	addr, err := netip.ParsePrefix(i.Address)
	if err != nil {
		return fmt.Errorf("invalid address %q: %w", i.Address, err)
	}
	if !addr.Addr().Is4() {
		return fmt.Errorf("address %q must be IPv4", i.Address)
	}
	if len(i.Routes) == 0 {
		return fmt.Errorf("at least one route is required")
	}
	for _, r := range i.Routes {
		if _, err := netip.ParsePrefix(r); err != nil {
			return fmt.Errorf("invalid route %q: %w", r, err)
		}
	}
	return nil
}

// Validate validates routing configuration.
func (r *Routing) Validate() error {
	if r.Table <= 0 || r.Table == 253 || r.Table == 254 || r.Table == 255 {
		return fmt.Errorf("table must be positive and not a reserved table")
	}
	if r.ProtectMark == 0 {
		return fmt.Errorf("protect_mark is required")
	}
	if r.RulePriority <= 0 || r.ProtectPriority <= 0 {
		return fmt.Errorf("rule priorities must be positive")
	}
	if r.ProtectPriority >= r.RulePriority {
		return fmt.Errorf("protect_priority must be lower than rule_priority")
	}
	return nil
}
