// Package config handles blocker configuration loading, saving, and validation.
package config

// Config represents the main configuration structure.
type Config struct {
	Version      int               `yaml:"version"`
	Interface    Interface         `yaml:"interface"`
	Routing      Routing           `yaml:"routing"`
	Engine       Engine            `yaml:"engine"`
	Apps         map[string]uint32 `yaml:"apps,omitempty"` // app id -> uid overrides
	SettingsPath string            `yaml:"settings_path"`
	LogDir       string            `yaml:"log_dir,omitempty"`
	Metrics      Metrics           `yaml:"metrics"`
	Tray         bool              `yaml:"tray"`
}

// Interface configuration for the black-hole adapter.
type Interface struct {
	Name    string   `yaml:"name"`
	MTU     int      `yaml:"mtu"`
	Address string   `yaml:"address"` // CIDR notation, e.g. "192.168.0.0/24"
	Routes  []string `yaml:"routes"`  // sent into the interface, e.g. "0.0.0.0/0"
}

// Routing configuration for policy rules.
type Routing struct {
	Table           int    `yaml:"table"`
	RulePriority    int    `yaml:"rule_priority"`
	ProtectMark     uint32 `yaml:"protect_mark"`
	ProtectPriority int    `yaml:"protect_priority"` // must sort before rule_priority
}

// Engine tunes the supervisor.
type Engine struct {
	EstablishTimeout int  `yaml:"establish_timeout"` // seconds, 0 = wait forever
	GapGuard         bool `yaml:"gap_guard"`
}

// Metrics configuration.
type Metrics struct {
	Listen string `yaml:"listen,omitempty"` // e.g. "127.0.0.1:9464", empty disables
}

// DefaultConfig returns a default configuration.
func DefaultConfig() *Config {
	return &Config{
		Version: 1,
		Interface: Interface{
			Name:    defaultInterfaceName(),
			MTU:     1500,
			Address: "192.168.0.0/24",
			Routes:  []string{"0.0.0.0/0", "::/0"},
		},
		Routing: Routing{
			Table:           4242,
			RulePriority:    5200,
			ProtectMark:     0x4242,
			ProtectPriority: 5100,
		},
		Engine: Engine{
			EstablishTimeout: 30,
			GapGuard:         false,
		},
		Apps:         map[string]uint32{},
		SettingsPath: defaultSettingsPath(),
	}
}
