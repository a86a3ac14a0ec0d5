package core

import (
	"fmt"
	"net/netip"
	"time"

	"github.com/user/app-blackhole/internal/config"
)

// OptionsFromConfig derives supervisor options from the loaded config.
// Guard, Metrics and Sockets are left for the caller to fill in.
func OptionsFromConfig(cfg *config.Config) (Options, error) {
	address, err := netip.ParsePrefix(cfg.Interface.Address)
	if err != nil {
		return Options{}, fmt.Errorf("interface address: %w", err)
	}
	routes := make([]netip.Prefix, 0, len(cfg.Interface.Routes))
	for _, r := range cfg.Interface.Routes {
		route, err := netip.ParsePrefix(r)
		if err != nil {
			return Options{}, fmt.Errorf("interface route: %w", err)
		}
		routes = append(routes, route)
	}

	return Options{
		Address:          address,
		Routes:           routes,
		EstablishTimeout: time.Duration(cfg.Engine.EstablishTimeout) * time.Second,
	}, nil
}
