//go:build linux

package killswitch

import (
	"fmt"

	"github.com/coreos/go-iptables/iptables"

	"github.com/user/app-blackhole/internal/logger"
)

// New creates a guard over iptables and, when available, ip6tables.
func New() (*Guard, error) {
	ipt4, err := iptables.NewWithProtocol(iptables.ProtocolIPv4)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize iptables: %w", err)
	}

	tables := []Tables{ipt4}
	if ipt6, err := iptables.NewWithProtocol(iptables.ProtocolIPv6); err != nil {
		logger.Warning("ip6tables unavailable, gap guard covers IPv4 only: %v", err)
	} else {
		tables = append(tables, ipt6)
	}

	return NewWith(tables...), nil
}
