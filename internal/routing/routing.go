// Package routing installs the policy rules that steer blocked
// applications into the black-hole table and keep protected sockets out of it.
package routing

import (
	"fmt"
	"net"
	"net/netip"
	"sort"
	"sync"

	"github.com/vishvananda/netlink"
)

// mainTable is the kernel's main routing table.
const mainTable = 254

// Netlink is the subset of netlink calls the manager makes.
type Netlink interface {
	RuleAdd(rule *netlink.Rule) error
	RuleDel(rule *netlink.Rule) error
	RuleList(family int) ([]netlink.Rule, error)
	RouteReplace(route *netlink.Route) error
	RouteDel(route *netlink.Route) error
}

// Config represents routing configuration.
type Config struct {
	Table           int
	RulePriority    int
	ProtectMark     uint32
	ProtectPriority int
}

// Manager tracks the rules and routes it installed so they can be removed.
type Manager struct {
	mu      sync.Mutex
	nl      Netlink
	cfg     Config
	rules   map[string]*netlink.Rule // key: "uid:<n>/<family>"
	routes  map[string]*netlink.Route
	protect *netlink.Rule
}

// NewManager creates a manager backed by the kernel.
func NewManager(cfg Config) *Manager {
	return NewManagerWith(systemNetlink{}, cfg)
}

// NewManagerWith creates a manager backed by nl.
func NewManagerWith(nl Netlink, cfg Config) *Manager {
	return &Manager{
		nl:     nl,
		cfg:    cfg,
		rules:  make(map[string]*netlink.Rule),
		routes: make(map[string]*netlink.Route),
	}
}

// EnsureProtectRule installs "fwmark <mark> lookup main" ahead of the
// per-uid rules so marked sockets bypass the black hole.
func (m *Manager) EnsureProtectRule() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.protect != nil {
		return nil
	}

	mask := uint32(0xffffffff)
	rule := netlink.NewRule()
	rule.Family = family4
	rule.Priority = m.cfg.ProtectPriority
	rule.Mark = m.cfg.ProtectMark
	rule.Mask = &mask
	rule.Table = mainTable

	existing, err := m.nl.RuleList(family4)
	if err != nil {
		return fmt.Errorf("failed to list rules: %w", err)
	}
	for _, r := range existing {
		if r.Priority == rule.Priority && r.Mark == rule.Mark && r.Table == rule.Table {
			m.protect = rule
			return nil
		}
	}

	if err := m.nl.RuleAdd(rule); err != nil {
		return fmt.Errorf("failed to add protect rule: %w", err)
	}
	m.protect = rule
	return nil
}

// ProtectMark returns the firewall mark protected sockets carry.
func (m *Manager) ProtectMark() uint32 {
	return m.cfg.ProtectMark
}

// AddDefaultRoute routes destination into the link inside the private table
// and remembers the address family so AddUIDRule covers it.
func (m *Manager) AddDefaultRoute(linkIndex int, destination netip.Prefix) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	destination = destination.Masked()
	key := destination.String()
	if _, exists := m.routes[key]; exists {
		return nil
	}

	route := &netlink.Route{
		LinkIndex: linkIndex,
		Dst:       prefixToIPNet(destination),
		Table:     m.cfg.Table,
		Scope:     scopeLink,
	}
	if err := m.nl.RouteReplace(route); err != nil {
		return fmt.Errorf("failed to add route %s: %w", key, err)
	}

	m.routes[key] = route
	return nil
}

// AddUIDRule sends all traffic of uid to the private table, once for every
// address family that has a route there.
func (m *Manager) AddUIDRule(uid uint32) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	for _, family := range m.familiesUnsafe() {
		key := fmt.Sprintf("uid:%d/%d", uid, family)
		if _, exists := m.rules[key]; exists {
			continue
		}

		rule := netlink.NewRule()
		rule.Family = family
		rule.Priority = m.cfg.RulePriority
		rule.Table = m.cfg.Table
		rule.UIDRange = netlink.NewRuleUIDRange(uid, uid)

		if err := m.nl.RuleAdd(rule); err != nil {
			return fmt.Errorf("failed to add rule for uid %d: %w", uid, err)
		}
		m.rules[key] = rule
	}
	return nil
}

func (m *Manager) familiesUnsafe() []int {
	var has4, has6 bool
	for _, route := range m.routes {
		if route.Dst.IP.To4() != nil {
			has4 = true
		} else {
			has6 = true
		}
	}
	var families []int
	if has4 {
		families = append(families, family4)
	}
	if has6 {
		families = append(families, family6)
	}
	return families
}

// uids returns the uids that currently have a rule, sorted.
func (m *Manager) uids() []uint32 {
	m.mu.Lock()
	defer m.mu.Unlock()

	seen := make(map[uint32]struct{}, len(m.rules))
	uids := make([]uint32, 0, len(m.rules))
	for _, r := range m.rules {
		if _, ok := seen[r.UIDRange.Start]; ok {
			continue
		}
		seen[r.UIDRange.Start] = struct{}{}
		uids = append(uids, r.UIDRange.Start)
	}
	sort.Slice(uids, func(i, j int) bool { return uids[i] < uids[j] })
	return uids
}

// RemoveAll removes the per-uid rules and routes added by this manager.
// The protect rule stays until Close.
func (m *Manager) RemoveAll() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	var firstErr error
	for key, rule := range m.rules {
		if err := m.nl.RuleDel(rule); err != nil && firstErr == nil {
			firstErr = fmt.Errorf("failed to delete rule %s: %w", key, err)
		}
	}
	for key, route := range m.routes {
		if err := m.nl.RouteDel(route); err != nil && firstErr == nil {
			firstErr = fmt.Errorf("failed to delete route %s: %w", key, err)
		}
	}

	m.rules = make(map[string]*netlink.Rule)
	m.routes = make(map[string]*netlink.Route)
	return firstErr
}

// Close removes everything, including the protect rule.
func (m *Manager) Close() error {
	err := m.RemoveAll()

	m.mu.Lock()
	defer m.mu.Unlock()
	if m.protect != nil {
		if delErr := m.nl.RuleDel(m.protect); delErr != nil && err == nil {
			err = fmt.Errorf("failed to delete protect rule: %w", delErr)
		}
		m.protect = nil
	}
	return err
}

func prefixToIPNet(p netip.Prefix) *net.IPNet {
	bits := 32
	if p.Addr().Is6() {
		bits = 128
	}
	return &net.IPNet{
		IP:   net.IP(p.Addr().AsSlice()),
		Mask: net.CIDRMask(p.Bits(), bits),
	}
}
