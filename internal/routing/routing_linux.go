//go:build linux

package routing

import "github.com/vishvananda/netlink"

const (
	family4   = netlink.FAMILY_V4
	family6   = netlink.FAMILY_V6
	scopeLink = netlink.SCOPE_LINK
)

// systemNetlink talks to the kernel.
type systemNetlink struct{}

func (systemNetlink) RuleAdd(rule *netlink.Rule) error { return netlink.RuleAdd(rule) }

func (systemNetlink) RuleDel(rule *netlink.Rule) error { return netlink.RuleDel(rule) }

func (systemNetlink) RuleList(family int) ([]netlink.Rule, error) { return netlink.RuleList(family) }

func (systemNetlink) RouteReplace(route *netlink.Route) error { return netlink.RouteReplace(route) }

func (systemNetlink) RouteDel(route *netlink.Route) error { return netlink.RouteDel(route) }
