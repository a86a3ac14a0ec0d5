//go:build !linux

package routing

import (
	"errors"

	"github.com/vishvananda/netlink"
)

const (
	family4   = 2
	family6   = 10
	scopeLink = netlink.Scope(253)
)

var errUnsupported = errors.New("policy routing is only supported on Linux")

type systemNetlink struct{}

func (systemNetlink) RuleAdd(*netlink.Rule) error          { return errUnsupported }
func (systemNetlink) RuleDel(*netlink.Rule) error          { return errUnsupported }
func (systemNetlink) RuleList(int) ([]netlink.Rule, error) { return nil, errUnsupported }
func (systemNetlink) RouteReplace(*netlink.Route) error    { return errUnsupported }
func (systemNetlink) RouteDel(*netlink.Route) error        { return errUnsupported }
