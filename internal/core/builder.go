package core

import (
	"errors"
	"net/netip"

	"github.com/user/app-blackhole/internal/logger"
)

// BuildParams turns a blocked-app snapshot into interface parameters.
// Identifiers the resolver cannot find are skipped with a warning; any
// other resolver error is treated the same way so one bad entry never
// prevents the rest from being blocked.
func BuildParams(address netip.Prefix, routes []netip.Prefix, apps AppSet, resolver Resolver) *Params {
	params := &Params{Address: address}
	for _, route := range routes {
		params.Routes = append(params.Routes, route.Masked())
	}

	for _, id := range apps.Slice() {
		app, err := resolver.ResolveApp(id)
		if err != nil {
			if errors.Is(err, ErrAppNotFound) {
				logger.Warning("Cannot find app %s, skipping", id)
			} else {
				logger.Warning("Cannot resolve app %s, skipping: %v", id, err)
			}
			params.Skipped = append(params.Skipped, id)
			continue
		}
		params.Included = append(params.Included, app)
	}

	return params
}
