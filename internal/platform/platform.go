// Package platform is the Linux realization of the interface facility the
// supervisor drives: a TUN device that is never serviced, a private routing
// table pointing into it and one uid rule per blocked application.
package platform

import (
	"context"
	"errors"
	"fmt"
	"net/netip"
	"os/user"
	"strconv"
	"strings"
	"sync"

	"github.com/user/app-blackhole/internal/config"
	"github.com/user/app-blackhole/internal/core"
	"github.com/user/app-blackhole/internal/logger"
	"github.com/user/app-blackhole/internal/routing"
	"github.com/user/app-blackhole/internal/tun"
)

// device is the part of tun.Interface the facility uses.
type device interface {
	Create() error
	Configure(address netip.Prefix) error
	Up() error
	Close() error
	Name() string
	Index() int
}

// router is the part of routing.Manager a handle uses.
type router interface {
	AddDefaultRoute(linkIndex int, destination netip.Prefix) error
	AddUIDRule(uid uint32) error
	RemoveAll() error
}

// protector keeps marked sockets on the main table.
type protector interface {
	EnsureProtectRule() error
	ProtectMark() uint32
	Close() error
}

// Config represents facility configuration.
type Config struct {
	Interface tun.Config
	Routing   routing.Config
	Apps      map[string]uint32
}

// ConfigFrom extracts the facility configuration from the loaded config.
func ConfigFrom(cfg *config.Config) Config {
	apps := make(map[string]uint32, len(cfg.Apps))
	for id, uid := range cfg.Apps {
		apps[strings.TrimSpace(id)] = uid
	}
	return Config{
		Interface: tun.Config{
			Name: cfg.Interface.Name,
			MTU:  cfg.Interface.MTU,
		},
		Routing: routing.Config{
			Table:           cfg.Routing.Table,
			RulePriority:    cfg.Routing.RulePriority,
			ProtectMark:     cfg.Routing.ProtectMark,
			ProtectPriority: cfg.Routing.ProtectPriority,
		},
		Apps: apps,
	}
}

// Facility implements core.Facility on top of tun and routing.
type Facility struct {
	cfg       Config
	protector protector

	newDevice  func() device
	newRouter  func() router
	lookupUser func(name string) (*user.User, error)
	setMark    func(fd int, mark uint32) error
}

// New creates a facility backed by the kernel.
func New(cfg Config) *Facility {
	return &Facility{
		cfg:        cfg,
		protector:  routing.NewManager(cfg.Routing),
		newDevice:  func() device { return tun.New(&cfg.Interface) },
		newRouter:  func() router { return routing.NewManager(cfg.Routing) },
		lookupUser: user.Lookup,
		setMark:    setSocketMark,
	}
}

// ResolveApp maps an application identifier to the uid its traffic is
// sent from: configured overrides first, then numeric uids, then system
// accounts.
func (f *Facility) ResolveApp(id string) (core.App, error) {
	id = strings.TrimSpace(id)
	if uid, ok := f.cfg.Apps[id]; ok {
		return core.App{ID: id, UID: uid}, nil
	}

	if uid, err := strconv.ParseUint(id, 10, 32); err == nil {
		return core.App{ID: id, UID: uint32(uid)}, nil
	}

	u, err := f.lookupUser(id)
	if err != nil {
		var unknown user.UnknownUserError
		if errors.As(err, &unknown) {
			return core.App{}, fmt.Errorf("%w: %s", core.ErrAppNotFound, id)
		}
		return core.App{}, fmt.Errorf("lookup %s: %w", id, err)
	}

	uid, err := strconv.ParseUint(u.Uid, 10, 32)
	if err != nil {
		return core.App{}, fmt.Errorf("account %s has non-numeric uid %q", id, u.Uid)
	}
	return core.App{ID: id, UID: uint32(uid)}, nil
}

// Protect marks fd so its traffic stays on the main table.
func (f *Facility) Protect(fd int) bool {
	if err := f.protector.EnsureProtectRule(); err != nil {
		logger.Error("Failed to install protect rule: %v", err)
		return false
	}
	if err := f.setMark(fd, f.protector.ProtectMark()); err != nil {
		logger.Error("Failed to mark socket %d: %v", fd, err)
		return false
	}
	return true
}

// Establish builds the interface described by params. Anything installed
// before a failure or cancellation is removed again.
func (f *Facility) Establish(ctx context.Context, params *core.Params) (core.Handle, error) {
	h := &handle{
		dev:    f.newDevice(),
		router: f.newRouter(),
	}

	if err := h.build(ctx, params); err != nil {
		if closeErr := h.Close(); closeErr != nil {
			logger.Warning("Cleanup after failed establish: %v", closeErr)
		}
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		return nil, fmt.Errorf("%w: %v", core.ErrConfiguration, err)
	}

	logger.Debug("Interface %s routes %v for uids %v", h.dev.Name(), params.Routes, params.UIDs())
	return h, nil
}

// Close removes the protect rule.
func (f *Facility) Close() error {
	return f.protector.Close()
}

// handle owns one device and the rules pointing into it.
type handle struct {
	dev    device
	router router

	once     sync.Once
	closeErr error
}

func (h *handle) build(ctx context.Context, params *core.Params) error {
	steps := []func() error{
		h.dev.Create,
		func() error { return h.dev.Configure(params.Address) },
		h.dev.Up,
		func() error {
			for _, route := range params.Routes {
				if err := h.router.AddDefaultRoute(h.dev.Index(), route); err != nil {
					return err
				}
			}
			return nil
		},
		func() error {
			for _, app := range params.Included {
				if err := h.router.AddUIDRule(app.UID); err != nil {
					return fmt.Errorf("app %s: %w", app.ID, err)
				}
			}
			return nil
		},
	}

	for _, step := range steps {
		if err := ctx.Err(); err != nil {
			return err
		}
		if err := step(); err != nil {
			return err
		}
	}
	return ctx.Err()
}

func (h *handle) Name() string {
	return h.dev.Name()
}

// Close removes the rules, then the device. Only the first call does work.
func (h *handle) Close() error {
	h.once.Do(func() {
		h.closeErr = errors.Join(h.router.RemoveAll(), h.dev.Close())
	})
	return h.closeErr
}
