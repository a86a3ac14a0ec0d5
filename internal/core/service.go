// Package core implements the tunnel-lifecycle engine: it owns the set of
// blocked applications and keeps exactly one black-hole interface in place
// for them.
package core

import (
	"context"
	"net/netip"
	"sync"
	"time"
)

// State represents the supervisor state.
type State string

const (
	StateStopped      State = "stopped"
	StateStarting     State = "starting"
	StateConnected    State = "connected"
	StateReconnecting State = "reconnecting"
)

// NotificationID identifies the foreground presentation of the blocker.
const NotificationID = 301

const runningNotice = "Internet blocker is running"

// Options configures a Supervisor.
type Options struct {
	// Address is the private address block assigned to the interface.
	Address netip.Prefix
	// Routes are sent into the interface for every included application.
	Routes []netip.Prefix
	// EstablishTimeout bounds a single attempt. Zero waits forever.
	EstablishTimeout time.Duration
	// Sockets opens control sockets. Defaults to OpenUDPSocket.
	Sockets SocketFactory
	// Guard, when set, keeps blocked apps offline during a rebuild.
	Guard Guard
	// Metrics receives measurements. Defaults to a no-op.
	Metrics Metrics
}

// DefaultOptions returns the options used when none are configured.
func DefaultOptions() Options {
	return Options{
		Address: netip.MustParsePrefix("192.168.0.0/24"),
		Routes:  []netip.Prefix{netip.MustParsePrefix("0.0.0.0/0")},
		Sockets: OpenUDPSocket,
		Metrics: noopMetrics{},
	}
}

// Supervisor drives the black-hole interface through its lifecycle.
//
// Start, UpdateBlockedApps, Stop and the teardown after a failed attempt are
// serialized by opMu, so they take effect in caller order. mu guards the
// fields below it; workers only ever take mu, never opMu, except to tear
// down after their own failure.
type Supervisor struct {
	opMu sync.Mutex

	// handleMu is held by a worker from the moment it asks for an interface
	// until that interface is published or discarded.
	handleMu sync.Mutex

	mu             sync.RWMutex
	state          State
	running        bool
	destroyed      bool
	apps           AppSet
	generation     uint64
	attempt        *attempt
	handle         Handle
	handleApps     AppSet
	handleUIDs     []uint32
	guarded        bool
	included       []string
	skipped        []string
	session        string
	connectedAt    time.Time
	lastError      error
	statusListener StatusListener

	// workers counts running attempts, superseded ones included. idle is
	// closed whenever it drops to zero.
	workers int
	idle    chan struct{}

	facility Facility
	shell    Shell
	opts     Options
}

// NewSupervisor creates a stopped supervisor.
func NewSupervisor(facility Facility, shell Shell, opts Options) *Supervisor {
	defaults := DefaultOptions()
	if !opts.Address.IsValid() {
		opts.Address = defaults.Address
	}
	if len(opts.Routes) == 0 {
		opts.Routes = defaults.Routes
	}
	if opts.Sockets == nil {
		opts.Sockets = defaults.Sockets
	}
	if opts.Metrics == nil {
		opts.Metrics = defaults.Metrics
	}

	idle := make(chan struct{})
	close(idle)

	return &Supervisor{
		idle:     idle,
		state:    StateStopped,
		apps:     NewAppSet(),
		facility: facility,
		shell:    shell,
		opts:     opts,
	}
}

// State returns the current state.
func (s *Supervisor) State() State {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.state
}

// Running reports whether the foreground presentation is active.
func (s *Supervisor) Running() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.running
}

// BlockedApps returns the current blocked set.
func (s *Supervisor) BlockedApps() AppSet {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.apps
}

// WaitIdle blocks until every attempt, superseded ones included, has
// finished, or ctx is done.
func (s *Supervisor) WaitIdle(ctx context.Context) error {
	s.mu.RLock()
	idle := s.idle
	s.mu.RUnlock()

	select {
	case <-idle:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
