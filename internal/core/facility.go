package core

import (
	"context"
	"net/netip"
)

// App is an application identifier resolved to the OS account it runs as.
type App struct {
	ID  string
	UID uint32
}

// Params describes the interface requested from the OS facility.
type Params struct {
	Address  netip.Prefix
	Routes   []netip.Prefix
	Included []App
	Skipped  []string
}

// UIDs returns the uids of the included applications.
func (p *Params) UIDs() []uint32 {
	uids := make([]uint32, 0, len(p.Included))
	for _, app := range p.Included {
		uids = append(uids, app.UID)
	}
	return uids
}

// Handle is a live virtual interface. It is a routing sink only: nothing
// ever reads from or writes to it.
type Handle interface {
	// Name returns the OS name of the interface.
	Name() string

	// Close destroys the interface. Safe to call more than once.
	Close() error
}

// Resolver maps an application identifier to an App.
// Unknown identifiers return an error wrapping ErrAppNotFound.
type Resolver interface {
	ResolveApp(id string) (App, error)
}

// Facility is the OS virtual-interface facility.
type Facility interface {
	Resolver

	// Protect excludes the socket fd from any active virtual interface.
	Protect(fd int) bool

	// Establish creates the interface described by params.
	Establish(ctx context.Context, params *Params) (Handle, error)
}

// Shell keeps the host process in the foreground while a tunnel may exist.
type Shell interface {
	PresentStatus(message string)
	EnterForeground(notificationID int, content string) error
	LeaveForeground()
}

// Guard keeps previously blocked applications offline while the interface
// is being rebuilt.
type Guard interface {
	Engage(uids []uint32) error
	Release() error
}

// Metrics receives engine measurements.
type Metrics interface {
	AttemptFinished(outcome string, seconds float64)
	StateChanged(state State)
	BlockedApps(requested, skipped int)
}

type noopMetrics struct{}

func (noopMetrics) AttemptFinished(string, float64) {}
func (noopMetrics) StateChanged(State)              {}
func (noopMetrics) BlockedApps(int, int)            {}
