package core

import (
	"context"
	"errors"
	"net/netip"
	"sort"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/user/app-blackhole/internal/logger"
)

type fakeHandle struct {
	facility *fakeFacility
	name     string
	included []string
	closes   atomic.Int32
}

func (h *fakeHandle) Name() string { return h.name }

func (h *fakeHandle) Close() error {
	if h.closes.Add(1) == 1 {
		h.facility.live.Add(-1)
	}
	return nil
}

type fakeFacility struct {
	mu        sync.Mutex
	uids      map[string]uint32
	protectOK bool
	handles   []*fakeHandle
	calls     int

	// establish, when set, runs before the handle is created. A non-nil
	// error fails the call.
	establish func(ctx context.Context, params *Params) error

	live    atomic.Int32
	maxLive atomic.Int32
}

func newFakeFacility() *fakeFacility {
	return &fakeFacility{
		protectOK: true,
		uids: map[string]uint32{
			"com.app.games":  10061,
			"com.app.social": 10062,
			"com.app.news":   10063,
		},
	}
}

func (f *fakeFacility) ResolveApp(id string) (App, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	uid, ok := f.uids[id]
	if !ok {
		return App{}, ErrAppNotFound
	}
	return App{ID: id, UID: uid}, nil
}

func (f *fakeFacility) Protect(fd int) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.protectOK
}

func (f *fakeFacility) Establish(ctx context.Context, params *Params) (Handle, error) {
	f.mu.Lock()
	f.calls++
	hook := f.establish
	f.mu.Unlock()

	if hook != nil {
		if err := hook(ctx, params); err != nil {
			return nil, err
		}
	}

	included := make([]string, 0, len(params.Included))
	for _, app := range params.Included {
		included = append(included, app.ID)
	}
	sort.Strings(included)

	live := f.live.Add(1)
	for {
		peak := f.maxLive.Load()
		if live <= peak || f.maxLive.CompareAndSwap(peak, live) {
			break
		}
	}

	f.mu.Lock()
	h := &fakeHandle{facility: f, name: "blackhole0", included: included}
	f.handles = append(f.handles, h)
	f.mu.Unlock()
	return h, nil
}

func (f *fakeFacility) setEstablish(hook func(ctx context.Context, params *Params) error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.establish = hook
}

func (f *fakeFacility) allHandles() []*fakeHandle {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]*fakeHandle(nil), f.handles...)
}

func (f *fakeFacility) establishCalls() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls
}

type fakeShell struct {
	mu         sync.Mutex
	foreground bool
	enters     int
	leaves     int
	enterErr   error
	enterPanic bool
	statuses   []string
}

func (s *fakeShell) PresentStatus(message string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.statuses = append(s.statuses, message)
}

func (s *fakeShell) EnterForeground(id int, content string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.enterPanic {
		panic("notification channel missing")
	}
	if s.enterErr != nil {
		return s.enterErr
	}
	s.enters++
	s.foreground = true
	return nil
}

func (s *fakeShell) LeaveForeground() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.leaves++
	s.foreground = false
}

func (s *fakeShell) inForeground() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.foreground
}

func (s *fakeShell) lastStatus() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.statuses) == 0 {
		return ""
	}
	return s.statuses[len(s.statuses)-1]
}

type fakeSocket struct {
	fd        int
	connected netip.AddrPort
	nonblock  bool
	closed    atomic.Bool
}

func (s *fakeSocket) Fd() int { return s.fd }

func (s *fakeSocket) Connect(peer netip.AddrPort) error {
	s.connected = peer
	return nil
}

func (s *fakeSocket) SetNonblock() error {
	s.nonblock = true
	return nil
}

func (s *fakeSocket) Close() error {
	s.closed.Store(true)
	return nil
}

type socketRecorder struct {
	mu      sync.Mutex
	sockets []*fakeSocket
	openErr error
}

func (r *socketRecorder) open() (ControlSocket, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.openErr != nil {
		return nil, r.openErr
	}
	s := &fakeSocket{fd: 100 + len(r.sockets)}
	r.sockets = append(r.sockets, s)
	return s, nil
}

func (r *socketRecorder) allClosed() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, s := range r.sockets {
		if !s.closed.Load() {
			return false
		}
	}
	return true
}

type fakeGuard struct {
	mu       sync.Mutex
	engaged  bool
	uids     []uint32
	engages  int
	releases int
}

func (g *fakeGuard) Engage(uids []uint32) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.engaged = true
	g.engages++
	g.uids = append([]uint32(nil), uids...)
	return nil
}

func (g *fakeGuard) Release() error {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.engaged = false
	g.releases++
	return nil
}

type fakeMetrics struct {
	mu       sync.Mutex
	outcomes []string
	states   []State
}

func (m *fakeMetrics) AttemptFinished(outcome string, seconds float64) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.outcomes = append(m.outcomes, outcome)
}

func (m *fakeMetrics) StateChanged(state State) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.states = append(m.states, state)
}

func (m *fakeMetrics) BlockedApps(requested, skipped int) {}

func (m *fakeMetrics) allOutcomes() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]string(nil), m.outcomes...)
}

type harness struct {
	supervisor *Supervisor
	facility   *fakeFacility
	shell      *fakeShell
	sockets    *socketRecorder
	metrics    *fakeMetrics
}

func newHarness(t *testing.T, configure ...func(*Options)) *harness {
	t.Helper()
	h := &harness{
		facility: newFakeFacility(),
		shell:    &fakeShell{},
		sockets:  &socketRecorder{},
		metrics:  &fakeMetrics{},
	}
	opts := Options{
		Sockets: h.sockets.open,
		Metrics: h.metrics,
	}
	for _, fn := range configure {
		fn(&opts)
	}
	h.supervisor = NewSupervisor(h.facility, h.shell, opts)
	t.Cleanup(func() {
		h.supervisor.Destroy()
		h.waitIdle(t)
	})
	return h
}

func (h *harness) waitIdle(t *testing.T) {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	require.NoError(t, h.supervisor.WaitIdle(ctx))
}

// captureLog counts log lines containing marker until the test ends.
func captureLog(t *testing.T, marker string) func() int {
	t.Helper()
	var mu sync.Mutex
	count := 0
	remove := logger.AddListener(func(line string) {
		if strings.Contains(line, marker) {
			mu.Lock()
			count++
			mu.Unlock()
		}
	})
	t.Cleanup(remove)
	return func() int {
		mu.Lock()
		defer mu.Unlock()
		return count
	}
}

var errRejected = errors.New("invalid argument")
