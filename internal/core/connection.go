package core

import (
	"context"
	"errors"
	"fmt"
	"runtime/debug"
	"sync/atomic"
	"time"

	"github.com/user/app-blackhole/internal/logger"
)

// attempt is one try at building the interface for a snapshot of the
// blocked set.
type attempt struct {
	generation uint64
	apps       AppSet
	ctx        context.Context
	cancel     context.CancelFunc
	started    time.Time
	timer      *time.Timer

	// recorded is set once the outcome has been reported. The watchdog and
	// the worker can both end the same attempt.
	recorded atomic.Bool
}

func newAttempt(generation uint64, apps AppSet) *attempt {
	ctx, cancel := context.WithCancel(context.Background())
	return &attempt{
		generation: generation,
		apps:       apps,
		ctx:        ctx,
		cancel:     cancel,
		started:    time.Now(),
	}
}

// abort cancels the attempt. The worker notices at its next checkpoint.
func (a *attempt) abort() {
	if a.timer != nil {
		a.timer.Stop()
	}
	a.cancel()
}

func (a *attempt) checkpoint() error {
	if a.ctx.Err() != nil {
		return errCancelled
	}
	return nil
}

// UpdateBlockedApps replaces the blocked set. An empty set stops the
// blocker; any other set supersedes the attempt in flight and rebuilds the
// interface. Worker failures never surface here: they end in a teardown
// and a log record.
func (s *Supervisor) UpdateBlockedApps(ids []string) {
	apps := NewAppSet(ids...)

	s.opMu.Lock()
	defer s.opMu.Unlock()

	s.mu.Lock()
	if s.destroyed {
		s.mu.Unlock()
		logger.Warning("Ignoring blocked apps update: supervisor destroyed")
		return
	}
	s.apps = apps
	s.mu.Unlock()

	logger.Info("Blocked apps updated: %d apps", apps.Len())

	if apps.Empty() {
		logger.Warning("No blocked apps left, stopping internet blocker")
		s.teardownLocked(nil)
		return
	}

	if err := s.startLocked(); err != nil {
		return
	}

	s.reconnectLocked(apps)
}

// reconnectLocked closes the live interface, cancels the attempt in flight
// and launches a new one for apps. Callers hold opMu.
func (s *Supervisor) reconnectLocked(apps AppSet) {
	s.mu.Lock()
	if s.attempt != nil && s.attempt.apps.Equal(apps) {
		s.mu.Unlock()
		logger.Debug("Attempt for the same apps already in flight")
		return
	}
	if s.attempt == nil && s.handle != nil && s.handleApps.Equal(apps) {
		s.mu.Unlock()
		logger.Debug("Blocked apps unchanged, keeping interface")
		return
	}

	s.generation++
	a := newAttempt(s.generation, apps)
	old := s.attempt
	oldHandle := s.handle
	s.attempt = a
	if oldHandle != nil {
		s.engageGuardLocked(s.handleUIDs)
	}
	s.handle = nil
	s.handleApps = NewAppSet()
	s.handleUIDs = nil
	if s.state == StateConnected || s.state == StateReconnecting {
		s.state = StateReconnecting
	}
	if s.workers == 0 {
		s.idle = make(chan struct{})
	}
	s.workers++
	s.mu.Unlock()

	if old != nil {
		logger.Debug("Cancelling superseded attempt %d", old.generation)
		old.abort()
	}
	if oldHandle != nil {
		s.closeHandle(oldHandle)
	}

	if timeout := s.opts.EstablishTimeout; timeout > 0 {
		a.timer = time.AfterFunc(timeout, func() {
			s.fail(a, fmt.Errorf("%w after %s", ErrEstablishTimeout, timeout))
		})
	}

	logger.Tunnel("Establishing interface for %d apps (attempt %d)", apps.Len(), a.generation)
	s.broadcastStatus()

	logger.SafeGo("establish", func() {
		s.runAttempt(a)
	})
}

func (s *Supervisor) runAttempt(a *attempt) {
	defer s.workerDone()
	defer func() {
		if r := recover(); r != nil {
			logger.Error("PANIC in establishment attempt %d: %v\n%s", a.generation, r, debug.Stack())
			s.fail(a, fmt.Errorf("panic: %v", r))
		}
	}()

	if err := s.establish(a); err != nil {
		s.fail(a, err)
	}
}

// recordOutcome reports how a ended. Only the first outcome counts.
func (s *Supervisor) recordOutcome(a *attempt, outcome string) {
	if !a.recorded.CompareAndSwap(false, true) {
		return
	}
	s.opts.Metrics.AttemptFinished(outcome, time.Since(a.started).Seconds())
}

func (s *Supervisor) workerDone() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.workers--
	if s.workers == 0 {
		close(s.idle)
	}
}

// establish runs the attempt up to publication. It holds handleMu so two
// workers never have an interface in hand at the same time.
func (s *Supervisor) establish(a *attempt) error {
	s.handleMu.Lock()
	defer s.handleMu.Unlock()

	if err := a.checkpoint(); err != nil {
		return err
	}

	sock, err := openControlSocket(s.opts.Sockets, s.facility)
	if err != nil {
		return err
	}
	defer sock.Close()

	if err := a.checkpoint(); err != nil {
		return err
	}

	params := BuildParams(s.opts.Address, s.opts.Routes, a.apps, s.facility)
	if len(params.Included) == 0 {
		return fmt.Errorf("%w: none of %d apps could be resolved", ErrConfiguration, a.apps.Len())
	}

	if err := a.checkpoint(); err != nil {
		return err
	}

	handle, err := s.facility.Establish(a.ctx, params)
	if err != nil {
		if a.ctx.Err() != nil {
			return errCancelled
		}
		if FailureKind(err) == "unknown" {
			err = fmt.Errorf("%w: %v", ErrConfiguration, err)
		}
		return err
	}

	s.publish(a, handle, params)
	return nil
}

// publish makes handle the live interface if a is still the current
// attempt. Otherwise the handle is closed and dropped.
func (s *Supervisor) publish(a *attempt, handle Handle, params *Params) {
	s.mu.Lock()
	if s.destroyed || s.attempt != a || s.generation != a.generation {
		s.mu.Unlock()
		logger.Debug("Discarding interface from superseded attempt %d", a.generation)
		s.closeHandle(handle)
		s.recordOutcome(a, "cancelled")
		return
	}

	if a.timer != nil {
		a.timer.Stop()
	}

	included := make([]string, 0, len(params.Included))
	for _, app := range params.Included {
		included = append(included, app.ID)
	}

	s.handle = handle
	s.handleApps = a.apps
	s.handleUIDs = params.UIDs()
	s.included = included
	s.skipped = params.Skipped
	s.attempt = nil
	s.state = StateConnected
	s.connectedAt = time.Now()
	s.lastError = nil
	s.releaseGuardLocked()
	s.mu.Unlock()

	s.recordOutcome(a, "connected")
	s.opts.Metrics.BlockedApps(a.apps.Len(), len(params.Skipped))

	if len(params.Skipped) > 0 {
		logger.Warning("Blocking %d of %d apps, skipped: %v", len(included), a.apps.Len(), params.Skipped)
	}
	logger.Tunnel("Interface %s connected (attempt %d)", handle.Name(), a.generation)
	s.broadcastStatus()
}

// fail handles the end of an attempt that produced no interface. Failures
// of the current attempt tear the whole blocker down; anything else is a
// superseded attempt and is dropped.
func (s *Supervisor) fail(a *attempt, err error) {
	if isCancellation(err) {
		logger.Debug("Attempt %d cancelled", a.generation)
		s.recordOutcome(a, "cancelled")
		return
	}

	s.opMu.Lock()
	defer s.opMu.Unlock()

	s.mu.RLock()
	current := !s.destroyed && s.attempt == a && s.generation == a.generation
	s.mu.RUnlock()

	if !current {
		logger.Debug("Ignoring failure of superseded attempt %d: %v", a.generation, err)
		s.recordOutcome(a, "cancelled")
		return
	}

	kind := FailureKind(err)
	switch {
	case errors.Is(err, ErrProtect):
		logger.Error("Cannot protect the control socket, exiting: %v", err)
	case errors.Is(err, ErrTransport):
		logger.Error("Cannot use socket for interface: %v", err)
	case errors.Is(err, ErrConfiguration), errors.Is(err, ErrEstablishTimeout):
		logger.Error("Interface establishment failed, exiting: %v", err)
	default:
		logger.Error("Something went wrong while establishing interface: %v", err)
	}
	s.recordOutcome(a, kind)

	s.teardownLocked(err)
}
