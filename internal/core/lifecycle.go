package core

import (
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/user/app-blackhole/internal/logger"
)

// Start enters the foreground presentation. The interface itself is only
// built by the first UpdateBlockedApps call. Calling Start while running is
// a no-op.
func (s *Supervisor) Start() error {
	s.opMu.Lock()
	defer s.opMu.Unlock()
	return s.startLocked()
}

// Stop closes the interface, cancels any attempt in flight and leaves the
// foreground. Safe to call repeatedly.
func (s *Supervisor) Stop() {
	s.opMu.Lock()
	defer s.opMu.Unlock()
	s.teardownLocked(nil)
}

// Destroy stops the supervisor for good. Later calls to Start fail and
// UpdateBlockedApps is ignored.
func (s *Supervisor) Destroy() {
	s.opMu.Lock()
	defer s.opMu.Unlock()

	s.teardownLocked(nil)

	s.mu.Lock()
	s.destroyed = true
	s.mu.Unlock()

	logger.Tunnel("Supervisor destroyed")
}

func (s *Supervisor) startLocked() error {
	s.mu.RLock()
	destroyed, running := s.destroyed, s.running
	s.mu.RUnlock()

	if destroyed {
		return ErrDestroyed
	}
	if running {
		return nil
	}

	if err := s.enterForeground(); err != nil {
		logger.Error("Failed to enter foreground: %v", err)
		s.shell.LeaveForeground()
		s.teardownLocked(err)
		return err
	}

	s.mu.Lock()
	s.running = true
	s.state = StateStarting
	s.session = uuid.NewString()
	s.lastError = nil
	session := s.session
	s.mu.Unlock()

	logger.Tunnel("Internet blocker started (session %s)", session)
	s.broadcastStatus()
	return nil
}

// enterForeground converts both returned errors and panics from the shell
// into ErrForeground.
func (s *Supervisor) enterForeground() (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("%w: %v", ErrForeground, r)
		}
	}()
	if ferr := s.shell.EnterForeground(NotificationID, runningNotice); ferr != nil {
		return fmt.Errorf("%w: %v", ErrForeground, ferr)
	}
	return nil
}

// teardownLocked returns the supervisor to Stopped. Callers hold opMu.
// Bumping the generation invalidates whatever attempt is still running.
func (s *Supervisor) teardownLocked(cause error) {
	s.mu.Lock()
	prev := s.state
	wasRunning := s.running
	s.generation++
	a := s.attempt
	h := s.handle
	s.attempt = nil
	s.handle = nil
	s.handleApps = NewAppSet()
	s.handleUIDs = nil
	s.included = nil
	s.skipped = nil
	s.running = false
	s.state = StateStopped
	s.connectedAt = time.Time{}
	if cause != nil {
		s.lastError = cause
	}
	s.releaseGuardLocked()
	s.mu.Unlock()

	if a != nil {
		a.abort()
	}
	if h != nil {
		s.closeHandle(h)
	}
	if wasRunning {
		s.shell.LeaveForeground()
	}

	if prev == StateStopped && !wasRunning {
		return
	}

	if cause != nil {
		logger.Tunnel("Internet blocker stopped after failure: %v", cause)
	} else {
		logger.Tunnel("Internet blocker stopped")
	}
	s.broadcastStatus()
}

func (s *Supervisor) closeHandle(h Handle) {
	name := h.Name()
	if err := h.Close(); err != nil {
		logger.Error("Unable to close interface %s: %v", name, err)
		return
	}
	logger.Info("Interface %s closed", name)
}

// engageGuardLocked keeps the uids of the handle being replaced offline.
// Callers hold mu.
func (s *Supervisor) engageGuardLocked(uids []uint32) {
	if s.opts.Guard == nil || len(uids) == 0 {
		return
	}
	if err := s.opts.Guard.Engage(uids); err != nil {
		logger.Warning("Failed to engage reconnect guard: %v", err)
		s.guarded = false
		return
	}
	s.guarded = true
}

// releaseGuardLocked lifts the reconnect guard. Callers hold mu.
func (s *Supervisor) releaseGuardLocked() {
	if s.opts.Guard == nil || !s.guarded {
		return
	}
	if err := s.opts.Guard.Release(); err != nil {
		logger.Warning("Failed to release reconnect guard: %v", err)
	}
	s.guarded = false
}
