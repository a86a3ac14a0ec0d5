package core

import (
	"fmt"
	"time"
)

// StatusPayload is a snapshot of the supervisor for presentation.
type StatusPayload struct {
	State        string
	Running      bool
	Session      string
	Interface    string
	BlockedApps  []string
	IncludedApps []string
	SkippedApps  []string
	ConnectedAt  time.Time
	Error        string
}

// StatusListener is a callback invoked when the supervisor status changes.
type StatusListener func(status *StatusPayload)

// SetStatusListener sets a callback that will be called on every status change.
func (s *Supervisor) SetStatusListener(listener StatusListener) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.statusListener = listener
}

// GetStatusPayload returns the current status.
func (s *Supervisor) GetStatusPayload() *StatusPayload {
	s.mu.RLock()
	defer s.mu.RUnlock()

	status := &StatusPayload{
		State:        string(s.state),
		Running:      s.running,
		Session:      s.session,
		BlockedApps:  s.apps.Slice(),
		IncludedApps: append([]string(nil), s.included...),
		SkippedApps:  append([]string(nil), s.skipped...),
	}

	if s.handle != nil {
		status.Interface = s.handle.Name()
	}
	if !s.connectedAt.IsZero() {
		status.ConnectedAt = s.connectedAt
	}
	if s.lastError != nil {
		status.Error = s.lastError.Error()
	}

	return status
}

// Message renders the status as the one line shown to the user.
func (p *StatusPayload) Message() string {
	switch State(p.State) {
	case StateStarting:
		return "Internet blocker is starting"
	case StateReconnecting:
		return "Internet blocker is applying new apps"
	case StateConnected:
		if len(p.SkippedApps) > 0 {
			return fmt.Sprintf("Blocking internet for %d of %d apps", len(p.IncludedApps), len(p.BlockedApps))
		}
		return fmt.Sprintf("Blocking internet for %d apps", len(p.IncludedApps))
	default:
		if p.Error != "" {
			return "Internet blocker stopped: " + p.Error
		}
		return "Internet blocker stopped"
	}
}

// broadcastStatus pushes the status to the shell, the listener and metrics.
func (s *Supervisor) broadcastStatus() {
	s.mu.RLock()
	listener := s.statusListener
	s.mu.RUnlock()

	status := s.GetStatusPayload()
	s.opts.Metrics.StateChanged(State(status.State))
	s.shell.PresentStatus(status.Message())
	if listener != nil {
		listener(status)
	}
}
