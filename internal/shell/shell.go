// Package shell provides the lifecycle shells that keep the blocker visible
// while it runs: a headless one for daemons and a system tray icon.
package shell

import (
	"sync"

	"github.com/user/app-blackhole/internal/logger"
)

// Headless presents status through the log only.
type Headless struct {
	mu         sync.Mutex
	foreground bool
	id         int
	status     string
}

// NewHeadless creates a headless shell.
func NewHeadless() *Headless {
	return &Headless{}
}

// PresentStatus records and logs message.
func (h *Headless) PresentStatus(message string) {
	h.mu.Lock()
	changed := h.status != message
	h.status = message
	h.mu.Unlock()

	if changed {
		logger.Info("Status: %s", message)
	}
}

// EnterForeground marks the shell as presenting notification id.
func (h *Headless) EnterForeground(id int, content string) error {
	h.mu.Lock()
	h.foreground = true
	h.id = id
	h.mu.Unlock()

	logger.Info("Foreground %d: %s", id, content)
	return nil
}

// LeaveForeground ends the presentation.
func (h *Headless) LeaveForeground() {
	h.mu.Lock()
	was := h.foreground
	h.foreground = false
	h.mu.Unlock()

	if was {
		logger.Info("Foreground %d ended", h.id)
	}
}

// InForeground reports whether the presentation is active.
func (h *Headless) InForeground() bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.foreground
}

// Status returns the last presented message.
func (h *Headless) Status() string {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.status
}
