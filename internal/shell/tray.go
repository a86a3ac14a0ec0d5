package shell

import (
	"errors"
	"sync"

	"fyne.io/systray"

	"github.com/user/app-blackhole/internal/logger"
)

// ErrTrayNotReady is returned by EnterForeground before the tray is up.
var ErrTrayNotReady = errors.New("system tray not ready")

// Tray presents status as a system tray icon. Run must be called from the
// main goroutine.
type Tray struct {
	mu         sync.Mutex
	ready      bool
	foreground bool
	status     string

	mStatus *systray.MenuItem
	mStop   *systray.MenuItem
	mQuit   *systray.MenuItem

	// OnStop is called when the user asks to stop blocking.
	OnStop func()
}

// NewTray creates a tray shell.
func NewTray() *Tray {
	return &Tray{status: "Internet blocker stopped"}
}

// Run shows the tray icon and blocks until Quit. onReady runs in its own
// goroutine once the icon exists; onExit runs when the tray goes away.
func (t *Tray) Run(onReady func(), onExit func()) {
	systray.Run(func() {
		t.setup()
		logger.SafeGo("tray-ready", onReady)
	}, func() {
		t.mu.Lock()
		t.ready = false
		t.mu.Unlock()
		if onExit != nil {
			onExit()
		}
	})
}

// Quit removes the icon and makes Run return.
func (t *Tray) Quit() {
	systray.Quit()
}

func (t *Tray) setup() {
	systray.SetIcon(Icon(false))
	systray.SetTitle("App Blackhole")
	systray.SetTooltip("App Blackhole")

	t.mStatus = systray.AddMenuItem("", "")
	t.mStatus.Disable()
	systray.AddSeparator()
	t.mStop = systray.AddMenuItem("Stop blocking", "")
	t.mStop.Disable()
	systray.AddSeparator()
	t.mQuit = systray.AddMenuItem("Quit", "")

	t.mu.Lock()
	t.ready = true
	t.renderUnsafe()
	t.mu.Unlock()

	go func() {
		defer logger.Recover("tray-menu-loop")
		for {
			select {
			case <-t.mStop.ClickedCh:
				logger.Info("User stopped the blocker from the tray")
				if t.OnStop != nil {
					t.OnStop()
				}
			case <-t.mQuit.ClickedCh:
				systray.Quit()
				return
			}
		}
	}()
}

// PresentStatus shows message in the tooltip and the status item.
func (t *Tray) PresentStatus(message string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.status = message
	t.renderUnsafe()
}

// EnterForeground switches the icon to the active variant.
func (t *Tray) EnterForeground(id int, content string) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	if !t.ready {
		return ErrTrayNotReady
	}
	t.foreground = true
	t.status = content
	t.renderUnsafe()
	return nil
}

// LeaveForeground switches the icon back.
func (t *Tray) LeaveForeground() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.foreground = false
	t.renderUnsafe()
}

func (t *Tray) renderUnsafe() {
	if !t.ready {
		return
	}
	systray.SetIcon(Icon(t.foreground))
	systray.SetTooltip("App Blackhole\n" + t.status)
	t.mStatus.SetTitle(t.status)
	if t.foreground {
		t.mStop.Enable()
	} else {
		t.mStop.Disable()
	}
}
