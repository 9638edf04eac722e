// Package tray provides a macOS system tray interface for the Nightwatchman
// posture monitor.
package tray

import (
	"sync"

	"github.com/getlantern/systray"

	"github.com/seniorcare/nightwatchman/internal/command"
)

// Tray represents the macOS system tray application.
type Tray struct {
	onCommand func(kind command.Kind)
	onStatus  func()
	onQuit    func()
	mu        sync.RWMutex

	// Menu items stored for later updates
	menuState  *systray.MenuItem
	menuStart  *systray.MenuItem
	menuPause  *systray.MenuItem
	menuResume *systray.MenuItem
	menuStop   *systray.MenuItem
}

// New creates a new Tray instance.
func New() *Tray {
	return &Tray{}
}

// OnCommand sets the callback for the start/pause/resume/stop menu items.
func (t *Tray) OnCommand(fn func(kind command.Kind)) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.onCommand = fn
}

// OnStatus sets the callback for the status menu item.
func (t *Tray) OnStatus(fn func()) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.onStatus = fn
}

// OnQuit sets the callback function to be called when the quit menu item is clicked.
func (t *Tray) OnQuit(fn func()) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.onQuit = fn
}

// Run starts the system tray application.
// This function blocks until systray.Quit() is called.
func (t *Tray) Run() {
	systray.Run(t.onReady, t.onExit)
}

// onReady is called when the system tray is ready.
// It sets up the menu structure.
func (t *Tray) onReady() {
	systray.SetTitle("Nightwatchman")
	systray.SetTooltip("Nightwatchman Posture Monitor")

	t.menuState = systray.AddMenuItem("State: waiting for start", "Current monitoring state")
	t.menuState.Disable()
	systray.AddSeparator()

	t.menuStart = systray.AddMenuItem("Start Monitoring", "Begin posture monitoring")
	t.menuPause = systray.AddMenuItem("Pause", "Pause posture monitoring")
	t.menuResume = systray.AddMenuItem("Resume", "Resume posture monitoring")
	t.menuStop = systray.AddMenuItem("Stop", "Stop posture monitoring")
	systray.AddSeparator()

	menuStatus := systray.AddMenuItem("Open Status Page...", "Open the status page in a browser")
	systray.AddSeparator()

	menuQuit := systray.AddMenuItem("Quit", "Quit Nightwatchman")

	t.showForState(command.WaitingForStart)

	// Handle menu item clicks in a separate goroutine
	go func() {
		for {
			select {
			case <-t.menuStart.ClickedCh:
				t.handleCommand(command.Start)
			case <-t.menuPause.ClickedCh:
				t.handleCommand(command.Pause)
			case <-t.menuResume.ClickedCh:
				t.handleCommand(command.Resume)
			case <-t.menuStop.ClickedCh:
				t.handleCommand(command.Stop)
			case <-menuStatus.ClickedCh:
				t.handleStatus()
			case <-menuQuit.ClickedCh:
				t.handleQuit()
				return
			}
		}
	}()
}

// onExit is called when the system tray is about to exit.
func (t *Tray) onExit() {
}

// handleCommand forwards a menu click to the command callback.
func (t *Tray) handleCommand(kind command.Kind) {
	t.mu.RLock()
	callback := t.onCommand
	t.mu.RUnlock()

	if callback != nil {
		callback(kind)
	}
}

// handleStatus handles the status menu item click.
func (t *Tray) handleStatus() {
	t.mu.RLock()
	callback := t.onStatus
	t.mu.RUnlock()

	if callback != nil {
		callback()
	}
}

// handleQuit handles the quit menu item click.
func (t *Tray) handleQuit() {
	t.mu.RLock()
	callback := t.onQuit
	t.mu.RUnlock()

	if callback != nil {
		callback()
	}

	systray.Quit()
}

// SetState updates the state line and shows only the menu items that make
// sense for the given run state.
func (t *Tray) SetState(state command.SystemState) {
	t.mu.RLock()
	defer t.mu.RUnlock()

	if t.menuState == nil {
		return
	}

	switch state {
	case command.WaitingForStart:
		t.menuState.SetTitle("State: waiting for start")
	case command.ActiveMonitoring:
		t.menuState.SetTitle("State: monitoring")
	case command.Paused:
		t.menuState.SetTitle("State: paused")
	}
	t.showForState(state)
}

// SetAlertCount updates the tray title with the session alert count.
func (t *Tray) SetAlertCount(count int) {
	if count > 0 {
		systray.SetTitle("Nightwatchman ⚠")
	} else {
		systray.SetTitle("Nightwatchman")
	}
}

// showForState hides the menu items the arbiter would reject anyway.
func (t *Tray) showForState(state command.SystemState) {
	t.menuStart.Hide()
	t.menuPause.Hide()
	t.menuResume.Hide()
	t.menuStop.Hide()

	switch state {
	case command.WaitingForStart:
		t.menuStart.Show()
	case command.ActiveMonitoring:
		t.menuPause.Show()
		t.menuStop.Show()
	case command.Paused:
		t.menuResume.Show()
		t.menuStop.Show()
	}
}
