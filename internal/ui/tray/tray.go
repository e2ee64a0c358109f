// Package tray mirrors the timer in the system tray menu.
package tray

import (
	"fmt"

	"fyne.io/fyne/v2"
	"fyne.io/fyne/v2/driver/desktop"

	"focusmatrix/internal/core/timer"
)

// Callbacks defines tray action handlers.
type Callbacks struct {
	OnShow        func()
	OnStart       func()
	OnPause       func()
	OnStop        func()
	OnSkip        func()
	OnPreferences func()
	OnQuit        func()
}

// Manager handles system tray state.
type Manager struct {
	app        desktop.App
	callbacks  Callbacks
	statusItem *fyne.MenuItem
	startItem  *fyne.MenuItem
	pauseItem  *fyne.MenuItem
	stopItem   *fyne.MenuItem
	skipItem   *fyne.MenuItem
	menu       *fyne.Menu
}

// New creates a tray manager with the provided callbacks.
func New(app desktop.App, callbacks Callbacks) *Manager {
	manager := &Manager{
		app:       app,
		callbacks: callbacks,
	}

	manager.statusItem = fyne.NewMenuItem("Ready", nil)
	manager.statusItem.Disabled = true
	manager.startItem = fyne.NewMenuItem("Start", invoke(callbacks.OnStart))
	manager.pauseItem = fyne.NewMenuItem("Pause", invoke(callbacks.OnPause))
	manager.stopItem = fyne.NewMenuItem("Stop", invoke(callbacks.OnStop))
	manager.skipItem = fyne.NewMenuItem("Skip", invoke(callbacks.OnSkip))

	quit := fyne.NewMenuItem("Quit", invoke(callbacks.OnQuit))
	quit.IsQuit = true

	manager.menu = fyne.NewMenu("Focus Matrix",
		manager.statusItem,
		fyne.NewMenuItem("Show timer", invoke(callbacks.OnShow)),
		fyne.NewMenuItemSeparator(),
		manager.startItem,
		manager.pauseItem,
		manager.stopItem,
		manager.skipItem,
		fyne.NewMenuItemSeparator(),
		fyne.NewMenuItem("Preferences", invoke(callbacks.OnPreferences)),
		quit,
	)
	manager.refreshMenu()
	return manager
}

// Update reflects a display snapshot. Call it on the UI goroutine.
func (manager *Manager) Update(snapshot timer.Snapshot) {
	manager.statusItem.Label = StatusText(snapshot)
	manager.startItem.Disabled = !snapshot.Buttons.Start
	manager.pauseItem.Disabled = !snapshot.Buttons.Pause
	manager.skipItem.Disabled = !snapshot.Buttons.Skip
	manager.refreshMenu()
}

// StatusText renders the one-line tray status, e.g. "Work 24:59 (1/4)".
func StatusText(snapshot timer.Snapshot) string {
	status := fmt.Sprintf("%s %s (%s)", snapshot.PhaseLabel, snapshot.TimeText, snapshot.CycleText)
	if !snapshot.Running {
		status += " paused"
	}
	return status
}

func (manager *Manager) refreshMenu() {
	if manager.app != nil {
		manager.app.SetSystemTrayMenu(manager.menu)
	}
}

func invoke(callback func()) func() {
	return func() {
		if callback != nil {
			callback()
		}
	}
}
