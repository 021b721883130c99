// Package tray provides a system tray interface for the drawing kiosk.
package tray

import (
	"sync"

	"github.com/getlantern/systray"
)

// Tray represents the system tray application.
type Tray struct {
	onToggle func(enabled bool)
	onSave   func()
	onQuit   func()
	enabled  bool
	mu       sync.RWMutex

	// Menu items stored for later updates
	menuToggle      *systray.MenuItem
	menuLastSession *systray.MenuItem
}

// New creates a new Tray instance with gesture input enabled by default.
func New() *Tray {
	return &Tray{
		enabled: true,
	}
}

// OnToggle sets the callback for toggling gesture input.
func (t *Tray) OnToggle(fn func(enabled bool)) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.onToggle = fn
}

// OnSave sets the callback for the save-session menu item.
func (t *Tray) OnSave(fn func()) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.onSave = fn
}

// OnQuit sets the callback for the quit menu item.
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

// Quit stops the tray loop.
func (t *Tray) Quit() {
	systray.Quit()
}

// onReady is called when the system tray is ready.
// It sets up the menu structure.
func (t *Tray) onReady() {
	systray.SetTitle("Lienzo")
	systray.SetTooltip("Lienzo interactive drawing kiosk")

	t.menuToggle = systray.AddMenuItem("● Gestos activos", "Toggle gesture input")
	systray.AddSeparator()

	t.menuLastSession = systray.AddMenuItem("Sesión: ninguna", "Last saved session")
	t.menuLastSession.Disable()
	systray.AddSeparator()

	menuSave := systray.AddMenuItem("Guardar sesión", "Save the current drawing session")
	systray.AddSeparator()

	menuQuit := systray.AddMenuItem("Salir", "Quit Lienzo")

	// Handle menu item clicks in a separate goroutine
	go func() {
		for {
			select {
			case <-t.menuToggle.ClickedCh:
				t.handleToggle()
			case <-menuSave.ClickedCh:
				t.handleSave()
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

// handleToggle handles the toggle menu item click.
func (t *Tray) handleToggle() {
	t.mu.Lock()
	t.enabled = !t.enabled
	enabled := t.enabled

	if enabled {
		t.menuToggle.SetTitle("● Gestos activos")
	} else {
		t.menuToggle.SetTitle("○ Gestos pausados")
	}

	callback := t.onToggle
	t.mu.Unlock()

	// Call the callback outside the lock to prevent deadlocks
	if callback != nil {
		callback(enabled)
	}
}

// handleSave handles the save-session menu item click.
func (t *Tray) handleSave() {
	t.mu.RLock()
	callback := t.onSave
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

// SetLastSession updates the last saved session display in the menu.
func (t *Tray) SetLastSession(name string) {
	t.mu.RLock()
	defer t.mu.RUnlock()

	if t.menuLastSession != nil {
		if name == "" {
			t.menuLastSession.SetTitle("Sesión: ninguna")
		} else {
			t.menuLastSession.SetTitle("Sesión: " + name)
		}
	}
}

// IsEnabled returns whether gesture input is enabled.
func (t *Tray) IsEnabled() bool {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.enabled
}
