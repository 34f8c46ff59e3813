// Package tray provides a system tray menu for the SignBridge client.
package tray

import (
	"sync"

	"github.com/getlantern/systray"

	"github.com/ayusman/signbridge/internal/display"
)

// Tray represents the system tray application.
type Tray struct {
	onToggle func(enabled bool)
	onListen func()
	onSpeak  func()
	onOpenUI func()
	onQuit   func()
	enabled  bool
	snapshot display.Snapshot
	mu       sync.RWMutex

	// Menu items stored for later updates
	menuToggle     *systray.MenuItem
	menuPrediction *systray.MenuItem
	menuListen     *systray.MenuItem
}

// New creates a new Tray instance with detection enabled.
func New() *Tray {
	return &Tray{
		enabled:  true,
		snapshot: display.NewSurface().Snapshot(),
	}
}

// OnToggle sets the callback for the detection toggle.
func (t *Tray) OnToggle(fn func(enabled bool)) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.onToggle = fn
}

// OnListen sets the callback for Start Listening.
func (t *Tray) OnListen(fn func()) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.onListen = fn
}

// OnSpeak sets the callback for Speak Prediction.
func (t *Tray) OnSpeak(fn func()) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.onSpeak = fn
}

// OnOpenUI sets the callback for opening the browser UI.
func (t *Tray) OnOpenUI(fn func()) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.onOpenUI = fn
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

// Quit closes the tray from outside the menu.
func (t *Tray) Quit() {
	systray.Quit()
}

func (t *Tray) onReady() {
	systray.SetTitle("SignBridge")
	systray.SetTooltip("SignBridge sign language bridge")

	t.mu.Lock()
	t.menuToggle = systray.AddMenuItem(toggleTitle(t.enabled), "Toggle sign detection")
	systray.AddSeparator()

	t.menuPrediction = systray.AddMenuItem(predictionTitle(t.snapshot), "Last predicted sign")
	t.menuPrediction.Disable()
	systray.AddSeparator()

	t.menuListen = systray.AddMenuItem(t.snapshot.ListenLabel, "Recognize speech and show its sign")
	if !t.snapshot.ListenEnabled {
		t.menuListen.Disable()
	}
	t.mu.Unlock()

	menuSpeak := systray.AddMenuItem("Speak Prediction", "Read the prediction aloud")
	systray.AddSeparator()

	menuOpen := systray.AddMenuItem("Open UI...", "Open the camera view in a browser")
	systray.AddSeparator()

	menuQuit := systray.AddMenuItem("Quit", "Quit SignBridge")

	go func() {
		for {
			select {
			case <-t.menuToggle.ClickedCh:
				t.handleToggle()
			case <-t.menuListen.ClickedCh:
				t.call(func() func() { return t.onListen })
			case <-menuSpeak.ClickedCh:
				t.call(func() func() { return t.onSpeak })
			case <-menuOpen.ClickedCh:
				t.call(func() func() { return t.onOpenUI })
			case <-menuQuit.ClickedCh:
				t.handleQuit()
				return
			}
		}
	}()
}

func (t *Tray) onExit() {}

func (t *Tray) handleToggle() {
	t.mu.Lock()
	t.enabled = !t.enabled
	enabled := t.enabled
	if t.menuToggle != nil {
		t.menuToggle.SetTitle(toggleTitle(enabled))
	}
	callback := t.onToggle
	t.mu.Unlock()

	// Call the callback outside the lock to prevent deadlocks
	if callback != nil {
		callback(enabled)
	}
}

func (t *Tray) call(get func() func()) {
	t.mu.RLock()
	callback := get()
	t.mu.RUnlock()

	if callback != nil {
		callback()
	}
}

func (t *Tray) handleQuit() {
	t.call(func() func() { return t.onQuit })
	systray.Quit()
}

// Update mirrors a display snapshot into the menu. It is safe to call
// before Run.
func (t *Tray) Update(snap display.Snapshot) {
	t.mu.Lock()
	defer t.mu.Unlock()

	t.snapshot = snap
	if t.menuPrediction != nil {
		t.menuPrediction.SetTitle(predictionTitle(snap))
	}
	if t.menuListen != nil {
		t.menuListen.SetTitle(snap.ListenLabel)
		if snap.ListenEnabled {
			t.menuListen.Enable()
		} else {
			t.menuListen.Disable()
		}
	}
}

// Snapshot returns the last state passed to Update.
func (t *Tray) Snapshot() display.Snapshot {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.snapshot
}

// IsEnabled returns the current enabled state.
func (t *Tray) IsEnabled() bool {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.enabled
}

func toggleTitle(enabled bool) string {
	if enabled {
		return "● Enabled"
	}
	return "○ Disabled"
}

func predictionTitle(snap display.Snapshot) string {
	if snap.Prediction == "" || snap.Prediction == display.Placeholder {
		return "Last: none"
	}
	return "Last: " + snap.Prediction
}
