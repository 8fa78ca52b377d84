// Package input translates raw windowing events into host input packets:
// keyboard mapping and shortcut combos, mouse capture and batching, touch
// gestures and the gamepad table with its mouse emulation mode.
package input

import (
	"sync"
	"sync/atomic"
	"time"

	"github.com/lightview/lightview/internal/hid"
	"github.com/lightview/lightview/internal/logger"
	"github.com/lightview/lightview/internal/protocol"
	"github.com/lightview/lightview/internal/task"
)

const (
	defaultPollingInterval = 5 * time.Millisecond

	longPressDelay = 650 * time.Millisecond
	// Normalized window distance a finger may travel before a long press
	// stops counting as one.
	longPressDelta = 0.01

	doubleTapDelay = 250 * time.Millisecond
	doubleTapDelta = 0.025

	emulationHoldTime = 750 * time.Millisecond
	emulationInterval = 50 * time.Millisecond
)

// Host is the packet stream the translator feeds.
type Host interface {
	SendKeyEvent(keyCode int16, down bool, modifiers, flags uint8) error
	SendMouseMove(deltaX, deltaY int16) error
	SendMousePosition(x, y, refWidth, refHeight int16) error
	SendMouseButton(button uint8, pressed bool) error
	SendScroll(amount int16) error
	SendMultiController(number int16, activeMask uint16, buttonFlags uint32,
		leftTrigger, rightTrigger uint8, leftStickX, leftStickY, rightStickX, rightStickY int16) error
	SendControllerArrival(number uint8, activeMask uint16,
		controllerType uint8, supportedButtons uint32, capabilities uint16) error
}

// Window is the windowing-side control surface: capture, cursor, and the
// session actions bound to shortcut combos.
type Window interface {
	Size() (int, int)
	// SetPointerCapture grabs or releases relative pointer input. An
	// error on grab switches the translator to fake capture, where it
	// keeps handling input but only hides the cursor.
	SetPointerCapture(active bool) error
	ShowCursor(show bool)
	ToggleFullscreen()
	ToggleStatsOverlay()
	NotifyMouseEmulation(active bool)
	RequestQuit()
}

// Options fix the translator's behavior for one session.
type Options struct {
	StreamWidth  int
	StreamHeight int

	// AbsoluteMouse reports positions instead of deltas, for remote
	// desktop style usage without pointer capture.
	AbsoluteMouse bool
	// MultiController exposes all four gamepad slots; otherwise every
	// pad reports as player one.
	MultiController bool
	// GamepadAsMouse allows holding Start to drive the pointer from a
	// gamepad.
	GamepadAsMouse bool
	// HasWindowManager gates the combos that only make sense with one
	// (capture toggle, fullscreen, mouse mode).
	HasWindowManager bool
	// PollingInterval overrides the relative mouse flush interval.
	PollingInterval time.Duration
	// InitialGamepadMask seeds the attached-pad mask so pads present at
	// stream start do not flap on the host while they enumerate.
	InitialGamepadMask uint16
}

type touchPoint struct {
	fingerID int64
	x, y     float32
	when     time.Time
}

// Translator owns all input state for one session. Event handlers are
// called from the windowing loop; timers run on their own goroutines.
type Translator struct {
	host Host
	win  Window
	opts Options

	mu            sync.Mutex
	keysDown      map[int16]struct{}
	captureActive bool
	fakeCapture   bool
	absoluteMouse bool
	stopped       bool

	deltaX atomic.Int32
	deltaY atomic.Int32
	poller *task.Task

	lastTouchDown touchPoint
	lastTouchUp   touchPoint
	longPress     *task.Task

	pads    [protocol.MaxGamepads]padSlot
	padMask uint16
}

// NewTranslator builds a translator. Call Start to begin relative mouse
// polling and Close to tear everything down.
func NewTranslator(host Host, win Window, opts Options) *Translator {
	if opts.PollingInterval <= 0 {
		opts.PollingInterval = defaultPollingInterval
	}
	mask := opts.InitialGamepadMask
	if !opts.MultiController {
		mask = 0x1
	}
	return &Translator{
		host:          host,
		win:           win,
		opts:          opts,
		keysDown:      make(map[int16]struct{}),
		absoluteMouse: opts.AbsoluteMouse,
		padMask:       mask,
	}
}

// Start grabs the pointer and begins the relative motion flush loop.
func (t *Translator) Start() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.setCaptureLocked(true)
	t.poller = task.Repeating(t.opts.PollingInterval, t.flushMouseMotion)
}

// Close stops timers and releases every held key and gamepad resource.
func (t *Translator) Close() {
	t.mu.Lock()
	if t.stopped {
		t.mu.Unlock()
		return
	}
	t.stopped = true
	poller := t.poller
	longPress := t.longPress
	t.raiseAllKeysLocked()
	for i := range t.pads {
		t.closePadLocked(&t.pads[i])
	}
	t.setCaptureLocked(false)
	t.mu.Unlock()

	if poller != nil {
		poller.Stop()
		poller.Wait()
	}
	if longPress != nil {
		longPress.Stop()
	}
}

// HandleKey processes one key transition, shortcut combos first.
func (t *Translator) HandleKey(ev hid.KeyEvent) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.stopped {
		return
	}

	const comboMods = hid.ModCtrl | hid.ModAlt | hid.ModShift
	if ev.Pressed && ev.Modifiers&comboMods == comboMods {
		if t.handleComboLocked(ev) {
			return
		}
	}

	if !t.captureActive {
		return
	}
	if ev.Repeat {
		// The host synthesizes its own key repeat.
		return
	}

	keyCode := keyCodeFor(ev.Scancode)
	if keyCode == 0 {
		logger.Debugf("unmapped key: scancode %d", ev.Scancode)
		return
	}

	if ev.Pressed {
		t.keysDown[keyCode] = struct{}{}
	} else {
		delete(t.keysDown, keyCode)
	}

	if err := t.host.SendKeyEvent(keyCode, ev.Pressed, wireModifiers(ev.Modifiers), 0); err != nil {
		logger.Warnf("key event: %v", err)
	}
}

// handleComboLocked matches the reserved Ctrl+Alt+Shift combos. Keysyms are
// tested before scancodes so latin layouts match the printed cap; all
// keysym tests run before any scancode test to avoid cross-combo
// collisions.
func (t *Translator) handleComboLocked(ev hid.KeyEvent) bool {
	wm := t.opts.HasWindowManager

	switch {
	case ev.Keysym == hid.SymQ:
		logger.Info("quit combo")
		t.win.RequestQuit()
	case ev.Keysym == hid.SymZ && wm:
		logger.Info("capture toggle combo")
		t.setCaptureLocked(!t.captureActive)
		t.raiseAllKeysLocked()
	case ev.Keysym == hid.SymM && wm:
		logger.Info("mouse mode toggle combo")
		t.toggleMouseModeLocked()
	case ev.Keysym == hid.SymX && wm:
		logger.Info("fullscreen combo")
		t.win.ToggleFullscreen()
		t.raiseAllKeysLocked()
	case ev.Keysym == hid.SymS:
		logger.Info("stats overlay combo")
		t.win.ToggleStatsOverlay()
		t.raiseAllKeysLocked()
	case ev.Scancode == hid.ScanQ:
		logger.Info("quit combo (scancode)")
		t.win.RequestQuit()
	case ev.Scancode == hid.ScanZ && wm:
		logger.Info("capture toggle combo (scancode)")
		t.setCaptureLocked(!t.captureActive)
		t.raiseAllKeysLocked()
	case ev.Scancode == hid.ScanM && wm:
		logger.Info("mouse mode toggle combo (scancode)")
		t.toggleMouseModeLocked()
	case ev.Scancode == hid.ScanX && wm:
		logger.Info("fullscreen combo (scancode)")
		t.win.ToggleFullscreen()
		t.raiseAllKeysLocked()
	case ev.Scancode == hid.ScanS:
		logger.Info("stats overlay combo (scancode)")
		t.win.ToggleStatsOverlay()
		t.raiseAllKeysLocked()
	default:
		return false
	}
	return true
}

func (t *Translator) toggleMouseModeLocked() {
	// Bounce capture so the pointer mode change takes effect cleanly.
	t.setCaptureLocked(false)
	t.absoluteMouse = !t.absoluteMouse
	t.setCaptureLocked(true)
}

// raiseAllKeysLocked releases every tracked key on the host. Shortcuts
// that steal focus or capture would otherwise leave keys stuck down.
func (t *Translator) raiseAllKeysLocked() {
	if len(t.keysDown) == 0 {
		return
	}
	logger.Debugf("raising %d keys", len(t.keysDown))
	for keyCode := range t.keysDown {
		if err := t.host.SendKeyEvent(keyCode, false, 0, 0); err != nil {
			logger.Warnf("raise key: %v", err)
		}
	}
	t.keysDown = make(map[int16]struct{})
}

// CaptureActive reports whether input is currently being forwarded.
func (t *Translator) CaptureActive() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.captureActive
}

func (t *Translator) setCaptureLocked(active bool) {
	if active {
		// Absolute mode never grabs the pointer; relative mode falls
		// back to fake capture when the grab fails.
		if t.absoluteMouse || t.win.SetPointerCapture(true) != nil {
			t.win.ShowCursor(false)
			t.fakeCapture = true
		}
	} else {
		if t.fakeCapture {
			t.win.ShowCursor(true)
			t.fakeCapture = false
		}
		if err := t.win.SetPointerCapture(false); err != nil {
			logger.Debugf("release capture: %v", err)
		}
	}
	t.captureActive = active
}

// NotifyFocusLost releases capture (outside fullscreen concerns, which the
// window layer owns) and raises held keys so Alt+Tab cannot wedge them.
func (t *Translator) NotifyFocusLost() {
	t.mu.Lock()
	defer t.mu.Unlock()
	if !t.absoluteMouse {
		t.setCaptureLocked(false)
	}
	t.raiseAllKeysLocked()
}

// NotifyFocusGained re-engages capture when the window comes back while a
// button is already down inside it.
func (t *Translator) NotifyFocusGained(pointerInside, buttonDown bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if pointerInside && buttonDown {
		t.setCaptureLocked(true)
	}
}
