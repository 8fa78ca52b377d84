// Package hid defines the platform-neutral raw input events delivered by the
// windowing layer. The translator consumes these and emits protocol events;
// nothing in here touches the network.
package hid

import "time"

// Modifier bitmask accompanying key events.
const (
	ModCtrl uint8 = 1 << iota
	ModAlt
	ModShift
	ModMeta
)

// KeyEvent is a physical key transition. Scancode is the USB-HID style
// position code (layout independent); Keysym is the layout-resolved symbol
// for the same press, used only for shortcut matching so latin-layout users
// match the key they see printed on the cap.
type KeyEvent struct {
	Scancode  Scancode
	Keysym    Keysym
	Pressed   bool
	Repeat    bool
	Modifiers uint8
}

// MouseButton identifies a pointer button.
type MouseButton int

const (
	MouseLeft MouseButton = iota + 1
	MouseMiddle
	MouseRight
	MouseX1
	MouseX2
)

// MouseButtonEvent is a pointer button transition. SyntheticTouch marks
// events synthesized by the OS from touch input, which the mouse path must
// ignore because the touch path handles them.
type MouseButtonEvent struct {
	Button         MouseButton
	Pressed        bool
	SyntheticTouch bool
}

// MouseMotionEvent carries both the window-relative position and the raw
// relative deltas for one motion report.
type MouseMotionEvent struct {
	X, Y           int
	DX, DY         int
	SyntheticTouch bool
}

// WheelEvent is one scroll report; positive Y scrolls away from the user.
type WheelEvent struct {
	Y              int
	SyntheticTouch bool
}

// TouchPhase describes the kind of finger transition.
type TouchPhase int

const (
	TouchDown TouchPhase = iota
	TouchMove
	TouchUp
)

// TouchEvent is one finger report. X and Y are normalized to the window
// (0..1, may exceed that range mid-drag). ActiveFingers is the number of
// fingers currently on the device including this one.
type TouchEvent struct {
	Phase         TouchPhase
	FingerID      int64
	X, Y          float32
	Timestamp     time.Time
	ActiveFingers int
}

// ControllerButton uses the positional gamepad layout, in the same order as
// the wire protocol's button map.
type ControllerButton int

const (
	ButtonA ControllerButton = iota
	ButtonB
	ButtonX
	ButtonY
	ButtonBack
	ButtonGuide
	ButtonStart
	ButtonLeftStick
	ButtonRightStick
	ButtonLeftShoulder
	ButtonRightShoulder
	ButtonDpadUp
	ButtonDpadDown
	ButtonDpadLeft
	ButtonDpadRight

	buttonCount
)

// NumControllerButtons is the size of the positional button layout.
const NumControllerButtons = int(buttonCount)

// ControllerAxis identifies one analog channel.
type ControllerAxis int

const (
	AxisLeftX ControllerAxis = iota
	AxisLeftY
	AxisRightX
	AxisRightY
	AxisTriggerLeft
	AxisTriggerRight
)

// ControllerAxisEvent is one axis report with the raw signed 16-bit value.
type ControllerAxisEvent struct {
	Instance int32
	Axis     ControllerAxis
	Value    int16
}

// ControllerButtonEvent is one gamepad button transition.
type ControllerButtonEvent struct {
	Instance int32
	Button   ControllerButton
	Pressed  bool
}

// Controller is the open device handle behind a gamepad slot. Rumble returns
// an error when the device has no usable haptic path.
type Controller interface {
	Name() string
	InstanceID() int32
	Rumble(lowFreq, highFreq uint16, duration time.Duration) error
	Close() error
}
