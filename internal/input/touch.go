package input

import (
	"math"

	"github.com/lightview/lightview/internal/hid"
	"github.com/lightview/lightview/internal/logger"
	"github.com/lightview/lightview/internal/protocol"
	"github.com/lightview/lightview/internal/task"
	"github.com/lightview/lightview/internal/viewport"
)

// HandleTouch turns direct touchscreen reports into pointer events: tap is
// left click, long press is right click, and a quick second tap lands where
// the first one did.
func (t *Translator) HandleTouch(ev hid.TouchEvent) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.stopped {
		return
	}

	switch ev.Phase {
	case hid.TouchDown:
		// Only the first finger drives the pointer.
		if ev.ActiveFingers > 1 {
			return
		}
	default:
		if ev.FingerID != t.lastTouchDown.fingerID {
			return
		}
	}

	// A finger that wanders is a drag, not a long press.
	if touchDist(ev.X, ev.Y, t.lastTouchDown.x, t.lastTouchDown.y) > longPressDelta {
		t.cancelLongPressLocked()
	}

	reposition := true
	if ev.Phase == hid.TouchDown &&
		ev.Timestamp.Sub(t.lastTouchUp.when) < doubleTapDelay &&
		touchDist(ev.X, ev.Y, t.lastTouchUp.x, t.lastTouchUp.y) <= doubleTapDelta {
		// Double-tap deadzone: keep the pointer still so the second
		// click hits the same target.
		reposition = false
	}
	if reposition {
		t.sendTouchPositionLocked(ev)
	}

	switch ev.Phase {
	case hid.TouchDown:
		t.lastTouchDown = touchPoint{fingerID: ev.FingerID, x: ev.X, y: ev.Y, when: ev.Timestamp}
		t.restartLongPressLocked()
		if err := t.host.SendMouseButton(protocol.ButtonLeft, true); err != nil {
			logger.Warnf("touch press: %v", err)
		}
	case hid.TouchUp:
		t.lastTouchUp = touchPoint{fingerID: ev.FingerID, x: ev.X, y: ev.Y, when: ev.Timestamp}
		t.cancelLongPressLocked()
		// Release both buttons; a long press may have swapped to right.
		if err := t.host.SendMouseButton(protocol.ButtonLeft, false); err != nil {
			logger.Warnf("touch release: %v", err)
		}
		if err := t.host.SendMouseButton(protocol.ButtonRight, false); err != nil {
			logger.Warnf("touch release: %v", err)
		}
	}
}

func (t *Translator) sendTouchPositionLocked(ev hid.TouchEvent) {
	winW, winH := t.win.Size()
	region := viewport.Fit(t.opts.StreamWidth, t.opts.StreamHeight, winW, winH)
	if region.Dx() <= 1 || region.Dy() <= 1 {
		return
	}
	x, y := viewport.ToStream(int(ev.X*float32(winW)), int(ev.Y*float32(winH)),
		t.opts.StreamWidth, t.opts.StreamHeight, region)
	if err := t.host.SendMousePosition(int16(x), int16(y),
		int16(t.opts.StreamWidth), int16(t.opts.StreamHeight)); err != nil {
		logger.Warnf("touch position: %v", err)
	}
}

// restartLongPressLocked arms the long-press timer. When it fires the held
// tap converts into a right-button press.
func (t *Translator) restartLongPressLocked() {
	t.cancelLongPressLocked()
	t.longPress = task.After(longPressDelay, func() {
		if err := t.host.SendMouseButton(protocol.ButtonLeft, false); err != nil {
			logger.Warnf("long press: %v", err)
		}
		if err := t.host.SendMouseButton(protocol.ButtonRight, true); err != nil {
			logger.Warnf("long press: %v", err)
		}
	})
}

func (t *Translator) cancelLongPressLocked() {
	if t.longPress != nil {
		t.longPress.Stop()
		t.longPress = nil
	}
}

func touchDist(x1, y1, x2, y2 float32) float64 {
	dx := float64(x1 - x2)
	dy := float64(y1 - y2)
	return math.Sqrt(dx*dx + dy*dy)
}
