package input

import (
	"github.com/lightview/lightview/internal/hid"
	"github.com/lightview/lightview/internal/logger"
	"github.com/lightview/lightview/internal/protocol"
	"github.com/lightview/lightview/internal/viewport"
)

func wireButton(b hid.MouseButton) uint8 {
	switch b {
	case hid.MouseLeft:
		return protocol.ButtonLeft
	case hid.MouseMiddle:
		return protocol.ButtonMiddle
	case hid.MouseRight:
		return protocol.ButtonRight
	case hid.MouseX1:
		return protocol.ButtonX1
	case hid.MouseX2:
		return protocol.ButtonX2
	}
	return 0
}

// HandleMouseButton forwards a button transition, or re-engages capture
// when the click lands on an uncaptured window.
func (t *Translator) HandleMouseButton(ev hid.MouseButtonEvent) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.stopped || ev.SyntheticTouch {
		return
	}

	if !t.captureActive {
		// Recapture on the release so the host never sees the click
		// that re-armed us.
		if ev.Button == hid.MouseLeft && !ev.Pressed {
			t.setCaptureLocked(true)
		}
		return
	}

	btn := wireButton(ev.Button)
	if btn == 0 {
		return
	}
	if err := t.host.SendMouseButton(btn, ev.Pressed); err != nil {
		logger.Warnf("mouse button: %v", err)
	}
}

// HandleMouseMotion accumulates relative deltas for the polling flush, or
// reports the absolute position against the letterboxed video region.
func (t *Translator) HandleMouseMotion(ev hid.MouseMotionEvent) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.stopped || ev.SyntheticTouch || !t.captureActive {
		return
	}

	if !t.absoluteMouse {
		t.deltaX.Add(int32(ev.DX))
		t.deltaY.Add(int32(ev.DY))
		return
	}

	winW, winH := t.win.Size()
	region := viewport.Fit(t.opts.StreamWidth, t.opts.StreamHeight, winW, winH)
	if region.Dx() <= 1 || region.Dy() <= 1 {
		return
	}
	x, y := viewport.ToStream(ev.X, ev.Y, t.opts.StreamWidth, t.opts.StreamHeight, region)
	if err := t.host.SendMousePosition(int16(x), int16(y),
		int16(t.opts.StreamWidth), int16(t.opts.StreamHeight)); err != nil {
		logger.Warnf("mouse position: %v", err)
	}
}

// flushMouseMotion runs on the polling task and drains accumulated deltas
// into one motion packet. Batching here keeps high-rate mice from flooding
// the control stream.
func (t *Translator) flushMouseMotion() {
	dx := t.deltaX.Swap(0)
	dy := t.deltaY.Swap(0)
	if dx == 0 && dy == 0 {
		return
	}
	if err := t.host.SendMouseMove(clampInt16(dx), clampInt16(dy)); err != nil {
		logger.Warnf("mouse move: %v", err)
	}
}

// HandleWheel forwards a scroll report in wheel detents.
func (t *Translator) HandleWheel(ev hid.WheelEvent) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.stopped || ev.SyntheticTouch || !t.captureActive || ev.Y == 0 {
		return
	}
	if err := t.host.SendScroll(clampInt16(int32(ev.Y) * protocol.WheelDelta)); err != nil {
		logger.Warnf("scroll: %v", err)
	}
}

func clampInt16(v int32) int16 {
	if v > 32767 {
		return 32767
	}
	if v < -32768 {
		return -32768
	}
	return int16(v)
}
