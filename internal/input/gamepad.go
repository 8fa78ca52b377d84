package input

import (
	"errors"
	"math"
	"time"

	"github.com/lightview/lightview/internal/hid"
	"github.com/lightview/lightview/internal/logger"
	"github.com/lightview/lightview/internal/protocol"
	"github.com/lightview/lightview/internal/task"
)

const (
	emulationMultiplier = 4
	emulationDeadzone   = 2
	rumbleDuration      = 30 * time.Second
)

// padSlot is one entry of the four-slot gamepad table. The slot index is
// stable for the life of the attachment; a reconnected pad takes the lowest
// free slot.
type padSlot struct {
	ctrl  hid.Controller
	index int16

	buttons            uint32
	lt, rt             uint8
	lsX, lsY, rsX, rsY int16

	startDown time.Time
	emulating bool
	emu       *task.Task
}

var padButtonFlags = map[hid.ControllerButton]uint32{
	hid.ButtonA:             protocol.FlagA,
	hid.ButtonB:             protocol.FlagB,
	hid.ButtonX:             protocol.FlagX,
	hid.ButtonY:             protocol.FlagY,
	hid.ButtonBack:          protocol.FlagBack,
	hid.ButtonGuide:         protocol.FlagSpecial,
	hid.ButtonStart:         protocol.FlagPlay,
	hid.ButtonLeftStick:     protocol.FlagLeftStick,
	hid.ButtonRightStick:    protocol.FlagRightStick,
	hid.ButtonLeftShoulder:  protocol.FlagLB,
	hid.ButtonRightShoulder: protocol.FlagRB,
	hid.ButtonDpadUp:        protocol.FlagDpadUp,
	hid.ButtonDpadDown:      protocol.FlagDpadDown,
	hid.ButtonDpadLeft:      protocol.FlagDpadLeft,
	hid.ButtonDpadRight:     protocol.FlagDpadRight,
}

// supportedPadButtons is the button set advertised in arrival packets.
var supportedPadButtons uint32

func init() {
	for _, flag := range padButtonFlags {
		supportedPadButtons |= flag
	}
}

// AttachController claims a slot for a new gamepad and announces it to the
// host. The controller handle is owned by the table from here on.
func (t *Translator) AttachController(ctrl hid.Controller) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.stopped {
		return errors.New("translator stopped")
	}

	slot := -1
	for i := range t.pads {
		if t.pads[i].ctrl == nil {
			slot = i
			break
		}
	}
	if slot < 0 {
		return errors.New("no free gamepad slot")
	}

	s := &t.pads[slot]
	*s = padSlot{ctrl: ctrl, index: int16(slot)}
	if !t.opts.MultiController {
		s.index = 0
	} else {
		t.padMask |= 1 << uint(slot)
	}
	logger.Infof("gamepad %q attached as player %d", ctrl.Name(), s.index+1)

	caps := protocol.CapAnalogTriggers | protocol.CapRumble
	if err := t.host.SendControllerArrival(uint8(s.index), t.padMask,
		protocol.ControllerTypeUnknown, supportedPadButtons, caps); err != nil {
		return err
	}
	return nil
}

// DetachController drops the slot for a removed gamepad, zeroing its state
// on the host so no buttons stay wedged.
func (t *Translator) DetachController(instance int32) {
	t.mu.Lock()
	defer t.mu.Unlock()

	s := t.padByInstanceLocked(instance)
	if s == nil {
		return
	}
	logger.Infof("gamepad %q detached", s.ctrl.Name())

	t.stopEmulationLocked(s)
	if err := s.ctrl.Close(); err != nil {
		logger.Debugf("close gamepad: %v", err)
	}
	if t.opts.MultiController {
		t.padMask &^= 1 << uint(s.index)
	}
	number := s.index
	*s = padSlot{}

	if err := t.host.SendMultiController(number, t.padMask, 0, 0, 0, 0, 0, 0, 0); err != nil {
		logger.Warnf("gamepad removal: %v", err)
	}
}

func (t *Translator) padByInstanceLocked(instance int32) *padSlot {
	for i := range t.pads {
		if t.pads[i].ctrl != nil && t.pads[i].ctrl.InstanceID() == instance {
			return &t.pads[i]
		}
	}
	return nil
}

func (t *Translator) closePadLocked(s *padSlot) {
	if s.ctrl == nil {
		return
	}
	t.stopEmulationLocked(s)
	if err := s.ctrl.Close(); err != nil {
		logger.Debugf("close gamepad: %v", err)
	}
	*s = padSlot{}
}

// HandleControllerAxis updates one analog channel and reports the state.
func (t *Translator) HandleControllerAxis(ev hid.ControllerAxisEvent) {
	t.HandleControllerAxes([]hid.ControllerAxisEvent{ev})
}

// HandleControllerAxes applies a batch of axis reports and sends one state
// per affected pad. Sticks report two axes per motion, so coalescing halves
// the packet rate.
func (t *Translator) HandleControllerAxes(evs []hid.ControllerAxisEvent) {
	t.mu.Lock()
	defer t.mu.Unlock()

	touched := make(map[*padSlot]struct{}, 1)
	for _, ev := range evs {
		s := t.padByInstanceLocked(ev.Instance)
		if s == nil {
			continue
		}
		if applyAxis(s, ev) {
			touched[s] = struct{}{}
		}
	}

	for s := range touched {
		// In emulation mode the polling task samples the sticks instead.
		if !s.emulating {
			t.sendPadStateLocked(s)
		}
	}
}

func applyAxis(s *padSlot, ev hid.ControllerAxisEvent) bool {
	switch ev.Axis {
	case hid.AxisLeftX:
		s.lsX = ev.Value
	case hid.AxisLeftY:
		s.lsY = flipAxis(ev.Value)
	case hid.AxisRightX:
		s.rsX = ev.Value
	case hid.AxisRightY:
		s.rsY = flipAxis(ev.Value)
	case hid.AxisTriggerLeft:
		s.lt = triggerByte(ev.Value)
	case hid.AxisTriggerRight:
		s.rt = triggerByte(ev.Value)
	default:
		return false
	}
	return true
}

// flipAxis converts device Y (down positive) to wire Y (up positive).
func flipAxis(v int16) int16 {
	if v == -32768 {
		return 32767
	}
	return -v
}

func triggerByte(v int16) uint8 {
	if v <= 0 {
		return 0
	}
	return uint8(int32(v) * 255 / 32767)
}

// HandleControllerButton updates the button mask, watches for the Start
// long press that toggles mouse emulation and for the quit chord, and
// reports the state.
func (t *Translator) HandleControllerButton(ev hid.ControllerButtonEvent) {
	t.mu.Lock()
	defer t.mu.Unlock()
	s := t.padByInstanceLocked(ev.Instance)
	if s == nil {
		return
	}

	flag := padButtonFlags[ev.Button]
	if ev.Pressed {
		s.buttons |= flag
		if ev.Button == hid.ButtonStart {
			s.startDown = time.Now()
		}
	} else {
		s.buttons &^= flag
		if ev.Button == hid.ButtonStart &&
			!s.startDown.IsZero() && time.Since(s.startDown) >= emulationHoldTime &&
			(s.emulating || t.opts.GamepadAsMouse) {
			t.toggleEmulationLocked(s)
			return
		}
	}

	if s.emulating {
		t.emulatedButtonLocked(ev.Button, ev.Pressed)
		return
	}

	if s.buttons == protocol.QuitCombo {
		logger.Info("gamepad quit chord")
		if err := t.host.SendMultiController(s.index, t.padMask, 0, 0, 0, 0, 0, 0, 0); err != nil {
			logger.Warnf("gamepad state: %v", err)
		}
		t.win.RequestQuit()
		return
	}

	t.sendPadStateLocked(s)
}

func (t *Translator) sendPadStateLocked(s *padSlot) {
	if err := t.host.SendMultiController(s.index, t.padMask, s.buttons,
		s.lt, s.rt, s.lsX, s.lsY, s.rsX, s.rsY); err != nil {
		logger.Warnf("gamepad state: %v", err)
	}
}

func (t *Translator) toggleEmulationLocked(s *padSlot) {
	if s.emulating {
		logger.Info("gamepad mouse emulation off")
		t.stopEmulationLocked(s)
		t.win.NotifyMouseEmulation(false)
		return
	}

	logger.Info("gamepad mouse emulation on")
	// Flush the released Start first so the host does not see it stuck.
	t.sendPadStateLocked(s)
	s.emulating = true
	s.emu = task.Repeating(emulationInterval, func() { t.emulationTick(s) })
	t.win.NotifyMouseEmulation(true)
}

func (t *Translator) stopEmulationLocked(s *padSlot) {
	if s.emu != nil {
		s.emu.Stop()
		s.emu = nil
	}
	s.emulating = false
}

// emulationTick samples whichever stick is deflected further and moves the
// pointer with cubic acceleration.
func (t *Translator) emulationTick(s *padSlot) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.stopped || !s.emulating {
		return
	}

	rawX, rawY := s.lsX, flipAxis(s.lsY)
	if abs32(int32(s.rsX))+abs32(int32(s.rsY)) > abs32(int32(s.lsX))+abs32(int32(s.lsY)) {
		rawX, rawY = s.rsX, flipAxis(s.rsY)
	}

	dx := emulatedDelta(rawX)
	dy := emulatedDelta(rawY)
	if dx == 0 && dy == 0 {
		return
	}
	if err := t.host.SendMouseMove(clampInt16(dx), clampInt16(dy)); err != nil {
		logger.Warnf("emulated move: %v", err)
	}
}

// emulatedDelta maps a raw stick value to a per-tick pointer delta. The
// cube keeps small deflections precise while full deflection stays fast.
func emulatedDelta(raw int16) int32 {
	scaled := math.Pow(float64(raw)/32766*emulationMultiplier, 3)
	if math.Abs(scaled) <= emulationDeadzone {
		return 0
	}
	if scaled > 0 {
		return int32(scaled - emulationDeadzone)
	}
	return int32(scaled + emulationDeadzone)
}

func (t *Translator) emulatedButtonLocked(button hid.ControllerButton, pressed bool) {
	var mouse uint8
	switch button {
	case hid.ButtonA:
		mouse = protocol.ButtonLeft
	case hid.ButtonB:
		mouse = protocol.ButtonRight
	case hid.ButtonX:
		mouse = protocol.ButtonMiddle
	case hid.ButtonLeftShoulder:
		mouse = protocol.ButtonX1
	case hid.ButtonRightShoulder:
		mouse = protocol.ButtonX2
	case hid.ButtonDpadUp, hid.ButtonDpadDown:
		if pressed {
			amount := int16(protocol.WheelDelta)
			if button == hid.ButtonDpadDown {
				amount = -amount
			}
			if err := t.host.SendScroll(amount); err != nil {
				logger.Warnf("emulated scroll: %v", err)
			}
		}
		return
	default:
		return
	}
	if err := t.host.SendMouseButton(mouse, pressed); err != nil {
		logger.Warnf("emulated button: %v", err)
	}
}

// Rumble routes a host haptic event to the pad in that player slot.
func (t *Translator) Rumble(number int16, lowFreq, highFreq uint16) {
	t.mu.Lock()
	defer t.mu.Unlock()
	for i := range t.pads {
		s := &t.pads[i]
		if s.ctrl == nil || s.index != number {
			continue
		}
		if err := s.ctrl.Rumble(lowFreq, highFreq, rumbleDuration); err != nil {
			logger.Debugf("rumble: %v", err)
		}
		return
	}
	logger.Debugf("rumble for unattached player %d", number+1)
}

func abs32(v int32) int32 {
	if v < 0 {
		return -v
	}
	return v
}
