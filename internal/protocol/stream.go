package protocol

import (
	"encoding/binary"
	"errors"
	"fmt"
	"math"
	"sync"
)

// ErrClosed is returned by every send after Close.
var ErrClosed = errors.New("protocol: stream closed")

// Sender carries an encoded packet to the host on one control channel.
// Unreliable sends may be dropped under pressure.
type Sender interface {
	Send(channel uint8, reliable bool, payload []byte) error
}

// Options describe the connected host's protocol dialect.
type Options struct {
	// Gen5 selects the shifted packet magics newer hosts expect.
	Gen5 bool
	// Extended hosts accept the extended controller packet, native touch
	// and per-key flags. Non-extended hosts need modifier fixups and only
	// see the low button word.
	Extended bool
	// BatchedScroll accumulates high resolution scroll into whole wheel
	// detents before sending, for hosts that reject partial detents.
	BatchedScroll bool
}

// Stream encodes input events and hands them to the Sender. All methods are
// safe for concurrent use.
type Stream struct {
	mu     sync.Mutex
	send   Sender
	opts   Options
	scroll int
	closed bool
}

// NewStream wires a packet encoder to a transport.
func NewStream(send Sender, opts Options) *Stream {
	return &Stream{send: send, opts: opts}
}

// Close stops the stream. Further sends fail with ErrClosed.
func (s *Stream) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed = true
}

// SendKeyEvent sends one key transition. keyCode is the host virtual-key
// code, modifiers the wire modifier bits, flags the extended key flags.
func (s *Stream) SendKeyEvent(keyCode int16, down bool, modifiers, flags uint8) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return ErrClosed
	}

	if !s.opts.Extended {
		modifiers = fixModifiers(keyCode, modifiers)
		flags = 0
	}

	action := keyActionUp
	if down {
		action = keyActionDown
	}

	buf := make([]byte, 14)
	binary.BigEndian.PutUint32(buf[0:4], 10)
	binary.LittleEndian.PutUint32(buf[4:8], action)
	buf[8] = flags
	binary.LittleEndian.PutUint16(buf[9:11], uint16(keyCode))
	buf[11] = modifiers
	if err := s.send.Send(ChannelKeyboard, true, buf); err != nil {
		return fmt.Errorf("send key event: %w", err)
	}
	return nil
}

// SendMouseMove sends one relative motion report.
func (s *Stream) SendMouseMove(deltaX, deltaY int16) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return ErrClosed
	}
	if deltaX == 0 && deltaY == 0 {
		return nil
	}

	magic := mouseMoveRelMagic
	if s.opts.Gen5 {
		magic = mouseMoveRelMagicGen5
	}

	buf := make([]byte, 12)
	binary.BigEndian.PutUint32(buf[0:4], 8)
	binary.LittleEndian.PutUint32(buf[4:8], magic)
	binary.BigEndian.PutUint16(buf[8:10], uint16(deltaX))
	binary.BigEndian.PutUint16(buf[10:12], uint16(deltaY))
	if err := s.send.Send(ChannelMouse, true, buf); err != nil {
		return fmt.Errorf("send mouse move: %w", err)
	}
	return nil
}

// SendMousePosition sends an absolute position scaled against the given
// reference size. The host maps it onto the stream resolution itself.
func (s *Stream) SendMousePosition(x, y, refWidth, refHeight int16) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return ErrClosed
	}
	if refWidth <= 1 || refHeight <= 1 {
		return fmt.Errorf("send mouse position: bad reference size %dx%d", refWidth, refHeight)
	}

	buf := make([]byte, 18)
	binary.BigEndian.PutUint32(buf[0:4], 14)
	binary.LittleEndian.PutUint32(buf[4:8], mouseMoveAbsMagic)
	binary.BigEndian.PutUint16(buf[8:10], uint16(x))
	binary.BigEndian.PutUint16(buf[10:12], uint16(y))
	binary.BigEndian.PutUint16(buf[12:14], 0)
	binary.BigEndian.PutUint16(buf[14:16], uint16(refWidth-1))
	binary.BigEndian.PutUint16(buf[16:18], uint16(refHeight-1))
	if err := s.send.Send(ChannelMouse, true, buf); err != nil {
		return fmt.Errorf("send mouse position: %w", err)
	}
	return nil
}

// SendMouseButton sends one button transition. button is a wire button code.
func (s *Stream) SendMouseButton(button uint8, pressed bool) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return ErrClosed
	}

	magic := buttonActionRelease
	if pressed {
		magic = buttonActionPress
	}
	if s.opts.Gen5 {
		magic++
	}

	buf := make([]byte, 9)
	binary.BigEndian.PutUint32(buf[0:4], 5)
	binary.LittleEndian.PutUint32(buf[4:8], magic)
	buf[8] = button
	if err := s.send.Send(ChannelMouse, true, buf); err != nil {
		return fmt.Errorf("send mouse button: %w", err)
	}
	return nil
}

// SendScroll sends vertical scroll in high resolution units, where one wheel
// detent is WheelDelta. Hosts that only take whole detents get the amount
// batched until a detent accumulates.
func (s *Stream) SendScroll(amount int16) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return ErrClosed
	}
	if amount == 0 {
		return nil
	}

	if !s.opts.BatchedScroll {
		return s.sendScrollLocked(amount)
	}

	// Direction change discards the stale remainder.
	if (s.scroll < 0) != (amount < 0) {
		s.scroll = 0
	}
	s.scroll += int(amount)
	for s.scroll >= WheelDelta || s.scroll <= -WheelDelta {
		step := int16(WheelDelta)
		if s.scroll < 0 {
			step = -step
		}
		if err := s.sendScrollLocked(step); err != nil {
			return err
		}
		s.scroll -= int(step)
	}
	return nil
}

func (s *Stream) sendScrollLocked(amount int16) error {
	magic := scrollMagic
	if s.opts.Gen5 {
		magic = scrollMagicGen5
	}

	buf := make([]byte, 14)
	binary.BigEndian.PutUint32(buf[0:4], 10)
	binary.LittleEndian.PutUint32(buf[4:8], magic)
	binary.BigEndian.PutUint16(buf[8:10], uint16(amount))
	binary.BigEndian.PutUint16(buf[10:12], uint16(amount))
	binary.BigEndian.PutUint16(buf[12:14], 0)
	if err := s.send.Send(ChannelMouse, true, buf); err != nil {
		return fmt.Errorf("send scroll: %w", err)
	}
	return nil
}

// SendHScroll sends horizontal scroll. Only extended hosts accept it.
func (s *Stream) SendHScroll(amount int16) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return ErrClosed
	}
	if !s.opts.Extended || amount == 0 {
		return nil
	}

	buf := make([]byte, 10)
	binary.BigEndian.PutUint32(buf[0:4], 6)
	binary.LittleEndian.PutUint32(buf[4:8], hscrollMagic)
	binary.BigEndian.PutUint16(buf[8:10], uint16(amount))
	if err := s.send.Send(ChannelMouse, true, buf); err != nil {
		return fmt.Errorf("send hscroll: %w", err)
	}
	return nil
}

// SendMultiController sends the full state of one gamepad slot along with
// the mask of attached slots.
func (s *Stream) SendMultiController(number int16, activeMask uint16, buttonFlags uint32,
	leftTrigger, rightTrigger uint8, leftStickX, leftStickY, rightStickX, rightStickY int16) error {

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return ErrClosed
	}

	if !s.opts.Extended {
		number %= MaxGamepads
		activeMask &= 0xF
		// Non-extended hosts only see the low word; surface the share
		// button there so it is not silently lost.
		if buttonFlags&FlagMisc != 0 {
			buttonFlags |= FlagSpecial
		}
	}

	magic := multiControllerMagic
	if s.opts.Gen5 {
		magic = multiControllerGen5
	}

	buf := make([]byte, 30)
	binary.BigEndian.PutUint32(buf[0:4], 26)
	binary.LittleEndian.PutUint32(buf[4:8], magic)
	binary.LittleEndian.PutUint16(buf[8:10], mcHeaderB)
	binary.LittleEndian.PutUint16(buf[10:12], uint16(number))
	binary.LittleEndian.PutUint16(buf[12:14], activeMask)
	binary.LittleEndian.PutUint16(buf[14:16], mcMidB)
	binary.LittleEndian.PutUint16(buf[16:18], uint16(buttonFlags&0xFFFF))
	buf[18] = leftTrigger
	buf[19] = rightTrigger
	binary.LittleEndian.PutUint16(buf[20:22], uint16(leftStickX))
	binary.LittleEndian.PutUint16(buf[22:24], uint16(leftStickY))
	binary.LittleEndian.PutUint16(buf[24:26], uint16(rightStickX))
	binary.LittleEndian.PutUint16(buf[26:28], uint16(rightStickY))
	binary.LittleEndian.PutUint16(buf[28:30], mcTailA)

	if s.opts.Extended {
		buf = append(buf, 0, 0, 0, 0)
		binary.LittleEndian.PutUint16(buf[30:32], uint16(buttonFlags>>16))
		binary.LittleEndian.PutUint16(buf[32:34], mcTailB)
		binary.BigEndian.PutUint32(buf[0:4], 30)
	}

	channel := ChannelGamepadBase + uint8(number)
	if err := s.send.Send(channel, true, buf); err != nil {
		return fmt.Errorf("send controller state: %w", err)
	}
	return nil
}

// SendControllerArrival announces a freshly attached gamepad. Extended hosts
// get the capability packet; every host gets the empty state report that
// materializes the slot.
func (s *Stream) SendControllerArrival(number uint8, activeMask uint16,
	controllerType uint8, supportedButtons uint32, capabilities uint16) error {

	if s.extended() {
		s.mu.Lock()
		if s.closed {
			s.mu.Unlock()
			return ErrClosed
		}
		buf := make([]byte, 16)
		binary.BigEndian.PutUint32(buf[0:4], 12)
		binary.LittleEndian.PutUint32(buf[4:8], controllerArrivalMag)
		buf[8] = number
		buf[9] = controllerType
		binary.LittleEndian.PutUint16(buf[10:12], capabilities)
		binary.LittleEndian.PutUint32(buf[12:16], supportedButtons)
		err := s.send.Send(ChannelGamepadBase+number, true, buf)
		s.mu.Unlock()
		if err != nil {
			return fmt.Errorf("send controller arrival: %w", err)
		}
	}

	return s.SendMultiController(int16(number), activeMask, 0, 0, 0, 0, 0, 0, 0)
}

// SendTouch sends one native touch report. Hover and move reports ride the
// unreliable path since a dropped one is superseded by the next.
func (s *Stream) SendTouch(eventType uint8, pointerID uint32, x, y, pressure float32) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return ErrClosed
	}
	if !s.opts.Extended {
		return nil
	}

	buf := make([]byte, 40)
	binary.BigEndian.PutUint32(buf[0:4], 36)
	binary.LittleEndian.PutUint32(buf[4:8], touchMagic)
	buf[8] = eventType
	binary.LittleEndian.PutUint32(buf[12:16], pointerID)
	putNetfloat(buf[16:20], x)
	putNetfloat(buf[20:24], y)
	putNetfloat(buf[24:28], pressure)

	reliable := eventType != TouchHover && eventType != TouchMove
	if err := s.send.Send(ChannelTouch, reliable, buf); err != nil {
		return fmt.Errorf("send touch: %w", err)
	}
	return nil
}

func (s *Stream) extended() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.opts.Extended
}

// putNetfloat writes a float32 in the host's little-endian wire encoding.
func putNetfloat(b []byte, v float32) {
	binary.LittleEndian.PutUint32(b, math.Float32bits(v))
}

// fixModifiers reconciles the modifier bits with the key they describe for
// hosts that track modifier state from the bits alone. Pressing a modifier
// must include its own bit; releasing one must exclude it.
func fixModifiers(keyCode int16, modifiers uint8) uint8 {
	switch keyCode & 0xFF {
	case 0x5B, 0x5C: // VK_LWIN, VK_RWIN
		modifiers &^= ModifierMeta
	case 0xA0: // VK_LSHIFT
		modifiers |= ModifierShift
	case 0xA1: // VK_RSHIFT
		modifiers &^= ModifierShift
	case 0xA2: // VK_LCONTROL
		modifiers |= ModifierCtrl
	case 0xA3: // VK_RCONTROL
		modifiers &^= ModifierCtrl
	case 0xA4: // VK_LMENU
		modifiers |= ModifierAlt
	case 0xA5: // VK_RMENU
		modifiers &^= ModifierAlt
	}
	return modifiers
}
