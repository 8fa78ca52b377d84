// Package protocol encodes client input events into the binary packets the
// streaming host consumes. Packet layouts are fixed by the host: a
// big-endian length prefix, a little-endian type magic, then fields whose
// byte order varies per packet type.
package protocol

// Control stream channel IDs.
const (
	ChannelGeneric     uint8 = 0x00
	ChannelUrgent      uint8 = 0x01
	ChannelKeyboard    uint8 = 0x02
	ChannelMouse       uint8 = 0x03
	ChannelPen         uint8 = 0x04
	ChannelTouch       uint8 = 0x05
	ChannelUTF8        uint8 = 0x06
	ChannelGamepadBase uint8 = 0x10
)

// Packet type magics. Gen5 hosts use shifted values for some packet types.
const (
	mouseMoveRelMagic     uint32 = 0x06
	mouseMoveRelMagicGen5 uint32 = 0x07
	mouseMoveAbsMagic     uint32 = 0x05
	scrollMagic           uint32 = 0x09
	scrollMagicGen5       uint32 = 0x0A
	hscrollMagic          uint32 = 0x550A
	multiControllerMagic  uint32 = 0x0C
	multiControllerGen5   uint32 = 0x1E
	controllerArrivalMag  uint32 = 0x5500
	touchMagic            uint32 = 0x5501
)

// Multi-controller packet framing words.
const (
	mcHeaderB uint16 = 0x1A
	mcMidB    uint16 = 0x14
	mcTailA   uint16 = 0x9C
	mcTailB   uint16 = 0x55
)

// Keyboard actions double as the packet magic.
const (
	keyActionDown uint32 = 0x03
	keyActionUp   uint32 = 0x04
)

// Mouse button actions double as the packet magic; gen5 hosts shift by one.
const (
	buttonActionPress   uint32 = 0x07
	buttonActionRelease uint32 = 0x08
)

// Mouse button codes on the wire.
const (
	ButtonLeft   uint8 = 0x01
	ButtonMiddle uint8 = 0x02
	ButtonRight  uint8 = 0x03
	ButtonX1     uint8 = 0x04
	ButtonX2     uint8 = 0x05
)

// Keyboard modifier bits on the wire.
const (
	ModifierShift uint8 = 0x01
	ModifierCtrl  uint8 = 0x02
	ModifierAlt   uint8 = 0x04
	ModifierMeta  uint8 = 0x08
)

// KeyFlagNonNormalized marks keycodes the client did not normalize to the
// left-hand variant. Only hosts that advertise the capability honor it.
const KeyFlagNonNormalized uint8 = 0x01

// Gamepad button flags. The low word is the classic set every host
// understands; extended buttons live above bit 15 and only reach hosts that
// accept the extended packet.
const (
	FlagDpadUp     uint32 = 0x0001
	FlagDpadDown   uint32 = 0x0002
	FlagDpadLeft   uint32 = 0x0004
	FlagDpadRight  uint32 = 0x0008
	FlagPlay       uint32 = 0x0010
	FlagBack       uint32 = 0x0020
	FlagLeftStick  uint32 = 0x0040
	FlagRightStick uint32 = 0x0080
	FlagLB         uint32 = 0x0100
	FlagRB         uint32 = 0x0200
	FlagSpecial    uint32 = 0x0400
	FlagA          uint32 = 0x1000
	FlagB          uint32 = 0x2000
	FlagX          uint32 = 0x4000
	FlagY          uint32 = 0x8000
	FlagMisc       uint32 = 0x010000
	FlagPaddle1    uint32 = 0x020000
	FlagPaddle2    uint32 = 0x040000
	FlagPaddle3    uint32 = 0x080000
	FlagPaddle4    uint32 = 0x100000
	FlagTouchpad   uint32 = 0x200000
)

// Controller types reported in the arrival packet.
const (
	ControllerTypeUnknown  uint8 = 0x00
	ControllerTypeXbox     uint8 = 0x01
	ControllerTypePS       uint8 = 0x02
	ControllerTypeNintendo uint8 = 0x03
)

// Controller capability bits reported in the arrival packet.
const (
	CapAnalogTriggers uint16 = 0x01
	CapRumble         uint16 = 0x02
	CapTriggerRumble  uint16 = 0x04
	CapTouchpad       uint16 = 0x08
)

// QuitCombo is the gamepad chord that ends the session when it is the exact
// button state.
const QuitCombo = FlagPlay | FlagBack | FlagLB | FlagRB

// WheelDelta is one detent of a classic scroll wheel.
const WheelDelta = 120

// Touch event types for hosts with native touch support.
const (
	TouchHover  uint8 = 0
	TouchDown   uint8 = 1
	TouchUp     uint8 = 2
	TouchMove   uint8 = 3
	TouchCancel uint8 = 4
)

// MaxGamepads is the number of controller slots the classic protocol
// exposes. Extended hosts accept more, but the client table stays at four so
// every host sees the same mapping.
const MaxGamepads = 4
