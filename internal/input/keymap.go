package input

import "github.com/lightview/lightview/internal/hid"

// Windows virtual-key codes used as the host key encoding.
const (
	vk0       int16 = 0x30
	vkA       int16 = 0x41
	vkNumpad0 int16 = 0x60
	vkF1      int16 = 0x70
	vkF13     int16 = 0x7C
)

// vkDirect maps the scancodes that have no contiguous run onto their
// virtual-key codes.
var vkDirect = map[hid.Scancode]int16{
	hid.ScanBackspace:      0x08,
	hid.ScanTab:            0x09,
	hid.ScanClear:          0x0C,
	hid.ScanKpEnter:        0x0D,
	hid.ScanReturn:         0x0D,
	hid.ScanPause:          0x13,
	hid.ScanCapsLock:       0x14,
	hid.ScanEscape:         0x1B,
	hid.ScanSpace:          0x20,
	hid.ScanPageUp:         0x21,
	hid.ScanPageDown:       0x22,
	hid.ScanEnd:            0x23,
	hid.ScanHome:           0x24,
	hid.ScanLeft:           0x25,
	hid.ScanUp:             0x26,
	hid.ScanRight:          0x27,
	hid.ScanDown:           0x28,
	hid.ScanSelect:         0x29,
	hid.ScanExecute:        0x2B,
	hid.ScanPrintScreen:    0x2C,
	hid.ScanInsert:         0x2D,
	hid.ScanDelete:         0x2E,
	hid.ScanHelp:           0x2F,
	hid.ScanKpMultiply:     0x6A,
	hid.ScanKpPlus:         0x6B,
	hid.ScanKpComma:        0x6C,
	hid.ScanKpMinus:        0x6D,
	hid.ScanKpPeriod:       0x6E,
	hid.ScanKpDivide:       0x6F,
	hid.ScanNumLockClear:   0x90,
	hid.ScanScrollLock:     0x91,
	hid.ScanLShift:         0xA0,
	hid.ScanRShift:         0xA1,
	hid.ScanLCtrl:          0xA2,
	hid.ScanRCtrl:          0xA3,
	hid.ScanLAlt:           0xA4,
	hid.ScanRAlt:           0xA5,
	hid.ScanLGui:           0x5B,
	hid.ScanRGui:           0x5C,
	hid.ScanACBack:         0xA6,
	hid.ScanACForward:      0xA7,
	hid.ScanACRefresh:      0xA8,
	hid.ScanACStop:         0xA9,
	hid.ScanACSearch:       0xAA,
	hid.ScanACBookmarks:    0xAB,
	hid.ScanACHome:         0xAC,
	hid.ScanSemicolon:      0xBA,
	hid.ScanEquals:         0xBB,
	hid.ScanComma:          0xBC,
	hid.ScanMinus:          0xBD,
	hid.ScanPeriod:         0xBE,
	hid.ScanSlash:          0xBF,
	hid.ScanGrave:          0xC0,
	hid.ScanLeftBracket:    0xDB,
	hid.ScanBackslash:      0xDC,
	hid.ScanRightBracket:   0xDD,
	hid.ScanApostrophe:     0xDE,
	hid.ScanNonUSBackslash: 0xE2,
}

// keyCodeFor translates a physical scancode to the host virtual-key code.
// Returns 0 for keys the host has no encoding for.
func keyCodeFor(scan hid.Scancode) int16 {
	switch {
	// Digit rows run 1..9 with 0 at the end, so 0 needs its own case.
	case scan >= hid.Scan1 && scan <= hid.Scan9:
		return int16(scan-hid.Scan1) + vk0 + 1
	case scan == hid.Scan0:
		return vk0
	case scan >= hid.ScanA && scan <= hid.ScanZ:
		return int16(scan-hid.ScanA) + vkA
	case scan >= hid.ScanF1 && scan <= hid.ScanF12:
		return int16(scan-hid.ScanF1) + vkF1
	case scan >= hid.ScanF13 && scan <= hid.ScanF24:
		return int16(scan-hid.ScanF13) + vkF13
	case scan >= hid.ScanKp1 && scan <= hid.ScanKp9:
		return int16(scan-hid.ScanKp1) + vkNumpad0 + 1
	case scan == hid.ScanKp0:
		return vkNumpad0
	}
	return vkDirect[scan]
}

// wireModifiers converts the event modifier mask to the wire encoding.
func wireModifiers(mods uint8) uint8 {
	var out uint8
	if mods&hid.ModCtrl != 0 {
		out |= 0x02
	}
	if mods&hid.ModAlt != 0 {
		out |= 0x04
	}
	if mods&hid.ModShift != 0 {
		out |= 0x01
	}
	if mods&hid.ModMeta != 0 {
		out |= 0x08
	}
	return out
}
