package hid

// Scancode is a layout-independent physical key position, numbered per the
// USB HID usage tables (the numbering SDL and most windowing layers expose).
type Scancode uint16

const (
	ScanA Scancode = 4 + iota
	ScanB
	ScanC
	ScanD
	ScanE
	ScanF
	ScanG
	ScanH
	ScanI
	ScanJ
	ScanK
	ScanL
	ScanM
	ScanN
	ScanO
	ScanP
	ScanQ
	ScanR
	ScanS
	ScanT
	ScanU
	ScanV
	ScanW
	ScanX
	ScanY
	ScanZ
)

const (
	Scan1 Scancode = 30 + iota
	Scan2
	Scan3
	Scan4
	Scan5
	Scan6
	Scan7
	Scan8
	Scan9
	Scan0
	ScanReturn
	ScanEscape
	ScanBackspace
	ScanTab
	ScanSpace
	ScanMinus
	ScanEquals
	ScanLeftBracket
	ScanRightBracket
	ScanBackslash
)

const (
	ScanSemicolon Scancode = 51 + iota
	ScanApostrophe
	ScanGrave
	ScanComma
	ScanPeriod
	ScanSlash
	ScanCapsLock
	ScanF1
	ScanF2
	ScanF3
	ScanF4
	ScanF5
	ScanF6
	ScanF7
	ScanF8
	ScanF9
	ScanF10
	ScanF11
	ScanF12
	ScanPrintScreen
	ScanScrollLock
	ScanPause
	ScanInsert
	ScanHome
	ScanPageUp
	ScanDelete
	ScanEnd
	ScanPageDown
	ScanRight
	ScanLeft
	ScanDown
	ScanUp
	ScanNumLockClear
	ScanKpDivide
	ScanKpMultiply
	ScanKpMinus
	ScanKpPlus
	ScanKpEnter
	ScanKp1
	ScanKp2
	ScanKp3
	ScanKp4
	ScanKp5
	ScanKp6
	ScanKp7
	ScanKp8
	ScanKp9
	ScanKp0
	ScanKpPeriod
	ScanNonUSBackslash
)

const (
	ScanF13 Scancode = 104 + iota
	ScanF14
	ScanF15
	ScanF16
	ScanF17
	ScanF18
	ScanF19
	ScanF20
	ScanF21
	ScanF22
	ScanF23
	ScanF24
	ScanExecute
	ScanHelp
)

const (
	ScanSelect  Scancode = 119
	ScanKpComma Scancode = 133
	ScanClear   Scancode = 156
)

const (
	ScanLCtrl Scancode = 224 + iota
	ScanLShift
	ScanLAlt
	ScanLGui
	ScanRCtrl
	ScanRShift
	ScanRAlt
	ScanRGui
)

const (
	ScanACSearch Scancode = 268 + iota
	ScanACHome
	ScanACBack
	ScanACForward
	ScanACStop
	ScanACRefresh
	ScanACBookmarks
)

// Keysym is the layout-resolved symbol for a key press. Only the handful of
// symbols used by reserved shortcut combos are named here.
type Keysym uint32

const (
	SymM Keysym = 'm'
	SymQ Keysym = 'q'
	SymS Keysym = 's'
	SymX Keysym = 'x'
	SymZ Keysym = 'z'
)
