package protocol

import (
	"encoding/binary"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type capturedPacket struct {
	channel  uint8
	reliable bool
	payload  []byte
}

type fakeSender struct {
	packets []capturedPacket
}

func (f *fakeSender) Send(channel uint8, reliable bool, payload []byte) error {
	f.packets = append(f.packets, capturedPacket{channel, reliable, payload})
	return nil
}

func TestSendKeyEvent_Layout(t *testing.T) {
	sender := &fakeSender{}
	s := NewStream(sender, Options{Extended: true})

	require.NoError(t, s.SendKeyEvent(0x41, true, ModifierCtrl, KeyFlagNonNormalized))
	require.Len(t, sender.packets, 1)

	p := sender.packets[0]
	assert.Equal(t, ChannelKeyboard, p.channel)
	assert.True(t, p.reliable)
	require.Len(t, p.payload, 14)
	assert.Equal(t, uint32(10), binary.BigEndian.Uint32(p.payload[0:4]))
	assert.Equal(t, keyActionDown, binary.LittleEndian.Uint32(p.payload[4:8]))
	assert.Equal(t, KeyFlagNonNormalized, p.payload[8])
	assert.Equal(t, uint16(0x41), binary.LittleEndian.Uint16(p.payload[9:11]))
	assert.Equal(t, ModifierCtrl, p.payload[11])
}

func TestSendKeyEvent_ModifierFixups(t *testing.T) {
	tests := []struct {
		name    string
		keyCode int16
		mods    uint8
		want    uint8
	}{
		{"lshift_press_includes_shift", 0xA0, 0, ModifierShift},
		{"rshift_release_excludes_shift", 0xA1, ModifierShift, 0},
		{"lctrl_includes_ctrl", 0xA2, 0, ModifierCtrl},
		{"ralt_excludes_alt", 0xA5, ModifierAlt, 0},
		{"lwin_excludes_meta", 0x5B, ModifierMeta, 0},
		{"plain_key_untouched", 0x41, ModifierShift, ModifierShift},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			sender := &fakeSender{}
			s := NewStream(sender, Options{})
			require.NoError(t, s.SendKeyEvent(tt.keyCode, true, tt.mods, 0))
			require.Len(t, sender.packets, 1)
			assert.Equal(t, tt.want, sender.packets[0].payload[11])
		})
	}
}

func TestSendKeyEvent_FlagsDroppedForClassicHosts(t *testing.T) {
	sender := &fakeSender{}
	s := NewStream(sender, Options{})
	require.NoError(t, s.SendKeyEvent(0x41, true, 0, KeyFlagNonNormalized))
	assert.Equal(t, uint8(0), sender.packets[0].payload[8])
}

func TestSendMouseMove(t *testing.T) {
	sender := &fakeSender{}
	s := NewStream(sender, Options{})

	require.NoError(t, s.SendMouseMove(-3, 7))
	require.Len(t, sender.packets, 1)

	p := sender.packets[0]
	assert.Equal(t, ChannelMouse, p.channel)
	require.Len(t, p.payload, 12)
	assert.Equal(t, mouseMoveRelMagic, binary.LittleEndian.Uint32(p.payload[4:8]))
	assert.Equal(t, int16(-3), int16(binary.BigEndian.Uint16(p.payload[8:10])))
	assert.Equal(t, int16(7), int16(binary.BigEndian.Uint16(p.payload[10:12])))

	// Zero motion produces no packet.
	require.NoError(t, s.SendMouseMove(0, 0))
	assert.Len(t, sender.packets, 1)
}

func TestSendMouseMove_Gen5Magic(t *testing.T) {
	sender := &fakeSender{}
	s := NewStream(sender, Options{Gen5: true})
	require.NoError(t, s.SendMouseMove(1, 1))
	assert.Equal(t, mouseMoveRelMagicGen5, binary.LittleEndian.Uint32(sender.packets[0].payload[4:8]))
}

func TestSendMousePosition(t *testing.T) {
	sender := &fakeSender{}
	s := NewStream(sender, Options{})

	require.NoError(t, s.SendMousePosition(100, 200, 1920, 1080))
	p := sender.packets[0]
	require.Len(t, p.payload, 18)
	assert.Equal(t, uint32(14), binary.BigEndian.Uint32(p.payload[0:4]))
	assert.Equal(t, mouseMoveAbsMagic, binary.LittleEndian.Uint32(p.payload[4:8]))
	assert.Equal(t, uint16(100), binary.BigEndian.Uint16(p.payload[8:10]))
	assert.Equal(t, uint16(200), binary.BigEndian.Uint16(p.payload[10:12]))
	assert.Equal(t, uint16(1919), binary.BigEndian.Uint16(p.payload[14:16]))
	assert.Equal(t, uint16(1079), binary.BigEndian.Uint16(p.payload[16:18]))

	assert.Error(t, s.SendMousePosition(0, 0, 0, 0))
}

func TestSendMouseButton_ActionIsMagic(t *testing.T) {
	sender := &fakeSender{}
	s := NewStream(sender, Options{})

	require.NoError(t, s.SendMouseButton(ButtonRight, true))
	require.NoError(t, s.SendMouseButton(ButtonRight, false))
	require.Len(t, sender.packets, 2)

	assert.Equal(t, buttonActionPress, binary.LittleEndian.Uint32(sender.packets[0].payload[4:8]))
	assert.Equal(t, buttonActionRelease, binary.LittleEndian.Uint32(sender.packets[1].payload[4:8]))
	assert.Equal(t, ButtonRight, sender.packets[0].payload[8])

	gen5 := NewStream(sender, Options{Gen5: true})
	require.NoError(t, gen5.SendMouseButton(ButtonLeft, true))
	assert.Equal(t, buttonActionPress+1, binary.LittleEndian.Uint32(sender.packets[2].payload[4:8]))
}

func TestSendScroll_Batched(t *testing.T) {
	sender := &fakeSender{}
	s := NewStream(sender, Options{BatchedScroll: true})

	// Below one detent: nothing goes out yet.
	require.NoError(t, s.SendScroll(100))
	assert.Empty(t, sender.packets)

	// Crossing the detent flushes exactly one wheel click.
	require.NoError(t, s.SendScroll(30))
	require.Len(t, sender.packets, 1)
	assert.Equal(t, int16(WheelDelta), int16(binary.BigEndian.Uint16(sender.packets[0].payload[8:10])))

	// Direction change discards the 10 left over.
	require.NoError(t, s.SendScroll(-120))
	require.Len(t, sender.packets, 2)
	assert.Equal(t, int16(-WheelDelta), int16(binary.BigEndian.Uint16(sender.packets[1].payload[8:10])))
}

func TestSendScroll_Unbatched(t *testing.T) {
	sender := &fakeSender{}
	s := NewStream(sender, Options{})
	require.NoError(t, s.SendScroll(17))
	require.Len(t, sender.packets, 1)
	assert.Equal(t, int16(17), int16(binary.BigEndian.Uint16(sender.packets[0].payload[8:10])))
}

func TestSendMultiController_Classic(t *testing.T) {
	sender := &fakeSender{}
	s := NewStream(sender, Options{})

	flags := FlagA | FlagMisc
	require.NoError(t, s.SendMultiController(2, 0x7, flags, 10, 20, -100, 200, -300, 400))
	require.Len(t, sender.packets, 1)

	p := sender.packets[0]
	assert.Equal(t, ChannelGamepadBase+2, p.channel)
	require.Len(t, p.payload, 30)
	assert.Equal(t, uint32(26), binary.BigEndian.Uint32(p.payload[0:4]))
	assert.Equal(t, uint16(2), binary.LittleEndian.Uint16(p.payload[10:12]))
	assert.Equal(t, uint16(0x7), binary.LittleEndian.Uint16(p.payload[12:14]))

	// The share button maps onto the special flag for classic hosts.
	gotFlags := binary.LittleEndian.Uint16(p.payload[16:18])
	assert.Equal(t, uint16((FlagA|FlagSpecial)&0xFFFF), gotFlags)

	assert.Equal(t, uint8(10), p.payload[18])
	assert.Equal(t, uint8(20), p.payload[19])
	assert.Equal(t, int16(-100), int16(binary.LittleEndian.Uint16(p.payload[20:22])))
	assert.Equal(t, int16(400), int16(binary.LittleEndian.Uint16(p.payload[26:28])))
}

func TestSendMultiController_Extended(t *testing.T) {
	sender := &fakeSender{}
	s := NewStream(sender, Options{Extended: true})

	require.NoError(t, s.SendMultiController(0, 0x1, FlagPaddle1, 0, 0, 0, 0, 0, 0))
	p := sender.packets[0]
	require.Len(t, p.payload, 34)
	assert.Equal(t, uint32(30), binary.BigEndian.Uint32(p.payload[0:4]))
	assert.Equal(t, uint16(FlagPaddle1>>16), binary.LittleEndian.Uint16(p.payload[30:32]))
}

func TestSendControllerArrival_AlwaysReportsEmptyState(t *testing.T) {
	sender := &fakeSender{}
	s := NewStream(sender, Options{})

	require.NoError(t, s.SendControllerArrival(1, 0x3, 0, 0xFFFF, 0))
	// Classic hosts skip the arrival packet but still get the state report.
	require.Len(t, sender.packets, 1)
	assert.Equal(t, ChannelGamepadBase+1, sender.packets[0].channel)
	assert.Equal(t, uint16(0), binary.LittleEndian.Uint16(sender.packets[0].payload[16:18]))

	ext := NewStream(sender, Options{Extended: true})
	require.NoError(t, ext.SendControllerArrival(1, 0x3, 0, 0xFFFF, 0))
	require.Len(t, sender.packets, 3)
	assert.Equal(t, controllerArrivalMag, binary.LittleEndian.Uint32(sender.packets[1].payload[4:8]))
}

func TestSendTouch_MoveIsUnreliable(t *testing.T) {
	sender := &fakeSender{}
	s := NewStream(sender, Options{Extended: true})

	require.NoError(t, s.SendTouch(TouchDown, 7, 0.5, 0.5, 1.0))
	require.NoError(t, s.SendTouch(TouchMove, 7, 0.6, 0.5, 1.0))
	require.Len(t, sender.packets, 2)
	assert.True(t, sender.packets[0].reliable)
	assert.False(t, sender.packets[1].reliable)
	assert.Equal(t, ChannelTouch, sender.packets[0].channel)
}

func TestStream_Closed(t *testing.T) {
	sender := &fakeSender{}
	s := NewStream(sender, Options{})
	s.Close()
	assert.ErrorIs(t, s.SendMouseMove(1, 1), ErrClosed)
	assert.ErrorIs(t, s.SendKeyEvent(0x41, true, 0, 0), ErrClosed)
}

func TestQuitCombo(t *testing.T) {
	assert.Equal(t, FlagPlay|FlagBack|FlagLB|FlagRB, QuitCombo)
}
