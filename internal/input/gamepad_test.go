package input

import (
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lightview/lightview/internal/hid"
	"github.com/lightview/lightview/internal/protocol"
)

type rumbleCall struct {
	low, high uint16
	duration  time.Duration
}

type fakeController struct {
	mu      sync.Mutex
	id      int32
	rumbles []rumbleCall
	closed  bool
}

func (c *fakeController) Name() string      { return fmt.Sprintf("pad-%d", c.id) }
func (c *fakeController) InstanceID() int32 { return c.id }

func (c *fakeController) Rumble(low, high uint16, d time.Duration) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.rumbles = append(c.rumbles, rumbleCall{low, high, d})
	return nil
}

func (c *fakeController) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.closed = true
	return nil
}

func newPadTranslator(t *testing.T, host *fakeHost, win *fakeWindow, opts Options) *Translator {
	t.Helper()
	opts.MultiController = true
	tr := newTestTranslator(host, win, opts)
	t.Cleanup(tr.Close)
	return tr
}

func lastState(t *testing.T, host *fakeHost) mcCall {
	t.Helper()
	host.mu.Lock()
	defer host.mu.Unlock()
	require.NotEmpty(t, host.states)
	return host.states[len(host.states)-1]
}

func buttonEvent(instance int32, button hid.ControllerButton, pressed bool) hid.ControllerButtonEvent {
	return hid.ControllerButtonEvent{Instance: instance, Button: button, Pressed: pressed}
}

func TestAttach_AssignsSlotsInOrder(t *testing.T) {
	host := &fakeHost{}
	tr := newPadTranslator(t, host, &fakeWindow{w: 1280, h: 720}, Options{})

	for i := int32(0); i < 4; i++ {
		require.NoError(t, tr.AttachController(&fakeController{id: i}))
	}
	assert.Error(t, tr.AttachController(&fakeController{id: 99}), "table is full")

	require.Len(t, host.arrivals, 4)
	for i, a := range host.arrivals {
		assert.EqualValues(t, i, a.number)
		assert.Equal(t, protocol.ControllerTypeUnknown, a.ctype)
		assert.Equal(t, supportedPadButtons, a.supported)
	}
	assert.EqualValues(t, 0x0F, host.arrivals[3].mask)
}

func TestDetach_FreesSlotAndZeroesState(t *testing.T) {
	host := &fakeHost{}
	tr := newPadTranslator(t, host, &fakeWindow{w: 1280, h: 720}, Options{})

	pads := make([]*fakeController, 4)
	for i := range pads {
		pads[i] = &fakeController{id: int32(i)}
		require.NoError(t, tr.AttachController(pads[i]))
	}

	tr.DetachController(1)
	assert.True(t, pads[1].closed)

	st := lastState(t, host)
	assert.EqualValues(t, 1, st.number)
	assert.EqualValues(t, 0x0D, st.mask, "slot 1 left the mask")
	assert.Zero(t, st.buttons)

	// The freed slot is the lowest available, so a reconnect reuses it.
	require.NoError(t, tr.AttachController(&fakeController{id: 9}))
	last := host.arrivals[len(host.arrivals)-1]
	assert.EqualValues(t, 1, last.number)
	assert.EqualValues(t, 0x0F, last.mask)
}

func TestSingleControllerMode_AlwaysPlayerOne(t *testing.T) {
	host := &fakeHost{}
	tr := newTestTranslator(host, &fakeWindow{w: 1280, h: 720}, Options{})
	t.Cleanup(tr.Close)

	require.NoError(t, tr.AttachController(&fakeController{id: 5}))
	require.NoError(t, tr.AttachController(&fakeController{id: 6}))

	for _, a := range host.arrivals {
		assert.Zero(t, a.number)
		assert.EqualValues(t, 0x1, a.mask)
	}

	tr.HandleControllerButton(buttonEvent(6, hid.ButtonA, true))
	assert.Zero(t, lastState(t, host).number)
}

func TestAxis_WireConventions(t *testing.T) {
	host := &fakeHost{}
	tr := newPadTranslator(t, host, &fakeWindow{w: 1280, h: 720}, Options{})
	require.NoError(t, tr.AttachController(&fakeController{id: 1}))

	tr.HandleControllerAxis(hid.ControllerAxisEvent{Instance: 1, Axis: hid.AxisLeftY, Value: 32767})
	st := lastState(t, host)
	assert.EqualValues(t, -32767, st.lsY, "device down becomes wire negative")

	tr.HandleControllerAxis(hid.ControllerAxisEvent{Instance: 1, Axis: hid.AxisLeftY, Value: -32768})
	assert.EqualValues(t, 32767, lastState(t, host).lsY, "negation saturates")

	tr.HandleControllerAxis(hid.ControllerAxisEvent{Instance: 1, Axis: hid.AxisTriggerRight, Value: 32767})
	assert.EqualValues(t, 255, lastState(t, host).rt)

	tr.HandleControllerAxis(hid.ControllerAxisEvent{Instance: 1, Axis: hid.AxisTriggerRight, Value: 0})
	assert.Zero(t, lastState(t, host).rt)
}

func TestAxes_BatchCoalescesToOneState(t *testing.T) {
	host := &fakeHost{}
	tr := newPadTranslator(t, host, &fakeWindow{w: 1280, h: 720}, Options{})
	require.NoError(t, tr.AttachController(&fakeController{id: 1}))

	before := len(host.states)
	tr.HandleControllerAxes([]hid.ControllerAxisEvent{
		{Instance: 1, Axis: hid.AxisLeftX, Value: 1000},
		{Instance: 1, Axis: hid.AxisLeftY, Value: 2000},
		{Instance: 1, Axis: hid.AxisTriggerLeft, Value: 32767},
	})

	require.Len(t, host.states, before+1)
	st := lastState(t, host)
	assert.EqualValues(t, 1000, st.lsX)
	assert.EqualValues(t, -2000, st.lsY)
	assert.EqualValues(t, 255, st.lt)
}

func TestButtons_FlagsFollowState(t *testing.T) {
	host := &fakeHost{}
	tr := newPadTranslator(t, host, &fakeWindow{w: 1280, h: 720}, Options{})
	require.NoError(t, tr.AttachController(&fakeController{id: 1}))

	tr.HandleControllerButton(buttonEvent(1, hid.ButtonA, true))
	tr.HandleControllerButton(buttonEvent(1, hid.ButtonDpadLeft, true))
	assert.Equal(t, protocol.FlagA|protocol.FlagDpadLeft, lastState(t, host).buttons)

	tr.HandleControllerButton(buttonEvent(1, hid.ButtonA, false))
	assert.Equal(t, protocol.FlagDpadLeft, lastState(t, host).buttons)
}

func TestQuitChord_ZeroesStateAndQuits(t *testing.T) {
	host := &fakeHost{}
	win := &fakeWindow{w: 1280, h: 720}
	tr := newPadTranslator(t, host, win, Options{})
	require.NoError(t, tr.AttachController(&fakeController{id: 1}))

	tr.HandleControllerButton(buttonEvent(1, hid.ButtonStart, true))
	tr.HandleControllerButton(buttonEvent(1, hid.ButtonBack, true))
	tr.HandleControllerButton(buttonEvent(1, hid.ButtonLeftShoulder, true))
	tr.HandleControllerButton(buttonEvent(1, hid.ButtonRightShoulder, true))

	assert.Equal(t, 1, win.quits)
	st := lastState(t, host)
	assert.Zero(t, st.buttons, "host sees the chord released")

	// An extra held button breaks the chord.
	win2 := &fakeWindow{w: 1280, h: 720}
	host2 := &fakeHost{}
	tr2 := newPadTranslator(t, host2, win2, Options{})
	require.NoError(t, tr2.AttachController(&fakeController{id: 1}))
	tr2.HandleControllerButton(buttonEvent(1, hid.ButtonA, true))
	tr2.HandleControllerButton(buttonEvent(1, hid.ButtonStart, true))
	tr2.HandleControllerButton(buttonEvent(1, hid.ButtonBack, true))
	tr2.HandleControllerButton(buttonEvent(1, hid.ButtonLeftShoulder, true))
	tr2.HandleControllerButton(buttonEvent(1, hid.ButtonRightShoulder, true))
	assert.Zero(t, win2.quits)
}

func holdStart(tr *Translator, instance int32) {
	tr.HandleControllerButton(buttonEvent(instance, hid.ButtonStart, true))
	tr.mu.Lock()
	for i := range tr.pads {
		if tr.pads[i].ctrl != nil && tr.pads[i].ctrl.InstanceID() == instance {
			tr.pads[i].startDown = time.Now().Add(-time.Second)
		}
	}
	tr.mu.Unlock()
	tr.HandleControllerButton(buttonEvent(instance, hid.ButtonStart, false))
}

func TestMouseEmulation_ToggleAndButtons(t *testing.T) {
	host := &fakeHost{}
	win := &fakeWindow{w: 1280, h: 720}
	tr := newPadTranslator(t, host, win, Options{GamepadAsMouse: true})
	require.NoError(t, tr.AttachController(&fakeController{id: 1}))

	holdStart(tr, 1)
	require.Equal(t, []bool{true}, win.emulation)
	assert.Zero(t, lastState(t, host).buttons, "released Start flushed before the toggle")

	// Face buttons drive the pointer instead of the pad state.
	before := len(host.states)
	tr.HandleControllerButton(buttonEvent(1, hid.ButtonA, true))
	tr.HandleControllerButton(buttonEvent(1, hid.ButtonA, false))
	tr.HandleControllerButton(buttonEvent(1, hid.ButtonDpadUp, true))
	tr.HandleControllerButton(buttonEvent(1, hid.ButtonDpadDown, true))
	assert.Len(t, host.states, before)

	calls := host.buttonCalls()
	require.Len(t, calls, 2)
	assert.Equal(t, buttonCall{protocol.ButtonLeft, true}, calls[0])
	assert.Equal(t, buttonCall{protocol.ButtonLeft, false}, calls[1])
	host.mu.Lock()
	assert.Equal(t, []int16{protocol.WheelDelta, -protocol.WheelDelta}, host.scrolls)
	host.mu.Unlock()

	tr.HandleControllerButton(buttonEvent(1, hid.ButtonDpadUp, false))
	tr.HandleControllerButton(buttonEvent(1, hid.ButtonDpadDown, false))
	holdStart(tr, 1)
	assert.Equal(t, []bool{true, false}, win.emulation)
}

func TestMouseEmulation_DisabledWithoutOption(t *testing.T) {
	host := &fakeHost{}
	win := &fakeWindow{w: 1280, h: 720}
	tr := newPadTranslator(t, host, win, Options{})
	require.NoError(t, tr.AttachController(&fakeController{id: 1}))

	holdStart(tr, 1)
	assert.Empty(t, win.emulation)
	assert.Zero(t, lastState(t, host).buttons, "Start release still reported")
}

func TestMouseEmulation_StickMovesPointer(t *testing.T) {
	host := &fakeHost{}
	win := &fakeWindow{w: 1280, h: 720}
	tr := newPadTranslator(t, host, win, Options{GamepadAsMouse: true})
	require.NoError(t, tr.AttachController(&fakeController{id: 1}))

	holdStart(tr, 1)
	tr.HandleControllerAxis(hid.ControllerAxisEvent{Instance: 1, Axis: hid.AxisRightX, Value: 32766})

	require.Eventually(t, func() bool {
		host.mu.Lock()
		defer host.mu.Unlock()
		return len(host.moves) > 0
	}, 2*time.Second, 10*time.Millisecond)

	host.mu.Lock()
	move := host.moves[0]
	host.mu.Unlock()
	assert.EqualValues(t, 62, move[0], "full deflection cubes to 64 minus deadzone")
	assert.Zero(t, move[1])
}

func TestEmulatedDelta(t *testing.T) {
	assert.Zero(t, emulatedDelta(0))
	assert.Zero(t, emulatedDelta(4000), "inside the deadzone")
	assert.EqualValues(t, 62, emulatedDelta(32766))
	assert.EqualValues(t, -62, emulatedDelta(-32766))
	assert.Equal(t, -emulatedDelta(16000), emulatedDelta(-16000))
}

func TestRumble_RoutesToSlot(t *testing.T) {
	host := &fakeHost{}
	tr := newPadTranslator(t, host, &fakeWindow{w: 1280, h: 720}, Options{})

	a := &fakeController{id: 1}
	b := &fakeController{id: 2}
	require.NoError(t, tr.AttachController(a))
	require.NoError(t, tr.AttachController(b))

	tr.Rumble(1, 0x1000, 0x2000)
	assert.Empty(t, a.rumbles)
	require.Len(t, b.rumbles, 1)
	assert.Equal(t, rumbleCall{0x1000, 0x2000, rumbleDuration}, b.rumbles[0])

	tr.Rumble(3, 1, 1)
}

func TestInitialMask_Seeded(t *testing.T) {
	host := &fakeHost{}
	tr := NewTranslator(host, &fakeWindow{w: 1280, h: 720}, Options{
		StreamWidth: 1280, StreamHeight: 720,
		MultiController: true, InitialGamepadMask: 0x3,
	})
	t.Cleanup(tr.Close)

	require.NoError(t, tr.AttachController(&fakeController{id: 0}))
	assert.EqualValues(t, 0x3, host.arrivals[0].mask, "pre-seeded pads stay visible")
}
