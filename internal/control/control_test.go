// internal/control/control_test.go
package control

import (
	"errors"
	"os"
	"path/filepath"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tamzrod/clinostat/internal/config"
	"github.com/tamzrod/clinostat/internal/link"
	"github.com/tamzrod/clinostat/internal/motion"
	"github.com/tamzrod/clinostat/internal/state"
)

// fakeDevice records every call in order.
type fakeDevice struct {
	mu       sync.Mutex
	calls    []string
	motors   [][2]link.MotorCommand
	leds     []link.LEDCommand
	replayed []link.LEDCommand
	beeps    []int
	handlers map[string]link.Handler
	err      error
}

func newFakeDevice() *fakeDevice {
	return &fakeDevice{handlers: map[string]link.Handler{}}
}

func (f *fakeDevice) record(call string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, call)
	return f.err
}

func (f *fakeDevice) Reset() error     { return f.record("reset") }
func (f *fakeDevice) Handshake() error { return f.record("handshake") }
func (f *fakeDevice) ShowLEDs() error  { return f.record("show") }

func (f *fakeDevice) OnMessage(msgType string, h link.Handler) {
	f.mu.Lock()
	f.handlers[msgType] = h
	f.mu.Unlock()
}

func (f *fakeDevice) SetMotors(m [2]link.MotorCommand) error {
	f.mu.Lock()
	f.motors = append(f.motors, m)
	f.mu.Unlock()
	return f.record("motors")
}

func (f *fakeDevice) SetLEDRange(c link.LEDCommand) error {
	f.mu.Lock()
	f.leds = append(f.leds, c)
	f.mu.Unlock()
	return f.record("led")
}

func (f *fakeDevice) ReplayLED(c link.LEDCommand) error {
	f.mu.Lock()
	f.replayed = append(f.replayed, c)
	f.mu.Unlock()
	return f.record("replay")
}

func (f *fakeDevice) Beep(ms int) error {
	f.mu.Lock()
	f.beeps = append(f.beeps, ms)
	f.mu.Unlock()
	return f.record("beep")
}

func (f *fakeDevice) lastMotors(t *testing.T) [2]link.MotorCommand {
	t.Helper()
	require.NotEmpty(t, f.motors)
	return f.motors[len(f.motors)-1]
}

// 200 steps, 1:1, so 120 rpm = 400 sps at full step.
var testMotor = motion.Settings{
	MotorSteps:           200,
	GearRatio:            1,
	MicrosteppingOptions: []int{1, 2, 4, 8, 16},
}

func newTestController(t *testing.T, seed string) (*Controller, *fakeDevice, *config.Dynamic) {
	t.Helper()
	path := filepath.Join(t.TempDir(), "dynamic_config.json")
	if seed != "" {
		require.NoError(t, os.WriteFile(path, []byte(seed), 0o644))
	}
	store, err := config.LoadDynamic(path)
	require.NoError(t, err)

	dev := newFakeDevice()
	return New(dev, state.New(), store, testMotor, nil), dev, store
}

// ---- startup ----

func TestStartup_HydratesAndInitializes(t *testing.T) {
	c, dev, store := newTestController(t, `{
		"frame_motor_speed": 60,
		"core_motor_direction_cw": false,
		"linked": false,
		"pressure_offset": 1.5,
		"led_commands": [{"start_led": 1, "end_led": 5, "red": 1, "green": 2, "blue": 3, "white": 4, "brightness": 5}]
	}`)

	require.NoError(t, c.Startup())

	snap := c.State()
	assert.Equal(t, 60.0, snap.Motor(state.FrameMotor).SpeedRPM)
	assert.Equal(t, 1.0, snap.Motor(state.CoreMotor).SpeedRPM)
	assert.True(t, snap.Motor(state.FrameMotor).Clockwise)
	assert.False(t, snap.Motor(state.CoreMotor).Clockwise)
	assert.False(t, snap.Linked)
	assert.Equal(t, 1.5, snap.Offsets.Pressure)

	assert.Equal(t, []string{"reset", "handshake"}, dev.calls)
	cmds, ok := store.LEDCommands(config.KeyLEDCommands)
	assert.True(t, ok)
	assert.Empty(t, cmds)
	assert.Contains(t, dev.handlers, link.TypeHandshakeResponse)
}

func TestStartup_EmptyStoreDefaults(t *testing.T) {
	c, _, _ := newTestController(t, "")
	require.NoError(t, c.Startup())

	snap := c.State()
	for _, m := range snap.Motors {
		assert.Equal(t, 1.0, m.SpeedRPM)
		assert.True(t, m.Clockwise)
		assert.False(t, m.Enabled)
	}
	assert.True(t, snap.Linked)
}

func TestStartup_ResetFailure(t *testing.T) {
	c, dev, _ := newTestController(t, "")
	dev.err = &link.Error{Op: "send", Kind: link.ErrTransport}

	err := c.Startup()
	assert.ErrorIs(t, err, link.ErrTransport)
}

func TestHandshakeResponse_RecordsNetworkOnly(t *testing.T) {
	c, dev, _ := newTestController(t, "")
	require.NoError(t, c.Startup())

	msg, err := link.ParseLine(link.Seal("HANDSHAKE_RESPONSE,SSID=labnet,PASSWORD=hunter2"))
	require.NoError(t, err)
	dev.handlers[link.TypeHandshakeResponse](msg)

	assert.Equal(t, "labnet", c.State().NetworkSSID)
}

// ---- motors ----

func TestToggleMotor_LinkedDrivesBoth(t *testing.T) {
	c, dev, store := newTestController(t, `{"frame_motor_speed": 120, "core_motor_speed": 120}`)
	require.NoError(t, c.Startup())

	snap, err := c.ToggleMotor(state.FrameMotor)
	require.NoError(t, err)
	assert.True(t, snap.Motor(state.FrameMotor).Enabled)
	assert.True(t, snap.Motor(state.CoreMotor).Enabled)

	frame := dev.lastMotors(t)
	for _, m := range frame {
		assert.Equal(t, link.MotorCommand{Enabled: true, StepsPerSecond: 400, Microstepping: 1, Clockwise: true}, m)
	}
	assert.Equal(t, 400.0, snap.Motor(state.CoreMotor).StepsPerSecond)

	assert.Equal(t, 120.0, store.Float(config.KeyFrameMotorSpeed, 0))
	assert.True(t, store.Bool(config.KeyLinked, false))
}

func TestToggleDirection_Unlinked(t *testing.T) {
	c, dev, store := newTestController(t, `{"linked": false}`)
	require.NoError(t, c.Startup())

	snap, err := c.ToggleDirection(state.CoreMotor)
	require.NoError(t, err)
	assert.True(t, snap.Motor(state.FrameMotor).Clockwise)
	assert.False(t, snap.Motor(state.CoreMotor).Clockwise)

	frame := dev.lastMotors(t)
	assert.True(t, frame[0].Clockwise)
	assert.False(t, frame[1].Clockwise)
	// disabled motor at an unreachable speed idles at the first option
	assert.Equal(t, link.MotorCommand{Microstepping: 1, Clockwise: true}, frame[0])

	assert.False(t, store.Bool(config.KeyCoreMotorCW, true))
}

func TestSetSpeed_PicksMicrostepping(t *testing.T) {
	c, dev, store := newTestController(t, "")
	require.NoError(t, c.Startup())

	snap, err := c.SetSpeed(state.CoreMotor, 60)
	require.NoError(t, err)

	for _, m := range snap.Motors {
		assert.Equal(t, 60.0, m.SpeedRPM)
		assert.Equal(t, 400.0, m.StepsPerSecond)
		assert.Equal(t, 2, m.Microstepping)
	}
	assert.Equal(t, 2, dev.lastMotors(t)[1].Microstepping)
	assert.Equal(t, 60.0, store.Float(config.KeyCoreMotorSpeed, 0))
}

func TestSetSpeed_OutOfRangeChangesNothing(t *testing.T) {
	c, dev, _ := newTestController(t, `{"frame_motor_speed": 120, "core_motor_speed": 120}`)
	require.NoError(t, c.Startup())
	before := c.State()

	_, err := c.SetSpeed(state.FrameMotor, 5000)
	assert.ErrorIs(t, err, motion.ErrSpeedOutOfRange)
	assert.Equal(t, before, c.State())
	assert.Empty(t, dev.motors)
}

func TestToggleMotor_UnreachableSpeedRollsBack(t *testing.T) {
	// 1 rpm never reaches 400 sps with this drive train
	c, dev, _ := newTestController(t, "")
	require.NoError(t, c.Startup())

	_, err := c.ToggleMotor(state.FrameMotor)
	assert.ErrorIs(t, err, motion.ErrSpeedOutOfRange)
	for _, m := range c.State().Motors {
		assert.False(t, m.Enabled)
	}
	assert.Empty(t, dev.motors)
}

func TestToggleMotor_UnknownID(t *testing.T) {
	c, _, _ := newTestController(t, "")
	_, err := c.ToggleMotor(7)
	assert.ErrorIs(t, err, ErrUnknownMotor)
}

func TestToggleMotor_SendFailureStillPersists(t *testing.T) {
	c, dev, store := newTestController(t, `{"frame_motor_speed": 120, "core_motor_speed": 120}`)
	require.NoError(t, c.Startup())
	dev.err = &link.Error{Op: "send", Kind: link.ErrTransport, Err: errors.New("nack")}

	_, err := c.ToggleDirection(state.FrameMotor)
	assert.ErrorIs(t, err, link.ErrTransport)
	assert.False(t, store.Bool(config.KeyFrameMotorCW, true))
}

func TestToggleLink_PersistsAndBeeps(t *testing.T) {
	c, dev, store := newTestController(t, "")
	require.NoError(t, c.Startup())

	linked, err := c.ToggleLink()
	require.NoError(t, err)
	assert.False(t, linked)
	assert.False(t, store.Bool(config.KeyLinked, true))
	assert.Equal(t, []int{200}, dev.beeps)

	linked, err = c.ToggleLink()
	require.NoError(t, err)
	assert.True(t, linked)
}

// ---- offsets ----

func TestSetOffset(t *testing.T) {
	c, _, store := newTestController(t, "")

	off, err := c.SetOffset(OffsetHumidity, -2.5)
	require.NoError(t, err)
	assert.Equal(t, state.Offsets{Humidity: -2.5}, off)
	assert.Equal(t, -2.5, store.Float(config.KeyHumidityOffset, 0))

	_, err = c.SetOffset("light", 1)
	assert.ErrorIs(t, err, ErrUnknownOffset)
}
