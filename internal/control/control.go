// internal/control/control.go
package control

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/tamzrod/clinostat/internal/config"
	"github.com/tamzrod/clinostat/internal/link"
	"github.com/tamzrod/clinostat/internal/motion"
	"github.com/tamzrod/clinostat/internal/state"
)

// Feedback beep on link toggle.
const linkBeepMs = 200

// Presets the operator can store.
const (
	MinPreset = 1
	MaxPreset = 2
)

// Offset names accepted by SetOffset.
const (
	OffsetTemperature = "temperature"
	OffsetHumidity    = "humidity"
	OffsetPressure    = "pressure"
)

var (
	ErrUnknownMotor    = errors.New("control: unknown motor")
	ErrUnknownOffset   = errors.New("control: unknown offset")
	ErrUnknownPreset   = errors.New("control: unknown preset")
	ErrNoPreset        = errors.New("control: preset not stored")
	ErrInvalidDuration = errors.New("control: duration must be > 0")
	ErrCycleRunning    = errors.New("control: lighting cycle already running")
)

// allLEDsOff covers the whole strip at full brightness with every channel off.
var allLEDsOff = link.LEDCommand{Start: 1, End: 130, Brightness: 255}

// Device is what the controller drives. *link.Device implements it.
type Device interface {
	Reset() error
	Handshake() error
	OnMessage(msgType string, h link.Handler)
	SetMotors(motors [2]link.MotorCommand) error
	SetLEDRange(c link.LEDCommand) error
	ReplayLED(c link.LEDCommand) error
	ShowLEDs() error
	Beep(ms int) error
}

// Controller turns operator intents into runtime state, device frames and
// persisted settings. Operations are serialized so frames reach the
// device in the order the state changed.
type Controller struct {
	dev   Device
	rt    *state.Runtime
	store *config.Dynamic
	motor motion.Settings
	log   *zap.Logger
	sleep func(ctx context.Context, d time.Duration) error

	mu sync.Mutex

	cycleMu sync.Mutex
	cycle   *lightingCycle
}

func New(dev Device, rt *state.Runtime, store *config.Dynamic, motor motion.Settings, log *zap.Logger) *Controller {
	if log == nil {
		log = zap.NewNop()
	}
	return &Controller{
		dev:   dev,
		rt:    rt,
		store: store,
		motor: motor,
		log:   log,
		sleep: sleepCtx,
	}
}

// ---- startup ----

// Startup hydrates runtime state from the persisted settings, resets the
// controller, clears the stored LED sequence and sends the handshake.
func (c *Controller) Startup() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.dev.OnMessage(link.TypeHandshakeResponse, c.onHandshakeResponse)
	c.hydrate()

	if err := c.dev.Reset(); err != nil {
		return fmt.Errorf("control: reset: %w", err)
	}
	if err := c.store.Set(map[string]any{config.KeyLEDCommands: []link.LEDCommand{}}); err != nil {
		return err
	}
	if err := c.dev.Handshake(); err != nil {
		return fmt.Errorf("control: handshake: %w", err)
	}
	return nil
}

// hydrate copies persisted operator settings into runtime state.
func (c *Controller) hydrate() {
	d := c.store
	c.rt.Update(func(s *state.Snapshot) {
		s.Motors[0].SpeedRPM = d.Float(config.KeyFrameMotorSpeed, 1.0)
		s.Motors[1].SpeedRPM = d.Float(config.KeyCoreMotorSpeed, 1.0)
		s.Motors[0].Clockwise = d.Bool(config.KeyFrameMotorCW, true)
		s.Motors[1].Clockwise = d.Bool(config.KeyCoreMotorCW, true)
		s.Linked = d.Bool(config.KeyLinked, true)
		s.Offsets = state.Offsets{
			Temperature: d.Float(config.KeyTemperatureOffset, 0),
			Humidity:    d.Float(config.KeyHumidityOffset, 0),
			Pressure:    d.Float(config.KeyPressureOffset, 0),
		}
	})
}

func (c *Controller) onHandshakeResponse(m link.Message) {
	ssid, _ := m.Field("SSID")
	c.rt.SetNetworkSSID(ssid)
	c.log.Info("handshake response", zap.String("ssid", ssid))
}

// State returns the current runtime record.
func (c *Controller) State() state.Snapshot { return c.rt.Snapshot() }

// ---- motors ----

// ToggleMotor flips id on or off, both motors when linked.
func (c *Controller) ToggleMotor(id state.MotorID) (state.Snapshot, error) {
	return c.changeMotors(id, func() { c.rt.ToggleEnabled(id) })
}

// ToggleDirection flips id's direction, both motors when linked.
func (c *Controller) ToggleDirection(id state.MotorID) (state.Snapshot, error) {
	return c.changeMotors(id, func() { c.rt.ToggleDirection(id) })
}

// SetSpeed sets id's speed in rpm, both motors when linked.
func (c *Controller) SetSpeed(id state.MotorID, rpm float64) (state.Snapshot, error) {
	if _, err := motion.Calculate(rpm, c.motor); err != nil {
		return c.rt.Snapshot(), fmt.Errorf("control: %s motor: %w", id, err)
	}
	return c.changeMotors(id, func() { c.rt.ApplySpeed(id, rpm) })
}

// changeMotors applies fn and drives both motors from the result. When
// a speed cannot be reached the motor fields are rolled back and
// nothing is sent.
func (c *Controller) changeMotors(id state.MotorID, fn func()) (state.Snapshot, error) {
	if !id.Valid() {
		return c.rt.Snapshot(), fmt.Errorf("%w: %d", ErrUnknownMotor, int(id))
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	prev := c.rt.Snapshot()
	fn()

	cmds, err := c.plan(c.rt.Snapshot())
	if err != nil {
		c.rt.Update(func(s *state.Snapshot) {
			s.Motors = prev.Motors
			s.Linked = prev.Linked
		})
		return c.rt.Snapshot(), err
	}
	return c.drive(cmds)
}

// plan derives both motor blocks from snap. A stopped motor never fails
// on speed; an enabled one must be reachable.
func (c *Controller) plan(snap state.Snapshot) ([2]link.MotorCommand, error) {
	var cmds [2]link.MotorCommand
	for i, m := range snap.Motors {
		sp, err := motion.Calculate(m.SpeedRPM, c.motor)
		if err != nil {
			if m.Enabled || !errors.Is(err, motion.ErrSpeedOutOfRange) {
				return cmds, fmt.Errorf("control: %s motor: %w", m.ID, err)
			}
			sp = motion.Speed{Microstepping: c.motor.MicrosteppingOptions[0]}
		}
		cmds[i] = link.MotorCommand{
			Enabled:        m.Enabled,
			StepsPerSecond: sp.StepsPerSecond,
			Microstepping:  sp.Microstepping,
			Clockwise:      m.Clockwise,
		}
	}
	return cmds, nil
}

// drive records the step rates, sends the frame and persists the
// operator-facing motor settings. Settings are persisted even when the
// frame fails so a restart restores what the operator asked for.
func (c *Controller) drive(cmds [2]link.MotorCommand) (state.Snapshot, error) {
	for i, id := range state.Motors {
		c.rt.SetMotorDrive(id, cmds[i].StepsPerSecond, cmds[i].Microstepping)
	}

	sendErr := c.dev.SetMotors(cmds)
	if sendErr != nil {
		c.log.Warn("set motors failed", zap.Error(sendErr))
	}

	snap := c.rt.Snapshot()
	persistErr := c.store.Set(map[string]any{
		config.KeyFrameMotorSpeed: snap.Motors[0].SpeedRPM,
		config.KeyCoreMotorSpeed:  snap.Motors[1].SpeedRPM,
		config.KeyFrameMotorCW:    snap.Motors[0].Clockwise,
		config.KeyCoreMotorCW:     snap.Motors[1].Clockwise,
		config.KeyLinked:          snap.Linked,
	})
	return snap, errors.Join(sendErr, persistErr)
}

// ToggleLink flips whether motor operations mirror across both motors,
// persists it and acknowledges with a short beep.
func (c *Controller) ToggleLink() (bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	linked := c.rt.ToggleLinked()
	if err := c.store.Set(map[string]any{config.KeyLinked: linked}); err != nil {
		return linked, err
	}
	return linked, c.dev.Beep(linkBeepMs)
}

// Beep pulses the buzzer.
func (c *Controller) Beep(ms int) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.dev.Beep(ms)
}

// ---- offsets ----

// SetOffset updates one ambient reading bias and persists it.
func (c *Controller) SetOffset(name string, value float64) (state.Offsets, error) {
	var key string
	switch name {
	case OffsetTemperature:
		key = config.KeyTemperatureOffset
	case OffsetHumidity:
		key = config.KeyHumidityOffset
	case OffsetPressure:
		key = config.KeyPressureOffset
	default:
		return c.rt.Offsets(), fmt.Errorf("%w: %q", ErrUnknownOffset, name)
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	snap := c.rt.Update(func(s *state.Snapshot) {
		switch name {
		case OffsetTemperature:
			s.Offsets.Temperature = value
		case OffsetHumidity:
			s.Offsets.Humidity = value
		case OffsetPressure:
			s.Offsets.Pressure = value
		}
	})
	return snap.Offsets, c.store.Set(map[string]any{key: value})
}
