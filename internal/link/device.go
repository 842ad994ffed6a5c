// internal/link/device.go
package link

import (
	"context"
	"errors"
	"fmt"
	"math"
	"math/bits"

	"go.uber.org/zap"
)

// MotorCommand is the per-motor block of the set-motors frame.
type MotorCommand struct {
	Enabled        bool
	StepsPerSecond float64
	Microstepping  int
	Clockwise      bool
}

// LEDCommand addresses an inclusive LED range.
type LEDCommand struct {
	Start      uint8 `json:"start_led"`
	End        uint8 `json:"end_led"`
	Red        uint8 `json:"red"`
	Green      uint8 `json:"green"`
	Blue       uint8 `json:"blue"`
	White      uint8 `json:"white"`
	Brightness uint8 `json:"brightness"`
}

func (c LEDCommand) payload() []byte {
	return []byte{c.Start, c.End, c.Red, c.Green, c.Blue, c.White, c.Brightness}
}

const maxSPSField = 1<<24 - 1

// Device is the satellite controller connection: command frames on the
// bus, handshake and responses on the serial link. It owns both.
type Device struct {
	cmd *CommandChannel
	ack *AckChannel
	log *zap.Logger

	closers []func() error
}

// NewDevice composes the two channels. closers run on Close after the bus
// is released (typically the serial port).
func NewDevice(cmd *CommandChannel, ack *AckChannel, log *zap.Logger, closers ...func() error) *Device {
	if log == nil {
		log = zap.NewNop()
	}
	return &Device{cmd: cmd, ack: ack, log: log, closers: closers}
}

// Send forwards one raw frame.
func (d *Device) Send(op Opcode, payload []byte) error {
	return d.cmd.Send(op, payload)
}

// Reset re-initializes the controller.
func (d *Device) Reset() error {
	return d.cmd.Send(OpReset, nil)
}

// Handshake sends the checksummed handshake request. The reply is handled
// out of band by whatever is registered for TypeHandshakeResponse.
func (d *Device) Handshake() error {
	msg := Seal(TypeHandshake)
	if err := d.ack.SendText(msg); err != nil {
		return err
	}
	d.log.Info("handshake sent", zap.String("message", msg))
	return nil
}

// OnMessage registers a response handler on the serial listener.
func (d *Device) OnMessage(msgType string, h Handler) {
	d.ack.Handle(msgType, h)
}

// Listen runs the serial listener until it terminates.
func (d *Device) Listen(ctx context.Context) error {
	return d.ack.Listen(ctx)
}

// Established reports whether the handshake response arrived.
func (d *Device) Established() bool {
	return d.ack.Established()
}

// SetMotors sends both motor blocks in one frame.
func (d *Device) SetMotors(motors [2]MotorCommand) error {
	payload, err := EncodeMotors(motors)
	if err != nil {
		return err
	}
	return d.cmd.Send(OpSetMotors, payload)
}

// SetLEDRange stages one LED range in the controller buffer.
func (d *Device) SetLEDRange(c LEDCommand) error {
	return d.cmd.Send(OpLEDRange, c.payload())
}

// ReplayLED stages a previously stored LED range.
func (d *Device) ReplayLED(c LEDCommand) error {
	return d.cmd.Send(OpLEDReplay, c.payload())
}

// ShowLEDs commits the LED buffer to the strip.
func (d *Device) ShowLEDs() error {
	return d.cmd.Send(OpLEDShow, nil)
}

// Beep pulses the buzzer for ms milliseconds (0..255).
func (d *Device) Beep(ms int) error {
	if ms < 0 || ms > 255 {
		return newError("beep", ErrFraming, fmt.Errorf("duration %dms outside 0..255", ms))
	}
	return d.cmd.Send(OpBeep, []byte{byte(ms)})
}

// Close releases the bus and then the remaining resources.
func (d *Device) Close() error {
	errs := []error{d.cmd.Close()}
	for _, fn := range d.closers {
		errs = append(errs, fn())
	}
	return errors.Join(errs...)
}

// EncodeMotors builds the set-motors payload. Per motor:
//
//	[enable][sps*1000 (24-bit BE)][log2(microstepping)][direction]
func EncodeMotors(motors [2]MotorCommand) ([]byte, error) {
	out := make([]byte, 0, 12)
	for i, m := range motors {
		if m.Microstepping <= 0 || bits.OnesCount(uint(m.Microstepping)) != 1 {
			return nil, newError("encode motors", ErrFraming,
				fmt.Errorf("motor %d: microstepping %d is not a power of two", i+1, m.Microstepping))
		}
		if m.StepsPerSecond < 0 || math.IsNaN(m.StepsPerSecond) {
			return nil, newError("encode motors", ErrFraming,
				fmt.Errorf("motor %d: steps per second %v", i+1, m.StepsPerSecond))
		}
		milli := int64(m.StepsPerSecond * 1000)
		if milli > maxSPSField {
			return nil, newError("encode motors", ErrFraming,
				fmt.Errorf("motor %d: steps per second %v overflows 24 bits", i+1, m.StepsPerSecond))
		}

		out = append(out,
			boolByte(m.Enabled),
			byte(milli>>16), byte(milli>>8), byte(milli),
			byte(bits.TrailingZeros(uint(m.Microstepping))),
			boolByte(m.Clockwise),
		)
	}
	return out, nil
}

func boolByte(b bool) byte {
	if b {
		return 1
	}
	return 0
}
