// internal/sensor/bme280.go
package sensor

import (
	"errors"
	"fmt"
	"sync"

	"periph.io/x/conn/v3/i2c"
	"periph.io/x/conn/v3/physic"
	"periph.io/x/devices/v3/bmxx80"
)

const (
	BME280DefaultAddress byte = 0x77

	bme280ChipID    = 0x60
	bme280RegChipID = 0xD0
)

// BME280 reads temperature, humidity and pressure through the periph
// bmxx80 driver, one forced conversion per Read.
type BME280 struct {
	mu   sync.Mutex
	addr byte
	dev  *bmxx80.Dev
}

// NewBME280 checks the chip id, then hands the bus to bmxx80 which loads
// the calibration and sets x16 oversampling on every channel.
func NewBME280(bus Registers, addr byte) (*BME280, error) {
	id := make([]byte, 1)
	if err := bus.ReadFromReg(addr, bme280RegChipID, id); err != nil {
		return nil, fmt.Errorf("sensor: bme280 at 0x%02X: %w", addr, err)
	}
	if id[0] != bme280ChipID {
		return nil, fmt.Errorf("%w: bme280 at 0x%02X reported chip id 0x%02X", ErrNotFound, addr, id[0])
	}

	dev, err := bmxx80.NewI2C(periphBus{regs: bus}, uint16(addr), &bmxx80.Opts{
		Temperature: bmxx80.O16x,
		Pressure:    bmxx80.O16x,
		Humidity:    bmxx80.O16x,
	})
	if err != nil {
		return nil, fmt.Errorf("sensor: bme280 at 0x%02X: %w", addr, err)
	}
	return &BME280{addr: addr, dev: dev}, nil
}

// Read triggers a conversion and converts the result to °C, %RH and hPa.
func (s *BME280) Read() (Ambient, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var env physic.Env
	if err := s.dev.Sense(&env); err != nil {
		return Ambient{}, fmt.Errorf("sensor: bme280 read: %w", err)
	}
	return Ambient{
		Temperature: float64(env.Temperature-physic.ZeroCelsius) / float64(physic.Kelvin),
		Humidity:    float64(env.Humidity) / float64(physic.PercentRH),
		Pressure:    float64(env.Pressure) / float64(physic.Pascal) / 100,
	}, nil
}

var errUnsupportedTx = errors.New("sensor: unsupported bus transaction")

// periphBus exposes Registers as a periph i2c.Bus. A transaction with a
// read part must address a single register; a pure write goes out as is.
type periphBus struct {
	regs Registers
}

var _ i2c.Bus = periphBus{}

func (b periphBus) String() string { return "clinostat" }

func (b periphBus) SetSpeed(physic.Frequency) error { return nil }

func (b periphBus) Tx(addr uint16, w, r []byte) error {
	switch {
	case len(r) > 0 && len(w) == 1:
		return b.regs.ReadFromReg(byte(addr), w[0], r)
	case len(r) == 0 && len(w) > 0:
		return b.regs.WriteBytes(byte(addr), w)
	}
	return fmt.Errorf("%w: write %d bytes, read %d", errUnsupportedTx, len(w), len(r))
}
