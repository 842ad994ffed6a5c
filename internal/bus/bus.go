// internal/bus/bus.go
package bus

import (
	"fmt"

	"github.com/reef-pi/rpi/i2c"
)

// Bus is the addressed register bus shared by the command link and the
// on-board sensors. One call is one bus transaction.
type Bus interface {
	ReadFromReg(addr, reg byte, value []byte) error
	WriteToReg(addr, reg byte, value []byte) error
	WriteBytes(addr byte, value []byte) error
	Close() error
}

const (
	DriverI2C    = "i2c"
	DriverModbus = "modbus"
)

// Config selects and parameterizes the backend.
type Config struct {
	Driver string
	Modbus ModbusConfig
}

// Open returns a connected bus for cfg.Driver.
func Open(cfg Config) (Bus, error) {
	switch cfg.Driver {
	case "", DriverI2C:
		b, err := i2c.New()
		if err != nil {
			return nil, fmt.Errorf("bus: open i2c: %w", err)
		}
		return b, nil

	case DriverModbus:
		b, err := OpenModbus(cfg.Modbus)
		if err != nil {
			return nil, err
		}
		return b, nil

	default:
		return nil, fmt.Errorf("bus: unknown driver %q", cfg.Driver)
	}
}
