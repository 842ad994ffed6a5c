// internal/sensor/sensor.go
package sensor

import (
	"errors"
	"time"
)

// Registers is the register-level bus access the drivers need.
type Registers interface {
	ReadFromReg(addr, reg byte, value []byte) error
	WriteToReg(addr, reg byte, value []byte) error
	WriteBytes(addr byte, value []byte) error
}

// ErrNotFound: the identification register did not match the expected chip.
var ErrNotFound = errors.New("sensor: device not found")

// Ambient is one compensated environmental reading.
type Ambient struct {
	Temperature float64 // °C
	Humidity    float64 // %RH
	Pressure    float64 // hPa
}

// Motion is one inertial reading.
type Motion struct {
	Acceleration [3]float64 // m/s²
	Gyro         [3]float64 // rad/s
}

// sleep is swapped out in tests.
var sleep = time.Sleep
