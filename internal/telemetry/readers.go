// internal/telemetry/readers.go
package telemetry

import (
	"github.com/tamzrod/clinostat/internal/sensor"
	"github.com/tamzrod/clinostat/internal/state"
)

// Reader produces the values of one sample, in schema field order.
// Any error is treated as transient and retried by the sampler.
type Reader interface {
	Read() ([]float64, error)
}

// Opener connects to the sensor at the start of each session.
type Opener func() (Reader, error)

// ReaderFunc adapts a function to Reader.
type ReaderFunc func() ([]float64, error)

func (f ReaderFunc) Read() ([]float64, error) { return f() }

// ---- AMBIENT ----

type ambientSensor interface {
	Read() (sensor.Ambient, error)
}

// OffsetSource supplies the current ambient biases.
type OffsetSource interface {
	Offsets() state.Offsets
}

// AmbientReader applies the configured offsets at read time, so offset
// changes take effect on the next sample.
type AmbientReader struct {
	Sensor  ambientSensor
	Offsets OffsetSource
}

func (r AmbientReader) Read() ([]float64, error) {
	a, err := r.Sensor.Read()
	if err != nil {
		return nil, err
	}
	var off state.Offsets
	if r.Offsets != nil {
		off = r.Offsets.Offsets()
	}
	return []float64{
		round3(a.Temperature + off.Temperature),
		round3(a.Humidity + off.Humidity),
		round3(a.Pressure + off.Pressure),
	}, nil
}

// ---- MOTION ----

type motionSensor interface {
	Read() (sensor.Motion, error)
}

type MotionReader struct {
	Sensor motionSensor
}

func (r MotionReader) Read() ([]float64, error) {
	m, err := r.Sensor.Read()
	if err != nil {
		return nil, err
	}
	out := make([]float64, 0, 6)
	for _, v := range m.Acceleration {
		out = append(out, round3(v))
	}
	for _, v := range m.Gyro {
		out = append(out, round3(v))
	}
	return out, nil
}
