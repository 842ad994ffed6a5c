// internal/state/runtime.go
package state

import (
	"fmt"
	"sync"
)

// MotorID addresses one of the two independently driven motors.
type MotorID int

const (
	FrameMotor MotorID = 1
	CoreMotor  MotorID = 2
)

// Motors lists every valid id in wire order.
var Motors = [2]MotorID{FrameMotor, CoreMotor}

func (id MotorID) Valid() bool { return id == FrameMotor || id == CoreMotor }

func (id MotorID) String() string {
	switch id {
	case FrameMotor:
		return "frame"
	case CoreMotor:
		return "core"
	default:
		return fmt.Sprintf("motor(%d)", int(id))
	}
}

func (id MotorID) index() int { return int(id) - 1 }

type Motor struct {
	ID             MotorID `json:"id"`
	SpeedRPM       float64 `json:"speed_rpm"`
	Clockwise      bool    `json:"direction_cw"`
	Enabled        bool    `json:"enabled"`
	StepsPerSecond float64 `json:"steps_per_second"`
	Microstepping  int     `json:"microstepping"`
}

// Offsets are additive biases applied to ambient readings.
type Offsets struct {
	Temperature float64 `json:"temperature"`
	Humidity    float64 `json:"humidity"`
	Pressure    float64 `json:"pressure"`
}

// Snapshot is a consistent copy of the whole record.
type Snapshot struct {
	Motors      [2]Motor `json:"motors"`
	Linked      bool     `json:"linked"`
	Offsets     Offsets  `json:"offsets"`
	CapturePath string   `json:"capture_path"`
	NetworkSSID string   `json:"network_ssid"`
}

// Motor returns the motor with id. Callers check id.Valid first.
func (s Snapshot) Motor(id MotorID) Motor {
	if !id.Valid() {
		return Motor{}
	}
	return s.Motors[id.index()]
}

// Runtime is the authoritative motor, lighting and offset record.
//
// Every method takes the one lock guarding the record, so read-modify-write
// operations never interleave across goroutines. No method fails; unknown
// motor ids are ignored.
type Runtime struct {
	mu sync.RWMutex
	s  Snapshot
}

// New returns the power-on defaults.
func New() *Runtime {
	r := &Runtime{}
	for i, id := range Motors {
		r.s.Motors[i] = Motor{ID: id, Clockwise: true, Microstepping: 1}
	}
	r.s.Linked = true
	return r
}

func (r *Runtime) Snapshot() Snapshot {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.s
}

func (r *Runtime) Offsets() Offsets {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.s.Offsets
}

func (r *Runtime) Linked() bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.s.Linked
}

// Update runs fn on the record under the lock. Motor ids are restored
// afterwards so fn cannot re-address a slot.
func (r *Runtime) Update(fn func(*Snapshot)) Snapshot {
	r.mu.Lock()
	defer r.mu.Unlock()
	fn(&r.s)
	for i, id := range Motors {
		r.s.Motors[i].ID = id
	}
	return r.s
}

// ---- per-field setters ----

func (r *Runtime) SetMotorSpeed(id MotorID, rpm float64) {
	r.setMotor(id, func(m *Motor) { m.SpeedRPM = rpm })
}

func (r *Runtime) SetMotorDirection(id MotorID, clockwise bool) {
	r.setMotor(id, func(m *Motor) { m.Clockwise = clockwise })
}

func (r *Runtime) SetMotorEnabled(id MotorID, enabled bool) {
	r.setMotor(id, func(m *Motor) { m.Enabled = enabled })
}

// SetMotorDrive records the step rate and microstepping derived from speed.
func (r *Runtime) SetMotorDrive(id MotorID, sps float64, microstepping int) {
	r.setMotor(id, func(m *Motor) {
		m.StepsPerSecond = sps
		m.Microstepping = microstepping
	})
}

func (r *Runtime) SetLinked(linked bool) {
	r.mu.Lock()
	r.s.Linked = linked
	r.mu.Unlock()
}

func (r *Runtime) SetOffsets(o Offsets) {
	r.mu.Lock()
	r.s.Offsets = o
	r.mu.Unlock()
}

func (r *Runtime) SetCapturePath(path string) {
	r.mu.Lock()
	r.s.CapturePath = path
	r.mu.Unlock()
}

func (r *Runtime) SetNetworkSSID(ssid string) {
	r.mu.Lock()
	r.s.NetworkSSID = ssid
	r.mu.Unlock()
}

func (r *Runtime) setMotor(id MotorID, fn func(*Motor)) {
	if !id.Valid() {
		return
	}
	r.mu.Lock()
	fn(&r.s.Motors[id.index()])
	r.mu.Unlock()
}

// ---- linked read-modify-write ----

// ToggleEnabled flips id's enable flag. When linked, both motors take the
// new value.
func (r *Runtime) ToggleEnabled(id MotorID) Snapshot {
	return r.mirror(id, func(cur Motor, m *Motor) { m.Enabled = !cur.Enabled })
}

// ToggleDirection flips id's direction, mirrored when linked.
func (r *Runtime) ToggleDirection(id MotorID) Snapshot {
	return r.mirror(id, func(cur Motor, m *Motor) { m.Clockwise = !cur.Clockwise })
}

// ApplySpeed sets id's speed, mirrored when linked.
func (r *Runtime) ApplySpeed(id MotorID, rpm float64) Snapshot {
	return r.mirror(id, func(_ Motor, m *Motor) { m.SpeedRPM = rpm })
}

// ToggleLinked flips the linked flag and returns its new value.
func (r *Runtime) ToggleLinked() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.s.Linked = !r.s.Linked
	return r.s.Linked
}

// mirror applies fn to id, or to every motor when linked. cur is id's
// value before the change.
func (r *Runtime) mirror(id MotorID, fn func(cur Motor, m *Motor)) Snapshot {
	r.mu.Lock()
	defer r.mu.Unlock()

	if !id.Valid() {
		return r.s
	}

	cur := r.s.Motors[id.index()]
	if !r.s.Linked {
		fn(cur, &r.s.Motors[id.index()])
		return r.s
	}
	for i := range r.s.Motors {
		fn(cur, &r.s.Motors[i])
	}
	return r.s
}
