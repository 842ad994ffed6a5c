// internal/sensor/ism330dhcx.go
package sensor

import (
	"encoding/binary"
	"fmt"
	"math"
	"sync"
	"time"
)

const (
	ISM330DHCXDefaultAddress byte = 0x6A

	ism330WhoAmI = 0x6B

	ism330RegWhoAmI = 0x0F
	ism330RegCtrl1  = 0x10 // CTRL1_XL
	ism330RegCtrl2  = 0x11 // CTRL2_G
	ism330RegCtrl3  = 0x12 // CTRL3_C
	ism330RegOutG   = 0x22 // OUTX_L_G; accel follows at 0x28

	ism330SoftReset = 0x01
	ism330BDUInc    = 0x44 // block data update + address auto-increment

	// 104 Hz, ±4 g
	ism330Ctrl1 = 0x40 | 0x08
	// 104 Hz, ±500 dps
	ism330Ctrl2 = 0x40 | 0x04

	standardGravity = 9.80665

	// datasheet sensitivities for the ranges above
	accelMilliGPerLSB  = 0.122
	gyroMilliDPSPerLSB = 17.5
)

// ISM330DHCX reads linear acceleration and angular rate.
type ISM330DHCX struct {
	mu   sync.Mutex
	bus  Registers
	addr byte
}

// NewISM330DHCX checks WHO_AM_I, resets the device and configures both
// channels.
func NewISM330DHCX(bus Registers, addr byte) (*ISM330DHCX, error) {
	id := make([]byte, 1)
	if err := bus.ReadFromReg(addr, ism330RegWhoAmI, id); err != nil {
		return nil, fmt.Errorf("sensor: ism330dhcx at 0x%02X: %w", addr, err)
	}
	if id[0] != ism330WhoAmI {
		return nil, fmt.Errorf("%w: ism330dhcx at 0x%02X reported 0x%02X", ErrNotFound, addr, id[0])
	}

	if err := bus.WriteToReg(addr, ism330RegCtrl3, []byte{ism330SoftReset}); err != nil {
		return nil, fmt.Errorf("sensor: ism330dhcx reset: %w", err)
	}
	sleep(10 * time.Millisecond)

	for _, w := range [][2]byte{
		{ism330RegCtrl3, ism330BDUInc},
		{ism330RegCtrl1, ism330Ctrl1},
		{ism330RegCtrl2, ism330Ctrl2},
	} {
		if err := bus.WriteToReg(addr, w[0], []byte{w[1]}); err != nil {
			return nil, fmt.Errorf("sensor: ism330dhcx configure 0x%02X: %w", w[0], err)
		}
	}
	return &ISM330DHCX{bus: bus, addr: addr}, nil
}

// Read burst-reads gyro and accel output registers.
func (s *ISM330DHCX) Read() (Motion, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	d := make([]byte, 12)
	if err := s.bus.ReadFromReg(s.addr, ism330RegOutG, d); err != nil {
		return Motion{}, fmt.Errorf("sensor: ism330dhcx read: %w", err)
	}

	var m Motion
	for i := 0; i < 3; i++ {
		g := int16(binary.LittleEndian.Uint16(d[2*i:]))
		a := int16(binary.LittleEndian.Uint16(d[6+2*i:]))

		m.Gyro[i] = float64(g) * gyroMilliDPSPerLSB / 1000 * math.Pi / 180
		m.Acceleration[i] = float64(a) * accelMilliGPerLSB / 1000 * standardGravity
	}
	return m, nil
}
