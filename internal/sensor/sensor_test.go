// internal/sensor/sensor_test.go
package sensor

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// ---- FAKE REGISTER BUS ----

// Unmapped registers read as zero.
type fakeRegs struct {
	regs    map[byte][]byte // start register -> contents
	writes  map[byte]byte
	frames  int
	readErr error
}

func newFakeRegs() *fakeRegs {
	return &fakeRegs{regs: map[byte][]byte{}, writes: map[byte]byte{}}
}

func (f *fakeRegs) ReadFromReg(addr, reg byte, value []byte) error {
	if f.readErr != nil {
		return f.readErr
	}
	clear(value)
	copy(value, f.regs[reg])
	return nil
}

func (f *fakeRegs) WriteToReg(addr, reg byte, value []byte) error {
	f.writes[reg] = value[0]
	return nil
}

// WriteBytes decodes a raw frame as register/value pairs.
func (f *fakeRegs) WriteBytes(addr byte, value []byte) error {
	f.frames++
	for i := 0; i+1 < len(value); i += 2 {
		f.writes[value[i]] = value[i+1]
	}
	return nil
}

func init() {
	sleep = func(time.Duration) {}
}

// ------------

const (
	bme280RegCtrlHum  = 0xF2
	bme280RegStatus   = 0xF3
	bme280RegCtrlMeas = 0xF4
)

func bme280Regs() *fakeRegs {
	f := newFakeRegs()
	f.regs[bme280RegChipID] = []byte{0x60}
	f.regs[0x88] = []byte{
		0x70, 0x6b, 0x43, 0x67, 0x18, 0xfc, 0x7d, 0x8e, 0x43, 0xd6, 0xd0, 0x0b,
		0x27, 0x0b, 0x8c, 0x00, 0xf9, 0xff, 0x8c, 0x3c, 0xf8, 0xc6, 0x70, 0x17,
		0x00, 0x4b,
	}
	f.regs[0xE1] = []byte{0x6a, 0x01, 0x00, 0x13, 0x29, 0x03, 0x1e}
	f.regs[bme280RegStatus] = []byte{0x00}
	f.regs[0xF7] = []byte{0x65, 0x5a, 0xc0, 0x7e, 0xed, 0x00, 0x75, 0x30}
	return f
}

func TestBME280_Compensation(t *testing.T) {
	f := bme280Regs()

	s, err := NewBME280(f, BME280DefaultAddress)
	require.NoError(t, err)

	r, err := s.Read()
	require.NoError(t, err)
	assert.InDelta(t, 25.08, r.Temperature, 0.01)
	assert.InDelta(t, 1006.53, r.Pressure, 0.05)
	assert.InDelta(t, 55.0, r.Humidity, 0.1)
}

func TestBME280_Configures(t *testing.T) {
	f := bme280Regs()
	s, err := NewBME280(f, BME280DefaultAddress)
	require.NoError(t, err)

	assert.Equal(t, byte(0x05), f.writes[bme280RegCtrlHum])

	_, err = s.Read()
	require.NoError(t, err)
	meas := f.writes[bme280RegCtrlMeas]
	assert.Equal(t, byte(0x05<<3|0x05), meas>>2, "x16 oversampling")
	assert.NotZero(t, meas&0x03, "read should trigger a conversion")
}

func TestBME280_WrongChip(t *testing.T) {
	f := bme280Regs()
	f.regs[bme280RegChipID] = []byte{0x58}

	_, err := NewBME280(f, BME280DefaultAddress)
	assert.ErrorIs(t, err, ErrNotFound)
	assert.Zero(t, f.frames)
}

func TestBME280_ReadError(t *testing.T) {
	f := bme280Regs()
	s, err := NewBME280(f, BME280DefaultAddress)
	require.NoError(t, err)

	f.readErr = errors.New("remote I/O error")
	_, err = s.Read()
	assert.ErrorContains(t, err, "remote I/O error")
}

func TestPeriphBus_Tx(t *testing.T) {
	f := newFakeRegs()
	f.regs[0x10] = []byte{0xAB, 0xCD}
	b := periphBus{regs: f}

	r := make([]byte, 2)
	require.NoError(t, b.Tx(0x77, []byte{0x10}, r))
	assert.Equal(t, []byte{0xAB, 0xCD}, r)

	require.NoError(t, b.Tx(0x77, []byte{0xF4, 0x01}, nil))
	assert.Equal(t, byte(0x01), f.writes[0xF4])

	assert.ErrorIs(t, b.Tx(0x77, []byte{0x10, 0x11}, r), errUnsupportedTx)
	assert.ErrorIs(t, b.Tx(0x77, nil, nil), errUnsupportedTx)
}

func TestISM330DHCX_Read(t *testing.T) {
	f := newFakeRegs()
	f.regs[ism330RegWhoAmI] = []byte{0x6B}
	f.regs[ism330RegOutG] = []byte{
		0x62, 0x16, 0x00, 0x00, 0x00, 0x00, // gyro x = 5730
		0xfe, 0xef, 0x00, 0x00, 0x05, 0x20, // accel x = -4098, z = 8197
	}

	s, err := NewISM330DHCX(f, ISM330DHCXDefaultAddress)
	require.NoError(t, err)
	assert.Equal(t, byte(0x48), f.writes[ism330RegCtrl1])
	assert.Equal(t, byte(0x44), f.writes[ism330RegCtrl2])
	assert.Equal(t, byte(ism330BDUInc), f.writes[ism330RegCtrl3])

	m, err := s.Read()
	require.NoError(t, err)
	assert.InDelta(t, 1.7501, m.Gyro[0], 1e-4)
	assert.InDelta(t, 0, m.Gyro[1], 1e-9)
	assert.InDelta(t, -4.9029, m.Acceleration[0], 1e-4)
	assert.InDelta(t, 9.8070, m.Acceleration[2], 1e-4)
}

func TestISM330DHCX_WrongChip(t *testing.T) {
	f := newFakeRegs()
	f.regs[ism330RegWhoAmI] = []byte{0x6C}

	_, err := NewISM330DHCX(f, ISM330DHCXDefaultAddress)
	assert.ErrorIs(t, err, ErrNotFound)
}
