// internal/bus/modbus.go
package bus

import (
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/goburrow/modbus"
)

const (
	ModbusTCP = "tcp"
	ModbusRTU = "rtu"
)

// Register counts one request may carry (Modbus application protocol,
// functions 0x03 and 0x10).
const (
	maxReadRegisters  = 125
	maxWriteRegisters = 123
)

var ErrTooManyRegisters = errors.New("bus modbus: request exceeds register limit")

// ModbusConfig describes a Modbus bridge that relays register traffic to
// the target device. The bus address becomes the slave id.
type ModbusConfig struct {
	Mode     string
	Endpoint string // host:port for tcp, device path for rtu
	BaudRate int
	Timeout  time.Duration

	// Register receives raw frames written with WriteBytes.
	Register uint16
}

// registerClient is the slice of modbus.Client the bridge uses.
type registerClient interface {
	ReadHoldingRegisters(address, quantity uint16) ([]byte, error)
	WriteMultipleRegisters(address, quantity uint16, value []byte) ([]byte, error)
}

// ModbusBus is a single connection to one bridge.
// It serializes requests because it mutates the slave id per call.
type ModbusBus struct {
	mu       sync.Mutex
	client   registerClient
	setSlave func(byte)
	close    func() error
	register uint16
}

// OpenModbus connects to the bridge described by cfg.
func OpenModbus(cfg ModbusConfig) (*ModbusBus, error) {
	if cfg.Endpoint == "" {
		return nil, errors.New("bus modbus: endpoint required")
	}

	switch cfg.Mode {
	case "", ModbusTCP:
		h := modbus.NewTCPClientHandler(cfg.Endpoint)
		h.Timeout = cfg.Timeout
		if err := h.Connect(); err != nil {
			return nil, fmt.Errorf("bus modbus: connect %s: %w", cfg.Endpoint, err)
		}
		return &ModbusBus{
			client:   modbus.NewClient(h),
			setSlave: func(id byte) { h.SlaveId = id },
			close:    h.Close,
			register: cfg.Register,
		}, nil

	case ModbusRTU:
		h := modbus.NewRTUClientHandler(cfg.Endpoint)
		h.BaudRate = cfg.BaudRate
		h.DataBits = 8
		h.Parity = "N"
		h.StopBits = 1
		h.Timeout = cfg.Timeout
		if err := h.Connect(); err != nil {
			return nil, fmt.Errorf("bus modbus: connect %s: %w", cfg.Endpoint, err)
		}
		return &ModbusBus{
			client:   modbus.NewClient(h),
			setSlave: func(id byte) { h.SlaveId = id },
			close:    h.Close,
			register: cfg.Register,
		}, nil

	default:
		return nil, fmt.Errorf("bus modbus: unknown mode %q", cfg.Mode)
	}
}

func (b *ModbusBus) Close() error {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.close()
}

// WriteBytes writes value to the frame register in one request.
func (b *ModbusBus) WriteBytes(addr byte, value []byte) error {
	return b.writeRegisters(addr, b.register, value)
}

// WriteToReg writes value starting at holding register reg.
func (b *ModbusBus) WriteToReg(addr, reg byte, value []byte) error {
	return b.writeRegisters(addr, uint16(reg), value)
}

// ReadFromReg fills value from holding registers starting at reg.
func (b *ModbusBus) ReadFromReg(addr, reg byte, value []byte) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.setSlave(addr)

	n := (len(value) + 1) / 2
	if n > maxReadRegisters {
		return fmt.Errorf("%w: read of %d bytes needs %d registers, max %d",
			ErrTooManyRegisters, len(value), n, maxReadRegisters)
	}
	res, err := b.client.ReadHoldingRegisters(uint16(reg), uint16(n))
	if err != nil {
		return err
	}
	if len(res) < len(value) {
		return fmt.Errorf("bus modbus: short read: %d < %d bytes", len(res), len(value))
	}
	copy(value, res)
	return nil
}

func (b *ModbusBus) writeRegisters(addr byte, reg uint16, value []byte) error {
	payload := packBytes(value)
	if n := len(payload) / 2; n > maxWriteRegisters {
		return fmt.Errorf("%w: write of %d bytes needs %d registers, max %d",
			ErrTooManyRegisters, len(value), n, maxWriteRegisters)
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	b.setSlave(addr)

	qty := uint16(len(payload) / 2)

	_, err := b.client.WriteMultipleRegisters(reg, qty, payload)
	return err
}

// packBytes lays bytes into big-endian registers, zero padding an odd tail.
func packBytes(b []byte) []byte {
	out := make([]byte, len(b)+len(b)%2)
	copy(out, b)
	return out
}
