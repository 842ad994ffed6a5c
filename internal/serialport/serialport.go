// internal/serialport/serialport.go
package serialport

import (
	"errors"
	"fmt"
	"time"

	"go.bug.st/serial"
	"go.bug.st/serial/enumerator"
)

// Config describes the acknowledgment port. Framing is fixed at 8N1.
type Config struct {
	Name        string
	BaudRate    int
	ReadTimeout time.Duration
}

// DefaultReadTimeout keeps reads short so the listener can enforce its
// establishment window between lines.
const DefaultReadTimeout = 100 * time.Millisecond

// Open opens the port. A timed out Read returns (0, nil).
func Open(cfg Config) (serial.Port, error) {
	if cfg.Name == "" {
		return nil, errors.New("serialport: port name required")
	}
	if cfg.BaudRate <= 0 {
		return nil, fmt.Errorf("serialport: invalid baud rate %d", cfg.BaudRate)
	}
	if cfg.ReadTimeout <= 0 {
		cfg.ReadTimeout = DefaultReadTimeout
	}

	mode := &serial.Mode{
		BaudRate: cfg.BaudRate,
		DataBits: 8,
		Parity:   serial.NoParity,
		StopBits: serial.OneStopBit,
	}

	port, err := serial.Open(cfg.Name, mode)
	if err != nil {
		return nil, fmt.Errorf("serialport: open %s: %w", cfg.Name, err)
	}
	if err := port.SetReadTimeout(cfg.ReadTimeout); err != nil {
		port.Close()
		return nil, fmt.Errorf("serialport: set read timeout: %w", err)
	}
	return port, nil
}

// PortInfo is one enumerated port.
type PortInfo struct {
	Name    string
	USB     bool
	VID     string
	PID     string
	Serial  string
	Product string
}

func (p PortInfo) String() string {
	if !p.USB {
		return p.Name
	}
	s := fmt.Sprintf("%s [%s:%s]", p.Name, p.VID, p.PID)
	if p.Product != "" {
		s += " " + p.Product
	}
	if p.Serial != "" {
		s += " serial=" + p.Serial
	}
	return s
}

// List enumerates the serial ports present on the host.
func List() ([]PortInfo, error) {
	details, err := enumerator.GetDetailedPortsList()
	if err != nil {
		return nil, fmt.Errorf("serialport: enumerate: %w", err)
	}

	out := make([]PortInfo, 0, len(details))
	for _, d := range details {
		out = append(out, PortInfo{
			Name:    d.Name,
			USB:     d.IsUSB,
			VID:     d.VID,
			PID:     d.PID,
			Serial:  d.SerialNumber,
			Product: d.Product,
		})
	}
	return out, nil
}
