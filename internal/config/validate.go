// internal/config/validate.go
package config

import (
	"fmt"
	"math/bits"
)

// Validate checks configuration correctness.
// It performs declarative validation only.
// It MUST NOT mutate configuration.
func Validate(cfg *Config) error {
	if cfg == nil {
		return fmt.Errorf("config: nil")
	}

	// ------------------------------------------------------------
	// LINK
	// ------------------------------------------------------------

	b := cfg.Link.Bus
	switch b.Driver {
	case "", "i2c":
	case "modbus":
		if b.Modbus.Endpoint == "" {
			return fmt.Errorf("link.bus: modbus driver requires modbus.endpoint")
		}
		switch b.Modbus.Mode {
		case "", "tcp", "rtu":
		default:
			return fmt.Errorf("link.bus.modbus: mode must be tcp or rtu, got %q", b.Modbus.Mode)
		}
	default:
		return fmt.Errorf("link.bus: unknown driver %q", b.Driver)
	}
	if b.SettleMs != nil && *b.SettleMs < 0 {
		return fmt.Errorf("link.bus: settle_ms must be >= 0")
	}
	if b.Modbus.TimeoutMs < 0 || b.Modbus.BaudRate < 0 {
		return fmt.Errorf("link.bus.modbus: timeout_ms and baud_rate must be >= 0")
	}

	s := cfg.Link.Serial
	if s.Port == "" {
		return fmt.Errorf("link.serial: port is required")
	}
	if s.BaudRate < 0 || s.ReadTimeoutMs < 0 || s.EstablishTimeoutMs < 0 {
		return fmt.Errorf("link.serial: baud_rate and timeouts must be >= 0")
	}

	// ------------------------------------------------------------
	// SENSORS
	// ------------------------------------------------------------

	if err := validateSampler("sensors.ambient", cfg.Sensors.Ambient); err != nil {
		return err
	}
	if err := validateSampler("sensors.motion", cfg.Sensors.Motion); err != nil {
		return err
	}
	if v := cfg.Sensors.CriticalStorageMb; v != nil && *v < 0 {
		return fmt.Errorf("sensors: critical_storage_mb must be >= 0")
	}

	// ------------------------------------------------------------
	// BUS ADDRESS COLLISIONS
	// ------------------------------------------------------------

	// The controller and both sensors share one bus.
	owner := make(map[uint8]string)
	for _, a := range []struct {
		name string
		addr uint8
		def  uint8
	}{
		{"link.bus", b.Address, DefaultCommandAddress},
		{"sensors.ambient", cfg.Sensors.Ambient.Address, DefaultAmbientAddress},
		{"sensors.motion", cfg.Sensors.Motion.Address, DefaultMotionAddress},
	} {
		addr := a.addr
		if addr == 0 {
			addr = a.def
		}
		if addr > 0x7F {
			return fmt.Errorf("%s: address 0x%02X is not a 7-bit bus address", a.name, addr)
		}
		if prev, exists := owner[addr]; exists {
			return fmt.Errorf(
				"bus address collision: 0x%02X used by %s and %s",
				addr,
				prev,
				a.name,
			)
		}
		owner[addr] = a.name
	}

	// ------------------------------------------------------------
	// MOTOR
	// ------------------------------------------------------------

	m := cfg.Motor
	if m.MotorSteps < 0 || m.GearRatio < 0 {
		return fmt.Errorf("motor: motor_steps and gear_ratio must be >= 0")
	}
	for _, opt := range m.MicrosteppingOptions {
		// log2 travels in one byte; the driver tops out at 256.
		if opt < 1 || opt > 256 || bits.OnesCount(uint(opt)) != 1 {
			return fmt.Errorf("motor: microstepping option %d is not a power of two in 1..256", opt)
		}
	}

	// ------------------------------------------------------------
	// INFLUX (OPTIONAL)
	// ------------------------------------------------------------

	if in := cfg.Influx; in != nil {
		if in.URL == "" || in.Bucket == "" {
			return fmt.Errorf("influx: url and bucket are required when the section is present")
		}
	}

	return nil
}

func validateSampler(name string, s SamplerConfig) error {
	if s.RateSeconds != 0 && s.RateHz != 0 {
		return fmt.Errorf("%s: set rate_seconds or rate_hz, not both", name)
	}
	if s.RateSeconds < 0 || s.RateHz < 0 {
		return fmt.Errorf("%s: rate must be > 0", name)
	}
	if s.RecentCapacity < 0 || s.ArchivedCapacity < 0 {
		return fmt.Errorf("%s: capacities must be >= 0", name)
	}
	if s.MaxRetries < 0 || s.RetryDelayMs < 0 {
		return fmt.Errorf("%s: max_retries and retry_delay_ms must be >= 0", name)
	}
	return nil
}
