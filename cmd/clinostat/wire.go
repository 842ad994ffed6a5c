// cmd/clinostat/wire.go
package main

import (
	"fmt"
	"time"

	"go.bug.st/serial"
	"go.uber.org/zap"

	"github.com/tamzrod/clinostat/internal/bus"
	"github.com/tamzrod/clinostat/internal/config"
	"github.com/tamzrod/clinostat/internal/link"
	"github.com/tamzrod/clinostat/internal/serialport"
)

func ms(v int) time.Duration { return time.Duration(v) * time.Millisecond }

// loadConfig reads, validates and normalizes cfgPath.
func loadConfig() (*config.Config, error) {
	cfg, err := config.Load(cfgPath)
	if err != nil {
		return nil, err
	}
	if err := config.Validate(cfg); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}
	config.Normalize(cfg)
	return cfg, nil
}

func openBus(cfg config.BusConfig) (bus.Bus, error) {
	return bus.Open(bus.Config{
		Driver: cfg.Driver,
		Modbus: bus.ModbusConfig{
			Mode:     cfg.Modbus.Mode,
			Endpoint: cfg.Modbus.Endpoint,
			BaudRate: cfg.Modbus.BaudRate,
			Timeout:  ms(cfg.Modbus.TimeoutMs),
			Register: cfg.Modbus.Register,
		},
	})
}

func openSerial(cfg config.SerialConfig) (serial.Port, error) {
	return serialport.Open(serialport.Config{
		Name:        cfg.Port,
		BaudRate:    cfg.BaudRate,
		ReadTimeout: ms(cfg.ReadTimeoutMs),
	})
}

// openDevice composes the controller link over b. The device owns b and
// the serial port from here on.
func openDevice(cfg config.LinkConfig, b bus.Bus, log *zap.Logger) (*link.Device, error) {
	port, err := openSerial(cfg.Serial)
	if err != nil {
		b.Close()
		return nil, err
	}

	cmd := link.NewCommandChannel(b, link.CommandConfig{
		Address: cfg.Bus.Address,
		Settle:  ms(*cfg.Bus.SettleMs),
	}, log)
	ack := link.NewAckChannel(port, link.AckConfig{
		EstablishWindow: ms(cfg.Serial.EstablishTimeoutMs),
	}, log)

	return link.NewDevice(cmd, ack, log, port.Close), nil
}
