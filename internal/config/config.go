// internal/config/config.go
package config

import (
	"time"

	"github.com/tamzrod/clinostat/internal/motion"
)

type Config struct {
	Link      LinkConfig      `yaml:"link"`
	Sensors   SensorsConfig   `yaml:"sensors"`
	Motor     motion.Settings `yaml:"motor"`
	StateFile string          `yaml:"state_file"`
	API       APIConfig       `yaml:"api"`
	Influx    *InfluxConfig   `yaml:"influx"` // optional
}

// ---- LINK ----

type LinkConfig struct {
	Bus    BusConfig    `yaml:"bus"`
	Serial SerialConfig `yaml:"serial"`
}

type BusConfig struct {
	Driver   string       `yaml:"driver"` // i2c | modbus
	Address  uint8        `yaml:"address"`
	SettleMs *int         `yaml:"settle_ms"`
	Modbus   ModbusConfig `yaml:"modbus"`
}

type ModbusConfig struct {
	Mode      string `yaml:"mode"` // tcp | rtu
	Endpoint  string `yaml:"endpoint"`
	BaudRate  int    `yaml:"baud_rate"`
	TimeoutMs int    `yaml:"timeout_ms"`
	Register  uint16 `yaml:"register"`
}

type SerialConfig struct {
	Port               string `yaml:"port"`
	BaudRate           int    `yaml:"baud_rate"`
	ReadTimeoutMs      int    `yaml:"read_timeout_ms"`
	EstablishTimeoutMs int    `yaml:"establish_timeout_ms"`
}

// ---- SENSORS ----

type SensorsConfig struct {
	ChunkDir string        `yaml:"chunk_dir"`
	Ambient  SamplerConfig `yaml:"ambient"`
	Motion   SamplerConfig `yaml:"motion"`

	// CriticalStorageMb is the free space below which sampling refuses
	// to start. 0 disables the check.
	CriticalStorageMb *int `yaml:"critical_storage_mb"`
}

// SamplerConfig is shared by both sensors. Ambient is paced by
// rate_seconds, motion by rate_hz.
type SamplerConfig struct {
	Address          uint8   `yaml:"address"`
	RateSeconds      float64 `yaml:"rate_seconds"`
	RateHz           float64 `yaml:"rate_hz"`
	RecentCapacity   int     `yaml:"recent_capacity"`
	ArchivedCapacity int     `yaml:"archived_capacity"`
	MaxRetries       int     `yaml:"max_retries"`
	RetryDelayMs     int     `yaml:"retry_delay_ms"`
}

// Period is the time between samples.
func (s SamplerConfig) Period() time.Duration {
	if s.RateHz > 0 {
		return time.Duration(float64(time.Second) / s.RateHz)
	}
	return time.Duration(s.RateSeconds * float64(time.Second))
}

// ---- API / SINKS ----

type APIConfig struct {
	Listen string `yaml:"listen"`
}

type InfluxConfig struct {
	URL    string            `yaml:"url"`
	Token  string            `yaml:"token"`
	Org    string            `yaml:"org"`
	Bucket string            `yaml:"bucket"`
	Tags   map[string]string `yaml:"tags"`
}
