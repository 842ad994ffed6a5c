// internal/config/normalize.go
package config

// Defaults applied by Normalize.
const (
	DefaultCommandAddress  = 0x08
	DefaultSettleMs        = 100
	DefaultSerialBaud      = 115200
	DefaultReadTimeoutMs   = 100
	DefaultEstablishMs     = 10000
	DefaultModbusTimeoutMs = 1000
	DefaultAmbientAddress  = 0x77
	DefaultMotionAddress   = 0x6A
	DefaultAmbientRate     = 1.0 // seconds per sample
	DefaultMotionRateHz    = 10.0
	DefaultChunkDir        = "data"
	DefaultCriticalStorage = 500 // MB
	DefaultStateFile       = "dynamic_config.json"
	DefaultAPIListen       = ":8080"
	DefaultMotorSteps      = 200
	DefaultGearRatio       = 1.0
	defaultAmbientRecent   = 300
	defaultAmbientArchived = 600
	defaultMotionRecent    = 500
	defaultMotionArchived  = 1000
)

// Normalize applies post-validation normalization.
// It is allowed to mutate configuration.
// It MUST be called only after Validate().
func Normalize(cfg *Config) {
	if cfg == nil {
		return
	}

	// ------------------------------------------------------------
	// LINK
	// ------------------------------------------------------------

	b := &cfg.Link.Bus
	if b.Driver == "" {
		b.Driver = "i2c"
	}
	if b.Address == 0 {
		b.Address = DefaultCommandAddress
	}
	if b.SettleMs == nil {
		v := DefaultSettleMs
		b.SettleMs = &v
	}
	if b.Modbus.TimeoutMs == 0 {
		b.Modbus.TimeoutMs = DefaultModbusTimeoutMs
	}
	if b.Modbus.Mode == "" {
		b.Modbus.Mode = "tcp"
	}

	s := &cfg.Link.Serial
	if s.BaudRate == 0 {
		s.BaudRate = DefaultSerialBaud
	}
	if s.ReadTimeoutMs == 0 {
		s.ReadTimeoutMs = DefaultReadTimeoutMs
	}
	if s.EstablishTimeoutMs == 0 {
		s.EstablishTimeoutMs = DefaultEstablishMs
	}

	// ------------------------------------------------------------
	// SENSORS
	// ------------------------------------------------------------

	if cfg.Sensors.ChunkDir == "" {
		cfg.Sensors.ChunkDir = DefaultChunkDir
	}
	if cfg.Sensors.CriticalStorageMb == nil {
		v := DefaultCriticalStorage
		cfg.Sensors.CriticalStorageMb = &v
	}

	a := &cfg.Sensors.Ambient
	if a.Address == 0 {
		a.Address = DefaultAmbientAddress
	}
	if a.RateSeconds == 0 && a.RateHz == 0 {
		a.RateSeconds = DefaultAmbientRate
	}
	fillWindows(a, defaultAmbientRecent, defaultAmbientArchived)

	m := &cfg.Sensors.Motion
	if m.Address == 0 {
		m.Address = DefaultMotionAddress
	}
	if m.RateSeconds == 0 && m.RateHz == 0 {
		m.RateHz = DefaultMotionRateHz
	}
	fillWindows(m, defaultMotionRecent, defaultMotionArchived)

	// ------------------------------------------------------------
	// MOTOR / MISC
	// ------------------------------------------------------------

	if cfg.Motor.MotorSteps == 0 {
		cfg.Motor.MotorSteps = DefaultMotorSteps
	}
	if cfg.Motor.GearRatio == 0 {
		cfg.Motor.GearRatio = DefaultGearRatio
	}
	if len(cfg.Motor.MicrosteppingOptions) == 0 {
		cfg.Motor.MicrosteppingOptions = []int{1, 2, 4, 8, 16}
	}

	if cfg.StateFile == "" {
		cfg.StateFile = DefaultStateFile
	}
	if cfg.API.Listen == "" {
		cfg.API.Listen = DefaultAPIListen
	}

	// Retry policy left at zero falls through to the sampler defaults.
}

func fillWindows(s *SamplerConfig, recent, archived int) {
	if s.RecentCapacity == 0 {
		s.RecentCapacity = recent
	}
	if s.ArchivedCapacity == 0 {
		s.ArchivedCapacity = archived
	}
}
