// cmd/clinostat/run.go
package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/tamzrod/clinostat/internal/api"
	"github.com/tamzrod/clinostat/internal/bus"
	"github.com/tamzrod/clinostat/internal/config"
	"github.com/tamzrod/clinostat/internal/control"
	"github.com/tamzrod/clinostat/internal/link"
	"github.com/tamzrod/clinostat/internal/sensor"
	"github.com/tamzrod/clinostat/internal/state"
	"github.com/tamzrod/clinostat/internal/telemetry"
	"github.com/tamzrod/clinostat/internal/telemetry/influx"
)

var startSampling bool

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Run the device link, samplers and HTTP API",
	Long: `Run opens the register bus and the serial link, restores the persisted
operator settings, resets the controller, sends the handshake, and serves
the HTTP API until interrupted.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		log, err := newLogger()
		if err != nil {
			return err
		}
		defer log.Sync()

		cfg, err := loadConfig()
		if err != nil {
			return err
		}

		ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		return run(ctx, cfg, log)
	},
}

func init() {
	runCmd.Flags().BoolVar(&startSampling, "sample", false, "start both samplers immediately")
	rootCmd.AddCommand(runCmd)
}

func run(ctx context.Context, cfg *config.Config, log *zap.Logger) error {
	// --------------------
	// Link
	// --------------------

	b, err := openBus(cfg.Link.Bus)
	if err != nil {
		return err
	}
	dev, err := openDevice(cfg.Link, b, log)
	if err != nil {
		return err
	}
	defer func() {
		if err := dev.Close(); err != nil {
			log.Warn("device close failed", zap.Error(err))
		}
	}()

	// --------------------
	// State + control
	// --------------------

	rt := state.New()
	store, err := config.LoadDynamic(cfg.StateFile)
	if err != nil {
		return err
	}
	ctl := control.New(dev, rt, store, cfg.Motor, log)
	defer ctl.Close()

	go func() {
		err := dev.Listen(ctx)
		switch {
		case err == nil, errors.Is(err, context.Canceled):
		case errors.Is(err, link.ErrNotEstablished):
			log.Error("controller never answered the handshake; responses are no longer read", zap.Error(err))
		default:
			log.Error("serial listener stopped", zap.Error(err))
		}
	}()

	if err := ctl.Startup(); err != nil {
		return err
	}

	// --------------------
	// Telemetry
	// --------------------

	var notifiers telemetry.Notifiers
	if cfg.Influx != nil {
		sink, closeSink, err := influx.Open(influx.Config{
			URL:    cfg.Influx.URL,
			Token:  cfg.Influx.Token,
			Org:    cfg.Influx.Org,
			Bucket: cfg.Influx.Bucket,
			Tags:   cfg.Influx.Tags,
		}, log)
		if err != nil {
			return err
		}
		defer closeSink()
		notifiers = append(notifiers, sink)
	}

	if err := os.MkdirAll(cfg.Sensors.ChunkDir, 0o755); err != nil {
		return err
	}
	checkStorage(cfg.Sensors, log)

	ambient, motion, err := buildSamplers(cfg, b, rt, notifiers, log)
	if err != nil {
		return err
	}
	defer ambient.Stop()
	defer motion.Stop()

	if startSampling {
		for _, s := range []*telemetry.Sampler{ambient, motion} {
			if err := s.Start(); err != nil {
				log.Error("sampler not started", zap.String("kind", string(s.Kind())), zap.Error(err))
			}
		}
	}

	// --------------------
	// HTTP
	// --------------------

	srv := &http.Server{
		Addr:              cfg.API.Listen,
		Handler:           api.New(ctl, []api.Sampler{ambient, motion}, log).Handler(),
		ReadHeaderTimeout: 5 * time.Second,
	}
	errc := make(chan error, 1)
	go func() {
		log.Info("api listening", zap.String("addr", srv.Addr))
		errc <- srv.ListenAndServe()
	}()

	select {
	case <-ctx.Done():
		log.Info("shutting down")
	case err := <-errc:
		if !errors.Is(err, http.ErrServerClosed) {
			return err
		}
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}

// buildSamplers wires both sensors on the shared bus. Sensors are opened
// at the start of each session so a sensor plugged in later is picked up.
func buildSamplers(cfg *config.Config, b bus.Bus, rt *state.Runtime, n telemetry.Notifier, log *zap.Logger) (*telemetry.Sampler, *telemetry.Sampler, error) {
	sc := cfg.Sensors

	ambientAddr := sc.Ambient.Address
	ambient, err := telemetry.New(samplerConfig(sc.Ambient, sc), telemetry.AmbientSchema,
		func() (telemetry.Reader, error) {
			s, err := sensor.NewBME280(b, ambientAddr)
			if err != nil {
				return nil, err
			}
			return telemetry.AmbientReader{Sensor: s, Offsets: rt}, nil
		},
		telemetry.WithNotifier(n),
		telemetry.WithLogger(log),
	)
	if err != nil {
		return nil, nil, err
	}

	motionAddr := sc.Motion.Address
	motion, err := telemetry.New(samplerConfig(sc.Motion, sc), telemetry.MotionSchema,
		func() (telemetry.Reader, error) {
			s, err := sensor.NewISM330DHCX(b, motionAddr)
			if err != nil {
				return nil, err
			}
			return telemetry.MotionReader{Sensor: s}, nil
		},
		telemetry.WithNotifier(n),
		telemetry.WithLogger(log),
	)
	if err != nil {
		return nil, nil, err
	}

	return ambient, motion, nil
}

func samplerConfig(s config.SamplerConfig, sc config.SensorsConfig) telemetry.Config {
	tc := telemetry.Config{
		Period:           s.Period(),
		RecentCapacity:   s.RecentCapacity,
		ArchivedCapacity: s.ArchivedCapacity,
		MaxRetries:       s.MaxRetries,
		RetryDelay:       ms(s.RetryDelayMs),
		ChunkDir:         sc.ChunkDir,
	}
	if sc.CriticalStorageMb != nil {
		tc.MinFreeBytes = uint64(*sc.CriticalStorageMb) << 20
	}
	return tc
}

// checkStorage reports free space on the chunk directory at startup.
func checkStorage(sc config.SensorsConfig, log *zap.Logger) {
	free, err := telemetry.FreeSpace(sc.ChunkDir)
	if err != nil {
		log.Warn("free space unknown", zap.String("dir", sc.ChunkDir), zap.Error(err))
		return
	}
	log.Info("available storage", zap.String("dir", sc.ChunkDir), zap.Uint64("free_mb", free>>20))
	if sc.CriticalStorageMb != nil && free>>20 < uint64(*sc.CriticalStorageMb) {
		log.Error("storage below critical level; sampling will not start",
			zap.Uint64("free_mb", free>>20),
			zap.Int("critical_mb", *sc.CriticalStorageMb),
		)
	}
}
