// internal/control/cycle.go
package control

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/tamzrod/clinostat/internal/config"
)

// DefaultPresetMinutes is the time spent on a preset when none is stored.
const DefaultPresetMinutes = 1.0

// CycleStatus describes the preset lighting cycle.
type CycleStatus struct {
	Running        bool    `json:"running"`
	Preset         int     `json:"preset,omitempty"`
	Preset1Minutes float64 `json:"preset_1_minutes"`
	Preset2Minutes float64 `json:"preset_2_minutes"`
}

type lightingCycle struct {
	cancel context.CancelFunc
	done   chan struct{}
	preset int
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

// PresetMinutes returns the stored cycle durations.
func (c *Controller) PresetMinutes() (float64, float64) {
	return c.store.Float(config.PresetDurationKey(1), DefaultPresetMinutes),
		c.store.Float(config.PresetDurationKey(2), DefaultPresetMinutes)
}

// StartLightingCycle persists both durations, loads preset 1 and then
// alternates between the presets, p1 minutes on preset 1 and p2 on
// preset 2, until stopped. A preset that is not stored is skipped with
// a warning.
func (c *Controller) StartLightingCycle(p1, p2 float64) error {
	if p1 <= 0 || p2 <= 0 {
		return fmt.Errorf("%w: got %g and %g minutes", ErrInvalidDuration, p1, p2)
	}

	c.cycleMu.Lock()
	defer c.cycleMu.Unlock()
	if c.cycle != nil {
		return ErrCycleRunning
	}

	if err := c.store.Set(map[string]any{
		config.PresetDurationKey(1): p1,
		config.PresetDurationKey(2): p2,
	}); err != nil {
		return err
	}
	if err := c.LoadPreset(MinPreset); err != nil {
		if !errors.Is(err, ErrNoPreset) {
			return err
		}
		c.log.Warn("lighting cycle preset missing", zap.Int("preset", MinPreset))
	}

	ctx, cancel := context.WithCancel(context.Background())
	cyc := &lightingCycle{cancel: cancel, done: make(chan struct{}), preset: MinPreset}
	c.cycle = cyc

	go c.runCycle(ctx, cyc, [2]time.Duration{minutes(p1), minutes(p2)})

	c.log.Info("lighting cycle started", zap.Float64("preset_1_minutes", p1), zap.Float64("preset_2_minutes", p2))
	return nil
}

func (c *Controller) runCycle(ctx context.Context, cyc *lightingCycle, durations [2]time.Duration) {
	defer close(cyc.done)

	preset := MinPreset
	for {
		if c.sleep(ctx, durations[preset-1]) != nil {
			return
		}
		preset = MinPreset + MaxPreset - preset

		c.cycleMu.Lock()
		cyc.preset = preset
		c.cycleMu.Unlock()

		if err := c.LoadPreset(preset); err != nil {
			c.log.Warn("lighting cycle preset not loaded", zap.Int("preset", preset), zap.Error(err))
		}
	}
}

// StopLightingCycle ends a running cycle and darkens the strip. Stopping
// an idle cycle is a no-op.
func (c *Controller) StopLightingCycle() error {
	if !c.endCycle() {
		return nil
	}
	c.log.Info("lighting cycle stopped")
	return c.TurnOffAllLights()
}

// ToggleLightingCycle stops a running cycle or starts one with p1 and p2
// minutes. It reports whether the cycle is running afterwards.
func (c *Controller) ToggleLightingCycle(p1, p2 float64) (bool, error) {
	if c.LightingCycle().Running {
		return false, c.StopLightingCycle()
	}
	if err := c.StartLightingCycle(p1, p2); err != nil {
		return false, err
	}
	return true, nil
}

// LightingCycle reports the cycle and the stored durations.
func (c *Controller) LightingCycle() CycleStatus {
	p1, p2 := c.PresetMinutes()
	st := CycleStatus{Preset1Minutes: p1, Preset2Minutes: p2}

	c.cycleMu.Lock()
	defer c.cycleMu.Unlock()
	if c.cycle != nil {
		st.Running = true
		st.Preset = c.cycle.preset
	}
	return st
}

// Close stops background work without touching the strip.
func (c *Controller) Close() { c.endCycle() }

// endCycle cancels the cycle and waits for it. The wait happens outside
// cycleMu since the loop takes it between presets.
func (c *Controller) endCycle() bool {
	c.cycleMu.Lock()
	cyc := c.cycle
	c.cycle = nil
	c.cycleMu.Unlock()

	if cyc == nil {
		return false
	}
	cyc.cancel()
	<-cyc.done
	return true
}

func minutes(m float64) time.Duration {
	return time.Duration(m * float64(time.Minute))
}
