// internal/control/lighting.go
package control

import (
	"fmt"

	"github.com/tamzrod/clinostat/internal/config"
	"github.com/tamzrod/clinostat/internal/link"
)

// SendLED stages one LED range and records it in the stored sequence.
// The strip changes on the next ShowLEDs.
func (c *Controller) SendLED(cmd link.LEDCommand) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.sendLED(cmd)
}

func (c *Controller) sendLED(cmd link.LEDCommand) error {
	if err := c.dev.SetLEDRange(cmd); err != nil {
		return err
	}
	return c.store.AppendLED(cmd)
}

// ShowLEDs commits staged ranges to the strip.
func (c *Controller) ShowLEDs() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.dev.ShowLEDs()
}

// TurnOffAllLights stages a dark range over the whole strip.
func (c *Controller) TurnOffAllLights() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.sendLED(allLEDsOff)
}

// ResetLEDs forgets the stored sequence and darkens the strip, leaving
// the dark range as the only stored command.
func (c *Controller) ResetLEDs() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.clearAndDarken(nil)
}

// clearAndDarken stores extra alongside an empty sequence, then stages
// the dark range. Caller holds mu.
func (c *Controller) clearAndDarken(extra map[string]any) error {
	values := map[string]any{config.KeyLEDCommands: []link.LEDCommand{}}
	for k, v := range extra {
		values[k] = v
	}
	if err := c.store.Set(values); err != nil {
		return err
	}
	return c.sendLED(allLEDsOff)
}

// LEDCommands returns the stored sequence.
func (c *Controller) LEDCommands() []link.LEDCommand {
	cmds, _ := c.store.LEDCommands(config.KeyLEDCommands)
	return cmds
}

func validPreset(n int) error {
	if n < MinPreset || n > MaxPreset {
		return fmt.Errorf("%w: %d outside %d..%d", ErrUnknownPreset, n, MinPreset, MaxPreset)
	}
	return nil
}

// SavePreset stores the current sequence as preset n, then starts a
// fresh sequence from a dark strip.
func (c *Controller) SavePreset(n int) error {
	if err := validPreset(n); err != nil {
		return err
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	cmds, ok := c.store.LEDCommands(config.KeyLEDCommands)
	if !ok {
		cmds = []link.LEDCommand{}
	}
	return c.clearAndDarken(map[string]any{config.PresetKey(n): cmds})
}

// LoadPreset replays preset n to the strip and makes it the current
// sequence.
func (c *Controller) LoadPreset(n int) error {
	if err := validPreset(n); err != nil {
		return err
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	cmds, ok := c.store.LEDCommands(config.PresetKey(n))
	if !ok {
		return fmt.Errorf("%w: %d", ErrNoPreset, n)
	}
	if err := c.replay(cmds); err != nil {
		return err
	}
	return c.store.Set(map[string]any{config.KeyLEDCommands: cmds})
}

// replay stages every stored range then commits them in one show.
func (c *Controller) replay(cmds []link.LEDCommand) error {
	for _, cmd := range cmds {
		if err := c.dev.ReplayLED(cmd); err != nil {
			return err
		}
	}
	return c.dev.ShowLEDs()
}
