// internal/control/settings.go
package control

import (
	"github.com/tamzrod/clinostat/internal/config"
)

// ExportSettings returns the persisted settings document.
func (c *Controller) ExportSettings() ([]byte, error) {
	return c.store.Marshal()
}

// ImportSettings replaces the persisted settings with raw, re-hydrates
// runtime state and replays the stored LED sequence, if any.
func (c *Controller) ImportSettings(raw []byte) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if err := c.store.Replace(raw); err != nil {
		return err
	}
	c.hydrate()

	cmds, ok := c.store.LEDCommands(config.KeyLEDCommands)
	if !ok {
		return nil
	}
	return c.replay(cmds)
}
