// internal/control/lighting_test.go
package control

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tamzrod/clinostat/internal/config"
	"github.com/tamzrod/clinostat/internal/link"
)

var (
	red  = link.LEDCommand{Start: 1, End: 40, Red: 255, Brightness: 128}
	blue = link.LEDCommand{Start: 41, End: 80, Blue: 255, Brightness: 128}
)

func TestSendLED_StagesAndRecords(t *testing.T) {
	c, dev, _ := newTestController(t, "")
	require.NoError(t, c.Startup())

	require.NoError(t, c.SendLED(red))
	require.NoError(t, c.SendLED(blue))
	require.NoError(t, c.ShowLEDs())

	assert.Equal(t, []link.LEDCommand{red, blue}, dev.leds)
	assert.Equal(t, []link.LEDCommand{red, blue}, c.LEDCommands())
	assert.Equal(t, "show", dev.calls[len(dev.calls)-1])
}

func TestTurnOffAllLights(t *testing.T) {
	c, dev, _ := newTestController(t, "")

	require.NoError(t, c.TurnOffAllLights())
	assert.Equal(t, []link.LEDCommand{{Start: 1, End: 130, Brightness: 255}}, dev.leds)
	assert.Len(t, c.LEDCommands(), 1)
}

func TestPresets_SaveAndLoad(t *testing.T) {
	c, dev, store := newTestController(t, "")
	require.NoError(t, c.Startup())

	require.NoError(t, c.SendLED(red))
	require.NoError(t, c.SendLED(blue))
	require.NoError(t, c.SavePreset(1))

	require.NoError(t, store.Set(map[string]any{config.KeyLEDCommands: []link.LEDCommand{}}))
	dev.calls = nil

	require.NoError(t, c.LoadPreset(1))
	assert.Equal(t, []link.LEDCommand{red, blue}, dev.replayed)
	assert.Equal(t, []string{"replay", "replay", "show"}, dev.calls)
	assert.Equal(t, []link.LEDCommand{red, blue}, c.LEDCommands())
}

func TestPresets_Missing(t *testing.T) {
	c, dev, _ := newTestController(t, "")

	err := c.LoadPreset(2)
	assert.ErrorIs(t, err, ErrNoPreset)
	assert.Empty(t, dev.calls)
}

func TestPresets_Range(t *testing.T) {
	c, dev, _ := newTestController(t, "")
	assert.ErrorIs(t, c.SavePreset(0), ErrUnknownPreset)
	assert.ErrorIs(t, c.SavePreset(3), ErrUnknownPreset)
	assert.ErrorIs(t, c.LoadPreset(3), ErrUnknownPreset)
	assert.Empty(t, dev.calls)
}

func TestSavePreset_ClearsAndDarkens(t *testing.T) {
	c, dev, store := newTestController(t, "")

	require.NoError(t, c.SendLED(red))
	require.NoError(t, c.SendLED(blue))
	require.NoError(t, c.SavePreset(1))

	cmds, ok := store.LEDCommands("preset_1")
	require.True(t, ok)
	assert.Equal(t, []link.LEDCommand{red, blue}, cmds)
	assert.Equal(t, []link.LEDCommand{allLEDsOff}, c.LEDCommands())
	assert.Equal(t, allLEDsOff, dev.leds[len(dev.leds)-1])
}

func TestResetLEDs(t *testing.T) {
	c, dev, _ := newTestController(t, "")

	require.NoError(t, c.SendLED(red))
	require.NoError(t, c.ResetLEDs())

	assert.Equal(t, []link.LEDCommand{red, allLEDsOff}, dev.leds)
	assert.Equal(t, []link.LEDCommand{allLEDsOff}, c.LEDCommands())
}

func TestSavePreset_EmptySequence(t *testing.T) {
	c, _, store := newTestController(t, "")
	require.NoError(t, c.SavePreset(2))

	cmds, ok := store.LEDCommands("preset_2")
	assert.True(t, ok)
	assert.Empty(t, cmds)
}
