// internal/config/dynamic.go
package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/tamzrod/clinostat/internal/link"
)

// Keys of the persisted runtime document.
const (
	KeyFrameMotorSpeed   = "frame_motor_speed"
	KeyCoreMotorSpeed    = "core_motor_speed"
	KeyFrameMotorCW      = "frame_motor_direction_cw"
	KeyCoreMotorCW       = "core_motor_direction_cw"
	KeyLinked            = "linked"
	KeyTemperatureOffset = "temperature_offset"
	KeyHumidityOffset    = "humidity_offset"
	KeyPressureOffset    = "pressure_offset"
	KeyLEDCommands       = "led_commands"
	KeyPresetPrefix      = "preset_"
	keyDurationSuffix    = "_duration"
)

// PresetKey names the stored LED sequence for preset n.
func PresetKey(n int) string { return fmt.Sprintf("%s%d", KeyPresetPrefix, n) }

// PresetDurationKey names the lighting cycle minutes spent on preset n.
func PresetDurationKey(n int) string { return PresetKey(n) + keyDurationSuffix }

// Dynamic is the flat JSON document that persists operator settings
// between runs. Keys this package does not know are carried through
// unchanged.
//
// Every mutation rewrites the whole file.
type Dynamic struct {
	path string

	mu  sync.Mutex
	doc map[string]json.RawMessage
}

// LoadDynamic reads path. A missing file is an empty document.
func LoadDynamic(path string) (*Dynamic, error) {
	d := &Dynamic{path: path, doc: map[string]json.RawMessage{}}

	raw, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		return d, nil
	}
	if err != nil {
		return nil, fmt.Errorf("config: read %s: %w", path, err)
	}
	if err := d.decode(raw); err != nil {
		return nil, err
	}
	return d, nil
}

func (d *Dynamic) Path() string { return d.path }

func (d *Dynamic) decode(raw []byte) error {
	doc := map[string]json.RawMessage{}
	if err := json.Unmarshal(raw, &doc); err != nil {
		return fmt.Errorf("config: dynamic document: %w", err)
	}
	d.doc = doc
	return nil
}

// ---- typed reads ----

// Float returns key, or def when missing or not a number.
func (d *Dynamic) Float(key string, def float64) float64 {
	var v float64
	if !d.get(key, &v) {
		return def
	}
	return v
}

// Bool returns key, or def when missing or not a boolean.
func (d *Dynamic) Bool(key string, def bool) bool {
	var v bool
	if !d.get(key, &v) {
		return def
	}
	return v
}

// LEDCommands returns the sequence stored under key.
func (d *Dynamic) LEDCommands(key string) ([]link.LEDCommand, bool) {
	var v []link.LEDCommand
	if !d.get(key, &v) {
		return nil, false
	}
	return v, true
}

func (d *Dynamic) get(key string, v any) bool {
	d.mu.Lock()
	raw, ok := d.doc[key]
	d.mu.Unlock()
	if !ok || string(raw) == "null" {
		return false
	}
	return json.Unmarshal(raw, v) == nil
}

// ---- writes ----

// Set stores every value and persists the document once.
func (d *Dynamic) Set(values map[string]any) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.setLocked(values)
}

// AppendLED appends c to the stored LED command list.
func (d *Dynamic) AppendLED(c link.LEDCommand) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	var cmds []link.LEDCommand
	if raw, ok := d.doc[KeyLEDCommands]; ok {
		_ = json.Unmarshal(raw, &cmds)
	}
	return d.setLocked(map[string]any{KeyLEDCommands: append(cmds, c)})
}

func (d *Dynamic) setLocked(values map[string]any) error {
	next := make(map[string]json.RawMessage, len(d.doc)+len(values))
	for k, v := range d.doc {
		next[k] = v
	}
	for k, v := range values {
		raw, err := json.Marshal(v)
		if err != nil {
			return fmt.Errorf("config: encode %s: %w", k, err)
		}
		next[k] = raw
	}

	if err := d.save(next); err != nil {
		return err
	}
	d.doc = next
	return nil
}

// Replace swaps in a whole document, e.g. an imported settings file.
func (d *Dynamic) Replace(raw []byte) error {
	doc := map[string]json.RawMessage{}
	if err := json.Unmarshal(raw, &doc); err != nil {
		return fmt.Errorf("config: dynamic document: %w", err)
	}

	d.mu.Lock()
	defer d.mu.Unlock()
	if err := d.save(doc); err != nil {
		return err
	}
	d.doc = doc
	return nil
}

// Marshal returns the document as stored on disk.
func (d *Dynamic) Marshal() ([]byte, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	return json.MarshalIndent(d.doc, "", "    ")
}

// save writes doc next to the target and renames it into place.
// Caller holds mu.
func (d *Dynamic) save(doc map[string]json.RawMessage) error {
	raw, err := json.MarshalIndent(doc, "", "    ")
	if err != nil {
		return fmt.Errorf("config: encode dynamic document: %w", err)
	}

	dir := filepath.Dir(d.path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("config: %w", err)
	}
	tmp, err := os.CreateTemp(dir, ".dynamic-*.json")
	if err != nil {
		return fmt.Errorf("config: %w", err)
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(raw); err != nil {
		tmp.Close()
		return fmt.Errorf("config: write %s: %w", d.path, err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("config: write %s: %w", d.path, err)
	}
	if err := os.Rename(tmp.Name(), d.path); err != nil {
		return fmt.Errorf("config: write %s: %w", d.path, err)
	}
	return nil
}
