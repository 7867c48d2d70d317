// Package config persists the seven-slot parameter vector to a single
// settings file, which the reference host reads at startup and writes
// when it exits, in the same fixed little-endian binary header style
// api.shadertoyapi uses to parse its VolumeData header.
package config

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"os"

	"github.com/loopstream/pedal/looper"
)

const settingsSignature uint32 = 0x50445042 // "BPDP"

// Settings is the on-disk form of the parameter vector: one uint16 per
// looper.Param, in Param order.
type Settings struct {
	Values [looper.ParamCount]uint16
}

// Load reads the settings file at path. A missing file is not an
// error: it returns zero-valued Settings, matching the pedal's
// power-on-defaults behavior.
func Load(path string) (Settings, error) {
	var s Settings
	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return s, nil
	}
	if err != nil {
		return s, fmt.Errorf("config: read %s: %w", path, err)
	}

	reader := bytes.NewReader(data)
	var signature uint32
	if err := binary.Read(reader, binary.LittleEndian, &signature); err != nil {
		return s, fmt.Errorf("config: read signature: %w", err)
	}
	if signature != settingsSignature {
		return s, fmt.Errorf("config: %s: bad signature %#x", path, signature)
	}
	for i := range s.Values {
		if err := binary.Read(reader, binary.LittleEndian, &s.Values[i]); err != nil {
			return s, fmt.Errorf("config: read param %d: %w", i, err)
		}
	}
	return s, nil
}

// Save writes the settings file at path, overwriting any previous
// contents.
func Save(path string, s Settings) error {
	var buf bytes.Buffer
	if err := binary.Write(&buf, binary.LittleEndian, settingsSignature); err != nil {
		return fmt.Errorf("config: write signature: %w", err)
	}
	for _, v := range s.Values {
		if err := binary.Write(&buf, binary.LittleEndian, v); err != nil {
			return fmt.Errorf("config: write param: %w", err)
		}
	}
	if err := os.WriteFile(path, buf.Bytes(), 0o644); err != nil {
		return fmt.Errorf("config: write %s: %w", path, err)
	}
	return nil
}

// ApplyTo pushes every value in s onto c via SetParameter.
func (s Settings) ApplyTo(c *looper.Controller) {
	for p, v := range s.Values {
		c.SetParameter(looper.Param(p), v)
	}
}

// FromController captures c's current parameter vector.
func FromController(c *looper.Controller) Settings {
	var s Settings
	all := c.AllParameters()
	copy(s.Values[:], all[:])
	return s
}
