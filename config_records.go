package pideck

import (
	"encoding"
	"io"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/pkg/errors"
)

// ReadConfig parses the configuration in r, picking the format from the file
// name's extension: .json and .yml/.yaml hold the key record layout, anything
// else is TOML.
func ReadConfig(r io.Reader, name string) (*Config, error) {
	switch strings.ToLower(filepath.Ext(name)) {
	case ".json":
		return ParseJSONConfig(r)
	case ".yml", ".yaml":
		return ParseYAMLConfig(r)
	default:
		return ParseConfig(r)
	}
}

// recordFields holds the scalar fields of a settings object or key record
// as text, keyed by name. Nested tables use dotted names, e.g.
// "rpi.brightness".
type recordFields map[string]string

// applySettings sets the top-level settings present in f.
func (c *Config) applySettings(f recordFields) error {
	text := []struct {
		field string
		dst   encoding.TextUnmarshaler
	}{
		{"backend", &c.Backend},
		{"tick", &c.Tick},
		{"timeout", &c.Timeout},
	}
	for _, t := range text {
		if v, ok := f[t.field]; ok {
			if err := t.dst.UnmarshalText([]byte(v)); err != nil {
				return &ConfigError{Field: t.field, Err: err}
			}
		}
	}

	strs := []struct {
		field string
		dst   *string
	}{
		{"device", &c.Device},
		{"rpi.i2c_device", &c.RPi.I2CDevice},
		{"rpi.hid_device", &c.RPi.HIDDevice},
	}
	for _, s := range strs {
		if v, ok := f[s.field]; ok {
			*s.dst = v
		}
	}

	ints := []struct {
		field string
		dst   *int
	}{
		{"baud", &c.Baud},
		{"num_keys", &c.NumKeys},
		{"rpi.i2c_address", &c.RPi.I2CAddress},
		{"rpi.chip_select", &c.RPi.ChipSelect},
		{"rpi.brightness", &c.RPi.Brightness},
	}
	for _, i := range ints {
		v, ok := f[i.field]
		if !ok {
			continue
		}
		n, err := strconv.ParseInt(strings.TrimSpace(v), 0, 0)
		if err != nil {
			return &ConfigError{Field: i.field, Err: errors.Errorf("%q is not an integer", v)}
		}
		*i.dst = int(n)
	}

	return nil
}

// keyFromFields builds a key configuration from its record fields.
func keyFromFields(f recordFields) (KeyConfig, error) {
	k := KeyConfig{
		Name:    f["name"],
		Command: f["command"],
	}

	if v, ok := f["latch"]; ok {
		latch, err := strconv.ParseBool(strings.TrimSpace(v))
		if err != nil {
			return KeyConfig{}, &ConfigError{Key: k.Name, Field: "latch", Err: errors.Errorf("%q is not a boolean", v)}
		}
		k.Latch = latch
	}

	text := []struct {
		field string
		dst   encoding.TextUnmarshaler
	}{
		{"on", &k.On},
		{"off", &k.Off},
		{"effect", &k.Effect},
		{"button_type", &k.ButtonType},
		{"trigger", &k.Trigger},
	}
	for _, t := range text {
		v, ok := f[t.field]
		if !ok {
			continue
		}
		if err := t.dst.UnmarshalText([]byte(v)); err != nil {
			return KeyConfig{}, &ConfigError{Key: k.Name, Field: t.field, Err: err}
		}
	}

	return k, nil
}

// finishRecords fills per-key defaults and validates a configuration read from
// key records.
func (c *Config) finishRecords() (*Config, error) {
	c.fillDefaults()
	if err := c.Validate(); err != nil {
		return nil, err
	}
	return c, nil
}
