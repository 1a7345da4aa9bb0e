package pideck

import (
	"encoding"
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"github.com/pelletier/go-toml"
	"github.com/pkg/errors"
	"libdb.so/pideck/internal/led"
	"libdb.so/pideck/keyserial"
)

// MaxKeys is the largest number of keys a keypad may have.
const MaxKeys = keyserial.MaxKeys

// Config is the configuration for the pideck daemon.
type Config struct {
	// Backend selects the hardware the daemon drives.
	Backend Backend `toml:"backend"`
	// Device is the path to the serial device of the keypad.
	// This is usually /dev/ttyACM0.
	Device string `toml:"device"`
	// Baud is the baud rate for the serial connection.
	Baud int `toml:"baud"`
	// Tick is the length of one control loop iteration.
	Tick TOMLDuration `toml:"tick"`
	// Timeout is how long the serial backend waits for the keypad to answer
	// a packet.
	Timeout TOMLDuration `toml:"timeout"`
	// NumKeys is the number of physical keys.
	NumKeys int `toml:"num_keys"`
	// RPi configures the Raspberry Pi backend.
	RPi RPiConfig `toml:"rpi"`
	// Keys lists the configured keys. Keys that are not listed stay dark.
	Keys []KeyConfig `toml:"key"`
}

// RPiConfig is the configuration for a keypad wired directly to a Raspberry
// Pi.
type RPiConfig struct {
	// I2CDevice is the i2c-dev node of the bus the button expander is on.
	I2CDevice string `toml:"i2c_device"`
	// I2CAddress is the address of the button expander.
	I2CAddress int `toml:"i2c_address"`
	// HIDDevice is the USB gadget HID keyboard node.
	HIDDevice string `toml:"hid_device"`
	// ChipSelect is the BCM pin that selects the pixel strip.
	ChipSelect int `toml:"chip_select"`
	// Brightness is the APA102 global brightness, 0 to 31.
	Brightness int `toml:"brightness"`
}

// KeyConfig is the configuration of a single key.
type KeyConfig struct {
	// Name is the physical index of the key, written as a string.
	Name string `toml:"name"`
	// On is the color of the key while it is pressed or toggled.
	On led.RGBColor `toml:"on"`
	// Off is the color of the key while it is idle.
	Off led.RGBColor `toml:"off"`
	// Effect is the animation shown by the key.
	Effect Effect `toml:"effect"`
	// ButtonType is whether the key is momentary or latching.
	ButtonType ButtonType `toml:"button_type"`
	// Trigger is when the command is sent while the key is held.
	Trigger Trigger `toml:"trigger"`
	// Latch keeps a toggled key lit with its On color after release.
	Latch bool `toml:"latch"`
	// Command is the space-separated list of keys to send.
	Command string `toml:"command"`
}

// Index parses the key name into its physical index.
func (k KeyConfig) Index() (int, error) {
	i, err := strconv.Atoi(strings.TrimSpace(k.Name))
	if err != nil {
		return 0, errors.Errorf("name %q is not a key index", k.Name)
	}
	return i, nil
}

// Backend is the kind of hardware the daemon talks to.
type Backend string

const (
	// SerialBackend drives a keypad running the pideck firmware over a
	// serial port.
	SerialBackend Backend = "serial"
	// RPiBackend drives a keypad wired to the Raspberry Pi the daemon runs
	// on.
	RPiBackend Backend = "rpi"
)

// Effect is the animation of a key.
type Effect string

const (
	// NoEffect shows the plain on/off colors.
	NoEffect Effect = "none"
	// PulseEffect continuously fades between off and on.
	PulseEffect Effect = "pulse"
	// FlashEffect blinks between off and on.
	FlashEffect Effect = "flash"
)

// ButtonType is the press behavior of a key.
type ButtonType string

const (
	// PressButton is lit while held.
	PressButton ButtonType = "press"
	// ToggleButton flips its latch once per press.
	ToggleButton ButtonType = "toggle"
)

// Trigger decides how often a held key dispatches its command.
type Trigger string

const (
	// LevelTrigger dispatches on every tick the key is held.
	LevelTrigger Trigger = "level"
	// EdgeTrigger dispatches once per press.
	EdgeTrigger Trigger = "edge"
)

var (
	_ encoding.TextUnmarshaler = (*Backend)(nil)
	_ encoding.TextUnmarshaler = (*Effect)(nil)
	_ encoding.TextUnmarshaler = (*ButtonType)(nil)
	_ encoding.TextUnmarshaler = (*Trigger)(nil)
)

// Valid reports whether b is a known backend.
func (b Backend) Valid() bool { return b == SerialBackend || b == RPiBackend }

// Valid reports whether e is a known effect.
func (e Effect) Valid() bool { return e == NoEffect || e == PulseEffect || e == FlashEffect }

// Valid reports whether t is a known button type.
func (t ButtonType) Valid() bool { return t == PressButton || t == ToggleButton }

// Valid reports whether t is a known trigger.
func (t Trigger) Valid() bool { return t == LevelTrigger || t == EdgeTrigger }

func (b *Backend) UnmarshalText(text []byte) error {
	return unmarshalEnum(b, text, "backend", Backend.Valid)
}

func (e *Effect) UnmarshalText(text []byte) error {
	return unmarshalEnum(e, text, "effect", Effect.Valid)
}

func (t *ButtonType) UnmarshalText(text []byte) error {
	return unmarshalEnum(t, text, "button type", ButtonType.Valid)
}

func (t *Trigger) UnmarshalText(text []byte) error {
	return unmarshalEnum(t, text, "trigger", Trigger.Valid)
}

func unmarshalEnum[T ~string](dst *T, text []byte, what string, valid func(T) bool) error {
	v := T(strings.ToLower(strings.TrimSpace(string(text))))
	if !valid(v) {
		return fmt.Errorf("%q is not a valid %s", text, what)
	}
	*dst = v
	return nil
}

// ConfigError is returned when the configuration is invalid.
type ConfigError struct {
	// Key is the name of the offending key, or empty for top-level
	// settings.
	Key string
	// Field is the offending setting.
	Field string
	Err   error
}

func (e *ConfigError) Error() string {
	if e.Key == "" {
		return fmt.Sprintf("config: %s: %v", e.Field, e.Err)
	}
	return fmt.Sprintf("config: key %q: %s: %v", e.Key, e.Field, e.Err)
}

func (e *ConfigError) Unwrap() error { return e.Err }

// DefaultConfig returns the configuration used for settings that a file
// leaves out.
func DefaultConfig() Config {
	return Config{
		Backend: SerialBackend,
		Device:  "/dev/ttyACM0",
		Baud:    115200,
		Tick:    TOMLDuration(50 * time.Millisecond),
		Timeout: TOMLDuration(40 * time.Millisecond),
		NumKeys: MaxKeys,
		RPi:     DefaultRPiConfig(),
	}
}

// DefaultRPiConfig returns the wiring of a Pimoroni RGB keypad on the
// Raspberry Pi header.
func DefaultRPiConfig() RPiConfig {
	return RPiConfig{
		I2CDevice:  "/dev/i2c-1",
		I2CAddress: 0x20,
		HIDDevice:  "/dev/hidg0",
		ChipSelect: 8,
		Brightness: 3,
	}
}

// fillDefaults replaces zero settings that cannot be meant literally with
// their defaults. Brightness and chip select are left alone since 0 is a
// valid value for both; parsers start from DefaultConfig instead.
func (c *Config) fillDefaults() {
	def := DefaultConfig()
	if c.Backend == "" {
		c.Backend = def.Backend
	}
	if c.Device == "" {
		c.Device = def.Device
	}
	if c.Baud == 0 {
		c.Baud = def.Baud
	}
	if c.Tick == 0 {
		c.Tick = def.Tick
	}
	if c.Timeout == 0 {
		c.Timeout = def.Timeout
	}
	if c.NumKeys == 0 {
		c.NumKeys = def.NumKeys
	}

	rpi := def.RPi
	if c.RPi.I2CDevice == "" {
		c.RPi.I2CDevice = rpi.I2CDevice
	}
	if c.RPi.I2CAddress == 0 {
		c.RPi.I2CAddress = rpi.I2CAddress
	}
	if c.RPi.HIDDevice == "" {
		c.RPi.HIDDevice = rpi.HIDDevice
	}

	for i := range c.Keys {
		k := &c.Keys[i]
		if k.Effect == "" {
			k.Effect = NoEffect
		}
		if k.ButtonType == "" {
			k.ButtonType = PressButton
		}
		if k.Trigger == "" {
			k.Trigger = LevelTrigger
		}
	}
}

// Validate validates the configuration.
func (c *Config) Validate() error {
	if !c.Backend.Valid() {
		return &ConfigError{Field: "backend", Err: errors.Errorf("unknown backend %q", c.Backend)}
	}
	if c.NumKeys < 1 || c.NumKeys > MaxKeys {
		return &ConfigError{Field: "num_keys", Err: errors.Errorf("%d is not between 1 and %d", c.NumKeys, MaxKeys)}
	}
	if c.Tick <= 0 {
		return &ConfigError{Field: "tick", Err: errors.New("must be positive")}
	}
	if c.Backend == SerialBackend && c.Timeout <= 0 {
		return &ConfigError{Field: "timeout", Err: errors.New("must be positive")}
	}
	if c.Backend == RPiBackend && (c.RPi.Brightness < 0 || c.RPi.Brightness > 31) {
		return &ConfigError{Field: "rpi.brightness", Err: errors.Errorf("%d is not between 0 and 31", c.RPi.Brightness)}
	}

	seen := make(map[int]bool, len(c.Keys))
	for _, k := range c.Keys {
		i, err := k.Index()
		if err != nil {
			return &ConfigError{Key: k.Name, Field: "name", Err: err}
		}
		if i < 0 || i >= c.NumKeys {
			return &ConfigError{Key: k.Name, Field: "name", Err: errors.Errorf("index %d out of range [0, %d)", i, c.NumKeys)}
		}
		if seen[i] {
			return &ConfigError{Key: k.Name, Field: "name", Err: errors.Errorf("index %d configured twice", i)}
		}
		seen[i] = true

		if !k.Effect.Valid() {
			return &ConfigError{Key: k.Name, Field: "effect", Err: errors.Errorf("unknown effect %q", k.Effect)}
		}
		if !k.ButtonType.Valid() {
			return &ConfigError{Key: k.Name, Field: "button_type", Err: errors.Errorf("unknown button type %q", k.ButtonType)}
		}
		if !k.Trigger.Valid() {
			return &ConfigError{Key: k.Name, Field: "trigger", Err: errors.Errorf("unknown trigger %q", k.Trigger)}
		}
	}

	return nil
}

// TOMLDuration is a duration that can be parsed from TOML.
type TOMLDuration time.Duration

var (
	_ encoding.TextUnmarshaler = (*TOMLDuration)(nil)
	_ encoding.TextMarshaler   = (*TOMLDuration)(nil)
)

func (d *TOMLDuration) UnmarshalText(text []byte) error {
	duration, err := time.ParseDuration(string(text))
	if err != nil {
		return err
	}
	*d = TOMLDuration(duration)
	return nil
}

func (d TOMLDuration) MarshalText() ([]byte, error) {
	return []byte(time.Duration(d).String()), nil
}

// ParseConfig parses a TOML configuration from a reader. The file is decoded
// over DefaultConfig, so missing settings keep their defaults while explicit
// zeroes are kept. The result is validated.
func ParseConfig(r io.Reader) (*Config, error) {
	config := DefaultConfig()
	if err := toml.NewDecoder(r).Decode(&config); err != nil {
		return nil, errors.Wrap(err, "failed to decode TOML config")
	}

	config.fillDefaults()
	if err := config.Validate(); err != nil {
		return nil, err
	}

	return &config, nil
}
