package pideck

import (
	"errors"
	"strings"
	"testing"
	"time"

	"libdb.so/pideck/internal/led"
)

const testTOMLConfig = `
backend = "serial"
device = "/dev/ttyACM1"
tick = "20ms"

[[key]]
name = "0"
on = "FF0000"
off = "000000"
effect = "pulse"
command = "CONTROL C"

[[key]]
name = "3"
on = "#00F"
off = "111111"
button_type = "toggle"
trigger = "edge"
latch = true
command = "COMMAND + SHIFT + 4"
`

func TestParseConfig(t *testing.T) {
	cfg, err := ParseConfig(strings.NewReader(testTOMLConfig))
	if err != nil {
		t.Fatal(err)
	}

	if cfg.Device != "/dev/ttyACM1" {
		t.Errorf("device = %q", cfg.Device)
	}
	if time.Duration(cfg.Tick) != 20*time.Millisecond {
		t.Errorf("tick = %v, want 20ms", time.Duration(cfg.Tick))
	}
	// Settings the file leaves out take their defaults.
	def := DefaultConfig()
	if cfg.Baud != def.Baud || cfg.NumKeys != def.NumKeys || cfg.Timeout != def.Timeout {
		t.Errorf("defaults not filled in: %+v", cfg)
	}
	if cfg.RPi != def.RPi {
		t.Errorf("rpi = %+v, want %+v", cfg.RPi, def.RPi)
	}

	if len(cfg.Keys) != 2 {
		t.Fatalf("got %d keys, want 2", len(cfg.Keys))
	}

	k := cfg.Keys[0]
	if k.On != led.RGB(0xFF, 0, 0) || k.Effect != PulseEffect {
		t.Errorf("key 0 = %+v", k)
	}
	if k.ButtonType != PressButton || k.Trigger != LevelTrigger {
		t.Errorf("key 0 defaults = %s/%s, want press/level", k.ButtonType, k.Trigger)
	}

	k = cfg.Keys[1]
	if k.On != led.RGB(0, 0, 0x0F) {
		t.Errorf("key 3 on = %s, want #00000F", k.On)
	}
	if k.Effect != NoEffect || k.ButtonType != ToggleButton || k.Trigger != EdgeTrigger || !k.Latch {
		t.Errorf("key 3 = %+v", k)
	}
	if i, _ := k.Index(); i != 3 {
		t.Errorf("key 3 index = %d", i)
	}
}

func TestConfigRejects(t *testing.T) {
	tests := []struct {
		name  string
		toml  string
		field string
	}{
		{
			name:  "duplicate index",
			toml:  "[[key]]\nname = \"1\"\n[[key]]\nname = \"1\"\n",
			field: "name",
		},
		{
			name:  "index out of range",
			toml:  "num_keys = 4\n[[key]]\nname = \"4\"\n",
			field: "name",
		},
		{
			name:  "name not a number",
			toml:  "[[key]]\nname = \"enter\"\n",
			field: "name",
		},
		{
			name:  "too many keys",
			toml:  "num_keys = 17\n",
			field: "num_keys",
		},
		{
			name:  "bad brightness",
			toml:  "backend = \"rpi\"\n[rpi]\nbrightness = 40\n",
			field: "rpi.brightness",
		},
	}

	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			_, err := ParseConfig(strings.NewReader(test.toml))
			var cerr *ConfigError
			if !errors.As(err, &cerr) {
				t.Fatalf("got error %v, want a ConfigError", err)
			}
			if cerr.Field != test.field {
				t.Errorf("error on field %q, want %q", cerr.Field, test.field)
			}
		})
	}
}

func TestConfigRejectsBadValues(t *testing.T) {
	tests := []struct {
		name string
		toml string
	}{
		{"unknown effect", "[[key]]\nname = \"0\"\neffect = \"sparkle\"\n"},
		{"unknown button type", "[[key]]\nname = \"0\"\nbutton_type = \"hold\"\n"},
		{"bad color", "[[key]]\nname = \"0\"\non = \"GG0000\"\n"},
		{"unknown backend", "backend = \"usb\"\n"},
		{"bad tick", "tick = \"soon\"\n"},
	}

	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			if _, err := ParseConfig(strings.NewReader(test.toml)); err == nil {
				t.Error("config accepted")
			}
		})
	}
}

func TestParseJSONConfig(t *testing.T) {
	tests := []struct {
		name string
		json string
	}{
		{
			name: "array of objects",
			json: `[
				{"name": "2", "on": "00FF00", "off": "000000", "effect": "flash", "command": "UP_ARROW"},
				{"name": "5", "on": "FFFFFF", "button_type": "toggle"}
			]`,
		},
		{
			name: "array of field lists",
			json: `[
				[{"name": "2"}, {"on": "00FF00"}, {"off": "000000"}, {"effect": "flash"}, {"command": "UP_ARROW"}],
				[{"name": "5"}, {"on": "FFFFFF"}, {"button_type": "toggle"}]
			]`,
		},
		{
			name: "object with settings",
			json: `{
				"tick": "50ms",
				"keys": [
					{"name": "2", "on": "00FF00", "effect": "flash", "command": "UP_ARROW"},
					{"name": "5", "on": "FFFFFF", "button_type": "toggle"}
				]
			}`,
		},
	}

	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			cfg, err := ParseJSONConfig(strings.NewReader(test.json))
			if err != nil {
				t.Fatal(err)
			}
			if len(cfg.Keys) != 2 {
				t.Fatalf("got %d keys, want 2", len(cfg.Keys))
			}

			k := cfg.Keys[0]
			if k.Name != "2" || k.On != led.RGB(0, 0xFF, 0) || k.Effect != FlashEffect || k.Command != "UP_ARROW" {
				t.Errorf("key 2 = %+v", k)
			}
			k = cfg.Keys[1]
			if k.Name != "5" || k.ButtonType != ToggleButton || k.Effect != NoEffect {
				t.Errorf("key 5 = %+v", k)
			}
			if cfg.Backend != SerialBackend || time.Duration(cfg.Tick) != 50*time.Millisecond {
				t.Errorf("settings = %s/%v", cfg.Backend, time.Duration(cfg.Tick))
			}
		})
	}
}

func TestParseJSONConfigRejects(t *testing.T) {
	tests := []struct {
		name string
		json string
	}{
		{"malformed", `[{"name": "0"`},
		{"keys not an array", `{"keys": {"name": "0"}}`},
		{"record not an object", `["0"]`},
		{"bad effect", `[{"name": "0", "effect": "strobe"}]`},
		{"duplicate index", `[{"name": "0"}, {"name": "0"}]`},
	}

	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			if _, err := ParseJSONConfig(strings.NewReader(test.json)); err == nil {
				t.Error("config accepted")
			}
		})
	}
}

func TestReadConfigPicksFormat(t *testing.T) {
	cfg, err := ReadConfig(strings.NewReader(`[{"name": "1"}]`), "keys.JSON")
	if err != nil {
		t.Fatal(err)
	}
	if len(cfg.Keys) != 1 {
		t.Errorf("json: got %d keys, want 1", len(cfg.Keys))
	}

	cfg, err = ReadConfig(strings.NewReader("[[key]]\nname = \"1\"\n"), "pideck.toml")
	if err != nil {
		t.Fatal(err)
	}
	if len(cfg.Keys) != 1 {
		t.Errorf("toml: got %d keys, want 1", len(cfg.Keys))
	}
}

func TestConfigKeepsExplicitZeroes(t *testing.T) {
	tests := []struct {
		name  string
		file  string
		input string
	}{
		{
			name:  "toml",
			file:  "pideck.toml",
			input: "backend = \"rpi\"\n[rpi]\nbrightness = 0\nchip_select = 0\n",
		},
		{
			name:  "json",
			file:  "pideck.json",
			input: `{"backend": "rpi", "rpi": {"brightness": 0, "chip_select": 0}, "keys": []}`,
		},
		{
			name:  "yaml",
			file:  "keypad.yml",
			input: "backend: rpi\nrpi:\n  brightness: 0\n  chip_select: 0\n",
		},
	}

	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			cfg, err := ReadConfig(strings.NewReader(test.input), test.file)
			if err != nil {
				t.Fatal(err)
			}
			if cfg.RPi.Brightness != 0 || cfg.RPi.ChipSelect != 0 {
				t.Errorf("brightness = %d, chip select = %d, want both 0",
					cfg.RPi.Brightness, cfg.RPi.ChipSelect)
			}
			// Settings left out still take their defaults.
			if def := DefaultRPiConfig(); cfg.RPi.I2CDevice != def.I2CDevice || cfg.RPi.I2CAddress != def.I2CAddress {
				t.Errorf("rpi = %+v, want default bus settings", cfg.RPi)
			}
		})
	}
}

const testYAMLConfig = `
- - name: "0"
  - on: FF0000
  - off: 000000
  - effect: pulse
  - button_type: press
  - command: CTRL C
- - name: 7
  - on: "#00FF00"
  - off:
  - button_type: toggle
  - command: ECSCAPE
`

func TestParseYAMLConfig(t *testing.T) {
	cfg, err := ReadConfig(strings.NewReader(testYAMLConfig), "keypad.yml")
	if err != nil {
		t.Fatal(err)
	}
	if len(cfg.Keys) != 2 {
		t.Fatalf("got %d keys, want 2", len(cfg.Keys))
	}

	k := cfg.Keys[0]
	if k.Name != "0" || k.On != red || k.Off != black || k.Effect != PulseEffect || k.Command != "CTRL C" {
		t.Errorf("key 0 = %+v", k)
	}

	k = cfg.Keys[1]
	if i, _ := k.Index(); i != 7 {
		t.Errorf("key 7 index = %d", i)
	}
	if k.On != led.RGB(0, 0xFF, 0) || k.Off != black || k.ButtonType != ToggleButton {
		t.Errorf("key 7 = %+v", k)
	}

	if cfg.Backend != SerialBackend || cfg.NumKeys != MaxKeys {
		t.Errorf("settings = %s/%d, want defaults", cfg.Backend, cfg.NumKeys)
	}
}

func TestParseYAMLConfigSettings(t *testing.T) {
	const input = `
backend: rpi
tick: 25ms
num_keys: 8
rpi:
  i2c_address: 0x21
keys:
  - name: "1"
    latch: true
    button_type: toggle
`
	cfg, err := ParseYAMLConfig(strings.NewReader(input))
	if err != nil {
		t.Fatal(err)
	}
	if cfg.Backend != RPiBackend || time.Duration(cfg.Tick) != 25*time.Millisecond || cfg.NumKeys != 8 {
		t.Errorf("settings = %+v", cfg)
	}
	if cfg.RPi.I2CAddress != 0x21 {
		t.Errorf("i2c address = %#x, want 0x21", cfg.RPi.I2CAddress)
	}
	if len(cfg.Keys) != 1 || !cfg.Keys[0].Latch {
		t.Errorf("keys = %+v", cfg.Keys)
	}
}

func TestParseYAMLConfigRejects(t *testing.T) {
	tests := []struct {
		name string
		yaml string
	}{
		{"empty", ""},
		{"malformed", "- - name: [0\n"},
		{"keys not a list", "keys:\n  name: 0\n"},
		{"record not a mapping", "- 0\n"},
		{"bad latch", "- name: 0\n  latch: maybe\n"},
		{"bad number", "num_keys: many\n"},
		{"index out of range", "- name: 16\n"},
	}

	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			if _, err := ParseYAMLConfig(strings.NewReader(test.yaml)); err == nil {
				t.Error("config accepted")
			}
		})
	}
}
