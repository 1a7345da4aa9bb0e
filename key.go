package pideck

import (
	"libdb.so/pideck/hid"
	"libdb.so/pideck/internal/led"
)

// animSteps is the number of steps between the on and off colors of an
// animation.
const animSteps = 10

// Key is the model of a single key: its validated configuration and the
// state that the control loop advances every tick.
type Key struct {
	index   int
	cfg     KeyConfig
	command []hid.Keycode

	toggled bool
	held    bool
	level   int
	rising  bool
}

// NewKey creates the model of the key at the given index. cfg must have
// been validated.
func NewKey(index int, cfg KeyConfig) *Key {
	return &Key{
		index:   index,
		cfg:     cfg,
		command: hid.Resolve(cfg.Command),
		level:   animSteps,
	}
}

// Index returns the physical index of the key.
func (k *Key) Index() int { return k.index }

// Config returns the configuration of the key.
func (k *Key) Config() KeyConfig { return k.cfg }

// Toggled returns the toggle latch. It is always false for press keys.
func (k *Key) Toggled() bool { return k.toggled }

// Level returns the animation counter and its direction.
func (k *Key) Level() (level int, rising bool) { return k.level, k.rising }

// Update feeds the key its pressed state for this tick and reports whether
// this tick is a press edge, meaning the key is pressed now but was not on
// the previous tick. Toggle keys flip their latch on the edge only.
func (k *Key) Update(pressed bool) (edge bool) {
	edge = pressed && !k.held
	k.held = pressed

	if edge && k.cfg.ButtonType == ToggleButton {
		k.toggled = !k.toggled
	}

	return edge
}

// PulseTick advances the pulse animation by one step and returns the color
// to show.
func (k *Key) PulseTick() led.RGBColor {
	k.level, k.rising = pulseStep(k.level, k.rising)
	return k.fade()
}

// FlashTick advances the flash animation by one step and returns the color
// to show.
func (k *Key) FlashTick() led.RGBColor {
	k.level, k.rising = flashStep(k.level, k.rising)
	if k.rising {
		return k.cfg.On
	}
	return k.cfg.Off
}

func (k *Key) fade() led.RGBColor {
	return led.Fade(k.cfg.Off, k.cfg.On, float64(k.level)/animSteps)
}

// pulseStep moves a triangle wave over [0, animSteps] by one step. At the
// top the direction flips on a tick of its own; at the bottom it flips on
// the tick that reaches 0. Starting from (animSteps, false), level 0 is
// reached on the 10th step and (animSteps, false) again on the 21st.
func pulseStep(level int, rising bool) (int, bool) {
	if rising {
		if level < animSteps {
			return level + 1, true
		}
		return level, false
	}

	if level > 0 {
		level--
	}
	return level, level == 0
}

// flashStep counts up to animSteps, then wraps to 0 and flips the
// direction. The direction therefore holds for animSteps ticks at a time.
func flashStep(level int, rising bool) (int, bool) {
	if level < animSteps {
		level++
	}
	if level >= animSteps {
		return 0, !rising
	}
	return level, rising
}
