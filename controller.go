package pideck

import (
	"context"
	"log/slog"
	"slices"
	"time"

	"github.com/pkg/errors"
	"libdb.so/pideck/hid"
	"libdb.so/pideck/internal/led"
)

// Buttons is the set of keys pressed during one poll. Bit i is set when key
// i is pressed.
type Buttons uint16

// Pressed reports whether key i is pressed.
func (b Buttons) Pressed(i int) bool {
	if i < 0 || i >= MaxKeys {
		return false
	}
	return b&(1<<i) != 0
}

// ButtonReader reads the state of the keypad buttons.
type ButtonReader interface {
	// ReadButtons polls the first n buttons once. It blocks until the
	// hardware answers.
	ReadButtons(n int) (Buttons, error)
}

// PixelWriter is a sink for key colors. Writing the same color twice has no
// additional effect.
type PixelWriter interface {
	// SetPixel sets the color of the key at index i.
	SetPixel(i int, c led.RGBColor)
}

// Flusher is implemented by pixel writers that buffer colors. The controller
// flushes once at the end of every tick.
type Flusher interface {
	Flush() error
}

// Clearer is implemented by pixel writers that can turn every pixel off at
// once. The controller clears on shutdown.
type Clearer interface {
	Clear() error
}

// Devices is the hardware owned by a controller.
type Devices struct {
	Buttons  ButtonReader
	Pixels   PixelWriter
	Keyboard hid.Keyboard
}

// Controller runs the keypad control loop. It is not safe for concurrent
// use: a single goroutine reads the buttons, advances every key and writes
// pixels and key presses.
type Controller struct {
	logger     *slog.Logger
	tick       time.Duration
	keys       []*Key // indexed by position, nil if unconfigured
	dev        Devices
	dispatcher *hid.Dispatcher
}

// NewController creates a controller for the keys in cfg driving the given
// devices. Settings left empty in cfg take their defaults.
func NewController(cfg *Config, dev Devices, logger *slog.Logger) (*Controller, error) {
	filled := *cfg
	filled.Keys = slices.Clone(cfg.Keys)
	filled.fillDefaults()
	cfg = &filled

	if err := cfg.Validate(); err != nil {
		return nil, errors.Wrap(err, "invalid configuration")
	}
	if dev.Buttons == nil || dev.Pixels == nil || dev.Keyboard == nil {
		return nil, errors.New("controller needs buttons, pixels and a keyboard")
	}

	if logger == nil {
		logger = slog.Default()
	}

	keys := make([]*Key, cfg.NumKeys)
	for _, kc := range cfg.Keys {
		i, _ := kc.Index()
		keys[i] = NewKey(i, kc)

		if _, unknown := hid.Parse(kc.Command); len(unknown) > 0 {
			logger.Warn(
				"ignoring unknown command tokens",
				"key", i,
				"tokens", unknown)
		}
	}

	return &Controller{
		logger:     logger,
		tick:       time.Duration(cfg.Tick),
		keys:       keys,
		dev:        dev,
		dispatcher: hid.NewDispatcher(dev.Keyboard),
	}, nil
}

// Key returns the model of the key at index i, or nil if the key is not
// configured.
func (c *Controller) Key(i int) *Key {
	if i < 0 || i >= len(c.keys) {
		return nil
	}
	return c.keys[i]
}

// Run paints the idle colors and then steps the keypad once per tick until
// ctx is canceled. On the way out every pixel is turned off and the keyboard
// is released.
func (c *Controller) Run(ctx context.Context) error {
	c.Start()
	defer c.stop()

	ticker := time.NewTicker(c.tick)
	defer ticker.Stop()

	for {
		c.Step()

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
		}
	}
}

// Start paints every key with its off color.
func (c *Controller) Start() {
	for i, k := range c.keys {
		color := led.Black
		if k != nil {
			color = k.cfg.Off
		}
		c.dev.Pixels.SetPixel(i, color)
	}
	c.flush()
}

// Step runs one iteration of the control loop without waiting.
func (c *Controller) Step() {
	pressed, err := c.dev.Buttons.ReadButtons(len(c.keys))
	if err != nil {
		c.logger.Warn(
			"failed to read buttons, assuming none are pressed",
			"error", err)
		pressed = 0
	}

	for _, k := range c.keys {
		if k != nil {
			c.stepKey(k, pressed.Pressed(k.index))
		}
	}

	c.flush()
}

func (c *Controller) stepKey(k *Key, pressed bool) {
	cfg := &k.cfg
	edge := k.Update(pressed)

	if pressed {
		if cfg.ButtonType == ToggleButton && !k.Toggled() {
			c.dev.Pixels.SetPixel(k.index, cfg.Off)
		} else {
			c.dev.Pixels.SetPixel(k.index, cfg.On)
		}

		if edge || cfg.Trigger == LevelTrigger {
			c.dispatch(k)
		}
	} else if cfg.Effect == NoEffect {
		color := cfg.Off
		if cfg.Latch && k.Toggled() {
			color = cfg.On
		}
		c.dev.Pixels.SetPixel(k.index, color)
	}

	// Animations run every tick whatever the press state and win over the
	// colors above.
	switch cfg.Effect {
	case PulseEffect:
		c.dev.Pixels.SetPixel(k.index, k.PulseTick())
	case FlashEffect:
		c.dev.Pixels.SetPixel(k.index, k.FlashTick())
	}
}

func (c *Controller) dispatch(k *Key) {
	if len(k.command) == 0 {
		return
	}

	if err := c.dispatcher.Send(k.cfg.Command, k.command); err != nil {
		c.logger.Warn(
			"failed to send key command",
			"key", k.index,
			"error", err)
		return
	}

	c.logger.Debug(
		"key sent",
		"key", k.index,
		"command", k.cfg.Command)
}

func (c *Controller) flush() {
	f, ok := c.dev.Pixels.(Flusher)
	if !ok {
		return
	}
	if err := f.Flush(); err != nil {
		c.logger.Warn(
			"failed to flush pixels",
			"error", err)
	}
}

func (c *Controller) stop() {
	if cl, ok := c.dev.Pixels.(Clearer); ok {
		if err := cl.Clear(); err != nil {
			c.logger.Warn(
				"failed to clear pixels",
				"error", err)
		}
	} else {
		for i := range c.keys {
			c.dev.Pixels.SetPixel(i, led.Black)
		}
		c.flush()
	}

	if err := c.dev.Keyboard.ReleaseAll(); err != nil {
		c.logger.Debug(
			"failed to release keyboard on shutdown",
			"error", err)
	}
}
