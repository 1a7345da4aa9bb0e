// Package pideck runs a programmable macro keypad: every key sends a
// configured key sequence when pressed and shows a color animation for its
// state.
package pideck

import (
	"context"
	"io"
	"log/slog"
	"time"

	"github.com/pkg/errors"
	"go.bug.st/serial"
	"golang.org/x/sync/errgroup"
	"libdb.so/pideck/internal/rpi"
	"libdb.so/pideck/keyserial"
)

// Daemon is the main pideck daemon.
type Daemon struct {
	cfg    *Config
	logger *slog.Logger
}

// NewDaemon creates a new pideck daemon.
func NewDaemon(cfg *Config, logger *slog.Logger) (*Daemon, error) {
	if err := cfg.Validate(); err != nil {
		return nil, errors.Wrap(err, "invalid configuration")
	}

	return &Daemon{
		cfg:    cfg,
		logger: logger,
	}, nil
}

// Run starts the daemon. It blocks until the given context is canceled or
// the keypad fails.
func (d *Daemon) Run(ctx context.Context) error {
	switch d.cfg.Backend {
	case SerialBackend:
		return d.runSerial(ctx)
	case RPiBackend:
		return d.runRPi(ctx)
	default:
		return errors.Errorf("unknown backend %q", d.cfg.Backend)
	}
}

func (d *Daemon) runSerial(ctx context.Context) error {
	port, err := serial.Open(d.cfg.Device, &serial.Mode{
		BaudRate: d.cfg.Baud,
	})
	if err != nil {
		return errors.Wrap(err, "failed to open serial port")
	}
	defer port.Close()

	if err := port.SetReadTimeout(serial.NoTimeout); err != nil {
		return errors.Wrap(err, "failed to reset read timeout")
	}

	errg, ctx := errgroup.WithContext(ctx)

	// The port stays open until the main loop has turned the keypad off.
	// Closing it then unblocks the read loop.
	loopDone := make(chan struct{})
	errg.Go(func() error {
		<-loopDone
		d.logger.Debug("closing serial port")
		if err := port.Close(); err != nil {
			return errors.Wrap(err, "failed to close serial port")
		}
		return nil
	})

	replies := make(chan keyserial.OutgoingPacket, 4)
	readDone := make(chan struct{})
	errg.Go(func() error {
		defer close(readDone)
		return d.readPackets(port, replies, loopDone)
	})
	errg.Go(func() error {
		defer close(loopDone)
		keypad := newSerialKeypad(port, replies, readDone,
			d.cfg.NumKeys, time.Duration(d.cfg.Timeout), d.logger)
		return d.mainLoop(ctx, keypad)
	})

	return errg.Wait()
}

// mainLoop initializes the keypad and runs the controller on it. The
// initialize packet is given initializeTimeout to be answered, which also
// covers the read loop starting up.
func (d *Daemon) mainLoop(ctx context.Context, keypad *serialKeypad) error {
	d.logger.Debug("sending initialize packet")
	if err := keypad.Initialize(); err != nil {
		return errors.Wrap(err, "failed to initialize keypad")
	}

	ctrl, err := NewController(d.cfg, keypad.devices(), d.logger)
	if err != nil {
		return err
	}

	return ctrl.Run(ctx)
}

// readPackets forwards packets from the keypad until closed is closed. It
// keeps reading while the context is canceled so that the keypad can still
// acknowledge being turned off.
func (d *Daemon) readPackets(r io.Reader, dst chan<- keyserial.OutgoingPacket, closed <-chan struct{}) error {
	for {
		p, err := keyserial.ReadOutgoingPacket(r)
		if err != nil {
			select {
			case <-closed:
				return nil
			default:
			}
			// A short read indicates a timeout. This is expected.
			// Ignore the error and try again.
			if errors.Is(err, io.EOF) {
				continue
			}
			if errors.Is(err, keyserial.ErrChecksum) {
				d.logger.Warn("dropping corrupt packet from keypad")
				continue
			}
			return errors.Wrap(err, "failed to read packet")
		}

		d.logger.Debug(
			"received packet from keypad",
			"type", p.Type())

		if _, ok := p.(keyserial.PanicPacket); ok {
			d.logger.Error("keypad unrecoverably panicked")
			return errors.New("keypad panicked")
		}

		select {
		case <-closed:
			return nil
		case dst <- p:
			// ok
		}
	}
}

func (d *Daemon) runRPi(ctx context.Context) error {
	keypad, err := rpi.Open(rpi.Config{
		I2CDevice:  d.cfg.RPi.I2CDevice,
		I2CAddress: d.cfg.RPi.I2CAddress,
		HIDDevice:  d.cfg.RPi.HIDDevice,
		ChipSelect: d.cfg.RPi.ChipSelect,
		Brightness: uint8(d.cfg.RPi.Brightness),
		NumKeys:    d.cfg.NumKeys,
	})
	if err != nil {
		return errors.Wrap(err, "failed to open keypad")
	}
	defer keypad.Close()

	ctrl, err := NewController(d.cfg, Devices{
		Buttons:  rpiButtons{keypad},
		Pixels:   keypad,
		Keyboard: keypad,
	}, d.logger)
	if err != nil {
		return err
	}

	return ctrl.Run(ctx)
}

// rpiButtons adapts the raw button mask of the Raspberry Pi keypad.
type rpiButtons struct {
	keypad *rpi.Keypad
}

func (b rpiButtons) ReadButtons(n int) (Buttons, error) {
	mask, err := b.keypad.ReadButtons(n)
	return Buttons(mask), err
}
