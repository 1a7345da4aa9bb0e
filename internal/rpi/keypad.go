// Package rpi drives a 4x4 RGB keypad wired directly to the header of a
// Raspberry Pi. Buttons are read from a TCA9555 expander over I2C, the keys
// are lit by an APA102 strip on SPI, and commands are typed through the USB
// gadget HID keyboard.
package rpi

import (
	"io"
	"os"

	"github.com/pkg/errors"
	"github.com/stianeikeland/go-rpio/v4"
	"golang.org/x/exp/io/i2c"
	"libdb.so/pideck/hid"
	"libdb.so/pideck/internal/led"
)

const (
	// spiSpeed is the APA102 clock rate in Hz.
	spiSpeed = 4_000_000
	// inputPort0 is the first input register of the TCA9555.
	inputPort0 = 0x00
	// maxBrightness is the largest APA102 global brightness.
	maxBrightness = 31
)

// Config describes how the keypad is wired.
type Config struct {
	I2CDevice  string
	I2CAddress int
	HIDDevice  string
	ChipSelect int
	Brightness uint8
	NumKeys    int
}

type regReader interface {
	ReadReg(reg byte, buf []byte) error
	Close() error
}

// Keypad is an opened keypad. It is not safe for concurrent use.
type Keypad struct {
	buttons  regReader
	transmit func(frame []byte)
	closeSPI func() error
	hid      io.WriteCloser

	brightness uint8
	pixels     led.LEDs
	frame      []byte
	report     hid.Report
}

// Open claims the I2C bus, the SPI bus and the HID gadget. The pixel
// strip is left untouched until the first Flush.
func Open(cfg Config) (*Keypad, error) {
	if cfg.Brightness > maxBrightness {
		return nil, errors.Errorf("brightness %d is above %d", cfg.Brightness, maxBrightness)
	}

	buttons, err := i2c.Open(&i2c.Devfs{Dev: cfg.I2CDevice}, cfg.I2CAddress)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to open i2c device %s", cfg.I2CDevice)
	}

	if err := rpio.Open(); err != nil {
		buttons.Close()
		return nil, errors.Wrap(err, "failed to map gpio memory")
	}

	if err := rpio.SpiBegin(rpio.Spi0); err != nil {
		rpio.Close()
		buttons.Close()
		return nil, errors.Wrap(err, "failed to start spi")
	}
	rpio.SpiSpeed(spiSpeed)

	// The strip has no chip select of its own. Hold the line low for as
	// long as the keypad is open.
	cs := rpio.Pin(cfg.ChipSelect)
	cs.Output()
	cs.Low()

	kb, err := os.OpenFile(cfg.HIDDevice, os.O_WRONLY, 0)
	if err != nil {
		rpio.SpiEnd(rpio.Spi0)
		rpio.Close()
		buttons.Close()
		return nil, errors.Wrapf(err, "failed to open hid gadget %s", cfg.HIDDevice)
	}

	k := newKeypad(buttons, func(frame []byte) { rpio.SpiTransmit(frame...) }, kb, cfg.NumKeys, cfg.Brightness)
	k.closeSPI = func() error {
		rpio.SpiEnd(rpio.Spi0)
		return rpio.Close()
	}
	return k, nil
}

func newKeypad(buttons regReader, transmit func([]byte), kb io.WriteCloser, numKeys int, brightness uint8) *Keypad {
	return &Keypad{
		buttons:    buttons,
		transmit:   transmit,
		hid:        kb,
		brightness: brightness,
		pixels:     led.NewLEDs(numKeys),
		frame:      make([]byte, frameSize(numKeys)),
	}
}

// Close releases the buses and the HID gadget.
func (k *Keypad) Close() error {
	var errs []error
	if err := k.buttons.Close(); err != nil {
		errs = append(errs, errors.Wrap(err, "failed to close i2c device"))
	}
	if k.closeSPI != nil {
		if err := k.closeSPI(); err != nil {
			errs = append(errs, errors.Wrap(err, "failed to release gpio"))
		}
	}
	if err := k.hid.Close(); err != nil {
		errs = append(errs, errors.Wrap(err, "failed to close hid gadget"))
	}
	if len(errs) > 0 {
		return errs[0]
	}
	return nil
}

// ReadButtons reads the first n buttons. Bit i of the result is set while
// key i is held.
func (k *Keypad) ReadButtons(n int) (uint16, error) {
	var buf [2]byte
	if err := k.buttons.ReadReg(inputPort0, buf[:]); err != nil {
		return 0, errors.Wrap(err, "failed to read button expander")
	}

	// Inputs are pulled up, so a pressed key reads as 0.
	state := ^(uint16(buf[0]) | uint16(buf[1])<<8)
	if n < 16 {
		state &= 1<<n - 1
	}
	return state, nil
}

// SetPixel sets the color of key i. It is shown on the next Flush.
func (k *Keypad) SetPixel(i int, c led.RGBColor) {
	k.pixels.Set(i, c)
}

// Flush sends the colors to the strip.
func (k *Keypad) Flush() error {
	encodeFrame(k.frame, k.pixels, k.brightness)
	k.transmit(k.frame)
	return nil
}

// Clear turns every key off.
func (k *Keypad) Clear() error {
	k.pixels.Fill(led.Black)
	return k.Flush()
}

// Press adds the key to the held report and sends it.
func (k *Keypad) Press(code hid.Keycode) error {
	if err := k.report.Press(code); err != nil {
		return err
	}
	return k.sendReport()
}

// ReleaseAll sends the empty report.
func (k *Keypad) ReleaseAll() error {
	k.report.Reset()
	return k.sendReport()
}

func (k *Keypad) sendReport() error {
	if _, err := k.hid.Write(k.report[:]); err != nil {
		return errors.Wrap(err, "failed to write hid report")
	}
	return nil
}

// frameSize returns the length of an APA102 frame for n pixels: a zero
// start frame, four bytes per pixel and an end frame of at least half a
// clock per pixel.
func frameSize(n int) int {
	return 4 + 4*n + endFrameSize(n)
}

func endFrameSize(n int) int {
	return max(4, (n+15)/16)
}

// encodeFrame writes the pixels into frame, which must be frameSize long.
func encodeFrame(frame []byte, pixels led.LEDs, brightness uint8) {
	clear(frame[:4])

	b := frame[4:]
	for _, c := range pixels {
		b[0] = 0xE0 | brightness&maxBrightness
		b[1] = c.B()
		b[2] = c.G()
		b[3] = c.R()
		b = b[4:]
	}

	for i := range b {
		b[i] = 0xFF
	}
}
