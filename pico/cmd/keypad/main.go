// Command keypad is the firmware of a Pimoroni RGB keypad on a Raspberry Pi
// Pico. It speaks keyserial over the USB serial port and types commands
// through the USB keyboard.
package main

import (
	"machine"
	"machine/usb/hid/keyboard"

	"libdb.so/pideck/pico/usbkey"
	"tinygo.org/x/drivers/apa102"
)

// Pin assignment of the keypad base.
const (
	pinStripCS  = machine.GP17
	pinStripSCK = machine.GP18
	pinStripSDO = machine.GP19
	pinI2CSDA   = machine.GP4
	pinI2CSCL   = machine.GP5
)

func main() {
	// The strip ignores clocks unless chip select is low. Nothing else
	// shares the bus.
	pinStripCS.Configure(machine.PinConfig{Mode: machine.PinOutput})
	pinStripCS.Low()

	machine.SPI0.Configure(machine.SPIConfig{
		Frequency: 4 * machine.MHz,
		SCK:       pinStripSCK,
		SDO:       pinStripSDO,
	})

	machine.I2C0.Configure(machine.I2CConfig{
		Frequency: 400 * machine.KHz,
		SDA:       pinI2CSDA,
		SCL:       pinI2CSCL,
	})

	d := NewDevice(
		machine.Serial,
		apa102.New(machine.SPI0),
		machine.I2C0,
		usbkey.NewHolder(usbKeyboard{keyboard.Port()}),
	)
	d.Run()
}

type tinygoKeyboard interface {
	Down(keyboard.Keycode) error
	Up(keyboard.Keycode) error
}

// usbKeyboard adapts the TinyGo keyboard to usbkey.Keyboard.
type usbKeyboard struct {
	kb tinygoKeyboard
}

func (u usbKeyboard) Down(code uint16) error { return u.kb.Down(keyboard.Keycode(code)) }
func (u usbKeyboard) Up(code uint16) error   { return u.kb.Up(keyboard.Keycode(code)) }
