package main

import (
	"fmt"
	"image/color"
	"io"
	"machine"

	"libdb.so/pideck/hid"
	"libdb.so/pideck/keyserial"
	"libdb.so/pideck/pico/usbkey"
	"tinygo.org/x/drivers/apa102"
)

const (
	// expanderAddress is the I2C address of the TCA9555 the keys are on.
	expanderAddress = 0x20
	// brightness is the APA102 global brightness, 0 to 31.
	brightness = 3
)

// Device stores the current state of the device.
type Device struct {
	serial   io.ReadWriter
	strip    apa102.Device
	expander *machine.I2C
	keys     *usbkey.Holder
	activity machine.Pin

	numKeys uint16
	colors  []color.RGBA
}

// NewDevice creates a new device.
func NewDevice(serial machine.Serialer, strip apa102.Device, expander *machine.I2C, keys *usbkey.Holder) *Device {
	machine.LED.Configure(machine.PinConfig{Mode: machine.PinOutput})
	return &Device{
		serial:   usbSerial{serial},
		strip:    strip,
		expander: expander,
		keys:     keys,
		activity: machine.LED,
	}
}

// Run runs the device loop forever.
func (d *Device) Run() {
	for {
		p, err := keyserial.ReadIncomingPacket(d.serial, keyserial.ReadContext{
			NumKeys: d.numKeys,
		})
		if err != nil {
			d.logError(err)
			continue
		}

		d.activity.High()
		if err := d.handlePacket(p); err != nil {
			d.logError(err)
		}
		d.activity.Low()
	}
}

func (d *Device) log(msg string) {
	d.sendPacket(keyserial.LogPacket{Message: msg})
}

func (d *Device) logError(err error) {
	d.sendPacket(keyserial.ErrorPacket{Message: err.Error()})
}

func (d *Device) sendPacket(p keyserial.OutgoingPacket) {
	keyserial.WriteOutgoingPacket(d.serial, p)
}

// handlePacket answers p with exactly one reply unless it fails, in which
// case the caller sends the error instead.
func (d *Device) handlePacket(p keyserial.IncomingPacket) error {
	switch p := p.(type) {
	case keyserial.InitializePacket:
		if p.NumKeys < 1 || p.NumKeys > keyserial.MaxKeys {
			return fmt.Errorf("invalid number of keys: %d", p.NumKeys)
		}
		d.numKeys = p.NumKeys
		d.colors = make([]color.RGBA, p.NumKeys)
		if err := d.clearKeys(); err != nil {
			return err
		}
		d.log(fmt.Sprintf("driving %d keys", p.NumKeys))

	case keyserial.ClearPacket:
		if err := d.clearKeys(); err != nil {
			return err
		}

	case keyserial.SetPacket:
		for i := range d.colors {
			pix := p.Pix[3*i : 3*i+3]
			d.colors[i] = color.RGBA{R: pix[0], G: pix[1], B: pix[2], A: brightness << 3}
		}
		if _, err := d.strip.WriteColors(d.colors); err != nil {
			return fmt.Errorf("failed to write strip: %w", err)
		}

	case keyserial.ReadButtonsPacket:
		mask, err := d.readButtons()
		if err != nil {
			return err
		}
		d.sendPacket(keyserial.ButtonsPacket{Mask: mask})
		return nil

	case keyserial.KeyPressPacket:
		if err := d.keys.Press(hid.Keycode(p.Code)); err != nil {
			return fmt.Errorf("failed to press %s: %w", hid.Keycode(p.Code), err)
		}

	case keyserial.KeyReleaseAllPacket:
		if err := d.keys.ReleaseAll(); err != nil {
			return fmt.Errorf("failed to release keys: %w", err)
		}

	default:
		return fmt.Errorf("unknown packet type: %T", p)
	}

	d.sendPacket(keyserial.AckPacket{
		IncomingPacketType: p.Type(),
	})
	return nil
}

func (d *Device) readButtons() (uint16, error) {
	var buf [2]byte
	if err := d.expander.ReadRegister(expanderAddress, 0x00, buf[:]); err != nil {
		return 0, fmt.Errorf("failed to read buttons: %w", err)
	}

	// Inputs are pulled up, so a pressed key reads as 0.
	mask := ^(uint16(buf[0]) | uint16(buf[1])<<8)
	if d.numKeys < 16 {
		mask &= 1<<d.numKeys - 1
	}
	return mask, nil
}

func (d *Device) clearKeys() error {
	clear(d.colors)
	_, err := d.strip.WriteColors(d.colors)
	return err
}
