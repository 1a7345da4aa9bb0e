// Package led contains the color and frame types shared by the keypad
// controller and its pixel sinks.
package led

import (
	"encoding"
	"fmt"
	"image/color"
	"strconv"
	"strings"
)

// RGBColor is a color made of three 8-bit channels in R, G, B order.
type RGBColor [3]uint8

var (
	_ encoding.TextUnmarshaler = (*RGBColor)(nil)
	_ encoding.TextMarshaler   = RGBColor{}
)

// Black is the zero color. Keys that are off or unconfigured show it.
var Black = RGBColor{}

// RGB returns the color with the given channels.
func RGB(r, g, b uint8) RGBColor {
	return RGBColor{r, g, b}
}

// FormatError is returned when a hex color string cannot be decoded.
type FormatError struct {
	Input  string
	Reason string
}

func (e *FormatError) Error() string {
	return fmt.Sprintf("invalid hex color %q: %s", e.Input, e.Reason)
}

// ParseHex decodes a hex color string. An optional leading '#' is stripped,
// and the remaining digits are split into three groups of equal length, each
// parsed as a base-16 channel value. This means "F00" decodes to (15, 0, 0)
// and not to (255, 0, 0).
func ParseHex(s string) (RGBColor, error) {
	digits := strings.TrimPrefix(s, "#")
	if len(digits) == 0 || len(digits)%3 != 0 {
		return RGBColor{}, &FormatError{
			Input:  s,
			Reason: "digit count must be a positive multiple of 3",
		}
	}

	var c RGBColor
	n := len(digits) / 3
	for i := range c {
		group := digits[i*n : (i+1)*n]
		v, err := strconv.ParseUint(group, 16, 8)
		if err != nil {
			return RGBColor{}, &FormatError{
				Input:  s,
				Reason: fmt.Sprintf("channel %q is not an 8-bit hex value", group),
			}
		}
		c[i] = uint8(v)
	}

	return c, nil
}

// MustParseHex is like ParseHex but panics on error. It is meant for
// constants.
func MustParseHex(s string) RGBColor {
	c, err := ParseHex(s)
	if err != nil {
		panic(err)
	}
	return c
}

// Hex encodes the color as six uppercase hex digits without a leading '#'.
func (c RGBColor) Hex() string {
	return fmt.Sprintf("%02X%02X%02X", c[0], c[1], c[2])
}

// String implements fmt.Stringer.
func (c RGBColor) String() string {
	return "#" + c.Hex()
}

// R returns the red channel.
func (c RGBColor) R() uint8 { return c[0] }

// G returns the green channel.
func (c RGBColor) G() uint8 { return c[1] }

// B returns the blue channel.
func (c RGBColor) B() uint8 { return c[2] }

// RGBA converts the color into an opaque color.RGBA.
func (c RGBColor) RGBA() color.RGBA {
	return color.RGBA{R: c[0], G: c[1], B: c[2], A: 0xFF}
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (c *RGBColor) UnmarshalText(text []byte) error {
	v, err := ParseHex(string(text))
	if err != nil {
		return err
	}
	*c = v
	return nil
}

// MarshalText implements encoding.TextMarshaler.
func (c RGBColor) MarshalText() ([]byte, error) {
	return []byte(c.String()), nil
}

// Fade linearly interpolates between on and off. A fraction of 0 gives on,
// a fraction of 1 gives off. Each channel is computed as
//
//	on + (off - on) * fraction
//
// and truncated, so Fade(black, white, 0.5) is 7F7F7F.
func Fade(off, on RGBColor, fraction float64) RGBColor {
	switch {
	case fraction < 0:
		fraction = 0
	case fraction > 1:
		fraction = 1
	}

	var c RGBColor
	for i := range c {
		from := float64(on[i])
		delta := float64(off[i]) - from
		c[i] = uint8(from + delta*fraction)
	}
	return c
}
