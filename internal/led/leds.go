package led

import (
	"slices"
	"unsafe"
)

// LEDs describes a strip of LEDs. It is a preallocated slice of RGBColor.
type LEDs []RGBColor

// NewLEDs creates a new strip of LEDs. Colors are initialized to black
// (off).
func NewLEDs(numLEDs int) LEDs {
	return make(LEDs, numLEDs)
}

// AsPixels returns the LED strip as a slice of uint8 values. Each LED is
// represented by three values, one for each color channel. The returned
// slice aliases the strip.
func (l LEDs) AsPixels() []uint8 {
	if len(l) == 0 {
		return nil
	}
	return unsafe.Slice((*uint8)(unsafe.Pointer(&l[0])), 3*len(l))
}

// Set sets the color of the LED at the given index. Out of range indices
// are ignored.
func (l LEDs) Set(i int, c RGBColor) {
	if i < 0 || i >= len(l) {
		return
	}
	l[i] = c
}

// Fill sets every LED to c.
func (l LEDs) Fill(c RGBColor) {
	for i := range l {
		l[i] = c
	}
}

// Equal reports whether both strips hold the same colors.
func (l LEDs) Equal(other LEDs) bool {
	return slices.Equal(l, other)
}
