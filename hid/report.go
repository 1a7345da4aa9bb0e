package hid

import "github.com/pkg/errors"

// ErrRollover is returned when more keys are pressed than a boot keyboard
// report can hold.
var ErrRollover = errors.New("too many keys held for a boot keyboard report")

// Report is a USB HID boot keyboard input report: a modifier byte, a
// reserved byte and six key slots.
type Report [8]byte

// Press adds the key to the report. Modifiers set their bit in the first
// byte; other keys take the first free slot. Pressing a key that is already
// held is a no-op.
func (r *Report) Press(k Keycode) error {
	if k.IsModifier() {
		r[0] |= k.ModifierBit()
		return nil
	}

	for i := 2; i < len(r); i++ {
		if r[i] == byte(k) {
			return nil
		}
	}
	for i := 2; i < len(r); i++ {
		if r[i] == byte(KeyNone) {
			r[i] = byte(k)
			return nil
		}
	}

	return ErrRollover
}

// Reset releases every key.
func (r *Report) Reset() {
	*r = Report{}
}

// Empty reports whether no key is held.
func (r Report) Empty() bool {
	return r == Report{}
}
