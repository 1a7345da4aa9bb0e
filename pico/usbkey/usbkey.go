// Package usbkey converts HID usages into the key codes taken by the TinyGo
// USB keyboard.
package usbkey

import "libdb.so/pideck/hid"

const (
	keyFlag      = 0xF000
	modifierFlag = 0xE000
)

// Code returns the TinyGo keyboard code for k. Modifiers are sent as
// modifier bits, every other key as its raw usage.
func Code(k hid.Keycode) uint16 {
	if k.IsModifier() {
		return modifierFlag | uint16(k.ModifierBit())
	}
	return keyFlag | uint16(k)
}

// Keyboard is the subset of the TinyGo USB keyboard used by Holder.
type Keyboard interface {
	Down(code uint16) error
	Up(code uint16) error
}

// Holder presses keys on a Keyboard and remembers them so that they can all
// be released at once.
type Holder struct {
	kb   Keyboard
	held []uint16
}

// NewHolder creates a Holder for kb.
func NewHolder(kb Keyboard) *Holder {
	return &Holder{kb: kb}
}

// Press presses k and keeps it held.
func (h *Holder) Press(k hid.Keycode) error {
	code := Code(k)
	for _, c := range h.held {
		if c == code {
			return nil
		}
	}

	if err := h.kb.Down(code); err != nil {
		return err
	}
	h.held = append(h.held, code)
	return nil
}

// ReleaseAll releases held keys in reverse order. It keeps going after a
// failed release and returns the first error.
func (h *Holder) ReleaseAll() error {
	var first error
	for i := len(h.held) - 1; i >= 0; i-- {
		if err := h.kb.Up(h.held[i]); err != nil && first == nil {
			first = err
		}
	}
	h.held = h.held[:0]
	return first
}
