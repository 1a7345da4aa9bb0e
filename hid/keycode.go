// Package hid maps keypad command strings to symbolic keyboard key codes
// and drives a Keyboard sink with them.
package hid

import "fmt"

// Keycode is a symbolic keyboard key. Its value is the USB HID usage ID of
// the key on the keyboard/keypad page, so sinks that speak HID can send it
// as is.
type Keycode uint8

// KeyNone is the empty key slot.
const KeyNone Keycode = 0x00

const (
	KeyA Keycode = 0x04 + iota
	KeyB
	KeyC
	KeyD
	KeyE
	KeyF
	KeyG
	KeyH
	KeyI
	KeyJ
	KeyK
	KeyL
	KeyM
	KeyN
	KeyO
	KeyP
	KeyQ
	KeyR
	KeyS
	KeyT
	KeyU
	KeyV
	KeyW
	KeyX
	KeyY
	KeyZ
)

const (
	KeyEscape       Keycode = 0x29
	KeyTab          Keycode = 0x2B
	KeySpace        Keycode = 0x2C
	KeyEquals       Keycode = 0x2E
	KeyLeftBracket  Keycode = 0x2F
	KeyRightBracket Keycode = 0x30

	KeyRightArrow Keycode = 0x4F
	KeyLeftArrow  Keycode = 0x50
	KeyDownArrow  Keycode = 0x51
	KeyUpArrow    Keycode = 0x52

	KeyKeypadMinus Keycode = 0x56
	KeyKeypadPlus  Keycode = 0x57
	KeyKeypad1     Keycode = 0x59
	KeyKeypad2     Keycode = 0x5A
	KeyKeypad3     Keycode = 0x5B
	KeyKeypad4     Keycode = 0x5C
	KeyKeypad5     Keycode = 0x5D
	KeyKeypad6     Keycode = 0x5E
	KeyKeypad7     Keycode = 0x5F
	KeyKeypad8     Keycode = 0x60
	KeyKeypad9     Keycode = 0x61
	KeyKeypad0     Keycode = 0x62

	// Modifiers use the left-hand usage IDs.
	KeyControl Keycode = 0xE0
	KeyShift   Keycode = 0xE1
	KeyOption  Keycode = 0xE2
	KeyCommand Keycode = 0xE3
)

var keyNames = map[Keycode]string{
	KeyNone:         "NONE",
	KeyEscape:       "ESCAPE",
	KeyTab:          "TAB",
	KeySpace:        "SPACE",
	KeyEquals:       "EQUALS",
	KeyLeftBracket:  "LEFT_BRACKET",
	KeyRightBracket: "RIGHT_BRACKET",
	KeyRightArrow:   "RIGHT_ARROW",
	KeyLeftArrow:    "LEFT_ARROW",
	KeyDownArrow:    "DOWN_ARROW",
	KeyUpArrow:      "UP_ARROW",
	KeyKeypadMinus:  "KEYPAD_MINUS",
	KeyKeypadPlus:   "KEYPAD_PLUS",
	KeyKeypad1:      "KEYPAD_ONE",
	KeyKeypad2:      "KEYPAD_TWO",
	KeyKeypad3:      "KEYPAD_THREE",
	KeyKeypad4:      "KEYPAD_FOUR",
	KeyKeypad5:      "KEYPAD_FIVE",
	KeyKeypad6:      "KEYPAD_SIX",
	KeyKeypad7:      "KEYPAD_SEVEN",
	KeyKeypad8:      "KEYPAD_EIGHT",
	KeyKeypad9:      "KEYPAD_NINE",
	KeyKeypad0:      "KEYPAD_ZERO",
	KeyControl:      "CONTROL",
	KeyShift:        "SHIFT",
	KeyOption:       "OPTION",
	KeyCommand:      "COMMAND",
}

// String returns the symbolic name of the key.
func (k Keycode) String() string {
	if k >= KeyA && k <= KeyZ {
		return string(rune('A' + k - KeyA))
	}
	if name, ok := keyNames[k]; ok {
		return name
	}
	return fmt.Sprintf("Keycode(0x%02X)", uint8(k))
}

// IsModifier reports whether the key is one of the modifier keys.
func (k Keycode) IsModifier() bool {
	return k >= KeyControl && k <= 0xE7
}

// ModifierBit returns the bit of the key in the modifier byte of a boot
// keyboard report, or 0 if k is not a modifier.
func (k Keycode) ModifierBit() uint8 {
	if !k.IsModifier() {
		return 0
	}
	return 1 << (k - KeyControl)
}
