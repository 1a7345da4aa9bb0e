package hid

import "strings"

// tokens maps upper-cased command tokens to key codes. Letters are added in
// init.
var tokens = map[string]Keycode{
	"CONTROL": KeyControl,
	"CTRL":    KeyControl,
	"SHIFT":   KeyShift,
	"ALT":     KeyOption,
	"OPTION":  KeyOption,
	"COMMAND": KeyCommand,

	"0": KeyKeypad0,
	"1": KeyKeypad1,
	"2": KeyKeypad2,
	"3": KeyKeypad3,
	"4": KeyKeypad4,
	"5": KeyKeypad5,
	"6": KeyKeypad6,
	"7": KeyKeypad7,
	"8": KeyKeypad8,
	"9": KeyKeypad9,

	"[": KeyLeftBracket,
	"{": KeyLeftBracket,
	"]": KeyRightBracket,
	"}": KeyRightBracket,

	"TAB":     KeyTab,
	"MINUS":   KeyKeypadMinus,
	"PLUS":    KeyKeypadPlus,
	"EQUALS":  KeyEquals,
	"ESCAPE":  KeyEscape,
	"ECSCAPE": KeyEscape, // legacy spelling found in old keypad configs
	"SPACE":   KeySpace,

	"LEFT_ARROW":  KeyLeftArrow,
	"RIGHT_ARROW": KeyRightArrow,
	"UP_ARROW":    KeyUpArrow,
	"DOWN_ARROW":  KeyDownArrow,
}

func init() {
	for k := KeyA; k <= KeyZ; k++ {
		tokens[k.String()] = k
	}
}

// Lookup resolves a single command token. Tokens are matched
// case-insensitively.
func Lookup(token string) (Keycode, bool) {
	k, ok := tokens[strings.ToUpper(token)]
	return k, ok
}

// Tokenize splits a command string into tokens. Every '+' is dropped and the
// rest is split on whitespace.
func Tokenize(command string) []string {
	return strings.Fields(strings.ReplaceAll(command, "+", ""))
}

// Parse resolves every token in the command and returns the key codes in
// token order along with the tokens that did not resolve.
func Parse(command string) (codes []Keycode, unknown []string) {
	for _, token := range Tokenize(command) {
		k, ok := Lookup(token)
		if !ok {
			unknown = append(unknown, token)
			continue
		}
		codes = append(codes, k)
	}
	return codes, unknown
}

// Resolve is like Parse but silently drops unknown tokens.
func Resolve(command string) []Keycode {
	codes, _ := Parse(command)
	return codes
}
