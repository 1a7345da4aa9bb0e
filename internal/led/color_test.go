package led

import (
	"errors"
	"testing"
)

func TestParseHex(t *testing.T) {
	tests := []struct {
		in   string
		want RGBColor
	}{
		{"#FF0000", RGB(255, 0, 0)},
		{"00ff7f", RGB(0, 255, 127)},
		{"#0A0B0C", RGB(10, 11, 12)},
		{"F00", RGB(15, 0, 0)},
		{"#abc", RGB(10, 11, 12)},
	}

	for _, test := range tests {
		got, err := ParseHex(test.in)
		if err != nil {
			t.Errorf("ParseHex(%q) returned error: %v", test.in, err)
			continue
		}
		if got != test.want {
			t.Errorf("ParseHex(%q) = %v, want %v", test.in, got, test.want)
		}
	}
}

func TestParseHexInvalid(t *testing.T) {
	for _, in := range []string{"", "#", "FF00", "#GG0000", "12345", "FFF000000", "+1+2+3"} {
		_, err := ParseHex(in)
		if err == nil {
			t.Errorf("ParseHex(%q) succeeded, want error", in)
			continue
		}

		var ferr *FormatError
		if !errors.As(err, &ferr) {
			t.Errorf("ParseHex(%q) error %v is not a *FormatError", in, err)
		}
	}
}

func TestHexRoundTrip(t *testing.T) {
	check := func(c RGBColor) {
		t.Helper()
		got, err := ParseHex(c.Hex())
		if err != nil {
			t.Fatalf("ParseHex(%q) returned error: %v", c.Hex(), err)
		}
		if got != c {
			t.Fatalf("round trip of %v gave %v", c, got)
		}
	}

	for v := 0; v < 256; v++ {
		check(RGB(uint8(v), 0, 0))
		check(RGB(0, uint8(v), 0))
		check(RGB(0, 0, uint8(v)))
	}
	for r := 0; r < 256; r += 15 {
		for g := 0; g < 256; g += 17 {
			for b := 0; b < 256; b += 5 {
				check(RGB(uint8(r), uint8(g), uint8(b)))
			}
		}
	}
}

func TestHexCanonical(t *testing.T) {
	for _, s := range []string{"FF0000", "7F7F7F", "00A1B2"} {
		if got := MustParseHex(s).Hex(); got != s {
			t.Errorf("canonical %q re-encoded as %q", s, got)
		}
	}

	// Shorthand is not expanded, so it does not survive re-encoding.
	if got := MustParseHex("F00").Hex(); got != "0F0000" {
		t.Errorf("shorthand F00 re-encoded as %q, want 0F0000", got)
	}
}

func TestFade(t *testing.T) {
	black := MustParseHex("#000000")
	white := MustParseHex("#FFFFFF")

	if got := Fade(black, white, 0.5); got.Hex() != "7F7F7F" {
		t.Errorf("Fade(black, white, 0.5) = %s, want 7F7F7F", got.Hex())
	}
	if got := Fade(black, white, 0); got != white {
		t.Errorf("Fade at 0 = %v, want on color %v", got, white)
	}
	if got := Fade(black, white, 1); got != black {
		t.Errorf("Fade at 1 = %v, want off color %v", got, black)
	}

	red := RGB(200, 0, 0)
	blue := RGB(0, 0, 100)
	if got, want := Fade(blue, red, 0.3), RGB(140, 0, 30); got != want {
		t.Errorf("Fade(blue, red, 0.3) = %v, want %v", got, want)
	}
}

func TestUnmarshalText(t *testing.T) {
	var c RGBColor
	if err := c.UnmarshalText([]byte("#112233")); err != nil {
		t.Fatal(err)
	}
	if c != RGB(0x11, 0x22, 0x33) {
		t.Errorf("got %v", c)
	}
	if err := c.UnmarshalText([]byte("nope")); err == nil {
		t.Error("expected error for invalid color")
	}
}
