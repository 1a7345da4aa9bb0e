package main

import (
	"fmt"
	"strings"
	"sync"

	"github.com/gdamore/tcell/v2"
	"github.com/lucasb-eyer/go-colorful"
	"libdb.so/pideck"
	"libdb.so/pideck/hid"
	"libdb.so/pideck/internal/led"
)

// layout maps the keypad grid onto the left side of a QWERTY keyboard, row
// by row.
const layout = "1234qwerasdfzxcv"

const (
	gridColumns = 4
	cellWidth   = 7
	cellHeight  = 3
	gridLeft    = 2
	gridTop     = 1
	historySize = 5
)

// simKeypad is a keypad drawn on a terminal. Terminals only report key
// presses, so a press holds the key down for a fixed number of polls.
type simKeypad struct {
	screen    tcell.Screen
	holdTicks int

	mu      sync.Mutex
	leds    led.LEDs
	held    []int
	report  hid.Report
	typed   []string
	history []string
}

var (
	_ pideck.ButtonReader = (*simKeypad)(nil)
	_ pideck.PixelWriter  = (*simKeypad)(nil)
	_ pideck.Flusher      = (*simKeypad)(nil)
	_ pideck.Clearer      = (*simKeypad)(nil)
	_ hid.Keyboard        = (*simKeypad)(nil)
)

func newSimKeypad(screen tcell.Screen, numKeys, holdTicks int) *simKeypad {
	return &simKeypad{
		screen:    screen,
		holdTicks: max(holdTicks, 1),
		leds:      led.NewLEDs(numKeys),
		held:      make([]int, numKeys),
	}
}

// devices returns the keypad as controller devices.
func (k *simKeypad) devices() pideck.Devices {
	return pideck.Devices{Buttons: k, Pixels: k, Keyboard: k}
}

// AcquireFrame calls f with the current colors while holding the lock.
func (k *simKeypad) AcquireFrame(f func(led.LEDs)) {
	k.mu.Lock()
	f(k.leds)
	k.mu.Unlock()
}

// pressRune holds down the key bound to r. It reports false if no key is.
func (k *simKeypad) pressRune(r rune) bool {
	i := strings.IndexRune(layout, r)
	if i < 0 {
		return false
	}

	k.mu.Lock()
	defer k.mu.Unlock()

	if i >= len(k.held) {
		return false
	}
	k.held[i] = k.holdTicks
	return true
}

func (k *simKeypad) ReadButtons(n int) (pideck.Buttons, error) {
	k.mu.Lock()
	defer k.mu.Unlock()

	var b pideck.Buttons
	for i := 0; i < n && i < len(k.held); i++ {
		if k.held[i] > 0 {
			b |= 1 << i
			k.held[i]--
		}
	}
	return b, nil
}

func (k *simKeypad) SetPixel(i int, c led.RGBColor) {
	k.mu.Lock()
	k.leds.Set(i, c)
	k.mu.Unlock()
}

func (k *simKeypad) Flush() error {
	k.draw()
	return nil
}

func (k *simKeypad) Clear() error {
	k.AcquireFrame(func(leds led.LEDs) { leds.Fill(led.Black) })
	k.draw()
	return nil
}

func (k *simKeypad) Press(code hid.Keycode) error {
	k.mu.Lock()
	defer k.mu.Unlock()

	if err := k.report.Press(code); err != nil {
		return err
	}
	k.typed = append(k.typed, code.String())
	return nil
}

func (k *simKeypad) ReleaseAll() error {
	k.mu.Lock()
	defer k.mu.Unlock()

	if !k.report.Empty() {
		k.history = append(k.history, strings.Join(k.typed, "+"))
		if len(k.history) > historySize {
			k.history = k.history[len(k.history)-historySize:]
		}
		k.typed = k.typed[:0]
	}
	k.report.Reset()
	return nil
}

func (k *simKeypad) draw() {
	k.AcquireFrame(func(leds led.LEDs) {
		for i, c := range leds {
			drawKey(k.screen, i, c)
		}

		y := gridTop + cellHeight*((len(leds)+gridColumns-1)/gridColumns) + 1
		drawText(k.screen, gridLeft, y, "sent:", tcell.StyleDefault.Bold(true))
		for j := 0; j < historySize; j++ {
			line := ""
			if j < len(k.history) {
				line = k.history[len(k.history)-1-j]
			}
			drawText(k.screen, gridLeft+6, y+j, fmt.Sprintf("%-32s", line), tcell.StyleDefault)
		}
		drawText(k.screen, gridLeft, y+historySize+1, "press Esc or Ctrl-C to quit", tcell.StyleDefault.Dim(true))
	})

	k.screen.Show()
}

func drawKey(screen tcell.Screen, i int, c led.RGBColor) {
	x0 := gridLeft + cellWidth*(i%gridColumns)
	y0 := gridTop + cellHeight*(i/gridColumns)

	style := tcell.StyleDefault.
		Background(tcell.NewRGBColor(int32(c.R()), int32(c.G()), int32(c.B()))).
		Foreground(labelColor(c))

	// Leave a one cell gap between keys.
	for y := y0; y < y0+cellHeight-1; y++ {
		for x := x0; x < x0+cellWidth-1; x++ {
			screen.SetContent(x, y, ' ', nil, style)
		}
	}

	label := rune(layout[i])
	screen.SetContent(x0+(cellWidth-1)/2, y0+(cellHeight-1)/2, label, nil, style)
}

// labelColor picks black or white, whichever reads better on c.
func labelColor(c led.RGBColor) tcell.Color {
	col, _ := colorful.MakeColor(c.RGBA())
	if l, _, _ := col.Lab(); l > 0.5 {
		return tcell.ColorBlack
	}
	return tcell.ColorWhite
}

func drawText(screen tcell.Screen, x, y int, text string, style tcell.Style) {
	for i, r := range []rune(text) {
		screen.SetContent(x+i, y, r, nil, style)
	}
}
