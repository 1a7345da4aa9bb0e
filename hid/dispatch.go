package hid

import (
	"fmt"

	"github.com/pkg/errors"
)

// Keyboard is a sink for key presses. Implementations transmit to the host
// computer, e.g. over USB HID.
type Keyboard interface {
	// Press presses and holds the given key.
	Press(Keycode) error
	// ReleaseAll releases every held key.
	ReleaseAll() error
}

// DispatchError is returned when a command could not be sent to the
// keyboard sink.
type DispatchError struct {
	Command string
	// Key is the key being pressed when the sink failed, or KeyNone if the
	// release failed.
	Key Keycode
	Err error
}

func (e *DispatchError) Error() string {
	if e.Key == KeyNone {
		return fmt.Sprintf("dispatch %q: release failed: %v", e.Command, e.Err)
	}
	return fmt.Sprintf("dispatch %q: press %s failed: %v", e.Command, e.Key, e.Err)
}

func (e *DispatchError) Unwrap() error { return e.Err }

// Dispatcher sends commands to a Keyboard as a single gesture: every key is
// pressed in order, then all keys are released together.
type Dispatcher struct {
	kb Keyboard
}

// NewDispatcher creates a dispatcher writing to kb.
func NewDispatcher(kb Keyboard) *Dispatcher {
	return &Dispatcher{kb: kb}
}

// Send presses the codes resolved from command and releases them. An empty
// code list sends nothing. If a press fails, the keyboard is still asked to
// release everything so no key stays held. The command is only used for
// error messages.
func (d *Dispatcher) Send(command string, codes []Keycode) error {
	if len(codes) == 0 {
		return nil
	}

	for _, k := range codes {
		if err := d.kb.Press(k); err != nil {
			if rerr := d.kb.ReleaseAll(); rerr != nil {
				err = errors.Wrapf(err, "release after failed press also failed (%v)", rerr)
			}
			return &DispatchError{Command: command, Key: k, Err: err}
		}
	}

	if err := d.kb.ReleaseAll(); err != nil {
		return &DispatchError{Command: command, Err: err}
	}

	return nil
}
