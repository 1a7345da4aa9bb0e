package hid

import (
	"errors"
	"slices"
	"testing"
)

type recordingKeyboard struct {
	events []string
	// failOn makes Press fail for this key.
	failOn  Keycode
	failRel bool
}

var errUnplugged = errors.New("unplugged")

func (k *recordingKeyboard) Press(code Keycode) error {
	if code == k.failOn {
		return errUnplugged
	}
	k.events = append(k.events, "press "+code.String())
	return nil
}

func (k *recordingKeyboard) ReleaseAll() error {
	if k.failRel {
		return errUnplugged
	}
	k.events = append(k.events, "release")
	return nil
}

func dispatch(d *Dispatcher, command string) error {
	return d.Send(command, Resolve(command))
}

func TestDispatch(t *testing.T) {
	kb := &recordingKeyboard{}
	d := NewDispatcher(kb)

	if err := dispatch(d, "CTRL SHIFT a"); err != nil {
		t.Fatal(err)
	}

	want := []string{"press CONTROL", "press SHIFT", "press A", "release"}
	if !slices.Equal(kb.events, want) {
		t.Errorf("events = %q, want %q", kb.events, want)
	}
}

func TestDispatchEmpty(t *testing.T) {
	kb := &recordingKeyboard{}
	d := NewDispatcher(kb)

	for _, command := range []string{"", "NOTAKEY"} {
		if err := dispatch(d, command); err != nil {
			t.Errorf("dispatch %q: %v", command, err)
		}
	}
	if len(kb.events) != 0 {
		t.Errorf("empty commands produced events %q", kb.events)
	}
}

func TestDispatchPressFailure(t *testing.T) {
	kb := &recordingKeyboard{failOn: KeyShift}
	d := NewDispatcher(kb)

	err := dispatch(d, "CTRL SHIFT a")

	var derr *DispatchError
	if !errors.As(err, &derr) {
		t.Fatalf("error %v is not a *DispatchError", err)
	}
	if derr.Key != KeyShift {
		t.Errorf("failed key = %s, want SHIFT", derr.Key)
	}
	if !errors.Is(err, errUnplugged) {
		t.Errorf("error %v does not wrap the sink error", err)
	}

	// The gesture stops and held keys are released.
	want := []string{"press CONTROL", "release"}
	if !slices.Equal(kb.events, want) {
		t.Errorf("events = %q, want %q", kb.events, want)
	}
}

func TestDispatchReleaseFailure(t *testing.T) {
	kb := &recordingKeyboard{failRel: true}
	err := dispatch(NewDispatcher(kb), "a")

	var derr *DispatchError
	if !errors.As(err, &derr) || derr.Key != KeyNone {
		t.Fatalf("got %v, want release DispatchError", err)
	}
}
