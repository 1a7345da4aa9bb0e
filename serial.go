package pideck

import (
	"io"
	"log/slog"
	"time"

	"github.com/pkg/errors"
	"libdb.so/pideck/hid"
	"libdb.so/pideck/internal/led"
	"libdb.so/pideck/keyserial"
)

// initializeTimeout is how long the keypad may take to answer the first
// packet after the port is opened.
const initializeTimeout = 2 * time.Second

var (
	errReplyTimeout  = errors.New("timed out waiting for the keypad")
	errKeypadClosed  = errors.New("keypad connection closed")
	errUnexpectedAck = errors.New("unexpected reply from the keypad")
)

// serialKeypad drives a keypad running the pideck firmware. Every method
// sends one packet and waits for its reply, so it must only be used from the
// controller goroutine. Replies are read by a separate goroutine and handed
// over on a channel.
type serialKeypad struct {
	logger  *slog.Logger
	w       io.Writer
	replies <-chan keyserial.OutgoingPacket
	done    <-chan struct{}
	timeout time.Duration
	numKeys int

	frame led.LEDs
	sent  led.LEDs
	dirty bool
}

var (
	_ ButtonReader = (*serialKeypad)(nil)
	_ PixelWriter  = (*serialKeypad)(nil)
	_ Flusher      = (*serialKeypad)(nil)
	_ Clearer      = (*serialKeypad)(nil)
	_ hid.Keyboard = (*serialKeypad)(nil)
)

func newSerialKeypad(
	w io.Writer, replies <-chan keyserial.OutgoingPacket, done <-chan struct{},
	numKeys int, timeout time.Duration, logger *slog.Logger) *serialKeypad {

	return &serialKeypad{
		logger:  logger,
		w:       w,
		replies: replies,
		done:    done,
		timeout: timeout,
		numKeys: numKeys,
		frame:   led.NewLEDs(numKeys),
		sent:    led.NewLEDs(numKeys),
		dirty:   true,
	}
}

// devices returns the keypad as controller devices.
func (k *serialKeypad) devices() Devices {
	return Devices{Buttons: k, Pixels: k, Keyboard: k}
}

// Initialize tells the keypad how many keys are driven.
func (k *serialKeypad) Initialize() error {
	return k.expectAck(keyserial.InitializePacket{NumKeys: uint16(k.numKeys)}, initializeTimeout)
}

// ReadButtons implements ButtonReader.
func (k *serialKeypad) ReadButtons(n int) (Buttons, error) {
	r, err := k.request(keyserial.ReadButtonsPacket{}, k.timeout)
	if err != nil {
		return 0, err
	}

	b, ok := r.(keyserial.ButtonsPacket)
	if !ok {
		return 0, errors.Wrapf(errUnexpectedAck, "got %s for read_buttons", r.Type())
	}

	return Buttons(b.Mask) & (1<<n - 1), nil
}

// SetPixel implements PixelWriter. The color is sent on the next Flush.
func (k *serialKeypad) SetPixel(i int, c led.RGBColor) {
	k.frame.Set(i, c)
}

// Flush sends the frame if it differs from the last one the keypad
// acknowledged.
func (k *serialKeypad) Flush() error {
	if !k.dirty && k.frame.Equal(k.sent) {
		return nil
	}

	if err := k.expectAck(keyserial.SetPacket{Pix: k.frame.AsPixels()}, k.timeout); err != nil {
		k.dirty = true
		return err
	}

	copy(k.sent, k.frame)
	k.dirty = false
	return nil
}

// Clear implements Clearer. It turns every key off with a single clear
// packet instead of a full frame.
func (k *serialKeypad) Clear() error {
	k.frame.Fill(led.Black)
	if err := k.expectAck(keyserial.ClearPacket{}, k.timeout); err != nil {
		k.dirty = true
		return err
	}

	k.sent.Fill(led.Black)
	k.dirty = false
	return nil
}

// Press implements hid.Keyboard.
func (k *serialKeypad) Press(code hid.Keycode) error {
	return k.expectAck(keyserial.KeyPressPacket{Code: uint8(code)}, k.timeout)
}

// ReleaseAll implements hid.Keyboard.
func (k *serialKeypad) ReleaseAll() error {
	return k.expectAck(keyserial.KeyReleaseAllPacket{}, k.timeout)
}

func (k *serialKeypad) expectAck(p keyserial.IncomingPacket, timeout time.Duration) error {
	r, err := k.request(p, timeout)
	if err != nil {
		return err
	}

	ack, ok := r.(keyserial.AckPacket)
	if !ok || ack.IncomingPacketType != p.Type() {
		return errors.Wrapf(errUnexpectedAck, "got %s for %s", r.Type(), p.Type())
	}

	return nil
}

func (k *serialKeypad) request(p keyserial.IncomingPacket, timeout time.Duration) (keyserial.OutgoingPacket, error) {
	k.drain()

	if err := keyserial.WriteIncomingPacket(k.w, p); err != nil {
		return nil, errors.Wrapf(err, "failed to write %s packet", p.Type())
	}

	timer := time.NewTimer(timeout)
	defer timer.Stop()

	for {
		select {
		case <-k.done:
			return nil, errKeypadClosed

		case <-timer.C:
			return nil, errors.Wrapf(errReplyTimeout, "%s packet", p.Type())

		case r := <-k.replies:
			switch r := r.(type) {
			case keyserial.LogPacket:
				k.logReply(r)
			case keyserial.ErrorPacket:
				return nil, errors.Errorf("keypad rejected %s packet: %s", p.Type(), r.Message)
			default:
				return r, nil
			}
		}
	}
}

// drain drops replies left over from requests that timed out, so that they
// are not mistaken for the answer to the next request.
func (k *serialKeypad) drain() {
	for {
		select {
		case r := <-k.replies:
			if log, ok := r.(keyserial.LogPacket); ok {
				k.logReply(log)
				continue
			}
			k.logger.Debug(
				"dropping stale reply from keypad",
				"type", r.Type())
		default:
			return
		}
	}
}

func (k *serialKeypad) logReply(p keyserial.LogPacket) {
	k.logger.Info(
		"received log packet from keypad",
		"message", p.Message)
}
