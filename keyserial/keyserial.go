// Package keyserial implements the serial protocol between the pideck host
// daemon and the keypad firmware.
//
// Every packet is a type byte followed by a little-endian payload and a
// little-endian CRC32 (IEEE) of the type byte and payload. The host sends
// incoming packets; the device answers each with exactly one Ack, Buttons
// or Error outgoing packet, optionally preceded by Log packets.
package keyserial

import (
	"encoding/binary"
	"errors"
	"fmt"
	"hash/crc32"
	"io"
)

// Endianness defines the endianness of the protocol.
var Endianness = binary.LittleEndian

// MaxKeys is the largest keypad the protocol can describe. Button states are
// sent as a 16-bit mask.
const MaxKeys = 16

// IncomingPacketType is the type of a packet sent from the host to the
// device.
type IncomingPacketType uint8

const (
	TypeInitializePacket IncomingPacketType = iota
	TypeClearPacket
	TypeSetPacket
	TypeReadButtonsPacket
	TypeKeyPressPacket
	TypeKeyReleaseAllPacket
)

// String returns a string representation of the packet type.
func (t IncomingPacketType) String() string {
	switch t {
	case TypeInitializePacket:
		return "initialize"
	case TypeClearPacket:
		return "clear"
	case TypeSetPacket:
		return "set"
	case TypeReadButtonsPacket:
		return "read_buttons"
	case TypeKeyPressPacket:
		return "key_press"
	case TypeKeyReleaseAllPacket:
		return "key_release_all"
	default:
		return fmt.Sprintf("IncomingPacketType(%d)", t)
	}
}

// IncomingPacket is a packet sent from the host to the device.
type IncomingPacket interface {
	// Type returns the type of packet.
	Type() IncomingPacketType
}

// InitializePacket tells the device how many keys the host drives.
type InitializePacket struct {
	NumKeys uint16
}

// ClearPacket turns every pixel off.
type ClearPacket struct{}

// SetPacket sets every pixel. Pix holds three bytes (R, G, B) per key.
type SetPacket struct {
	Pix []uint8
}

// ReadButtonsPacket asks the device for the current button states.
type ReadButtonsPacket struct{}

// KeyPressPacket presses and holds a keyboard key. Code is a HID usage ID.
type KeyPressPacket struct {
	Code uint8
}

// KeyReleaseAllPacket releases every held keyboard key.
type KeyReleaseAllPacket struct{}

func (p InitializePacket) Type() IncomingPacketType    { return TypeInitializePacket }
func (p ClearPacket) Type() IncomingPacketType         { return TypeClearPacket }
func (p SetPacket) Type() IncomingPacketType           { return TypeSetPacket }
func (p ReadButtonsPacket) Type() IncomingPacketType   { return TypeReadButtonsPacket }
func (p KeyPressPacket) Type() IncomingPacketType      { return TypeKeyPressPacket }
func (p KeyReleaseAllPacket) Type() IncomingPacketType { return TypeKeyReleaseAllPacket }

// OutgoingPacketType is the type of a packet sent from the device to the
// host.
type OutgoingPacketType uint8

const (
	TypeErrorPacket OutgoingPacketType = iota
	TypePanicPacket
	TypeLogPacket
	TypeAckPacket
	TypeButtonsPacket
)

// String returns a string representation of the packet type.
func (t OutgoingPacketType) String() string {
	switch t {
	case TypeErrorPacket:
		return "error"
	case TypePanicPacket:
		return "panic"
	case TypeLogPacket:
		return "log"
	case TypeAckPacket:
		return "ack"
	case TypeButtonsPacket:
		return "buttons"
	default:
		return fmt.Sprintf("OutgoingPacketType(%d)", t)
	}
}

// OutgoingPacket is a packet sent from the device to the host.
type OutgoingPacket interface {
	// Type returns the type of packet.
	Type() OutgoingPacketType
}

// ErrorPacket indicates that the device could not handle a packet.
type ErrorPacket struct {
	Message string
}

// PanicPacket indicates that the device cannot recover.
type PanicPacket struct{}

// LogPacket carries a diagnostic message.
type LogPacket struct {
	Message string
}

// AckPacket acknowledges a handled incoming packet.
type AckPacket struct {
	IncomingPacketType IncomingPacketType
}

// ButtonsPacket reports the button states. Bit i is set when key i is
// pressed.
type ButtonsPacket struct {
	Mask uint16
}

func (p ErrorPacket) Type() OutgoingPacketType   { return TypeErrorPacket }
func (p PanicPacket) Type() OutgoingPacketType   { return TypePanicPacket }
func (p LogPacket) Type() OutgoingPacketType     { return TypeLogPacket }
func (p AckPacket) Type() OutgoingPacketType     { return TypeAckPacket }
func (p ButtonsPacket) Type() OutgoingPacketType { return TypeButtonsPacket }

// ErrChecksum is returned when a packet's trailer does not match its
// contents.
var ErrChecksum = errors.New("packet checksum mismatch")

// ReadContext is the state of the keypad. Data in this structure are
// required for the device to read incoming packets.
type ReadContext struct {
	// NumKeys is the number of keys set by the last InitializePacket.
	NumKeys uint16
}

// ReadIncomingPacket reads an incoming packet from the given reader.
func ReadIncomingPacket(r io.Reader, context ReadContext) (IncomingPacket, error) {
	hash := crc32.NewIEEE()
	r = io.TeeReader(r, hash)

	var packet IncomingPacket
	var ptypeBuf [1]byte
	if _, err := io.ReadFull(r, ptypeBuf[:]); err != nil {
		return nil, fmt.Errorf("failed to read incoming packet type: %w", err)
	}

	switch ptype := IncomingPacketType(ptypeBuf[0]); ptype {
	case TypeInitializePacket:
		var p InitializePacket
		if err := binary.Read(r, Endianness, &p); err != nil {
			return nil, fmt.Errorf("failed to read number of keys: %w", err)
		}
		packet = p

	case TypeClearPacket:
		packet = ClearPacket{}

	case TypeSetPacket:
		var p SetPacket
		p.Pix = make([]uint8, 3*int(context.NumKeys))
		if _, err := io.ReadFull(r, p.Pix); err != nil {
			return nil, fmt.Errorf("failed to read pixel data: %w", err)
		}
		packet = p

	case TypeReadButtonsPacket:
		packet = ReadButtonsPacket{}

	case TypeKeyPressPacket:
		var p KeyPressPacket
		if err := binary.Read(r, Endianness, &p); err != nil {
			return nil, fmt.Errorf("failed to read key code: %w", err)
		}
		packet = p

	case TypeKeyReleaseAllPacket:
		packet = KeyReleaseAllPacket{}

	default:
		return nil, fmt.Errorf("unknown packet type: %s", ptype)
	}

	if err := readChecksum(r, hash.Sum32()); err != nil {
		return nil, err
	}

	return packet, nil
}

// WriteIncomingPacket writes an incoming packet to the given writer.
func WriteIncomingPacket(w io.Writer, p IncomingPacket) error {
	hash := crc32.NewIEEE()
	mw := io.MultiWriter(w, hash)

	if err := binary.Write(mw, Endianness, p.Type()); err != nil {
		return fmt.Errorf("failed to write packet type: %w", err)
	}

	switch p := p.(type) {
	case InitializePacket, KeyPressPacket:
		if err := binary.Write(mw, Endianness, p); err != nil {
			return fmt.Errorf("failed to write packet: %w", err)
		}
	case SetPacket:
		if _, err := mw.Write(p.Pix); err != nil {
			return fmt.Errorf("failed to write packet: %w", err)
		}
	case ClearPacket, ReadButtonsPacket, KeyReleaseAllPacket:
		// no payload
	default:
		return fmt.Errorf("unknown packet type: %T", p)
	}

	// The checksum is not part of its own hash, so it bypasses mw.
	if err := binary.Write(w, Endianness, hash.Sum32()); err != nil {
		return fmt.Errorf("failed to write packet checksum: %w", err)
	}

	return nil
}

// ReadOutgoingPacket reads an outgoing packet from the given reader.
func ReadOutgoingPacket(r io.Reader) (OutgoingPacket, error) {
	hash := crc32.NewIEEE()
	r = io.TeeReader(r, hash)

	var packet OutgoingPacket
	var ptypeBuf [1]byte
	if _, err := io.ReadFull(r, ptypeBuf[:]); err != nil {
		return nil, fmt.Errorf("failed to read outgoing packet type: %w", err)
	}

	switch ptype := OutgoingPacketType(ptypeBuf[0]); ptype {
	case TypeErrorPacket:
		msg, err := readMessage(r)
		if err != nil {
			return nil, fmt.Errorf("failed to read error message: %w", err)
		}
		packet = ErrorPacket{Message: msg}

	case TypePanicPacket:
		packet = PanicPacket{}

	case TypeLogPacket:
		msg, err := readMessage(r)
		if err != nil {
			return nil, fmt.Errorf("failed to read log message: %w", err)
		}
		packet = LogPacket{Message: msg}

	case TypeAckPacket:
		var p AckPacket
		if err := binary.Read(r, Endianness, &p); err != nil {
			return nil, fmt.Errorf("failed to read acked packet type: %w", err)
		}
		packet = p

	case TypeButtonsPacket:
		var p ButtonsPacket
		if err := binary.Read(r, Endianness, &p); err != nil {
			return nil, fmt.Errorf("failed to read button mask: %w", err)
		}
		packet = p

	default:
		return nil, fmt.Errorf("unknown packet type: %s", ptype)
	}

	if err := readChecksum(r, hash.Sum32()); err != nil {
		return nil, err
	}

	return packet, nil
}

// WriteOutgoingPacket writes an outgoing packet to the given writer.
func WriteOutgoingPacket(w io.Writer, p OutgoingPacket) error {
	hash := crc32.NewIEEE()
	mw := io.MultiWriter(w, hash)

	if err := binary.Write(mw, Endianness, p.Type()); err != nil {
		return fmt.Errorf("failed to write packet type: %w", err)
	}

	switch p := p.(type) {
	case ErrorPacket:
		if err := writeMessage(mw, p.Message); err != nil {
			return fmt.Errorf("failed to write error message: %w", err)
		}
	case LogPacket:
		if err := writeMessage(mw, p.Message); err != nil {
			return fmt.Errorf("failed to write log message: %w", err)
		}
	case AckPacket, ButtonsPacket:
		if err := binary.Write(mw, Endianness, p); err != nil {
			return fmt.Errorf("failed to write packet: %w", err)
		}
	case PanicPacket:
		// no payload
	default:
		return fmt.Errorf("unknown packet type: %T", p)
	}

	if err := binary.Write(w, Endianness, hash.Sum32()); err != nil {
		return fmt.Errorf("failed to write packet checksum: %w", err)
	}

	return nil
}

// readChecksum reads the trailer and compares it with want, which must be
// taken from the hash before the trailer is read.
func readChecksum(r io.Reader, want uint32) error {
	var checksum uint32
	if err := binary.Read(r, Endianness, &checksum); err != nil {
		return fmt.Errorf("failed to read packet checksum: %w", err)
	}
	if checksum != want {
		return ErrChecksum
	}
	return nil
}

func readMessage(r io.Reader) (string, error) {
	var length uint16
	if err := binary.Read(r, Endianness, &length); err != nil {
		return "", err
	}
	buf := make([]byte, length)
	if _, err := io.ReadFull(r, buf); err != nil {
		return "", err
	}
	return string(buf), nil
}

func writeMessage(w io.Writer, msg string) error {
	if len(msg) > 0xFFFF {
		msg = msg[:0xFFFF]
	}
	if err := binary.Write(w, Endianness, uint16(len(msg))); err != nil {
		return err
	}
	_, err := io.WriteString(w, msg)
	return err
}
