package main

import (
	"io"
	"machine"
	"time"
)

// usbSerial is the USB CDC port as an io.ReadWriter.
type usbSerial struct {
	port machine.Serialer
}

var _ io.ReadWriter = usbSerial{}

// Read blocks until at least one byte is buffered, then returns as many as
// are available without waiting again.
func (s usbSerial) Read(b []byte) (int, error) {
	if len(b) == 0 {
		return 0, nil
	}

	for s.port.Buffered() == 0 {
		// Sleep to reduce CPU usage.
		time.Sleep(time.Millisecond)
	}

	var n int
	for n < len(b) && s.port.Buffered() > 0 {
		c, err := s.port.ReadByte()
		if err != nil {
			return n, err
		}
		b[n] = c
		n++
	}
	return n, nil
}

func (s usbSerial) Write(b []byte) (int, error) {
	return s.port.Write(b)
}
