// Package transport implements the byte-oriented serial transport (C1):
// deterministic line settings over a USB-serial link, plus VID/PID-aware
// device discovery.
package transport

import (
	"github.com/devodan69/smartscreen/internal/xerrors"
)

// DefaultBaud and DefaultTimeoutMs match the hardware's fixed line settings.
const (
	DefaultBaud      = 115200
	DefaultTimeoutMs = 500
)

// Port is what the protocol engine and stream controller need from a
// transport: open/close a single device, bounded read/write, and input
// flushing. Both the real Linux serial port and the net.Pipe-backed loopback
// used for mock mode and tests implement it.
type Port interface {
	Open(name string, baud int, rtscts bool, timeoutMs int) error
	Close() error
	IsOpen() bool
	Write(data []byte) (int, error)
	Read(maxLen int, timeoutMs int) ([]byte, error)
	FlushInput() error
	FlushOutput() error
}

// Device describes one enumerated serial port.
type Device struct {
	Device      string
	Description string
	HWID        string
	VID         *uint16
	PID         *uint16
}

// ErrClosed is returned by Write/Read when the port is not open.
var ErrClosed = xerrors.New(xerrors.TransportClosed, "port is not open")
