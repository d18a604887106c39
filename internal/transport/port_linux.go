//go:build linux

package transport

import (
	"fmt"
	"sync/atomic"
	"syscall"
	"time"

	"github.com/daedaluz/fdev/poll"

	"github.com/devodan69/smartscreen/internal/xerrors"
)

// LinuxPort is the real serial transport, adapted from the teacher's raw
// termios-over-ioctl approach: syscall.Open the device node directly and
// drive line discipline with TCGETS2/TCSETS2 rather than pulling in a
// higher-level serial library for the byte path.
type LinuxPort struct {
	fd     int
	closed atomic.Bool
	name   string
}

func New() *LinuxPort {
	p := &LinuxPort{fd: -1}
	p.closed.Store(true)
	return p
}

func (p *LinuxPort) IsOpen() bool {
	return !p.closed.Load()
}

// Open configures 8N1 at the given baud with optional RTS/CTS hardware
// flow control. It is idempotent when already open to the same device.
func (p *LinuxPort) Open(name string, baud int, rtscts bool, timeoutMs int) error {
	if p.IsOpen() && p.name == name {
		return nil
	}
	if p.IsOpen() {
		_ = p.Close()
	}

	fd, err := syscall.Open(name, syscall.O_RDWR|syscall.O_NOCTTY, 0)
	if err != nil {
		return xerrors.Wrap(xerrors.TransportError, fmt.Sprintf("open %s", name), err)
	}

	t, err := getAttr2(fd)
	if err != nil {
		syscall.Close(fd)
		return xerrors.Wrap(xerrors.TransportError, "get termios", err)
	}
	rawMode(&t)
	setSpeed(&t, uint32(baud))
	setRTSCTS(&t, rtscts)
	if err := setAttr2(fd, t); err != nil {
		syscall.Close(fd)
		return xerrors.Wrap(xerrors.TransportError, "set termios", err)
	}

	p.fd = fd
	p.name = name
	p.closed.Store(false)
	return nil
}

func (p *LinuxPort) Close() error {
	if p.closed.Swap(true) {
		return nil
	}
	fd := p.fd
	p.fd = -1
	if err := syscall.Close(fd); err != nil {
		return xerrors.Wrap(xerrors.TransportError, "close", err)
	}
	return nil
}

func (p *LinuxPort) Write(data []byte) (int, error) {
	if !p.IsOpen() {
		return 0, ErrClosed
	}
	n, err := syscall.Write(p.fd, data)
	if err != nil {
		return n, xerrors.Wrap(xerrors.TransportError, "write", err)
	}
	return n, nil
}

// Read blocks for at most timeoutMs waiting for input, then reads
// whatever is available. A timeout is not an error: it yields a short
// (possibly empty) read, matching the contract that read() never blocks
// forever and never errors on simple timeout.
func (p *LinuxPort) Read(maxLen int, timeoutMs int) ([]byte, error) {
	if !p.IsOpen() {
		return nil, ErrClosed
	}
	if err := poll.WaitInput(p.fd, time.Duration(timeoutMs)*time.Millisecond); err != nil {
		return nil, nil
	}
	buf := make([]byte, maxLen)
	n, err := syscall.Read(p.fd, buf)
	if err != nil {
		return nil, xerrors.Wrap(xerrors.TransportError, "read", err)
	}
	return buf[:n], nil
}

func (p *LinuxPort) FlushInput() error {
	if !p.IsOpen() {
		return ErrClosed
	}
	return ioctlFlush(p.fd, tcflushInput)
}

func (p *LinuxPort) FlushOutput() error {
	if !p.IsOpen() {
		return ErrClosed
	}
	return ioctlFlush(p.fd, tcflushOutput)
}

var _ Port = (*LinuxPort)(nil)
