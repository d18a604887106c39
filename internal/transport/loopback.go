package transport

import (
	"net"
	"sync/atomic"
	"time"
)

// LoopbackPort is an in-process stand-in for the real serial device,
// adapted from the teacher's pty_linux.go OpenPTY helper: that function
// exists to let the package test real termios behavior against a local
// pseudoterminal without hardware. Reproducing its unlockpt/ptsname ioctl
// dance isn't worth the surface here, since what the display engine
// actually needs from a test double is a synchronous, deadline-aware
// full-duplex byte pipe — net.Pipe already provides exactly that. NewLoopbackPair
// plays the same "master/slave" role OpenPTY did: one end drives the
// protocol engine, the other end plays the device in tests and in
// smartscreend's -mock mode.
type LoopbackPort struct {
	conn   net.Conn
	closed atomic.Bool
}

// NewLoopbackPair returns two connected ports: writes to one are readable
// from the other.
func NewLoopbackPair() (*LoopbackPort, *LoopbackPort) {
	a, b := net.Pipe()
	return &LoopbackPort{conn: a}, &LoopbackPort{conn: b}
}

// Open marks the port usable again. It mirrors LinuxPort.Open's
// contract of clearing the closed flag on (re)open; callers that need a
// port to truly come back to life after Close (the common case, since a
// net.Pipe conn cannot be reopened once closed) should hand back a fresh
// *LoopbackPort via NewLoopbackPair rather than reusing this instance.
func (p *LoopbackPort) Open(_ string, _ int, _ bool, _ int) error {
	p.closed.Store(false)
	return nil
}

func (p *LoopbackPort) IsOpen() bool {
	return !p.closed.Load()
}

func (p *LoopbackPort) Close() error {
	if p.closed.Swap(true) {
		return nil
	}
	return p.conn.Close()
}

func (p *LoopbackPort) Write(data []byte) (int, error) {
	if !p.IsOpen() {
		return 0, ErrClosed
	}
	return p.conn.Write(data)
}

func (p *LoopbackPort) Read(maxLen int, timeoutMs int) ([]byte, error) {
	if !p.IsOpen() {
		return nil, ErrClosed
	}
	_ = p.conn.SetReadDeadline(time.Now().Add(time.Duration(timeoutMs) * time.Millisecond))
	buf := make([]byte, maxLen)
	n, err := p.conn.Read(buf)
	if err != nil {
		if netErr, ok := err.(net.Error); ok && netErr.Timeout() {
			return buf[:0], nil
		}
		return nil, err
	}
	return buf[:n], nil
}

func (p *LoopbackPort) FlushInput() error  { return nil }
func (p *LoopbackPort) FlushOutput() error { return nil }

var _ Port = (*LoopbackPort)(nil)
