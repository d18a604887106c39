// Package protocol implements the Rev-A protocol engine (C3): the
// handshake, orientation, window and frame/dirty-rect send operations
// layered on top of the wire codec.
package protocol

import (
	"time"

	"github.com/devodan69/smartscreen/internal/differ"
	"github.com/devodan69/smartscreen/internal/wire"
	"github.com/devodan69/smartscreen/internal/xerrors"
)

// State mirrors the protocol engine's handshake/streaming lifecycle.
type State string

const (
	Disconnected   State = "disconnected"
	Connecting     State = "connecting"
	PortOpen       State = "port_open"
	Hello          State = "hello"
	OrientationSet State = "orientation_set"
	Ready          State = "ready"
	Streaming      State = "streaming"
	Recovering     State = "recovering"
	BackoffWait    State = "backoff_wait"
	Degraded       State = "degraded"
)

// SubRevision describes a panel's native portrait dimensions, reported by
// the HELLO echo.
type SubRevision struct {
	Name           string
	PortraitWidth  int
	PortraitHeight int
}

var unknownSubRevision = SubRevision{Name: "unknown", PortraitWidth: 320, PortraitHeight: 480}

var subRevisions = map[[6]byte]SubRevision{
	{1, 1, 1, 1, 1, 1}: {Name: "usbmonitor_3_5", PortraitWidth: 320, PortraitHeight: 480},
	{2, 2, 2, 2, 2, 2}: {Name: "usbmonitor_5", PortraitWidth: 480, PortraitHeight: 800},
	{3, 3, 3, 3, 3, 3}: {Name: "usbmonitor_7", PortraitWidth: 600, PortraitHeight: 1024},
}

// HelloResult reports the outcome of a HELLO exchange.
type HelloResult struct {
	Success        bool
	RawResponse    []byte
	SubRevision    string
	PortraitWidth  int
	PortraitHeight int
}

// SendStats accumulates byte/packet counters for one send_frame or
// send_dirty_rects call.
type SendStats struct {
	BytesSent   int
	PacketsSent int
	Retries     int
	DurationS   float64
	Mode        string
}

// Transport is the byte-level dependency the engine needs from a serial
// port. It deliberately mirrors transport.Port structurally rather than
// importing the transport package, so protocol has no dependency on the
// platform-specific termios plumbing and can be driven by any double that
// satisfies this shape (including transport.LinuxPort and
// transport.LoopbackPort, both of which already implement it).
type Transport interface {
	Open(device string, baud int, rtscts bool, timeoutMs int) error
	Close() error
	IsOpen() bool
	Write(data []byte) (int, error)
	Read(maxLen int, timeoutMs int) ([]byte, error)
	FlushInput() error
	FlushOutput() error
}

// Engine is the stateful Rev-A protocol driver for one display.
type Engine struct {
	transport   Transport
	State       State
	Width       int
	Height      int
	Orientation wire.Orientation
	ChunkSize   int
	SubRevision SubRevision
}

// New constructs an engine targeting the given landscape dimensions. The
// chunk size defaults to width*8 bytes per row-group, matching the
// teacher protocol's per-write granularity.
func New(t Transport, width, height int) *Engine {
	return &Engine{
		transport:   t,
		State:       Disconnected,
		Width:       width,
		Height:      height,
		Orientation: wire.Landscape,
		ChunkSize:   width * 8,
		SubRevision: unknownSubRevision,
	}
}

// Hello sends the 6x HELLO probe and classifies the echoed sub-revision.
// A zero-length or 6-byte response both count as success; some legacy
// panels accept commands without ever answering HELLO.
func (e *Engine) Hello(timeoutMs int) (HelloResult, error) {
	e.State = Hello
	if _, err := e.transport.Write([]byte{byte(wire.Hello), byte(wire.Hello), byte(wire.Hello), byte(wire.Hello), byte(wire.Hello), byte(wire.Hello)}); err != nil {
		return HelloResult{}, xerrors.Wrap(xerrors.HandshakeFailed, "writing HELLO probe", err)
	}
	response, err := e.transport.Read(6, timeoutMs)
	if err != nil {
		return HelloResult{}, xerrors.Wrap(xerrors.HandshakeFailed, "reading HELLO response", err)
	}
	_ = e.transport.FlushInput()

	sub := unknownSubRevision
	if len(response) == 6 {
		var key [6]byte
		copy(key[:], response)
		if known, ok := subRevisions[key]; ok {
			sub = known
		}
	}
	e.SubRevision = sub

	ok := len(response) == 0 || len(response) == 6
	return HelloResult{
		Success:        ok,
		RawResponse:    response,
		SubRevision:    sub.Name,
		PortraitWidth:  sub.PortraitWidth,
		PortraitHeight: sub.PortraitHeight,
	}, nil
}

// SetOrientation writes the 16-byte orientation payload and adopts the
// given dimensions as the engine's active frame size.
func (e *Engine) SetOrientation(width, height int, landscape bool) error {
	e.State = OrientationSet
	orientation := wire.Portrait
	if landscape {
		orientation = wire.Landscape
	}
	payload, err := wire.OrientationPayload(orientation, width, height)
	if err != nil {
		return err
	}
	if _, err := e.transport.Write(payload[:]); err != nil {
		return xerrors.Wrap(xerrors.TransportError, "writing orientation payload", err)
	}
	e.Width = width
	e.Height = height
	e.Orientation = orientation
	e.ChunkSize = width * 8
	e.State = Ready
	return nil
}

// Handshake performs HELLO followed by SetOrientation in landscape mode,
// failing if HELLO did not succeed.
func (e *Engine) Handshake(timeoutMs int) (HelloResult, error) {
	result, err := e.Hello(timeoutMs)
	if err != nil {
		return result, err
	}
	if !result.Success {
		return result, xerrors.New(xerrors.HandshakeFailed, "HELLO handshake failed")
	}
	if err := e.SetOrientation(e.Width, e.Height, true); err != nil {
		return result, err
	}
	e.State = Ready
	return result, nil
}

// SetWindow writes the DISPLAY_BITMAP header for an inclusive pixel
// window and returns the byte count written.
func (e *Engine) SetWindow(x0, y0, x1, y1 int) (int, error) {
	header, err := wire.PackHeader(wire.DisplayBitmap, x0, y0, x1, y1)
	if err != nil {
		return 0, err
	}
	n, err := e.transport.Write(header[:])
	if err != nil {
		return n, xerrors.Wrap(xerrors.TransportError, "writing window header", err)
	}
	return n, nil
}

// SetBrightness clamps percent to [0,100], converts it to the panel's
// inverted absolute scale and writes the SET_BRIGHTNESS command.
func (e *Engine) SetBrightness(percent int) (int, error) {
	absolute := wire.BrightnessAbsolute(percent)
	header, err := wire.PackHeader(wire.SetBrightness, absolute, 0, 0, 0)
	if err != nil {
		return 0, err
	}
	n, err := e.transport.Write(header[:])
	if err != nil {
		return n, xerrors.Wrap(xerrors.TransportError, "writing brightness command", err)
	}
	return n, nil
}

// SendFrame writes a full-frame window header followed by the frame
// payload split into ChunkSize writes.
func (e *Engine) SendFrame(frame []byte) (SendStats, error) {
	expected := e.Width * e.Height * 2
	if len(frame) != expected {
		return SendStats{}, xerrors.New(xerrors.InvalidArgument, "frame size must match width*height*2")
	}

	stats := SendStats{Mode: "full"}
	start := time.Now()

	n, err := e.SetWindow(0, 0, e.Width-1, e.Height-1)
	stats.BytesSent += n
	stats.PacketsSent++
	if err != nil {
		return stats, err
	}

	for offset := 0; offset < len(frame); offset += e.ChunkSize {
		end := offset + e.ChunkSize
		if end > len(frame) {
			end = len(frame)
		}
		n, err := e.transport.Write(frame[offset:end])
		stats.BytesSent += n
		stats.PacketsSent++
		if err != nil {
			return stats, xerrors.Wrap(xerrors.TransportError, "writing frame chunk", err)
		}
	}

	stats.DurationS = time.Since(start).Seconds()
	e.State = Streaming
	return stats, nil
}

// SendDirtyRects writes one window header plus row-chunked payload per
// rect. An empty rect list is a no-op.
func (e *Engine) SendDirtyRects(rects []differ.Rect, frame []byte) (SendStats, error) {
	if len(rects) == 0 {
		return SendStats{Mode: "noop"}, nil
	}

	stats := SendStats{Mode: "dirty"}
	start := time.Now()
	rowStride := e.Width * 2

	for _, rect := range rects {
		n, err := e.SetWindow(rect.X, rect.Y, rect.X+rect.W-1, rect.Y+rect.H-1)
		stats.BytesSent += n
		stats.PacketsSent++
		if err != nil {
			return stats, err
		}

		for row := rect.Y; row < rect.Y+rect.H; row++ {
			srcStart := row*rowStride + rect.X*2
			srcEnd := srcStart + rect.W*2
			rowBytes := frame[srcStart:srcEnd]
			for offset := 0; offset < len(rowBytes); offset += e.ChunkSize {
				end := offset + e.ChunkSize
				if end > len(rowBytes) {
					end = len(rowBytes)
				}
				n, err := e.transport.Write(rowBytes[offset:end])
				stats.BytesSent += n
				stats.PacketsSent++
				if err != nil {
					return stats, xerrors.Wrap(xerrors.TransportError, "writing dirty rect chunk", err)
				}
			}
		}
	}

	stats.DurationS = time.Since(start).Seconds()
	e.State = Streaming
	return stats, nil
}

// Recover closes and reopens the transport and re-runs the handshake. The
// caller is responsible for waiting out any settle delay before invoking
// this; the engine itself does not sleep.
func (e *Engine) Recover(device string, baud, timeoutMs int) (HelloResult, error) {
	e.State = Recovering
	_ = e.transport.Close()
	if err := e.transport.Open(device, baud, true, timeoutMs); err != nil {
		return HelloResult{}, xerrors.Wrap(xerrors.RecoverFailed, "reopening transport", err)
	}
	e.State = PortOpen
	return e.Handshake(timeoutMs)
}
