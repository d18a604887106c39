package protocol

import (
	"testing"

	"github.com/devodan69/smartscreen/internal/differ"
	"github.com/devodan69/smartscreen/internal/wire"
	"github.com/stretchr/testify/require"
)

// fakeTransport is an in-memory double: writes accumulate, reads are
// served from a preloaded queue. It satisfies the protocol.Transport
// shape without pulling in the real serial plumbing.
type fakeTransport struct {
	open       bool
	written    [][]byte
	readQueue  [][]byte
	flushCount int
	openErr    error
	closeErr   error
}

func (f *fakeTransport) Open(_ string, _ int, _ bool, _ int) error {
	if f.openErr != nil {
		return f.openErr
	}
	f.open = true
	return nil
}

func (f *fakeTransport) Close() error {
	f.open = false
	return f.closeErr
}

func (f *fakeTransport) IsOpen() bool { return f.open }

func (f *fakeTransport) Write(data []byte) (int, error) {
	cp := make([]byte, len(data))
	copy(cp, data)
	f.written = append(f.written, cp)
	return len(data), nil
}

func (f *fakeTransport) Read(maxLen int, _ int) ([]byte, error) {
	if len(f.readQueue) == 0 {
		return nil, nil
	}
	next := f.readQueue[0]
	f.readQueue = f.readQueue[1:]
	if len(next) > maxLen {
		next = next[:maxLen]
	}
	return next, nil
}

func (f *fakeTransport) FlushInput() error  { f.flushCount++; return nil }
func (f *fakeTransport) FlushOutput() error { return nil }

func TestHelloKnownSubRevision(t *testing.T) {
	ft := &fakeTransport{readQueue: [][]byte{{2, 2, 2, 2, 2, 2}}}
	e := New(ft, 800, 480)

	result, err := e.Hello(500)
	require.NoError(t, err)
	require.True(t, result.Success)
	require.Equal(t, "usbmonitor_5", result.SubRevision)
	require.Equal(t, 480, result.PortraitWidth)
	require.Equal(t, 800, result.PortraitHeight)
	require.Equal(t, 1, ft.flushCount)
}

func TestHelloEmptyResponseStillSucceeds(t *testing.T) {
	ft := &fakeTransport{readQueue: [][]byte{{}}}
	e := New(ft, 800, 480)

	result, err := e.Hello(500)
	require.NoError(t, err)
	require.True(t, result.Success)
	require.Equal(t, "unknown", result.SubRevision)
}

func TestHelloMalformedResponseFails(t *testing.T) {
	ft := &fakeTransport{readQueue: [][]byte{{9, 9, 9}}}
	e := New(ft, 800, 480)

	result, err := e.Hello(500)
	require.NoError(t, err)
	require.False(t, result.Success)
}

func TestHandshakeSetsReadyState(t *testing.T) {
	ft := &fakeTransport{readQueue: [][]byte{{1, 1, 1, 1, 1, 1}}}
	e := New(ft, 800, 480)

	result, err := e.Handshake(500)
	require.NoError(t, err)
	require.True(t, result.Success)
	require.Equal(t, Ready, e.State)
	require.Equal(t, 800, e.Width)
	require.Equal(t, 480, e.Height)
	// HELLO write + orientation payload write
	require.Len(t, ft.written, 2)
	require.Len(t, ft.written[1], wire.OrientationPayloadLen)
}

func TestHandshakeFailsOnBadHello(t *testing.T) {
	ft := &fakeTransport{readQueue: [][]byte{{9, 9, 9, 9}}}
	e := New(ft, 800, 480)

	_, err := e.Handshake(500)
	require.Error(t, err)
}

func TestSetWindowWritesSixByteHeader(t *testing.T) {
	ft := &fakeTransport{}
	e := New(ft, 800, 480)

	n, err := e.SetWindow(0, 0, 799, 479)
	require.NoError(t, err)
	require.Equal(t, wire.HeaderLen, n)
	require.Len(t, ft.written, 1)
	require.Len(t, ft.written[0], wire.HeaderLen)
}

func TestSendFrameWritesHeaderThenChunks(t *testing.T) {
	ft := &fakeTransport{}
	e := New(ft, 4, 2) // tiny frame: 4*2*2 = 16 bytes
	e.ChunkSize = 8

	frame := make([]byte, 16)
	for i := range frame {
		frame[i] = byte(i)
	}

	stats, err := e.SendFrame(frame)
	require.NoError(t, err)
	require.Equal(t, "full", stats.Mode)
	require.Equal(t, Streaming, e.State)
	// 1 window header + 2 chunks
	require.Equal(t, 3, stats.PacketsSent)
	require.Equal(t, wire.HeaderLen+16, stats.BytesSent)
}

func TestSendFrameRejectsWrongSize(t *testing.T) {
	ft := &fakeTransport{}
	e := New(ft, 800, 480)

	_, err := e.SendFrame([]byte{1, 2, 3})
	require.Error(t, err)
}

func TestSendDirtyRectsNoopOnEmpty(t *testing.T) {
	ft := &fakeTransport{}
	e := New(ft, 800, 480)

	stats, err := e.SendDirtyRects(nil, nil)
	require.NoError(t, err)
	require.Equal(t, "noop", stats.Mode)
	require.Empty(t, ft.written)
}

func TestSendDirtyRectsWritesPerRow(t *testing.T) {
	ft := &fakeTransport{}
	e := New(ft, 4, 4)
	e.ChunkSize = 1024

	frame := make([]byte, 4*4*2)
	rects := []differ.Rect{{X: 0, Y: 0, W: 2, H: 2}}

	stats, err := e.SendDirtyRects(rects, frame)
	require.NoError(t, err)
	require.Equal(t, "dirty", stats.Mode)
	// 1 window header + 2 row writes
	require.Equal(t, 3, stats.PacketsSent)
}

func TestRecoverReopensAndHandshakes(t *testing.T) {
	ft := &fakeTransport{readQueue: [][]byte{{3, 3, 3, 3, 3, 3}}}
	e := New(ft, 600, 1024)
	e.State = Ready

	result, err := e.Recover("/dev/ttyUSB0", 115200, 500)
	require.NoError(t, err)
	require.True(t, result.Success)
	require.True(t, ft.open)
	require.Equal(t, Ready, e.State)
}
