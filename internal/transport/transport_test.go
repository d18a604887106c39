package transport

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestLoopbackWriteRead(t *testing.T) {
	a, b := NewLoopbackPair()
	defer a.Close()
	defer b.Close()

	n, err := a.Write([]byte("hello"))
	require.NoError(t, err)
	require.Equal(t, 5, n)

	got, err := b.Read(5, 200)
	require.NoError(t, err)
	require.Equal(t, []byte("hello"), got)
}

func TestLoopbackReadTimeoutReturnsShortRead(t *testing.T) {
	_, b := NewLoopbackPair()
	defer b.Close()

	got, err := b.Read(16, 20)
	require.NoError(t, err)
	require.Len(t, got, 0)
}

func TestLoopbackClosedRejectsIO(t *testing.T) {
	a, b := NewLoopbackPair()
	b.Close()
	a.Close()

	_, err := a.Write([]byte("x"))
	require.ErrorIs(t, err, ErrClosed)
}

func TestAutoSelectByVIDPID(t *testing.T) {
	vid, pid := SmartscreenVID, SmartscreenPID
	other := uint16(0x0403)
	devices := []Device{
		{Device: "/dev/ttyUSB0", VID: &other, PID: &other},
		{Device: "/dev/ttyACM0", VID: &vid, PID: &pid},
	}
	got := AutoSelect(devices)
	require.NotNil(t, got)
	require.Equal(t, "/dev/ttyACM0", got.Device)
}

func TestAutoSelectByLegacyHWID(t *testing.T) {
	devices := []Device{
		{Device: "/dev/ttyUSB1", HWID: "USB VID:PID=0000:0000 SER=USB35INCHIPSV2"},
	}
	got := AutoSelect(devices)
	require.NotNil(t, got)
	require.Equal(t, "/dev/ttyUSB1", got.Device)
}

func TestAutoSelectNoMatch(t *testing.T) {
	devices := []Device{{Device: "/dev/ttyUSB2"}}
	require.Nil(t, AutoSelect(devices))
}
