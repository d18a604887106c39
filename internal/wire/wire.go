// Package wire packs and decodes the Rev-A command header and the fixed
// payloads (orientation, brightness) for the 1A86:5722 display family.
package wire

import (
	"math"

	"github.com/devodan69/smartscreen/internal/xerrors"
)

// Command is a Rev-A command byte.
type Command byte

const (
	Reset          Command = 0x65
	Clear          Command = 0x66
	ToBlack        Command = 0x67
	ScreenOff      Command = 0x6C
	ScreenOn       Command = 0x6D
	SetBrightness  Command = 0x6E
	Hello          Command = 0x45
	SetOrientation Command = 0x79
	DisplayBitmap  Command = 0xC5
)

// Orientation is the pre-offset Rev-A orientation code; the wire byte
// adds 100 to this value (see OrientationPayload).
type Orientation byte

const (
	Portrait        Orientation = 0
	ReversePortrait Orientation = 1
	Landscape       Orientation = 2
	ReverseLandscape Orientation = 3
)

// HeaderLen is the size in bytes of a packed command header.
const HeaderLen = 6

// OrientationPayloadLen is the size in bytes of a SET_ORIENTATION payload.
const OrientationPayloadLen = 16

// PackHeader packs (cmd, x, y, ex, ey) into the 6-byte Rev-A header. All
// four coordinates are 10-bit and must be non-negative.
func PackHeader(cmd Command, x, y, ex, ey int) ([HeaderLen]byte, error) {
	var b [HeaderLen]byte
	if x < 0 || y < 0 || ex < 0 || ey < 0 {
		return b, xerrors.New(xerrors.InvalidArgument, "coordinates must be non-negative")
	}
	b[0] = byte((x >> 2) & 0xFF)
	b[1] = byte((((x & 0x03) << 6) | (y >> 4)) & 0xFF)
	b[2] = byte((((y & 0x0F) << 4) | (ex >> 6)) & 0xFF)
	b[3] = byte((((ex & 0x3F) << 2) | (ey >> 8)) & 0xFF)
	b[4] = byte(ey & 0xFF)
	b[5] = byte(cmd)
	return b, nil
}

// UnpackHeader recovers (cmd, x, y, ex, ey) from a 6-byte header. It is the
// exact inverse of PackHeader for any valid 10-bit coordinate input.
func UnpackHeader(b [HeaderLen]byte) (cmd Command, x, y, ex, ey int) {
	x = (int(b[0]) << 2) | (int(b[1]) >> 6)
	y = ((int(b[1]) & 0x3F) << 4) | (int(b[2]) >> 4)
	ex = ((int(b[2]) & 0x0F) << 6) | (int(b[3]) >> 2)
	ey = ((int(b[3]) & 0x03) << 8) | int(b[4])
	cmd = Command(b[5])
	return
}

// OrientationPayload builds the 16-byte SET_ORIENTATION record: a
// zero-coordinate header followed by the orientation code (+100),
// big-endian width, big-endian height, and zero padding.
func OrientationPayload(o Orientation, width, height int) ([OrientationPayloadLen]byte, error) {
	var payload [OrientationPayloadLen]byte
	header, err := PackHeader(SetOrientation, 0, 0, 0, 0)
	if err != nil {
		return payload, err
	}
	copy(payload[:HeaderLen], header[:])
	payload[6] = byte(int(o) + 100)
	payload[7] = byte((width >> 8) & 0xFF)
	payload[8] = byte(width & 0xFF)
	payload[9] = byte((height >> 8) & 0xFF)
	payload[10] = byte(height & 0xFF)
	return payload, nil
}

// BrightnessAbsolute maps a percent in [0,100] to the inverted absolute
// level the device expects (0 = brightest, 255 = darkest), clamping the
// input first.
func BrightnessAbsolute(percent int) int {
	if percent < 0 {
		percent = 0
	}
	if percent > 100 {
		percent = 100
	}
	return 255 - int(math.Round(float64(percent)/100.0*255.0))
}
