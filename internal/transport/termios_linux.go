//go:build linux

package transport

import (
	"unsafe"

	ioctl "github.com/daedaluz/goioctl"
)

// termios2 mirrors struct termios2 from <asm/termbits.h>; it is read and
// written wholesale via TCGETS2/TCSETS2 so that BOTHER + explicit input
// speed can select 115200 baud without relying on the CBAUD enum.
type termios2 struct {
	Iflag  uint32
	Oflag  uint32
	Cflag  uint32
	Lflag  uint32
	Line   byte
	Cc     [19]byte
	ISpeed uint32
	OSpeed uint32
}

const (
	iflagIGNPAR = 0000004
	iflagIXON   = 0002000

	oflagOPOST = 0000001

	cflagCS8     = 0000060
	cflagCREAD   = 0000200
	cflagCLOCAL  = 0004000
	cflagBOTHER  = 0010000
	cflagCRTSCTS = 020000000000

	lflagECHO   = 0000010
	lflagICANON = 0000002
	lflagISIG   = 0000001
	lflagIEXTEN = 0100000
)

var (
	tcgets2 = ioctl.IOR('T', 0x2A, unsafe.Sizeof(termios2{}))
	tcsets2 = ioctl.IOW('T', 0x2B, unsafe.Sizeof(termios2{}))
)

func getAttr2(fd int) (termios2, error) {
	var t termios2
	err := ioctl.Ioctl(uintptr(fd), tcgets2, uintptr(unsafe.Pointer(&t)))
	return t, err
}

func setAttr2(fd int, t termios2) error {
	return ioctl.Ioctl(uintptr(fd), tcsets2, uintptr(unsafe.Pointer(&t)))
}

// rawMode clears the bits that would turn the line into a cooked tty
// (echo, canonical line editing, signal generation) so every byte written
// by the protocol engine reaches the wire unmodified.
func rawMode(t *termios2) {
	t.Iflag &^= iflagIGNPAR | iflagIXON
	t.Oflag &^= oflagOPOST
	t.Lflag &^= lflagECHO | lflagICANON | lflagISIG | lflagIEXTEN
	t.Cflag &^= 0000060 // CSIZE
	t.Cflag |= cflagCS8 | cflagCREAD | cflagCLOCAL
}

func setSpeed(t *termios2, baud uint32) {
	t.Cflag |= cflagBOTHER
	t.ISpeed = baud
	t.OSpeed = baud
}

func setRTSCTS(t *termios2, enabled bool) {
	if enabled {
		t.Cflag |= cflagCRTSCTS
	} else {
		t.Cflag &^= cflagCRTSCTS
	}
}

const (
	tcflsh = uintptr(0x540B)

	tcflushInput  = 0
	tcflushOutput = 1
)

func ioctlFlush(fd int, queue uintptr) error {
	return ioctl.Ioctl(uintptr(fd), tcflsh, queue)
}
