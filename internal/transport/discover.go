package transport

import (
	"strconv"
	"strings"

	"go.bug.st/serial/enumerator"
)

// Discover enumerates serial ports, reporting VID/PID where the OS can
// supply them. Ports the enumerator can't resolve VID/PID for (non-USB
// ports, e.g. a real RS-232 UART) get nil VID/PID rather than zero, so
// callers never mistake "unknown" for "vendor 0".
func Discover() ([]Device, error) {
	ports, err := enumerator.GetDetailedPortsList()
	if err != nil {
		return nil, err
	}
	devices := make([]Device, 0, len(ports))
	for _, p := range ports {
		d := Device{
			Device:      p.Name,
			Description: p.Product,
			HWID:        p.SerialNumber,
		}
		if p.IsUSB {
			if vid, err := strconv.ParseUint(p.VID, 16, 16); err == nil {
				v := uint16(vid)
				d.VID = &v
			}
			if pid, err := strconv.ParseUint(p.PID, 16, 16); err == nil {
				v := uint16(pid)
				d.PID = &v
			}
		}
		devices = append(devices, d)
	}
	return devices, nil
}

// SmartscreenVID and SmartscreenPID identify the 1A86:5722 display family.
const (
	SmartscreenVID uint16 = 0x1A86
	SmartscreenPID uint16 = 0x5722
)

// legacyHWIDMarker is the substring older firmware reports in its hardware
// ID string when VID/PID enumeration is unavailable.
const legacyHWIDMarker = "USB35INCHIPSV2"

// AutoSelect picks the first device matching VID:PID, falling back to the
// legacy hardware-ID substring match.
func AutoSelect(devices []Device) *Device {
	for i := range devices {
		d := &devices[i]
		if d.VID != nil && d.PID != nil && *d.VID == SmartscreenVID && *d.PID == SmartscreenPID {
			return d
		}
	}
	for i := range devices {
		if strings.Contains(devices[i].HWID, legacyHWIDMarker) {
			return &devices[i]
		}
	}
	return nil
}
