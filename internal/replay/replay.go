// Package replay implements the transcript analyzer (C7): it parses
// line-delimited JSON capture transcripts and classifies each recorded
// packet against the Rev-A command set.
package replay

import (
	"bufio"
	"io"
	"regexp"
	"strings"

	jsoniter "github.com/json-iterator/go"

	"github.com/devodan69/smartscreen/internal/wire"
)

var hexClean = regexp.MustCompile(`[^0-9a-fA-F]`)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

// Event is one parsed transcript line.
type Event struct {
	Line      int
	Direction string
	Payload   []byte
}

// Report tallies the classified events across a transcript.
type Report struct {
	TotalEvents        int            `json:"total_events"`
	HostToDeviceEvents int            `json:"host_to_device_events"`
	DeviceToHostEvents int            `json:"device_to_host_events"`
	HelloCount         int            `json:"hello_count"`
	OrientationCount   int            `json:"orientation_count"`
	WindowCount        int            `json:"window_count"`
	PayloadPackets     int            `json:"payload_packets"`
	RawBytesTotal      int            `json:"raw_bytes_total"`
	CommandCounts      map[string]int `json:"command_counts"`
	Errors             []string       `json:"errors"`
}

type rawEvent struct {
	Dir        string `json:"dir"`
	Direction  string `json:"direction"`
	PayloadHex string `json:"payload_hex"`
	Hex        string `json:"hex"`
	HexPreview string `json:"hex_preview"`
}

func decodeHex(value string) []byte {
	cleaned := hexClean.ReplaceAllString(value, "")
	if len(cleaned)%2 == 1 {
		cleaned = cleaned[:len(cleaned)-1]
	}
	if cleaned == "" {
		return nil
	}
	out := make([]byte, len(cleaned)/2)
	for i := 0; i < len(out); i++ {
		hi := hexDigit(cleaned[i*2])
		lo := hexDigit(cleaned[i*2+1])
		out[i] = hi<<4 | lo
	}
	return out
}

func hexDigit(c byte) byte {
	switch {
	case c >= '0' && c <= '9':
		return c - '0'
	case c >= 'a' && c <= 'f':
		return c - 'a' + 10
	case c >= 'A' && c <= 'F':
		return c - 'A' + 10
	}
	return 0
}

func parseLine(lineNo int, line string) (Event, bool, error) {
	stripped := strings.TrimSpace(line)
	if stripped == "" {
		return Event{}, false, nil
	}
	var raw rawEvent
	if err := json.UnmarshalFromString(stripped, &raw); err != nil {
		return Event{}, false, err
	}

	direction := firstNonEmpty(raw.Dir, raw.Direction, "unknown")
	hexValue := firstNonEmpty(raw.PayloadHex, raw.Hex, raw.HexPreview, "")
	return Event{Line: lineNo, Direction: direction, Payload: decodeHex(hexValue)}, true, nil
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}

// Parse reads a line-delimited JSON transcript, skipping blank lines.
func Parse(r io.Reader) ([]Event, error) {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), 4*1024*1024)

	var events []Event
	lineNo := 0
	for scanner.Scan() {
		lineNo++
		event, ok, err := parseLine(lineNo, scanner.Text())
		if err != nil {
			return nil, err
		}
		if ok {
			events = append(events, event)
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, err
	}
	return events, nil
}

var helloPayload = []byte{byte(wire.Hello), byte(wire.Hello), byte(wire.Hello), byte(wire.Hello), byte(wire.Hello), byte(wire.Hello)}

// Run parses the transcript and classifies each event's payload. In
// strict mode, a transcript missing a HELLO, SET_ORIENTATION or
// DISPLAY_BITMAP packet is flagged in Report.Errors.
func Run(r io.Reader, strict bool) (Report, error) {
	events, err := Parse(r)
	if err != nil {
		return Report{}, err
	}

	report := Report{TotalEvents: len(events), CommandCounts: map[string]int{}}

	for _, event := range events {
		switch event.Direction {
		case "host_to_device":
			report.HostToDeviceEvents++
		case "device_to_host":
			report.DeviceToHostEvents++
		}

		payload := event.Payload
		report.RawBytesTotal += len(payload)
		if len(payload) == 0 {
			continue
		}

		if bytesEqual(payload, helloPayload) {
			report.HelloCount++
			report.CommandCounts["HELLO"]++
			continue
		}

		if len(payload) >= wire.HeaderLen {
			switch wire.Command(payload[5]) {
			case wire.SetOrientation:
				report.OrientationCount++
				report.CommandCounts["SET_ORIENTATION"]++
				continue
			case wire.DisplayBitmap:
				report.WindowCount++
				report.CommandCounts["DISPLAY_BITMAP"]++
				continue
			}
		}

		report.PayloadPackets++
	}

	if strict {
		if report.HelloCount < 1 {
			report.Errors = append(report.Errors, "missing_hello")
		}
		if report.OrientationCount < 1 {
			report.Errors = append(report.Errors, "missing_orientation")
		}
		if report.WindowCount < 1 {
			report.Errors = append(report.Errors, "missing_window")
		}
	}

	return report, nil
}

func bytesEqual(a, b []byte) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}
