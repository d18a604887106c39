package replay

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestDecodeHexStripsNonHexAndOddTrailing(t *testing.T) {
	require.Equal(t, []byte{0xAB, 0xCD}, decodeHex("AB:CD"))
	require.Equal(t, []byte{0xAB}, decodeHex("AB C")) // odd trailing nibble dropped
	require.Nil(t, decodeHex(""))
	require.Nil(t, decodeHex("zz"))
}

func TestRunClassifiesHelloOrientationWindow(t *testing.T) {
	transcript := strings.Join([]string{
		`{"dir":"host_to_device","payload_hex":"454545454545"}`,
		`{"dir":"device_to_host","payload_hex":"010101010101"}`,
		`{"dir":"host_to_device","payload_hex":"000000000079646401f401f4"}`,
		`{"dir":"host_to_device","payload_hex":"0000031f00c5"}`,
		`{"dir":"host_to_device","payload_hex":"aabbccddeeff"}`,
		``,
	}, "\n")

	report, err := Run(strings.NewReader(transcript), true)
	require.NoError(t, err)
	require.Equal(t, 5, report.TotalEvents)
	require.Equal(t, 1, report.HelloCount)
	require.Equal(t, 1, report.OrientationCount)
	require.Equal(t, 1, report.WindowCount)
	require.Equal(t, 2, report.PayloadPackets) // device echo + aabbccddeeff
	require.Empty(t, report.Errors)
	require.Equal(t, 1, report.CommandCounts["HELLO"])
}

func TestRunStrictModeFlagsMissingPackets(t *testing.T) {
	transcript := `{"dir":"host_to_device","payload_hex":"aabbccddeeff"}`
	report, err := Run(strings.NewReader(transcript), true)
	require.NoError(t, err)
	require.Contains(t, report.Errors, "missing_hello")
	require.Contains(t, report.Errors, "missing_orientation")
	require.Contains(t, report.Errors, "missing_window")
}

func TestRunNonStrictModeSkipsChecks(t *testing.T) {
	transcript := `{"dir":"host_to_device","payload_hex":"aabbccddeeff"}`
	report, err := Run(strings.NewReader(transcript), false)
	require.NoError(t, err)
	require.Empty(t, report.Errors)
}

func TestRunAcceptsAlternateFieldNames(t *testing.T) {
	transcript := `{"direction":"host_to_device","hex":"454545454545"}`
	report, err := Run(strings.NewReader(transcript), false)
	require.NoError(t, err)
	require.Equal(t, 1, report.HelloCount)
	require.Equal(t, 1, report.HostToDeviceEvents)
}

func TestRunCountsRawBytes(t *testing.T) {
	transcript := `{"dir":"device_to_host","payload_hex":"aabbcc"}`
	report, err := Run(strings.NewReader(transcript), false)
	require.NoError(t, err)
	require.Equal(t, 3, report.RawBytesTotal)
	require.Equal(t, 1, report.DeviceToHostEvents)
}
