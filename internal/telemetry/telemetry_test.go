package telemetry

import (
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/devodan69/smartscreen/internal/protocol"
	"github.com/devodan69/smartscreen/internal/stream"
)

func TestObserveAndScrape(t *testing.T) {
	r := NewRegistry()
	r.Observe(stream.Status{
		Connected:        true,
		FPS:              7.5,
		ThroughputBps:    123456,
		BackoffSeconds:   0,
		RecoveryAttempts: 0,
		State:            protocol.Streaming,
	})

	req := httptest.NewRequest("GET", "/metrics", nil)
	rec := httptest.NewRecorder()
	r.Handler().ServeHTTP(rec, req)

	require.Equal(t, 200, rec.Code)
	body := rec.Body.String()
	require.Contains(t, body, "smartscreen_stream_connected 1")
	require.Contains(t, body, `smartscreen_stream_state{state="streaming"} 1`)
}
