// Package telemetry exposes the stream controller's status as Prometheus
// metrics.
package telemetry

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/devodan69/smartscreen/internal/stream"
)

// Registry wraps a dedicated prometheus.Registry (rather than the global
// default one) so a daemon embedding this package never collides with an
// unrelated process-wide collector.
type Registry struct {
	reg *prometheus.Registry

	connected        prometheus.Gauge
	fps              prometheus.Gauge
	throughputBps    prometheus.Gauge
	backoffSeconds   prometheus.Gauge
	recoveryAttempts prometheus.Gauge
	state            *prometheus.GaugeVec
}

// NewRegistry constructs and registers the metric set.
func NewRegistry() *Registry {
	r := &Registry{reg: prometheus.NewRegistry()}

	r.connected = prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "smartscreen_stream_connected",
		Help: "1 if the display transport is currently connected, 0 otherwise.",
	})
	r.fps = prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "smartscreen_stream_fps",
		Help: "Most recently observed frames-per-second.",
	})
	r.throughputBps = prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "smartscreen_stream_throughput_bytes_per_second",
		Help: "EWMA-smoothed write throughput to the display transport.",
	})
	r.backoffSeconds = prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "smartscreen_stream_backoff_seconds",
		Help: "Wait duration of the current reconnect backoff, 0 when not recovering.",
	})
	r.recoveryAttempts = prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "smartscreen_stream_recovery_attempts",
		Help: "Reconnect attempts made during the current recovery episode.",
	})
	r.state = prometheus.NewGaugeVec(prometheus.GaugeOpts{
		Name: "smartscreen_stream_state",
		Help: "1 for the protocol engine's current state, 0 for all others.",
	}, []string{"state"})

	r.reg.MustRegister(r.connected, r.fps, r.throughputBps, r.backoffSeconds, r.recoveryAttempts, r.state)
	return r
}

var allStates = []string{
	"disconnected", "connecting", "port_open", "hello", "orientation_set",
	"ready", "streaming", "backoff_wait", "recovering", "degraded",
}

// Observe updates every gauge from a stream.Status snapshot.
func (r *Registry) Observe(status stream.Status) {
	if status.Connected {
		r.connected.Set(1)
	} else {
		r.connected.Set(0)
	}
	r.fps.Set(status.FPS)
	r.throughputBps.Set(status.ThroughputBps)
	r.backoffSeconds.Set(status.BackoffSeconds)
	r.recoveryAttempts.Set(float64(status.RecoveryAttempts))

	current := string(status.State)
	for _, s := range allStates {
		if s == current {
			r.state.WithLabelValues(s).Set(1)
		} else {
			r.state.WithLabelValues(s).Set(0)
		}
	}
}

// Handler returns the HTTP handler to mount at /metrics.
func (r *Registry) Handler() http.Handler {
	return promhttp.HandlerFor(r.reg, promhttp.HandlerOpts{})
}
