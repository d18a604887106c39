// Package stream implements the stream controller (C6): the top-level
// supervisor that owns the transport and protocol engine, adapts between
// full-frame and dirty-rect sends, and recovers from transport failures
// with exponential backoff.
package stream

import (
	"fmt"
	"math/rand"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/devodan69/smartscreen/internal/budget"
	"github.com/devodan69/smartscreen/internal/differ"
	"github.com/devodan69/smartscreen/internal/protocol"
	"github.com/devodan69/smartscreen/internal/transport"
	"github.com/devodan69/smartscreen/internal/xerrors"
)

const (
	maxRecoverAttempts = 5
	backoffBase        = 250 * time.Millisecond
	backoffCap         = 4 * time.Second
	maxJitter          = 150 * time.Millisecond
	maxEventLog        = 1000
)

// Status is the controller's current, externally observable state.
type Status struct {
	Connected        bool
	Port             string
	State            protocol.State
	FPS              float64
	ThroughputBps    float64
	LastError        string
	BackoffSeconds   float64
	RecoveryAttempts int
}

// Event is one entry in the controller's ring buffer of recent events,
// read back through RecentEvents.
type Event struct {
	TimeUTC time.Time
	Name    string
	State   protocol.State
	Fields  map[string]any
}

// PortFactory constructs a fresh transport.Port for (re)connection. In
// production this wraps transport.New; tests and -mock mode supply
// a factory that hands back a transport.LoopbackPort.
type PortFactory func() transport.Port

// Controller is the supervisor described by the stream_controller: it
// owns connection lifecycle, adaptive mode selection and reconnect.
type Controller struct {
	Width, Height int
	Mode          string
	PollMs        int
	PortOverride  string

	mu       sync.Mutex
	port     transport.Port
	newPort  PortFactory
	engine   *protocol.Engine
	status   Status
	prevFrame []byte
	ewmaBps  float64
	events   []Event

	forceFullFramesRemaining int

	log zerolog.Logger
}

// New constructs a controller targeting width x height. newPort is called
// each time the controller needs a transport, so a fresh port object
// backs every (re)connect attempt.
func New(width, height int, newPort PortFactory, log zerolog.Logger) *Controller {
	port := newPort()
	return &Controller{
		Width:   width,
		Height:  height,
		Mode:    "adaptive",
		PollMs:  500,
		newPort: newPort,
		port:    port,
		engine:  protocol.New(port, width, height),
		status:  Status{State: protocol.Disconnected},
		log:     log,
	}
}

// Status returns a snapshot of the controller's current state.
func (c *Controller) Status() Status {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.status
}

// RecentEvents returns up to limit of the most recent logged events.
func (c *Controller) RecentEvents(limit int) []Event {
	c.mu.Lock()
	defer c.mu.Unlock()
	if limit <= 0 || limit > len(c.events) {
		limit = len(c.events)
	}
	out := make([]Event, limit)
	copy(out, c.events[len(c.events)-limit:])
	return out
}

func (c *Controller) logEvent(name string, fields map[string]any) {
	c.events = append(c.events, Event{TimeUTC: time.Now().UTC(), Name: name, State: c.status.State, Fields: fields})
	if len(c.events) > maxEventLog {
		c.events = c.events[len(c.events)-maxEventLog:]
	}
	ev := c.log.Info().Str("event", name).Str("state", string(c.status.State))
	for k, v := range fields {
		ev = ev.Interface(k, v)
	}
	ev.Msg(name)
}

// Connect opens the transport (auto-discovering a device unless
// PortOverride is set) and runs the handshake.
func (c *Controller) Connect() (protocol.HelloResult, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.connectLocked()
}

func (c *Controller) connectLocked() (protocol.HelloResult, error) {
	c.status.State = protocol.Connecting
	c.logEvent("connect_start", nil)

	port := c.PortOverride
	if port == "" {
		devices, err := transport.Discover()
		if err != nil {
			c.status.State = protocol.Disconnected
			return protocol.HelloResult{}, xerrors.Wrap(xerrors.NoCompatibleDevice, "enumerating serial ports", err)
		}
		selected := transport.AutoSelect(devices)
		if selected == nil {
			c.status.State = protocol.Disconnected
			return protocol.HelloResult{}, xerrors.New(xerrors.NoCompatibleDevice, "no compatible display found")
		}
		port = selected.Device
	}

	c.port = c.newPort()
	c.engine = protocol.New(c.port, c.Width, c.Height)
	if err := c.port.Open(port, transport.DefaultBaud, true, transport.DefaultTimeoutMs); err != nil {
		c.status.State = protocol.Disconnected
		return protocol.HelloResult{}, xerrors.Wrap(xerrors.TransportError, "opening port", err)
	}
	c.status.State = protocol.PortOpen
	c.status.RecoveryAttempts = 0
	c.status.BackoffSeconds = 0

	hello, err := c.engine.Handshake(transport.DefaultTimeoutMs)
	if err != nil {
		c.status.LastError = err.Error()
		return hello, err
	}
	c.status.Connected = true
	c.status.Port = port
	c.status.State = protocol.Ready
	c.status.LastError = ""
	c.logEvent("connect_ok", map[string]any{"port": port, "sub_revision": hello.SubRevision})
	return hello, nil
}

// Disconnect closes the transport and clears connection state.
func (c *Controller) Disconnect() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.disconnectLocked()
}

func (c *Controller) disconnectLocked() error {
	err := c.port.Close()
	c.status.Connected = false
	c.status.State = protocol.Disconnected
	c.prevFrame = nil
	c.status.BackoffSeconds = 0
	c.status.RecoveryAttempts = 0
	c.logEvent("disconnect", nil)
	return err
}

// SetBrightness forwards to the protocol engine if currently connected;
// it is a no-op otherwise.
func (c *Controller) SetBrightness(percent int) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.status.Connected {
		return nil
	}
	if _, err := c.engine.SetBrightness(percent); err != nil {
		return err
	}
	c.logEvent("brightness", map[string]any{"percent": percent})
	return nil
}

// ApplyBudget adopts a budget.Status's recommendation: poll interval,
// mode, and — when overloaded — a shrunk chunk size plus a forced run of
// full frames to recover visual consistency once load drops.
func (c *Controller) ApplyBudget(b budget.Status) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.PollMs = clamp(b.RecommendedPollMs, 200, 2000)
	c.Mode = b.RecommendedMode
	if b.Overloaded {
		c.status.State = protocol.Degraded
		if c.forceFullFramesRemaining < 2 {
			c.forceFullFramesRemaining = 2
		}
		c.engine.ChunkSize = max(c.Width*4, 256)
		c.logEvent("budget_overload", map[string]any{
			"cpu_percent":         b.CPUPercent,
			"rss_mb":              b.RSSMB,
			"recommended_poll_ms": c.PollMs,
		})
	} else {
		c.engine.ChunkSize = c.Width * 8
	}
}

// Send pushes one frame, auto-connecting first if necessary and running
// the backoff-recovery path on failure. It chooses between a full-frame
// and a dirty-rect send according to Mode and the previous frame.
func (c *Controller) Send(frame []byte) (protocol.SendStats, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if !c.status.Connected {
		if _, err := c.connectLocked(); err != nil {
			return protocol.SendStats{}, err
		}
	}

	start := time.Now()
	stats, err := c.sendOnceLocked(frame)
	if err != nil {
		c.status.LastError = err.Error()
		c.status.State = protocol.Recovering
		c.logEvent("send_error", map[string]any{"error": err.Error()})
		if recErr := c.recoverWithBackoffLocked(); recErr != nil {
			return protocol.SendStats{}, recErr
		}
		stats, err = c.engine.SendFrame(frame)
		if err != nil {
			return stats, err
		}
		stats.Retries++
	}

	elapsed := time.Since(start).Seconds()
	if elapsed <= 0 {
		elapsed = 1e-9
	}
	fps := 1.0 / elapsed
	bps := float64(stats.BytesSent) / elapsed
	if c.ewmaBps == 0 {
		c.ewmaBps = bps
	} else {
		c.ewmaBps = 0.75*c.ewmaBps + 0.25*bps
	}

	if c.forceFullFramesRemaining == 0 {
		c.status.State = protocol.Streaming
	} else {
		c.status.State = protocol.Degraded
	}
	c.status.FPS = fps
	c.status.ThroughputBps = c.ewmaBps
	c.status.BackoffSeconds = 0
	c.status.RecoveryAttempts = 0
	c.prevFrame = frame
	c.logEvent("send_ok", map[string]any{
		"mode":           stats.Mode,
		"bytes_sent":     stats.BytesSent,
		"packets_sent":   stats.PacketsSent,
		"fps":            fps,
		"throughput_bps": c.ewmaBps,
	})
	return stats, nil
}

func (c *Controller) sendOnceLocked(frame []byte) (protocol.SendStats, error) {
	if c.forceFullFramesRemaining > 0 {
		c.forceFullFramesRemaining--
		return c.engine.SendFrame(frame)
	}

	if c.Mode == "adaptive" && c.prevFrame != nil {
		rects, err := differ.Diff(c.prevFrame, frame, c.Width, c.Height, differ.DefaultOptions())
		if err != nil {
			return protocol.SendStats{}, err
		}
		if len(rects) > 0 && !(len(rects) == 1 && rects[0].IsFullFrame(c.Width, c.Height)) {
			return c.engine.SendDirtyRects(rects, frame)
		}
	}
	return c.engine.SendFrame(frame)
}

// recoverWithBackoffLocked retries disconnect+connect up to
// maxRecoverAttempts times with exponential backoff plus jitter, matching
// the reference controller's recovery loop.
func (c *Controller) recoverWithBackoffLocked() error {
	var lastErr error
	for attempt := 1; attempt <= maxRecoverAttempts; attempt++ {
		delay := backoffBase * time.Duration(1<<uint(attempt-1))
		if delay > backoffCap {
			delay = backoffCap
		}
		jitter := time.Duration(rand.Int63n(int64(maxJitter) + 1))
		waitFor := delay + jitter

		c.status.State = protocol.BackoffWait
		c.status.BackoffSeconds = waitFor.Seconds()
		c.status.RecoveryAttempts = attempt
		c.logEvent("recover_wait", map[string]any{"attempt": attempt, "wait_s": waitFor.Seconds()})
		time.Sleep(waitFor)

		c.status.State = protocol.Recovering
		_ = c.disconnectLocked()
		if _, err := c.connectLocked(); err != nil {
			lastErr = err
			c.status.LastError = err.Error()
			c.logEvent("recover_error", map[string]any{"attempt": attempt, "error": err.Error()})
			continue
		}
		c.status.State = protocol.Degraded
		c.forceFullFramesRemaining = 3
		c.logEvent("recover_ok", map[string]any{"attempt": attempt})
		return nil
	}

	c.status.Connected = false
	c.status.State = protocol.Recovering
	return xerrors.Wrap(xerrors.RecoverFailed, fmt.Sprintf("recover failed after %d attempts", maxRecoverAttempts), lastErr)
}

func clamp(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

func max(a, b int) int {
	if a > b {
		return a
	}
	return b
}
