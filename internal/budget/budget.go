// Package budget implements the performance budgeter (C5): it samples this
// process's CPU and memory usage and turns them, together with the
// observed frame rate, into a recommended poll interval and streaming
// mode.
package budget

import (
	"os"
	"time"

	"github.com/prometheus/procfs"
)

// Targets are the resource ceilings and frame-rate band the controller
// tunes against.
type Targets struct {
	CPUPercentMax float64 `json:"cpu_percent_max"`
	RSSMBMax      float64 `json:"rss_mb_max"`
	FPSMin        float64 `json:"fps_min"`
	FPSMax        float64 `json:"fps_max"`
}

// DefaultTargets matches the reference tuning: a light background budget
// (8% CPU, 300MB RSS) and a 5-10fps streaming band.
func DefaultTargets() Targets {
	return Targets{CPUPercentMax: 8.0, RSSMBMax: 300.0, FPSMin: 5.0, FPSMax: 10.0}
}

// Status is one sample's readings plus the controller's recommendation.
type Status struct {
	CPUPercent        float64
	RSSMB             float64
	FPS               float64
	Overloaded        bool
	Warning           string
	RecommendedPollMs int
	RecommendedMode   string
}

// Controller samples process resource usage via procfs and derives
// tuning recommendations. The zero value is not usable; construct with
// New.
type Controller struct {
	targets   Targets
	proc      procfs.Proc
	available bool
	lastCPU   float64
	lastAt    time.Time
}

// New builds a controller for the current process, priming the CPU
// counter so the first Sample call reports a meaningful delta rather
// than the process's entire lifetime average. If procfs is unavailable
// (e.g. non-Linux, no /proc), Sample degrades to reporting zero
// usage rather than failing, matching the reference implementation's
// psutil-unavailable fallback.
func New(targets Targets) *Controller {
	c := &Controller{targets: targets}
	proc, err := procfs.NewProc(os.Getpid())
	if err != nil {
		return c
	}
	c.proc = proc
	c.available = true
	if stat, err := proc.Stat(); err == nil {
		c.lastCPU = stat.CPUTime()
		c.lastAt = time.Now()
	} else {
		c.available = false
	}
	return c
}

// Sample reads current CPU%/RSS, combines them with the caller-observed
// fps and poll interval, and returns a recommendation. Priority order
// matches the reference controller: overload beats fps-low beats
// fps-high.
func (c *Controller) Sample(fps float64, pollMs int, currentMode string) Status {
	cpuPercent, rssMB := c.readUsage()
	overloaded := cpuPercent > c.targets.CPUPercentMax || rssMB > c.targets.RSSMBMax

	warning := ""
	mode := currentMode
	recPoll := pollMs

	switch {
	case overloaded:
		warning = "resource_overload"
		mode = "adaptive"
		recPoll = clampInt(int(float64(pollMs)*1.25)+25, 200, 2000)
	case fps < c.targets.FPSMin:
		warning = "below_fps_target"
		recPoll = clampInt(pollMs-50, 200, 2000)
	case fps > c.targets.FPSMax:
		warning = "above_fps_target"
		recPoll = clampInt(pollMs+50, 200, 2000)
	}

	return Status{
		CPUPercent:        cpuPercent,
		RSSMB:             rssMB,
		FPS:               fps,
		Overloaded:        overloaded,
		Warning:           warning,
		RecommendedPollMs: recPoll,
		RecommendedMode:   mode,
	}
}

func (c *Controller) readUsage() (cpuPercent, rssMB float64) {
	if !c.available {
		return 0, 0
	}
	stat, err := c.proc.Stat()
	if err != nil {
		return 0, 0
	}

	now := time.Now()
	cpuTime := stat.CPUTime()
	elapsed := now.Sub(c.lastAt).Seconds()
	if elapsed > 0 {
		cpuPercent = ((cpuTime - c.lastCPU) / elapsed) * 100
	}
	c.lastCPU = cpuTime
	c.lastAt = now

	rssMB = float64(stat.ResidentMemory()) / (1024 * 1024)
	return cpuPercent, rssMB
}

func clampInt(v, min, max int) int {
	if v < min {
		return min
	}
	if v > max {
		return max
	}
	return v
}
