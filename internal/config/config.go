// Package config loads the persisted application settings consumed by
// the streaming daemon: device override, poll interval/mode, and
// performance targets. The daemon only ever reads this file; the
// desktop/companion app owns writing it.
package config

import (
	"os"

	jsoniter "github.com/json-iterator/go"

	"github.com/devodan69/smartscreen/internal/budget"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

// CurrentVersion is the config schema version this loader understands.
const CurrentVersion = 2

// Config is the subset of the desktop app's persisted settings the
// streaming core consumes.
type Config struct {
	Version int `json:"config_version"`
	Device  struct {
		PortOverride string `json:"port_override"`
	} `json:"device"`
	Stream struct {
		PollMs int    `json:"poll_ms"`
		Mode   string `json:"mode"`
	} `json:"stream"`
	Performance budget.Targets `json:"performance"`
}

// Default returns the built-in defaults, used when no config file exists
// or it fails to parse.
func Default() Config {
	c := Config{Version: CurrentVersion}
	c.Stream.PollMs = 500
	c.Stream.Mode = "adaptive"
	c.Performance = budget.DefaultTargets()
	return c
}

// Load reads and decodes path, falling back to Default() if the file is
// absent or malformed — matching the reference loader's "never fail
// startup over a bad config file" behavior.
func Load(path string) (Config, error) {
	cfg := Default()

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return cfg, nil
		}
		return cfg, nil
	}

	var parsed Config
	if err := json.Unmarshal(data, &parsed); err != nil {
		return cfg, nil
	}
	if parsed.Version != 0 {
		cfg.Version = parsed.Version
	}
	if parsed.Device.PortOverride != "" {
		cfg.Device.PortOverride = parsed.Device.PortOverride
	}
	if parsed.Stream.PollMs != 0 {
		cfg.Stream.PollMs = parsed.Stream.PollMs
	}
	if parsed.Stream.Mode != "" {
		cfg.Stream.Mode = parsed.Stream.Mode
	}
	if parsed.Performance != (budget.Targets{}) {
		cfg.Performance = parsed.Performance
	}

	normalize(&cfg)
	return cfg, nil
}

func normalize(cfg *Config) {
	if cfg.Stream.PollMs < 200 {
		cfg.Stream.PollMs = 200
	}
	if cfg.Stream.PollMs > 2000 {
		cfg.Stream.PollMs = 2000
	}
	if cfg.Stream.Mode != "adaptive" && cfg.Stream.Mode != "full" {
		cfg.Stream.Mode = "adaptive"
	}
	if cfg.Performance.CPUPercentMax < 1 {
		cfg.Performance.CPUPercentMax = 1
	}
	if cfg.Performance.RSSMBMax < 64 {
		cfg.Performance.RSSMBMax = 64
	}
	if cfg.Performance.FPSMin < 1 {
		cfg.Performance.FPSMin = 1
	}
	if cfg.Performance.FPSMax < cfg.Performance.FPSMin {
		cfg.Performance.FPSMax = cfg.Performance.FPSMin
	}
}
