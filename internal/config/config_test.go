package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestLoadMissingFileReturnsDefault(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "missing.json"))
	require.NoError(t, err)
	require.Equal(t, Default(), cfg)
}

func TestLoadMalformedFileReturnsDefault(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.json")
	require.NoError(t, os.WriteFile(path, []byte("{not json"), 0o644))

	cfg, err := Load(path)
	require.NoError(t, err)
	require.Equal(t, Default(), cfg)
}

func TestLoadValidFileOverridesDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.json")
	content := `{
		"config_version": 2,
		"device": {"port_override": "/dev/ttyUSB3"},
		"stream": {"poll_ms": 750, "mode": "full"},
		"performance": {"cpu_percent_max": 12.0, "rss_mb_max": 400.0, "fps_min": 6.0, "fps_max": 12.0}
	}`
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))

	cfg, err := Load(path)
	require.NoError(t, err)
	require.Equal(t, "/dev/ttyUSB3", cfg.Device.PortOverride)
	require.Equal(t, 750, cfg.Stream.PollMs)
	require.Equal(t, "full", cfg.Stream.Mode)
	require.Equal(t, 12.0, cfg.Performance.CPUPercentMax)
}

func TestLoadClampsPollMs(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.json")
	require.NoError(t, os.WriteFile(path, []byte(`{"stream":{"poll_ms":50,"mode":"adaptive"}}`), 0o644))

	cfg, err := Load(path)
	require.NoError(t, err)
	require.Equal(t, 200, cfg.Stream.PollMs)
}

func TestLoadRejectsUnknownMode(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.json")
	require.NoError(t, os.WriteFile(path, []byte(`{"stream":{"mode":"bogus"}}`), 0o644))

	cfg, err := Load(path)
	require.NoError(t, err)
	require.Equal(t, "adaptive", cfg.Stream.Mode)
}
