package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/litescript/ls-meteors/internal/logging"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, Default(), cfg)
	assert.NoError(t, cfg.Validate())
	assert.Equal(t, time.Second/30, cfg.FrameInterval())
	assert.Equal(t, logging.LevelInfo, cfg.Level())
}

func TestLoadFromEnv(t *testing.T) {
	t.Setenv("LSMETEORS_ANALYTICS_URL", "wss://analytics.example:8443/ws")
	t.Setenv("LSMETEORS_FPS", "60")
	t.Setenv("LSMETEORS_CADENCE", "15")
	t.Setenv("LSMETEORS_POLL_INTERVAL", "500ms")
	t.Setenv("LSMETEORS_SEED", "42")
	t.Setenv("LSMETEORS_LOG_LEVEL", "debug")
	t.Setenv("LSMETEORS_METRICS_ADDR", ":9102")
	t.Setenv("LSMETEORS_HEADLESS", "true")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "wss://analytics.example:8443/ws", cfg.AnalyticsURL)
	assert.Equal(t, 60, cfg.FPS)
	assert.Equal(t, 15, cfg.Cadence)
	assert.Equal(t, 500*time.Millisecond, cfg.PollInterval)
	assert.Equal(t, int64(42), cfg.Seed)
	assert.Equal(t, logging.LevelDebug, cfg.Level())
	assert.Equal(t, ":9102", cfg.MetricsAddr)
	assert.True(t, cfg.Headless)
	assert.NoError(t, cfg.Validate())
}

func TestLoadRejectsMalformedValues(t *testing.T) {
	t.Setenv("LSMETEORS_FPS", "fast")

	_, err := Load()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "parse env")
}

func TestLoadClampsFPS(t *testing.T) {
	tests := []struct {
		in   string
		want int
	}{
		{"0", MinFPS},
		{"-5", MinFPS},
		{"1", 1},
		{"120", 120},
		{"500", MaxFPS},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			t.Setenv("LSMETEORS_FPS", tt.in)
			cfg, err := Load()
			require.NoError(t, err)
			assert.Equal(t, tt.want, cfg.FPS)
		})
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
		errMsg string
	}{
		{"http scheme", func(c *Config) { c.AnalyticsURL = "http://localhost:5000" }, "scheme must be ws or wss"},
		{"missing host", func(c *Config) { c.AnalyticsURL = "ws:///ws" }, "missing host"},
		{"zero cadence", func(c *Config) { c.Cadence = 0 }, "cadence must be positive"},
		{"negative poll", func(c *Config) { c.PollInterval = -time.Second }, "poll interval must be positive"},
		{"zero surface", func(c *Config) { c.Width = 0 }, "surface must be positive"},
		{"negative region", func(c *Config) { c.RegionHeight = -1 }, "region must not be negative"},
		{"negative cap", func(c *Config) { c.ParticleCap = -1 }, "particle cap must not be negative"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.mutate(&cfg)
			err := cfg.Validate()
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.errMsg)
		})
	}
}

func TestValidateJoinsErrors(t *testing.T) {
	cfg := Default()
	cfg.Cadence = 0
	cfg.PollInterval = 0

	err := cfg.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "cadence")
	assert.Contains(t, err.Error(), "poll interval")
}

func TestWorldConfig(t *testing.T) {
	cfg := Default()
	cfg.Seed = 7
	cfg.RegionWidth = 100

	w := cfg.World()
	assert.Equal(t, 800.0, w.Width)
	assert.Equal(t, 600.0, w.Height)
	assert.Equal(t, 100.0, w.RegionWidth)
	assert.Equal(t, int64(7), w.Seed)
	assert.Equal(t, 30, w.ParticleCap)
}
