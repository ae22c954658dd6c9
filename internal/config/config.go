// Package config loads runtime configuration from LSMETEORS_* environment
// variables. Command-line flags override what is loaded here.
package config

import (
	"errors"
	"fmt"
	"net/url"
	"time"

	"github.com/caarlos0/env/v11"

	"github.com/litescript/ls-meteors/internal/logging"
	"github.com/litescript/ls-meteors/internal/sim"
	"github.com/litescript/ls-meteors/internal/telemetry"
)

// FPS bounds.
const (
	MinFPS     = 1
	MaxFPS     = 120
	DefaultFPS = 30
)

// Config is the application configuration.
type Config struct {
	AnalyticsURL string        `env:"LSMETEORS_ANALYTICS_URL" envDefault:"ws://localhost:5000/ws"`
	FPS          int           `env:"LSMETEORS_FPS" envDefault:"30"`
	Cadence      int           `env:"LSMETEORS_CADENCE" envDefault:"30"`
	PollInterval time.Duration `env:"LSMETEORS_POLL_INTERVAL" envDefault:"2s"`

	Width        float64 `env:"LSMETEORS_WIDTH" envDefault:"800"`
	Height       float64 `env:"LSMETEORS_HEIGHT" envDefault:"600"`
	RegionWidth  float64 `env:"LSMETEORS_REGION_WIDTH" envDefault:"200"`
	RegionHeight float64 `env:"LSMETEORS_REGION_HEIGHT" envDefault:"200"`
	ParticleCap  int     `env:"LSMETEORS_PARTICLE_CAP" envDefault:"30"`
	Seed         int64   `env:"LSMETEORS_SEED" envDefault:"0"`

	LogLevel    string `env:"LSMETEORS_LOG_LEVEL" envDefault:"info"`
	LogFile     string `env:"LSMETEORS_LOG_FILE"`
	MetricsAddr string `env:"LSMETEORS_METRICS_ADDR"`
	Headless    bool   `env:"LSMETEORS_HEADLESS" envDefault:"false"`
}

// Load parses the environment into a Config and normalizes it.
func Load() (Config, error) {
	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return Config{}, fmt.Errorf("parse env: %w", err)
	}
	cfg.Normalize()
	return cfg, nil
}

// Normalize clamps FPS into [MinFPS, MaxFPS].
func (c *Config) Normalize() {
	if c.FPS < MinFPS {
		c.FPS = MinFPS
	}
	if c.FPS > MaxFPS {
		c.FPS = MaxFPS
	}
}

// Validate reports configuration that cannot run.
func (c Config) Validate() error {
	var errs []error

	u, err := url.Parse(c.AnalyticsURL)
	switch {
	case err != nil:
		errs = append(errs, fmt.Errorf("analytics url: %w", err))
	case u.Scheme != "ws" && u.Scheme != "wss":
		errs = append(errs, fmt.Errorf("analytics url: scheme must be ws or wss, got %q", u.Scheme))
	case u.Host == "":
		errs = append(errs, errors.New("analytics url: missing host"))
	}

	if c.Cadence <= 0 {
		errs = append(errs, fmt.Errorf("cadence must be positive, got %d", c.Cadence))
	}
	if c.PollInterval <= 0 {
		errs = append(errs, fmt.Errorf("poll interval must be positive, got %s", c.PollInterval))
	}
	if c.Width <= 0 || c.Height <= 0 {
		errs = append(errs, fmt.Errorf("surface must be positive, got %gx%g", c.Width, c.Height))
	}
	if c.RegionWidth < 0 || c.RegionHeight < 0 {
		errs = append(errs, fmt.Errorf("region must not be negative, got %gx%g", c.RegionWidth, c.RegionHeight))
	}
	if c.ParticleCap < 0 {
		errs = append(errs, fmt.Errorf("particle cap must not be negative, got %d", c.ParticleCap))
	}

	return errors.Join(errs...)
}

// FrameInterval is the render tick period for the configured FPS.
func (c Config) FrameInterval() time.Duration {
	fps := c.FPS
	if fps < MinFPS {
		fps = MinFPS
	}
	return time.Second / time.Duration(fps)
}

// Level returns the parsed log level.
func (c Config) Level() logging.Level {
	return logging.ParseLevel(c.LogLevel)
}

// World returns the simulation configuration.
func (c Config) World() sim.Config {
	w := sim.DefaultConfig()
	w.Width = c.Width
	w.Height = c.Height
	w.RegionWidth = c.RegionWidth
	w.RegionHeight = c.RegionHeight
	w.ParticleCap = c.ParticleCap
	w.Seed = c.Seed
	return w
}

// Default returns the configuration used when the environment is empty.
func Default() Config {
	return Config{
		AnalyticsURL: "ws://localhost:5000/ws",
		FPS:          DefaultFPS,
		Cadence:      telemetry.DefaultCadence,
		PollInterval: telemetry.DefaultPollInterval,
		Width:        800,
		Height:       600,
		RegionWidth:  200,
		RegionHeight: 200,
		ParticleCap:  sim.DefaultParticleCap,
		LogLevel:     "info",
	}
}
