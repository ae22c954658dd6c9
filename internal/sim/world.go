package sim

import (
	"math/rand"
	"time"
)

// Config describes the simulation surface and physics.
type Config struct {
	Width        float64
	Height       float64
	RegionWidth  float64
	RegionHeight float64
	Gravity      float64
	Epsilon      float64
	ParticleCap  int
	SpawnBatch   int
	Seed         int64 // 0 means seed from the clock
}

// DefaultConfig returns the standard 800×600 scene with a 200×200 region
// around the sun.
func DefaultConfig() Config {
	return Config{
		Width:        800,
		Height:       600,
		RegionWidth:  200,
		RegionHeight: 200,
		Gravity:      DefaultGravity,
		Epsilon:      DefaultEpsilon,
		ParticleCap:  DefaultParticleCap,
		SpawnBatch:   DefaultSpawnBatch,
	}
}

// Frame is the result of one simulation tick. Its slices are owned by the
// frame and are not touched by later ticks.
type Frame struct {
	Tick       uint64
	Center     Vec2
	Region     Region
	Placements []Placement
	Particles  []Particle
	Count      int // Particles inside Region this tick
}

// World is the whole scene: orbiting bodies, meteors and the watched region.
type World struct {
	cfg    Config
	center Vec2
	region Region
	bodies []Body
	field  *Field
	tick   uint64
}

// NewWorld builds a world with the default planetary system.
func NewWorld(cfg Config) *World {
	seed := cfg.Seed
	if seed == 0 {
		seed = time.Now().UnixNano()
	}
	rng := rand.New(rand.NewSource(seed))

	center := Vec2{X: cfg.Width / 2, Y: cfg.Height / 2}
	field := NewField(cfg.Width, cfg.Height, center, rng)
	if cfg.Gravity != 0 {
		field.Gravity = cfg.Gravity
	}
	if cfg.Epsilon > 0 {
		field.Epsilon = cfg.Epsilon
	}
	if cfg.ParticleCap > 0 {
		field.Cap = cfg.ParticleCap
	}
	if cfg.SpawnBatch > 0 {
		field.SpawnBatch = cfg.SpawnBatch
	}

	return &World{
		cfg:    cfg,
		center: center,
		region: CenteredRegion(center, cfg.RegionWidth, cfg.RegionHeight),
		bodies: DefaultSystem(rng),
		field:  field,
	}
}

// Step advances the scene by one render tick.
func (w *World) Step() Frame {
	w.tick++

	placements := StepBodies(w.bodies, w.center)

	w.field.Spawn()
	particles := w.field.Step()

	return Frame{
		Tick:       w.tick,
		Center:     w.center,
		Region:     w.region,
		Placements: placements,
		Particles:  particles,
		Count:      CountIn(w.region, particles),
	}
}

// Region returns the watched region.
func (w *World) Region() Region {
	return w.region
}

// Center returns the attraction center (the sun).
func (w *World) Center() Vec2 {
	return w.center
}

// Config returns the configuration the world was built with.
func (w *World) Config() Config {
	return w.cfg
}

// Field exposes the meteor field, mainly for seeding in tests.
func (w *World) Field() *Field {
	return w.field
}
