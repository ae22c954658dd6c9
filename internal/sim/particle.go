package sim

import (
	"math"
	"math/rand"
)

// Fall parameters.
const (
	// DefaultGravity is the attraction constant k in k/d².
	DefaultGravity = 100.0

	// DefaultEpsilon is added to every distance so k/d² stays finite at the center.
	DefaultEpsilon = 0.1

	// DefaultParticleCap is the population below which new meteors spawn.
	DefaultParticleCap = 30

	// DefaultSpawnBatch is how many meteors spawn per tick while under the cap.
	DefaultSpawnBatch = 2

	minFallSpeed = 0.5
	minMass      = 0.5
	spreadRange  = 1.0 // fall speed and mass are drawn from [min, min+spread)
)

// Particle is a falling meteor.
type Particle struct {
	Pos       Vec2
	FallSpeed float64
	Mass      float64
}

// NewParticle spawns a meteor at a random x on the top edge.
func NewParticle(rng *rand.Rand, width float64) Particle {
	return Particle{
		Pos:       Vec2{X: rng.Float64() * width, Y: 0},
		FallSpeed: rng.Float64()*spreadRange + minFallSpeed,
		Mass:      rng.Float64()*spreadRange + minMass,
	}
}

// Fall integrates one tick: an inverse-square pull toward center scaled by
// mass, plus the particle's constant downward drift.
func Fall(p *Particle, center Vec2, k, eps float64) {
	dx := center.X - p.Pos.X
	dy := center.Y - p.Pos.Y
	distance := math.Sqrt(dx*dx+dy*dy) + eps
	gravity := k / (distance * distance)

	p.Pos.X += (gravity * dx / distance) * p.Mass
	p.Pos.Y += p.FallSpeed + (gravity*dy/distance)*p.Mass
}

// OffScreen reports whether p has left the surface through the sides or the
// bottom. Particles above the top edge are kept.
func OffScreen(p Particle, width, height float64) bool {
	return p.Pos.X < 0 || p.Pos.X > width || p.Pos.Y > height
}

// Field owns the live meteor population.
type Field struct {
	Width      float64
	Height     float64
	Center     Vec2
	Gravity    float64
	Epsilon    float64
	Cap        int
	SpawnBatch int

	rng       *rand.Rand
	particles []Particle
}

// NewField creates an empty field attracting toward center.
func NewField(width, height float64, center Vec2, rng *rand.Rand) *Field {
	return &Field{
		Width:      width,
		Height:     height,
		Center:     center,
		Gravity:    DefaultGravity,
		Epsilon:    DefaultEpsilon,
		Cap:        DefaultParticleCap,
		SpawnBatch: DefaultSpawnBatch,
		rng:        rng,
	}
}

// Spawn tops up the population by one batch if it is below the cap.
func (f *Field) Spawn() {
	if len(f.particles) >= f.Cap {
		return
	}
	for i := 0; i < f.SpawnBatch; i++ {
		f.particles = append(f.particles, NewParticle(f.rng, f.Width))
	}
}

// Step integrates every particle and drops the ones that left the surface.
// The survivors are written to a fresh slice so that a previously returned
// population is never modified.
func (f *Field) Step() []Particle {
	live := make([]Particle, 0, len(f.particles))
	for _, p := range f.particles {
		Fall(&p, f.Center, f.Gravity, f.Epsilon)
		if OffScreen(p, f.Width, f.Height) {
			continue
		}
		live = append(live, p)
	}
	f.particles = live
	return live
}

// Particles returns the current population. Callers must not modify it.
func (f *Field) Particles() []Particle {
	return f.particles
}

// Add inserts particles directly. Used to seed scenarios.
func (f *Field) Add(ps ...Particle) {
	f.particles = append(f.particles, ps...)
}

// Len returns the live population size.
func (f *Field) Len() int {
	return len(f.particles)
}
