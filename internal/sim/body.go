// Package sim provides the orbital scene and the falling-meteor simulation.
package sim

import (
	"math"
	"math/rand"
)

// Vec2 is a point or offset on the simulation surface.
// Y grows downward, matching screen coordinates.
type Vec2 struct {
	X float64
	Y float64
}

// Body is a planet or moon on a circular orbit.
// Satellites orbit the body's current position, not the scene center.
type Body struct {
	Name         string
	Color        string  // Hex color used by the renderer
	Radius       float64 // Drawn radius in surface units
	OrbitRadius  float64
	AngularSpeed float64 // Radians per tick
	Angle        float64 // Radians; not wrapped
	Satellites   []Body
}

// BodyKind distinguishes planets from their moons.
type BodyKind int

const (
	KindPlanet BodyKind = iota
	KindMoon
)

// Placement is a body's position for a single tick.
type Placement struct {
	Name        string
	Kind        BodyKind
	Color       string
	Radius      float64
	Pos         Vec2
	OrbitCenter Vec2
	OrbitRadius float64
}

// Advance moves a body along its orbit by one tick.
func Advance(b *Body) {
	b.Angle += b.AngularSpeed
}

// PositionOf returns the body's position around the given orbit center.
func PositionOf(b Body, center Vec2) Vec2 {
	return Vec2{
		X: center.X + b.OrbitRadius*math.Cos(b.Angle),
		Y: center.Y + b.OrbitRadius*math.Sin(b.Angle),
	}
}

// StepBodies advances every body and its satellites by one tick and returns
// their placements. Each parent is placed before its satellites so that a
// satellite always orbits the parent's position for the same tick.
func StepBodies(bodies []Body, center Vec2) []Placement {
	out := make([]Placement, 0, countBodies(bodies))
	for i := range bodies {
		parent := &bodies[i]
		Advance(parent)
		parentPos := PositionOf(*parent, center)
		out = append(out, Placement{
			Name:        parent.Name,
			Kind:        KindPlanet,
			Color:       parent.Color,
			Radius:      parent.Radius,
			Pos:         parentPos,
			OrbitCenter: center,
			OrbitRadius: parent.OrbitRadius,
		})

		for j := range parent.Satellites {
			moon := &parent.Satellites[j]
			Advance(moon)
			out = append(out, Placement{
				Name:        moon.Name,
				Kind:        KindMoon,
				Color:       moon.Color,
				Radius:      moon.Radius,
				Pos:         PositionOf(*moon, parentPos),
				OrbitCenter: parentPos,
				OrbitRadius: moon.OrbitRadius,
			})
		}
	}
	return out
}

func countBodies(bodies []Body) int {
	n := len(bodies)
	for _, b := range bodies {
		n += len(b.Satellites)
	}
	return n
}

// Scene palette.
const (
	ColorSun    = "#FFD700"
	ColorMeteor = "#FFFFFF"
	ColorRegion = "#FFFF00"
)

// DefaultSystem returns the four-planet system with three moons.
// Starting angles are drawn uniformly from [0, 2π).
func DefaultSystem(rng *rand.Rand) []Body {
	start := func() float64 { return rng.Float64() * 2 * math.Pi }

	return []Body{
		{Name: "Aster", Color: "#FFA500", Radius: 8, OrbitRadius: 60, AngularSpeed: 0.005, Angle: start()},
		{
			Name: "Cobalt", Color: "#1E90FF", Radius: 10, OrbitRadius: 100, AngularSpeed: 0.004, Angle: start(),
			Satellites: []Body{
				{Name: "Cobalt I", Color: "#B0C4DE", Radius: 3, OrbitRadius: 15, AngularSpeed: 0.025, Angle: start()},
			},
		},
		{
			Name: "Ember", Color: "#FF6347", Radius: 6, OrbitRadius: 150, AngularSpeed: 0.003, Angle: start(),
			Satellites: []Body{
				{Name: "Ember I", Color: "#FFFFFF", Radius: 2, OrbitRadius: 10, AngularSpeed: 0.035, Angle: start()},
			},
		},
		{
			Name: "Verdant", Color: "#32CD32", Radius: 7, OrbitRadius: 200, AngularSpeed: 0.002, Angle: start(),
			Satellites: []Body{
				{Name: "Verdant I", Color: "#C0C0C0", Radius: 2, OrbitRadius: 18, AngularSpeed: 0.02, Angle: start()},
			},
		},
	}
}

// OrbitColors are the ring colors for the default system, by planet index.
var OrbitColors = []string{"#9370DB", "#00CED1", "#FFC0CB", "#ADFF2F"}
