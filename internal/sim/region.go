package sim

// Region is an axis-aligned rectangle used as an occupancy boundary.
type Region struct {
	X      float64
	Y      float64
	Width  float64
	Height float64
}

// CenteredRegion returns a w×h region centered on c.
func CenteredRegion(c Vec2, w, h float64) Region {
	return Region{X: c.X - w/2, Y: c.Y - h/2, Width: w, Height: h}
}

// Contains reports whether p lies inside r. All four edges are inclusive.
func (r Region) Contains(p Vec2) bool {
	return p.X >= r.X && p.X <= r.X+r.Width &&
		p.Y >= r.Y && p.Y <= r.Y+r.Height
}

// CountIn returns how many particles are inside r right now.
func CountIn(r Region, particles []Particle) int {
	n := 0
	for _, p := range particles {
		if r.Contains(p.Pos) {
			n++
		}
	}
	return n
}
