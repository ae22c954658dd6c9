package ui

import (
	"fmt"
	"math"
	"strings"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/litescript/ls-meteors/internal/sim"
)

// Scene glyphs.
const (
	glyphEmpty  = ' '
	glyphOrbit  = '·'
	glyphSun    = '☉'
	glyphPlanet = '●'
	glyphMoon   = '•'
	glyphMeteor = '*'
)

// cell is one character of the scene canvas.
type cell struct {
	ch    rune
	color string // Hex foreground; empty means default
}

// SceneModel renders the orbital scene and falling meteors onto a
// character grid scaled from the logical surface.
type SceneModel struct {
	width    int
	height   int
	surfaceW float64
	surfaceH float64
	frame    sim.Frame
	hasFrame bool

	showOrbits bool
	showRegion bool
	showLabels bool
}

// NewSceneModel creates a scene view for a surface of the given logical size.
func NewSceneModel(surfaceW, surfaceH float64) SceneModel {
	return SceneModel{
		surfaceW:   surfaceW,
		surfaceH:   surfaceH,
		showOrbits: true,
		showRegion: true,
	}
}

// SetSize updates the viewport size.
func (m SceneModel) SetSize(width, height int) SceneModel {
	m.width = width
	m.height = height
	return m
}

// UpdateFrame replaces the frame being drawn.
func (m SceneModel) UpdateFrame(f sim.Frame) SceneModel {
	m.frame = f
	m.hasFrame = true
	return m
}

// Update handles input messages.
func (m SceneModel) Update(msg tea.Msg) (SceneModel, tea.Cmd) {
	if msg, ok := msg.(tea.KeyMsg); ok {
		switch msg.String() {
		case "o":
			m.showOrbits = !m.showOrbits
		case "g":
			m.showRegion = !m.showRegion
		case "l":
			m.showLabels = !m.showLabels
		}
	}
	return m, nil
}

// View renders the scene.
func (m SceneModel) View() string {
	if m.width < 40 || m.height < 10 {
		return "Terminal too small for scene view"
	}
	if !m.hasFrame {
		return "Starting simulation..."
	}

	canvasH := m.height - 2
	grid := m.buildCanvas(m.width, canvasH)
	return lipgloss.JoinVertical(lipgloss.Left, renderCells(grid), m.renderHUD())
}

// projector maps surface coordinates onto the canvas.
type projector struct {
	sx, sy float64
	w, h   int
}

func newProjector(surfaceW, surfaceH float64, w, h int) projector {
	return projector{
		sx: float64(w) / surfaceW,
		sy: float64(h) / surfaceH,
		w:  w,
		h:  h,
	}
}

func (p projector) project(v sim.Vec2) (int, int) {
	return int(math.Floor(v.X * p.sx)), int(math.Floor(v.Y * p.sy))
}

func (p projector) inside(x, y int) bool {
	return x >= 0 && x < p.w && y >= 0 && y < p.h
}

// buildCanvas draws the current frame. Later layers overwrite earlier ones:
// orbits, region outline, meteors, moons, planets, sun, labels.
func (m SceneModel) buildCanvas(w, h int) [][]cell {
	grid := make([][]cell, h)
	for y := range grid {
		grid[y] = make([]cell, w)
		for x := range grid[y] {
			grid[y][x] = cell{ch: glyphEmpty}
		}
	}
	if w == 0 || h == 0 {
		return grid
	}

	proj := newProjector(m.surfaceW, m.surfaceH, w, h)
	f := m.frame

	if m.showOrbits {
		planet := 0
		for _, p := range f.Placements {
			color := "240"
			if p.Kind == sim.KindPlanet {
				if planet < len(sim.OrbitColors) {
					color = sim.OrbitColors[planet]
				}
				planet++
			}
			drawOrbit(grid, proj, p.OrbitCenter, p.OrbitRadius, color)
		}
	}

	if m.showRegion {
		drawRegion(grid, proj, f.Region)
	}

	for _, pt := range f.Particles {
		x, y := proj.project(pt.Pos)
		if proj.inside(x, y) {
			grid[y][x] = cell{ch: glyphMeteor, color: sim.ColorMeteor}
		}
	}

	for _, kind := range []sim.BodyKind{sim.KindMoon, sim.KindPlanet} {
		for _, p := range f.Placements {
			if p.Kind != kind {
				continue
			}
			x, y := proj.project(p.Pos)
			if !proj.inside(x, y) {
				continue
			}
			glyph := glyphPlanet
			if kind == sim.KindMoon {
				glyph = glyphMoon
			}
			grid[y][x] = cell{ch: glyph, color: p.Color}
		}
	}

	if cx, cy := proj.project(f.Center); proj.inside(cx, cy) {
		grid[cy][cx] = cell{ch: glyphSun, color: sim.ColorSun}
	}

	if m.showLabels {
		for _, p := range f.Placements {
			if p.Kind != sim.KindPlanet {
				continue
			}
			x, y := proj.project(p.Pos)
			drawLabel(grid, proj, x+2, y, p.Name, p.Color)
		}
	}

	return grid
}

// drawOrbit traces a circle of logical radius r. The projection scales the
// axes independently, which also corrects for the cell aspect ratio.
func drawOrbit(grid [][]cell, proj projector, center sim.Vec2, r float64, color string) {
	rx := r * proj.sx
	if rx < 1 {
		return
	}

	steps := int(2 * math.Pi * rx)
	if steps < 8 {
		steps = 8
	}
	if steps > 360 {
		steps = 360
	}

	for i := 0; i < steps; i++ {
		theta := 2 * math.Pi * float64(i) / float64(steps)
		pt := sim.Vec2{
			X: center.X + r*math.Cos(theta),
			Y: center.Y + r*math.Sin(theta),
		}
		x, y := proj.project(pt)
		if proj.inside(x, y) && grid[y][x].ch == glyphEmpty {
			grid[y][x] = cell{ch: glyphOrbit, color: color}
		}
	}
}

// drawRegion outlines the watched region with box-drawing characters.
func drawRegion(grid [][]cell, proj projector, r sim.Region) {
	x0, y0 := proj.project(sim.Vec2{X: r.X, Y: r.Y})
	x1, y1 := proj.project(sim.Vec2{X: r.X + r.Width, Y: r.Y + r.Height})
	if x1 <= x0 || y1 <= y0 {
		return
	}

	set := func(x, y int, ch rune) {
		if proj.inside(x, y) {
			grid[y][x] = cell{ch: ch, color: sim.ColorRegion}
		}
	}
	for x := x0 + 1; x < x1; x++ {
		set(x, y0, '─')
		set(x, y1, '─')
	}
	for y := y0 + 1; y < y1; y++ {
		set(x0, y, '│')
		set(x1, y, '│')
	}
	set(x0, y0, '┌')
	set(x1, y0, '┐')
	set(x0, y1, '└')
	set(x1, y1, '┘')
}

func drawLabel(grid [][]cell, proj projector, x, y int, text, color string) {
	for i, r := range text {
		if !proj.inside(x+i, y) {
			return
		}
		if grid[y][x+i].ch == glyphEmpty || grid[y][x+i].ch == glyphOrbit {
			grid[y][x+i] = cell{ch: r, color: color}
		}
	}
}

// renderCells converts the grid to a styled string, batching runs of the
// same color into one lipgloss render.
func renderCells(grid [][]cell) string {
	var b strings.Builder
	for _, row := range grid {
		var run strings.Builder
		runColor := ""
		flush := func() {
			if run.Len() == 0 {
				return
			}
			if runColor == "" {
				b.WriteString(run.String())
			} else {
				b.WriteString(lipgloss.NewStyle().Foreground(lipgloss.Color(runColor)).Render(run.String()))
			}
			run.Reset()
		}
		for _, c := range row {
			if c.color != runColor {
				flush()
				runColor = c.color
			}
			run.WriteRune(c.ch)
		}
		flush()
		b.WriteRune('\n')
	}
	return strings.TrimSuffix(b.String(), "\n")
}

func (m SceneModel) renderHUD() string {
	dimStyle := lipgloss.NewStyle().Foreground(lipgloss.Color("240"))
	valueStyle := lipgloss.NewStyle().Foreground(lipgloss.Color("252"))
	regionStyle := lipgloss.NewStyle().Foreground(lipgloss.Color(sim.ColorRegion)).Bold(true)

	onOff := func(b bool) string {
		if b {
			return "on"
		}
		return "off"
	}

	var b strings.Builder
	b.WriteString(dimStyle.Render("Tick:"))
	b.WriteString(valueStyle.Render(fmt.Sprintf("%d", m.frame.Tick)))
	b.WriteString("  ")
	b.WriteString(dimStyle.Render("Meteors:"))
	b.WriteString(valueStyle.Render(fmt.Sprintf("%d", len(m.frame.Particles))))
	b.WriteString("  ")
	b.WriteString(dimStyle.Render("In region:"))
	b.WriteString(regionStyle.Render(fmt.Sprintf("%d", m.frame.Count)))
	b.WriteString("  ")
	b.WriteString(dimStyle.Render("Orbits:"))
	b.WriteString(valueStyle.Render(onOff(m.showOrbits)))
	b.WriteString("  ")
	b.WriteString(dimStyle.Render("Region:"))
	b.WriteString(valueStyle.Render(onOff(m.showRegion)))
	b.WriteString("  ")
	b.WriteString(dimStyle.Render("Labels:"))
	b.WriteString(valueStyle.Render(onOff(m.showLabels)))
	return b.String()
}
