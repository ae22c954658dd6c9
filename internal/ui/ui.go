// Package ui provides the terminal user interface using Bubble Tea.
package ui

import (
	"fmt"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/litescript/ls-meteors/internal/analytics"
	"github.com/litescript/ls-meteors/internal/engine"
	"github.com/litescript/ls-meteors/internal/state"
	"github.com/litescript/ls-meteors/internal/telemetry"
	"github.com/litescript/ls-meteors/internal/version"
)

// ViewMode represents the current UI view.
type ViewMode int

const (
	ViewScene ViewMode = iota
	ViewCharts
)

const viewCount = 2

// Msg types for Bubble Tea
type (
	// FrameMsg drives one simulation tick.
	FrameMsg time.Time

	// TickMsg triggers periodic snapshot refreshes.
	TickMsg time.Time

	// AnimTickMsg triggers fast animation updates.
	AnimTickMsg time.Time

	// GraphDataMsg carries an inbound analytics payload.
	GraphDataMsg struct {
		Payload analytics.Payload
	}

	// ConnStatusMsg signals an analytics channel transition.
	ConnStatusMsg struct {
		Connected bool
		Err       error
	}
)

// Model is the root Bubble Tea model. It owns the engine: every simulation
// tick and every payload merge happens inside Update.
type Model struct {
	// Dependencies
	engine        *engine.Engine
	state         *state.Manager
	emitter       telemetry.Emitter
	frameInterval time.Duration

	// UI state
	viewMode  ViewMode
	width     int
	height    int
	ready     bool
	paused    bool
	statusMsg string
	animTick  int

	// Sub-models
	scene  SceneModel
	charts ChartsModel

	snapshot state.Snapshot
}

// New creates a new root UI model. emitter may be nil, which disables the
// manual refresh key.
func New(eng *engine.Engine, emitter telemetry.Emitter, frameInterval time.Duration) Model {
	cfg := eng.World().Config()
	if frameInterval <= 0 {
		frameInterval = time.Second / 30
	}
	return Model{
		engine:        eng,
		state:         eng.State(),
		emitter:       emitter,
		frameInterval: frameInterval,
		viewMode:      ViewScene,
		scene:         NewSceneModel(cfg.Width, cfg.Height),
		charts:        NewChartsModel(),
	}
}

// Init implements tea.Model.
func (m Model) Init() tea.Cmd {
	return tea.Batch(
		frameCmd(m.frameInterval),
		tickCmd(),
		animTickCmd(),
	)
}

// Update implements tea.Model.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmds []tea.Cmd

	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "q", "ctrl+c":
			return m, tea.Quit

		case "1", "s":
			m.viewMode = ViewScene
		case "2", "c":
			m.viewMode = ViewCharts

		case "tab":
			m.viewMode = (m.viewMode + 1) % viewCount

		case " ", "p":
			m.paused = !m.paused

		case "r":
			if m.emitter != nil {
				m.emitter.RequestGraphData()
				m.statusMsg = "Requested graph data"
			}

		default:
			cmds = append(cmds, m.updateActiveView(msg))
		}

	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.ready = true

		// Header ~5 lines, footer ~2 lines
		contentHeight := msg.Height - 7
		m.scene = m.scene.SetSize(msg.Width, contentHeight)
		m.charts = m.charts.SetSize(msg.Width, contentHeight)

	case FrameMsg:
		cmds = append(cmds, frameCmd(m.frameInterval))
		if !m.paused {
			tick := m.engine.Step()
			m.scene = m.scene.UpdateFrame(tick.Frame)
		}

	case TickMsg:
		cmds = append(cmds, tickCmd())
		m.snapshot = m.state.Snapshot()
		m.charts = m.charts.UpdateData(m.snapshot)

	case AnimTickMsg:
		cmds = append(cmds, animTickCmd())
		m.animTick++
		m.charts = m.charts.SetAnimTick(m.animTick)

	case GraphDataMsg:
		m.engine.ApplyPayload(msg.Payload)
		m.snapshot = m.state.Snapshot()
		m.charts = m.charts.UpdateData(m.snapshot)

	case ConnStatusMsg:
		m.snapshot = m.state.Snapshot()
		m.charts = m.charts.UpdateData(m.snapshot)
		if !msg.Connected && msg.Err != nil {
			m.statusMsg = "Analytics channel: " + msg.Err.Error()
		} else if msg.Connected {
			m.statusMsg = ""
		}

	default:
		cmds = append(cmds, m.updateActiveView(msg))
	}

	return m, tea.Batch(cmds...)
}

func (m *Model) updateActiveView(msg tea.Msg) tea.Cmd {
	var cmd tea.Cmd
	switch m.viewMode {
	case ViewScene:
		m.scene, cmd = m.scene.Update(msg)
	case ViewCharts:
		m.charts, cmd = m.charts.Update(msg)
	}
	return cmd
}

// View implements tea.Model.
func (m Model) View() string {
	if !m.ready {
		return "Initializing..."
	}

	var content string
	switch m.viewMode {
	case ViewScene:
		content = m.scene.View()
	case ViewCharts:
		content = m.charts.View()
	}

	return m.renderFrame(content)
}

func (m Model) renderFrame(content string) string {
	header := m.renderHeader()
	footer := m.renderFooter()

	return header + "\n" + content + "\n" + footer
}

func (m Model) renderHeader() string {
	return m.renderLogo() + m.renderTabs() + "\n"
}

func (m Model) renderLogo() string {
	const title = "  ✦ LS-METEORS ✦"

	var b strings.Builder
	b.WriteString("\n")

	runes := []rune(title)
	for col, r := range runes {
		color := gradientColor(col, 0, len(runes), 1)
		b.WriteString(lipgloss.NewStyle().Foreground(lipgloss.Color(color)).Bold(true).Render(string(r)))
	}

	muted := lipgloss.NewStyle().Foreground(lipgloss.Color("60"))
	b.WriteString(muted.Render(fmt.Sprintf("  Meteor Shower · Region Analytics · v%s", version.Version)))
	b.WriteString("\n\n")

	return b.String()
}

// gradientColor returns a hex color for a position in the logo gradient.
// Blue -> purple -> magenta -> pink, fading toward the bottom row.
func gradientColor(col, row, width, height int) string {
	xRatio := float64(col) / float64(width)
	yRatio := float64(row) / float64(height)

	var r, g, b float64
	if xRatio < 0.33 {
		t := xRatio / 0.33
		r = 59 + t*(139-59)
		g = 130 + t*(92-130)
		b = 246
	} else if xRatio < 0.66 {
		t := (xRatio - 0.33) / 0.33
		r = 139 + t*(217-139)
		g = 92 + t*(70-92)
		b = 246 + t*(239-246)
	} else {
		t := (xRatio - 0.66) / 0.34
		r = 217 + t*(236-217)
		g = 70 + t*(72-70)
		b = 239 + t*(153-239)
	}

	brightness := 1.0 - (yRatio * 0.5)
	return fmt.Sprintf("#%02X%02X%02X", clampByte(r*brightness), clampByte(g*brightness), clampByte(b*brightness))
}

func clampByte(v float64) int {
	if v < 0 {
		return 0
	}
	if v > 255 {
		return 255
	}
	return int(v)
}

func (m Model) renderTabs() string {
	tabs := []string{"[1] Scene", "[2] Charts"}
	activeStyle := lipgloss.NewStyle().Foreground(lipgloss.Color("#9D4EDD")).Bold(true)
	dimStyle := lipgloss.NewStyle().Foreground(lipgloss.Color("60"))

	var parts []string
	for i, tab := range tabs {
		if ViewMode(i) == m.viewMode {
			parts = append(parts, activeStyle.Render("▶ "+tab))
		} else {
			parts = append(parts, dimStyle.Render("  "+tab))
		}
	}
	return "  " + strings.Join(parts, "  ")
}

func (m Model) renderFooter() string {
	dimStyle := lipgloss.NewStyle().Foreground(lipgloss.Color("60"))
	errorStyle := lipgloss.NewStyle().Foreground(lipgloss.Color("#E84A27"))
	accentStyle := lipgloss.NewStyle().Foreground(lipgloss.Color("#7B2CBF"))

	spinnerFrames := []string{"⠋", "⠙", "⠹", "⠸", "⠼", "⠴", "⠦", "⠧", "⠇", "⠏"}
	spinner := spinnerFrames[m.animTick%len(spinnerFrames)]

	var status string
	switch {
	case m.paused:
		status = accentStyle.Render("❚❚") + dimStyle.Render(" paused")
	case !m.snapshot.Connected && m.snapshot.LastError != nil:
		status = errorStyle.Render("OFFLINE: " + m.snapshot.LastError.Error())
	case m.snapshot.Charts.Empty():
		status = accentStyle.Render(spinner) + " " + m.renderShimmerText("Waiting for analytics...")
	default:
		status = accentStyle.Render(spinner) + dimStyle.Render(fmt.Sprintf(" %d updates", m.snapshot.Charts.Updates))
	}

	var help string
	switch m.viewMode {
	case ViewScene:
		help = dimStyle.Render("o: orbits | g: region | l: labels | space: pause | r: refresh")
	default:
		help = dimStyle.Render("r: refresh | tab: switch view")
	}

	footer := "  " + status + "  " + dimStyle.Render("|") + "  " + help

	if m.statusMsg != "" {
		footer += "\n  " + dimStyle.Render(m.statusMsg)
	}

	return footer
}

// renderShimmerText renders text with a subtle moving shine effect.
func (m Model) renderShimmerText(text string) string {
	runes := []rune(text)
	textLen := len(runes)
	if textLen == 0 {
		return ""
	}

	pos := m.animTick % (textLen + 8)

	var result strings.Builder
	for i, r := range runes {
		dist := i - pos + 4
		if dist < 0 {
			dist = -dist
		}

		var r8, g8, b8 int
		switch {
		case dist <= 1:
			r8, g8, b8 = 180, 160, 220
		case dist <= 3:
			r8, g8, b8 = 140, 120, 180
		case dist <= 5:
			r8, g8, b8 = 110, 90, 150
		default:
			r8, g8, b8 = 80, 70, 120
		}

		hexColor := fmt.Sprintf("#%02X%02X%02X", r8, g8, b8)
		result.WriteString(lipgloss.NewStyle().Foreground(lipgloss.Color(hexColor)).Render(string(r)))
	}

	return result.String()
}

// Paused reports whether the simulation is paused.
func (m Model) Paused() bool {
	return m.paused
}

// ActiveView returns the current view mode.
func (m Model) ActiveView() ViewMode {
	return m.viewMode
}

func frameCmd(interval time.Duration) tea.Cmd {
	return tea.Tick(interval, func(t time.Time) tea.Msg {
		return FrameMsg(t)
	})
}

func tickCmd() tea.Cmd {
	return tea.Tick(500*time.Millisecond, func(t time.Time) tea.Msg {
		return TickMsg(t)
	})
}

func animTickCmd() tea.Cmd {
	return tea.Tick(80*time.Millisecond, func(t time.Time) tea.Msg {
		return AnimTickMsg(t)
	})
}
