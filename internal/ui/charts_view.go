package ui

import (
	"fmt"
	"math"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/litescript/ls-meteors/internal/analytics"
	"github.com/litescript/ls-meteors/internal/state"
)

// SparklineWidth is the fixed width of the posterior and window sparklines.
const SparklineWidth = 48

// sparklineBlocks are the Unicode block characters for sparkline (0 = lowest, 7 = highest).
var sparklineBlocks = []rune{'▁', '▂', '▃', '▄', '▅', '▆', '▇', '█'}

// Chart colors.
const (
	colorHistory   = "#66fcf1"
	colorForecast  = "#FFA500"
	colorPosterior = "#9D4EDD"
	colorWindows   = "#32CD32"
)

// maxBarWidth caps the Markov bar length.
const maxBarWidth = 32

// ChartsModel renders the analytics charts and the stats panel.
type ChartsModel struct {
	width    int
	height   int
	snapshot state.Snapshot
	animTick int
	now      func() time.Time
}

// NewChartsModel creates a charts view.
func NewChartsModel() ChartsModel {
	return ChartsModel{now: time.Now}
}

// SetSize updates the viewport size.
func (m ChartsModel) SetSize(width, height int) ChartsModel {
	m.width = width
	m.height = height
	return m
}

// UpdateData updates the model with a new snapshot.
func (m ChartsModel) UpdateData(snapshot state.Snapshot) ChartsModel {
	m.snapshot = snapshot
	return m
}

// SetAnimTick updates the animation tick for the loading shimmer.
func (m ChartsModel) SetAnimTick(tick int) ChartsModel {
	m.animTick = tick
	return m
}

// Update handles input messages.
func (m ChartsModel) Update(msg tea.Msg) (ChartsModel, tea.Cmd) {
	return m, nil
}

// View renders the charts.
func (m ChartsModel) View() string {
	headerStyle := lipgloss.NewStyle().Foreground(lipgloss.Color("205")).Bold(true)

	var sections []string

	sections = append(sections, headerStyle.Render("Meteors in Region"))
	if m.snapshot.Charts.Empty() {
		sections = append(sections, m.renderShimmerSparkline("Waiting for analytics..."))
	} else {
		sections = append(sections, m.renderRegionChart(), m.renderSummary())
	}
	sections = append(sections, "")

	sections = append(sections, headerStyle.Render("Posterior"))
	sections = append(sections, m.renderPosterior(), "")

	sections = append(sections, headerStyle.Render("Markov State"))
	sections = append(sections, m.renderMarkov(), "")

	sections = append(sections, headerStyle.Render("Stats"))
	sections = append(sections, m.renderStats())

	return lipgloss.JoinVertical(lipgloss.Left, sections...)
}

// chartWidth is the number of label positions the region chart can show.
func (m ChartsModel) chartWidth() int {
	w := m.width - 12
	if w < 8 {
		w = 8
	}
	return w
}

// renderRegionChart draws history and forecast on one shared scale. Each
// label position is one column; only the most recent positions are shown
// when the series is wider than the view.
func (m ChartsModel) renderRegionChart() string {
	region := m.snapshot.Charts.Region
	n := len(region.Labels)
	dimStyle := lipgloss.NewStyle().Foreground(lipgloss.Color("240"))
	if n == 0 {
		return dimStyle.Render("No history yet")
	}

	start := 0
	if w := m.chartWidth(); n > w {
		start = n - w
	}

	lo, hi := regionRange(region)
	histStyle := lipgloss.NewStyle().Foreground(lipgloss.Color(colorHistory))
	fcStyle := lipgloss.NewStyle().Foreground(lipgloss.Color(colorForecast))

	var sb strings.Builder
	sb.WriteString(dimStyle.Render(fmt.Sprintf("%-9s ", "count")))
	for i := start; i < n; i++ {
		switch {
		case region.Historical[i].Valid:
			sb.WriteString(histStyle.Render(string(blockFor(region.Historical[i].V, lo, hi))))
		case region.Forecast[i].Valid:
			sb.WriteString(fcStyle.Render(string(blockFor(region.Forecast[i].V, lo, hi))))
		default:
			sb.WriteRune(' ')
		}
	}
	sb.WriteString("\n")

	// Axis: first and last visible labels
	first, last := region.Labels[start], region.Labels[n-1]
	gap := (n - start) - len(first) - len(last)
	if gap < 1 {
		gap = 1
	}
	sb.WriteString(dimStyle.Render(fmt.Sprintf("%-9s %s%s%s", "", first, strings.Repeat(" ", gap), last)))

	if band := renderBand(region.Band); band != "" {
		sb.WriteString("\n")
		sb.WriteString(dimStyle.Render(fmt.Sprintf("%-9s ", "band")))
		sb.WriteString(fcStyle.Render(truncate(band, m.chartWidth())))
	}

	return sb.String()
}

// renderBand lists the confidence band entries that have values.
func renderBand(band []*analytics.BandPoint) string {
	var parts []string
	for _, p := range band {
		if p == nil {
			continue
		}
		parts = append(parts, fmt.Sprintf("%s [%.2f, %.2f]", p.Label, p.Lower, p.Upper))
	}
	return strings.Join(parts, "  ")
}

func (m ChartsModel) renderSummary() string {
	labelStyle := lipgloss.NewStyle().Foreground(lipgloss.Color("244"))
	valueStyle := lipgloss.NewStyle().Foreground(lipgloss.Color("252")).Bold(true)

	s := m.snapshot.Charts.Region.Summary
	return labelStyle.Render("Current Rate: ") + valueStyle.Render(s.CurrentRateText()) + "  " +
		labelStyle.Render("Next Prediction: ") + valueStyle.Render(s.NextPredictionText()) + "  " +
		labelStyle.Render("Confidence: ") + valueStyle.Render(s.ConfidenceText())
}

func (m ChartsModel) renderPosterior() string {
	dimStyle := lipgloss.NewStyle().Foreground(lipgloss.Color("240"))
	post := m.snapshot.Charts.Posterior
	if len(post.Y) == 0 {
		return dimStyle.Render("No posterior")
	}

	samples := resample(post.Y, SparklineWidth)
	lo, hi := minMax(samples)
	style := lipgloss.NewStyle().Foreground(lipgloss.Color(colorPosterior))

	var sb strings.Builder
	for _, v := range samples {
		sb.WriteRune(blockFor(v, lo, hi))
	}

	xLo, xHi := minMax(post.X)
	return style.Render(sb.String()) + dimStyle.Render(fmt.Sprintf(" x: %.2f..%.2f", xLo, xHi))
}

func (m ChartsModel) renderMarkov() string {
	dimStyle := lipgloss.NewStyle().Foreground(lipgloss.Color("240"))
	bars := m.snapshot.Charts.Markov
	if len(bars) == 0 {
		return dimStyle.Render("No Markov data")
	}

	labelW := 0
	peak := 0.0
	for _, b := range bars {
		if len(b.Label) > labelW {
			labelW = len(b.Label)
		}
		if b.Value > peak {
			peak = b.Value
		}
	}

	lines := make([]string, 0, len(bars))
	for _, b := range bars {
		n := 0
		if peak > 0 && b.Value > 0 {
			n = int(math.Round(b.Value / peak * maxBarWidth))
			if n < 1 {
				n = 1
			}
		}
		marker := " "
		if b.Current {
			marker = "◄"
		}
		style := lipgloss.NewStyle().Foreground(lipgloss.Color(b.Color))
		lines = append(lines, fmt.Sprintf("%-*s %s %s %s",
			labelW, b.Label,
			style.Render(strings.Repeat("█", n)+strings.Repeat(" ", maxBarWidth-n)),
			dimStyle.Render(fmt.Sprintf("%.2f", b.Value)),
			style.Render(marker)))
	}
	return strings.Join(lines, "\n")
}

func (m ChartsModel) renderStats() string {
	labelStyle := lipgloss.NewStyle().Foreground(lipgloss.Color("244")).Width(14)
	valueStyle := lipgloss.NewStyle().Foreground(lipgloss.Color("252"))
	okStyle := lipgloss.NewStyle().Foreground(lipgloss.Color("#32CD32"))
	errStyle := lipgloss.NewStyle().Foreground(lipgloss.Color("#E84A27"))
	dimStyle := lipgloss.NewStyle().Foreground(lipgloss.Color("240"))

	snap := m.snapshot
	var sb strings.Builder

	sb.WriteString(labelStyle.Render("Channel:"))
	if snap.Connected {
		sb.WriteString(okStyle.Render("connected"))
	} else {
		sb.WriteString(errStyle.Render("disconnected"))
		if snap.LastError != nil {
			sb.WriteString(dimStyle.Render(" (" + snap.LastError.Error() + ")"))
		}
	}
	sb.WriteString("\n")

	sb.WriteString(labelStyle.Render("Data age:"))
	sb.WriteString(valueStyle.Render(formatAge(snap, m.now())))
	sb.WriteString("\n")

	sb.WriteString(labelStyle.Render("Payloads:"))
	sb.WriteString(valueStyle.Render(fmt.Sprintf("%d applied, %d ignored", snap.Charts.Updates, snap.Ignored)))
	sb.WriteString("\n")

	sb.WriteString(labelStyle.Render("Windows:"))
	if n := len(snap.Windows); n > 0 {
		counts := make([]float64, n)
		for i, w := range snap.Windows {
			counts[i] = float64(w.Count)
		}
		lo, hi := minMax(counts)
		var spark strings.Builder
		for _, c := range counts {
			spark.WriteRune(blockFor(c, lo, hi))
		}
		sb.WriteString(lipgloss.NewStyle().Foreground(lipgloss.Color(colorWindows)).Render(spark.String()))
		sb.WriteString(valueStyle.Render(fmt.Sprintf(" last %d", snap.Windows[n-1].Count)))
	} else {
		sb.WriteString(dimStyle.Render("none closed yet"))
	}

	for _, e := range recentEvents(snap.Events, 4) {
		sb.WriteString("\n")
		sb.WriteString(dimStyle.Render(e.Timestamp.Format("15:04:05") + " " + e.String()))
	}

	return sb.String()
}

// renderShimmerSparkline renders a loading animation sparkline.
func (m ChartsModel) renderShimmerSparkline(msg string) string {
	var sb strings.Builder

	offset := m.animTick % SparklineWidth
	for i := 0; i < SparklineWidth; i++ {
		dist := (i - offset + SparklineWidth) % SparklineWidth
		var gray int
		if dist < 8 {
			gray = 60 + dist*8
		} else {
			gray = 60
		}
		color := fmt.Sprintf("#%02x%02x%02x", gray, gray, gray)
		sb.WriteString(lipgloss.NewStyle().Foreground(lipgloss.Color(color)).Render("▄"))
	}

	dimStyle := lipgloss.NewStyle().Foreground(lipgloss.Color("240"))
	sb.WriteString(" ")
	sb.WriteString(dimStyle.Render(msg))

	return sb.String()
}

// formatAge renders how old the analytics data is.
func formatAge(snap state.Snapshot, now time.Time) string {
	if snap.Charts.Empty() {
		return "-"
	}
	if snap.Charts.UpdatedAt.IsZero() {
		return "no timestamp"
	}
	return snap.DataAge(now).Round(time.Second).String()
}

// regionRange is the shared vertical scale of the region chart, covering
// history, forecast and band values.
func regionRange(s analytics.RegionSeries) (float64, float64) {
	lo, hi := math.Inf(1), math.Inf(-1)
	see := func(v float64) {
		lo = math.Min(lo, v)
		hi = math.Max(hi, v)
	}
	for i := range s.Labels {
		if s.Historical[i].Valid {
			see(s.Historical[i].V)
		}
		if s.Forecast[i].Valid {
			see(s.Forecast[i].V)
		}
		if b := s.Band[i]; b != nil {
			see(b.Lower)
			see(b.Upper)
		}
	}
	if math.IsInf(lo, 1) {
		return 0, 0
	}
	return lo, hi
}

// blockFor maps v within [lo, hi] onto a sparkline block.
func blockFor(v, lo, hi float64) rune {
	if hi <= lo || math.IsNaN(v) {
		return sparklineBlocks[0]
	}
	t := (v - lo) / (hi - lo)
	idx := int(t * float64(len(sparklineBlocks)-1))
	if idx < 0 {
		idx = 0
	}
	if idx >= len(sparklineBlocks) {
		idx = len(sparklineBlocks) - 1
	}
	return sparklineBlocks[idx]
}

// resample picks width evenly spaced samples from xs. Shorter input is
// returned unchanged.
func resample(xs []float64, width int) []float64 {
	if len(xs) <= width || width <= 0 {
		return xs
	}
	out := make([]float64, width)
	step := float64(len(xs)-1) / float64(width-1)
	for i := range out {
		out[i] = xs[int(math.Round(float64(i)*step))]
	}
	return out
}

func minMax(xs []float64) (float64, float64) {
	if len(xs) == 0 {
		return 0, 0
	}
	lo, hi := xs[0], xs[0]
	for _, v := range xs[1:] {
		lo = math.Min(lo, v)
		hi = math.Max(hi, v)
	}
	return lo, hi
}

func recentEvents(events []state.Event, n int) []state.Event {
	if len(events) <= n {
		return events
	}
	return events[len(events)-n:]
}

func truncate(s string, width int) string {
	runes := []rune(s)
	if len(runes) <= width {
		return s
	}
	if width <= 1 {
		return string(runes[:width])
	}
	return string(runes[:width-1]) + "…"
}
