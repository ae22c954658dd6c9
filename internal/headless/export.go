// Package headless runs the simulation without a terminal UI and writes
// windows and chart updates as text or JSON.
package headless

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/litescript/ls-meteors/internal/analytics"
	"github.com/litescript/ls-meteors/internal/telemetry"
)

// ChartsExport is the JSON-serializable representation of the chart state.
type ChartsExport struct {
	UpdatedAt  *time.Time             `json:"updated_at,omitempty"`
	ReceivedAt time.Time              `json:"received_at"`
	Labels     []string               `json:"labels"`
	Historical []analytics.Value      `json:"historical"`
	Forecast   []analytics.Value      `json:"forecast"`
	Band       []*analytics.BandPoint `json:"band"`
	Summary    SummaryExport          `json:"summary"`
	Posterior  *PosteriorExport       `json:"posterior,omitempty"`
	Markov     []BarExport            `json:"markov,omitempty"`
}

// SummaryExport holds the display strings of the summary readouts.
type SummaryExport struct {
	CurrentRate    string `json:"current_rate"`
	NextPrediction string `json:"next_prediction"`
	Confidence     string `json:"confidence"`
}

// PosteriorExport is the posterior distribution.
type PosteriorExport struct {
	X []float64 `json:"x"`
	Y []float64 `json:"y"`
}

// BarExport is one Markov state bar.
type BarExport struct {
	State   string  `json:"state"`
	Rate    float64 `json:"rate"`
	Color   string  `json:"color"`
	Current bool    `json:"current"`
}

// ExportCharts converts chart state to an exportable format.
func ExportCharts(c analytics.Charts, receivedAt time.Time) *ChartsExport {
	region := c.Region
	export := &ChartsExport{
		ReceivedAt: receivedAt,
		Labels:     region.Labels,
		Historical: region.Historical,
		Forecast:   region.Forecast,
		Band:       region.Band,
		Summary: SummaryExport{
			CurrentRate:    region.Summary.CurrentRateText(),
			NextPrediction: region.Summary.NextPredictionText(),
			Confidence:     region.Summary.ConfidenceText(),
		},
	}
	if !c.UpdatedAt.IsZero() {
		ts := c.UpdatedAt
		export.UpdatedAt = &ts
	}
	if len(c.Posterior.X) > 0 {
		export.Posterior = &PosteriorExport{X: c.Posterior.X, Y: c.Posterior.Y}
	}
	for _, b := range c.Markov {
		export.Markov = append(export.Markov, BarExport{
			State:   b.Label,
			Rate:    b.Value,
			Color:   b.Color,
			Current: b.Current,
		})
	}
	return export
}

// WriteJSON writes the export as a single JSON line.
func (e *ChartsExport) WriteJSON(w io.Writer) error {
	return json.NewEncoder(w).Encode(e)
}

// WriteWindow writes one closed window as a text line.
func WriteWindow(w io.Writer, win telemetry.Window) {
	fmt.Fprintf(w, "window  ticks %d-%d  meteor_in_region %d\n", win.FirstTick, win.LastTick, win.Count)
}

// WriteSummaryTable writes the chart state as a text table.
func WriteSummaryTable(w io.Writer, c analytics.Charts, timestamp time.Time) {
	region := c.Region

	fmt.Fprintf(w, "Region Analytics @ %s\n", timestamp.Format(time.RFC3339))
	fmt.Fprintln(w, strings.Repeat("─", 48))

	if len(region.Labels) == 0 {
		fmt.Fprintln(w, "No history")
	} else {
		fmt.Fprintf(w, "%-6s %10s %10s %10s %10s\n", "Label", "History", "Forecast", "Lower", "Upper")
		for i, label := range region.Labels {
			lower, upper := analytics.Placeholder, analytics.Placeholder
			if b := region.Band[i]; b != nil {
				lower = fmt.Sprintf("%.2f", b.Lower)
				upper = fmt.Sprintf("%.2f", b.Upper)
			}
			fmt.Fprintf(w, "%-6s %10s %10s %10s %10s\n",
				label,
				analytics.FormatValue(region.Historical[i]),
				analytics.FormatValue(region.Forecast[i]),
				lower,
				upper,
			)
		}
	}

	fmt.Fprintln(w, strings.Repeat("─", 48))
	fmt.Fprintf(w, "Current Rate: %s  Next Prediction: %s  Confidence: %s\n",
		region.Summary.CurrentRateText(),
		region.Summary.NextPredictionText(),
		region.Summary.ConfidenceText(),
	)

	for _, b := range c.Markov {
		marker := ""
		if b.Current {
			marker = "  <- current"
		}
		fmt.Fprintf(w, "  %-12s %8.2f%s\n", b.Label, b.Value, marker)
	}
}
