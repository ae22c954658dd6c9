package analytics

import (
	"fmt"
	"strconv"
)

// Placeholder is shown for a missing numeric display value.
const Placeholder = "-"

// ConfidenceLabel accompanies the next prediction when a forecast is present.
const ConfidenceLabel = "95%"

// Value is a dataset entry that may be absent. Absent values marshal to
// JSON null so positions stay aligned with the label sequence.
type Value struct {
	V     float64
	Valid bool
}

// Some returns a present value.
func Some(v float64) Value {
	return Value{V: v, Valid: true}
}

// None is the "no value" marker.
var None = Value{}

// MarshalJSON implements json.Marshaler.
func (v Value) MarshalJSON() ([]byte, error) {
	if !v.Valid {
		return []byte("null"), nil
	}
	return strconv.AppendFloat(nil, v.V, 'g', -1, 64), nil
}

// FormatValue renders v with two decimals, or Placeholder when absent.
func FormatValue(v Value) string {
	if !v.Valid {
		return Placeholder
	}
	return fmt.Sprintf("%.2f", v.V)
}

// BandPoint is one confidence-band entry: the forecast label it belongs to
// and the lower and upper bounds at that position.
type BandPoint struct {
	Label string  `json:"x"`
	Index int     `json:"index"` // 1-based position in the label sequence
	Lower float64 `json:"y"`
	Upper float64 `json:"y1"`
}

// Summary holds the scalar readouts next to the region chart.
type Summary struct {
	CurrentRate    Value
	NextPrediction Value
	Confidence     string // ConfidenceLabel, or empty without a forecast
}

// CurrentRateText returns the display string for the current rate.
func (s Summary) CurrentRateText() string {
	return FormatValue(s.CurrentRate)
}

// NextPredictionText returns the display string for the next prediction.
func (s Summary) NextPredictionText() string {
	return FormatValue(s.NextPrediction)
}

// ConfidenceText returns the display string for the confidence label.
func (s Summary) ConfidenceText() string {
	if s.Confidence == "" {
		return Placeholder
	}
	return s.Confidence
}

// RegionSeries is the merged historical + forecast chart. Every dataset has
// exactly len(Labels) entries.
type RegionSeries struct {
	Labels     []string
	Historical []Value
	Forecast   []Value
	Band       []*BandPoint // nil entries are "no value"
	Summary    Summary
}

// HistoryLen returns the number of historical positions.
func (s RegionSeries) HistoryLen() int {
	n := 0
	for _, v := range s.Historical {
		if v.Valid {
			n++
		}
	}
	return n
}

// PosteriorSeries is the posterior distribution snapshot.
type PosteriorSeries struct {
	X []float64
	Y []float64
}

// Merge aligns historical counts, forecast values and confidence bounds onto
// a single ordinal label sequence T1..T(H+P). The forecast and band datasets
// are padded with "no value" over the historical range so the forecast
// starts where history ends. Merge reports false, and returns nothing, when
// the payload has no historical counts.
func Merge(p Payload) (RegionSeries, bool) {
	if !p.HasHistory() {
		return RegionSeries{}, false
	}

	h := len(p.RegionCounts)
	f := len(p.Predictions)
	n := h + f

	labels := make([]string, n)
	for i := range labels {
		labels[i] = ordinalLabel(i)
	}

	historical := make([]Value, n)
	for i, v := range p.RegionCounts {
		historical[i] = Some(v)
	}

	forecast := make([]Value, n)
	band := make([]*BandPoint, n)
	for i, v := range p.Predictions {
		pos := h + i
		forecast[pos] = Some(v)

		// Missing bounds leave a gap in the band instead of failing.
		if i < len(p.LowerBound) && i < len(p.UpperBound) {
			band[pos] = &BandPoint{
				Label: labels[pos],
				Index: pos + 1,
				Lower: p.LowerBound[i],
				Upper: p.UpperBound[i],
			}
		}
	}

	summary := Summary{CurrentRate: None, NextPrediction: None}
	if h > 0 {
		summary.CurrentRate = Some(p.RegionCounts[h-1])
	}
	if f > 0 {
		summary.NextPrediction = Some(p.Predictions[0])
		summary.Confidence = ConfidenceLabel
	}

	return RegionSeries{
		Labels:     labels,
		Historical: historical,
		Forecast:   forecast,
		Band:       band,
		Summary:    summary,
	}, true
}

// MergePosterior copies the posterior arrays when both are present. If their
// lengths differ the longer one is truncated so the pair stays aligned.
func MergePosterior(p Payload) (PosteriorSeries, bool) {
	if !p.HasPosterior() {
		return PosteriorSeries{}, false
	}

	n := min(len(p.X), len(p.Y))
	x := make([]float64, n)
	y := make([]float64, n)
	copy(x, p.X)
	copy(y, p.Y)

	return PosteriorSeries{X: x, Y: y}, true
}

// ordinalLabel returns the label for zero-based position i.
func ordinalLabel(i int) string {
	return "T" + strconv.Itoa(i+1)
}
