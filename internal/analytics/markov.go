package analytics

// Bar colors for the Markov state chart.
const (
	ColorCurrentState = "#ff6b6b"
	ColorOtherState   = "#66fcf1"
)

// Bar is one state in the Markov occupancy chart.
type Bar struct {
	Label   string
	Value   float64
	Color   string
	Current bool
}

// MarkovBars maps a Markov snapshot onto one bar per state. Only the bar at
// CurrentIndex is highlighted; an out-of-range index highlights none. States
// without a matching rate get a zero-height bar.
func MarkovBars(m MarkovData) []Bar {
	bars := make([]Bar, len(m.States))
	for i, name := range m.States {
		bar := Bar{
			Label: name,
			Color: ColorOtherState,
		}
		if i < len(m.Rates) {
			bar.Value = m.Rates[i]
		}
		if i == m.CurrentIndex {
			bar.Color = ColorCurrentState
			bar.Current = true
		}
		bars[i] = bar
	}
	return bars
}
