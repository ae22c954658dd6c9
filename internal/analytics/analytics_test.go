package analytics

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func values(vs ...float64) []Value {
	out := make([]Value, len(vs))
	for i, v := range vs {
		out[i] = Some(v)
	}
	return out
}

func TestMerge_WorkedExample(t *testing.T) {
	p := Payload{
		RegionCounts: []float64{3, 5, 2},
		Predictions:  []float64{4, 6},
		LowerBound:   []float64{2, 3},
		UpperBound:   []float64{6, 9},
	}

	s, ok := Merge(p)
	require.True(t, ok)

	assert.Equal(t, []string{"T1", "T2", "T3", "T4", "T5"}, s.Labels)
	assert.Equal(t, []Value{None, None, None, Some(4), Some(6)}, s.Forecast)
	assert.Equal(t, []Value{Some(3), Some(5), Some(2), None, None}, s.Historical)

	require.Len(t, s.Band, 5)
	for i := 0; i < 3; i++ {
		assert.Nil(t, s.Band[i], "band entry %d should be empty", i)
	}
	assert.Equal(t, &BandPoint{Label: "T4", Index: 4, Lower: 2, Upper: 6}, s.Band[3])
	assert.Equal(t, &BandPoint{Label: "T5", Index: 5, Lower: 3, Upper: 9}, s.Band[4])

	assert.Equal(t, "2.00", s.Summary.CurrentRateText())
	assert.Equal(t, "4.00", s.Summary.NextPredictionText())
	assert.Equal(t, "95%", s.Summary.ConfidenceText())
}

func TestMerge_ForecastPaddingAndAlignment(t *testing.T) {
	tests := []struct {
		name string
		h, p int
	}{
		{"history only", 4, 0},
		{"forecast longer than history", 2, 10},
		{"equal", 10, 10},
		{"single each", 1, 1},
		{"empty history with forecast", 0, 3},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := Payload{RegionCounts: make([]float64, tt.h)}
			for i := 0; i < tt.h; i++ {
				p.RegionCounts[i] = float64(i)
			}
			if tt.p > 0 {
				p.Predictions = make([]float64, tt.p)
				p.LowerBound = make([]float64, tt.p)
				p.UpperBound = make([]float64, tt.p)
				for i := 0; i < tt.p; i++ {
					p.Predictions[i] = float64(100 + i)
				}
			}

			s, ok := Merge(p)
			require.True(t, ok)

			n := tt.h + tt.p
			assert.Len(t, s.Labels, n)
			assert.Len(t, s.Historical, n)
			assert.Len(t, s.Forecast, n)
			assert.Len(t, s.Band, n)

			for i := 0; i < tt.h; i++ {
				assert.False(t, s.Forecast[i].Valid, "forecast[%d] should be empty", i)
				assert.Nil(t, s.Band[i])
			}
			for i := 0; i < tt.p; i++ {
				assert.Equal(t, Some(p.Predictions[i]), s.Forecast[tt.h+i])
				require.NotNil(t, s.Band[tt.h+i])
				assert.Equal(t, s.Labels[tt.h+i], s.Band[tt.h+i].Label)
			}
			assert.Equal(t, tt.h, s.HistoryLen())
		})
	}
}

func TestMerge_MissingHistoryIsNoOp(t *testing.T) {
	s, ok := Merge(Payload{Predictions: []float64{1, 2}})
	assert.False(t, ok)
	assert.Empty(t, s.Labels)
}

func TestMerge_EmptyForecastList(t *testing.T) {
	s, ok := Merge(Payload{RegionCounts: []float64{1, 2, 3}, Predictions: []float64{}})
	require.True(t, ok)

	assert.Equal(t, []Value{None, None, None}, s.Forecast)
	assert.Equal(t, "3.00", s.Summary.CurrentRateText())
	assert.Equal(t, Placeholder, s.Summary.NextPredictionText())
	assert.Equal(t, Placeholder, s.Summary.ConfidenceText())
}

func TestMerge_EmptyHistory(t *testing.T) {
	s, ok := Merge(Payload{RegionCounts: []float64{}})
	require.True(t, ok)
	assert.Empty(t, s.Labels)
	assert.Equal(t, Placeholder, s.Summary.CurrentRateText())
}

func TestMerge_ZeroCurrentRateIsShown(t *testing.T) {
	s, ok := Merge(Payload{RegionCounts: []float64{4, 0}})
	require.True(t, ok)
	assert.Equal(t, "0.00", s.Summary.CurrentRateText())
}

func TestMerge_ShortBoundsLeaveGaps(t *testing.T) {
	s, ok := Merge(Payload{
		RegionCounts: []float64{1},
		Predictions:  []float64{2, 3, 4},
		LowerBound:   []float64{1},
		UpperBound:   []float64{3, 4},
	})
	require.True(t, ok)

	require.NotNil(t, s.Band[1])
	assert.Nil(t, s.Band[2])
	assert.Nil(t, s.Band[3])
	assert.Equal(t, values(2, 3, 4), s.Forecast[1:])
}

func TestMergePosterior(t *testing.T) {
	x := []float64{0, 0.5, 1}
	y := []float64{0.1, 0.7, 0.2}

	post, ok := MergePosterior(Payload{X: x, Y: y})
	require.True(t, ok)
	assert.Equal(t, x, post.X)
	assert.Equal(t, y, post.Y)

	// The series must not alias the payload.
	x[0] = 99
	assert.Equal(t, 0.0, post.X[0])

	_, ok = MergePosterior(Payload{X: x})
	assert.False(t, ok)

	post, ok = MergePosterior(Payload{X: []float64{1, 2, 3}, Y: []float64{4, 5}})
	require.True(t, ok)
	assert.Len(t, post.X, 2)
	assert.Len(t, post.Y, 2)
}

func TestMarkovBars_HighlightsCurrentState(t *testing.T) {
	bars := MarkovBars(MarkovData{
		States:       []string{"low", "medium", "high"},
		Rates:        []float64{1, 4, 2},
		CurrentIndex: 1,
	})

	require.Len(t, bars, 3)
	for i, b := range bars {
		if i == 1 {
			assert.Equal(t, "medium", b.Label)
			assert.True(t, b.Current)
			assert.Equal(t, ColorCurrentState, b.Color)
			continue
		}
		assert.False(t, b.Current, "bar %s should not be highlighted", b.Label)
		assert.Equal(t, ColorOtherState, b.Color)
	}
	assert.Equal(t, []float64{1, 4, 2}, []float64{bars[0].Value, bars[1].Value, bars[2].Value})
}

func TestMarkovBars_EdgeCases(t *testing.T) {
	bars := MarkovBars(MarkovData{States: []string{"a", "b"}, Rates: []float64{3}, CurrentIndex: 5})
	require.Len(t, bars, 2)
	assert.Equal(t, 0.0, bars[1].Value)
	for _, b := range bars {
		assert.False(t, b.Current)
	}

	assert.Empty(t, MarkovBars(MarkovData{}))
}

func TestDecodePayload(t *testing.T) {
	raw := `{
		"region_counts": [3, 5, 2],
		"x": [0, 1], "y": [0.2, 0.3],
		"predictions": null, "lower_bound": null, "upper_bound": null,
		"timestamp": 1700000000.5,
		"markov_data": {"states": ["low", "medium", "high"], "rates": [1, 3, 7], "current_index": 2}
	}`

	p, err := DecodePayload([]byte(raw))
	require.NoError(t, err)

	assert.True(t, p.HasHistory())
	assert.True(t, p.HasPosterior())
	assert.Nil(t, p.Predictions)
	require.NotNil(t, p.Markov)
	assert.Equal(t, 2, p.Markov.CurrentIndex)
	assert.Equal(t, time.Unix(1700000000, 500000000), p.Time())

	_, err = DecodePayload([]byte(`{"region_counts": "nope"}`))
	assert.Error(t, err)
}

func TestDecodePayload_AbsentVersusEmptyHistory(t *testing.T) {
	p, err := DecodePayload([]byte(`{}`))
	require.NoError(t, err)
	assert.False(t, p.HasHistory())

	p, err = DecodePayload([]byte(`{"region_counts": null}`))
	require.NoError(t, err)
	assert.False(t, p.HasHistory())

	p, err = DecodePayload([]byte(`{"region_counts": []}`))
	require.NoError(t, err)
	assert.True(t, p.HasHistory())
}

func TestValueMarshalJSON(t *testing.T) {
	b, err := json.Marshal([]Value{None, Some(4), Some(2.5)})
	require.NoError(t, err)
	assert.JSONEq(t, `[null, 4, 2.5]`, string(b))
}

func TestCharts_Apply(t *testing.T) {
	var c Charts
	assert.True(t, c.Empty())

	first := Payload{
		RegionCounts: []float64{1, 2},
		Predictions:  []float64{3},
		LowerBound:   []float64{2},
		UpperBound:   []float64{4},
		X:            []float64{0, 1},
		Y:            []float64{0.5, 0.5},
		Markov:       &MarkovData{States: []string{"low", "high"}, Rates: []float64{1, 7}, CurrentIndex: 0},
		Timestamp:    1700000000,
	}

	c1, ok := c.Apply(first)
	require.True(t, ok)
	assert.Equal(t, 1, c1.Updates)
	assert.Len(t, c1.Region.Labels, 3)
	assert.Equal(t, []float64{0, 1}, c1.Posterior.X)
	require.Len(t, c1.Markov, 2)
	assert.True(t, c1.Markov[0].Current)
	assert.Equal(t, time.Unix(1700000000, 0), c1.UpdatedAt)

	// Optional sections absent: region replaced, posterior and Markov kept.
	c2, ok := c1.Apply(Payload{RegionCounts: []float64{5}})
	require.True(t, ok)
	assert.Equal(t, []string{"T1"}, c2.Region.Labels)
	assert.Equal(t, c1.Posterior, c2.Posterior)
	assert.Equal(t, c1.Markov, c2.Markov)
	assert.Equal(t, 2, c2.Updates)

	// The earlier value is untouched.
	assert.Len(t, c1.Region.Labels, 3)
}

func TestCharts_ApplyIgnoresPayloadWithoutHistory(t *testing.T) {
	c, ok := Charts{}.Apply(Payload{RegionCounts: []float64{1}})
	require.True(t, ok)

	next, ok := c.Apply(Payload{
		X:      []float64{1},
		Y:      []float64{2},
		Markov: &MarkovData{States: []string{"low"}, Rates: []float64{1}},
	})
	assert.False(t, ok)
	assert.Equal(t, c, next)
	assert.Empty(t, next.Markov)
	assert.Empty(t, next.Posterior.X)
}
