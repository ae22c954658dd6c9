// Package analytics turns analytics replies into chart-ready series.
package analytics

import (
	"encoding/json"
	"fmt"
	"math"
	"time"
)

// Payload is an inbound graph_data message. Optional fields that are absent
// or null decode to nil.
type Payload struct {
	RegionCounts []float64   `json:"region_counts"`
	Predictions  []float64   `json:"predictions,omitempty"`
	LowerBound   []float64   `json:"lower_bound,omitempty"`
	UpperBound   []float64   `json:"upper_bound,omitempty"`
	X            []float64   `json:"x,omitempty"`
	Y            []float64   `json:"y,omitempty"`
	Markov       *MarkovData `json:"markov_data,omitempty"`
	Timestamp    float64     `json:"timestamp,omitempty"` // Unix seconds, fractional
}

// MarkovData is the analytics process's Markov chain snapshot.
type MarkovData struct {
	States       []string  `json:"states"`
	Rates        []float64 `json:"rates"`
	CurrentIndex int       `json:"current_index"`
}

// DecodePayload parses a graph_data message body.
func DecodePayload(data []byte) (Payload, error) {
	var p Payload
	if err := json.Unmarshal(data, &p); err != nil {
		return Payload{}, fmt.Errorf("decode graph_data: %w", err)
	}
	return p, nil
}

// HasHistory reports whether the payload carries historical counts.
// An empty list counts as present; only an absent or null field does not.
func (p Payload) HasHistory() bool {
	return p.RegionCounts != nil
}

// HasPosterior reports whether both posterior coordinate arrays are present.
func (p Payload) HasPosterior() bool {
	return p.X != nil && p.Y != nil
}

// Time returns the payload timestamp, or the zero time if none was sent.
func (p Payload) Time() time.Time {
	if p.Timestamp <= 0 {
		return time.Time{}
	}
	sec, frac := math.Modf(p.Timestamp)
	return time.Unix(int64(sec), int64(frac*1e9))
}
