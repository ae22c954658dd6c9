// Package socket implements the message channel to the analytics process
// over a WebSocket.
//
// Every frame is a JSON envelope:
//
//	{"event": "meteor_in_region", "data": {"count": 4}}
//	{"event": "get_graph_data"}
//	{"event": "graph_data", "data": {"region_counts": [...], ...}}
package socket

import (
	"encoding/json"
	"fmt"
)

// Event names.
const (
	EventGetGraphData   = "get_graph_data"
	EventMeteorInRegion = "meteor_in_region"
	EventGraphData      = "graph_data"
)

// Envelope is a single message on the channel.
type Envelope struct {
	Event string          `json:"event"`
	Data  json.RawMessage `json:"data,omitempty"`
}

// MeteorInRegion is the payload of a meteor_in_region event.
type MeteorInRegion struct {
	Count int `json:"count"`
}

// NewEnvelope builds an envelope, marshalling data when it is non-nil.
func NewEnvelope(event string, data any) (Envelope, error) {
	env := Envelope{Event: event}
	if data == nil {
		return env, nil
	}
	raw, err := json.Marshal(data)
	if err != nil {
		return Envelope{}, fmt.Errorf("marshal %s: %w", event, err)
	}
	env.Data = raw
	return env, nil
}
