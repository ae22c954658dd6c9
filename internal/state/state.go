// Package state provides thread-safe state management for the application.
package state

import (
	"fmt"
	"sync"
	"time"

	"github.com/litescript/ls-meteors/internal/analytics"
	"github.com/litescript/ls-meteors/internal/metrics"
	"github.com/litescript/ls-meteors/internal/telemetry"
)

// EventType represents the type of state change event.
type EventType string

const (
	EventWindowClosed   EventType = "WINDOW"
	EventPayloadApplied EventType = "PAYLOAD"
	EventPayloadIgnored EventType = "IGNORED"
	EventConnected      EventType = "CONNECTED"
	EventDisconnected   EventType = "DISCONNECTED"
)

// Event represents a notable change: a closed window, a payload, or a
// channel transition.
type Event struct {
	Type      EventType `json:"type"`
	Timestamp time.Time `json:"timestamp"`
	Tick      uint64    `json:"tick,omitempty"`
	Count     int       `json:"count,omitempty"`
	Detail    string    `json:"detail,omitempty"`
}

// String formats the event for the log panel.
func (e Event) String() string {
	switch e.Type {
	case EventWindowClosed:
		return fmt.Sprintf("window @%d: %d", e.Tick, e.Count)
	case EventPayloadApplied:
		return fmt.Sprintf("payload: %d history", e.Count)
	case EventPayloadIgnored:
		return "payload ignored: no history"
	case EventConnected:
		return "channel up"
	case EventDisconnected:
		if e.Detail != "" {
			return "channel down: " + e.Detail
		}
		return "channel down"
	default:
		return string(e.Type)
	}
}

// Manager handles all shared application state with thread-safe access.
type Manager struct {
	mu sync.RWMutex

	// Chart state, replaced wholesale on each applied payload
	charts      analytics.Charts
	lastPayload time.Time
	ignored     int

	// Channel status
	connected  bool
	lastChange time.Time
	lastError  error

	// Closed windows, oldest first
	windows       []telemetry.Window
	maxWindowHist int

	// Event log (ring buffer)
	events       []Event
	maxEvents    int
	eventWriteAt int
}

// Config holds configuration for the state manager.
type Config struct {
	MaxWindowHist int
	MaxEvents     int
}

// DefaultConfig returns sensible default configuration.
func DefaultConfig() Config {
	return Config{
		MaxWindowHist: 60, // ~1 minute at 30 fps, 30-tick windows
		MaxEvents:     50,
	}
}

// NewManager creates a new state manager.
func NewManager(cfg Config) *Manager {
	maxEvents := cfg.MaxEvents
	if maxEvents <= 0 {
		maxEvents = 50
	}
	maxWindows := cfg.MaxWindowHist
	if maxWindows <= 0 {
		maxWindows = 60
	}
	return &Manager{
		maxWindowHist: maxWindows,
		maxEvents:     maxEvents,
		events:        make([]Event, 0, maxEvents),
		windows:       make([]telemetry.Window, 0, maxWindows),
	}
}

// ApplyPayload merges an analytics payload into the chart state and returns
// the metrics result: applied, or ignored when the payload has no history.
func (m *Manager) ApplyPayload(p analytics.Payload) string {
	m.mu.Lock()
	defer m.mu.Unlock()

	now := time.Now()
	m.lastPayload = now

	next, ok := m.charts.Apply(p)
	if !ok {
		m.ignored++
		m.addEvent(Event{Type: EventPayloadIgnored, Timestamp: now})
		return metrics.ResultIgnored
	}

	m.charts = next
	m.addEvent(Event{
		Type:      EventPayloadApplied,
		Timestamp: now,
		Count:     len(p.RegionCounts),
	})
	return metrics.ResultApplied
}

// RecordWindow stores a closed cadence window.
func (m *Manager) RecordWindow(w telemetry.Window) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.windows = append(m.windows, w)
	if len(m.windows) > m.maxWindowHist {
		m.windows = m.windows[1:]
	}
	m.addEvent(Event{
		Type:      EventWindowClosed,
		Timestamp: time.Now(),
		Tick:      w.LastTick,
		Count:     w.Count,
	})
}

// SetConnected records the channel status. Only transitions are logged as
// events; repeated failures while down just refresh the last error.
func (m *Manager) SetConnected(connected bool, err error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.lastError = err
	if connected == m.connected && !m.lastChange.IsZero() {
		return
	}

	now := time.Now()
	m.connected = connected
	m.lastChange = now

	e := Event{Type: EventConnected, Timestamp: now}
	if !connected {
		e.Type = EventDisconnected
		if err != nil {
			e.Detail = err.Error()
		}
	}
	m.addEvent(e)
}

// addEvent adds an event to the ring buffer.
func (m *Manager) addEvent(e Event) {
	if len(m.events) < m.maxEvents {
		m.events = append(m.events, e)
	} else {
		m.events[m.eventWriteAt] = e
		m.eventWriteAt = (m.eventWriteAt + 1) % m.maxEvents
	}
}

// Snapshot represents an immutable snapshot of current state.
type Snapshot struct {
	Charts      analytics.Charts
	LastPayload time.Time
	Ignored     int
	Connected   bool
	LastChange  time.Time
	LastError   error
	Windows     []telemetry.Window
	Events      []Event
}

// DataAge returns how old the analytics data is at now, or zero when the
// payload carried no timestamp.
func (s Snapshot) DataAge(now time.Time) time.Duration {
	if s.Charts.UpdatedAt.IsZero() {
		return 0
	}
	age := now.Sub(s.Charts.UpdatedAt)
	if age < 0 {
		return 0
	}
	return age
}

// Snapshot returns a consistent snapshot of current state.
func (m *Manager) Snapshot() Snapshot {
	m.mu.RLock()
	defer m.mu.RUnlock()

	windows := make([]telemetry.Window, len(m.windows))
	copy(windows, m.windows)

	return Snapshot{
		// Charts is replaced, never mutated, so sharing its slices is safe.
		Charts:      m.charts,
		LastPayload: m.lastPayload,
		Ignored:     m.ignored,
		Connected:   m.connected,
		LastChange:  m.lastChange,
		LastError:   m.lastError,
		Windows:     windows,
		Events:      m.getEventsOrdered(),
	}
}

// getEventsOrdered returns events in chronological order.
func (m *Manager) getEventsOrdered() []Event {
	if len(m.events) == 0 {
		return nil
	}

	// If buffer isn't full yet, just copy
	if len(m.events) < m.maxEvents {
		result := make([]Event, len(m.events))
		copy(result, m.events)
		return result
	}

	// Ring buffer is full, reorder from oldest to newest
	result := make([]Event, m.maxEvents)
	for i := 0; i < m.maxEvents; i++ {
		idx := (m.eventWriteAt + i) % m.maxEvents
		result[i] = m.events[idx]
	}
	return result
}

// RecentEvents returns the last n events.
func (m *Manager) RecentEvents(n int) []Event {
	m.mu.RLock()
	defer m.mu.RUnlock()

	all := m.getEventsOrdered()
	if len(all) <= n {
		return all
	}
	return all[len(all)-n:]
}

// Charts returns the current chart state.
func (m *Manager) Charts() analytics.Charts {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.charts
}

// HasData returns true if at least one payload has been applied.
func (m *Manager) HasData() bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return !m.charts.Empty()
}
