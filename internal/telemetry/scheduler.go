// Package telemetry turns per-frame occupancy counts into outbound events.
//
// Two independent triggers request analytics data: the tick-driven Scheduler
// (once per cadence window, tied to render ticks) and the wall-clock Poller.
package telemetry

import (
	"errors"
)

const (
	// DefaultCadence is the number of render ticks per window.
	DefaultCadence = 30
)

// Emitter sends outbound events. Implementations must not block.
type Emitter interface {
	// EmitMeteorInRegion reports the tally of a closed window.
	EmitMeteorInRegion(count int)
	// RequestGraphData asks the analytics process for a fresh payload.
	RequestGraphData()
}

// Window is a closed cadence window.
type Window struct {
	FirstTick uint64
	LastTick  uint64
	Count     int // Sum of per-tick counts over [FirstTick, LastTick]
}

// Scheduler accumulates per-tick occupancy counts and flushes them every
// cadence ticks. All state is owned here and starts at zero.
type Scheduler struct {
	cadence uint64
	emitter Emitter

	tick  uint64
	tally int
}

// NewScheduler creates a scheduler flushing every cadence ticks.
func NewScheduler(cadence int, emitter Emitter) (*Scheduler, error) {
	if cadence <= 0 {
		return nil, errors.New("cadence must be positive")
	}
	if emitter == nil {
		return nil, errors.New("emitter is required")
	}
	return &Scheduler{
		cadence: uint64(cadence),
		emitter: emitter,
	}, nil
}

// Tick records one render tick's occupancy count. When the tick closes a
// window it emits the window tally, requests graph data, and returns the
// window with ok set.
func (s *Scheduler) Tick(count int) (w Window, ok bool) {
	s.tick++
	s.tally += count

	if s.tick%s.cadence != 0 {
		return Window{}, false
	}

	w = Window{
		FirstTick: s.tick - s.cadence + 1,
		LastTick:  s.tick,
		Count:     s.tally,
	}
	s.tally = 0

	s.emitter.EmitMeteorInRegion(w.Count)
	s.emitter.RequestGraphData()

	return w, true
}

// Ticks returns the number of ticks seen so far.
func (s *Scheduler) Ticks() uint64 {
	return s.tick
}

// Pending returns the tally of the currently open window.
func (s *Scheduler) Pending() int {
	return s.tally
}

// Cadence returns the window length in ticks.
func (s *Scheduler) Cadence() int {
	return int(s.cadence)
}
