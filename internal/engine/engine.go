// Package engine drives one render tick end to end: advance the world, feed
// the occupancy count to the telemetry scheduler, and record what happened.
// It is not safe for concurrent use; the render loop owns it.
package engine

import (
	"errors"

	"github.com/litescript/ls-meteors/internal/analytics"
	"github.com/litescript/ls-meteors/internal/logging"
	"github.com/litescript/ls-meteors/internal/metrics"
	"github.com/litescript/ls-meteors/internal/sim"
	"github.com/litescript/ls-meteors/internal/state"
	"github.com/litescript/ls-meteors/internal/telemetry"
)

// Tick is the outcome of one render tick.
type Tick struct {
	Frame  sim.Frame
	Window telemetry.Window
	Closed bool // Window is set only when a window closed on this tick
}

// Engine ties the simulation to telemetry, state and metrics.
type Engine struct {
	world     *sim.World
	scheduler *telemetry.Scheduler
	state     *state.Manager
	metrics   *metrics.Collector
	logger    *logging.Logger

	last sim.Frame
}

// New creates an engine. metrics may be nil.
func New(world *sim.World, scheduler *telemetry.Scheduler, st *state.Manager, m *metrics.Collector, logger *logging.Logger) (*Engine, error) {
	if world == nil || scheduler == nil || st == nil {
		return nil, errors.New("engine: world, scheduler and state are required")
	}
	if logger == nil {
		logger = logging.Discard()
	}
	return &Engine{
		world:     world,
		scheduler: scheduler,
		state:     st,
		metrics:   m,
		logger:    logger,
	}, nil
}

// Step runs one render tick.
func (e *Engine) Step() Tick {
	frame := e.world.Step()
	e.last = frame
	e.metrics.ObserveFrame(len(frame.Particles), frame.Count)

	w, closed := e.scheduler.Tick(frame.Count)
	if closed {
		e.metrics.ObserveWindow(w.Count)
		e.state.RecordWindow(w)
		e.logger.Debug("window closed", "first_tick", w.FirstTick, "last_tick", w.LastTick, "count", w.Count)
	}

	return Tick{Frame: frame, Window: w, Closed: closed}
}

// ApplyPayload hands an inbound payload to the state manager and records the
// result.
func (e *Engine) ApplyPayload(p analytics.Payload) string {
	result := e.state.ApplyPayload(p)
	e.metrics.IncPayload(result)
	if result == metrics.ResultIgnored {
		e.logger.Debug("payload ignored, no region_counts")
	} else {
		e.logger.Debug("payload applied", "history", len(p.RegionCounts), "predictions", len(p.Predictions))
	}
	return result
}

// LastFrame returns the frame produced by the most recent Step.
func (e *Engine) LastFrame() sim.Frame {
	return e.last
}

// World returns the simulated world.
func (e *Engine) World() *sim.World {
	return e.world
}

// Scheduler returns the telemetry scheduler.
func (e *Engine) Scheduler() *telemetry.Scheduler {
	return e.scheduler
}

// State returns the state manager.
func (e *Engine) State() *state.Manager {
	return e.state
}
