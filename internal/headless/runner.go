package headless

import (
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/litescript/ls-meteors/internal/analytics"
	"github.com/litescript/ls-meteors/internal/engine"
	"github.com/litescript/ls-meteors/internal/logging"
	"github.com/litescript/ls-meteors/internal/metrics"
)

// Runner drives the engine from a wall-clock ticker. A single select loop
// owns the engine, so frames and payload merges never run concurrently.
type Runner struct {
	Engine        *engine.Engine
	Payloads      <-chan analytics.Payload
	FrameInterval time.Duration
	Out           io.Writer
	JSON          bool // Write chart updates as JSON lines instead of tables
	Quiet         bool // Suppress per-window lines
	Logger        *logging.Logger
	// MaxTicks stops the run after this many ticks; 0 runs until ctx is done.
	MaxTicks uint64
}

// Run blocks until ctx is cancelled or MaxTicks is reached.
func (r *Runner) Run(ctx context.Context) error {
	if r.Engine == nil || r.Out == nil {
		return errors.New("headless: engine and output are required")
	}
	if r.FrameInterval <= 0 {
		return fmt.Errorf("headless: frame interval must be positive, got %s", r.FrameInterval)
	}
	logger := r.Logger
	if logger == nil {
		logger = logging.Discard()
	}

	ticker := time.NewTicker(r.FrameInterval)
	defer ticker.Stop()

	payloads := r.Payloads
	for {
		select {
		case <-ctx.Done():
			logger.Debug("headless loop shutting down")
			return nil

		case <-ticker.C:
			tick := r.Engine.Step()
			if tick.Closed && !r.Quiet {
				WriteWindow(r.Out, tick.Window)
			}
			if r.MaxTicks > 0 && tick.Frame.Tick >= r.MaxTicks {
				return nil
			}

		case p, ok := <-payloads:
			if !ok {
				// Channel closed: keep simulating without analytics.
				payloads = nil
				continue
			}
			if err := r.handlePayload(p); err != nil {
				return err
			}
		}
	}
}

func (r *Runner) handlePayload(p analytics.Payload) error {
	if r.Engine.ApplyPayload(p) != metrics.ResultApplied {
		return nil
	}

	charts := r.Engine.State().Charts()
	now := time.Now()
	if r.JSON {
		if err := ExportCharts(charts, now).WriteJSON(r.Out); err != nil {
			return fmt.Errorf("write charts JSON: %w", err)
		}
		return nil
	}
	WriteSummaryTable(r.Out, charts, now)
	return nil
}
