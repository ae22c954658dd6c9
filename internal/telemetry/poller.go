package telemetry

import (
	"context"
	"time"
)

// DefaultPollInterval is the wall-clock period between graph data requests.
const DefaultPollInterval = 2 * time.Second

// Poller requests graph data on a fixed wall-clock period, independent of
// the render cadence.
type Poller struct {
	interval time.Duration
	emitter  Emitter
}

// NewPoller creates a poller. A non-positive interval uses DefaultPollInterval.
func NewPoller(interval time.Duration, emitter Emitter) *Poller {
	if interval <= 0 {
		interval = DefaultPollInterval
	}
	return &Poller{interval: interval, emitter: emitter}
}

// Run requests graph data every interval until ctx is cancelled.
// The first request goes out after one full interval.
func (p *Poller) Run(ctx context.Context) {
	ticker := time.NewTicker(p.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			p.emitter.RequestGraphData()
		}
	}
}

// Interval returns the polling period.
func (p *Poller) Interval() time.Duration {
	return p.interval
}
