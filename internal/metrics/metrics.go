// Package metrics exposes Prometheus metrics for the simulation loop and the
// analytics channel. All recorder methods are safe on a nil *Collector.
package metrics

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Payload results for PayloadsTotal.
const (
	ResultApplied = "applied"
	ResultIgnored = "ignored"
	ResultInvalid = "invalid"
)

// Collector bundles the application's Prometheus metrics.
type Collector struct {
	gatherer prometheus.Gatherer

	Frames        prometheus.Counter
	Events        *prometheus.CounterVec
	DroppedEvents *prometheus.CounterVec
	Payloads      *prometheus.CounterVec

	LiveParticles   prometheus.Gauge
	RegionOccupancy prometheus.Gauge
	WindowCount     prometheus.Gauge
	Connected       prometheus.Gauge
}

// NewCollector registers metrics against reg, or the default registry when
// reg is nil.
func NewCollector(reg prometheus.Registerer) (*Collector, error) {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	gatherer := prometheus.DefaultGatherer
	if g, ok := reg.(prometheus.Gatherer); ok {
		gatherer = g
	}

	c := &Collector{gatherer: gatherer}
	var err error

	if c.Frames, err = registerCounter(reg, prometheus.NewCounter(prometheus.CounterOpts{
		Name: "meteors_frames_total",
		Help: "Simulation ticks rendered.",
	}), "meteors_frames_total"); err != nil {
		return nil, err
	}

	if c.Events, err = registerCounterVec(reg, prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "meteors_events_emitted_total",
		Help: "Outbound events handed to the message channel, by event name.",
	}, []string{"event"}), "meteors_events_emitted_total"); err != nil {
		return nil, err
	}

	if c.DroppedEvents, err = registerCounterVec(reg, prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "meteors_events_dropped_total",
		Help: "Outbound events dropped because the channel was full or disconnected.",
	}, []string{"event"}), "meteors_events_dropped_total"); err != nil {
		return nil, err
	}

	if c.Payloads, err = registerCounterVec(reg, prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "meteors_payloads_total",
		Help: "Inbound graph_data payloads, by result (applied, ignored, invalid).",
	}, []string{"result"}), "meteors_payloads_total"); err != nil {
		return nil, err
	}

	if c.LiveParticles, err = registerGauge(reg, prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "meteors_live_particles",
		Help: "Meteors currently on the surface.",
	}), "meteors_live_particles"); err != nil {
		return nil, err
	}

	if c.RegionOccupancy, err = registerGauge(reg, prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "meteors_region_occupancy",
		Help: "Meteors inside the watched region on the latest tick.",
	}), "meteors_region_occupancy"); err != nil {
		return nil, err
	}

	if c.WindowCount, err = registerGauge(reg, prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "meteors_window_count",
		Help: "Occupancy tally of the last closed cadence window.",
	}), "meteors_window_count"); err != nil {
		return nil, err
	}

	if c.Connected, err = registerGauge(reg, prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "meteors_channel_connected",
		Help: "1 while the analytics channel is connected.",
	}), "meteors_channel_connected"); err != nil {
		return nil, err
	}

	return c, nil
}

// Handler exposes a ready-to-use /metrics handler.
func (c *Collector) Handler() http.Handler {
	gatherer := prometheus.DefaultGatherer
	if c != nil && c.gatherer != nil {
		gatherer = c.gatherer
	}
	return promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{})
}

// ListenAndServe serves /metrics on addr until ctx ends.
func (c *Collector) ListenAndServe(ctx context.Context, addr string) error {
	mux := http.NewServeMux()
	mux.Handle("/metrics", c.Handler())
	srv := &http.Server{
		Addr:              addr,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}

	serveErr := make(chan error, 1)
	go func() {
		serveErr <- srv.ListenAndServe()
	}()

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		err := srv.Shutdown(shutdownCtx)
		cancel()
		if err != nil {
			return fmt.Errorf("shutdown metrics server: %w", err)
		}
		return nil
	case err := <-serveErr:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return fmt.Errorf("serve metrics: %w", err)
	}
}

// ObserveFrame records one simulation tick.
func (c *Collector) ObserveFrame(live, inRegion int) {
	if c == nil {
		return
	}
	c.Frames.Inc()
	c.LiveParticles.Set(float64(live))
	c.RegionOccupancy.Set(float64(inRegion))
}

// ObserveWindow records a closed cadence window.
func (c *Collector) ObserveWindow(count int) {
	if c == nil {
		return
	}
	c.WindowCount.Set(float64(count))
}

// IncEvent counts an outbound event handed to the channel.
func (c *Collector) IncEvent(event string) {
	if c == nil {
		return
	}
	c.Events.WithLabelValues(event).Inc()
}

// IncDropped counts an outbound event that was dropped.
func (c *Collector) IncDropped(event string) {
	if c == nil {
		return
	}
	c.DroppedEvents.WithLabelValues(event).Inc()
}

// IncPayload counts an inbound payload by result.
func (c *Collector) IncPayload(result string) {
	if c == nil {
		return
	}
	c.Payloads.WithLabelValues(result).Inc()
}

// SetConnected records the channel connection state.
func (c *Collector) SetConnected(connected bool) {
	if c == nil {
		return
	}
	v := 0.0
	if connected {
		v = 1
	}
	c.Connected.Set(v)
}

func registerCounter(reg prometheus.Registerer, counter prometheus.Counter, name string) (prometheus.Counter, error) {
	if err := reg.Register(counter); err != nil {
		if are, ok := err.(prometheus.AlreadyRegisteredError); ok {
			if existing, ok := are.ExistingCollector.(prometheus.Counter); ok {
				return existing, nil
			}
			return nil, fmt.Errorf("collector %s already registered with incompatible type", name)
		}
		return nil, err
	}
	return counter, nil
}

func registerCounterVec(reg prometheus.Registerer, vec *prometheus.CounterVec, name string) (*prometheus.CounterVec, error) {
	if err := reg.Register(vec); err != nil {
		if are, ok := err.(prometheus.AlreadyRegisteredError); ok {
			if existing, ok := are.ExistingCollector.(*prometheus.CounterVec); ok {
				return existing, nil
			}
			return nil, fmt.Errorf("collector %s already registered with incompatible type", name)
		}
		return nil, err
	}
	return vec, nil
}

func registerGauge(reg prometheus.Registerer, gauge prometheus.Gauge, name string) (prometheus.Gauge, error) {
	if err := reg.Register(gauge); err != nil {
		if are, ok := err.(prometheus.AlreadyRegisteredError); ok {
			if existing, ok := are.ExistingCollector.(prometheus.Gauge); ok {
				return existing, nil
			}
			return nil, fmt.Errorf("collector %s already registered with incompatible type", name)
		}
		return nil, err
	}
	return gauge, nil
}
