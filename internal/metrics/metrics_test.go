package metrics

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCollectorRecordsFramesAndWindows(t *testing.T) {
	reg := prometheus.NewRegistry()
	c, err := NewCollector(reg)
	require.NoError(t, err)

	c.ObserveFrame(31, 4)
	c.ObserveFrame(29, 6)
	c.ObserveWindow(120)

	assert.Equal(t, 2.0, testutil.ToFloat64(c.Frames))
	assert.Equal(t, 29.0, testutil.ToFloat64(c.LiveParticles))
	assert.Equal(t, 6.0, testutil.ToFloat64(c.RegionOccupancy))
	assert.Equal(t, 120.0, testutil.ToFloat64(c.WindowCount))
}

func TestCollectorCountsEventsAndPayloads(t *testing.T) {
	reg := prometheus.NewRegistry()
	c, err := NewCollector(reg)
	require.NoError(t, err)

	c.IncEvent("get_graph_data")
	c.IncEvent("get_graph_data")
	c.IncEvent("meteor_in_region")
	c.IncDropped("meteor_in_region")
	c.IncPayload(ResultApplied)
	c.IncPayload(ResultIgnored)
	c.IncPayload(ResultIgnored)
	c.SetConnected(true)

	assert.Equal(t, 2.0, testutil.ToFloat64(c.Events.WithLabelValues("get_graph_data")))
	assert.Equal(t, 1.0, testutil.ToFloat64(c.Events.WithLabelValues("meteor_in_region")))
	assert.Equal(t, 1.0, testutil.ToFloat64(c.DroppedEvents.WithLabelValues("meteor_in_region")))
	assert.Equal(t, 2.0, testutil.ToFloat64(c.Payloads.WithLabelValues(ResultIgnored)))
	assert.Equal(t, 1.0, testutil.ToFloat64(c.Connected))

	c.SetConnected(false)
	assert.Equal(t, 0.0, testutil.ToFloat64(c.Connected))
}

func TestNilCollectorIsSafe(t *testing.T) {
	var c *Collector
	assert.NotPanics(t, func() {
		c.ObserveFrame(1, 1)
		c.ObserveWindow(1)
		c.IncEvent("x")
		c.IncDropped("x")
		c.IncPayload(ResultInvalid)
		c.SetConnected(true)
	})
}

func TestNewCollectorReusesRegisteredMetrics(t *testing.T) {
	reg := prometheus.NewRegistry()
	first, err := NewCollector(reg)
	require.NoError(t, err)
	second, err := NewCollector(reg)
	require.NoError(t, err)

	first.Frames.Inc()
	assert.Equal(t, 1.0, testutil.ToFloat64(second.Frames))
}

func TestHandlerExposesMetrics(t *testing.T) {
	reg := prometheus.NewRegistry()
	c, err := NewCollector(reg)
	require.NoError(t, err)
	c.ObserveFrame(10, 2)
	c.IncPayload(ResultApplied)

	req := httptest.NewRequest(http.MethodGet, "/metrics", nil)
	rr := httptest.NewRecorder()
	c.Handler().ServeHTTP(rr, req)

	require.Equal(t, http.StatusOK, rr.Code)
	body, err := io.ReadAll(rr.Body)
	require.NoError(t, err)
	text := string(body)

	for _, name := range []string{
		"meteors_frames_total 1",
		"meteors_live_particles 10",
		"meteors_region_occupancy 2",
		`meteors_payloads_total{result="applied"} 1`,
	} {
		assert.True(t, strings.Contains(text, name), "metrics output missing %q", name)
	}
}

func TestListenAndServeStopsOnCancel(t *testing.T) {
	c, err := NewCollector(prometheus.NewRegistry())
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- c.ListenAndServe(ctx, "127.0.0.1:0") }()

	cancel()
	require.NoError(t, <-done)
}

func TestListenAndServeBadAddr(t *testing.T) {
	c, err := NewCollector(prometheus.NewRegistry())
	require.NoError(t, err)

	err = c.ListenAndServe(context.Background(), "not-an-address")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "serve metrics")
}
