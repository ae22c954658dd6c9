package headless

import (
	"bytes"
	"context"
	"encoding/json"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/litescript/ls-meteors/internal/analytics"
	"github.com/litescript/ls-meteors/internal/engine"
	"github.com/litescript/ls-meteors/internal/sim"
	"github.com/litescript/ls-meteors/internal/state"
	"github.com/litescript/ls-meteors/internal/telemetry"
)

type nopEmitter struct{}

func (nopEmitter) EmitMeteorInRegion(int) {}
func (nopEmitter) RequestGraphData()      {}

// syncBuffer guards a bytes.Buffer written by the runner and read by the test.
type syncBuffer struct {
	mu  sync.Mutex
	buf bytes.Buffer
}

func (b *syncBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.Write(p)
}

func (b *syncBuffer) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.String()
}

func newEngine(t *testing.T, cadence int) *engine.Engine {
	t.Helper()
	cfg := sim.DefaultConfig()
	cfg.Seed = 9
	sched, err := telemetry.NewScheduler(cadence, nopEmitter{})
	require.NoError(t, err)
	eng, err := engine.New(sim.NewWorld(cfg), sched, state.NewManager(state.DefaultConfig()), nil, nil)
	require.NoError(t, err)
	return eng
}

func samplePayload() analytics.Payload {
	return analytics.Payload{
		RegionCounts: []float64{3, 5, 2},
		Predictions:  []float64{4, 6},
		LowerBound:   []float64{2, 3},
		UpperBound:   []float64{6, 9},
		Markov: &analytics.MarkovData{
			States:       []string{"low", "medium"},
			Rates:        []float64{1.5, 3},
			CurrentIndex: 1,
		},
		Timestamp: 1700000000,
	}
}

func TestRunnerWritesWindowsUntilMaxTicks(t *testing.T) {
	var out syncBuffer
	r := &Runner{
		Engine:        newEngine(t, 10),
		FrameInterval: time.Millisecond,
		Out:           &out,
		MaxTicks:      30,
	}

	require.NoError(t, r.Run(context.Background()))

	text := out.String()
	assert.Equal(t, 3, strings.Count(text, "window  ticks"))
	assert.Contains(t, text, "ticks 21-30")
}

func TestRunnerAppliesPayloads(t *testing.T) {
	var out syncBuffer
	payloads := make(chan analytics.Payload, 2)
	payloads <- analytics.Payload{} // Ignored: no history
	payloads <- samplePayload()
	close(payloads)

	eng := newEngine(t, 5)
	r := &Runner{
		Engine:        eng,
		Payloads:      payloads,
		FrameInterval: time.Millisecond,
		Out:           &out,
	}

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- r.Run(ctx) }()

	require.Eventually(t, func() bool {
		return strings.Contains(out.String(), "Current Rate: 2.00")
	}, 2*time.Second, 5*time.Millisecond)

	// The closed channel must not stop the simulation.
	require.Eventually(t, func() bool {
		text := out.String()
		idx := strings.Index(text, "Current Rate: 2.00")
		return strings.Contains(text[idx:], "window  ticks")
	}, 2*time.Second, 5*time.Millisecond)

	cancel()
	require.NoError(t, <-done)

	snap := eng.State().Snapshot()
	assert.Equal(t, 1, snap.Charts.Updates)
	assert.Equal(t, 1, snap.Ignored)
}

func TestRunnerJSONOutput(t *testing.T) {
	var out syncBuffer
	payloads := make(chan analytics.Payload, 1)
	payloads <- samplePayload()

	r := &Runner{
		Engine:        newEngine(t, 1000),
		Payloads:      payloads,
		FrameInterval: time.Millisecond,
		Out:           &out,
		JSON:          true,
		Quiet:         true,
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go func() { _ = r.Run(ctx) }()

	require.Eventually(t, func() bool { return strings.Contains(out.String(), "\n") }, 2*time.Second, 5*time.Millisecond)
	cancel()

	line := strings.SplitN(out.String(), "\n", 2)[0]
	var got map[string]any
	require.NoError(t, json.Unmarshal([]byte(line), &got))

	assert.Equal(t, []any{"T1", "T2", "T3", "T4", "T5"}, got["labels"])
	assert.Equal(t, []any{3.0, 5.0, 2.0, nil, nil}, got["historical"])
	assert.Equal(t, []any{nil, nil, nil, 4.0, 6.0}, got["forecast"])

	band := got["band"].([]any)
	require.Len(t, band, 5)
	assert.Nil(t, band[0])
	assert.Equal(t, map[string]any{"x": "T4", "index": 4.0, "y": 2.0, "y1": 6.0}, band[3])

	summary := got["summary"].(map[string]any)
	assert.Equal(t, "2.00", summary["current_rate"])
	assert.Equal(t, "4.00", summary["next_prediction"])
	assert.Equal(t, "95%", summary["confidence"])
	assert.NotNil(t, got["updated_at"])
}

func TestRunnerValidation(t *testing.T) {
	r := &Runner{}
	assert.Error(t, r.Run(context.Background()))

	r = &Runner{Engine: newEngine(t, 30), Out: &bytes.Buffer{}}
	assert.Error(t, r.Run(context.Background()))
}

func TestWriteSummaryTable(t *testing.T) {
	charts, ok := analytics.Charts{}.Apply(samplePayload())
	require.True(t, ok)

	var buf bytes.Buffer
	WriteSummaryTable(&buf, charts, time.Unix(1700000000, 0).UTC())
	text := buf.String()

	assert.Contains(t, text, "Region Analytics @ 2023-11-14T22:13:20Z")
	assert.Contains(t, text, "T4")
	assert.Contains(t, text, "6.00")
	assert.Contains(t, text, "Confidence: 95%")
	assert.Contains(t, text, "medium")
	assert.Contains(t, text, "<- current")
}

func TestWriteSummaryTableEmptyHistory(t *testing.T) {
	charts, ok := analytics.Charts{}.Apply(analytics.Payload{RegionCounts: []float64{}})
	require.True(t, ok)

	var buf bytes.Buffer
	WriteSummaryTable(&buf, charts, time.Now())
	assert.Contains(t, buf.String(), "No history")
	assert.Contains(t, buf.String(), "Current Rate: -")
}

func TestWriteWindow(t *testing.T) {
	var buf bytes.Buffer
	WriteWindow(&buf, telemetry.Window{FirstTick: 31, LastTick: 60, Count: 17})
	assert.Equal(t, "window  ticks 31-60  meteor_in_region 17\n", buf.String())
}
