package metrics

import (
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSnapshotEmpty(t *testing.T) {
	c := NewCollector(time.Minute, nil)

	snapshot := c.Snapshot()
	assert.Zero(t, snapshot.AvgLatencyMs)
	assert.Zero(t, snapshot.P95LatencyMs)
	assert.Zero(t, snapshot.TPS)
	assert.Zero(t, snapshot.TotalProcessed)
	assert.Zero(t, snapshot.Errors)
	assert.False(t, snapshot.LastUpdated.IsZero())
}

func TestSnapshotAggregatesLatencies(t *testing.T) {
	c := NewCollector(time.Minute, nil)

	c.RecordLatency(10 * time.Millisecond)
	c.RecordLatency(20 * time.Millisecond)
	c.RecordLatency(30 * time.Millisecond)

	snapshot := c.Snapshot()
	assert.InDelta(t, 20.0, snapshot.AvgLatencyMs, 0.5)
	assert.InDelta(t, 30.0, snapshot.P95LatencyMs, 0.5)
	assert.InDelta(t, 3.0/60.0, snapshot.TPS, 0.01)
}

func TestP95NearestRank(t *testing.T) {
	c := NewCollector(time.Minute, nil)

	// 100 samples, 1ms..100ms. Nearest-rank p95 is the 95th value.
	for i := 1; i <= 100; i++ {
		c.RecordLatency(time.Duration(i) * time.Millisecond)
	}

	snapshot := c.Snapshot()
	assert.InDelta(t, 95.0, snapshot.P95LatencyMs, 0.5)
}

func TestCounters(t *testing.T) {
	c := NewCollector(time.Minute, nil)

	c.RecordProcessed()
	c.RecordProcessed()
	c.RecordError()

	snapshot := c.Snapshot()
	assert.Equal(t, int64(2), snapshot.TotalProcessed)
	assert.Equal(t, int64(1), snapshot.Errors)
}

func TestQueueDepths(t *testing.T) {
	c := NewCollector(time.Minute, nil)

	c.SetQueueDepths(12, 3)

	snapshot := c.Snapshot()
	assert.Equal(t, 12, snapshot.InDepth)
	assert.Equal(t, 3, snapshot.OutDepth)
}

func TestWindowPrunesOldSamples(t *testing.T) {
	c := NewCollector(50*time.Millisecond, nil)

	c.RecordLatency(10 * time.Millisecond)
	time.Sleep(80 * time.Millisecond)
	c.RecordLatency(40 * time.Millisecond)

	// Only the recent sample survives the window.
	snapshot := c.Snapshot()
	assert.InDelta(t, 40.0, snapshot.AvgLatencyMs, 0.5)
	assert.InDelta(t, 40.0, snapshot.P95LatencyMs, 0.5)
}

func TestCountersSurviveWindowPruning(t *testing.T) {
	c := NewCollector(20*time.Millisecond, nil)

	c.RecordProcessed()
	c.RecordError()
	time.Sleep(40 * time.Millisecond)

	// Totals are lifetime counters, not windowed.
	snapshot := c.Snapshot()
	assert.Equal(t, int64(1), snapshot.TotalProcessed)
	assert.Equal(t, int64(1), snapshot.Errors)
}

func TestCollectorWithPrometheus(t *testing.T) {
	registry := prometheus.NewRegistry()
	prom := NewPromMetrics(registry)
	c := NewCollector(time.Minute, prom)

	c.RecordLatency(5 * time.Millisecond)
	c.RecordProcessed()
	c.RecordError()
	c.SetQueueDepths(2, 1)

	families, err := registry.Gather()
	require.NoError(t, err)
	assert.NotEmpty(t, families)

	names := make(map[string]bool, len(families))
	for _, family := range families {
		names[family.GetName()] = true
	}
	assert.True(t, names["continuitybridge_pipeline_items_processed_total"])
	assert.True(t, names["continuitybridge_pipeline_errors_total"])
	assert.True(t, names["continuitybridge_pipeline_latency_seconds"])
	assert.True(t, names["continuitybridge_queue_inbound_depth"])
	assert.True(t, names["continuitybridge_queue_dead_letter_depth"])
}

func TestPercentileBounds(t *testing.T) {
	assert.Zero(t, percentile(nil, 0.95))
	assert.Equal(t, 7.0, percentile([]float64{7}, 0.95))
	assert.Equal(t, 1.0, percentile([]float64{1, 2}, 0.0))
}
