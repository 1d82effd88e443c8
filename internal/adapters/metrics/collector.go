package metrics

import (
	"sort"
	"sync"
	"time"

	"github.com/Xhuk/ContinuityBridge.poc-sub005/internal/domain"
	"github.com/Xhuk/ContinuityBridge.poc-sub005/internal/ports"
)

type sample struct {
	at      time.Time
	latency time.Duration
}

// Collector aggregates latency, throughput, error counts and queue depths
// over a sliding time window. Snapshots are recomputed at read time from the
// retained samples; the collector is never the source of truth.
type Collector struct {
	window time.Duration
	prom   *PromMetrics

	mu             sync.Mutex
	samples        []sample
	errors         int64
	totalProcessed int64
	inDepth        int
	outDepth       int
}

var _ ports.MetricsCollector = (*Collector)(nil)

func NewCollector(window time.Duration, prom *PromMetrics) *Collector {
	if window <= 0 {
		window = domain.DefaultMetricsWindow
	}
	return &Collector{
		window: window,
		prom:   prom,
	}
}

func (c *Collector) RecordLatency(d time.Duration) {
	c.mu.Lock()
	c.samples = append(c.samples, sample{at: time.Now(), latency: d})
	c.pruneLocked(time.Now())
	c.mu.Unlock()

	if c.prom != nil {
		c.prom.ObserveLatency(d)
	}
}

func (c *Collector) RecordProcessed() {
	c.mu.Lock()
	c.totalProcessed++
	c.mu.Unlock()

	if c.prom != nil {
		c.prom.IncProcessed()
	}
}

func (c *Collector) RecordError() {
	c.mu.Lock()
	c.errors++
	c.mu.Unlock()

	if c.prom != nil {
		c.prom.IncErrors()
	}
}

func (c *Collector) SetQueueDepths(in, out int) {
	c.mu.Lock()
	c.inDepth = in
	c.outDepth = out
	c.mu.Unlock()

	if c.prom != nil {
		c.prom.SetDepths(in, out)
	}
}

func (c *Collector) pruneLocked(now time.Time) {
	cutoff := now.Add(-c.window)
	idx := 0
	for idx < len(c.samples) && c.samples[idx].at.Before(cutoff) {
		idx++
	}
	if idx > 0 {
		c.samples = append(c.samples[:0], c.samples[idx:]...)
	}
}

func (c *Collector) Snapshot() domain.MetricsSnapshot {
	c.mu.Lock()
	defer c.mu.Unlock()

	now := time.Now()
	c.pruneLocked(now)

	snapshot := domain.MetricsSnapshot{
		InDepth:        c.inDepth,
		OutDepth:       c.outDepth,
		Errors:         c.errors,
		TotalProcessed: c.totalProcessed,
		LastUpdated:    now,
	}

	if len(c.samples) == 0 {
		return snapshot
	}

	latencies := make([]float64, len(c.samples))
	var total float64
	for i, s := range c.samples {
		ms := float64(s.latency.Microseconds()) / 1000.0
		latencies[i] = ms
		total += ms
	}
	sort.Float64s(latencies)

	snapshot.AvgLatencyMs = total / float64(len(latencies))
	snapshot.P95LatencyMs = percentile(latencies, 0.95)
	snapshot.TPS = float64(len(c.samples)) / c.window.Seconds()

	return snapshot
}

// percentile expects a sorted slice; nearest-rank method.
func percentile(sorted []float64, p float64) float64 {
	if len(sorted) == 0 {
		return 0
	}
	rank := int(p*float64(len(sorted))+0.5) - 1
	if rank < 0 {
		rank = 0
	}
	if rank >= len(sorted) {
		rank = len(sorted) - 1
	}
	return sorted[rank]
}
