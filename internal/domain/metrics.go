package domain

import "time"

// MetricsSnapshot is a read-time aggregation over a bounded sample window;
// it is derived state, never the source of truth.
type MetricsSnapshot struct {
	AvgLatencyMs   float64   `json:"avgLatencyMs"`
	P95LatencyMs   float64   `json:"p95LatencyMs"`
	TPS            float64   `json:"tps"`
	InDepth        int       `json:"inDepth"`
	OutDepth       int       `json:"outDepth"`
	Errors         int64     `json:"errors"`
	TotalProcessed int64     `json:"totalProcessed"`
	LastUpdated    time.Time `json:"lastUpdated"`
}
