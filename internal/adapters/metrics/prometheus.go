package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// PromMetrics mirrors the collector's counters into a prometheus registry so
// dashboards can scrape the same figures the snapshot endpoint reports.
type PromMetrics struct {
	ItemsProcessed  prometheus.Counter
	ErrorsTotal     prometheus.Counter
	PipelineLatency prometheus.Histogram
	InboundDepth    prometheus.Gauge
	DeadLetterDepth prometheus.Gauge
}

func NewPromMetrics(registry *prometheus.Registry) *PromMetrics {
	m := &PromMetrics{
		ItemsProcessed: prometheus.NewCounter(
			prometheus.CounterOpts{
				Namespace: "continuitybridge",
				Subsystem: "pipeline",
				Name:      "items_processed_total",
				Help:      "Total number of items processed by the pipeline",
			},
		),
		ErrorsTotal: prometheus.NewCounter(
			prometheus.CounterOpts{
				Namespace: "continuitybridge",
				Subsystem: "pipeline",
				Name:      "errors_total",
				Help:      "Total number of pipeline failures",
			},
		),
		PipelineLatency: prometheus.NewHistogram(
			prometheus.HistogramOpts{
				Namespace: "continuitybridge",
				Subsystem: "pipeline",
				Name:      "latency_seconds",
				Help:      "End-to-end pipeline latency in seconds",
				Buckets:   prometheus.DefBuckets,
			},
		),
		InboundDepth: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Namespace: "continuitybridge",
				Subsystem: "queue",
				Name:      "inbound_depth",
				Help:      "Number of messages waiting on the inbound topic",
			},
		),
		DeadLetterDepth: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Namespace: "continuitybridge",
				Subsystem: "queue",
				Name:      "dead_letter_depth",
				Help:      "Number of messages in the dead-letter store",
			},
		),
	}

	if registry != nil {
		registry.MustRegister(
			m.ItemsProcessed,
			m.ErrorsTotal,
			m.PipelineLatency,
			m.InboundDepth,
			m.DeadLetterDepth,
		)
	}
	return m
}

func (m *PromMetrics) ObserveLatency(d time.Duration) {
	m.PipelineLatency.Observe(d.Seconds())
}

func (m *PromMetrics) IncProcessed() {
	m.ItemsProcessed.Inc()
}

func (m *PromMetrics) IncErrors() {
	m.ErrorsTotal.Inc()
}

func (m *PromMetrics) SetDepths(in, out int) {
	m.InboundDepth.Set(float64(in))
	m.DeadLetterDepth.Set(float64(out))
}
