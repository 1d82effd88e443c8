package core

import (
	"context"
	"fmt"
	"log/slog"

	json "github.com/goccy/go-json"

	"github.com/Xhuk/ContinuityBridge.poc-sub005/internal/domain"
	"github.com/Xhuk/ContinuityBridge.poc-sub005/internal/ports"
)

// IngestEnvelope is the wire shape of a queued pipeline request.
type IngestEnvelope struct {
	TraceID       string                `json:"trace_id,omitempty"`
	Mode          string                `json:"mode"`
	FlowID        string                `json:"flow_id,omitempty"`
	EntryNodeID   string                `json:"entry_node_id,omitempty"`
	FlowInput     json.RawMessage       `json:"flow_input,omitempty"`
	XML           string                `json:"xml,omitempty"`
	Canonical     *domain.CanonicalItem `json:"canonical,omitempty"`
	EmulationMode bool                  `json:"emulation_mode,omitempty"`
}

// IngestWorker consumes queued pipeline requests and applies the retry
// policy: Ack on success, DeadLetter once the retry budget is exhausted,
// Fail otherwise. This is the single place retry-exhaustion policy lives;
// the queue itself never promotes a message to the dead-letter store.
type IngestWorker struct {
	queue    ports.QueueProvider
	pipeline *Pipeline
	metrics  ports.MetricsCollector
	topic    string
	logger   *slog.Logger
	stop     func()
}

func NewIngestWorker(queue ports.QueueProvider, pipeline *Pipeline, metrics ports.MetricsCollector, topic string, logger *slog.Logger) *IngestWorker {
	if logger == nil {
		logger = slog.Default()
	}
	return &IngestWorker{
		queue:    queue,
		pipeline: pipeline,
		metrics:  metrics,
		topic:    topic,
		logger:   logger.With("component", "ingest-worker", "topic", topic),
	}
}

func (w *IngestWorker) Start(opts ports.ConsumeOptions) error {
	stop, err := w.queue.Consume(w.topic, w.handle, opts)
	if err != nil {
		return err
	}
	w.stop = stop
	w.logger.Info("ingest worker started")
	return nil
}

func (w *IngestWorker) Stop() {
	if w.stop != nil {
		w.stop()
		w.logger.Info("ingest worker stopped")
	}
}

func (w *IngestWorker) handle(ctx context.Context, delivery ports.Delivery) {
	msg := delivery.Message()

	var envelope IngestEnvelope
	if err := json.Unmarshal(msg.Payload, &envelope); err != nil {
		// A payload that cannot decode will never succeed; retrying it only
		// delays the dead-letter verdict.
		if dlErr := delivery.DeadLetter("malformed envelope: " + err.Error()); dlErr != nil {
			w.logger.Error("failed to dead-letter malformed envelope", "error", dlErr.Error())
		}
		w.updateDepths()
		return
	}

	input, err := envelope.ToInput()
	if err != nil {
		if dlErr := delivery.DeadLetter(err.Error()); dlErr != nil {
			w.logger.Error("failed to dead-letter invalid envelope", "error", dlErr.Error())
		}
		w.updateDepths()
		return
	}

	result := w.pipeline.Run(ctx, input)
	if result.Success {
		if err := delivery.Ack(); err != nil {
			w.logger.Error("ack failed", "trace_id", result.TraceID, "error", err.Error())
		}
		w.updateDepths()
		return
	}

	if msg.RetryCount >= msg.MaxRetries {
		w.logger.Warn("retry budget exhausted, dead-lettering",
			"trace_id", result.TraceID,
			"retry_count", msg.RetryCount,
			"max_retries", msg.MaxRetries,
		)
		if err := delivery.DeadLetter(result.Error); err != nil {
			w.logger.Error("dead-letter failed", "trace_id", result.TraceID, "error", err.Error())
		}
	} else {
		if err := delivery.Fail(nil); err != nil {
			w.logger.Error("fail failed", "trace_id", result.TraceID, "error", err.Error())
		}
	}
	w.updateDepths()
}

// Marshal encodes the envelope for enqueueing.
func (e *IngestEnvelope) Marshal() ([]byte, error) {
	return json.Marshal(e)
}

// ToInput converts the wire envelope to a typed pipeline input.
func (e *IngestEnvelope) ToInput() (Input, error) {
	var in Input
	switch e.Mode {
	case "flow":
		var flowInput interface{}
		if len(e.FlowInput) > 0 {
			if err := json.Unmarshal(e.FlowInput, &flowInput); err != nil {
				return in, fmt.Errorf("malformed flow input: %w", err)
			}
		}
		in = FlowInput(e.FlowID, flowInput).WithEntryNode(e.EntryNodeID)
	case "xml":
		in = XMLInput([]byte(e.XML))
	case "canonical":
		if e.Canonical == nil {
			return in, fmt.Errorf("canonical envelope carries no item")
		}
		in = CanonicalInput(*e.Canonical)
	default:
		return in, fmt.Errorf("unknown envelope mode %q", e.Mode)
	}
	return in.WithTraceID(e.TraceID).WithEmulation(e.EmulationMode), nil
}

func (w *IngestWorker) updateDepths() {
	if w.metrics == nil {
		return
	}
	in, err := w.queue.Depth(w.topic)
	if err != nil {
		return
	}
	out, err := w.queue.DeadLetterDepth(w.topic)
	if err != nil {
		return
	}
	w.metrics.SetQueueDepths(in, out)
}
