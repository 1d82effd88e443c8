package core

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/Xhuk/ContinuityBridge.poc-sub005/internal/adapters/orchestrator"
	"github.com/Xhuk/ContinuityBridge.poc-sub005/internal/domain"
	"github.com/Xhuk/ContinuityBridge.poc-sub005/internal/ports"
)

// Pipeline is the top-level facade: it accepts one of the three input modes,
// drives canonicalization, routing decision and dispatch in order, records
// metrics on success and failure alike, and returns a uniform result.
type Pipeline struct {
	orchestrator *orchestrator.Orchestrator
	resolver     ports.FlowResolver
	transformer  ports.CanonicalTransformer
	decider      ports.OriginDecider
	dispatcher   ports.Dispatcher
	metrics      ports.MetricsCollector
	logger       *slog.Logger
}

type PipelineDeps struct {
	Orchestrator *orchestrator.Orchestrator
	Resolver     ports.FlowResolver
	Transformer  ports.CanonicalTransformer
	Decider      ports.OriginDecider
	Dispatcher   ports.Dispatcher
	Metrics      ports.MetricsCollector
	Logger       *slog.Logger
}

func NewPipeline(deps PipelineDeps) *Pipeline {
	logger := deps.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Pipeline{
		orchestrator: deps.Orchestrator,
		resolver:     deps.Resolver,
		transformer:  deps.Transformer,
		decider:      deps.Decider,
		dispatcher:   deps.Dispatcher,
		metrics:      deps.Metrics,
		logger:       logger.With("component", "pipeline"),
	}
}

// Run executes one pipeline invocation. The returned result always carries
// the trace id and latency; errors surface in Result.Error, never as a Go
// error, so queued and synchronous callers share one contract.
func (p *Pipeline) Run(ctx context.Context, in Input) domain.PipelineResult {
	start := time.Now()

	traceID := in.traceID
	if traceID == "" {
		traceID = uuid.New().String()
	}

	result := domain.PipelineResult{TraceID: traceID}
	logger := p.logger.With("trace_id", traceID, "mode", in.mode.String())

	var canonicalSource interface{}

	switch in.mode {
	case modeFlow:
		run, err := p.runFlow(ctx, in, traceID)
		result.Run = run
		if err != nil {
			result.Error = err.Error()
			p.finish(&result, start, logger)
			return result
		}
		if output, ok := run.LastOutput(); ok {
			canonicalSource = output
		}

	case modeXML:
		if p.transformer == nil {
			result.Error = "no canonical transformer configured"
			p.finish(&result, start, logger)
			return result
		}
		item, err := p.transformer.Transform(in.xml)
		if err != nil {
			result.Error = err.Error()
			p.finish(&result, start, logger)
			return result
		}
		canonicalSource = item

	case modeCanonical:
		canonicalSource = in.canonical

	case modeInvalid:
		panic("pipeline: input was not constructed via FlowInput, XMLInput or CanonicalInput")

	default:
		// A new mode constant without a matching case is a programming
		// error; fail loudly rather than silently skipping work.
		panic(fmt.Sprintf("pipeline: unhandled input mode %d", in.mode))
	}

	result.Success = true

	if item, ok := domain.AsCanonical(canonicalSource); ok && item.Routable() {
		result.Canonical = &item

		decision := p.decider.Decide(item)
		result.Decision = &decision

		result.DispatchResults = p.dispatcher.DispatchToReceivers(ctx, traceID, item, decision)

		logger.Debug("item routed and dispatched",
			"item_id", item.ItemID,
			"warehouse", decision.SelectedWarehouse.ID,
			"receivers", len(result.DispatchResults),
		)
	} else {
		// Not every flow models a warehouse-routing process; a non-routable
		// terminal output skips decision and dispatch by design.
		logger.Debug("output not routable, skipping dispatch")
	}

	p.finish(&result, start, logger)
	return result
}

func (p *Pipeline) runFlow(ctx context.Context, in Input, traceID string) (*domain.FlowRun, error) {
	if p.resolver == nil {
		return nil, fmt.Errorf("no flow resolver configured")
	}

	flow, err := p.resolver.Resolve(ctx, in.flowID)
	if err != nil {
		return nil, fmt.Errorf("resolve flow %s: %w", in.flowID, err)
	}

	run, err := p.orchestrator.ExecuteFlow(ctx, orchestrator.Request{
		Flow:          flow,
		EntryNodeID:   in.entryNodeID,
		Input:         in.flowInput,
		TraceID:       traceID,
		EmulationMode: in.emulationMode,
	})
	if err != nil {
		return nil, err
	}

	if snapshot := run.Snapshot(); snapshot.Status == domain.RunStatusFailed {
		return run, fmt.Errorf("flow run failed: %s", snapshot.Error)
	}
	return run, nil
}

// finish records latency and outcome for every run so error rates and p95
// reflect genuine behavior including failures.
func (p *Pipeline) finish(result *domain.PipelineResult, start time.Time, logger *slog.Logger) {
	elapsed := time.Since(start)
	result.LatencyMs = elapsed.Milliseconds()

	if p.metrics != nil {
		p.metrics.RecordLatency(elapsed)
		if result.Success {
			p.metrics.RecordProcessed()
		} else {
			p.metrics.RecordError()
		}
	}

	if result.Success {
		logger.Info("pipeline run completed", "latency_ms", result.LatencyMs)
	} else {
		logger.Warn("pipeline run failed", "latency_ms", result.LatencyMs, "error", result.Error)
	}
}
