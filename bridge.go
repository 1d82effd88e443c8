// Package continuitybridge is the execution and delivery engine of the
// ContinuityBridge integration middleware. Customers push business documents
// through configurable transformation flows that normalize vendor formats
// into a canonical representation, decide a routing target, and dispatch to
// downstream receivers.
//
// The engine wires together a retry-aware message queue with a dead-letter
// store, a flow orchestrator executing a directed graph of node executors,
// a declarative XML-to-canonical transformer, a rule-based origin decider,
// a receiver fan-out dispatcher, and a sliding-window metrics collector.
//
// Basic usage:
//
//	engine, err := continuitybridge.New(continuitybridge.Options{
//	    Config:    config,
//	    Receivers: []continuitybridge.Receiver{warehouseAPI},
//	})
//	engine.RegisterExecutor(&ParseNode{})
//	result := engine.Run(ctx, continuitybridge.CanonicalInput(item))
package continuitybridge

import (
	"context"
	"log/slog"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/Xhuk/ContinuityBridge.poc-sub005/internal/adapters/dispatch"
	"github.com/Xhuk/ContinuityBridge.poc-sub005/internal/adapters/metrics"
	"github.com/Xhuk/ContinuityBridge.poc-sub005/internal/adapters/nodes"
	"github.com/Xhuk/ContinuityBridge.poc-sub005/internal/adapters/orchestrator"
	"github.com/Xhuk/ContinuityBridge.poc-sub005/internal/adapters/queue"
	"github.com/Xhuk/ContinuityBridge.poc-sub005/internal/adapters/registry"
	"github.com/Xhuk/ContinuityBridge.poc-sub005/internal/adapters/routing"
	"github.com/Xhuk/ContinuityBridge.poc-sub005/internal/adapters/storage"
	"github.com/Xhuk/ContinuityBridge.poc-sub005/internal/adapters/transform"
	"github.com/Xhuk/ContinuityBridge.poc-sub005/internal/core"
	"github.com/Xhuk/ContinuityBridge.poc-sub005/internal/domain"
	"github.com/Xhuk/ContinuityBridge.poc-sub005/internal/ports"
)

// Options configures engine construction. Receivers, routing rules, the
// field mapping and the flow resolver are collaborators supplied by the host
// application; everything else has defaults.
type Options struct {
	Config       *Config
	Logger       *slog.Logger
	Receivers    []Receiver
	RoutingRules []RoutingRule
	Fallback     Warehouse
	Mapping      MappingConfig
	Resolver     FlowResolver
	PromRegistry *prometheus.Registry
}

// Engine owns the component lifecycle: constructed once at process start,
// Close releases consumers and storage on shutdown. No package-level state.
type Engine struct {
	config       *Config
	logger       *slog.Logger
	storage      *storage.Store
	queue        *queue.Provider
	registry     *registry.Registry
	orchestrator *orchestrator.Orchestrator
	transformer  ports.CanonicalTransformer
	decider      ports.OriginDecider
	dispatcher   ports.Dispatcher
	metrics      ports.MetricsCollector
	pipeline     *core.Pipeline
	resolver     ports.FlowResolver
	workers      []*core.IngestWorker
}

func New(opts Options) (*Engine, error) {
	config := opts.Config
	if config == nil {
		config = DefaultConfig()
	}
	config.ApplyDefaults()
	if err := config.Validate(); err != nil {
		return nil, err
	}

	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}

	store, err := storage.New(config.Storage, logger)
	if err != nil {
		return nil, err
	}

	var prom *metrics.PromMetrics
	if opts.PromRegistry != nil {
		prom = metrics.NewPromMetrics(opts.PromRegistry)
	}
	collector := metrics.NewCollector(config.Metrics.Window, prom)

	queueProvider := queue.NewProvider(store, config.Queue, logger)
	executorRegistry := registry.New(logger)
	if err := executorRegistry.Register(nodes.NewMergeExecutor()); err != nil {
		store.Close()
		return nil, err
	}
	flowOrchestrator := orchestrator.New(executorRegistry, store, logger)

	var transformer ports.CanonicalTransformer
	if len(opts.Mapping.Mappings) > 0 {
		transformer, err = transform.New(opts.Mapping, logger)
		if err != nil {
			store.Close()
			return nil, err
		}
	}

	resolver := opts.Resolver
	if resolver == nil {
		resolver = core.NewStaticFlowResolver()
	}

	decider := routing.New(opts.RoutingRules, opts.Fallback)
	dispatcher := dispatch.New(opts.Receivers, logger)

	pipeline := core.NewPipeline(core.PipelineDeps{
		Orchestrator: flowOrchestrator,
		Resolver:     resolver,
		Transformer:  transformer,
		Decider:      decider,
		Dispatcher:   dispatcher,
		Metrics:      collector,
		Logger:       logger,
	})

	return &Engine{
		config:       config,
		logger:       logger,
		storage:      store,
		queue:        queueProvider,
		registry:     executorRegistry,
		orchestrator: flowOrchestrator,
		transformer:  transformer,
		decider:      decider,
		dispatcher:   dispatcher,
		metrics:      collector,
		pipeline:     pipeline,
		resolver:     resolver,
	}, nil
}

// RegisterExecutor adds a node executor to the registry. Registration
// normally happens at startup, before any flow runs.
func (e *Engine) RegisterExecutor(executor ports.NodeExecutor) error {
	return e.registry.Register(executor)
}

// Run executes one pipeline invocation synchronously.
func (e *Engine) Run(ctx context.Context, in Input) domain.PipelineResult {
	return e.pipeline.Run(ctx, in)
}

// Enqueue submits a pipeline request for asynchronous processing on the
// given topic. Topic names are opaque strings owned by the host.
func (e *Engine) Enqueue(topic string, envelope core.IngestEnvelope) error {
	payload, err := envelope.Marshal()
	if err != nil {
		return err
	}
	return e.queue.Enqueue(topic, payload)
}

// StartIngestWorker begins consuming pipeline requests from a topic. The
// worker applies the retry policy and dead-letters exhausted messages.
func (e *Engine) StartIngestWorker(topic string) error {
	worker := core.NewIngestWorker(e.queue, e.pipeline, e.metrics, topic, e.logger)
	if err := worker.Start(ports.ConsumeOptions{
		Concurrency:  e.config.Queue.Concurrency,
		PollInterval: e.config.Queue.PollInterval,
	}); err != nil {
		return err
	}
	e.workers = append(e.workers, worker)
	return nil
}

// Queue exposes the queue provider for depth inspection and dead-letter
// management.
func (e *Engine) Queue() ports.QueueProvider {
	return e.queue
}

// Metrics returns the current sliding-window snapshot.
func (e *Engine) Metrics() domain.MetricsSnapshot {
	return e.metrics.Snapshot()
}

// MetricsCollector exposes the collector for wiring into the ops server.
func (e *Engine) MetricsCollector() ports.MetricsCollector {
	return e.metrics
}

// GetRun loads an archived flow run by id.
func (e *Engine) GetRun(runID string) (*domain.FlowRun, error) {
	return e.orchestrator.GetRun(runID)
}

// Close stops workers and consumers, then releases storage. In-flight
// deliveries finalize before Close returns.
func (e *Engine) Close() error {
	for _, worker := range e.workers {
		worker.Stop()
	}
	if err := e.queue.Close(); err != nil {
		e.logger.Error("queue close failed", "error", err.Error())
	}
	return e.storage.Close()
}
