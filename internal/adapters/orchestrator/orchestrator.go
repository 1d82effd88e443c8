package orchestrator

import (
	"context"
	"errors"
	"log/slog"
	"time"

	json "github.com/goccy/go-json"
	"github.com/google/uuid"

	"github.com/Xhuk/ContinuityBridge.poc-sub005/internal/domain"
	"github.com/Xhuk/ContinuityBridge.poc-sub005/internal/ports"
)

// Orchestrator executes a flow definition against one input payload. It
// resolves executors by node type, appends one NodeExecution per invocation
// to the run's append-only log, and reports a terminal status. Completed runs
// are archived to storage for replay and diagnostics.
type Orchestrator struct {
	registry ports.ExecutorRegistry
	storage  ports.Storage
	logger   *slog.Logger
}

// Request describes one execution. EntryNodeID may be empty when the graph
// has a unique node without incoming edges.
type Request struct {
	Flow          domain.FlowDefinition
	EntryNodeID   string
	Input         interface{}
	TraceID       string
	EmulationMode bool
}

// workItem is one (node, payload) pair waiting to execute. Fan-out produces
// several work items from a single node; each continues independently.
type workItem struct {
	nodeID string
	input  interface{}
}

func New(registry ports.ExecutorRegistry, storage ports.Storage, logger *slog.Logger) *Orchestrator {
	if logger == nil {
		logger = slog.Default()
	}
	return &Orchestrator{
		registry: registry,
		storage:  storage,
		logger:   logger.With("component", "orchestrator"),
	}
}

// ExecuteFlow runs the graph to completion or first unhandled failure. The
// returned run always carries a terminal status; the error return is reserved
// for requests that never started (invalid graph, missing entry node).
func (o *Orchestrator) ExecuteFlow(ctx context.Context, req Request) (*domain.FlowRun, error) {
	if err := req.Flow.Validate(); err != nil {
		return nil, err
	}

	entry, err := req.Flow.EntryNode(req.EntryNodeID)
	if err != nil {
		return nil, err
	}

	traceID := req.TraceID
	if traceID == "" {
		traceID = uuid.New().String()
	}

	run := domain.NewFlowRun(uuid.New().String(), req.Flow.ID, traceID)
	logger := o.logger.With("flow_id", req.Flow.ID, "run_id", run.ID, "trace_id", traceID)
	logger.Debug("flow run started", "entry_node", entry.ID, "emulation", req.EmulationMode)

	execCtx := ports.ExecutionContext{
		TraceID:       traceID,
		FlowID:        req.Flow.ID,
		RunID:         run.ID,
		EmulationMode: req.EmulationMode,
	}

	pending := []workItem{{nodeID: entry.ID, input: req.Input}}

	for len(pending) > 0 {
		if err := ctx.Err(); err != nil {
			run.Fail("run deadline exceeded: " + err.Error())
			break
		}

		item := pending[0]
		pending = pending[1:]

		node, ok := req.Flow.NodeByID(item.nodeID)
		if !ok {
			// Edges are validated up front, so this is a programming error.
			run.Fail("node " + item.nodeID + " vanished from flow definition")
			break
		}

		result, execErr := o.executeNode(ctx, node, item.input, execCtx, run)
		if execErr != nil {
			handlers := req.Flow.OutgoingEdges(node.ID, domain.HandleError)
			if len(handlers) == 0 {
				run.Fail(domain.NewFlowError(req.Flow.ID, node.ID, "execute", execErr).Error())
				break
			}

			errorPayload := map[string]interface{}{
				"error":  execErr.Error(),
				"nodeId": node.ID,
				"input":  item.input,
			}
			for _, edge := range handlers {
				pending = append(pending, workItem{nodeID: edge.Target, input: errorPayload})
			}
			logger.Debug("node failure routed to error handler",
				"node_id", node.ID,
				"handlers", len(handlers),
			)
			continue
		}

		edges := req.Flow.OutgoingEdges(node.ID, result.Handle)
		if len(edges) == 0 {
			// Unmatched handle or terminal node: branch ends without failing
			// the run.
			continue
		}

		for _, output := range result.Outputs {
			for _, edge := range edges {
				pending = append(pending, workItem{nodeID: edge.Target, input: output})
			}
		}
	}

	run.Complete()

	snapshot := run.Snapshot()
	logger.Debug("flow run finished",
		"status", snapshot.Status,
		"nodes_executed", len(snapshot.NodeExecutions),
		"error", snapshot.Error,
	)

	o.archive(snapshot)
	return run, nil
}

// executeNode resolves the executor, merges config defaults, invokes with
// panic recovery, and appends the execution record.
func (o *Orchestrator) executeNode(ctx context.Context, node domain.Node, input interface{}, execCtx ports.ExecutionContext, run *domain.FlowRun) (*ports.NodeResult, error) {
	startedAt := time.Now()

	executor, err := o.registry.Get(node.Type)
	if err != nil {
		run.AppendExecution(domain.NodeExecution{
			NodeID:     node.ID,
			Input:      input,
			StartedAt:  startedAt,
			FinishedAt: time.Now(),
			Error:      err.Error(),
		})
		return nil, err
	}

	if defaulter, ok := executor.(ports.ConfigDefaulter); ok {
		merged, mergeErr := domain.MergeNodeConfig(defaulter.ConfigDefaults(), node.Config)
		if mergeErr != nil {
			run.AppendExecution(domain.NodeExecution{
				NodeID:     node.ID,
				Input:      input,
				StartedAt:  startedAt,
				FinishedAt: time.Now(),
				Error:      mergeErr.Error(),
			})
			return nil, mergeErr
		}
		node.Config = merged
	}

	result, err := o.invoke(ctx, executor, node, input, execCtx)

	exec := domain.NodeExecution{
		NodeID:     node.ID,
		Input:      input,
		StartedAt:  startedAt,
		FinishedAt: time.Now(),
	}
	if err != nil {
		exec.Error = err.Error()
	} else if len(result.Outputs) == 1 {
		exec.Output = result.Outputs[0]
	} else if len(result.Outputs) > 1 {
		exec.Output = result.Outputs
	}
	run.AppendExecution(exec)

	return result, err
}

func (o *Orchestrator) invoke(ctx context.Context, executor ports.NodeExecutor, node domain.Node, input interface{}, execCtx ports.ExecutionContext) (result *ports.NodeResult, err error) {
	defer func() {
		if r := recover(); r != nil {
			o.logger.Error("node executor panicked",
				"node_id", node.ID,
				"node_type", node.Type,
				"panic", r,
			)
			result = nil
			err = domain.NewNodePanicError(node.ID, r)
		}
	}()

	result, err = executor.Execute(ctx, node, input, execCtx)
	if err == nil && result == nil {
		err = errors.New("executor returned no result")
	}
	return result, err
}

func (o *Orchestrator) archive(snapshot *domain.FlowRun) {
	if o.storage == nil {
		return
	}

	data, err := json.Marshal(snapshot)
	if err != nil {
		o.logger.Error("failed to encode run for archive", "run_id", snapshot.ID, "error", err.Error())
		return
	}
	if err := o.storage.Put(domain.FlowRunKey(snapshot.ID), data); err != nil {
		o.logger.Error("failed to archive run", "run_id", snapshot.ID, "error", err.Error())
	}
}

// GetRun loads an archived run.
func (o *Orchestrator) GetRun(runID string) (*domain.FlowRun, error) {
	if o.storage == nil {
		return nil, domain.ErrNotFound
	}

	data, exists, err := o.storage.Get(domain.FlowRunKey(runID))
	if err != nil {
		return nil, err
	}
	if !exists {
		return nil, domain.ErrNotFound
	}

	var run domain.FlowRun
	if err := json.Unmarshal(data, &run); err != nil {
		return nil, err
	}
	return &run, nil
}
