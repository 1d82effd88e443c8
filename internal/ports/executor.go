package ports

import (
	"context"

	"github.com/Xhuk/ContinuityBridge.poc-sub005/internal/domain"
)

// ExecutionContext is handed to every executor invocation. EmulationMode
// tells executors to substitute mock I/O for real external calls.
type ExecutionContext struct {
	TraceID       string
	FlowID        string
	RunID         string
	EmulationMode bool
}

// NodeResult is what an executor returns. Outputs carries 0..N output items;
// each proceeds independently through the remaining graph (fan-out without
// implicit fan-in). Handle selects the outgoing edge set for branching nodes;
// the zero value follows unlabeled edges.
type NodeResult struct {
	Outputs  []interface{}
	Handle   string
	Metadata map[string]interface{}
}

// Single wraps the common one-output case.
func Single(output interface{}) *NodeResult {
	return &NodeResult{Outputs: []interface{}{output}}
}

// NodeExecutor is the contract every transformation step implements. It is
// owned externally; the orchestrator only consumes it. Executors return data
// and never touch the run log directly.
type NodeExecutor interface {
	Type() string
	Execute(ctx context.Context, node domain.Node, input interface{}, execCtx ExecutionContext) (*NodeResult, error)
}

// ConfigDefaulter is an optional executor capability: declared defaults are
// merged under the node's flow-level config before execution.
type ConfigDefaulter interface {
	ConfigDefaults() map[string]interface{}
}

type ExecutorRegistry interface {
	Register(executor NodeExecutor) error
	Unregister(nodeType string) error
	Get(nodeType string) (NodeExecutor, error)
	Has(nodeType string) bool
	List() []string
}
