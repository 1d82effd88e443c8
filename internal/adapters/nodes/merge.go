// Package nodes holds the node executors shipped with the engine. Hosts
// register their own executors alongside these.
package nodes

import (
	"context"
	"sync"

	json "github.com/goccy/go-json"

	"github.com/Xhuk/ContinuityBridge.poc-sub005/internal/domain"
	"github.com/Xhuk/ContinuityBridge.poc-sub005/internal/ports"
)

// MergeExecutor is the built-in fan-in node, type "merge". Branches of a flow
// fan in by pointing their edges at a merge node: each arriving input is
// folded into the accumulated value for that run and node, and the fold so
// far is emitted downstream. Objects merge key by key with the newest arrival
// winning, arrays concatenate, anything else is replaced.
//
// Accumulated state is keyed by run and node id and held for the lifetime of
// the executor instance.
type MergeExecutor struct {
	mu  sync.Mutex
	acc map[string]json.RawMessage
}

var _ ports.NodeExecutor = (*MergeExecutor)(nil)

func NewMergeExecutor() *MergeExecutor {
	return &MergeExecutor{acc: make(map[string]json.RawMessage)}
}

func (e *MergeExecutor) Type() string {
	return "merge"
}

func (e *MergeExecutor) Execute(ctx context.Context, node domain.Node, input interface{}, execCtx ports.ExecutionContext) (*ports.NodeResult, error) {
	incoming, err := json.Marshal(input)
	if err != nil {
		return nil, err
	}

	key := execCtx.RunID + ":" + node.ID

	e.mu.Lock()
	merged, err := domain.MergeOutputs(e.acc[key], incoming)
	if err != nil {
		e.mu.Unlock()
		return nil, err
	}
	e.acc[key] = merged
	e.mu.Unlock()

	var output interface{}
	if err := json.Unmarshal(merged, &output); err != nil {
		return nil, err
	}
	return ports.Single(output), nil
}
