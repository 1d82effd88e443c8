package nodes

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Xhuk/ContinuityBridge.poc-sub005/internal/adapters/orchestrator"
	"github.com/Xhuk/ContinuityBridge.poc-sub005/internal/adapters/registry"
	"github.com/Xhuk/ContinuityBridge.poc-sub005/internal/adapters/storage"
	"github.com/Xhuk/ContinuityBridge.poc-sub005/internal/domain"
	"github.com/Xhuk/ContinuityBridge.poc-sub005/internal/ports"
)

func execute(t *testing.T, e *MergeExecutor, runID string, input interface{}) interface{} {
	t.Helper()
	result, err := e.Execute(context.Background(), domain.Node{ID: "join"}, input, ports.ExecutionContext{RunID: runID})
	require.NoError(t, err)
	require.Len(t, result.Outputs, 1)
	return result.Outputs[0]
}

func TestMergeAccumulatesObjects(t *testing.T) {
	e := NewMergeExecutor()

	first := execute(t, e, "run-1", map[string]interface{}{"sku": "XK-99"})
	assert.Equal(t, map[string]interface{}{"sku": "XK-99"}, first)

	second := execute(t, e, "run-1", map[string]interface{}{"qty": float64(3)})
	merged, ok := second.(map[string]interface{})
	require.True(t, ok)
	assert.Equal(t, "XK-99", merged["sku"])
	assert.Equal(t, float64(3), merged["qty"])
}

func TestMergeConcatenatesArrays(t *testing.T) {
	e := NewMergeExecutor()

	execute(t, e, "run-1", []interface{}{"a"})
	out := execute(t, e, "run-1", []interface{}{"b", "c"})

	assert.Equal(t, []interface{}{"a", "b", "c"}, out)
}

func TestMergeIsolatesRuns(t *testing.T) {
	e := NewMergeExecutor()

	execute(t, e, "run-1", map[string]interface{}{"left": true})
	out := execute(t, e, "run-2", map[string]interface{}{"right": true})

	merged, ok := out.(map[string]interface{})
	require.True(t, ok)
	assert.NotContains(t, merged, "left")
}

type splitExecutor struct{}

func (s *splitExecutor) Type() string { return "split" }

func (s *splitExecutor) Execute(ctx context.Context, node domain.Node, input interface{}, execCtx ports.ExecutionContext) (*ports.NodeResult, error) {
	return &ports.NodeResult{Outputs: []interface{}{
		map[string]interface{}{"header": "H-1"},
		map[string]interface{}{"detail": "D-1"},
	}}, nil
}

func TestFlowFanInThroughMergeNode(t *testing.T) {
	store, err := storage.New(domain.StorageConfig{InMemory: true}, nil)
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })

	reg := registry.New(nil)
	require.NoError(t, reg.Register(&splitExecutor{}))
	require.NoError(t, reg.Register(NewMergeExecutor()))

	o := orchestrator.New(reg, store, nil)

	flow := domain.FlowDefinition{
		ID: "fan-in",
		Nodes: []domain.Node{
			{ID: "split", Type: "split"},
			{ID: "join", Type: "merge"},
		},
		Edges: []domain.Edge{{Source: "split", Target: "join"}},
	}

	run, err := o.ExecuteFlow(context.Background(), orchestrator.Request{Flow: flow, Input: "doc"})
	require.NoError(t, err)

	snapshot := run.Snapshot()
	assert.Equal(t, domain.RunStatusCompleted, snapshot.Status)

	// One split execution plus one join execution per branch.
	require.Len(t, snapshot.NodeExecutions, 3)

	out, ok := run.LastOutput()
	require.True(t, ok)
	merged, ok := out.(map[string]interface{})
	require.True(t, ok)
	assert.Equal(t, "H-1", merged["header"])
	assert.Equal(t, "D-1", merged["detail"])
}
