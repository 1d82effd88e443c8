package domain

import (
	"fmt"
	"sync"
	"time"
)

// Well-known edge handles. An executor selects the outgoing edge set by
// returning a handle from its result; HandleError is reserved for wiring
// error-handler nodes.
const (
	HandleDefault = ""
	HandleTrue    = "true"
	HandleFalse   = "false"
	HandleError   = "error"
)

type Node struct {
	ID     string                 `json:"id"`
	Type   string                 `json:"type"`
	Config map[string]interface{} `json:"config,omitempty"`
}

type Edge struct {
	Source       string `json:"source"`
	Target       string `json:"target"`
	SourceHandle string `json:"source_handle,omitempty"`
}

type FlowDefinition struct {
	ID    string `json:"id"`
	Nodes []Node `json:"nodes"`
	Edges []Edge `json:"edges"`
}

// Validate checks the structural invariants of the graph: unique node ids
// and edges that reference existing nodes.
func (f *FlowDefinition) Validate() error {
	if len(f.Nodes) == 0 {
		return &ValidationError{Field: "nodes", Reason: "flow has no nodes"}
	}

	seen := make(map[string]struct{}, len(f.Nodes))
	for _, node := range f.Nodes {
		if node.ID == "" {
			return &ValidationError{Field: "nodes", Reason: "node id cannot be empty"}
		}
		if node.Type == "" {
			return &ValidationError{Field: "nodes", Reason: fmt.Sprintf("node %s has no type", node.ID)}
		}
		if _, dup := seen[node.ID]; dup {
			return &ValidationError{Field: "nodes", Reason: fmt.Sprintf("duplicate node id %s", node.ID)}
		}
		seen[node.ID] = struct{}{}
	}

	for _, edge := range f.Edges {
		if _, ok := seen[edge.Source]; !ok {
			return &ValidationError{Field: "edges", Reason: fmt.Sprintf("edge source %s does not exist", edge.Source)}
		}
		if _, ok := seen[edge.Target]; !ok {
			return &ValidationError{Field: "edges", Reason: fmt.Sprintf("edge target %s does not exist", edge.Target)}
		}
	}

	return nil
}

func (f *FlowDefinition) NodeByID(id string) (Node, bool) {
	for _, node := range f.Nodes {
		if node.ID == id {
			return node, true
		}
	}
	return Node{}, false
}

// OutgoingEdges returns the edges leaving a node whose handle matches the
// given selection. An unmatched handle yields an empty set, which ends that
// branch without failing the run.
func (f *FlowDefinition) OutgoingEdges(nodeID, handle string) []Edge {
	var edges []Edge
	for _, edge := range f.Edges {
		if edge.Source == nodeID && edge.SourceHandle == handle {
			edges = append(edges, edge)
		}
	}
	return edges
}

// EntryNode resolves the designated entry point. An explicit id wins; when
// omitted, the single node with no incoming edge is used. Zero or multiple
// candidates are a validation error.
func (f *FlowDefinition) EntryNode(explicitID string) (Node, error) {
	if explicitID != "" {
		node, ok := f.NodeByID(explicitID)
		if !ok {
			return Node{}, &ValidationError{Field: "entry_node", Reason: fmt.Sprintf("entry node %s does not exist", explicitID)}
		}
		return node, nil
	}

	hasIncoming := make(map[string]bool, len(f.Nodes))
	for _, edge := range f.Edges {
		hasIncoming[edge.Target] = true
	}

	var candidates []Node
	for _, node := range f.Nodes {
		if !hasIncoming[node.ID] {
			candidates = append(candidates, node)
		}
	}

	switch len(candidates) {
	case 1:
		return candidates[0], nil
	case 0:
		return Node{}, &ValidationError{Field: "entry_node", Reason: "no node without incoming edges; entry node must be explicit"}
	default:
		return Node{}, &ValidationError{Field: "entry_node", Reason: fmt.Sprintf("%d candidate entry nodes; entry node must be explicit", len(candidates))}
	}
}

type RunStatus string

const (
	RunStatusRunning   RunStatus = "running"
	RunStatusCompleted RunStatus = "completed"
	RunStatusFailed    RunStatus = "failed"
)

type NodeExecution struct {
	NodeID     string      `json:"node_id"`
	Input      interface{} `json:"input,omitempty"`
	Output     interface{} `json:"output,omitempty"`
	StartedAt  time.Time   `json:"started_at"`
	FinishedAt time.Time   `json:"finished_at"`
	Error      string      `json:"error,omitempty"`
}

// FlowRun is the record of one flow execution. NodeExecutions is an
// append-only log: entries are never edited once appended.
type FlowRun struct {
	mu sync.RWMutex

	ID             string          `json:"id"`
	FlowID         string          `json:"flow_id"`
	TraceID        string          `json:"trace_id,omitempty"`
	Status         RunStatus       `json:"status"`
	NodeExecutions []NodeExecution `json:"node_executions"`
	Error          string          `json:"error,omitempty"`
	StartedAt      time.Time       `json:"started_at"`
	CompletedAt    *time.Time      `json:"completed_at,omitempty"`
}

func NewFlowRun(id, flowID, traceID string) *FlowRun {
	return &FlowRun{
		ID:        id,
		FlowID:    flowID,
		TraceID:   traceID,
		Status:    RunStatusRunning,
		StartedAt: time.Now(),
	}
}

func (r *FlowRun) AppendExecution(exec NodeExecution) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.NodeExecutions = append(r.NodeExecutions, exec)
}

func (r *FlowRun) Complete() {
	r.finish(RunStatusCompleted, "")
}

func (r *FlowRun) Fail(errMsg string) {
	r.finish(RunStatusFailed, errMsg)
}

func (r *FlowRun) finish(status RunStatus, errMsg string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.Status != RunStatusRunning {
		return
	}
	now := time.Now()
	r.Status = status
	r.Error = errMsg
	r.CompletedAt = &now
}

// Snapshot returns a copy safe to hand to observers while the run is still
// executing.
func (r *FlowRun) Snapshot() *FlowRun {
	r.mu.RLock()
	defer r.mu.RUnlock()

	executions := make([]NodeExecution, len(r.NodeExecutions))
	copy(executions, r.NodeExecutions)

	snapshot := &FlowRun{
		ID:             r.ID,
		FlowID:         r.FlowID,
		TraceID:        r.TraceID,
		Status:         r.Status,
		NodeExecutions: executions,
		Error:          r.Error,
		StartedAt:      r.StartedAt,
	}
	if r.CompletedAt != nil {
		completed := *r.CompletedAt
		snapshot.CompletedAt = &completed
	}
	return snapshot
}

// LastOutput returns the output of the most recent successful execution,
// which the pipeline treats as the flow's terminal result.
func (r *FlowRun) LastOutput() (interface{}, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	for i := len(r.NodeExecutions) - 1; i >= 0; i-- {
		if r.NodeExecutions[i].Error == "" {
			return r.NodeExecutions[i].Output, true
		}
	}
	return nil, false
}

func FlowRunKey(runID string) string {
	return "flowrun:" + runID
}
