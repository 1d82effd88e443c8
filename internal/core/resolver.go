package core

import (
	"context"
	"fmt"
	"sync"

	"github.com/Xhuk/ContinuityBridge.poc-sub005/internal/domain"
	"github.com/Xhuk/ContinuityBridge.poc-sub005/internal/ports"
)

// StaticFlowResolver serves flow definitions from memory. Flow persistence
// belongs to the host application; this resolver covers embedded use and the
// daemon's file-loaded flows.
type StaticFlowResolver struct {
	mu    sync.RWMutex
	flows map[string]domain.FlowDefinition
}

var _ ports.FlowResolver = (*StaticFlowResolver)(nil)

func NewStaticFlowResolver() *StaticFlowResolver {
	return &StaticFlowResolver{flows: make(map[string]domain.FlowDefinition)}
}

func (r *StaticFlowResolver) Add(flow domain.FlowDefinition) error {
	if flow.ID == "" {
		return &domain.ValidationError{Field: "flow", Reason: "flow id cannot be empty"}
	}
	if err := flow.Validate(); err != nil {
		return err
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	r.flows[flow.ID] = flow
	return nil
}

func (r *StaticFlowResolver) Resolve(_ context.Context, flowID string) (domain.FlowDefinition, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	flow, ok := r.flows[flowID]
	if !ok {
		return domain.FlowDefinition{}, fmt.Errorf("%w: flow %s", domain.ErrNotFound, flowID)
	}
	return flow, nil
}
