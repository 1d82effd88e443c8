package registry

import (
	"fmt"
	"log/slog"
	"sync"

	"github.com/Xhuk/ContinuityBridge.poc-sub005/internal/domain"
	"github.com/Xhuk/ContinuityBridge.poc-sub005/internal/ports"
)

// Registry maps node type tags to executor implementations. Registration
// happens at startup; an unknown type is an explicit error path, never a
// silent no-op.
type Registry struct {
	executors map[string]ports.NodeExecutor
	mu        sync.RWMutex
	logger    *slog.Logger
}

var _ ports.ExecutorRegistry = (*Registry)(nil)

func New(logger *slog.Logger) *Registry {
	if logger == nil {
		logger = slog.Default()
	}
	return &Registry{
		executors: make(map[string]ports.NodeExecutor),
		logger:    logger.With("component", "executor-registry"),
	}
}

func (r *Registry) Register(executor ports.NodeExecutor) error {
	if executor == nil {
		return &domain.ValidationError{Field: "executor", Reason: "executor cannot be nil"}
	}

	nodeType := executor.Type()
	if nodeType == "" {
		return &domain.ValidationError{Field: "executor", Reason: "executor type cannot be empty"}
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.executors[nodeType]; exists {
		return &domain.ValidationError{Field: "executor", Reason: fmt.Sprintf("executor for type %s already registered", nodeType)}
	}

	r.executors[nodeType] = executor
	r.logger.Debug("executor registered", "node_type", nodeType, "total", len(r.executors))
	return nil
}

func (r *Registry) Unregister(nodeType string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.executors[nodeType]; !exists {
		return fmt.Errorf("%w: %s", domain.ErrUnknownNodeType, nodeType)
	}

	delete(r.executors, nodeType)
	r.logger.Debug("executor unregistered", "node_type", nodeType, "remaining", len(r.executors))
	return nil
}

func (r *Registry) Get(nodeType string) (ports.NodeExecutor, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	executor, exists := r.executors[nodeType]
	if !exists {
		return nil, fmt.Errorf("%w: %s", domain.ErrUnknownNodeType, nodeType)
	}
	return executor, nil
}

func (r *Registry) Has(nodeType string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()

	_, exists := r.executors[nodeType]
	return exists
}

func (r *Registry) List() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	types := make([]string, 0, len(r.executors))
	for nodeType := range r.executors {
		types = append(types, nodeType)
	}
	return types
}
