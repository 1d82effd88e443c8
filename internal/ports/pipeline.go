package ports

import (
	"context"
	"time"

	"github.com/Xhuk/ContinuityBridge.poc-sub005/internal/domain"
)

// Receiver is a downstream delivery target. Implementations bound their own
// I/O; the dispatcher does not retry.
type Receiver interface {
	Name() string
	Deliver(ctx context.Context, item domain.CanonicalItem, decision domain.RoutingDecision) error
}

// FlowResolver supplies flow definitions by id. Flow persistence is external
// to the engine.
type FlowResolver interface {
	Resolve(ctx context.Context, flowID string) (domain.FlowDefinition, error)
}

type MetricsCollector interface {
	RecordLatency(d time.Duration)
	RecordProcessed()
	RecordError()
	SetQueueDepths(in, out int)
	Snapshot() domain.MetricsSnapshot
}

type CanonicalTransformer interface {
	Transform(raw []byte) (domain.CanonicalItem, error)
	Validate(raw []byte) (ok bool, reason string)
}

type OriginDecider interface {
	Decide(item domain.CanonicalItem) domain.RoutingDecision
}

type Dispatcher interface {
	DispatchToReceivers(ctx context.Context, traceID string, item domain.CanonicalItem, decision domain.RoutingDecision) []domain.DispatchResult
}
