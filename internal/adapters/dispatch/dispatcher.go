package dispatch

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/Xhuk/ContinuityBridge.poc-sub005/internal/domain"
	"github.com/Xhuk/ContinuityBridge.poc-sub005/internal/ports"
)

// Dispatcher fans a decided canonical item out to the configured receivers.
// Each receiver call is independently recovered; one failure never prevents
// the remaining receivers from being attempted. Retry is the queue's job
// when dispatch itself came off a queued message, so the dispatcher never
// retries internally.
type Dispatcher struct {
	receivers []ports.Receiver
	logger    *slog.Logger
}

var _ ports.Dispatcher = (*Dispatcher)(nil)

func New(receivers []ports.Receiver, logger *slog.Logger) *Dispatcher {
	if logger == nil {
		logger = slog.Default()
	}
	return &Dispatcher{
		receivers: receivers,
		logger:    logger.With("component", "dispatcher"),
	}
}

func (d *Dispatcher) DispatchToReceivers(ctx context.Context, traceID string, item domain.CanonicalItem, decision domain.RoutingDecision) []domain.DispatchResult {
	results := make([]domain.DispatchResult, 0, len(d.receivers))

	for _, receiver := range d.receivers {
		result := domain.DispatchResult{
			Receiver:  receiver.Name(),
			Timestamp: time.Now(),
		}

		if err := d.deliver(ctx, receiver, item, decision); err != nil {
			result.Error = err.Error()
			d.logger.Error("receiver delivery failed",
				"trace_id", traceID,
				"receiver", receiver.Name(),
				"item_id", item.ItemID,
				"error", err.Error(),
			)
		} else {
			result.Success = true
			d.logger.Debug("receiver delivery succeeded",
				"trace_id", traceID,
				"receiver", receiver.Name(),
				"item_id", item.ItemID,
			)
		}

		results = append(results, result)
	}

	return results
}

func (d *Dispatcher) deliver(ctx context.Context, receiver ports.Receiver, item domain.CanonicalItem, decision domain.RoutingDecision) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("receiver panicked: %v", r)
		}
	}()
	return receiver.Deliver(ctx, item, decision)
}
