package queue

import (
	"log/slog"
	"sync"
	"time"

	"github.com/Xhuk/ContinuityBridge.poc-sub005/internal/domain"
	"github.com/Xhuk/ContinuityBridge.poc-sub005/internal/ports"
)

// delivery is the one-shot handle for a claimed message. The finalized flag
// guards the finalize-once invariant: whichever of Ack, Fail or DeadLetter
// runs first wins, later calls return nil without side effects. A finalize
// whose storage write errors leaves the claimed entry in place, where the
// stale-claim sweep picks it up once its TTL elapses.
type delivery struct {
	provider  *Provider
	topic     string
	claimID   string
	message   domain.QueueMessage
	logger    *slog.Logger
	mu        sync.Mutex
	finalized bool
}

var _ ports.Delivery = (*delivery)(nil)

func (d *delivery) Message() domain.QueueMessage {
	return d.message
}

func (d *delivery) finalize() bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.finalized {
		return false
	}
	d.finalized = true
	return true
}

func (d *delivery) Ack() error {
	if !d.finalize() {
		return nil
	}
	return d.provider.ack(d.topic, d.claimID)
}

func (d *delivery) Fail(retryAt *time.Time) error {
	if !d.finalize() {
		return nil
	}
	return d.provider.fail(d.topic, d.claimID, d.message, retryAt)
}

func (d *delivery) DeadLetter(reason string) error {
	if !d.finalize() {
		return nil
	}
	return d.provider.deadLetter(d.topic, d.claimID, d.message, reason)
}

// failIfOpen is the provider's safety net for handlers that return or panic
// without finalizing: an implicit Fail with the default retry schedule.
func (d *delivery) failIfOpen(reason string) {
	if !d.finalize() {
		return
	}
	d.logger.Warn("delivery not finalized by handler, failing implicitly",
		"topic", d.topic,
		"claim_id", d.claimID,
		"reason", reason,
	)
	if err := d.provider.fail(d.topic, d.claimID, d.message, nil); err != nil {
		d.logger.Error("implicit fail could not restore message",
			"topic", d.topic,
			"claim_id", d.claimID,
			"error", err.Error(),
		)
	}
}
