package ports

import (
	"context"
	"time"

	"github.com/Xhuk/ContinuityBridge.poc-sub005/internal/domain"
)

// Delivery is a one-shot handle around a dequeued message. Exactly one of
// Ack, Fail or DeadLetter takes effect; later calls are no-ops.
type Delivery interface {
	Message() domain.QueueMessage
	Ack() error
	Fail(retryAt *time.Time) error
	DeadLetter(reason string) error
}

// Handler processes one delivery. A handler that returns (or panics) without
// finalizing the delivery causes an implicit Fail with the default retry
// schedule; the provider never drops a message silently.
type Handler func(ctx context.Context, delivery Delivery)

type ConsumeOptions struct {
	Concurrency  int
	PollInterval time.Duration
}

type EnqueueOption func(*domain.QueueMessage)

// WithRetryPolicy overrides the per-message retry budget.
func WithRetryPolicy(maxRetries int, retryInterval time.Duration) EnqueueOption {
	return func(m *domain.QueueMessage) {
		m.MaxRetries = maxRetries
		m.RetryInterval = retryInterval
	}
}

// WithRetryState carries the retry bookkeeping through a re-enqueue, as when
// the provider returns a stale claim to the queue. Callers normally omit it.
func WithRetryState(retryCount int, nextRetryAt *time.Time) EnqueueOption {
	return func(m *domain.QueueMessage) {
		m.RetryCount = retryCount
		m.NextRetryAt = nextRetryAt
	}
}

type QueueProvider interface {
	Enqueue(topic string, payload []byte, opts ...EnqueueOption) error
	Consume(topic string, handler Handler, opts ConsumeOptions) (stop func(), err error)
	Depth(topic string) (int, error)
	DeadLetterDepth(topic string) (int, error)
	DeadLetterItems(topic string, limit int) ([]domain.DeadLetterMessage, error)
	RetryFromDeadLetter(topic, itemID string) error
	Close() error
}
