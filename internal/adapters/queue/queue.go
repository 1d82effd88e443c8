package queue

import (
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/Xhuk/ContinuityBridge.poc-sub005/internal/domain"
	"github.com/Xhuk/ContinuityBridge.poc-sub005/internal/ports"
)

// Provider is a topic-based queue with retry scheduling and a dead-letter
// store, backed by the ordered storage port. A message is moved from the
// pending keyspace to the claimed keyspace before its handler runs, so a
// message is never visible to two consumers at once; Fail restores it as a
// fresh pending entry behind newly arrived messages. Claimed entries carry
// their claim time: claims older than ClaimTTL, left behind by a crash or a
// finalize that never landed, are swept back to pending by the consumers.
type Provider struct {
	storage ports.Storage
	config  domain.QueueConfig
	logger  *slog.Logger

	mu        sync.Mutex
	closed    bool
	consumers []*consumer
	wg        sync.WaitGroup
}

var _ ports.QueueProvider = (*Provider)(nil)

func NewProvider(storage ports.Storage, config domain.QueueConfig, logger *slog.Logger) *Provider {
	if logger == nil {
		logger = slog.Default()
	}
	if config.ClaimTTL <= 0 {
		config.ClaimTTL = domain.DefaultClaimTTL
	}
	return &Provider{
		storage: storage,
		config:  config,
		logger:  logger.With("component", "queue"),
	}
}

func (p *Provider) Enqueue(topic string, payload []byte, opts ...ports.EnqueueOption) error {
	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		return domain.ErrClosed
	}
	p.mu.Unlock()

	sequence, err := p.storage.AtomicIncrement(domain.QueueSequenceKey(topic))
	if err != nil {
		return err
	}

	msg := domain.NewQueueMessage(payload, sequence, p.config.MaxRetries, p.config.RetryInterval)
	for _, opt := range opts {
		opt(msg)
	}

	msgBytes, err := msg.ToBytes()
	if err != nil {
		return err
	}

	if err := p.storage.Put(domain.QueuePendingKey(topic, sequence), msgBytes); err != nil {
		return err
	}

	p.logger.Debug("message enqueued",
		"topic", topic,
		"sequence", sequence,
		"retry_count", msg.RetryCount,
	)
	return nil
}

// claim removes the first ready pending message from the visible queue and
// parks it in the claimed keyspace. Messages whose NextRetryAt has not
// elapsed are skipped, not consumed.
func (p *Provider) claim(topic string) (*delivery, bool, error) {
	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		return nil, false, domain.ErrClosed
	}
	p.mu.Unlock()

	prefix := domain.QueuePendingPrefix(topic)
	now := time.Now()

	key, value, exists, err := p.storage.GetNext(prefix)
	if err != nil {
		return nil, false, err
	}

	for exists {
		msg, decodeErr := domain.QueueMessageFromBytes(value)
		if decodeErr != nil {
			p.logger.Error("dropping undecodable queue entry to dead letter",
				"topic", topic,
				"key", key,
				"error", decodeErr.Error(),
			)
			if err := p.moveCorruptEntry(topic, key, value, decodeErr.Error()); err != nil {
				return nil, false, err
			}
			key, value, exists, err = p.storage.GetNextAfter(prefix, key)
			if err != nil {
				return nil, false, err
			}
			continue
		}

		if msg.Ready(now) {
			claimID := uuid.New().String()
			claim := domain.QueueClaim{Message: *msg, ClaimedAt: now}
			claimBytes, encodeErr := claim.ToBytes()
			if encodeErr != nil {
				return nil, false, encodeErr
			}
			ops := []ports.WriteOp{
				{Type: ports.OpDelete, Key: key},
				{Type: ports.OpPut, Key: domain.QueueClaimedKey(topic, claimID), Value: claimBytes},
			}
			if err := p.storage.BatchWrite(ops); err != nil {
				return nil, false, err
			}

			return &delivery{
				provider: p,
				topic:    topic,
				claimID:  claimID,
				message:  *msg,
				logger:   p.logger,
			}, true, nil
		}

		key, value, exists, err = p.storage.GetNextAfter(prefix, key)
		if err != nil {
			return nil, false, err
		}
	}

	return nil, false, nil
}

// reclaimStale returns claims older than ClaimTTL to the pending keyspace,
// keeping their retry bookkeeping. This is the recovery path for claims
// orphaned by a crash or by a finalize whose storage write failed. A delivery
// that outlives the TTL can be redelivered; the queue is at-least-once.
func (p *Provider) reclaimStale(topic string, now time.Time) (int, error) {
	items, err := p.storage.ListByPrefix(domain.QueueClaimedPrefix(topic))
	if err != nil {
		return 0, err
	}

	reclaimed := 0
	for _, item := range items {
		claim, decodeErr := domain.QueueClaimFromBytes(item.Value)
		if decodeErr != nil {
			p.logger.Error("dropping undecodable claim entry to dead letter",
				"topic", topic,
				"key", item.Key,
				"error", decodeErr.Error(),
			)
			if err := p.moveCorruptEntry(topic, item.Key, item.Value, decodeErr.Error()); err != nil {
				return reclaimed, err
			}
			continue
		}

		if now.Sub(claim.ClaimedAt) < p.config.ClaimTTL {
			continue
		}

		msg := claim.Message
		err := p.Enqueue(topic, msg.Payload,
			ports.WithRetryPolicy(msg.MaxRetries, msg.RetryInterval),
			ports.WithRetryState(msg.RetryCount, nil),
		)
		if err != nil {
			return reclaimed, err
		}
		if err := p.storage.Delete(item.Key); err != nil {
			return reclaimed, err
		}

		reclaimed++
		p.logger.Warn("stale claim returned to queue",
			"topic", topic,
			"claimed_at", claim.ClaimedAt,
			"retry_count", msg.RetryCount,
		)
	}
	return reclaimed, nil
}

func (p *Provider) ack(topic, claimID string) error {
	return p.storage.Delete(domain.QueueClaimedKey(topic, claimID))
}

func (p *Provider) fail(topic, claimID string, msg domain.QueueMessage, retryAt *time.Time) error {
	next := time.Now().Add(msg.RetryInterval)
	if retryAt != nil {
		next = *retryAt
	}

	sequence, err := p.storage.AtomicIncrement(domain.QueueSequenceKey(topic))
	if err != nil {
		return err
	}

	retried := msg
	retried.Sequence = sequence
	retried.RetryCount++
	retried.NextRetryAt = &next

	retriedBytes, err := retried.ToBytes()
	if err != nil {
		return err
	}

	ops := []ports.WriteOp{
		{Type: ports.OpDelete, Key: domain.QueueClaimedKey(topic, claimID)},
		{Type: ports.OpPut, Key: domain.QueuePendingKey(topic, sequence), Value: retriedBytes},
	}
	if err := p.storage.BatchWrite(ops); err != nil {
		return err
	}

	p.logger.Debug("message failed, scheduled for retry",
		"topic", topic,
		"retry_count", retried.RetryCount,
		"next_retry_at", next,
	)
	return nil
}

func (p *Provider) deadLetter(topic, claimID string, msg domain.QueueMessage, reason string) error {
	sequence, err := p.storage.AtomicIncrement(domain.QueueDeadLetterSequenceKey(topic))
	if err != nil {
		return err
	}

	dlq := domain.NewDeadLetterMessage(msg.Payload, reason, msg.RetryCount, sequence)
	dlqBytes, err := dlq.ToBytes()
	if err != nil {
		return err
	}

	ops := []ports.WriteOp{
		{Type: ports.OpDelete, Key: domain.QueueClaimedKey(topic, claimID)},
		{Type: ports.OpPut, Key: domain.QueueDeadLetterKey(topic, dlq.ID), Value: dlqBytes},
	}
	if err := p.storage.BatchWrite(ops); err != nil {
		return err
	}

	p.logger.Warn("message moved to dead letter",
		"topic", topic,
		"dead_letter_id", dlq.ID,
		"retry_count", msg.RetryCount,
		"reason", reason,
	)
	return nil
}

func (p *Provider) moveCorruptEntry(topic, key string, value []byte, reason string) error {
	sequence, err := p.storage.AtomicIncrement(domain.QueueDeadLetterSequenceKey(topic))
	if err != nil {
		return err
	}
	dlq := domain.NewDeadLetterMessage(value, "corrupt entry: "+reason, 0, sequence)
	dlqBytes, err := dlq.ToBytes()
	if err != nil {
		return err
	}
	return p.storage.BatchWrite([]ports.WriteOp{
		{Type: ports.OpDelete, Key: key},
		{Type: ports.OpPut, Key: domain.QueueDeadLetterKey(topic, dlq.ID), Value: dlqBytes},
	})
}

func (p *Provider) Depth(topic string) (int, error) {
	return p.storage.CountPrefix(domain.QueuePendingPrefix(topic))
}

func (p *Provider) DeadLetterDepth(topic string) (int, error) {
	return p.storage.CountPrefix(domain.QueueDeadLetterPrefix(topic))
}

func (p *Provider) DeadLetterItems(topic string, limit int) ([]domain.DeadLetterMessage, error) {
	items, err := p.storage.ListByPrefix(domain.QueueDeadLetterPrefix(topic))
	if err != nil {
		return nil, err
	}

	var messages []domain.DeadLetterMessage
	for i, item := range items {
		if limit > 0 && i >= limit {
			break
		}
		msg, err := domain.DeadLetterMessageFromBytes(item.Value)
		if err != nil {
			continue
		}
		messages = append(messages, *msg)
	}
	return messages, nil
}

// RetryFromDeadLetter re-enqueues a dead-lettered message with a fresh retry
// budget. Manual reprocessing path; the queue never does this on its own.
func (p *Provider) RetryFromDeadLetter(topic, itemID string) error {
	key := domain.QueueDeadLetterKey(topic, itemID)
	value, exists, err := p.storage.Get(key)
	if err != nil {
		return err
	}
	if !exists {
		return domain.NewKeyNotFoundError(key)
	}

	msg, err := domain.DeadLetterMessageFromBytes(value)
	if err != nil {
		return err
	}

	if err := p.Enqueue(topic, msg.Payload); err != nil {
		return err
	}
	return p.storage.Delete(key)
}

func (p *Provider) Close() error {
	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		return nil
	}
	p.closed = true
	consumers := p.consumers
	p.consumers = nil
	p.mu.Unlock()

	for _, c := range consumers {
		c.stop()
	}
	p.wg.Wait()

	p.logger.Info("queue provider closed")
	return nil
}
