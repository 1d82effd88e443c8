package domain

import (
	"fmt"
	"time"

	json "github.com/goccy/go-json"
)

type QueueMessage struct {
	Payload       []byte        `json:"payload"`
	Sequence      int64         `json:"sequence"`
	EnqueuedAt    time.Time     `json:"enqueued_at"`
	RetryCount    int           `json:"retry_count"`
	NextRetryAt   *time.Time    `json:"next_retry_at,omitempty"`
	MaxRetries    int           `json:"max_retries"`
	RetryInterval time.Duration `json:"retry_interval"`
}

func NewQueueMessage(payload []byte, sequence int64, maxRetries int, retryInterval time.Duration) *QueueMessage {
	return &QueueMessage{
		Payload:       payload,
		Sequence:      sequence,
		EnqueuedAt:    time.Now(),
		MaxRetries:    maxRetries,
		RetryInterval: retryInterval,
	}
}

// Ready reports whether the message is visible for delivery at the given
// instant. A message with a pending NextRetryAt stays invisible until the
// retry moment has elapsed.
func (m *QueueMessage) Ready(now time.Time) bool {
	if m.NextRetryAt == nil {
		return true
	}
	return !m.NextRetryAt.After(now)
}

func (m *QueueMessage) ToBytes() ([]byte, error) {
	return json.Marshal(m)
}

func QueueMessageFromBytes(data []byte) (*QueueMessage, error) {
	var msg QueueMessage
	err := json.Unmarshal(data, &msg)
	return &msg, err
}

// QueueClaim is the persisted form of a claimed message. ClaimedAt lets the
// reclaim sweep distinguish in-flight deliveries from claims orphaned by a
// crash or a failed finalize.
type QueueClaim struct {
	Message   QueueMessage `json:"message"`
	ClaimedAt time.Time    `json:"claimed_at"`
}

func (c *QueueClaim) ToBytes() ([]byte, error) {
	return json.Marshal(c)
}

func QueueClaimFromBytes(data []byte) (*QueueClaim, error) {
	var claim QueueClaim
	err := json.Unmarshal(data, &claim)
	return &claim, err
}

type DeadLetterMessage struct {
	ID         string    `json:"id"`
	Payload    []byte    `json:"payload"`
	Reason     string    `json:"reason"`
	Timestamp  time.Time `json:"timestamp"`
	RetryCount int       `json:"retry_count"`
	Sequence   int64     `json:"sequence"`
}

func NewDeadLetterMessage(payload []byte, reason string, retryCount int, sequence int64) *DeadLetterMessage {
	return &DeadLetterMessage{
		ID:         fmt.Sprintf("dlq-%d-%d", sequence, time.Now().UnixNano()),
		Payload:    payload,
		Reason:     reason,
		Timestamp:  time.Now(),
		RetryCount: retryCount,
		Sequence:   sequence,
	}
}

func (d *DeadLetterMessage) ToBytes() ([]byte, error) {
	return json.Marshal(d)
}

func DeadLetterMessageFromBytes(data []byte) (*DeadLetterMessage, error) {
	var msg DeadLetterMessage
	err := json.Unmarshal(data, &msg)
	return &msg, err
}

func QueuePendingKey(topic string, sequence int64) string {
	return fmt.Sprintf("queue:%s:pending:%020d", topic, sequence)
}

func QueuePendingPrefix(topic string) string {
	return fmt.Sprintf("queue:%s:pending:", topic)
}

func QueueClaimedKey(topic, deliveryID string) string {
	return fmt.Sprintf("queue:%s:claimed:%s", topic, deliveryID)
}

func QueueClaimedPrefix(topic string) string {
	return fmt.Sprintf("queue:%s:claimed:", topic)
}

func QueueSequenceKey(topic string) string {
	return fmt.Sprintf("queue:%s:sequence", topic)
}

func QueueDeadLetterKey(topic, itemID string) string {
	return fmt.Sprintf("queue:%s:deadletter:item:%s", topic, itemID)
}

func QueueDeadLetterPrefix(topic string) string {
	return fmt.Sprintf("queue:%s:deadletter:item:", topic)
}

func QueueDeadLetterSequenceKey(topic string) string {
	return fmt.Sprintf("queue:%s:deadletter:sequence", topic)
}
