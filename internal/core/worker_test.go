package core

import (
	"context"
	"testing"
	"time"

	json "github.com/goccy/go-json"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Xhuk/ContinuityBridge.poc-sub005/internal/domain"
	"github.com/Xhuk/ContinuityBridge.poc-sub005/internal/ports"
)

type fakeDelivery struct {
	message      domain.QueueMessage
	acked        bool
	failed       bool
	deadLettered bool
	reason       string
}

func (d *fakeDelivery) Message() domain.QueueMessage { return d.message }

func (d *fakeDelivery) Ack() error {
	d.acked = true
	return nil
}

func (d *fakeDelivery) Fail(retryAt *time.Time) error {
	d.failed = true
	return nil
}

func (d *fakeDelivery) DeadLetter(reason string) error {
	d.deadLettered = true
	d.reason = reason
	return nil
}

type fakeQueue struct {
	depth    int
	dlqDepth int
}

func (q *fakeQueue) Enqueue(topic string, payload []byte, opts ...ports.EnqueueOption) error {
	return nil
}

func (q *fakeQueue) Consume(topic string, handler ports.Handler, opts ports.ConsumeOptions) (func(), error) {
	return func() {}, nil
}

func (q *fakeQueue) Depth(topic string) (int, error) { return q.depth, nil }

func (q *fakeQueue) DeadLetterDepth(topic string) (int, error) { return q.dlqDepth, nil }

func (q *fakeQueue) DeadLetterItems(topic string, limit int) ([]domain.DeadLetterMessage, error) {
	return nil, nil
}

func (q *fakeQueue) RetryFromDeadLetter(topic, itemID string) error { return nil }

func (q *fakeQueue) Close() error { return nil }

func newWorkerUnderTest(t *testing.T) *IngestWorker {
	t.Helper()
	pipeline, _ := newTestPipeline(t, nil)
	return NewIngestWorker(&fakeQueue{}, pipeline, nil, "items.inbound", nil)
}

func envelopePayload(t *testing.T, envelope IngestEnvelope) []byte {
	t.Helper()
	payload, err := envelope.Marshal()
	require.NoError(t, err)
	return payload
}

func TestHandleSuccessAcks(t *testing.T) {
	w := newWorkerUnderTest(t)

	d := &fakeDelivery{message: domain.QueueMessage{
		Payload: envelopePayload(t, IngestEnvelope{
			Mode:      "canonical",
			Canonical: &domain.CanonicalItem{ItemID: "A-1", Destination: "north-dc"},
		}),
		MaxRetries: 7,
	}}

	w.handle(context.Background(), d)

	assert.True(t, d.acked)
	assert.False(t, d.failed)
	assert.False(t, d.deadLettered)
}

func TestHandleFailureWithBudgetLeftFails(t *testing.T) {
	w := newWorkerUnderTest(t)

	d := &fakeDelivery{message: domain.QueueMessage{
		Payload: envelopePayload(t, IngestEnvelope{
			Mode: "xml",
			XML:  `<order>`, // malformed, pipeline run fails
		}),
		RetryCount: 2,
		MaxRetries: 7,
	}}

	w.handle(context.Background(), d)

	assert.False(t, d.acked)
	assert.True(t, d.failed)
	assert.False(t, d.deadLettered)
}

func TestHandleExhaustedBudgetDeadLetters(t *testing.T) {
	w := newWorkerUnderTest(t)

	d := &fakeDelivery{message: domain.QueueMessage{
		Payload: envelopePayload(t, IngestEnvelope{
			Mode: "xml",
			XML:  `<order>`,
		}),
		RetryCount: 7,
		MaxRetries: 7,
	}}

	w.handle(context.Background(), d)

	assert.False(t, d.acked)
	assert.False(t, d.failed)
	assert.True(t, d.deadLettered)
	assert.NotEmpty(t, d.reason)
}

func TestHandleMalformedEnvelopeDeadLettersImmediately(t *testing.T) {
	w := newWorkerUnderTest(t)

	d := &fakeDelivery{message: domain.QueueMessage{
		Payload:    []byte("not an envelope"),
		MaxRetries: 7,
	}}

	w.handle(context.Background(), d)

	assert.True(t, d.deadLettered)
	assert.Contains(t, d.reason, "malformed envelope")
}

func TestHandleUnknownModeDeadLetters(t *testing.T) {
	w := newWorkerUnderTest(t)

	d := &fakeDelivery{message: domain.QueueMessage{
		Payload:    envelopePayload(t, IngestEnvelope{Mode: "carrier-pigeon"}),
		MaxRetries: 7,
	}}

	w.handle(context.Background(), d)

	assert.True(t, d.deadLettered)
	assert.Contains(t, d.reason, "unknown envelope mode")
}

func TestEnvelopeToInputFlow(t *testing.T) {
	envelope := IngestEnvelope{
		TraceID:       "trace-1",
		Mode:          "flow",
		FlowID:        "normalize",
		EntryNodeID:   "make",
		FlowInput:     json.RawMessage(`{"raw":"doc"}`),
		EmulationMode: true,
	}

	in, err := envelope.ToInput()
	require.NoError(t, err)
	assert.Equal(t, modeFlow, in.mode)
	assert.Equal(t, "normalize", in.flowID)
	assert.Equal(t, "make", in.entryNodeID)
	assert.Equal(t, "trace-1", in.traceID)
	assert.True(t, in.emulationMode)

	payload, ok := in.flowInput.(map[string]interface{})
	require.True(t, ok)
	assert.Equal(t, "doc", payload["raw"])
}

func TestEnvelopeToInputXML(t *testing.T) {
	envelope := IngestEnvelope{Mode: "xml", XML: "<order/>"}

	in, err := envelope.ToInput()
	require.NoError(t, err)
	assert.Equal(t, modeXML, in.mode)
	assert.Equal(t, []byte("<order/>"), in.xml)
}

func TestEnvelopeToInputCanonical(t *testing.T) {
	envelope := IngestEnvelope{
		Mode:      "canonical",
		Canonical: &domain.CanonicalItem{ItemID: "A-1", Destination: "south"},
	}

	in, err := envelope.ToInput()
	require.NoError(t, err)
	assert.Equal(t, modeCanonical, in.mode)
	assert.Equal(t, "A-1", in.canonical.ItemID)
}

func TestEnvelopeToInputCanonicalWithoutItem(t *testing.T) {
	envelope := IngestEnvelope{Mode: "canonical"}

	_, err := envelope.ToInput()
	assert.Error(t, err)
}

func TestEnvelopeToInputBadFlowInput(t *testing.T) {
	envelope := IngestEnvelope{
		Mode:      "flow",
		FlowID:    "normalize",
		FlowInput: json.RawMessage(`{broken`),
	}

	_, err := envelope.ToInput()
	assert.Error(t, err)
}
