package dispatch

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Xhuk/ContinuityBridge.poc-sub005/internal/domain"
	"github.com/Xhuk/ContinuityBridge.poc-sub005/internal/ports"
)

type fakeReceiver struct {
	name     string
	err      error
	panicMsg string
	calls    int
}

func (r *fakeReceiver) Name() string { return r.name }

func (r *fakeReceiver) Deliver(ctx context.Context, item domain.CanonicalItem, decision domain.RoutingDecision) error {
	r.calls++
	if r.panicMsg != "" {
		panic(r.panicMsg)
	}
	return r.err
}

var testItem = domain.CanonicalItem{ItemID: "A-1", Destination: "north-dc"}

var testDecision = domain.RoutingDecision{
	SelectedWarehouse: domain.Warehouse{ID: "wh-north"},
	Reason:            "rule 0 matched",
}

func TestDispatchAllReceiversSucceed(t *testing.T) {
	wms := &fakeReceiver{name: "wms"}
	erp := &fakeReceiver{name: "erp"}
	d := New([]ports.Receiver{wms, erp}, nil)

	results := d.DispatchToReceivers(context.Background(), "trace-1", testItem, testDecision)

	require.Len(t, results, 2)
	for _, result := range results {
		assert.True(t, result.Success)
		assert.Empty(t, result.Error)
	}
	assert.Equal(t, 1, wms.calls)
	assert.Equal(t, 1, erp.calls)
}

func TestDispatchOneFailureDoesNotStopOthers(t *testing.T) {
	wms := &fakeReceiver{name: "wms"}
	bad := &fakeReceiver{name: "legacy", err: errors.New("connection refused")}
	erp := &fakeReceiver{name: "erp"}
	d := New([]ports.Receiver{wms, bad, erp}, nil)

	results := d.DispatchToReceivers(context.Background(), "trace-2", testItem, testDecision)

	require.Len(t, results, 3)

	failed := 0
	for _, result := range results {
		if !result.Success {
			failed++
			assert.Equal(t, "legacy", result.Receiver)
			assert.Contains(t, result.Error, "connection refused")
		}
	}
	assert.Equal(t, 1, failed)

	// Every receiver was attempted despite the middle one failing.
	assert.Equal(t, 1, wms.calls)
	assert.Equal(t, 1, bad.calls)
	assert.Equal(t, 1, erp.calls)
}

func TestDispatchRecoversReceiverPanic(t *testing.T) {
	bomb := &fakeReceiver{name: "bomb", panicMsg: "nil pointer somewhere"}
	after := &fakeReceiver{name: "after"}
	d := New([]ports.Receiver{bomb, after}, nil)

	results := d.DispatchToReceivers(context.Background(), "trace-3", testItem, testDecision)

	require.Len(t, results, 2)
	assert.False(t, results[0].Success)
	assert.Contains(t, results[0].Error, "receiver panicked")
	assert.True(t, results[1].Success)
	assert.Equal(t, 1, after.calls)
}

func TestDispatchNoReceivers(t *testing.T) {
	d := New(nil, nil)

	results := d.DispatchToReceivers(context.Background(), "trace-4", testItem, testDecision)
	assert.Empty(t, results)
}
