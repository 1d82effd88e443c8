package core

import (
	"github.com/Xhuk/ContinuityBridge.poc-sub005/internal/domain"
)

// inputMode is the closed discriminant of the pipeline input union. The zero
// value is invalid on purpose: an Input that was not built through one of the
// constructors below is a contract violation and makes the pipeline panic
// rather than silently default.
type inputMode int

const (
	modeInvalid inputMode = iota
	modeFlow
	modeXML
	modeCanonical
)

func (m inputMode) String() string {
	switch m {
	case modeFlow:
		return "flow"
	case modeXML:
		return "xml"
	case modeCanonical:
		return "canonical"
	default:
		return "invalid"
	}
}

// Input is the tagged union of the three ingestion modes. Construct it with
// FlowInput, XMLInput or CanonicalInput only.
type Input struct {
	mode inputMode

	flowID      string
	entryNodeID string
	flowInput   interface{}

	xml []byte

	canonical domain.CanonicalItem

	traceID       string
	emulationMode bool
}

// FlowInput runs the identified flow definition against the given payload.
func FlowInput(flowID string, flowInput interface{}) Input {
	return Input{mode: modeFlow, flowID: flowID, flowInput: flowInput}
}

// XMLInput pushes a raw vendor document through the canonical transformer.
func XMLInput(raw []byte) Input {
	return Input{mode: modeXML, xml: raw}
}

// CanonicalInput submits an already-normalized item, used for replay and
// direct API submission.
func CanonicalInput(item domain.CanonicalItem) Input {
	return Input{mode: modeCanonical, canonical: item}
}

// WithTraceID threads an existing correlation id through the run instead of
// generating a fresh one.
func (in Input) WithTraceID(traceID string) Input {
	in.traceID = traceID
	return in
}

// WithEntryNode overrides entry-node resolution for flow inputs.
func (in Input) WithEntryNode(nodeID string) Input {
	in.entryNodeID = nodeID
	return in
}

// WithEmulation makes node executors substitute mock I/O for external calls.
func (in Input) WithEmulation(on bool) Input {
	in.emulationMode = on
	return in
}
