package domain

import (
	"time"

	json "github.com/goccy/go-json"
)

// CanonicalItem is the normalized, format-agnostic representation of a
// business document. Identity and destination are explicit because routing
// depends on them; everything else lives in Fields. Treated as a value type.
type CanonicalItem struct {
	ItemID      string                 `json:"itemId"`
	Destination string                 `json:"destination"`
	Fields      map[string]interface{} `json:"fields,omitempty"`
}

// Routable reports whether the item carries enough structure for the
// routing-decision and dispatch stages.
func (c CanonicalItem) Routable() bool {
	return c.ItemID != "" && c.Destination != ""
}

// AsCanonical attempts to interpret an arbitrary value (typically a flow's
// terminal node output) as a canonical item. Maps are accepted when they
// carry both an item identity and a destination; anything else is not a
// routable canonical shape.
func AsCanonical(v interface{}) (CanonicalItem, bool) {
	switch item := v.(type) {
	case CanonicalItem:
		return item, item.ItemID != ""
	case *CanonicalItem:
		if item == nil {
			return CanonicalItem{}, false
		}
		return *item, item.ItemID != ""
	case map[string]interface{}:
		raw, err := json.Marshal(item)
		if err != nil {
			return CanonicalItem{}, false
		}
		var decoded CanonicalItem
		if err := json.Unmarshal(raw, &decoded); err != nil {
			return CanonicalItem{}, false
		}
		if decoded.ItemID == "" {
			return CanonicalItem{}, false
		}
		if decoded.Fields == nil {
			decoded.Fields = extraFields(item)
		}
		return decoded, true
	default:
		return CanonicalItem{}, false
	}
}

func extraFields(m map[string]interface{}) map[string]interface{} {
	fields := make(map[string]interface{})
	for k, v := range m {
		if k == "itemId" || k == "destination" || k == "fields" {
			continue
		}
		fields[k] = v
	}
	if len(fields) == 0 {
		return nil
	}
	return fields
}

type Warehouse struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

type RoutingDecision struct {
	SelectedWarehouse Warehouse `json:"selected_warehouse"`
	Reason            string    `json:"reason"`
}

type DispatchResult struct {
	Receiver  string    `json:"receiver"`
	Success   bool      `json:"success"`
	Error     string    `json:"error,omitempty"`
	Timestamp time.Time `json:"timestamp"`
}

// PipelineResult has the same shape for every input mode so downstream
// consumers never branch on how the item was produced.
type PipelineResult struct {
	Success         bool             `json:"success"`
	TraceID         string           `json:"trace_id"`
	Canonical       *CanonicalItem   `json:"canonical,omitempty"`
	Decision        *RoutingDecision `json:"decision,omitempty"`
	DispatchResults []DispatchResult `json:"dispatch_results,omitempty"`
	Run             *FlowRun         `json:"run,omitempty"`
	Error           string           `json:"error,omitempty"`
	LatencyMs       int64            `json:"latency_ms"`
}
