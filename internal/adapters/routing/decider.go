package routing

import (
	"fmt"
	"strings"

	"github.com/Xhuk/ContinuityBridge.poc-sub005/internal/domain"
	"github.com/Xhuk/ContinuityBridge.poc-sub005/internal/ports"
)

// Rule is one routing clause: the first matching rule selects the warehouse.
// Exactly one matcher should be set.
type Rule struct {
	DestinationEquals string `json:"destination_equals,omitempty" mapstructure:"destination_equals"`
	FieldName         string `json:"field,omitempty" mapstructure:"field"`
	FieldEquals       string `json:"field_equals,omitempty" mapstructure:"field_equals"`
	FieldPrefix       string `json:"field_prefix,omitempty" mapstructure:"field_prefix"`

	Warehouse domain.Warehouse `json:"warehouse" mapstructure:"warehouse"`
	Reason    string           `json:"reason,omitempty" mapstructure:"reason"`
}

// Decider selects a target warehouse for a canonical item. It is a pure
// function of the item and the configured rules: no side effects, no I/O,
// safe to call speculatively.
type Decider struct {
	rules    []Rule
	fallback domain.Warehouse
}

var _ ports.OriginDecider = (*Decider)(nil)

func New(rules []Rule, fallback domain.Warehouse) *Decider {
	return &Decider{rules: rules, fallback: fallback}
}

func (d *Decider) Decide(item domain.CanonicalItem) domain.RoutingDecision {
	for i, rule := range d.rules {
		if !rule.matches(item) {
			continue
		}
		reason := rule.Reason
		if reason == "" {
			reason = fmt.Sprintf("rule %d matched", i)
		}
		return domain.RoutingDecision{
			SelectedWarehouse: rule.Warehouse,
			Reason:            reason,
		}
	}

	return domain.RoutingDecision{
		SelectedWarehouse: d.fallback,
		Reason:            "no routing rule matched, using default warehouse",
	}
}

func (r *Rule) matches(item domain.CanonicalItem) bool {
	if r.DestinationEquals != "" {
		return strings.EqualFold(item.Destination, r.DestinationEquals)
	}

	if r.FieldName != "" {
		value, ok := item.Fields[r.FieldName]
		if !ok {
			return false
		}
		text := fmt.Sprintf("%v", value)
		if r.FieldEquals != "" {
			return text == r.FieldEquals
		}
		if r.FieldPrefix != "" {
			return strings.HasPrefix(text, r.FieldPrefix)
		}
	}

	return false
}
