package domain

import (
	"dario.cat/mergo"
	json "github.com/goccy/go-json"
)

// MergeNodeConfig overlays per-flow node configuration on top of an
// executor's declared defaults. Neither input map is mutated.
func MergeNodeConfig(defaults, overrides map[string]interface{}) (map[string]interface{}, error) {
	if len(defaults) == 0 {
		return overrides, nil
	}

	merged := make(map[string]interface{}, len(defaults))
	for k, v := range defaults {
		merged[k] = v
	}

	if err := mergo.Merge(&merged, overrides, mergo.WithOverride); err != nil {
		return nil, NewFlowError("", "", "merge_node_config", err)
	}

	return merged, nil
}

// MergeOutputs combines two JSON-encoded node outputs: objects merge key by
// key with the right side winning, arrays concatenate, anything else is
// replaced by the right side. Fan-in is opt-in, so only merge-style node
// types call this.
func MergeOutputs(current, incoming json.RawMessage) (json.RawMessage, error) {
	if len(current) == 0 {
		return incoming, nil
	}
	if len(incoming) == 0 {
		return current, nil
	}

	var currentData, incomingData interface{}

	if err := json.Unmarshal(current, &currentData); err != nil {
		return nil, NewFlowError("", "", "unmarshal_current", err)
	}
	if err := json.Unmarshal(incoming, &incomingData); err != nil {
		return nil, NewFlowError("", "", "unmarshal_incoming", err)
	}

	switch {
	case isObject(currentData) && isObject(incomingData):
		currentMap := currentData.(map[string]interface{})
		incomingMap := incomingData.(map[string]interface{})

		if err := mergo.Merge(&currentMap, incomingMap,
			mergo.WithOverride,
			mergo.WithAppendSlice); err != nil {
			return nil, NewFlowError("", "", "mergo_merge", err)
		}

		merged, err := json.Marshal(currentMap)
		if err != nil {
			return nil, NewFlowError("", "", "marshal_merged", err)
		}
		return merged, nil

	case isArray(currentData) && isArray(incomingData):
		currentSlice := currentData.([]interface{})
		incomingSlice := incomingData.([]interface{})

		merged := make([]interface{}, 0, len(currentSlice)+len(incomingSlice))
		merged = append(merged, currentSlice...)
		merged = append(merged, incomingSlice...)

		mergedBytes, err := json.Marshal(merged)
		if err != nil {
			return nil, NewFlowError("", "", "marshal_array", err)
		}
		return mergedBytes, nil

	default:
		return incoming, nil
	}
}

func isObject(v interface{}) bool {
	_, ok := v.(map[string]interface{})
	return ok
}

func isArray(v interface{}) bool {
	_, ok := v.([]interface{})
	return ok
}
