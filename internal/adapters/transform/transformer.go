package transform

import (
	"fmt"
	"log/slog"
	"strconv"

	"github.com/Xhuk/ContinuityBridge.poc-sub005/internal/domain"
	"github.com/Xhuk/ContinuityBridge.poc-sub005/internal/ports"
)

// Mapping keys that bind directly to the canonical identity fields; every
// other mapped field lands in CanonicalItem.Fields.
const (
	fieldItemID      = "itemId"
	fieldDestination = "destination"
)

type coercion string

const (
	coerceString coercion = "string"
	coerceInt    coercion = "int"
	coerceFloat  coercion = "float"
	coerceBool   coercion = "bool"
)

// FieldMapping declares how one canonical field is extracted from the raw
// document: a path for leaf fields, or nested Fields for object mappings.
type FieldMapping struct {
	Path     string                  `json:"path,omitempty" mapstructure:"path"`
	Type     string                  `json:"type,omitempty" mapstructure:"type"`
	Optional bool                    `json:"optional,omitempty" mapstructure:"optional"`
	Fields   map[string]FieldMapping `json:"fields,omitempty" mapstructure:"fields"`
}

type Config struct {
	Mappings map[string]FieldMapping `json:"mappings" mapstructure:"mappings"`
}

// Transformer converts a raw XML document into a canonical item using a
// declarative field mapping loaded once at construction. It holds no mutable
// state, so repeated transforms of identical input yield deep-equal output.
type Transformer struct {
	config Config
	logger *slog.Logger
}

var _ ports.CanonicalTransformer = (*Transformer)(nil)

func New(config Config, logger *slog.Logger) (*Transformer, error) {
	if logger == nil {
		logger = slog.Default()
	}
	if len(config.Mappings) == 0 {
		return nil, &domain.ValidationError{Field: "mappings", Reason: "at least one field mapping is required"}
	}
	if err := validateMappings("", config.Mappings); err != nil {
		return nil, err
	}

	return &Transformer{
		config: config,
		logger: logger.With("component", "transformer"),
	}, nil
}

func validateMappings(prefix string, mappings map[string]FieldMapping) error {
	for name, mapping := range mappings {
		qualified := name
		if prefix != "" {
			qualified = prefix + "." + name
		}

		if len(mapping.Fields) > 0 {
			if mapping.Path != "" {
				return &domain.ValidationError{Field: qualified, Reason: "object mapping cannot also declare a path"}
			}
			if err := validateMappings(qualified, mapping.Fields); err != nil {
				return err
			}
			continue
		}

		if mapping.Path == "" {
			return &domain.ValidationError{Field: qualified, Reason: "leaf mapping requires a path"}
		}
		switch coercion(mapping.Type) {
		case coerceString, coerceInt, coerceFloat, coerceBool, "":
		default:
			return &domain.ValidationError{Field: qualified, Reason: "unsupported type " + mapping.Type}
		}
	}
	return nil
}

func (t *Transformer) Transform(raw []byte) (domain.CanonicalItem, error) {
	root, err := parseXML(raw)
	if err != nil {
		return domain.CanonicalItem{}, err
	}

	item := domain.CanonicalItem{}
	fields := make(map[string]interface{})

	for name, mapping := range t.config.Mappings {
		value, ok, err := t.extract(root, name, mapping)
		if err != nil {
			return domain.CanonicalItem{}, err
		}
		if !ok {
			continue
		}

		switch name {
		case fieldItemID:
			item.ItemID = fmt.Sprintf("%v", value)
		case fieldDestination:
			item.Destination = fmt.Sprintf("%v", value)
		default:
			fields[name] = value
		}
	}

	if len(fields) > 0 {
		item.Fields = fields
	}
	return item, nil
}

// extract resolves one mapping against the tree. Missing optional fields are
// omitted, not errors; missing required fields fail the transform.
func (t *Transformer) extract(root *element, name string, mapping FieldMapping) (interface{}, bool, error) {
	if len(mapping.Fields) > 0 {
		object := make(map[string]interface{})
		for childName, childMapping := range mapping.Fields {
			value, ok, err := t.extract(root, name+"."+childName, childMapping)
			if err != nil {
				return nil, false, err
			}
			if ok {
				object[childName] = value
			}
		}
		if len(object) == 0 {
			return nil, false, nil
		}
		return object, true, nil
	}

	text, ok := root.lookup(mapping.Path)
	if !ok || text == "" {
		if mapping.Optional {
			return nil, false, nil
		}
		return nil, false, &domain.ValidationError{Field: name, Reason: "required field missing at path " + mapping.Path}
	}

	value, err := coerce(text, coercion(mapping.Type))
	if err != nil {
		return nil, false, &domain.ValidationError{Field: name, Reason: err.Error()}
	}
	return value, true, nil
}

func coerce(text string, kind coercion) (interface{}, error) {
	switch kind {
	case coerceString, "":
		return text, nil
	case coerceInt:
		n, err := strconv.ParseInt(text, 10, 64)
		if err != nil {
			return nil, fmt.Errorf("cannot coerce %q to int", text)
		}
		return n, nil
	case coerceFloat:
		f, err := strconv.ParseFloat(text, 64)
		if err != nil {
			return nil, fmt.Errorf("cannot coerce %q to float", text)
		}
		return f, nil
	case coerceBool:
		b, err := strconv.ParseBool(text)
		if err != nil {
			return nil, fmt.Errorf("cannot coerce %q to bool", text)
		}
		return b, nil
	default:
		return nil, fmt.Errorf("unsupported coercion %q", kind)
	}
}

// Validate performs a parse-only dry run so upstream callers can reject
// malformed input before queuing it.
func (t *Transformer) Validate(raw []byte) (bool, string) {
	if _, err := parseXML(raw); err != nil {
		return false, err.Error()
	}
	return true, ""
}
