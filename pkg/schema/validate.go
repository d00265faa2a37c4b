package schema

import (
	"encoding/json"
	"fmt"
	"sort"
)

type validateOptions struct {
	strict bool
}

// Option tunes validation.
type Option func(*validateOptions)

// WithStrict rejects fields the schema does not declare.
func WithStrict() Option {
	return func(o *validateOptions) { o.strict = true }
}

// Validate checks rec against the schema and returns it unchanged on success.
// Unknown fields pass through unless WithStrict is given.
func (s *Schema) Validate(rec Record, opts ...Option) (Record, error) {
	var o validateOptions
	for _, opt := range opts {
		opt(&o)
	}

	for _, f := range s.fields {
		v, present := rec[f.Name]
		if !present || v == nil {
			if f.Required {
				return nil, &ValidationError{Kind: MissingRequiredField, Schema: s.name, Field: f.Name}
			}
			continue
		}
		if !matches(f.Type, v) {
			return nil, &ValidationError{
				Kind:     TypeMismatch,
				Schema:   s.name,
				Field:    f.Name,
				Expected: f.Type.String(),
				Actual:   describe(v),
			}
		}
	}

	if o.strict {
		// Sorted so the reported field does not depend on map order.
		keys := make([]string, 0, len(rec))
		for k := range rec {
			if _, declared := s.index[k]; !declared {
				keys = append(keys, k)
			}
		}
		if len(keys) > 0 {
			sort.Strings(keys)
			return nil, &ValidationError{Kind: UnknownField, Schema: s.name, Field: keys[0]}
		}
	}

	return rec, nil
}

// ValidateAll validates a batch and enforces primary and unique fields across it.
func (s *Schema) ValidateAll(records []Record, opts ...Option) ([]Record, error) {
	seen := make(map[string]map[string]bool)
	kinds := make(map[string]Kind)
	for _, f := range s.fields {
		if f.Primary || f.Unique {
			seen[f.Name] = make(map[string]bool)
			kinds[f.Name] = f.Type.Kind
		}
	}

	out := make([]Record, 0, len(records))
	for _, rec := range records {
		valid, err := s.Validate(rec, opts...)
		if err != nil {
			return nil, err
		}
		for name, values := range seen {
			v, ok := rec[name]
			if !ok || v == nil {
				continue
			}
			key := uniqueKey(kinds[name], v)
			if values[key] {
				return nil, &ValidationError{Kind: DuplicateValue, Schema: s.name, Field: name, Actual: describeValue(v)}
			}
			values[key] = true
		}
		out = append(out, valid)
	}
	return out, nil
}

// uniqueKey is the field kind plus the value's canonical JSON, so values
// that merely print alike do not collide.
func uniqueKey(k Kind, v any) string {
	b, err := json.Marshal(v)
	if err != nil {
		return fmt.Sprintf("%d:%#v", k, v)
	}
	return fmt.Sprintf("%d:%s", k, b)
}

func describeValue(v any) string {
	if b, err := json.Marshal(v); err == nil {
		return string(b)
	}
	return fmt.Sprintf("%v", v)
}

func matches(t FieldType, v any) bool {
	switch t.Kind {
	case KindBoolean:
		_, ok := v.(bool)
		return ok
	case KindNumber:
		return isNumber(v)
	case KindString:
		_, ok := v.(string)
		return ok
	case KindEnum:
		s, ok := v.(string)
		return ok && t.allows(s)
	case KindArray:
		return matchesArray(*t.Elem, v)
	default:
		return false
	}
}

func matchesArray(elem FieldType, v any) bool {
	switch arr := v.(type) {
	case []any:
		for _, e := range arr {
			if e == nil || !matches(elem, e) {
				return false
			}
		}
		return true
	case []string:
		if elem.Kind != KindString && elem.Kind != KindEnum {
			return false
		}
		for _, e := range arr {
			if !matches(elem, e) {
				return false
			}
		}
		return true
	case []float64, []int, []int64:
		return elem.Kind == KindNumber
	case []bool:
		return elem.Kind == KindBoolean
	default:
		return false
	}
}

func isNumber(v any) bool {
	switch v.(type) {
	case int, int8, int16, int32, int64,
		uint, uint8, uint16, uint32, uint64,
		float32, float64:
		return true
	default:
		return false
	}
}

func describe(v any) string {
	switch v.(type) {
	case bool:
		return "boolean"
	case string:
		return fmt.Sprintf("string %q", v)
	case []any, []string, []float64, []int, []int64, []bool:
		return "array"
	default:
		if isNumber(v) {
			return "number"
		}
		return fmt.Sprintf("%T", v)
	}
}
