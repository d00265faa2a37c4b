// Package storage is an in-memory property graph used as the default graph
// store. Nodes are addressed by (label, id); edges carry a relationship type
// and connect two addressed nodes.
package storage

import (
	"encoding/json"
	"fmt"
	"reflect"
)

// ValueType represents the type of a property value
type ValueType uint8

const (
	TypeString ValueType = iota
	TypeNumber
	TypeBool
	TypeList
)

func (t ValueType) String() string {
	switch t {
	case TypeString:
		return "string"
	case TypeNumber:
		return "number"
	case TypeBool:
		return "bool"
	case TypeList:
		return "list"
	}
	return fmt.Sprintf("ValueType(%d)", uint8(t))
}

// Value represents a typed property value. Lists hold primitive values only.
type Value struct {
	Type ValueType
	str  string
	num  float64
	b    bool
	list []Value
}

// Helper functions to create typed values
func StringValue(s string) Value  { return Value{Type: TypeString, str: s} }
func NumberValue(f float64) Value { return Value{Type: TypeNumber, num: f} }
func BoolValue(b bool) Value      { return Value{Type: TypeBool, b: b} }

func ListValue(items ...Value) Value {
	l := make([]Value, len(items))
	copy(l, items)
	return Value{Type: TypeList, list: l}
}

// ValueOf converts a native Go value. Integers and floats of any width become
// numbers; slices become lists.
func ValueOf(v any) (Value, error) {
	switch x := v.(type) {
	case Value:
		return x, nil
	case string:
		return StringValue(x), nil
	case bool:
		return BoolValue(x), nil
	case float64:
		return NumberValue(x), nil
	case float32:
		return NumberValue(float64(x)), nil
	case int:
		return NumberValue(float64(x)), nil
	case int64:
		return NumberValue(float64(x)), nil
	case int32:
		return NumberValue(float64(x)), nil
	case uint64:
		return NumberValue(float64(x)), nil
	case []string:
		items := make([]Value, len(x))
		for i, s := range x {
			items[i] = StringValue(s)
		}
		return Value{Type: TypeList, list: items}, nil
	case []any:
		items := make([]Value, len(x))
		for i, e := range x {
			iv, err := ValueOf(e)
			if err != nil {
				return Value{}, err
			}
			if iv.Type == TypeList {
				return Value{}, fmt.Errorf("%w: nested list", ErrInvalidValue)
			}
			items[i] = iv
		}
		return Value{Type: TypeList, list: items}, nil
	}

	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return NumberValue(float64(rv.Int())), nil
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		return NumberValue(float64(rv.Uint())), nil
	case reflect.Float32, reflect.Float64:
		return NumberValue(rv.Float()), nil
	case reflect.Slice:
		items := make([]any, rv.Len())
		for i := range items {
			items[i] = rv.Index(i).Interface()
		}
		return ValueOf(items)
	}
	return Value{}, fmt.Errorf("%w: %T", ErrInvalidValue, v)
}

// AsString returns the string payload.
func (v Value) AsString() (string, error) {
	if v.Type != TypeString {
		return "", fmt.Errorf("value is not a string")
	}
	return v.str, nil
}

// AsNumber returns the number payload.
func (v Value) AsNumber() (float64, error) {
	if v.Type != TypeNumber {
		return 0, fmt.Errorf("value is not a number")
	}
	return v.num, nil
}

// AsBool returns the bool payload.
func (v Value) AsBool() (bool, error) {
	if v.Type != TypeBool {
		return false, fmt.Errorf("value is not a bool")
	}
	return v.b, nil
}

// AsList returns a copy of the list payload.
func (v Value) AsList() ([]Value, error) {
	if v.Type != TypeList {
		return nil, fmt.Errorf("value is not a list")
	}
	out := make([]Value, len(v.list))
	copy(out, v.list)
	return out, nil
}

// Interface returns the native form: string, float64, bool or []any.
func (v Value) Interface() any {
	switch v.Type {
	case TypeString:
		return v.str
	case TypeNumber:
		return v.num
	case TypeBool:
		return v.b
	case TypeList:
		out := make([]any, len(v.list))
		for i, item := range v.list {
			out[i] = item.Interface()
		}
		return out
	}
	return nil
}

// Equal reports deep equality.
func (v Value) Equal(o Value) bool {
	if v.Type != o.Type {
		return false
	}
	switch v.Type {
	case TypeString:
		return v.str == o.str
	case TypeNumber:
		return v.num == o.num
	case TypeBool:
		return v.b == o.b
	case TypeList:
		if len(v.list) != len(o.list) {
			return false
		}
		for i := range v.list {
			if !v.list[i].Equal(o.list[i]) {
				return false
			}
		}
		return true
	}
	return false
}

// MarshalJSON encodes the native form.
func (v Value) MarshalJSON() ([]byte, error) {
	return json.Marshal(v.Interface())
}

// UnmarshalJSON decodes the native form.
func (v *Value) UnmarshalJSON(data []byte) error {
	var raw any
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	parsed, err := ValueOf(raw)
	if err != nil {
		return err
	}
	*v = parsed
	return nil
}

// Properties converts a native record into typed properties. Nil values are
// skipped: they mean "absent" and never become stored nulls.
func Properties(rec map[string]any) (map[string]Value, error) {
	props := make(map[string]Value, len(rec))
	for k, raw := range rec {
		if raw == nil {
			continue
		}
		v, err := ValueOf(raw)
		if err != nil {
			return nil, fmt.Errorf("property %s: %w", k, err)
		}
		props[k] = v
	}
	return props, nil
}

// NodeRef addresses a node.
type NodeRef struct {
	Label string `json:"label"`
	ID    string `json:"id"`
}

func (r NodeRef) String() string { return r.Label + "/" + r.ID }

// Node represents a vertex in the graph
type Node struct {
	Label      string           `json:"label"`
	ID         string           `json:"id"`
	Properties map[string]Value `json:"properties"`
	CreatedAt  int64            `json:"createdAt"`
	UpdatedAt  int64            `json:"updatedAt"`
}

// Ref returns the node's address.
func (n *Node) Ref() NodeRef { return NodeRef{Label: n.Label, ID: n.ID} }

// Clone creates a deep copy of a node
func (n *Node) Clone() *Node {
	clone := *n
	clone.Properties = make(map[string]Value, len(n.Properties))
	for k, v := range n.Properties {
		clone.Properties[k] = v
	}
	return &clone
}

// GetProperty gets a property value
func (n *Node) GetProperty(key string) (Value, bool) {
	val, ok := n.Properties[key]
	return val, ok
}

// StringProperty returns a string property or "" when absent or not a string.
func (n *Node) StringProperty(key string) string {
	if v, ok := n.Properties[key]; ok && v.Type == TypeString {
		return v.str
	}
	return ""
}

// Record returns the node's properties in native form, always including id.
func (n *Node) Record() map[string]any {
	rec := make(map[string]any, len(n.Properties)+1)
	for k, v := range n.Properties {
		rec[k] = v.Interface()
	}
	rec["id"] = n.ID
	return rec
}

// Edge represents a relationship between nodes
type Edge struct {
	ID         string           `json:"id"`
	Type       string           `json:"type"`
	From       NodeRef          `json:"from"`
	To         NodeRef          `json:"to"`
	Properties map[string]Value `json:"properties,omitempty"`
	CreatedAt  int64            `json:"createdAt"`
}

// Clone creates a deep copy of an edge
func (e *Edge) Clone() *Edge {
	clone := *e
	clone.Properties = make(map[string]Value, len(e.Properties))
	for k, v := range e.Properties {
		clone.Properties[k] = v
	}
	return &clone
}

// StringProperty returns a string property or "" when absent or not a string.
func (e *Edge) StringProperty(key string) string {
	if v, ok := e.Properties[key]; ok && v.Type == TypeString {
		return v.str
	}
	return ""
}
