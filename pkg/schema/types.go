// Package schema is a small declarative DSL for the records kept in the
// provenance graph. A Schema declares an ordered list of required and optional
// fields, each with a primitive type, a union of string literals, or an array
// of one of those. Records are validated against their schema before anything
// is written to a store.
package schema

import (
	"fmt"
	"strings"
)

// Kind is the type family of a field.
type Kind uint8

const (
	KindBoolean Kind = iota + 1
	KindNumber
	KindString
	KindEnum // union of string literals
	KindArray
)

func (k Kind) String() string {
	switch k {
	case KindBoolean:
		return "boolean"
	case KindNumber:
		return "number"
	case KindString:
		return "string"
	case KindEnum:
		return "enum"
	case KindArray:
		return "array"
	default:
		return "unknown"
	}
}

// FieldType describes the runtime type a field value must have.
type FieldType struct {
	Kind     Kind
	Literals []string   // KindEnum only
	Elem     *FieldType // KindArray only
}

// Boolean returns the boolean field type.
func Boolean() FieldType { return FieldType{Kind: KindBoolean} }

// Number returns the number field type. Any Go integer or float satisfies it.
func Number() FieldType { return FieldType{Kind: KindNumber} }

// String returns the free-text field type.
func String() FieldType { return FieldType{Kind: KindString} }

// Enum returns a union of string literals.
func Enum(literals ...string) FieldType {
	lits := make([]string, len(literals))
	copy(lits, literals)
	return FieldType{Kind: KindEnum, Literals: lits}
}

// ArrayOf returns an array type whose elements have the given type.
func ArrayOf(elem FieldType) FieldType {
	e := elem
	return FieldType{Kind: KindArray, Elem: &e}
}

// String renders the type the way it appears in error messages.
func (t FieldType) String() string {
	switch t.Kind {
	case KindEnum:
		quoted := make([]string, len(t.Literals))
		for i, l := range t.Literals {
			quoted[i] = fmt.Sprintf("%q", l)
		}
		return strings.Join(quoted, " | ")
	case KindArray:
		if t.Elem == nil {
			return "array"
		}
		return "array<" + t.Elem.String() + ">"
	default:
		return t.Kind.String()
	}
}

// allows reports whether lit is one of the enum literals.
func (t FieldType) allows(lit string) bool {
	for _, l := range t.Literals {
		if l == lit {
			return true
		}
	}
	return false
}

// Field is a single declared field.
type Field struct {
	Name    string
	Type    FieldType
	Primary bool // the record id; exactly one per schema
	Unique  bool
}

// Descriptor is the input to Builder.Define.
type Descriptor struct {
	Name     string
	Required []Field
	Optional []Field
}

// RelationshipDescriptor declares a relationship schema between two node
// schemas. Its own fields follow the same rules as a node schema.
type RelationshipDescriptor struct {
	Descriptor
	Source string // name of the source node schema
	Target string // name of the target node schema
}

// Record is a candidate or stored record. A nil value means the field is
// undefined.
type Record map[string]any

// Clone returns a shallow copy of the record.
func (r Record) Clone() Record {
	out := make(Record, len(r))
	for k, v := range r {
		out[k] = v
	}
	return out
}

// String returns the string stored under key, or "" when absent or not a string.
func (r Record) String(key string) string {
	if s, ok := r[key].(string); ok {
		return s
	}
	return ""
}

// declaredField is a Field plus its requiredness, in declaration order.
type declaredField struct {
	Field
	Required bool
}

// Schema is a validated, immutable schema.
type Schema struct {
	name    string
	fields  []declaredField
	index   map[string]int
	primary string
}

// Name returns the schema name.
func (s *Schema) Name() string { return s.name }

// PrimaryKey returns the name of the primary field.
func (s *Schema) PrimaryKey() string { return s.primary }

// Fields returns the declared fields in declaration order, required first.
func (s *Schema) Fields() []Field {
	out := make([]Field, len(s.fields))
	for i, f := range s.fields {
		out[i] = f.Field
	}
	return out
}

// Field looks up a declared field.
func (s *Schema) Field(name string) (Field, bool) {
	i, ok := s.index[name]
	if !ok {
		return Field{}, false
	}
	return s.fields[i].Field, true
}

// IsRequired reports whether name is a declared required field.
func (s *Schema) IsRequired(name string) bool {
	i, ok := s.index[name]
	return ok && s.fields[i].Required
}

// Has reports whether the schema declares name.
func (s *Schema) Has(name string) bool {
	_, ok := s.index[name]
	return ok
}
