package schema

import "fmt"

// Relationship is a relationship schema between two node schemas.
type Relationship struct {
	*Schema
	Source *Schema
	Target *Schema
}

// Builder collects schema definitions. It is not safe for concurrent use; build
// the registry once at startup and share the result.
type Builder struct {
	schemas       map[string]*Schema
	relationships map[string]*Relationship
	err           error
}

// NewBuilder returns an empty builder.
func NewBuilder() *Builder {
	return &Builder{
		schemas:       make(map[string]*Schema),
		relationships: make(map[string]*Relationship),
	}
}

// Define validates a descriptor and registers the resulting node schema.
func (b *Builder) Define(d Descriptor) (*Schema, error) {
	if _, exists := b.schemas[d.Name]; exists {
		return nil, invalidSchema(d.Name, "already defined")
	}
	s, err := compile(d)
	if err != nil {
		return nil, err
	}
	b.schemas[d.Name] = s
	return s, nil
}

// DefineRelationship validates a relationship descriptor. Source and target
// must already be defined.
func (b *Builder) DefineRelationship(d RelationshipDescriptor) (*Relationship, error) {
	if _, exists := b.relationships[d.Name]; exists {
		return nil, invalidSchema(d.Name, "relationship already defined")
	}
	src, ok := b.schemas[d.Source]
	if !ok {
		return nil, invalidSchema(d.Name, "unknown source schema %q", d.Source)
	}
	tgt, ok := b.schemas[d.Target]
	if !ok {
		return nil, invalidSchema(d.Name, "unknown target schema %q", d.Target)
	}
	s, err := compile(d.Descriptor)
	if err != nil {
		return nil, err
	}
	rel := &Relationship{Schema: s, Source: src, Target: tgt}
	b.relationships[d.Name] = rel
	return rel, nil
}

// must records the first error so a chain of definitions can be checked once.
func (b *Builder) must(d Descriptor) {
	if b.err != nil {
		return
	}
	_, b.err = b.Define(d)
}

func (b *Builder) mustRelationship(d RelationshipDescriptor) {
	if b.err != nil {
		return
	}
	_, b.err = b.DefineRelationship(d)
}

// Build returns the read-only registry.
func (b *Builder) Build() (*Registry, error) {
	if b.err != nil {
		return nil, b.err
	}
	r := &Registry{
		schemas:       make(map[string]*Schema, len(b.schemas)),
		relationships: make(map[string]*Relationship, len(b.relationships)),
	}
	for k, v := range b.schemas {
		r.schemas[k] = v
	}
	for k, v := range b.relationships {
		r.relationships[k] = v
	}
	return r, nil
}

// Registry is an immutable set of schemas. Safe for concurrent reads.
type Registry struct {
	schemas       map[string]*Schema
	relationships map[string]*Relationship
}

// Schema looks up a node schema by name.
func (r *Registry) Schema(name string) (*Schema, error) {
	s, ok := r.schemas[name]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownSchema, name)
	}
	return s, nil
}

// Relationship looks up a relationship schema by name.
func (r *Registry) Relationship(name string) (*Relationship, error) {
	rel, ok := r.relationships[name]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownSchema, name)
	}
	return rel, nil
}

// compile checks a descriptor and freezes it into a Schema.
func compile(d Descriptor) (*Schema, error) {
	if d.Name == "" {
		return nil, invalidSchema(d.Name, "name is empty")
	}

	s := &Schema{
		name:  d.Name,
		index: make(map[string]int),
	}

	add := func(f Field, required bool) error {
		if f.Name == "" {
			return invalidSchema(d.Name, "field with empty name")
		}
		if _, dup := s.index[f.Name]; dup {
			return invalidSchema(d.Name, "field %q declared twice", f.Name)
		}
		if err := checkType(f.Type, false); err != nil {
			return invalidSchema(d.Name, "field %q: %v", f.Name, err)
		}
		if f.Primary {
			if !required {
				return invalidSchema(d.Name, "primary field %q must be required", f.Name)
			}
			if f.Type.Kind != KindString {
				return invalidSchema(d.Name, "primary field %q must be a string", f.Name)
			}
			if s.primary != "" {
				return invalidSchema(d.Name, "second primary field %q (already %q)", f.Name, s.primary)
			}
			s.primary = f.Name
		}
		s.index[f.Name] = len(s.fields)
		s.fields = append(s.fields, declaredField{Field: f, Required: required})
		return nil
	}

	for _, f := range d.Required {
		if err := add(f, true); err != nil {
			return nil, err
		}
	}
	for _, f := range d.Optional {
		if err := add(f, false); err != nil {
			return nil, err
		}
	}

	if s.primary == "" {
		return nil, invalidSchema(d.Name, "no primary field")
	}
	return s, nil
}

func checkType(t FieldType, inArray bool) error {
	switch t.Kind {
	case KindBoolean, KindNumber, KindString:
		return nil
	case KindEnum:
		if len(t.Literals) == 0 {
			return fmt.Errorf("enum without literals")
		}
		return nil
	case KindArray:
		if inArray {
			return fmt.Errorf("nested arrays are not supported")
		}
		if t.Elem == nil {
			return fmt.Errorf("array without element type")
		}
		return checkType(*t.Elem, true)
	default:
		return fmt.Errorf("unsupported kind %d", t.Kind)
	}
}
