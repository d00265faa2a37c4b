// Package catalog holds the static provenance catalog: the node type
// definitions and the relationship rules that govern which dependency edges may
// be created between instances of those types. A Catalog is built once at
// startup and is read-only afterwards.
package catalog

import (
	"fmt"
	"strings"

	"gopkg.in/yaml.v3"
)

// Classification is the single-level type family of a definition.
type Classification string

const (
	Entity   Classification = "entity"
	Activity Classification = "activity"
	Agent    Classification = "agent"
)

// Valid reports whether c is one of the three classifications.
func (c Classification) Valid() bool {
	switch c {
	case Entity, Activity, Agent:
		return true
	}
	return false
}

// RelationshipType is a dependency type label.
type RelationshipType string

const (
	Used               RelationshipType = "Used"
	UsedForValidation  RelationshipType = "Used for validation"
	UsedForCalibration RelationshipType = "Used for calibration"
	DerivedFrom        RelationshipType = "Derived from"
	GeneratedBy        RelationshipType = "Generated by"
)

// RelationshipTypes lists the full vocabulary in a stable order.
var RelationshipTypes = []RelationshipType{Used, UsedForValidation, UsedForCalibration, DerivedFrom, GeneratedBy}

// VersionTypes are the dependency types that order versions of a definition.
var VersionTypes = []RelationshipType{GeneratedBy, Used, DerivedFrom}

// ParseRelationshipType maps a label onto the vocabulary.
func ParseRelationshipType(s string) (RelationshipType, error) {
	for _, t := range RelationshipTypes {
		if string(t) == s {
			return t, nil
		}
	}
	return "", fmt.Errorf("%w: %q", ErrUnknownRelationshipType, s)
}

// Cardinality bounds how many edges of one rule may leave a node.
type Cardinality string

const (
	OneToOne  Cardinality = "one-to-one"
	OneToMany Cardinality = "one-to-many"
)

// InformationField describes one information slot of a definition. A field
// without options is free text.
type InformationField struct {
	Name    string
	Options []string
}

// ParseInformationField decodes the comma-separated descriptor form: the first
// token is the field name and any remaining tokens are the allowed values.
func ParseInformationField(s string) InformationField {
	parts := strings.Split(s, ",")
	f := InformationField{Name: strings.TrimSpace(parts[0])}
	for _, p := range parts[1:] {
		if p = strings.TrimSpace(p); p != "" {
			f.Options = append(f.Options, p)
		}
	}
	return f
}

// String encodes the field back into descriptor form.
func (f InformationField) String() string {
	return strings.Join(append([]string{f.Name}, f.Options...), ",")
}

// Enumerated reports whether the field restricts its values.
func (f InformationField) Enumerated() bool { return len(f.Options) > 0 }

// Allows reports whether value is acceptable for the field.
func (f InformationField) Allows(value string) bool {
	if !f.Enumerated() {
		return true
	}
	for _, o := range f.Options {
		if o == value {
			return true
		}
	}
	return false
}

// UnmarshalYAML reads the descriptor string form.
func (f *InformationField) UnmarshalYAML(node *yaml.Node) error {
	var s string
	if err := node.Decode(&s); err != nil {
		return err
	}
	*f = ParseInformationField(s)
	return nil
}

// MarshalYAML writes the descriptor string form.
func (f InformationField) MarshalYAML() (any, error) {
	return f.String(), nil
}

// Definition is a provenance node type.
type Definition struct {
	ID                string             `yaml:"id" validate:"required"`
	Classification    Classification     `yaml:"classification" validate:"required,oneof=entity activity agent"`
	Label             string             `yaml:"label,omitempty"`
	LabelFormatString string             `yaml:"labelFormatString,omitempty"`
	InformationFields []InformationField `yaml:"informationFields,omitempty" validate:"dive"`
}

// InformationField looks up a field by name.
func (d *Definition) InformationField(name string) (InformationField, bool) {
	for _, f := range d.InformationFields {
		if f.Name == name {
			return f, true
		}
	}
	return InformationField{}, false
}

// Rule permits edges of the listed types from instances of Source to
// instances of Target.
type Rule struct {
	ID          string             `yaml:"id" validate:"required"`
	Types       []RelationshipType `yaml:"type" validate:"min=1,dive,oneof='Used' 'Used for validation' 'Used for calibration' 'Derived from' 'Generated by'"`
	Cardinality Cardinality        `yaml:"cardinality" validate:"required,oneof=one-to-one one-to-many"`
	Source      string             `yaml:"source" validate:"required"`
	Target      string             `yaml:"target" validate:"required"`
}

// Permits reports whether t is one of the rule's types.
func (r *Rule) Permits(t RelationshipType) bool {
	for _, rt := range r.Types {
		if rt == t {
			return true
		}
	}
	return false
}
