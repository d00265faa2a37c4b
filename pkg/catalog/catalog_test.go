package catalog

import (
	"errors"
	"strings"
	"testing"
)

func scenarioCatalog(t *testing.T) *Catalog {
	t.Helper()
	c, err := New(
		[]Definition{
			{ID: "Simulation Model", Classification: Entity, LabelFormatString: "SM${version}"},
			{ID: "Calibrating Activity", Classification: Activity},
		},
		[]Rule{
			{ID: "sm-generated-by-ca", Types: []RelationshipType{GeneratedBy}, Cardinality: OneToOne,
				Source: "Simulation Model", Target: "Calibrating Activity"},
			{ID: "ca-used-sm", Types: []RelationshipType{Used, UsedForCalibration}, Cardinality: OneToMany,
				Source: "Calibrating Activity", Target: "Simulation Model"},
		},
	)
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}
	return c
}

func TestIsAllowed(t *testing.T) {
	c := scenarioCatalog(t)

	tests := []struct {
		source, target string
		typ            RelationshipType
		want           bool
	}{
		{"Simulation Model", "Calibrating Activity", GeneratedBy, true},
		{"Calibrating Activity", "Simulation Model", Used, true},
		{"Calibrating Activity", "Simulation Model", UsedForCalibration, true},
		{"Simulation Model", "Calibrating Activity", Used, false},
		{"Calibrating Activity", "Simulation Model", GeneratedBy, false},
		{"Simulation Model", "Simulation Model", DerivedFrom, false},
		{"Nope", "Simulation Model", Used, false},
	}

	for _, tt := range tests {
		if got := c.IsAllowed(tt.source, tt.target, tt.typ); got != tt.want {
			t.Errorf("IsAllowed(%q, %q, %q) = %v, want %v", tt.source, tt.target, tt.typ, got, tt.want)
		}
	}
}

func TestCardinalityFor(t *testing.T) {
	c := scenarioCatalog(t)

	card, ok := c.CardinalityFor("Simulation Model", "Calibrating Activity", GeneratedBy)
	if !ok || card != OneToOne {
		t.Errorf("CardinalityFor = %v, %v; want one-to-one", card, ok)
	}
	card, ok = c.CardinalityFor("Calibrating Activity", "Simulation Model", Used)
	if !ok || card != OneToMany {
		t.Errorf("CardinalityFor = %v, %v; want one-to-many", card, ok)
	}
	if _, ok := c.CardinalityFor("Simulation Model", "Calibrating Activity", Used); ok {
		t.Error("CardinalityFor should report no rule")
	}
}

func TestAllowedTypes(t *testing.T) {
	c := scenarioCatalog(t)
	got := c.AllowedTypes("Calibrating Activity", "Simulation Model")
	if len(got) != 2 || got[0] != Used || got[1] != UsedForCalibration {
		t.Errorf("AllowedTypes = %v", got)
	}
}

func TestNewRejectsInvalidCatalogs(t *testing.T) {
	sm := Definition{ID: "SM", Classification: Entity}
	ca := Definition{ID: "CA", Classification: Activity}
	rule := Rule{ID: "r", Types: []RelationshipType{GeneratedBy}, Cardinality: OneToOne, Source: "SM", Target: "CA"}

	tests := []struct {
		name  string
		defs  []Definition
		rules []Rule
	}{
		{"duplicate definition", []Definition{sm, sm}, nil},
		{"bad classification", []Definition{{ID: "X", Classification: "thing"}}, nil},
		{"missing id", []Definition{{Classification: Entity}}, nil},
		{"duplicate rule id", []Definition{sm, ca}, []Rule{rule, {ID: "r", Types: []RelationshipType{Used}, Cardinality: OneToMany, Source: "CA", Target: "SM"}}},
		{"unknown source", []Definition{ca}, []Rule{rule}},
		{"empty types", []Definition{sm, ca}, []Rule{{ID: "r", Cardinality: OneToOne, Source: "SM", Target: "CA"}}},
		{"unknown type", []Definition{sm, ca}, []Rule{{ID: "r", Types: []RelationshipType{"Caused"}, Cardinality: OneToOne, Source: "SM", Target: "CA"}}},
		{"bad cardinality", []Definition{sm, ca}, []Rule{{ID: "r", Types: []RelationshipType{Used}, Cardinality: "many-to-many", Source: "SM", Target: "CA"}}},
		{"overlapping rules", []Definition{sm, ca}, []Rule{rule, {ID: "r2", Types: []RelationshipType{GeneratedBy}, Cardinality: OneToMany, Source: "SM", Target: "CA"}}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := New(tt.defs, tt.rules)
			if !errors.Is(err, ErrInvalidCatalog) {
				t.Errorf("New() error = %v, want ErrInvalidCatalog", err)
			}
		})
	}
}

func TestParseInformationField(t *testing.T) {
	f := ParseInformationField("Status,Successful Validation,Successful Calibration")
	if f.Name != "Status" || len(f.Options) != 2 {
		t.Fatalf("ParseInformationField = %+v", f)
	}
	if !f.Allows("Successful Validation") || f.Allows("Failed") {
		t.Error("Allows should honour the enumerated options")
	}
	if f.String() != "Status,Successful Validation,Successful Calibration" {
		t.Errorf("String() = %q", f.String())
	}

	free := ParseInformationField("Description")
	if free.Enumerated() || !free.Allows("anything at all") {
		t.Error("bare name should be free text")
	}
}

func TestLoadYAML(t *testing.T) {
	src := `
definitions:
  - id: Simulation Model
    classification: entity
    labelFormatString: "SM${version}"
    informationFields:
      - Reference
      - Status,Successful Validation,Successful Calibration
  - id: Calibrating Activity
    classification: activity
rules:
  - id: sm-generated-by-ca
    type: [Generated by]
    cardinality: one-to-one
    source: Simulation Model
    target: Calibrating Activity
`
	c, err := Load(strings.NewReader(src))
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	d, ok := c.Definition("Simulation Model")
	if !ok {
		t.Fatal("definition missing")
	}
	status, ok := d.InformationField("Status")
	if !ok || !status.Enumerated() {
		t.Errorf("Status field = %+v, %v", status, ok)
	}
	if !c.IsAllowed("Simulation Model", "Calibrating Activity", GeneratedBy) {
		t.Error("rule from YAML not indexed")
	}

	if _, err := Load(strings.NewReader("definitions: [{id: X, classification: entity, colour: red}]")); !errors.Is(err, ErrInvalidCatalog) {
		t.Errorf("unknown YAML key should be rejected, got %v", err)
	}
}

func TestDefaultCatalog(t *testing.T) {
	c, err := Default()
	if err != nil {
		t.Fatalf("Default failed: %v", err)
	}
	if got := len(c.Definitions()); got != 38 {
		t.Errorf("expected 38 definitions, got %d", got)
	}
	if len(c.Rules()) == 0 {
		t.Fatal("expected rules")
	}
	for _, r := range c.Rules() {
		for _, typ := range r.Types {
			if !c.IsAllowed(r.Source, r.Target, typ) {
				t.Errorf("rule %s not indexed for %q", r.ID, typ)
			}
		}
	}
	if !c.IsAllowed("Simulation Model", "Calibrating Simulation Model", GeneratedBy) {
		t.Error("expected simulation model generated-by rule")
	}
}

func TestParseRelationshipType(t *testing.T) {
	if rt, err := ParseRelationshipType("Derived from"); err != nil || rt != DerivedFrom {
		t.Errorf("ParseRelationshipType = %v, %v", rt, err)
	}
	if _, err := ParseRelationshipType("derived from"); !errors.Is(err, ErrUnknownRelationshipType) {
		t.Errorf("expected ErrUnknownRelationshipType, got %v", err)
	}
}
