package constraints

import (
	"context"
	"errors"
	"testing"

	"github.com/dd0wney/provenance-graph/pkg/catalog"
	"github.com/dd0wney/provenance-graph/pkg/provenance"
	"github.com/dd0wney/provenance-graph/pkg/storage"
)

func setupCatalog(t *testing.T) *catalog.Catalog {
	t.Helper()
	c, err := catalog.New(
		[]catalog.Definition{
			{ID: "Simulation Model", Classification: catalog.Entity, LabelFormatString: "SM${version}",
				InformationFields: []catalog.InformationField{
					catalog.ParseInformationField("Status,Successful Validation,Successful Calibration"),
				}},
			{ID: "Calibrating Activity", Classification: catalog.Activity},
			{ID: "Dataset", Classification: catalog.Entity},
		},
		[]catalog.Rule{
			{ID: "sm-generated-by-ca", Types: []catalog.RelationshipType{catalog.GeneratedBy},
				Cardinality: catalog.OneToOne, Source: "Simulation Model", Target: "Calibrating Activity"},
			{ID: "ca-used-ds", Types: []catalog.RelationshipType{catalog.Used, catalog.UsedForCalibration},
				Cardinality: catalog.OneToMany, Source: "Calibrating Activity", Target: "Dataset"},
			{ID: "sm-derived-from-sm", Types: []catalog.RelationshipType{catalog.DerivedFrom},
				Cardinality: catalog.OneToMany, Source: "Simulation Model", Target: "Simulation Model"},
		},
	)
	if err != nil {
		t.Fatalf("catalog.New failed: %v", err)
	}
	return c
}

func setupTestGraph(t *testing.T, nodes map[string]string) *storage.GraphStorage {
	t.Helper()
	gs := storage.NewGraphStorage()
	for id, def := range nodes {
		if _, err := gs.MergeOnID(context.Background(), provenance.NodeLabel, id,
			map[string]storage.Value{"definitionId": storage.StringValue(def)}, nil); err != nil {
			t.Fatalf("MergeOnID failed: %v", err)
		}
	}
	return gs
}

func addDependency(t *testing.T, gs *storage.GraphStorage, id, src, tgt string, typ catalog.RelationshipType) {
	t.Helper()
	d := provenance.Dependency{ID: id, Source: src, Target: tgt, Type: typ}
	if _, err := gs.CreateEdge(context.Background(), d.Edge()); err != nil {
		t.Fatalf("CreateEdge failed: %v", err)
	}
}

// TestEdgeGuard_CalibrationScenario walks the simulation model example: the
// first Generated by edge is allowed, a second one under the same one-to-one
// rule is not.
func TestEdgeGuard_CalibrationScenario(t *testing.T) {
	ctx := context.Background()
	guard := NewEdgeGuard(setupCatalog(t))
	gs := setupTestGraph(t, map[string]string{
		"m1": "Simulation Model",
		"c1": "Calibrating Activity",
		"c2": "Calibrating Activity",
	})

	rule, err := guard.Check(ctx, gs, "m1", "c1", catalog.GeneratedBy)
	if err != nil {
		t.Fatalf("first edge rejected: %v", err)
	}
	if rule.ID != "sm-generated-by-ca" {
		t.Errorf("rule = %s", rule.ID)
	}
	addDependency(t, gs, "e1", "m1", "c1", catalog.GeneratedBy)

	_, err = guard.Check(ctx, gs, "m1", "c2", catalog.GeneratedBy)
	if !errors.Is(err, ErrCardinalityViolation) {
		t.Fatalf("expected ErrCardinalityViolation, got %v", err)
	}
	var edgeErr *EdgeError
	if !errors.As(err, &edgeErr) || edgeErr.ExistingEdge != "e1" || edgeErr.RuleID != "sm-generated-by-ca" {
		t.Errorf("unexpected error detail: %+v", edgeErr)
	}
}

func TestEdgeGuard_OneToManyUnbounded(t *testing.T) {
	ctx := context.Background()
	guard := NewEdgeGuard(setupCatalog(t))
	gs := setupTestGraph(t, map[string]string{
		"c1": "Calibrating Activity",
		"d1": "Dataset", "d2": "Dataset", "d3": "Dataset",
	})

	for i, d := range []string{"d1", "d2", "d3"} {
		if _, err := guard.Check(ctx, gs, "c1", d, catalog.Used); err != nil {
			t.Fatalf("edge %d rejected: %v", i, err)
		}
		addDependency(t, gs, "e-"+d, "c1", d, catalog.Used)
	}
}

func TestEdgeGuard_Rejections(t *testing.T) {
	ctx := context.Background()
	guard := NewEdgeGuard(setupCatalog(t))
	gs := setupTestGraph(t, map[string]string{
		"m1":  "Simulation Model",
		"c1":  "Calibrating Activity",
		"bad": "Retired Definition",
	})

	tests := []struct {
		name   string
		source string
		target string
		typ    catalog.RelationshipType
		want   error
	}{
		{"wrong type", "m1", "c1", catalog.Used, ErrRuleViolation},
		{"wrong direction", "c1", "m1", catalog.GeneratedBy, ErrRuleViolation},
		{"unknown type", "m1", "c1", "Caused", catalog.ErrUnknownRelationshipType},
		{"missing source", "zz", "c1", catalog.GeneratedBy, ErrNodeNotFound},
		{"missing target", "m1", "zz", catalog.GeneratedBy, ErrNodeNotFound},
		{"dangling definition", "bad", "c1", catalog.GeneratedBy, ErrDanglingDefinition},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := guard.Check(ctx, gs, tt.source, tt.target, tt.typ)
			if !errors.Is(err, tt.want) {
				t.Errorf("Check() error = %v, want %v", err, tt.want)
			}
		})
	}
}

func TestAuditValidator(t *testing.T) {
	ctx := context.Background()
	c := setupCatalog(t)
	gs := setupTestGraph(t, map[string]string{
		"m1":  "Simulation Model",
		"m2":  "Simulation Model",
		"c1":  "Calibrating Activity",
		"c2":  "Calibrating Activity",
		"bad": "Retired Definition",
	})

	// Written directly to the store, bypassing the guard.
	addDependency(t, gs, "ok", "m1", "c1", catalog.GeneratedBy)
	addDependency(t, gs, "dup", "m1", "c2", catalog.GeneratedBy)
	addDependency(t, gs, "forbidden", "c1", "m1", catalog.Used)
	addDependency(t, gs, "loop-a", "m1", "m2", catalog.DerivedFrom)
	addDependency(t, gs, "loop-b", "m2", "m1", catalog.DerivedFrom)

	gs.MergeOnID(ctx, provenance.InformationLabel, "i1",
		map[string]storage.Value{"key": storage.StringValue("Status"), "value": storage.StringValue("Exploded")}, nil)
	gs.CreateEdge(ctx, &storage.Edge{ID: "h1", Type: provenance.HasInformationEdge,
		From: storage.NodeRef{Label: provenance.NodeLabel, ID: "m1"},
		To:   storage.NodeRef{Label: provenance.InformationLabel, ID: "i1"}})
	gs.MergeOnID(ctx, provenance.InformationLabel, "orphan",
		map[string]storage.Value{"key": storage.StringValue("Status"), "value": storage.StringValue("x")}, nil)

	result, err := NewAuditValidator(c).Validate(ctx, gs)
	if err != nil {
		t.Fatalf("Validate failed: %v", err)
	}
	if result.Valid {
		t.Fatal("expected violations")
	}

	expect := map[ViolationType]int{
		RuleViolation:        1,
		CardinalityViolation: 1,
		DanglingDefinition:   1,
		CyclicDependency:     1, // m1<->m2; m1<->c1 spans two definitions
		InvalidInformation:   2,
	}
	for vt, n := range expect {
		if got := len(result.GetViolationsByType(vt)); got != n {
			t.Errorf("%s: got %d violations, want %d: %+v", vt, got, n, result.GetViolationsByType(vt))
		}
	}
	if cyc := result.GetViolationsByType(CyclicDependency); len(cyc) == 1 && cyc[0].Details["definitionId"] != "Simulation Model" {
		t.Errorf("cycle should be between simulation models, got %+v", cyc[0])
	}
	if cv := result.GetViolationsByType(CardinalityViolation); len(cv) == 1 && cv[0].EdgeID != "dup" {
		t.Errorf("cardinality violation should name the second edge, got %s", cv[0].EdgeID)
	}
	if len(result.GetViolationsBySeverity(Warning)) != 1 {
		t.Errorf("expected only the orphan field as a warning")
	}
}

func TestParseViolationType(t *testing.T) {
	for vt := MissingProperty; vt <= CyclicDependency; vt++ {
		got, err := ParseViolationType(vt.String())
		if err != nil || got != vt {
			t.Errorf("ParseViolationType(%q) = %v, %v", vt.String(), got, err)
		}
	}
	if _, err := ParseViolationType("Cycle"); !errors.Is(err, ErrUnknownViolationType) {
		t.Errorf("expected ErrUnknownViolationType, got %v", err)
	}
}

func TestAuditValidator_CleanGraph(t *testing.T) {
	ctx := context.Background()
	gs := setupTestGraph(t, map[string]string{"m1": "Simulation Model", "c1": "Calibrating Activity"})
	addDependency(t, gs, "e1", "m1", "c1", catalog.GeneratedBy)

	result, err := NewAuditValidator(setupCatalog(t)).Validate(ctx, gs)
	if err != nil {
		t.Fatalf("Validate failed: %v", err)
	}
	if !result.Valid {
		t.Errorf("expected a valid graph, got %+v", result.Violations)
	}
}

func TestSchemaConstraint(t *testing.T) {
	ctx := context.Background()
	gs := storage.NewGraphStorage()
	gs.MergeOnID(ctx, provenance.NodeLabel, "n1", nil, nil)
	gs.MergeOnID(ctx, provenance.StudyLabel, "s1",
		map[string]storage.Value{"source": storage.NumberValue(3)}, nil)

	violations, err := (&SchemaConstraint{}).Validate(ctx, gs)
	if err != nil {
		t.Fatalf("Validate failed: %v", err)
	}
	if len(violations) != 2 {
		t.Fatalf("expected 2 violations, got %+v", violations)
	}
	types := map[ViolationType]bool{}
	for _, v := range violations {
		types[v.Type] = true
	}
	if !types[MissingProperty] || !types[InvalidType] {
		t.Errorf("expected MissingProperty and InvalidType, got %+v", violations)
	}
}
