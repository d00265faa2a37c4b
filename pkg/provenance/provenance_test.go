package provenance

import (
	"testing"

	"github.com/dd0wney/provenance-graph/pkg/catalog"
	"github.com/dd0wney/provenance-graph/pkg/schema"
)

func TestNodeRecordRoundTrip(t *testing.T) {
	n := Node{ID: "m1", DefinitionID: "Simulation Model", StudyID: "s1"}
	rec := n.Record()
	if rec["label"] != nil {
		t.Errorf("empty label should be nil, got %v", rec["label"])
	}

	nodeSchema, _ := schema.MustProvenance().Schema(schema.ProvenanceNodeSchema)
	if _, err := nodeSchema.Validate(rec, schema.WithStrict()); err != nil {
		t.Fatalf("node record should validate: %v", err)
	}

	back, err := NodeFromRecord(rec)
	if err != nil || back != n {
		t.Errorf("NodeFromRecord = %+v, %v", back, err)
	}
	if _, err := NodeFromRecord(schema.Record{"definitionId": "x"}); err == nil {
		t.Error("record without id should fail")
	}
}

func TestDependencyEdge(t *testing.T) {
	d := Dependency{ID: "e1", Source: "m1", Target: "c1", Type: catalog.GeneratedBy}
	e := d.Edge()
	if e.Type != DependsEdge || e.From.Label != NodeLabel || e.To.ID != "c1" {
		t.Errorf("unexpected edge %+v", e)
	}
	if back := DependencyFromEdge(e); back != d {
		t.Errorf("DependencyFromEdge = %+v", back)
	}
}

func TestGraphLookups(t *testing.T) {
	g := NewGraph(
		[]Node{{ID: "m1", DefinitionID: "Simulation Model"}, {ID: "m2", DefinitionID: "Simulation Model"}},
		[]Study{{ID: "s1", Source: "lab"}},
		nil,
		map[string][]Information{"m1": {{ID: "i2", Key: "Status", Value: "ok"}, {ID: "i1", Key: "Reference", Value: "doi"}}},
	)

	if n, ok := g.NodeByID("m2"); !ok || n.ID != "m2" {
		t.Errorf("NodeByID(m2) = %+v, %v", n, ok)
	}
	if _, ok := g.NodeByID("zz"); ok {
		t.Error("unknown node found")
	}
	if s, ok := g.StudyByID("s1"); !ok || s.Source != "lab" {
		t.Errorf("StudyByID = %+v, %v", s, ok)
	}
	if v, ok := g.InformationValue("m1", "Status"); !ok || v != "ok" {
		t.Errorf("InformationValue = %q, %v", v, ok)
	}
	if g.Information["m1"][0].Key != "Reference" {
		t.Error("information should be sorted by key")
	}
}

func TestSchemaFor(t *testing.T) {
	for label, want := range map[string]string{
		NodeLabel:        schema.ProvenanceNodeSchema,
		StudyLabel:       schema.StudySchema,
		InformationLabel: schema.InformationFieldSchema,
	} {
		if got, ok := SchemaFor(label); !ok || got != want {
			t.Errorf("SchemaFor(%s) = %s, %v", label, got, ok)
		}
	}
	if _, ok := SchemaFor("Other"); ok {
		t.Error("unknown label should not map")
	}
}
