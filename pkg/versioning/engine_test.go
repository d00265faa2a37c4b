package versioning

import (
	"errors"
	"testing"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"

	"github.com/dd0wney/provenance-graph/pkg/catalog"
	"github.com/dd0wney/provenance-graph/pkg/constraints"
	"github.com/dd0wney/provenance-graph/pkg/provenance"
)

func testCatalog(t testing.TB) *catalog.Catalog {
	t.Helper()
	c, err := catalog.New(
		[]catalog.Definition{
			{ID: "Simulation Model", Classification: catalog.Entity, LabelFormatString: "SM${version}"},
			{ID: "Calibrating Activity", Classification: catalog.Activity, Label: "Calibration"},
			{ID: "Dataset", Classification: catalog.Entity},
			{ID: "A", Classification: catalog.Entity, LabelFormatString: "A${version}"},
			{ID: "B", Classification: catalog.Entity, LabelFormatString: "B${version}"},
		},
		nil,
	)
	if err != nil {
		t.Fatalf("catalog.New failed: %v", err)
	}
	return c
}

func node(id, def string) provenance.Node {
	return provenance.Node{ID: id, DefinitionID: def}
}

func dep(src, tgt string, t catalog.RelationshipType) provenance.Dependency {
	return provenance.Dependency{ID: src + "->" + tgt, Source: src, Target: tgt, Type: t}
}

func assertVersions(t *testing.T, r *Report, want map[string]int) {
	t.Helper()
	for id, v := range want {
		got, ok := r.Version(id)
		if !ok || got != v {
			t.Errorf("version(%s) = %d (present=%v), want %d", id, got, ok, v)
		}
	}
}

func TestCompute_Chain(t *testing.T) {
	// leaf depends on mid depends on root.
	g := provenance.NewGraph(
		[]provenance.Node{node("leaf", "Simulation Model"), node("mid", "Simulation Model"), node("root", "Simulation Model")},
		nil,
		[]provenance.Dependency{
			dep("mid", "root", catalog.GeneratedBy),
			dep("leaf", "mid", catalog.GeneratedBy),
		},
		nil,
	)

	r := NewEngine(testCatalog(t)).Compute(g)
	if err := r.Err(); err != nil {
		t.Fatalf("unexpected errors: %v", err)
	}
	assertVersions(t, r, map[string]int{"root": 1, "mid": 2, "leaf": 3})
}

func TestCompute_IndependentRootsAndTies(t *testing.T) {
	g := provenance.NewGraph(
		[]provenance.Node{
			node("r1", "Simulation Model"), node("r2", "Simulation Model"),
			node("a", "Simulation Model"), node("b", "Simulation Model"),
		},
		nil,
		[]provenance.Dependency{
			dep("a", "r1", catalog.DerivedFrom),
			dep("b", "r1", catalog.Used),
		},
		nil,
	)

	r := NewEngine(testCatalog(t)).Compute(g)
	assertVersions(t, r, map[string]int{"r1": 1, "r2": 1, "a": 2, "b": 2})
}

func TestCompute_CrossTypeEdgesIgnored(t *testing.T) {
	g := provenance.NewGraph(
		[]provenance.Node{node("m1", "Simulation Model"), node("m2", "Simulation Model"), node("c1", "Calibrating Activity")},
		nil,
		[]provenance.Dependency{
			dep("m1", "c1", catalog.GeneratedBy),
			dep("c1", "m2", catalog.Used),
			// Not version-relevant even between same-type nodes.
			dep("m1", "m2", catalog.UsedForValidation),
		},
		nil,
	)

	r := NewEngine(testCatalog(t)).Compute(g)
	assertVersions(t, r, map[string]int{"m1": 1, "m2": 1, "c1": 1})
}

// TestCompute_TransitiveAncestry reproduces the two-type example: versions of
// A count A ancestors reached through B nodes and vice versa.
func TestCompute_TransitiveAncestry(t *testing.T) {
	g := provenance.NewGraph(
		[]provenance.Node{
			node("A1", "A"), node("A2", "A"), node("A3", "A"), node("A4", "A"),
			node("B1", "B"), node("B2", "B"), node("B3", "B"), node("B4", "B"),
		},
		nil,
		[]provenance.Dependency{
			dep("B1", "A1", catalog.Used),
			dep("A2", "A1", catalog.DerivedFrom),
			dep("A1", "A3", catalog.DerivedFrom),
			dep("B3", "A3", catalog.Used),
			dep("B2", "B3", catalog.DerivedFrom),
			dep("A4", "B3", catalog.Used),
			dep("B4", "A4", catalog.Used),
		},
		nil,
	)
	e := NewEngine(testCatalog(t))

	direct := e.Compute(g)
	assertVersions(t, direct, map[string]int{"A3": 1, "A1": 2, "A2": 3, "A4": 1, "B3": 1, "B2": 2, "B1": 1, "B4": 1})

	transitive := e.Compute(g, WithTransitiveAncestry())
	assertVersions(t, transitive, map[string]int{
		"A3": 1, "A1": 2, "A4": 2, "A2": 3,
		"B1": 1, "B3": 1, "B2": 2, "B4": 2,
	})
}

func TestCompute_StudyScope(t *testing.T) {
	nodes := []provenance.Node{
		{ID: "x1", DefinitionID: "Simulation Model", StudyID: "s1"},
		{ID: "x2", DefinitionID: "Simulation Model", StudyID: "s1"},
		{ID: "y1", DefinitionID: "Simulation Model", StudyID: "s2"},
	}
	g := provenance.NewGraph(nodes, nil, []provenance.Dependency{
		dep("x2", "x1", catalog.DerivedFrom),
		dep("y1", "x2", catalog.DerivedFrom),
	}, nil)
	e := NewEngine(testCatalog(t))

	assertVersions(t, e.Compute(g), map[string]int{"x1": 1, "x2": 2, "y1": 3})
	assertVersions(t, e.Compute(g, WithStudyScope()), map[string]int{"x1": 1, "x2": 2, "y1": 1})
}

func TestCompute_CycleIsolatedToGroup(t *testing.T) {
	g := provenance.NewGraph(
		[]provenance.Node{
			node("m1", "Simulation Model"), node("m2", "Simulation Model"),
			node("d1", "Dataset"), node("d2", "Dataset"),
		},
		nil,
		[]provenance.Dependency{
			dep("m1", "m2", catalog.DerivedFrom),
			dep("m2", "m1", catalog.DerivedFrom),
			dep("d2", "d1", catalog.DerivedFrom),
		},
		nil,
	)

	r := NewEngine(testCatalog(t)).Compute(g)
	if !errors.Is(r.Err(), ErrCyclicDependency) {
		t.Fatalf("expected ErrCyclicDependency, got %v", r.Err())
	}
	cycles := r.Cycles()
	if len(cycles) != 1 || cycles[0].DefinitionID != "Simulation Model" || len(cycles[0].Cycle) != 2 {
		t.Fatalf("unexpected cycles: %+v", cycles)
	}
	if _, ok := r.Version("m1"); ok {
		t.Error("cyclic group should not be versioned")
	}
	assertVersions(t, r, map[string]int{"d1": 1, "d2": 2})
}

func TestCompute_DanglingDefinition(t *testing.T) {
	g := provenance.NewGraph([]provenance.Node{node("x", "Retired")}, nil, nil, nil)

	r := NewEngine(testCatalog(t)).Compute(g)
	assertVersions(t, r, map[string]int{"x": 0})
	if r.Dangling() != 1 || !errors.Is(r.Err(), constraints.ErrDanglingDefinition) {
		t.Errorf("expected one dangling definition, got %v", r.Errors)
	}
}

func TestLabels(t *testing.T) {
	g := provenance.NewGraph(
		[]provenance.Node{
			node("root", "Simulation Model"),
			node("mid", "Simulation Model"),
			node("leaf", "Simulation Model"),
			{ID: "named", DefinitionID: "Simulation Model", Label: "Baseline"},
			node("c1", "Calibrating Activity"),
			node("d1", "Dataset"),
			node("x", "Retired"),
		},
		nil,
		[]provenance.Dependency{
			dep("mid", "root", catalog.GeneratedBy),
			dep("leaf", "mid", catalog.GeneratedBy),
		},
		nil,
	)

	labels, _ := NewEngine(testCatalog(t)).Labels(g)
	want := map[string]string{
		"root":  "SM1",
		"mid":   "SM2",
		"leaf":  "SM3",
		"named": "Baseline",
		"c1":    "Calibration",
		"d1":    "Dataset 1",
		"x":     "Retired 0",
	}
	for id, l := range want {
		if labels[id] != l {
			t.Errorf("label(%s) = %q, want %q", id, labels[id], l)
		}
	}
}

func TestComputeIsDeterministic(t *testing.T) {
	if testing.Short() {
		t.Skip("Skipping property-based test in short mode")
	}

	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 50
	properties := gopter.NewProperties(parameters)
	e := NewEngine(testCatalog(t))

	properties.Property("versions are repeatable and exceed every same-type ancestor", prop.ForAll(
		func(arcs []int) bool {
			const n = 8
			nodes := make([]provenance.Node, n)
			for i := range nodes {
				nodes[i] = node(string(rune('a'+i)), "Simulation Model")
			}
			var deps []provenance.Dependency
			for i := 0; i+1 < len(arcs); i += 2 {
				// Arcs only point to lower indices, so the graph stays acyclic.
				src, tgt := arcs[i]%n, arcs[i+1]%n
				if src <= tgt {
					continue
				}
				deps = append(deps, dep(nodes[src].ID, nodes[tgt].ID, catalog.DerivedFrom))
			}
			g := provenance.NewGraph(nodes, nil, deps, nil)

			first, second := e.Compute(g), e.Compute(g)
			if first.Err() != nil {
				return false
			}
			for id, v := range first.Versions {
				if second.Versions[id] != v {
					return false
				}
			}
			for _, d := range deps {
				if first.Versions[d.Source] <= first.Versions[d.Target] {
					return false
				}
			}
			return true
		},
		gen.SliceOf(gen.IntRange(0, 50)),
	))

	properties.TestingRun(t)
}
