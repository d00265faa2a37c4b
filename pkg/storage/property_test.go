package storage

import (
	"context"
	"fmt"
	"testing"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"
)

// TestGraphInvariants uses property-based testing to verify graph invariants
// that must hold after any sequence of operations.
func TestGraphInvariants(t *testing.T) {
	if testing.Short() {
		t.Skip("Skipping property-based test in short mode")
	}

	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 30

	properties := gopter.NewProperties(parameters)
	ctx := context.Background()

	properties.Property("merging the same record twice equals merging once", prop.ForAll(
		func(id, a, b string) bool {
			if id == "" {
				return true
			}
			props := map[string]Value{"a": StringValue(a), "b": StringValue(b)}

			once := NewGraphStorage()
			once.MergeOnID(ctx, "Node", id, props, props)

			twice := NewGraphStorage()
			twice.MergeOnID(ctx, "Node", id, props, props)
			twice.MergeOnID(ctx, "Node", id, props, props)

			n1, err1 := once.GetNode(ctx, "Node", id)
			n2, err2 := twice.GetNode(ctx, "Node", id)
			if err1 != nil || err2 != nil || len(n1.Properties) != len(n2.Properties) {
				return false
			}
			for k, v := range n1.Properties {
				if !v.Equal(n2.Properties[k]) {
					return false
				}
			}
			return twice.GetStatistics().NodeCount == 1
		},
		gen.AlphaString(),
		gen.AlphaString(),
		gen.AlphaString(),
	))

	properties.Property("deleting a node leaves no dangling edges", prop.ForAll(
		func(n int, endpoints []int, victim int) bool {
			gs := NewGraphStorage()
			ref := func(i int) NodeRef { return NodeRef{Label: "Node", ID: fmt.Sprintf("n%d", i%n)} }
			for i := 0; i < n; i++ {
				gs.MergeOnID(ctx, "Node", fmt.Sprintf("n%d", i), nil, nil)
			}
			for i := 0; i+1 < len(endpoints); i += 2 {
				gs.CreateEdge(ctx, &Edge{ID: fmt.Sprintf("e%d", i), Type: "DEPENDS", From: ref(endpoints[i]), To: ref(endpoints[i+1])})
			}

			gone := ref(victim)
			if err := gs.DeleteNode(ctx, gone.Label, gone.ID); err != nil {
				return false
			}

			all, _ := gs.EdgesByType(ctx, "DEPENDS")
			for _, e := range all {
				if e.From == gone || e.To == gone {
					return false
				}
			}
			return gs.GetStatistics().EdgeCount == uint64(len(all))
		},
		gen.IntRange(1, 8),
		gen.SliceOf(gen.IntRange(0, 20)),
		gen.IntRange(0, 20),
	))

	properties.TestingRun(t)
}
