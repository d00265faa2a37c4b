package constraints

import (
	"context"
	"fmt"
	"strings"

	"github.com/dd0wney/provenance-graph/pkg/algorithms"
	"github.com/dd0wney/provenance-graph/pkg/catalog"
)

// AcyclicConstraint reports cycles among dependency edges. A node cannot
// transitively depend on itself.
type AcyclicConstraint struct {
	// Types restricts the edges followed; empty follows every type.
	Types []catalog.RelationshipType
	// SameDefinition only follows edges between nodes of one definition.
	SameDefinition bool
}

func (ac *AcyclicConstraint) Name() string {
	if ac.SameDefinition {
		return "AcyclicConstraint(same-definition)"
	}
	return "AcyclicConstraint"
}

func (ac *AcyclicConstraint) follows(t catalog.RelationshipType) bool {
	if len(ac.Types) == 0 {
		return true
	}
	for _, want := range ac.Types {
		if want == t {
			return true
		}
	}
	return false
}

func (ac *AcyclicConstraint) Validate(ctx context.Context, graph GraphReader) ([]Violation, error) {
	defs, err := nodeDefinitions(ctx, graph)
	if err != nil {
		return nil, err
	}
	edges, err := dependencyEdges(ctx, graph)
	if err != nil {
		return nil, err
	}

	g := algorithms.NewDigraph()
	for _, e := range edges {
		if !ac.follows(catalog.RelationshipType(e.StringProperty("type"))) {
			continue
		}
		if ac.SameDefinition && defs[e.From.ID] != defs[e.To.ID] {
			continue
		}
		g.AddArc(e.From.ID, e.To.ID)
	}

	violations := make([]Violation, 0)
	for _, cycle := range algorithms.DetectCycles(g) {
		violations = append(violations, Violation{
			Type:       CyclicDependency,
			Severity:   Error,
			NodeID:     cycle[0],
			Constraint: ac.Name(),
			Message:    fmt.Sprintf("Dependency cycle: %s -> %s", strings.Join(cycle, " -> "), cycle[0]),
			Details: map[string]any{
				"cycle":        []string(cycle),
				"definitionId": defs[cycle[0]],
			},
		})
	}
	return violations, nil
}
