package constraints

import (
	"context"
	"fmt"

	"github.com/dd0wney/provenance-graph/pkg/catalog"
	"github.com/dd0wney/provenance-graph/pkg/provenance"
)

// InformationConstraint checks the information fields attached to each node:
// keys must be declared by the node's definition, enumerated fields must hold
// one of their options, each key appears once per node, and every field has an
// owner.
type InformationConstraint struct {
	Catalog *catalog.Catalog
}

func (ic *InformationConstraint) Name() string { return "InformationConstraint" }

func (ic *InformationConstraint) Validate(ctx context.Context, graph GraphReader) ([]Violation, error) {
	nodes, err := graph.MatchAll(ctx, provenance.NodeLabel)
	if err != nil {
		return nil, fmt.Errorf("failed to match %s nodes: %w", provenance.NodeLabel, err)
	}

	violations := make([]Violation, 0)
	owned := make(map[string]bool)

	for _, n := range nodes {
		def, known := ic.Catalog.Definition(n.StringProperty("definitionId"))

		out, err := graph.OutgoingEdges(ctx, n.Ref())
		if err != nil {
			return nil, fmt.Errorf("failed to read edges of node %s: %w", n.ID, err)
		}

		seen := make(map[string]string)
		for _, e := range out {
			if e.Type != provenance.HasInformationEdge {
				continue
			}
			field, err := graph.GetNode(ctx, e.To.Label, e.To.ID)
			if err != nil {
				return nil, fmt.Errorf("failed to read information field %s: %w", e.To.ID, err)
			}
			owned[field.ID] = true
			key, value := field.StringProperty("key"), field.StringProperty("value")

			if prior, dup := seen[key]; dup {
				violations = append(violations, Violation{
					Type:       UniquenessViolation,
					Severity:   Error,
					NodeID:     n.ID,
					Constraint: ic.Name(),
					Message:    fmt.Sprintf("Node %s has information field %q twice (%s and %s)", n.ID, key, prior, field.ID),
					Details:    map[string]any{"key": key, "duplicate_of": prior},
				})
				continue
			}
			seen[key] = field.ID

			if !known {
				continue
			}
			declared, ok := def.InformationField(key)
			if !ok {
				violations = append(violations, Violation{
					Type:       InvalidInformation,
					Severity:   Warning,
					NodeID:     n.ID,
					Constraint: ic.Name(),
					Message:    fmt.Sprintf("Node %s has information field %q not declared by %q", n.ID, key, def.ID),
					Details:    map[string]any{"key": key, "definitionId": def.ID},
				})
				continue
			}
			if !declared.Allows(value) {
				violations = append(violations, Violation{
					Type:       InvalidInformation,
					Severity:   Error,
					NodeID:     n.ID,
					Constraint: ic.Name(),
					Message:    fmt.Sprintf("Node %s: %q is not an allowed value of %q", n.ID, value, key),
					Details:    map[string]any{"key": key, "value": value, "options": declared.Options},
				})
			}
		}
	}

	fields, err := graph.MatchAll(ctx, provenance.InformationLabel)
	if err != nil {
		return nil, fmt.Errorf("failed to match %s nodes: %w", provenance.InformationLabel, err)
	}
	for _, f := range fields {
		if owned[f.ID] {
			continue
		}
		violations = append(violations, Violation{
			Type:       InvalidInformation,
			Severity:   Warning,
			NodeID:     f.ID,
			Constraint: ic.Name(),
			Message:    fmt.Sprintf("Information field %s has no owning node", f.ID),
		})
	}
	return violations, nil
}
