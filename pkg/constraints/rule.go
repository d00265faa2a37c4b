package constraints

import (
	"context"
	"fmt"

	"github.com/dd0wney/provenance-graph/pkg/catalog"
	"github.com/dd0wney/provenance-graph/pkg/provenance"
	"github.com/dd0wney/provenance-graph/pkg/storage"
)

// nodeDefinitions maps every provenance node id to its definition id.
func nodeDefinitions(ctx context.Context, graph GraphReader) (map[string]string, error) {
	nodes, err := graph.MatchAll(ctx, provenance.NodeLabel)
	if err != nil {
		return nil, fmt.Errorf("failed to match %s nodes: %w", provenance.NodeLabel, err)
	}
	defs := make(map[string]string, len(nodes))
	for _, n := range nodes {
		defs[n.ID] = n.StringProperty("definitionId")
	}
	return defs, nil
}

func dependencyEdges(ctx context.Context, graph GraphReader) ([]*storage.Edge, error) {
	edges, err := graph.EdgesByType(ctx, provenance.DependsEdge)
	if err != nil {
		return nil, fmt.Errorf("failed to read %s edges: %w", provenance.DependsEdge, err)
	}
	return edges, nil
}

// RuleConstraint checks that every stored dependency edge is permitted by a
// catalog rule.
type RuleConstraint struct {
	Catalog *catalog.Catalog
}

func (rc *RuleConstraint) Name() string { return "RuleConstraint" }

// Validate reports edges no rule permits. Edges touching nodes with unknown
// definitions are left to DefinitionConstraint.
func (rc *RuleConstraint) Validate(ctx context.Context, graph GraphReader) ([]Violation, error) {
	defs, err := nodeDefinitions(ctx, graph)
	if err != nil {
		return nil, err
	}
	edges, err := dependencyEdges(ctx, graph)
	if err != nil {
		return nil, err
	}

	violations := make([]Violation, 0)
	for _, e := range edges {
		srcDef, tgtDef := defs[e.From.ID], defs[e.To.ID]
		if _, ok := rc.Catalog.Definition(srcDef); !ok {
			continue
		}
		if _, ok := rc.Catalog.Definition(tgtDef); !ok {
			continue
		}
		t := catalog.RelationshipType(e.StringProperty("type"))
		if rc.Catalog.IsAllowed(srcDef, tgtDef, t) {
			continue
		}
		violations = append(violations, Violation{
			Type:       RuleViolation,
			Severity:   Error,
			EdgeID:     e.ID,
			NodeID:     e.From.ID,
			Constraint: rc.Name(),
			Message:    fmt.Sprintf("Edge %s: no rule permits %q from %q to %q", e.ID, t, srcDef, tgtDef),
			Details: map[string]any{
				"source":        e.From.ID,
				"target":        e.To.ID,
				"type":          string(t),
				"allowed_types": rc.Catalog.AllowedTypes(srcDef, tgtDef),
			},
		})
	}
	return violations, nil
}

// CardinalityConstraint checks that no node has more than one outgoing edge
// governed by the same one-to-one rule.
type CardinalityConstraint struct {
	Catalog *catalog.Catalog
}

func (cc *CardinalityConstraint) Name() string { return "CardinalityConstraint" }

func (cc *CardinalityConstraint) Validate(ctx context.Context, graph GraphReader) ([]Violation, error) {
	defs, err := nodeDefinitions(ctx, graph)
	if err != nil {
		return nil, err
	}
	edges, err := dependencyEdges(ctx, graph)
	if err != nil {
		return nil, err
	}

	type key struct{ source, rule string }
	first := make(map[key]string)
	violations := make([]Violation, 0)

	for _, e := range edges {
		t := catalog.RelationshipType(e.StringProperty("type"))
		rule, ok := cc.Catalog.RuleFor(defs[e.From.ID], defs[e.To.ID], t)
		if !ok || rule.Cardinality != catalog.OneToOne {
			continue
		}
		k := key{source: e.From.ID, rule: rule.ID}
		prior, seen := first[k]
		if !seen {
			first[k] = e.ID
			continue
		}
		violations = append(violations, Violation{
			Type:       CardinalityViolation,
			Severity:   Error,
			NodeID:     e.From.ID,
			EdgeID:     e.ID,
			Constraint: cc.Name(),
			Message: fmt.Sprintf("Node %s has more than one edge for one-to-one rule %s (also edge %s)",
				e.From.ID, rule.ID, prior),
			Details: map[string]any{
				"rule":         rule.ID,
				"duplicate_of": prior,
			},
		})
	}
	return violations, nil
}

// DefinitionConstraint reports nodes whose definitionId is not in the catalog.
// Such references are flagged, never repaired.
type DefinitionConstraint struct {
	Catalog *catalog.Catalog
}

func (dc *DefinitionConstraint) Name() string { return "DefinitionConstraint" }

func (dc *DefinitionConstraint) Validate(ctx context.Context, graph GraphReader) ([]Violation, error) {
	nodes, err := graph.MatchAll(ctx, provenance.NodeLabel)
	if err != nil {
		return nil, fmt.Errorf("failed to match %s nodes: %w", provenance.NodeLabel, err)
	}

	violations := make([]Violation, 0)
	for _, n := range nodes {
		defID := n.StringProperty("definitionId")
		if _, ok := dc.Catalog.Definition(defID); ok {
			continue
		}
		violations = append(violations, Violation{
			Type:       DanglingDefinition,
			Severity:   Error,
			NodeID:     n.ID,
			Constraint: dc.Name(),
			Message:    (&DanglingDefinitionError{NodeID: n.ID, DefinitionID: defID}).Error(),
			Details:    map[string]any{"definitionId": defID},
		})
	}
	return violations, nil
}
