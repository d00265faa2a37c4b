package constraints

import (
	"context"

	"github.com/dd0wney/provenance-graph/pkg/catalog"
	"github.com/dd0wney/provenance-graph/pkg/provenance"
	"github.com/dd0wney/provenance-graph/pkg/storage"
)

// EdgeGuard decides whether a dependency edge may be created.
type EdgeGuard struct {
	catalog *catalog.Catalog
}

// NewEdgeGuard creates a guard over the given catalog.
func NewEdgeGuard(c *catalog.Catalog) *EdgeGuard {
	return &EdgeGuard{catalog: c}
}

// Check validates source -[t]-> target against the catalog and the stored
// graph. It returns the permitting rule on success. Nothing is written.
func (g *EdgeGuard) Check(ctx context.Context, graph GraphReader, sourceID, targetID string, t catalog.RelationshipType) (*catalog.Rule, error) {
	edgeErr := func(cause error) *EdgeError {
		return &EdgeError{Cause: cause, Source: sourceID, Target: targetID, Type: t}
	}

	if _, err := catalog.ParseRelationshipType(string(t)); err != nil {
		return nil, err
	}

	srcDef, err := g.definitionOf(ctx, graph, sourceID)
	if err != nil {
		return nil, err
	}
	tgtDef, err := g.definitionOf(ctx, graph, targetID)
	if err != nil {
		return nil, err
	}

	rule, ok := g.catalog.RuleFor(srcDef, tgtDef, t)
	if !ok {
		e := edgeErr(ErrRuleViolation)
		e.SourceDefinition, e.TargetDefinition = srcDef, tgtDef
		return nil, e
	}

	if rule.Cardinality != catalog.OneToOne {
		return rule, nil
	}

	existing, err := g.matchingEdge(ctx, graph, sourceID, srcDef, rule)
	if err != nil {
		return nil, err
	}
	if existing != "" {
		e := edgeErr(ErrCardinalityViolation)
		e.SourceDefinition, e.TargetDefinition = srcDef, tgtDef
		e.RuleID, e.ExistingEdge = rule.ID, existing
		return nil, e
	}
	return rule, nil
}

// definitionOf resolves a node's definition id and confirms the catalog knows it.
func (g *EdgeGuard) definitionOf(ctx context.Context, graph GraphReader, nodeID string) (string, error) {
	node, err := graph.GetNode(ctx, provenance.NodeLabel, nodeID)
	if err != nil {
		return "", err
	}
	defID := node.StringProperty("definitionId")
	if _, ok := g.catalog.Definition(defID); !ok {
		return "", &DanglingDefinitionError{NodeID: nodeID, DefinitionID: defID}
	}
	return defID, nil
}

// matchingEdge returns the id of an outgoing DEPENDS edge of sourceID that is
// governed by rule, or "".
func (g *EdgeGuard) matchingEdge(ctx context.Context, graph GraphReader, sourceID, srcDef string, rule *catalog.Rule) (string, error) {
	out, err := graph.OutgoingEdges(ctx, storage.NodeRef{Label: provenance.NodeLabel, ID: sourceID})
	if err != nil {
		return "", err
	}
	for _, e := range out {
		if e.Type != provenance.DependsEdge {
			continue
		}
		if !rule.Permits(catalog.RelationshipType(e.StringProperty("type"))) {
			continue
		}
		target, err := graph.GetNode(ctx, e.To.Label, e.To.ID)
		if err != nil {
			if storage.IsNotFound(err) {
				continue
			}
			return "", err
		}
		if governing, ok := g.catalog.RuleFor(srcDef, target.StringProperty("definitionId"), catalog.RelationshipType(e.StringProperty("type"))); ok && governing.ID == rule.ID {
			return e.ID, nil
		}
	}
	return "", nil
}
