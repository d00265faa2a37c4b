package persistence

import (
	"context"
	"errors"

	"github.com/google/uuid"

	"github.com/dd0wney/provenance-graph/pkg/catalog"
	"github.com/dd0wney/provenance-graph/pkg/constraints"
	"github.com/dd0wney/provenance-graph/pkg/logging"
	"github.com/dd0wney/provenance-graph/pkg/provenance"
	"github.com/dd0wney/provenance-graph/pkg/schema"
	"github.com/dd0wney/provenance-graph/pkg/storage"
)

// CreateEdge records that source depends on target under a fresh id. The
// edge is checked against the relationship rule table, including one-to-one
// cardinality, before it is stored. The cardinality check and the insert
// are separate store calls, so two concurrent creates from the same source
// can both pass a one-to-one rule.
func (a *Adapter) CreateEdge(ctx context.Context, source, target, relType string) Result {
	return a.CreateEdgeWithID(ctx, "", source, target, relType)
}

// CreateEdgeWithID is CreateEdge with a caller-chosen edge id. An empty id
// gets a fresh one. If source already has an edge with id to the same target
// and type, nothing is written and the stored edge is returned.
func (a *Adapter) CreateEdgeWithID(ctx context.Context, id, source, target, relType string) Result {
	return a.run(ctx, provenance.DependsEdge, "createEdge", func(ctx context.Context) Result {
		t := catalog.RelationshipType(relType)
		if id != "" {
			existing, err := a.storedEdge(ctx, source, id)
			if err != nil {
				return fromError(err)
			}
			if existing != nil {
				dep := provenance.DependencyFromEdge(existing)
				if dep.Target != target || dep.Type != t {
					return failure(storage.NewError("createEdge").Edge(id).Cause(storage.ErrDuplicateEdge).Err())
				}
				return success(dependencyRecord(dep))
			}
		}

		rule, err := a.guard.Check(ctx, a.store, source, target, t)
		if err != nil {
			reason := rejectionReason(err)
			a.metrics.RecordRejectedEdge(reason)
			a.logger.Info("edge rejected",
				logging.NodeID(source),
				logging.String("target", target),
				logging.RelType(relType),
				logging.String("reason", reason))
			if errors.Is(err, constraints.ErrNodeNotFound) {
				return notFound(err)
			}
			return failure(err)
		}

		if id == "" {
			id = uuid.NewString()
		}
		dep := provenance.Dependency{ID: id, Source: source, Target: target, Type: t}
		if _, err := a.store.CreateEdge(ctx, dep.Edge()); err != nil {
			return fromError(err)
		}
		a.logger.Debug("edge created", logging.EdgeID(dep.ID), logging.RelType(relType), logging.String("rule", rule.ID))
		rec := dependencyRecord(dep)
		rec["rule"] = rule.ID
		return success(rec)
	})
}

// storedEdge returns source's outgoing edge with id, or nil. A missing
// source is left for the rule check to report.
func (a *Adapter) storedEdge(ctx context.Context, source, id string) (*storage.Edge, error) {
	edges, err := a.store.OutgoingEdges(ctx, storage.NodeRef{Label: provenance.NodeLabel, ID: source})
	if err != nil {
		if storage.IsNotFound(err) {
			return nil, nil
		}
		return nil, err
	}
	for _, e := range edges {
		if e.ID == id && e.Type == provenance.DependsEdge {
			return e, nil
		}
	}
	return nil, nil
}

func dependencyRecord(dep provenance.Dependency) schema.Record {
	return schema.Record{
		"id":     dep.ID,
		"source": dep.Source,
		"target": dep.Target,
		"type":   string(dep.Type),
	}
}

// DeleteEdge removes an edge by id.
func (a *Adapter) DeleteEdge(ctx context.Context, id string) Result {
	return a.run(ctx, provenance.DependsEdge, "deleteEdge", func(ctx context.Context) Result {
		if err := a.store.DeleteEdge(ctx, id); err != nil {
			return fromError(err)
		}
		return success()
	})
}

func rejectionReason(err error) string {
	switch {
	case errors.Is(err, constraints.ErrCardinalityViolation):
		return "cardinality"
	case errors.Is(err, constraints.ErrRuleViolation):
		return "rule"
	case errors.Is(err, constraints.ErrDanglingDefinition):
		return "dangling"
	case errors.Is(err, storage.ErrNodeNotFound):
		return "missing-node"
	case errors.Is(err, catalog.ErrUnknownRelationshipType):
		return "unknown-type"
	default:
		return "store"
	}
}
