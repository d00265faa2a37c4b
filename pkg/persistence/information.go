package persistence

import (
	"context"
	"fmt"
	"sort"

	"github.com/google/uuid"

	"github.com/dd0wney/provenance-graph/pkg/constraints"
	"github.com/dd0wney/provenance-graph/pkg/provenance"
	"github.com/dd0wney/provenance-graph/pkg/schema"
	"github.com/dd0wney/provenance-graph/pkg/storage"
)

// informationNamespace seeds the name-based ids of information fields.
var informationNamespace = uuid.MustParse("6f1c2a7e-3d4b-5e8f-9a01-b2c3d4e5f607")

// InformationID is the deterministic id of a node's information field.
func InformationID(nodeID, key string) string {
	return uuid.NewSHA1(informationNamespace, []byte(nodeID+"\x00"+key)).String()
}

// SetInformation writes the value of an information field owned by nodeID.
// The key must be declared by the node's definition and, for enumerated
// fields, the value must be one of its options. An empty value deletes the
// field.
func (a *Adapter) SetInformation(ctx context.Context, nodeID, key, value string) Result {
	return a.run(ctx, provenance.InformationLabel, "setInformation", func(ctx context.Context) Result {
		node, err := a.store.GetNode(ctx, provenance.NodeLabel, nodeID)
		if err != nil {
			return fromError(err)
		}
		defID := node.StringProperty("definitionId")
		def, ok := a.catalog.Definition(defID)
		if !ok {
			return failure(&constraints.DanglingDefinitionError{NodeID: nodeID, DefinitionID: defID})
		}
		field, declared := def.InformationField(key)
		if !declared {
			return failure(fmt.Errorf("%w: %s has no field %q", ErrUndeclaredInformation, defID, key))
		}

		id := InformationID(nodeID, key)
		if value == "" {
			if err := a.store.DeleteNode(ctx, provenance.InformationLabel, id); err != nil && !storage.IsNotFound(err) {
				return failure(err)
			}
			return success()
		}
		if !field.Allows(value) {
			return failure(fmt.Errorf("%w: %q for %s.%s (options: %v)", ErrDisallowedInformation, value, defID, key, field.Options))
		}

		info := provenance.Information{ID: id, Key: key, Value: value}
		props, err := storage.Properties(info.Record())
		if err != nil {
			return failure(err)
		}
		created, err := a.store.MergeOnID(ctx, provenance.InformationLabel, id, props,
			map[string]storage.Value{"value": storage.StringValue(value)})
		if err != nil {
			return failure(err)
		}
		if created {
			edge := &storage.Edge{
				ID:   id,
				Type: provenance.HasInformationEdge,
				From: node.Ref(),
				To:   storage.NodeRef{Label: provenance.InformationLabel, ID: id},
			}
			if _, err := a.store.CreateEdge(ctx, edge); err != nil {
				return failure(err)
			}
		}
		return success(info.Record())
	})
}

// Information returns the fields owned by a node, sorted by key.
func (a *Adapter) Information(ctx context.Context, nodeID string) Result {
	return a.run(ctx, provenance.InformationLabel, "information", func(ctx context.Context) Result {
		owned, err := a.ownedInformation(ctx, nodeID)
		if err != nil {
			return fromError(err)
		}
		items := make([]schema.Record, 0, len(owned))
		for _, e := range owned {
			n, err := a.store.GetNode(ctx, e.To.Label, e.To.ID)
			if err != nil {
				return failure(err)
			}
			items = append(items, n.Record())
		}
		sort.Slice(items, func(i, j int) bool { return items[i].String("key") < items[j].String("key") })
		return success(items...)
	})
}

func (a *Adapter) ownedInformation(ctx context.Context, nodeID string) ([]*storage.Edge, error) {
	edges, err := a.store.OutgoingEdges(ctx, storage.NodeRef{Label: provenance.NodeLabel, ID: nodeID})
	if err != nil {
		return nil, err
	}
	owned := edges[:0]
	for _, e := range edges {
		if e.Type == provenance.HasInformationEdge {
			owned = append(owned, e)
		}
	}
	return owned, nil
}
