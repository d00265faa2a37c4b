package persistence

import (
	"context"
	"fmt"
	"sort"

	"github.com/dd0wney/provenance-graph/pkg/constraints"
	"github.com/dd0wney/provenance-graph/pkg/provenance"
	"github.com/dd0wney/provenance-graph/pkg/schema"
	"github.com/dd0wney/provenance-graph/pkg/storage"
)

// Upsert writes rec under label. A new node is created with every non-nil
// field. For an existing node only keys are written (all record keys when
// none are given): a non-nil value overwrites the stored field, a nil or
// missing value removes it.
func (a *Adapter) Upsert(ctx context.Context, label string, rec schema.Record, keys ...string) Result {
	return a.run(ctx, label, "upsert", func(ctx context.Context) Result {
		if err := a.validate(label, rec); err != nil {
			return failure(err)
		}
		id := rec.String("id")

		onCreate, err := storage.Properties(rec)
		if err != nil {
			return failure(fmt.Errorf("%s %s: %w", label, id, err))
		}

		if len(keys) == 0 {
			keys = make([]string, 0, len(rec))
			for k := range rec {
				keys = append(keys, k)
			}
		}
		patch := make(map[string]storage.Value, len(keys))
		var remove []string
		for _, k := range keys {
			if k == "id" {
				continue
			}
			raw, present := rec[k]
			if !present || raw == nil {
				remove = append(remove, k)
				continue
			}
			v, err := storage.ValueOf(raw)
			if err != nil {
				return failure(fmt.Errorf("%s %s property %s: %w", label, id, k, err))
			}
			patch[k] = v
		}
		sort.Strings(remove)

		created, err := a.store.MergeOnID(ctx, label, id, onCreate, patch)
		if err != nil {
			return failure(err)
		}
		if !created && len(remove) > 0 {
			if err := a.store.RemoveFields(ctx, label, id, remove); err != nil {
				return failure(err)
			}
		}

		res := success()
		if created {
			res.Message = "created"
		} else {
			res.Message = "updated"
		}
		return res
	})
}

// UpsertNode writes a provenance node.
func (a *Adapter) UpsertNode(ctx context.Context, n provenance.Node, keys ...string) Result {
	return a.Upsert(ctx, provenance.NodeLabel, n.Record(), keys...)
}

// UpsertStudy writes a study.
func (a *Adapter) UpsertStudy(ctx context.Context, s provenance.Study, keys ...string) Result {
	return a.Upsert(ctx, provenance.StudyLabel, s.Record(), keys...)
}

// validate checks rec against the label's schema and, for provenance nodes,
// that the definition exists.
func (a *Adapter) validate(label string, rec schema.Record) error {
	s, err := a.schemaFor(label)
	if err != nil {
		return err
	}
	if _, err := s.Validate(rec); err != nil {
		return err
	}

	if label == provenance.NodeLabel {
		def := rec.String("definitionId")
		if _, ok := a.catalog.Definition(def); !ok {
			return &constraints.DanglingDefinitionError{NodeID: rec.String("id"), DefinitionID: def}
		}
	}
	return nil
}

func (a *Adapter) schemaFor(label string) (*schema.Schema, error) {
	name, ok := provenance.SchemaFor(label)
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownLabel, label)
	}
	return a.schemas.Schema(name)
}

// CheckUnique reports the first primary or unique value repeated across a
// batch of records for label. Records that fail schema validation are
// skipped; Upsert reports those one at a time.
func (a *Adapter) CheckUnique(label string, recs []schema.Record) error {
	s, err := a.schemaFor(label)
	if err != nil {
		return err
	}
	valid := make([]schema.Record, 0, len(recs))
	for _, rec := range recs {
		if _, err := s.Validate(rec); err == nil {
			valid = append(valid, rec)
		}
	}
	_, err = s.ValidateAll(valid)
	return err
}

// FetchAll returns every node of a label as records.
func (a *Adapter) FetchAll(ctx context.Context, label string) Result {
	return a.run(ctx, label, "fetchAll", func(ctx context.Context) Result {
		nodes, err := a.store.MatchAll(ctx, label)
		if err != nil {
			return failure(err)
		}
		items := make([]schema.Record, 0, len(nodes))
		for _, n := range nodes {
			items = append(items, n.Record())
		}
		return success(items...)
	})
}

// DeleteNode detach-deletes a node. A provenance node takes its information
// fields with it.
func (a *Adapter) DeleteNode(ctx context.Context, label, id string) Result {
	return a.run(ctx, label, "deleteNode", func(ctx context.Context) Result {
		if label == provenance.NodeLabel {
			owned, err := a.ownedInformation(ctx, id)
			if err != nil {
				return fromError(err)
			}
			for _, e := range owned {
				if err := a.store.DeleteNode(ctx, e.To.Label, e.To.ID); err != nil && !storage.IsNotFound(err) {
					return failure(err)
				}
			}
		}
		if err := a.store.DeleteNode(ctx, label, id); err != nil {
			return fromError(err)
		}
		return success()
	})
}

// Clear deletes every node of the provenance labels.
func (a *Adapter) Clear(ctx context.Context) Result {
	return a.run(ctx, "*", "clear", func(ctx context.Context) Result {
		deleted := 0
		for _, label := range []string{provenance.InformationLabel, provenance.NodeLabel, provenance.StudyLabel} {
			nodes, err := a.store.MatchAll(ctx, label)
			if err != nil {
				return failure(err)
			}
			for _, n := range nodes {
				if err := a.store.DeleteNode(ctx, label, n.ID); err != nil && !storage.IsNotFound(err) {
					return failure(err)
				}
				deleted++
			}
		}
		res := success()
		res.Message = fmt.Sprintf("deleted %d nodes", deleted)
		return res
	})
}
