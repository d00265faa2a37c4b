package persistence

import (
	"context"
	"fmt"

	"github.com/dd0wney/provenance-graph/pkg/provenance"
)

// LoadGraph reads nodes, studies, dependencies and information fields into a
// snapshot. The snapshot is only returned with a successful result.
func (a *Adapter) LoadGraph(ctx context.Context) (*provenance.Graph, Result) {
	var g *provenance.Graph
	res := a.run(ctx, "*", "loadGraph", func(ctx context.Context) Result {
		var err error
		g, err = a.loadGraph(ctx)
		if err != nil {
			return failure(err)
		}
		return success()
	})
	if !res.OK() {
		return nil, res
	}
	return g, res
}

func (a *Adapter) loadGraph(ctx context.Context) (*provenance.Graph, error) {
	stored, err := a.store.MatchAll(ctx, provenance.NodeLabel)
	if err != nil {
		return nil, err
	}
	nodes := make([]provenance.Node, 0, len(stored))
	for _, n := range stored {
		node, err := provenance.NodeFromRecord(n.Record())
		if err != nil {
			return nil, err
		}
		nodes = append(nodes, node)
	}

	stored, err = a.store.MatchAll(ctx, provenance.StudyLabel)
	if err != nil {
		return nil, err
	}
	studies := make([]provenance.Study, 0, len(stored))
	for _, n := range stored {
		study, err := provenance.StudyFromRecord(n.Record())
		if err != nil {
			return nil, err
		}
		studies = append(studies, study)
	}

	edges, err := a.store.EdgesByType(ctx, provenance.DependsEdge)
	if err != nil {
		return nil, err
	}
	deps := make([]provenance.Dependency, 0, len(edges))
	for _, e := range edges {
		deps = append(deps, provenance.DependencyFromEdge(e))
	}

	stored, err = a.store.MatchAll(ctx, provenance.InformationLabel)
	if err != nil {
		return nil, err
	}
	fields := make(map[string]provenance.Information, len(stored))
	for _, n := range stored {
		info, err := provenance.InformationFromRecord(n.Record())
		if err != nil {
			return nil, err
		}
		fields[info.ID] = info
	}

	edges, err = a.store.EdgesByType(ctx, provenance.HasInformationEdge)
	if err != nil {
		return nil, err
	}
	owned := make(map[string][]provenance.Information)
	for _, e := range edges {
		info, ok := fields[e.To.ID]
		if !ok {
			return nil, fmt.Errorf("information edge %s points at missing field %s", e.ID, e.To.ID)
		}
		owned[e.From.ID] = append(owned[e.From.ID], info)
	}

	return provenance.NewGraph(nodes, studies, deps, owned), nil
}
