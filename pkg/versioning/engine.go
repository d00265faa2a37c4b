// Package versioning computes per-definition version numbers from the
// dependency structure of a provenance graph and renders node labels from
// them.
//
// A node's version is one more than the highest version among its
// same-definition ancestors; nodes without such ancestors get 1. Numbers
// depend only on graph structure, so repeated runs over an unchanged graph
// give identical results.
package versioning

import (
	"errors"

	"github.com/dd0wney/provenance-graph/pkg/algorithms"
	"github.com/dd0wney/provenance-graph/pkg/catalog"
	"github.com/dd0wney/provenance-graph/pkg/constraints"
	"github.com/dd0wney/provenance-graph/pkg/provenance"
)

// VersionTypes are the dependency types that order versions.
var VersionTypes = catalog.VersionTypes

type options struct {
	studyScope bool
	transitive bool
}

// Option tunes a computation.
type Option func(*options)

// WithStudyScope numbers each study separately.
func WithStudyScope() Option { return func(o *options) { o.studyScope = true } }

// WithTransitiveAncestry also counts same-definition ancestors reached
// through nodes of other definitions.
func WithTransitiveAncestry() Option { return func(o *options) { o.transitive = true } }

// Report is the outcome of one computation.
type Report struct {
	// Versions maps node id to version. Dangling nodes have version 0;
	// nodes in a cyclic group are absent.
	Versions map[string]int
	// Errors holds *CyclicDependencyError and
	// *constraints.DanglingDefinitionError entries in discovery order.
	Errors []error
}

// Version returns a node's version.
func (r *Report) Version(nodeID string) (int, bool) {
	v, ok := r.Versions[nodeID]
	return v, ok
}

// Cycles returns the cyclic dependency errors.
func (r *Report) Cycles() []*CyclicDependencyError {
	var out []*CyclicDependencyError
	for _, err := range r.Errors {
		var ce *CyclicDependencyError
		if errors.As(err, &ce) {
			out = append(out, ce)
		}
	}
	return out
}

// Dangling returns the number of nodes with an unknown definition.
func (r *Report) Dangling() int {
	n := 0
	for _, err := range r.Errors {
		if errors.Is(err, constraints.ErrDanglingDefinition) {
			n++
		}
	}
	return n
}

// Err joins every error in the report, or returns nil.
func (r *Report) Err() error { return errors.Join(r.Errors...) }

// Engine computes versions and labels against a catalog.
type Engine struct {
	catalog  *catalog.Catalog
	renderer *Renderer
}

// NewEngine creates an engine for the catalog's definitions.
func NewEngine(c *catalog.Catalog) *Engine {
	return &Engine{catalog: c, renderer: NewRenderer()}
}

type groupKey struct {
	definition string
	study      string
}

// Compute numbers every node of g. It never mutates g.
func (e *Engine) Compute(g *provenance.Graph, opts ...Option) *Report {
	var o options
	for _, opt := range opts {
		opt(&o)
	}

	report := &Report{Versions: make(map[string]int, len(g.Nodes))}

	groups := make(map[groupKey]*algorithms.Digraph)
	var order []groupKey
	member := make(map[string]groupKey, len(g.Nodes))

	for _, n := range g.Nodes {
		if _, ok := e.catalog.Definition(n.DefinitionID); !ok {
			report.Versions[n.ID] = 0
			report.Errors = append(report.Errors, &constraints.DanglingDefinitionError{NodeID: n.ID, DefinitionID: n.DefinitionID})
			continue
		}
		key := groupKey{definition: n.DefinitionID}
		if o.studyScope {
			key.study = n.StudyID
		}
		if _, ok := groups[key]; !ok {
			groups[key] = algorithms.NewDigraph()
			order = append(order, key)
		}
		groups[key].AddVertex(n.ID)
		member[n.ID] = key
	}

	deps := dependencyGraph(g)
	for _, key := range order {
		group := groups[key]
		for _, v := range group.Vertices() {
			for _, ancestor := range ancestors(deps, v, key, member, o.transitive) {
				group.AddArc(v, ancestor)
			}
		}

		versions, cycle := number(group)
		if cycle != nil {
			report.Errors = append(report.Errors, &CyclicDependencyError{
				DefinitionID: key.definition,
				StudyID:      key.study,
				Cycle:        cycle,
			})
			continue
		}
		for id, v := range versions {
			report.Versions[id] = v
		}
	}

	return report
}

// dependencyGraph holds the version-relevant dependency arcs of g, pointing
// from dependent to ancestor.
func dependencyGraph(g *provenance.Graph) *algorithms.Digraph {
	relevant := make(map[catalog.RelationshipType]bool, len(VersionTypes))
	for _, t := range VersionTypes {
		relevant[t] = true
	}

	d := algorithms.NewDigraph()
	for _, n := range g.Nodes {
		d.AddVertex(n.ID)
	}
	for _, dep := range g.Dependencies {
		if !relevant[dep.Type] || !d.HasVertex(dep.Source) || !d.HasVertex(dep.Target) {
			continue
		}
		d.AddArc(dep.Source, dep.Target)
	}
	return d
}

// ancestors returns the nearest ancestors of v that share its group. Without
// transitive ancestry only direct arcs count; with it, paths through nodes
// outside the group are followed until they reach a group member.
func ancestors(deps *algorithms.Digraph, v string, key groupKey, member map[string]groupKey, transitive bool) []string {
	var out []string
	if !transitive {
		for _, w := range deps.Successors(v) {
			if k, ok := member[w]; ok && k == key {
				out = append(out, w)
			}
		}
		return out
	}

	seen := map[string]bool{}
	stack := append([]string(nil), deps.Successors(v)...)
	for len(stack) > 0 {
		w := stack[0]
		stack = stack[1:]
		if seen[w] {
			continue
		}
		seen[w] = true
		if k, ok := member[w]; ok && k == key {
			out = append(out, w)
			continue
		}
		stack = append(stack, deps.Successors(w)...)
	}
	return out
}

const (
	white = iota
	gray
	black
)

// number assigns longest-path versions by memoized depth-first search. It
// returns the first cycle found instead when the group is not acyclic.
func number(group *algorithms.Digraph) (map[string]int, []string) {
	versions := make(map[string]int, group.Len())
	color := make(map[string]int, group.Len())
	var path []string
	var cycle []string

	var visit func(v string) int
	visit = func(v string) int {
		switch color[v] {
		case black:
			return versions[v]
		case gray:
			for i := len(path) - 1; i >= 0; i-- {
				if path[i] == v {
					cycle = append([]string(nil), path[i:]...)
					break
				}
			}
			return 0
		}

		color[v] = gray
		path = append(path, v)
		best := 0
		for _, a := range group.Successors(v) {
			av := visit(a)
			if cycle != nil {
				return 0
			}
			if av > best {
				best = av
			}
		}
		path = path[:len(path)-1]
		color[v] = black
		versions[v] = best + 1
		return versions[v]
	}

	for _, v := range group.Vertices() {
		if color[v] == white {
			visit(v)
			if cycle != nil {
				return nil, cycle
			}
		}
	}
	return versions, nil
}

// Labels computes versions and renders a label for every node.
func (e *Engine) Labels(g *provenance.Graph, opts ...Option) (map[string]string, *Report) {
	report := e.Compute(g, opts...)
	labels := make(map[string]string, len(g.Nodes))

	for _, n := range g.Nodes {
		def, _ := e.catalog.Definition(n.DefinitionID)
		rc := RenderContext{
			Node: n,
			Info: func(key string) (string, bool) { return g.InformationValue(n.ID, key) },
		}
		if v, ok := report.Version(n.ID); ok {
			rc.Version = v
			rc.Versioned = true
		}
		if s, ok := g.StudyByID(n.StudyID); ok {
			rc.Study = &s
		}
		labels[n.ID] = e.renderer.Render(def, rc)
	}
	return labels, report
}
