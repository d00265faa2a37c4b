// Package provenance defines the typed records persisted in the provenance
// graph and a read-only snapshot of a whole graph.
package provenance

import (
	"fmt"
	"sort"

	"github.com/dd0wney/provenance-graph/pkg/catalog"
	"github.com/dd0wney/provenance-graph/pkg/schema"
	"github.com/dd0wney/provenance-graph/pkg/storage"
)

// Store labels.
const (
	NodeLabel        = "Node"
	StudyLabel       = "Study"
	InformationLabel = "InformationField"

	DependsEdge        = "DEPENDS"
	HasInformationEdge = "HAS_INFORMATION"
)

// SchemaFor maps a store label onto its schema name.
func SchemaFor(label string) (string, bool) {
	switch label {
	case NodeLabel:
		return schema.ProvenanceNodeSchema, true
	case StudyLabel:
		return schema.StudySchema, true
	case InformationLabel:
		return schema.InformationFieldSchema, true
	}
	return "", false
}

// Node is an instance of a catalog definition.
type Node struct {
	ID           string `json:"id"`
	DefinitionID string `json:"definitionId"`
	StudyID      string `json:"studyId,omitempty"`
	Label        string `json:"label,omitempty"`
}

// Ref addresses the node in the store.
func (n Node) Ref() storage.NodeRef { return storage.NodeRef{Label: NodeLabel, ID: n.ID} }

// Record converts the node for the persistence adapter. Empty optional fields
// are nil so that an upsert removes them.
func (n Node) Record() schema.Record {
	return schema.Record{
		"id":           n.ID,
		"definitionId": n.DefinitionID,
		"studyId":      optional(n.StudyID),
		"label":        optional(n.Label),
	}
}

// NodeFromRecord is the inverse of Record.
func NodeFromRecord(rec schema.Record) (Node, error) {
	n := Node{
		ID:           rec.String("id"),
		DefinitionID: rec.String("definitionId"),
		StudyID:      rec.String("studyId"),
		Label:        rec.String("label"),
	}
	if n.ID == "" {
		return n, fmt.Errorf("node record without id")
	}
	return n, nil
}

// Study groups nodes sharing a signaling pathway and source.
type Study struct {
	ID               string `json:"id"`
	SignalingPathway string `json:"signalingPathway,omitempty"`
	Source           string `json:"source,omitempty"`
}

func (s Study) Record() schema.Record {
	return schema.Record{
		"id":               s.ID,
		"signalingPathway": optional(s.SignalingPathway),
		"source":           optional(s.Source),
	}
}

func StudyFromRecord(rec schema.Record) (Study, error) {
	s := Study{
		ID:               rec.String("id"),
		SignalingPathway: rec.String("signalingPathway"),
		Source:           rec.String("source"),
	}
	if s.ID == "" {
		return s, fmt.Errorf("study record without id")
	}
	return s, nil
}

// Information is one (key, value) pair owned by exactly one node.
type Information struct {
	ID    string `json:"id"`
	Key   string `json:"key"`
	Value string `json:"value"`
}

func (i Information) Record() schema.Record {
	return schema.Record{"id": i.ID, "key": i.Key, "value": i.Value}
}

func InformationFromRecord(rec schema.Record) (Information, error) {
	i := Information{ID: rec.String("id"), Key: rec.String("key"), Value: rec.String("value")}
	if i.ID == "" {
		return i, fmt.Errorf("information record without id")
	}
	return i, nil
}

// Dependency is a directed edge: Source depends on Target.
type Dependency struct {
	ID     string                   `json:"id"`
	Source string                   `json:"source"`
	Target string                   `json:"target"`
	Type   catalog.RelationshipType `json:"type"`
}

// Edge converts the dependency into a store edge.
func (d Dependency) Edge() *storage.Edge {
	return &storage.Edge{
		ID:         d.ID,
		Type:       DependsEdge,
		From:       storage.NodeRef{Label: NodeLabel, ID: d.Source},
		To:         storage.NodeRef{Label: NodeLabel, ID: d.Target},
		Properties: map[string]storage.Value{"type": storage.StringValue(string(d.Type))},
	}
}

// DependencyFromEdge reads a DEPENDS store edge.
func DependencyFromEdge(e *storage.Edge) Dependency {
	return Dependency{
		ID:     e.ID,
		Source: e.From.ID,
		Target: e.To.ID,
		Type:   catalog.RelationshipType(e.StringProperty("type")),
	}
}

// Graph is a point-in-time snapshot of the provenance graph.
type Graph struct {
	Nodes        []Node
	Studies      []Study
	Dependencies []Dependency
	Information  map[string][]Information // node id -> owned fields

	nodes   map[string]int
	studies map[string]int
}

// NewGraph indexes the given records. Order of Nodes is preserved.
func NewGraph(nodes []Node, studies []Study, deps []Dependency, info map[string][]Information) *Graph {
	g := &Graph{
		Nodes:        nodes,
		Studies:      studies,
		Dependencies: deps,
		Information:  info,
		nodes:        make(map[string]int, len(nodes)),
		studies:      make(map[string]int, len(studies)),
	}
	if g.Information == nil {
		g.Information = make(map[string][]Information)
	}
	for i, n := range nodes {
		g.nodes[n.ID] = i
	}
	for i, s := range studies {
		g.studies[s.ID] = i
	}
	for id := range g.Information {
		fields := g.Information[id]
		sort.Slice(fields, func(a, b int) bool { return fields[a].Key < fields[b].Key })
	}
	return g
}

func (g *Graph) NodeByID(id string) (Node, bool) {
	i, ok := g.nodes[id]
	if !ok {
		return Node{}, false
	}
	return g.Nodes[i], true
}

func (g *Graph) StudyByID(id string) (Study, bool) {
	i, ok := g.studies[id]
	if !ok {
		return Study{}, false
	}
	return g.Studies[i], true
}

// InformationValue returns the value of a node's information field.
func (g *Graph) InformationValue(nodeID, key string) (string, bool) {
	for _, f := range g.Information[nodeID] {
		if f.Key == key {
			return f.Value, true
		}
	}
	return "", false
}

func optional(s string) any {
	if s == "" {
		return nil
	}
	return s
}
