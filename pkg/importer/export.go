// Package importer loads a JSON provenance export into the store through the
// persistence adapter.
package importer

import (
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/dd0wney/provenance-graph/pkg/catalog"
	"github.com/dd0wney/provenance-graph/pkg/provenance"
)

// Export is the exchange format of a provenance graph.
type Export struct {
	ProvenanceNodes          []provenance.Node        `json:"provenanceNodes"`
	Studies                  []provenance.Study       `json:"studies"`
	InformationFields        []provenance.Information `json:"informationFields"`
	InformationRelationships []Relationship           `json:"informationRelationships"`
	DependencyRelationships  []Relationship           `json:"dependencyRelationships"`
}

// Relationship is an exported edge. For information relationships Source is
// the owning node and Target the information field; Type is unused.
type Relationship struct {
	ID     string                   `json:"id,omitempty"`
	Source string                   `json:"source"`
	Target string                   `json:"target"`
	Type   catalog.RelationshipType `json:"type,omitempty"`
}

// Decode reads an export. Unknown top-level keys are ignored.
func Decode(r io.Reader) (*Export, error) {
	var e Export
	if err := json.NewDecoder(r).Decode(&e); err != nil {
		return nil, fmt.Errorf("decode export: %w", err)
	}
	return &e, nil
}

// ReadFile decodes the export stored at path.
func ReadFile(path string) (*Export, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open export: %w", err)
	}
	defer f.Close()
	return Decode(f)
}

// FromGraph builds an export of g, the inverse of an import.
func FromGraph(g *provenance.Graph) *Export {
	e := &Export{
		ProvenanceNodes: g.Nodes,
		Studies:         g.Studies,
	}
	for _, n := range g.Nodes {
		for _, f := range g.Information[n.ID] {
			e.InformationFields = append(e.InformationFields, f)
			e.InformationRelationships = append(e.InformationRelationships, Relationship{Source: n.ID, Target: f.ID})
		}
	}
	for _, d := range g.Dependencies {
		e.DependencyRelationships = append(e.DependencyRelationships, Relationship{ID: d.ID, Source: d.Source, Target: d.Target, Type: d.Type})
	}
	return e
}

// Encode writes e as indented JSON.
func (e *Export) Encode(w io.Writer) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(e)
}
