// Package search indexes provenance nodes for text lookup by title, type and
// information values.
package search

import (
	"sort"
	"strings"
	"sync"

	"github.com/dd0wney/provenance-graph/pkg/provenance"
)

// Projection is the searchable view of one node.
type Projection struct {
	ID          string   `json:"id"`
	Title       string   `json:"title"`
	Type        string   `json:"type"`
	Information []string `json:"information,omitempty"`
}

// Result is a ranked match.
type Result struct {
	Projection
	Score float64 `json:"score"`
}

// Project builds one projection per node of g. Titles come from labels,
// falling back to the node id; information entries read "Key: Value".
func Project(g *provenance.Graph, labels map[string]string) []Projection {
	out := make([]Projection, 0, len(g.Nodes))
	for _, n := range g.Nodes {
		p := Projection{ID: n.ID, Title: labels[n.ID], Type: n.DefinitionID}
		if p.Title == "" {
			p.Title = n.ID
		}
		for _, f := range g.Information[n.ID] {
			p.Information = append(p.Information, f.Key+": "+f.Value)
		}
		out = append(out, p)
	}
	return out
}

// Index is an inverted index over projections. It is safe for concurrent use.
type Index struct {
	mu sync.RWMutex

	// term -> projection id -> token positions
	postings map[string]map[string][]int
	docFreq  map[string]int
	docs     map[string]Projection
}

// NewIndex creates an empty index and adds ps to it.
func NewIndex(ps ...Projection) *Index {
	idx := &Index{
		postings: make(map[string]map[string][]int),
		docFreq:  make(map[string]int),
		docs:     make(map[string]Projection),
	}
	for _, p := range ps {
		idx.Add(p)
	}
	return idx
}

// Add indexes p, replacing any projection with the same id.
func (idx *Index) Add(p Projection) {
	idx.mu.Lock()
	defer idx.mu.Unlock()

	idx.remove(p.ID)
	idx.docs[p.ID] = p

	seen := make(map[string]bool)
	for pos, term := range tokenize(content(p)) {
		if idx.postings[term] == nil {
			idx.postings[term] = make(map[string][]int)
		}
		idx.postings[term][p.ID] = append(idx.postings[term][p.ID], pos)
		if !seen[term] {
			idx.docFreq[term]++
			seen[term] = true
		}
	}
}

// Remove drops a projection. It reports whether one was indexed.
func (idx *Index) Remove(id string) bool {
	idx.mu.Lock()
	defer idx.mu.Unlock()
	return idx.remove(id)
}

// remove must be called with the lock held.
func (idx *Index) remove(id string) bool {
	if _, ok := idx.docs[id]; !ok {
		return false
	}
	for term, docs := range idx.postings {
		if _, ok := docs[id]; !ok {
			continue
		}
		delete(docs, id)
		idx.docFreq[term]--
		if len(docs) == 0 {
			delete(idx.postings, term)
			delete(idx.docFreq, term)
		}
	}
	delete(idx.docs, id)
	return true
}

// Len returns the number of indexed projections.
func (idx *Index) Len() int {
	idx.mu.RLock()
	defer idx.mu.RUnlock()
	return len(idx.docs)
}

// ids returns projection ids in a stable order. Lock must be held.
func (idx *Index) ids() []string {
	ids := make([]string, 0, len(idx.docs))
	for id := range idx.docs {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// content joins the searchable text of p.
func content(p Projection) string {
	parts := make([]string, 0, 2+len(p.Information))
	parts = append(parts, p.Title, p.Type)
	parts = append(parts, p.Information...)
	return strings.Join(parts, " ")
}
