// Package algorithms implements directed-graph algorithms over string-keyed
// graphs: cycle detection and topological ordering.
package algorithms

// Digraph is a directed graph with string vertices. Vertices and arcs keep
// insertion order so results are deterministic.
type Digraph struct {
	order []string
	index map[string]int
	out   map[string][]string
	in    map[string][]string
	arcs  map[[2]string]bool
}

// NewDigraph creates an empty graph.
func NewDigraph() *Digraph {
	return &Digraph{
		index: make(map[string]int),
		out:   make(map[string][]string),
		in:    make(map[string][]string),
		arcs:  make(map[[2]string]bool),
	}
}

// AddVertex adds v if it is not already present.
func (g *Digraph) AddVertex(v string) {
	if _, ok := g.index[v]; ok {
		return
	}
	g.index[v] = len(g.order)
	g.order = append(g.order, v)
}

// AddArc adds from -> to, creating missing vertices. Parallel arcs collapse.
func (g *Digraph) AddArc(from, to string) {
	g.AddVertex(from)
	g.AddVertex(to)
	k := [2]string{from, to}
	if g.arcs[k] {
		return
	}
	g.arcs[k] = true
	g.out[from] = append(g.out[from], to)
	g.in[to] = append(g.in[to], from)
}

// HasVertex reports whether v is in the graph.
func (g *Digraph) HasVertex(v string) bool {
	_, ok := g.index[v]
	return ok
}

// Vertices returns the vertices in insertion order.
func (g *Digraph) Vertices() []string {
	out := make([]string, len(g.order))
	copy(out, g.order)
	return out
}

// Successors returns the heads of arcs leaving v.
func (g *Digraph) Successors(v string) []string { return g.out[v] }

// Len returns the vertex count.
func (g *Digraph) Len() int { return len(g.order) }
