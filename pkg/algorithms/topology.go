package algorithms

import "errors"

// ErrNotDAG is returned by TopologicalSort when the graph has a cycle.
var ErrNotDAG = errors.New("graph contains cycles, cannot perform topological sort")

// TopologicalSort returns vertices in topological order using Kahn's
// algorithm: for every arc u->v, u comes before v. Ties keep insertion order.
func TopologicalSort(g *Digraph) ([]string, error) {
	inDegree := make(map[string]int, g.Len())
	for _, v := range g.order {
		inDegree[v] = len(g.in[v])
	}

	queue := make([]string, 0)
	for _, v := range g.order {
		if inDegree[v] == 0 {
			queue = append(queue, v)
		}
	}

	sorted := make([]string, 0, g.Len())
	for len(queue) > 0 {
		current := queue[0]
		queue = queue[1:]
		sorted = append(sorted, current)

		for _, w := range g.out[current] {
			inDegree[w]--
			if inDegree[w] == 0 {
				queue = append(queue, w)
			}
		}
	}

	// Vertices left unprocessed sit on or behind a cycle
	if len(sorted) != g.Len() {
		return nil, ErrNotDAG
	}
	return sorted, nil
}
