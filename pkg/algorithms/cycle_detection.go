package algorithms

// Cycle represents a detected cycle as a sequence of vertices
type Cycle []string

const (
	white = iota // unvisited
	gray         // on the recursion stack
	black        // finished
)

// DetectCycles finds cycles using DFS with three-colour marking. Each back
// edge yields one cycle, so the result is a witness set rather than every
// elementary cycle.
//
// When DFS meets a gray vertex it has found a back edge, which closes a cycle.
func DetectCycles(g *Digraph) []Cycle {
	color := make(map[string]int, g.Len())
	parent := make(map[string]string, g.Len())
	cycles := make([]Cycle, 0)

	// Cover disconnected components
	for _, v := range g.order {
		if color[v] == white {
			dfsDetectCycle(g, v, color, parent, &cycles)
		}
	}
	return cycles
}

func dfsDetectCycle(g *Digraph, v string, color map[string]int, parent map[string]string, cycles *[]Cycle) {
	color[v] = gray

	for _, w := range g.out[v] {
		if w == v {
			*cycles = append(*cycles, Cycle{v})
			continue
		}
		switch color[w] {
		case white:
			parent[w] = v
			dfsDetectCycle(g, w, color, parent, cycles)
		case gray:
			*cycles = append(*cycles, extractCycle(w, v, parent))
		}
	}

	color[v] = black
}

// extractCycle walks parent pointers from end back to start, then reverses so
// the cycle reads in arc direction starting at start.
func extractCycle(start, end string, parent map[string]string) Cycle {
	rev := Cycle{end}
	for cur := end; cur != start; {
		p, ok := parent[cur]
		if !ok {
			break
		}
		rev = append(rev, p)
		cur = p
	}
	cycle := make(Cycle, len(rev))
	for i, v := range rev {
		cycle[len(rev)-1-i] = v
	}
	return cycle
}
