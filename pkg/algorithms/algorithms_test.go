package algorithms

import (
	"errors"
	"testing"
)

func chain(vs ...string) *Digraph {
	g := NewDigraph()
	for i := 0; i+1 < len(vs); i++ {
		g.AddArc(vs[i], vs[i+1])
	}
	return g
}

func TestDetectCycles(t *testing.T) {
	tests := []struct {
		name   string
		build  func() *Digraph
		cycles int
		want   Cycle
	}{
		{"acyclic chain", func() *Digraph { return chain("a", "b", "c") }, 0, nil},
		{"triangle", func() *Digraph { return chain("a", "b", "c", "a") }, 1, Cycle{"a", "b", "c"}},
		{"self loop", func() *Digraph { g := NewDigraph(); g.AddArc("a", "a"); return g }, 1, Cycle{"a"}},
		{"diamond", func() *Digraph {
			g := chain("a", "b", "d")
			g.AddArc("a", "c")
			g.AddArc("c", "d")
			return g
		}, 0, nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			g := tt.build()
			cycles := DetectCycles(g)
			if len(cycles) != tt.cycles {
				t.Fatalf("expected %d cycles, got %v", tt.cycles, cycles)
			}
			if tt.want != nil {
				got := cycles[0]
				if len(got) != len(tt.want) {
					t.Fatalf("cycle = %v, want %v", got, tt.want)
				}
				for i := range got {
					if got[i] != tt.want[i] {
						t.Errorf("cycle = %v, want %v", got, tt.want)
						break
					}
				}
			}
		})
	}
}

func TestTopologicalSort(t *testing.T) {
	g := chain("c", "b", "a")
	g.AddVertex("z")

	order, err := TopologicalSort(g)
	if err != nil {
		t.Fatalf("TopologicalSort failed: %v", err)
	}
	pos := make(map[string]int)
	for i, v := range order {
		pos[v] = i
	}
	if !(pos["c"] < pos["b"] && pos["b"] < pos["a"]) {
		t.Errorf("order violates arcs: %v", order)
	}
	if len(order) != 4 {
		t.Errorf("expected 4 vertices, got %v", order)
	}

	if _, err := TopologicalSort(chain("a", "b", "a")); !errors.Is(err, ErrNotDAG) {
		t.Errorf("expected ErrNotDAG, got %v", err)
	}
}

func TestParallelArcsCollapse(t *testing.T) {
	g := NewDigraph()
	g.AddArc("a", "b")
	g.AddArc("a", "b")
	if len(g.Successors("a")) != 1 || !g.HasVertex("b") {
		t.Errorf("parallel arcs should collapse")
	}
	if order, err := TopologicalSort(g); err != nil || len(order) != 2 {
		t.Errorf("TopologicalSort() = %v, %v", order, err)
	}
}
