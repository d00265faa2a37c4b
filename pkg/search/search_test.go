package search

import (
	"sync"
	"testing"

	"github.com/dd0wney/provenance-graph/pkg/provenance"
)

func testIndex() *Index {
	return NewIndex(
		Projection{ID: "m1", Title: "SM1", Type: "Simulation Model", Information: []string{"Status: Successful Calibration"}},
		Projection{ID: "m2", Title: "SM2", Type: "Simulation Model", Information: []string{"Notes: calibration pending review"}},
		Projection{ID: "c1", Title: "Calibration", Type: "Calibrating Activity"},
		Projection{ID: "d1", Title: "Dataset 1", Type: "Dataset", Information: []string{"Source: wet lab assay"}},
	)
}

func ids(rs []Result) []string {
	out := make([]string, len(rs))
	for i, r := range rs {
		out[i] = r.ID
	}
	return out
}

func contains(rs []Result, id string) bool {
	for _, r := range rs {
		if r.ID == id {
			return true
		}
	}
	return false
}

func TestProject(t *testing.T) {
	g := provenance.NewGraph(
		[]provenance.Node{
			{ID: "m1", DefinitionID: "Simulation Model"},
			{ID: "m2", DefinitionID: "Simulation Model"},
		},
		nil,
		nil,
		map[string][]provenance.Information{
			"m1": {{ID: "i2", Key: "Status", Value: "done"}, {ID: "i1", Key: "Notes", Value: "first run"}},
		},
	)

	ps := Project(g, map[string]string{"m1": "SM1"})
	if len(ps) != 2 {
		t.Fatalf("Expected 2 projections, got %d", len(ps))
	}
	if ps[0].Title != "SM1" || ps[0].Type != "Simulation Model" {
		t.Errorf("Unexpected projection %+v", ps[0])
	}
	if len(ps[0].Information) != 2 || ps[0].Information[0] != "Notes: first run" {
		t.Errorf("Information should be sorted by key, got %v", ps[0].Information)
	}
	if ps[1].Title != "m2" {
		t.Errorf("Unlabelled node should fall back to its id, got %q", ps[1].Title)
	}
}

func TestSearch(t *testing.T) {
	idx := testIndex()

	tests := []struct {
		query string
		want  []string
	}{
		{"calibration", []string{"c1", "m1", "m2"}},
		{"CALIBRATION", []string{"c1", "m1", "m2"}},
		{"simulation calibration", []string{"m1", "m2"}},
		{"successful calibration", []string{"m1"}},
		{"assay", []string{"d1"}},
		{"nothing", nil},
		{"", nil},
		{"  ,, ", nil},
	}

	for _, tt := range tests {
		t.Run(tt.query, func(t *testing.T) {
			got := idx.Search(tt.query)
			if len(got) != len(tt.want) {
				t.Fatalf("Search(%q) = %v, want %v", tt.query, ids(got), tt.want)
			}
			for _, id := range tt.want {
				if !contains(got, id) {
					t.Errorf("Search(%q) missing %s, got %v", tt.query, id, ids(got))
				}
			}
		})
	}
}

func TestSearchRanking(t *testing.T) {
	idx := NewIndex(
		Projection{ID: "a", Title: "model", Type: "x"},
		Projection{ID: "b", Title: "model model model", Type: "x"},
		Projection{ID: "c", Title: "other", Type: "x"},
	)

	got := idx.Search("model")
	if len(got) != 2 || got[0].ID != "b" {
		t.Fatalf("Expected b ranked first, got %v", ids(got))
	}
	if got[0].Score <= got[1].Score {
		t.Errorf("Expected strictly higher score for more occurrences: %v", got)
	}
}

func TestSearchPhrase(t *testing.T) {
	idx := testIndex()

	if got := idx.SearchPhrase("successful calibration"); len(got) != 1 || got[0].ID != "m1" {
		t.Errorf("Expected only m1, got %v", ids(got))
	}
	if got := idx.SearchPhrase("calibration successful"); len(got) != 0 {
		t.Errorf("Reversed phrase should not match, got %v", ids(got))
	}
	if got := idx.SearchPhrase("pending review"); len(got) != 1 || got[0].ID != "m2" {
		t.Errorf("Expected only m2, got %v", ids(got))
	}
}

func TestFuzzy(t *testing.T) {
	idx := testIndex()

	got := idx.Fuzzy("wetlab", 0)
	if len(got) != 1 || got[0].ID != "d1" {
		t.Fatalf("Expected d1 from its information, got %v", ids(got))
	}

	got = idx.Fuzzy("sm", 0)
	if !contains(got, "m1") || !contains(got, "m2") {
		t.Errorf("Expected both models, got %v", ids(got))
	}
	seen := map[string]bool{}
	for _, r := range got {
		if seen[r.ID] {
			t.Errorf("Projection %s returned twice", r.ID)
		}
		seen[r.ID] = true
	}

	if got := idx.Fuzzy("sm", 1); len(got) != 1 {
		t.Errorf("Expected limit to apply, got %d results", len(got))
	}
	if got := idx.Fuzzy("", 0); len(got) != 0 {
		t.Errorf("Empty pattern should match nothing, got %v", ids(got))
	}
	if got := idx.Fuzzy("zzzq", 0); len(got) != 0 {
		t.Errorf("Expected no matches, got %v", ids(got))
	}
}

func TestIndexUpdate(t *testing.T) {
	idx := testIndex()

	idx.Add(Projection{ID: "d1", Title: "Dataset 1", Type: "Dataset", Information: []string{"Source: in silico"}})
	if idx.Len() != 4 {
		t.Errorf("Replacing a projection should keep the count, got %d", idx.Len())
	}
	if got := idx.Search("assay"); len(got) != 0 {
		t.Errorf("Stale terms should be gone, got %v", ids(got))
	}
	if got := idx.Search("silico"); len(got) != 1 {
		t.Errorf("Expected new terms to be indexed, got %v", ids(got))
	}

	if !idx.Remove("c1") {
		t.Fatal("Remove(c1) should report true")
	}
	if idx.Remove("c1") {
		t.Error("Second Remove(c1) should report false")
	}
	if got := idx.Search("activity"); len(got) != 0 {
		t.Errorf("Removed projection still found: %v", ids(got))
	}
}

func TestConcurrentAccess(t *testing.T) {
	idx := testIndex()

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(2)
		go func() {
			defer wg.Done()
			idx.Add(Projection{ID: "tmp", Title: "temporary", Type: "Dataset"})
			idx.Remove("tmp")
		}()
		go func() {
			defer wg.Done()
			idx.Search("calibration")
			idx.Fuzzy("cal", 3)
		}()
	}
	wg.Wait()

	if got := idx.Search("calibration"); len(got) != 3 {
		t.Errorf("Expected 3 results after concurrent churn, got %v", ids(got))
	}
}
