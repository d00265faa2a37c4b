package search

import (
	"github.com/sahilm/fuzzy"
)

// Search returns projections containing every term of query, ranked by
// TF-IDF. An empty query matches nothing.
func (idx *Index) Search(query string) []Result {
	terms := tokenize(query)
	if len(terms) == 0 {
		return []Result{}
	}

	idx.mu.RLock()
	defer idx.mu.RUnlock()

	var candidates map[string]bool
	for i, term := range terms {
		termDocs := make(map[string]bool)
		for id := range idx.postings[term] {
			termDocs[id] = true
		}
		if i == 0 {
			candidates = termDocs
			continue
		}
		for id := range candidates {
			if !termDocs[id] {
				delete(candidates, id)
			}
		}
	}

	return idx.rank(candidates, terms)
}

// SearchPhrase returns projections containing the terms of phrase
// consecutively.
func (idx *Index) SearchPhrase(phrase string) []Result {
	terms := tokenize(phrase)
	if len(terms) == 0 {
		return []Result{}
	}

	idx.mu.RLock()
	defer idx.mu.RUnlock()

	matches := make(map[string]bool)
	for id := range idx.postings[terms[0]] {
		if idx.containsPhrase(id, terms) {
			matches[id] = true
		}
	}
	return idx.rank(matches, terms)
}

func (idx *Index) containsPhrase(id string, terms []string) bool {
	for _, start := range idx.postings[terms[0]][id] {
		match := true
		for i := 1; i < len(terms) && match; i++ {
			match = false
			for _, p := range idx.postings[terms[i]][id] {
				if p == start+i {
					match = true
					break
				}
			}
		}
		if match {
			return true
		}
	}
	return false
}

// entries flattens the fuzzy-searchable strings of the index.
type entries struct {
	text  []string
	owner []string
}

func (e entries) String(i int) string { return e.text[i] }
func (e entries) Len() int            { return len(e.text) }

// Fuzzy matches pattern against titles and information strings. Each
// projection appears once, scored by its best matching string. A limit of
// zero or less returns every match.
func (idx *Index) Fuzzy(pattern string, limit int) []Result {
	if pattern == "" {
		return []Result{}
	}

	idx.mu.RLock()
	defer idx.mu.RUnlock()

	var src entries
	for _, id := range idx.ids() {
		p := idx.docs[id]
		src.text = append(src.text, p.Title)
		src.owner = append(src.owner, id)
		for _, info := range p.Information {
			src.text = append(src.text, info)
			src.owner = append(src.owner, id)
		}
	}

	best := make(map[string]float64)
	for _, m := range fuzzy.FindFrom(pattern, src) {
		id := src.owner[m.Index]
		if s, ok := best[id]; !ok || float64(m.Score) > s {
			best[id] = float64(m.Score)
		}
	}

	results := make([]Result, 0, len(best))
	for id, score := range best {
		results = append(results, Result{Projection: idx.docs[id], Score: score})
	}
	sortResults(results)
	if limit > 0 && len(results) > limit {
		results = results[:limit]
	}
	return results
}
