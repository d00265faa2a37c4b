package search

import (
	"math"
	"sort"
	"strings"
	"unicode"
)

// rank scores ids by TF-IDF against terms. Lock must be held.
func (idx *Index) rank(ids map[string]bool, terms []string) []Result {
	results := make([]Result, 0, len(ids))
	for id := range ids {
		p, ok := idx.docs[id]
		if !ok {
			continue
		}
		results = append(results, Result{Projection: p, Score: idx.score(id, terms)})
	}
	sortResults(results)
	return results
}

func (idx *Index) score(id string, terms []string) float64 {
	total := float64(len(idx.docs))
	score := 0.0
	for _, term := range terms {
		tf := float64(len(idx.postings[term][id]))
		idf := 1.0
		if df := float64(idx.docFreq[term]); df > 0 && total > 0 {
			// +1 keeps terms present in every projection from scoring zero.
			idf = math.Log((total + 1) / (df + 1))
		}
		score += tf * (1.0 + idf)
	}
	return score
}

// sortResults orders by descending score, then id.
func sortResults(rs []Result) {
	sort.Slice(rs, func(i, j int) bool {
		if rs[i].Score != rs[j].Score {
			return rs[i].Score > rs[j].Score
		}
		return rs[i].ID < rs[j].ID
	})
}

// tokenize lower-cases text and splits it on anything but letters and digits.
func tokenize(text string) []string {
	return strings.FieldsFunc(strings.ToLower(text), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})
}
