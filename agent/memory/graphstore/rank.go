package graphstore

import (
	"math"
	"sort"
	"strings"
	"unicode"
)

const (
	rrfK        = 60
	centerBoost = 1.0 / rrfK
	maxTerms    = 8
)

// fuse merges ranked id lists with reciprocal rank fusion. Ties keep the
// order in which ids were first seen.
func fuse(boost func(id string) float64, lists ...[]string) []string {
	scores := map[string]float64{}
	var order []string
	for _, list := range lists {
		for rank, id := range list {
			if _, seen := scores[id]; !seen {
				order = append(order, id)
			}
			scores[id] += 1.0 / float64(rrfK+rank+1)
		}
	}
	if boost != nil {
		for _, id := range order {
			scores[id] += boost(id)
		}
	}
	sort.SliceStable(order, func(i, j int) bool {
		return scores[order[i]] > scores[order[j]]
	})
	return order
}

func cosine(a, b []float64) float64 {
	if len(a) == 0 || len(a) != len(b) {
		return 0
	}
	var dot, na, nb float64
	for i := range a {
		dot += a[i] * b[i]
		na += a[i] * a[i]
		nb += b[i] * b[i]
	}
	if na == 0 || nb == 0 {
		return 0
	}
	return dot / (math.Sqrt(na) * math.Sqrt(nb))
}

// searchTerms splits a query into lowercase words of at least three letters.
func searchTerms(query string) []string {
	seen := map[string]bool{}
	var out []string
	for _, w := range strings.Fields(strings.ToLower(query)) {
		w = strings.TrimFunc(w, func(r rune) bool { return unicode.IsPunct(r) || unicode.IsSymbol(r) })
		if len([]rune(w)) < 3 || seen[w] {
			continue
		}
		seen[w] = true
		out = append(out, w)
		if len(out) == maxTerms {
			break
		}
	}
	if len(out) == 0 {
		if q := strings.TrimSpace(strings.ToLower(query)); q != "" {
			out = append(out, q)
		}
	}
	return out
}

var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

func likePattern(term string) string {
	return "%" + likeEscaper.Replace(term) + "%"
}
