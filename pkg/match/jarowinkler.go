// Package match scores how well a directory record matches a scraped
// query name: a Jaro-Winkler similarity primitive, nickname equivalence,
// and the composite professor-match score built on both.
package match

import "strings"

const (
	// winklerScale is the standard Winkler prefix boost factor.
	winklerScale = 0.1
	// maxPrefix caps the common prefix considered for the boost.
	maxPrefix = 4
)

// JaroWinkler returns the Jaro-Winkler similarity of two strings in
// [0,1], case-folded. Identical non-empty strings score 1; if either
// string is empty the score is 0.
func JaroWinkler(a, b string) float64 {
	ra := []rune(strings.ToLower(a))
	rb := []rune(strings.ToLower(b))
	sim := jaro(ra, rb)
	if sim == 0 {
		return 0
	}
	prefix := 0
	for prefix < len(ra) && prefix < len(rb) && prefix < maxPrefix && ra[prefix] == rb[prefix] {
		prefix++
	}
	return sim + float64(prefix)*winklerScale*(1-sim)
}

func jaro(a, b []rune) float64 {
	la, lb := len(a), len(b)
	if la == 0 || lb == 0 {
		return 0
	}

	// Characters match if equal and within half the longer length.
	window := max(la, lb)/2 - 1
	if window < 0 {
		window = 0
	}

	aMatched := make([]bool, la)
	bMatched := make([]bool, lb)
	matches := 0
	for i := range a {
		lo := max(i-window, 0)
		hi := min(i+window+1, lb)
		for j := lo; j < hi; j++ {
			if bMatched[j] || a[i] != b[j] {
				continue
			}
			aMatched[i] = true
			bMatched[j] = true
			matches++
			break
		}
	}
	if matches == 0 {
		return 0
	}

	transpositions := 0
	j := 0
	for i := range a {
		if !aMatched[i] {
			continue
		}
		for !bMatched[j] {
			j++
		}
		if a[i] != b[j] {
			transpositions++
		}
		j++
	}

	m := float64(matches)
	t := float64(transpositions) / 2
	return (m/float64(la) + m/float64(lb) + (m-t)/m) / 3
}
