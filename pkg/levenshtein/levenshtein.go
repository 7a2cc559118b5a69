// Package levenshtein measures edit distance between identifiers and picks
// the closest spelling from a candidate list.
package levenshtein

// Distance returns the number of single-rune insertions, deletions and
// substitutions that turn a into b.
func Distance(a, b string) int {
	ra, rb := []rune(a), []rune(b)
	if len(ra) < len(rb) {
		ra, rb = rb, ra
	}

	if len(rb) == 0 {
		return len(ra)
	}

	prev := make([]int, len(rb)+1)
	cur := make([]int, len(rb)+1)

	for j := range prev {
		prev[j] = j
	}

	for i, ca := range ra {
		cur[0] = i + 1

		for j, cb := range rb {
			cost := 1
			if ca == cb {
				cost = 0
			}

			cur[j+1] = min(prev[j+1]+1, cur[j]+1, prev[j]+cost)
		}

		prev, cur = cur, prev
	}

	return prev[len(rb)]
}

// Closest returns the candidate nearest to word when it is at most maxDist
// edits away and differs from word. Ties go to the earlier candidate.
func Closest(word string, candidates []string, maxDist int) (string, bool) {
	best, bestDist := "", maxDist+1

	for _, c := range candidates {
		if c == "" || c == word {
			continue
		}

		if d := Distance(word, c); d < bestDist {
			best, bestDist = c, d
		}
	}

	return best, best != ""
}
