package repository

import "strings"

// TrigramSimilarity scores two strings in [0,1] the way pg_trgm does:
// lowercase both, pad with two leading and one trailing space, and divide the
// size of the shared trigram set by the size of the union.
func TrigramSimilarity(a, b string) float64 {
	if a == "" || b == "" {
		return 0
	}
	ta := trigrams(a)
	tb := trigrams(b)
	if len(ta) == 0 || len(tb) == 0 {
		return 0
	}

	shared := 0
	for t := range ta {
		if _, ok := tb[t]; ok {
			shared++
		}
	}
	union := len(ta) + len(tb) - shared
	return float64(shared) / float64(union)
}

func trigrams(s string) map[string]struct{} {
	padded := "  " + strings.ToLower(strings.TrimSpace(s)) + " "
	set := make(map[string]struct{}, len(padded))
	for i := 0; i+3 <= len(padded); i++ {
		set[padded[i:i+3]] = struct{}{}
	}
	return set
}
