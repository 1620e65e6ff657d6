package matcher

import (
	"github.com/rentledger/reconcile-backend/internal/domain/canonical"
)

// Similarity computes a normalized overlap coefficient in [0,1] between two
// party labels using the Dice coefficient over character bigrams. Both
// strings are normalized (lower, trim, collapse whitespace) first, so
// "JEREMIAS ARIAS MENDEZ" scores high against "Jeremias Arias Mendez CO".
func Similarity(a, b string) float64 {
	a = canonical.NormalizeText(a)
	b = canonical.NormalizeText(b)

	if a == "" || b == "" {
		return 0
	}
	if a == b {
		return 1
	}

	ba := bigrams(a)
	bb := bigrams(b)
	if len(ba) == 0 || len(bb) == 0 {
		// Single-rune labels have no bigrams; equality was handled above.
		return 0
	}

	var overlap int
	for g, n := range ba {
		if m, ok := bb[g]; ok {
			if m < n {
				overlap += m
			} else {
				overlap += n
			}
		}
	}

	var totalA, totalB int
	for _, n := range ba {
		totalA += n
	}
	for _, n := range bb {
		totalB += n
	}

	return 2 * float64(overlap) / float64(totalA+totalB)
}

// bigrams counts adjacent rune pairs.
func bigrams(s string) map[string]int {
	runes := []rune(s)
	grams := make(map[string]int, len(runes))
	for i := 0; i+1 < len(runes); i++ {
		grams[string(runes[i:i+2])]++
	}
	return grams
}

// bestPairSimilarity returns the maximum similarity across all combinations
// of the two label fields on both sides. Empty labels contribute nothing.
func bestPairSimilarity(ledgerName, ledgerDepositor, candName, candDepositor string) float64 {
	best := 0.0
	for _, l := range []string{ledgerName, ledgerDepositor} {
		if l == "" {
			continue
		}
		for _, c := range []string{candName, candDepositor} {
			if c == "" {
				continue
			}
			if s := Similarity(l, c); s > best {
				best = s
			}
		}
	}
	return best
}
