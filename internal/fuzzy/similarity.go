package fuzzy

import "github.com/xrash/smetrics"

// Similarity returns a 0..1 Jaro-Winkler similarity between two strings
// after normalization. Used for title/artist similarity (spec §4.4),
// including for archive-oracle search hits, and for album-title matching in
// the scorer's album-consistency factor.
func Similarity(a, b string) float64 {
	a, b = Normalize(a), Normalize(b)
	if a == "" && b == "" {
		return 1
	}
	if a == "" || b == "" {
		return 0
	}
	return smetrics.JaroWinkler(a, b, 0.7, 4)
}

// DurationMatch returns the 0..1 duration-match factor from spec §4.4:
// max(0, 1 - min(|delta|/10, 1)).
func DurationMatch(deltaSeconds float64) float64 {
	if deltaSeconds < 0 {
		deltaSeconds = -deltaSeconds
	}
	ratio := deltaSeconds / 10
	if ratio > 1 {
		ratio = 1
	}
	return 1 - ratio
}
