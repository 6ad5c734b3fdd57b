package model

import "sort"

// Tier is the classification a MatchResult is assigned (spec §4.4, glossary).
type Tier string

const (
	TierAutoApply Tier = "auto_apply"
	TierReview    Tier = "review"
	TierManual    Tier = "manual"
	TierUnmatched Tier = "unmatched"
)

// Provenance identifies which oracle produced a candidate. Lower values win
// tie-breaks (spec §3: "ties broken by provenance priority then title
// similarity").
type Provenance int

const (
	ProvenanceFingerprintOracle Provenance = iota
	ProvenanceArchiveOracle
	ProvenanceTagFallback
)

// MatchCandidate is a proposed identity for a Track (spec §3).
type MatchCandidate struct {
	Artist      string
	Title       string
	Album       string
	Year        int
	TrackNumber int
	DiscNumber  int
	ReleaseID   string // opaque oracle handle
	CoverArtID  string // opaque cover-art handle, optional

	FingerprintSimilarity float64 // 0..1
	TitleSimilarity       float64 // 0..1
	ArtistSimilarity      float64 // 0..1
	DurationDelta         float64 // seconds
	AlbumConsistency      float64 // 0..1, computed across the batch

	Provenance Provenance

	// Score is filled in by the scorer; zero until scored.
	Score float64
}

// MatchResult is the ordered outcome of resolving+scoring a Track (spec §3).
type MatchResult struct {
	Candidates []MatchCandidate // descending by Score
	Chosen     int              // index into Candidates, or -1
	Aggregate  float64
	Tier       Tier
}

// ChosenCandidate returns the selected candidate, or nil if none chosen.
func (r *MatchResult) ChosenCandidate() *MatchCandidate {
	if r == nil || r.Chosen < 0 || r.Chosen >= len(r.Candidates) {
		return nil
	}
	return &r.Candidates[r.Chosen]
}

// SortCandidates stable-sorts candidates by descending Score, then
// ascending Provenance, then descending TitleSimilarity (spec §3 invariant).
func SortCandidates(candidates []MatchCandidate) {
	sort.SliceStable(candidates, func(i, j int) bool {
		a, b := candidates[i], candidates[j]
		if a.Score != b.Score {
			return a.Score > b.Score
		}
		if a.Provenance != b.Provenance {
			return a.Provenance < b.Provenance
		}
		return a.TitleSimilarity > b.TitleSimilarity
	})
}
