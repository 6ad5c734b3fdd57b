// Package scorer implements the Confidence Scorer (spec §4.4): a weighted
// five-factor score and the auto_apply/review/manual/unmatched classifier.
package scorer

import (
	"github.com/tunevault/tunevault/internal/fuzzy"
	"github.com/tunevault/tunevault/internal/model"
)

// Weights per spec §4.4's factor table. They sum to 1.0 so Score returns
// 0..100 directly.
const (
	weightFingerprint = 0.40
	weightTitle       = 0.20
	weightArtist      = 0.20
	weightDuration    = 0.10
	weightAlbum       = 0.10
)

// DefaultAlbumConsistencyThreshold is the fraction of batch-mates sharing a
// release that counts as "full credit" for album consistency, and also the
// album-title similarity floor used to decide two candidates are the same
// release when they lack a common handle (spec §4.4: "default 0.80").
const DefaultAlbumConsistencyThreshold = 0.80

// Thresholds carries the per-batch classification boundaries (spec §4.1
// options: auto_apply_threshold, review_threshold), expressed on the same
// 0..100 scale as Score's return value.
type Thresholds struct {
	AutoApply int
	Review    int
}

// Score computes the weighted aggregate confidence (spec §4.4), 0..100,
// from the five normalized factors already carried on candidate.
// AlbumConsistency is read directly off the candidate rather than
// recomputed here — see PopulateAlbumConsistency, which fills it in once
// per batch before scoring begins.
func Score(candidate model.MatchCandidate, track *model.Track) float64 {
	weighted := candidate.FingerprintSimilarity*weightFingerprint +
		candidate.TitleSimilarity*weightTitle +
		candidate.ArtistSimilarity*weightArtist +
		fuzzy.DurationMatch(candidate.DurationDelta)*weightDuration +
		candidate.AlbumConsistency*weightAlbum
	return weighted * 100
}

// PopulateAlbumConsistency fills in AlbumConsistency on every candidate in
// candidates, using otherTopCandidates (the rest of the batch's top pick
// per track) as the comparison set (spec §4.4).
func PopulateAlbumConsistency(candidates []model.MatchCandidate, otherTopCandidates []model.MatchCandidate) {
	for i := range candidates {
		candidates[i].AlbumConsistency = albumConsistency(candidates[i], otherTopCandidates)
	}
}

// albumConsistency is the fraction of other tracks in the batch whose top
// candidate shares this candidate's release, with fractions at or above
// the threshold promoted to full credit (spec §4.4). A single-track batch
// has no "other tracks" to compare against; per the spec's Open Question
// (a), that is treated as full credit rather than zero.
func albumConsistency(candidate model.MatchCandidate, others []model.MatchCandidate) float64 {
	if len(others) == 0 {
		return 1
	}
	matches := 0
	for _, other := range others {
		if sameRelease(candidate, other) {
			matches++
		}
	}
	fraction := float64(matches) / float64(len(others))
	if fraction >= DefaultAlbumConsistencyThreshold {
		return 1
	}
	return fraction
}

// sameRelease treats two candidates as the same release if they share a
// non-empty release handle, or — lacking one — if their album titles are
// fuzzy-similar at or above the album-similarity threshold (spec §4.4:
// "similarity below an album-similarity threshold does not contribute to
// album consistency").
func sameRelease(a, b model.MatchCandidate) bool {
	if a.ReleaseID != "" && a.ReleaseID == b.ReleaseID {
		return true
	}
	if a.Album == "" || b.Album == "" {
		return false
	}
	return fuzzy.Similarity(a.Album, b.Album) >= DefaultAlbumConsistencyThreshold
}

// Classify maps an aggregate score to a Tier (spec §4.4). A score sitting
// exactly on the auto_apply or review boundary resolves to the lower tier.
func Classify(score float64, thresholds Thresholds) model.Tier {
	switch {
	case score > float64(thresholds.AutoApply):
		return model.TierAutoApply
	case score > float64(thresholds.Review):
		return model.TierReview
	case score > 0:
		return model.TierManual
	default:
		return model.TierUnmatched
	}
}
