package scorer

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/tunevault/tunevault/internal/model"
)

// TestScoreAutoApplyScenario mirrors spec scenario S1: fingerprint 0.95,
// duration delta 1s, album consistency 1.0, title/artist near-perfect ->
// score approx 94.
func TestScoreAutoApplyScenario(t *testing.T) {
	c := model.MatchCandidate{
		FingerprintSimilarity: 0.95,
		TitleSimilarity:       0.95,
		ArtistSimilarity:      0.95,
		DurationDelta:         1,
		AlbumConsistency:      1.0,
	}
	score := Score(c, &model.Track{})
	assert.InDelta(t, 94, score, 2)
	assert.Equal(t, model.TierAutoApply, Classify(score, Thresholds{AutoApply: 90, Review: 70}))
}

// TestScoreReviewScenarioFactorsClassifyAsManual uses the factor values of
// spec scenario S2. With the weights above they sum to 68, which is below
// the review threshold of 70, so the tier is manual.
func TestScoreReviewScenarioFactorsClassifyAsManual(t *testing.T) {
	c := model.MatchCandidate{
		FingerprintSimilarity: 0.70,
		TitleSimilarity:       0.85,
		ArtistSimilarity:      0.60,
		DurationDelta:         4,
		AlbumConsistency:      0.5,
	}
	score := Score(c, &model.Track{})
	assert.InDelta(t, 68, score, 2)
	assert.Equal(t, model.TierManual, Classify(score, Thresholds{AutoApply: 90, Review: 70}))
}

func TestClassifyBoundaries(t *testing.T) {
	th := Thresholds{AutoApply: 90, Review: 70}
	assert.Equal(t, model.TierReview, Classify(90, th))
	assert.Equal(t, model.TierAutoApply, Classify(90.001, th))
	assert.Equal(t, model.TierReview, Classify(89.999, th))
	assert.Equal(t, model.TierManual, Classify(70, th))
	assert.Equal(t, model.TierReview, Classify(70.001, th))
	assert.Equal(t, model.TierManual, Classify(69.999, th))
	assert.Equal(t, model.TierManual, Classify(0.01, th))
	assert.Equal(t, model.TierUnmatched, Classify(0, th))
}

func TestSingleTrackBatchGetsFullAlbumCredit(t *testing.T) {
	c := model.MatchCandidate{}
	assert.Equal(t, 1.0, albumConsistency(c, nil))
}

func TestAlbumConsistencyFractionBelowThresholdIsPartial(t *testing.T) {
	c := model.MatchCandidate{ReleaseID: "rel-a"}
	others := []model.MatchCandidate{
		{ReleaseID: "rel-a"},
		{ReleaseID: "rel-b"},
		{ReleaseID: "rel-c"},
	}
	got := albumConsistency(c, others)
	assert.InDelta(t, 1.0/3.0, got, 0.001)
}

func TestAlbumConsistencyFractionAtOrAboveThresholdIsFullCredit(t *testing.T) {
	c := model.MatchCandidate{ReleaseID: "rel-a"}
	others := []model.MatchCandidate{
		{ReleaseID: "rel-a"},
		{ReleaseID: "rel-a"},
		{ReleaseID: "rel-a"},
		{ReleaseID: "rel-a"},
		{ReleaseID: "rel-b"},
	}
	assert.Equal(t, 1.0, albumConsistency(c, others))
}

func TestPopulateAlbumConsistencyFillsEveryCandidate(t *testing.T) {
	candidates := []model.MatchCandidate{
		{ReleaseID: "rel-a"},
		{ReleaseID: "rel-b"},
	}
	others := []model.MatchCandidate{{ReleaseID: "rel-a"}}
	PopulateAlbumConsistency(candidates, others)
	assert.Equal(t, 1.0, candidates[0].AlbumConsistency)
	assert.Equal(t, 0.0, candidates[1].AlbumConsistency)
}

// TestScoreMonotonicity is spec §8 invariant 7: increasing any single
// factor, others fixed, never decreases the aggregate score.
func TestScoreMonotonicity(t *testing.T) {
	base := model.MatchCandidate{
		FingerprintSimilarity: 0.5,
		TitleSimilarity:       0.5,
		ArtistSimilarity:      0.5,
		DurationDelta:         5,
		AlbumConsistency:      0.5,
	}
	track := &model.Track{}
	baseScore := Score(base, track)

	raised := base
	raised.FingerprintSimilarity = 0.9
	assert.GreaterOrEqual(t, Score(raised, track), baseScore)

	raised = base
	raised.TitleSimilarity = 0.9
	assert.GreaterOrEqual(t, Score(raised, track), baseScore)

	raised = base
	raised.ArtistSimilarity = 0.9
	assert.GreaterOrEqual(t, Score(raised, track), baseScore)

	raised = base
	raised.DurationDelta = 1 // smaller delta raises the duration factor
	assert.GreaterOrEqual(t, Score(raised, track), baseScore)

	raised = base
	raised.AlbumConsistency = 0.9
	assert.GreaterOrEqual(t, Score(raised, track), baseScore)
}
