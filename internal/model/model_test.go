package model

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestProcessingStateTerminal(t *testing.T) {
	terminal := []ProcessingState{StateApplied, StateQueuedForReview, StateUnmatched, StateFailed}
	for _, s := range terminal {
		assert.True(t, s.Terminal(), "%s should be terminal", s)
	}
	nonTerminal := []ProcessingState{StatePending, StateFingerprinted, StateResolved, StateClassified}
	for _, s := range nonTerminal {
		assert.False(t, s.Terminal(), "%s should not be terminal", s)
	}
}

func TestTrackFilenameStem(t *testing.T) {
	tr := &Track{SourcePath: "/music/inbox/07 - Here Comes The Sun.mp3"}
	assert.Equal(t, "07 - Here Comes The Sun", tr.FilenameStem())

	tr2 := &Track{SourcePath: "track-no-ext"}
	assert.Equal(t, "track-no-ext", tr2.FilenameStem())
}

func TestSortCandidatesStableByScoreThenProvenanceThenTitle(t *testing.T) {
	candidates := []MatchCandidate{
		{Title: "b", Score: 50, Provenance: ProvenanceArchiveOracle, TitleSimilarity: 0.9},
		{Title: "a", Score: 90, Provenance: ProvenanceFingerprintOracle, TitleSimilarity: 0.5},
		{Title: "c", Score: 50, Provenance: ProvenanceFingerprintOracle, TitleSimilarity: 0.2},
		{Title: "d", Score: 50, Provenance: ProvenanceFingerprintOracle, TitleSimilarity: 0.8},
	}
	SortCandidates(candidates)

	require.Len(t, candidates, 4)
	assert.Equal(t, "a", candidates[0].Title) // highest score wins
	// remaining tied at 50: provenance fingerprint beats archive; within
	// fingerprint, higher title similarity wins.
	assert.Equal(t, "d", candidates[1].Title)
	assert.Equal(t, "c", candidates[2].Title)
	assert.Equal(t, "b", candidates[3].Title)
}

func TestMatchResultChosenCandidate(t *testing.T) {
	r := &MatchResult{Candidates: []MatchCandidate{{Title: "x"}}, Chosen: -1}
	assert.Nil(t, r.ChosenCandidate())

	r.Chosen = 0
	require.NotNil(t, r.ChosenCandidate())
	assert.Equal(t, "x", r.ChosenCandidate().Title)
}

func TestCacheEntryExpired(t *testing.T) {
	now := time.Now()
	entry := &CacheEntry{CapturedAt: now.Add(-48 * time.Hour), Negative: true}
	assert.True(t, entry.Expired(now, 30*24*time.Hour, 24*time.Hour))

	entry2 := &CacheEntry{CapturedAt: now.Add(-48 * time.Hour), Negative: false}
	assert.False(t, entry2.Expired(now, 30*24*time.Hour, 24*time.Hour))
}
