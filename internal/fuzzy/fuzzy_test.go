package fuzzy

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNormalize(t *testing.T) {
	cases := map[string]string{
		"Here Comes The Sun [Remastered]": "here comes the sun",
		"07 - Abbey Road (Live)":          "abbey road",
		"  Multiple   Spaces  ":           "multiple spaces",
		"Café":                            "cafe",
	}
	for in, want := range cases {
		assert.Equal(t, want, Normalize(in), "input %q", in)
	}
}

func TestSimilarityIdentical(t *testing.T) {
	assert.Equal(t, 1.0, Similarity("Here Comes The Sun", "here comes the sun"))
}

func TestSimilarityBothEmpty(t *testing.T) {
	assert.Equal(t, 1.0, Similarity("", ""))
}

func TestSimilarityOneEmpty(t *testing.T) {
	assert.Equal(t, 0.0, Similarity("title", ""))
}

func TestSimilarityCloseStrings(t *testing.T) {
	sim := Similarity("The beatls", "The Beatles")
	assert.Greater(t, sim, 0.8)
	assert.Less(t, sim, 1.0)
}

func TestDurationMatch(t *testing.T) {
	assert.InDelta(t, 1.0, DurationMatch(0), 0.0001)
	assert.InDelta(t, 0.9, DurationMatch(1), 0.0001)
	assert.InDelta(t, 0.0, DurationMatch(15), 0.0001)
	assert.InDelta(t, 0.9, DurationMatch(-1), 0.0001)
}
