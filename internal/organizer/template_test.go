package organizer

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/tunevault/tunevault/internal/model"
)

func TestRenderTemplateSubstitutesKnownFields(t *testing.T) {
	c := model.MatchCandidate{Artist: "The Beatles", Album: "Abbey Road", Year: 1969, Title: "Here Comes The Sun", TrackNumber: 7}
	got := renderTemplate("{artist}/{album} ({year})", c, &model.Track{})
	assert.Equal(t, "The Beatles/Abbey Road (1969)", got)

	got = renderTemplate("{track:02d} - {title}", c, &model.Track{})
	assert.Equal(t, "07 - Here Comes The Sun", got)
}

func TestRenderTemplateMissingFieldsSubstituteUnknown(t *testing.T) {
	got := renderTemplate("{artist}/{album} ({year})", model.MatchCandidate{}, &model.Track{})
	assert.Equal(t, "Unknown/Unknown (Unknown)", got)
}

func TestSanitizeComponentStripsReservedCharacters(t *testing.T) {
	got := sanitizeComponent(`a:b/c\d*e?f"g<h>i|j`)
	assert.NotContains(t, got, ":")
	assert.NotContains(t, got, "/")
	assert.NotContains(t, got, "*")
}

func TestSanitizeComponentDisambiguatesReservedDeviceNames(t *testing.T) {
	assert.Equal(t, "CON_", sanitizeComponent("CON"))
	assert.Equal(t, "con_.mp3", sanitizeComponent("con.mp3"))
	assert.Equal(t, "LPT1_", sanitizeComponent("LPT1"))
	assert.Equal(t, "Normal Title", sanitizeComponent("Normal Title"))
}

func TestSanitizeComponentTrimsTrailingDotsAndSpaces(t *testing.T) {
	assert.Equal(t, "Title", sanitizeComponent("Title. "))
}

func TestRenderFilenameSmartTruncatesOverlongTitle(t *testing.T) {
	longTitle := strings.Repeat("x", 400)
	c := model.MatchCandidate{Title: longTitle, TrackNumber: 1}
	got := renderFilename("{track:02d} - {title}", c, &model.Track{}, ".mp3")
	assert.LessOrEqual(t, len(got), maxPathComponent)
	assert.True(t, strings.HasSuffix(got, ".mp3"))
}

func TestFormatNumberZeroPads(t *testing.T) {
	assert.Equal(t, "07", formatNumber(7, "02d"))
	assert.Equal(t, "7", formatNumber(7, ""))
	assert.Equal(t, "Unknown", formatNumber(0, "02d"))
}
