package conf

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func validSettings() *Settings {
	s := Defaults()
	s.Batch.LibraryRoot = "/data/music/library"
	s.Batch.BackupRoot = "/data/music/backup"
	return s
}

func TestValidateAcceptsDefaults(t *testing.T) {
	require.NoError(t, validSettings().Validate())
}

func TestValidateRejectsShallowLibraryRoot(t *testing.T) {
	s := validSettings()
	s.Batch.LibraryRoot = "/"
	assert.Error(t, s.Validate())

	s.Batch.LibraryRoot = "/usr"
	assert.Error(t, s.Validate())
}

func TestValidateRejectsRelativeLibraryRoot(t *testing.T) {
	s := validSettings()
	s.Batch.LibraryRoot = "relative/path"
	assert.Error(t, s.Validate())
}

func TestValidateRejectsReviewAboveAutoApply(t *testing.T) {
	s := validSettings()
	s.Batch.ReviewThreshold = 95
	s.Batch.AutoApplyThreshold = 90
	assert.Error(t, s.Validate())
}

func TestValidateRejectsMalformedTemplate(t *testing.T) {
	s := validSettings()
	s.Batch.FolderTemplate = "{artist}/{unknown_field}"
	assert.Error(t, s.Validate())

	s.Batch.FolderTemplate = "{artist"
	assert.Error(t, s.Validate())
}

func TestValidateRejectsNonPositiveWorkerCount(t *testing.T) {
	s := validSettings()
	s.Batch.WorkerCount = 0
	assert.Error(t, s.Validate())
}

func TestPathDepth(t *testing.T) {
	assert.Equal(t, 0, pathDepth("/"))
	assert.Equal(t, 1, pathDepth("/usr"))
	assert.Equal(t, 3, pathDepth("/data/music/library"))
}
