package store

import (
	"encoding/json"

	"github.com/tunevault/tunevault/internal/apperrors"
	"github.com/tunevault/tunevault/internal/model"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// SaveTrack upserts a Track snapshot keyed by (batch_id, path), matching the
// orchestrator's "look up each path in the Track store keyed by
// (batch_id, path)" resume lookup (spec §4.1 phase 1).
func (s *Store) SaveTrack(t *model.Track) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	blob, err := json.Marshal(t)
	if err != nil {
		return apperrors.New(err).Component("store").Category(apperrors.CategoryIO).Build()
	}
	var chosenJSON string
	if c := t.Result.ChosenCandidate(); c != nil {
		if b, err := json.Marshal(c); err == nil {
			chosenJSON = string(b)
		}
	}

	row := trackRow{
		BatchID:         t.BatchID,
		Path:            t.SourcePath,
		State:           string(t.State),
		Error:           t.LastErr,
		ChosenCandidate: chosenJSON,
		DestPath:        t.DestPath,
		TrackJSON:       string(blob),
	}
	return s.db.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "batch_id"}, {Name: "path"}},
		UpdateAll: true,
	}).Create(&row).Error
}

// TerminalPaths returns the set of source paths already in a terminal state
// for batchID, used to implement resume (spec §4.1 phase 1).
func (s *Store) TerminalPaths(batchID string) (map[string]bool, error) {
	var rows []trackRow
	terminal := []string{
		string(model.StateApplied), string(model.StateQueuedForReview),
		string(model.StateUnmatched), string(model.StateFailed),
	}
	if err := s.db.Where("batch_id = ? AND state IN ?", batchID, terminal).Find(&rows).Error; err != nil {
		return nil, apperrors.New(err).Component("store").Category(apperrors.CategoryIO).Build()
	}
	out := make(map[string]bool, len(rows))
	for _, r := range rows {
		out[r.Path] = true
	}
	return out, nil
}

// GetTrack loads a previously saved Track snapshot, or gorm.ErrRecordNotFound.
func (s *Store) GetTrack(batchID, path string) (*model.Track, error) {
	var row trackRow
	if err := s.db.Where("batch_id = ? AND path = ?", batchID, path).First(&row).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, err
		}
		return nil, apperrors.New(err).Component("store").Category(apperrors.CategoryIO).Build()
	}
	var t model.Track
	if err := json.Unmarshal([]byte(row.TrackJSON), &t); err != nil {
		return nil, apperrors.New(err).Component("store").Category(apperrors.CategoryIO).Build()
	}
	return &t, nil
}
