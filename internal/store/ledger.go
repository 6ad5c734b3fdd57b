package store

import (
	"time"

	"github.com/tunevault/tunevault/internal/apperrors"
	"github.com/tunevault/tunevault/internal/model"
)

// AppendMoveRecord appends a new ledger entry and returns it with its
// assigned monotonic ID (spec §3: "ledger appends are serialized and
// monotonically ordered", spec §5).
func (s *Store) AppendMoveRecord(rec *model.MoveRecord) (*model.MoveRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if rec.DryRun {
		// Dry-run records are speculative and must not survive the batch
		// (spec §4.5); callers hold them in memory only. Guard here so a
		// caller mistake never persists one.
		return nil, apperrors.Newf("dry-run move records must not be persisted").
			Component("store").Category(apperrors.CategoryValidation).Build()
	}

	row := moveLedgerRow{
		BatchID:      rec.BatchID,
		OriginalPath: rec.OriginalPath,
		BackupPath:   rec.BackupPath,
		CurrentPath:  rec.CurrentPath,
		Operation:    string(rec.Operation),
		Reversal:     string(rec.Reversal),
		Timestamp:    time.Now(),
	}
	if err := s.db.Create(&row).Error; err != nil {
		return nil, apperrors.New(err).Component("store").Category(apperrors.CategoryIO).Build()
	}
	out := *rec
	out.ID = row.ID
	out.Timestamp = row.Timestamp
	return &out, nil
}

// ListMoveRecords returns all ledger entries for a batch, in descending ID
// order (the order rollback must process them in, spec §4.5).
func (s *Store) ListMoveRecords(batchID string) ([]model.MoveRecord, error) {
	var rows []moveLedgerRow
	if err := s.db.Where("batch_id = ?", batchID).Order("id DESC").Find(&rows).Error; err != nil {
		return nil, apperrors.New(err).Component("store").Category(apperrors.CategoryIO).Build()
	}
	out := make([]model.MoveRecord, len(rows))
	for i, r := range rows {
		out[i] = model.MoveRecord{
			ID:           r.ID,
			BatchID:      r.BatchID,
			OriginalPath: r.OriginalPath,
			BackupPath:   r.BackupPath,
			CurrentPath:  r.CurrentPath,
			Operation:    model.OperationKind(r.Operation),
			Timestamp:    r.Timestamp,
			Reversal:     model.ReversalState(r.Reversal),
		}
	}
	return out, nil
}

// GetMoveRecord fetches a single ledger entry by ID.
func (s *Store) GetMoveRecord(id uint64) (*model.MoveRecord, error) {
	var r moveLedgerRow
	if err := s.db.First(&r, id).Error; err != nil {
		return nil, apperrors.New(err).Component("store").Category(apperrors.CategoryIO).Build()
	}
	return &model.MoveRecord{
		ID: r.ID, BatchID: r.BatchID, OriginalPath: r.OriginalPath,
		BackupPath: r.BackupPath, CurrentPath: r.CurrentPath,
		Operation: model.OperationKind(r.Operation), Timestamp: r.Timestamp,
		Reversal: model.ReversalState(r.Reversal),
	}, nil
}

// SetReversalState updates the reversal state of a ledger entry after a
// rollback attempt (spec §4.5).
func (s *Store) SetReversalState(id uint64, state model.ReversalState) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.db.Model(&moveLedgerRow{}).Where("id = ?", id).
		Update("reversal", string(state)).Error
}
