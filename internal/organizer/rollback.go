package organizer

import (
	"os"
	"path/filepath"

	"github.com/tunevault/tunevault/internal/model"
)

// RollbackReport summarizes a rollback pass over a set of MoveRecords
// (spec §7: "the caller receives a report").
type RollbackReport struct {
	Reversed []uint64
	Broken   []uint64
}

// RollbackBatch reverses every reversible MoveRecord for batchID in
// descending ledger order: destination -> current path -> original path,
// then restores backup bytes if a backup exists (spec §4.5). A record
// whose chain is already broken on disk is marked broken and the walk
// proceeds to the next record rather than aborting.
func (o *Organizer) RollbackBatch(batchID string) (RollbackReport, error) {
	records, err := o.Ledger.RecordsForBatch(batchID)
	if err != nil {
		return RollbackReport{}, err
	}
	return o.rollbackRecords(batchID, records), nil
}

// RollbackRecord reverses a single ledger entry by ID.
func (o *Organizer) RollbackRecord(batchID string, id uint64) (model.ReversalState, error) {
	records, err := o.Ledger.RecordsForBatch(batchID)
	if err != nil {
		return "", err
	}
	for _, rec := range records {
		if rec.ID == id {
			report := o.rollbackRecords(batchID, []model.MoveRecord{rec})
			if len(report.Reversed) == 1 {
				return model.Reversed, nil
			}
			return model.Broken, nil
		}
	}
	return "", nil
}

// RollbackTrack reverses the most recent ledger entry touching path.
func (o *Organizer) RollbackTrack(batchID, path string) (model.ReversalState, error) {
	rec, found, err := o.Ledger.RecordForTrack(batchID, path)
	if err != nil {
		return "", err
	}
	if !found {
		return "", nil
	}
	return o.RollbackRecord(batchID, rec.ID)
}

func (o *Organizer) rollbackRecords(batchID string, records []model.MoveRecord) RollbackReport {
	var report RollbackReport
	for _, rec := range records {
		if rec.Reversal != model.Reversible {
			continue
		}
		state := o.reverseRecord(rec)
		_ = o.Ledger.SetReversalState(batchID, rec.ID, state)
		if state == model.Reversed {
			report.Reversed = append(report.Reversed, rec.ID)
		} else {
			report.Broken = append(report.Broken, rec.ID)
		}
	}
	return report
}

// reverseRecord undoes one MoveRecord: current path -> original path, then
// overwrites the restored file with the backup's pristine bytes (undoing
// the tag rewrite) if a backup exists.
func (o *Organizer) reverseRecord(rec model.MoveRecord) model.ReversalState {
	if rec.CurrentPath != rec.OriginalPath {
		if _, err := os.Stat(rec.CurrentPath); err != nil {
			return model.Broken
		}
		if err := os.MkdirAll(filepath.Dir(rec.OriginalPath), 0o755); err != nil {
			return model.Broken
		}
		if err := moveFile(rec.CurrentPath, rec.OriginalPath); err != nil {
			return model.Broken
		}
	}

	if rec.BackupPath != "" {
		if _, err := os.Stat(rec.BackupPath); err == nil {
			if err := copyAndVerify(rec.BackupPath, rec.OriginalPath); err != nil {
				return model.Broken
			}
		}
	}

	return model.Reversed
}
