// Package ledger is the durability boundary in front of the move-ledger
// table (spec §3, §6): the only component that appends MoveRecords, and
// the keeper of dry-run records that must never survive the batch.
//
// The actual rollback algorithm (reverse-order walk, broken-chain
// handling) lives in internal/organizer, since reversing a move is a
// filesystem operation; this package only guarantees appends are
// serialized and that a dry-run record is held in memory instead of
// written to the database (spec §4.5: "a speculative MoveRecord with
// dry_run=true that does not survive the batch").
package ledger

import (
	"sort"
	"sync"

	"github.com/tunevault/tunevault/internal/model"
	"github.com/tunevault/tunevault/internal/store"
)

// Ledger fronts the durable move_ledger table.
type Ledger struct {
	store *store.Store

	mu         sync.Mutex
	dryRun     map[string][]model.MoveRecord // batch id -> ephemeral records
	nextDryRun uint64
}

// New creates a Ledger backed by st.
func New(st *store.Store) *Ledger {
	return &Ledger{store: st, dryRun: make(map[string][]model.MoveRecord)}
}

// Append persists rec (or, if rec.DryRun, holds it in memory only) and
// returns the stored copy with its assigned ID.
func (l *Ledger) Append(rec model.MoveRecord) (model.MoveRecord, error) {
	if rec.DryRun {
		l.mu.Lock()
		defer l.mu.Unlock()
		l.nextDryRun++
		rec.ID = l.nextDryRun
		l.dryRun[rec.BatchID] = append(l.dryRun[rec.BatchID], rec)
		return rec, nil
	}

	saved, err := l.store.AppendMoveRecord(&rec)
	if err != nil {
		return model.MoveRecord{}, err
	}
	return *saved, nil
}

// RecordsForBatch returns every ledger entry for batchID in descending ID
// order — the order rollback must process them in (spec §4.5) — including
// any still-in-memory dry-run records for that batch.
func (l *Ledger) RecordsForBatch(batchID string) ([]model.MoveRecord, error) {
	persisted, err := l.store.ListMoveRecords(batchID)
	if err != nil {
		return nil, err
	}

	l.mu.Lock()
	ephemeral := append([]model.MoveRecord(nil), l.dryRun[batchID]...)
	l.mu.Unlock()

	out := append(persisted, ephemeral...)
	sort.SliceStable(out, func(i, j int) bool { return out[i].ID > out[j].ID })
	return out, nil
}

// RecordForTrack returns the most recent ledger entry whose original or
// current path matches path within batchID, used to resolve the
// "track_id" form of rollback (spec §4.5: "rollback(record_id | batch_id |
// track_id)" — tracks are identified by their source path, spec §3).
func (l *Ledger) RecordForTrack(batchID, path string) (*model.MoveRecord, bool, error) {
	records, err := l.RecordsForBatch(batchID)
	if err != nil {
		return nil, false, err
	}
	for i := range records {
		if records[i].OriginalPath == path || records[i].CurrentPath == path {
			return &records[i], true, nil
		}
	}
	return nil, false, nil
}

// SetReversalState updates a record's reversal state after a rollback
// attempt. Dry-run records are updated in place since they were never
// persisted.
func (l *Ledger) SetReversalState(batchID string, id uint64, state model.ReversalState) error {
	l.mu.Lock()
	for i, rec := range l.dryRun[batchID] {
		if rec.ID == id {
			l.dryRun[batchID][i].Reversal = state
			l.mu.Unlock()
			return nil
		}
	}
	l.mu.Unlock()
	return l.store.SetReversalState(id, state)
}

// DiscardDryRun drops batchID's in-memory speculative records once the
// batch (or its report) is done with them.
func (l *Ledger) DiscardDryRun(batchID string) {
	l.mu.Lock()
	delete(l.dryRun, batchID)
	l.mu.Unlock()
}
