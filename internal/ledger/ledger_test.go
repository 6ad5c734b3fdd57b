package ledger

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tunevault/tunevault/internal/model"
	"github.com/tunevault/tunevault/internal/store"
)

func newTestLedger(t *testing.T) (*Ledger, *store.Store) {
	t.Helper()
	st, err := store.OpenInMemory()
	require.NoError(t, err)
	return New(st), st
}

func TestAppendPersistsNonDryRunRecords(t *testing.T) {
	l, st := newTestLedger(t)
	defer st.Close()

	rec, err := l.Append(model.MoveRecord{BatchID: "b1", OriginalPath: "/a", CurrentPath: "/b", Operation: model.OpMove, Reversal: model.Reversible})
	require.NoError(t, err)
	assert.NotZero(t, rec.ID)

	records, err := l.RecordsForBatch("b1")
	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.Equal(t, "/a", records[0].OriginalPath)
}

func TestAppendHoldsDryRunRecordsInMemoryOnly(t *testing.T) {
	l, st := newTestLedger(t)
	defer st.Close()

	rec, err := l.Append(model.MoveRecord{BatchID: "b1", OriginalPath: "/a", CurrentPath: "/b", DryRun: true})
	require.NoError(t, err)
	assert.NotZero(t, rec.ID)

	persisted, err := st.ListMoveRecords("b1")
	require.NoError(t, err)
	assert.Empty(t, persisted, "dry-run records must never be persisted")

	records, err := l.RecordsForBatch("b1")
	require.NoError(t, err)
	require.Len(t, records, 1)

	l.DiscardDryRun("b1")
	records, err = l.RecordsForBatch("b1")
	require.NoError(t, err)
	assert.Empty(t, records)
}

func TestRecordsForBatchOrdersDescendingByID(t *testing.T) {
	l, st := newTestLedger(t)
	defer st.Close()

	for i := 0; i < 3; i++ {
		_, err := l.Append(model.MoveRecord{BatchID: "b1", OriginalPath: "/a", CurrentPath: "/b", Operation: model.OpMove, Reversal: model.Reversible})
		require.NoError(t, err)
	}

	records, err := l.RecordsForBatch("b1")
	require.NoError(t, err)
	require.Len(t, records, 3)
	assert.True(t, records[0].ID > records[1].ID)
	assert.True(t, records[1].ID > records[2].ID)
}

func TestRecordForTrackMatchesOriginalOrCurrentPath(t *testing.T) {
	l, st := newTestLedger(t)
	defer st.Close()

	_, err := l.Append(model.MoveRecord{BatchID: "b1", OriginalPath: "/src/a.mp3", CurrentPath: "/dest/a.mp3", Operation: model.OpMove, Reversal: model.Reversible})
	require.NoError(t, err)

	rec, found, err := l.RecordForTrack("b1", "/src/a.mp3")
	require.NoError(t, err)
	require.True(t, found)
	assert.Equal(t, "/dest/a.mp3", rec.CurrentPath)

	_, found, err = l.RecordForTrack("b1", "/nowhere.mp3")
	require.NoError(t, err)
	assert.False(t, found)
}

func TestSetReversalStateUpdatesPersistedAndDryRunRecords(t *testing.T) {
	l, st := newTestLedger(t)
	defer st.Close()

	persisted, err := l.Append(model.MoveRecord{BatchID: "b1", OriginalPath: "/a", CurrentPath: "/b", Operation: model.OpMove, Reversal: model.Reversible})
	require.NoError(t, err)
	require.NoError(t, l.SetReversalState("b1", persisted.ID, model.Reversed))

	records, err := l.RecordsForBatch("b1")
	require.NoError(t, err)
	assert.Equal(t, model.Reversed, records[0].Reversal)

	ephemeral, err := l.Append(model.MoveRecord{BatchID: "b2", OriginalPath: "/x", CurrentPath: "/y", DryRun: true})
	require.NoError(t, err)
	require.NoError(t, l.SetReversalState("b2", ephemeral.ID, model.Broken))

	records, err = l.RecordsForBatch("b2")
	require.NoError(t, err)
	assert.Equal(t, model.Broken, records[0].Reversal)
}
