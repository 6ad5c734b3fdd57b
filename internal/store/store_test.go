package store

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"github.com/tunevault/tunevault/internal/model"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	st, err := OpenInMemory()
	require.NoError(t, err)
	t.Cleanup(func() { _ = st.Close() })
	return st
}

func TestSaveAndResumeTrack(t *testing.T) {
	st := newTestStore(t)

	tr := &model.Track{BatchID: "b1", SourcePath: "/in/a.mp3", State: model.StateApplied}
	require.NoError(t, st.SaveTrack(tr))

	terminal, err := st.TerminalPaths("b1")
	require.NoError(t, err)
	require.True(t, terminal["/in/a.mp3"])

	got, err := st.GetTrack("b1", "/in/a.mp3")
	require.NoError(t, err)
	require.Equal(t, model.StateApplied, got.State)
}

func TestTerminalPathsExcludesNonTerminal(t *testing.T) {
	st := newTestStore(t)
	require.NoError(t, st.SaveTrack(&model.Track{BatchID: "b1", SourcePath: "/in/pending.mp3", State: model.StatePending}))
	terminal, err := st.TerminalPaths("b1")
	require.NoError(t, err)
	require.False(t, terminal["/in/pending.mp3"])
}

func TestLedgerAppendAndList(t *testing.T) {
	st := newTestStore(t)

	rec1, err := st.AppendMoveRecord(&model.MoveRecord{BatchID: "b1", OriginalPath: "/a", CurrentPath: "/a", Reversal: model.Reversible})
	require.NoError(t, err)
	rec2, err := st.AppendMoveRecord(&model.MoveRecord{BatchID: "b1", OriginalPath: "/b", CurrentPath: "/b", Reversal: model.Reversible})
	require.NoError(t, err)
	require.Greater(t, rec2.ID, rec1.ID)

	list, err := st.ListMoveRecords("b1")
	require.NoError(t, err)
	require.Len(t, list, 2)
	require.Equal(t, rec2.ID, list[0].ID) // descending order

	require.NoError(t, st.SetReversalState(rec1.ID, model.Reversed))
	got, err := st.GetMoveRecord(rec1.ID)
	require.NoError(t, err)
	require.Equal(t, model.Reversed, got.Reversal)
}

func TestDryRunRecordsRejectedByAppend(t *testing.T) {
	st := newTestStore(t)
	_, err := st.AppendMoveRecord(&model.MoveRecord{DryRun: true})
	require.Error(t, err)
}

func TestCachePutGetAndEvict(t *testing.T) {
	st := newTestStore(t)

	require.NoError(t, st.CachePut("k1", []byte(`{"ok":true}`), false))
	val, neg, _, ok, err := st.CacheGet("k1")
	require.NoError(t, err)
	require.True(t, ok)
	require.False(t, neg)
	require.Equal(t, `{"ok":true}`, string(val))

	_, _, _, ok, err = st.CacheGet("missing")
	require.NoError(t, err)
	require.False(t, ok)

	require.NoError(t, st.CachePut("k2", nil, true))
	n, err := st.EvictExpired(30*24*time.Hour, 0) // negative TTL of 0 evicts immediately
	require.NoError(t, err)
	require.Equal(t, int64(1), n)

	_, _, _, ok, err = st.CacheGet("k1")
	require.NoError(t, err)
	require.True(t, ok) // positive entry survives with a long TTL
}
