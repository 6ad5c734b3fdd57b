package fingerprint

import (
	"context"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tunevault/tunevault/internal/model"
)

type fakeExtractor struct {
	delay   time.Duration
	outcome Outcome
	calls   int32
}

func (f *fakeExtractor) Extract(ctx context.Context, path string) Result {
	atomic.AddInt32(&f.calls, 1)
	if f.delay > 0 {
		time.Sleep(f.delay)
	}
	if f.outcome == OutcomeOK {
		return Result{Outcome: OutcomeOK, Fingerprint: &model.Fingerprint{Value: "fp-" + path, Duration: 120}}
	}
	return Result{Outcome: f.outcome}
}

func neverCancelled() (bool, bool) { return false, false }

func tracks(n int) []*model.Track {
	out := make([]*model.Track, n)
	for i := range out {
		out[i] = &model.Track{SourcePath: "t.mp3"}
	}
	return out
}

func TestRunCompletesAllTracksOnHappyPath(t *testing.T) {
	ex := &fakeExtractor{outcome: OutcomeOK}
	s := &Stage{Extractor: ex, WorkerCount: 3}

	ts := tracks(10)
	results := s.Run(context.Background(), ts, neverCancelled, nil)

	require.Len(t, results, 10)
	for _, tr := range ts {
		assert.Equal(t, OutcomeOK, results[tr].Outcome)
	}
	assert.Equal(t, int32(10), atomic.LoadInt32(&ex.calls))
}

func TestRunReportsProgressForEachCompletion(t *testing.T) {
	ex := &fakeExtractor{outcome: OutcomeOK}
	s := &Stage{Extractor: ex, WorkerCount: 2}

	var progressCalls int32
	ts := tracks(5)
	s.Run(context.Background(), ts, neverCancelled, func(completed, total int) {
		atomic.AddInt32(&progressCalls, 1)
		assert.Equal(t, 5, total)
	})

	assert.Equal(t, int32(5), atomic.LoadInt32(&progressCalls))
}

func TestRunStopsDispatchingOnCancellation(t *testing.T) {
	ex := &fakeExtractor{delay: 20 * time.Millisecond, outcome: OutcomeOK}
	s := &Stage{Extractor: ex, WorkerCount: 2}

	var checks int32
	cancelAfterFirstFew := func() (bool, bool) {
		n := atomic.AddInt32(&checks, 1)
		return false, n > 2
	}

	ts := tracks(50)
	results := s.Run(context.Background(), ts, cancelAfterFirstFew, nil)

	assert.Less(t, len(results), 50)
}

func TestRunHonorsPauseBeforeDispatching(t *testing.T) {
	ex := &fakeExtractor{outcome: OutcomeOK}
	s := &Stage{Extractor: ex, WorkerCount: 1}

	var unpaused atomic.Bool
	check := func() (bool, bool) {
		return !unpaused.Load(), false
	}

	ts := tracks(2)
	done := make(chan map[*model.Track]Result, 1)
	go func() {
		done <- s.Run(context.Background(), ts, check, nil)
	}()

	time.Sleep(100 * time.Millisecond)
	assert.Equal(t, int32(0), atomic.LoadInt32(&ex.calls), "dispatch must hold while paused")

	unpaused.Store(true)
	select {
	case results := <-done:
		assert.Len(t, results, 2)
	case <-time.After(2 * time.Second):
		t.Fatal("Run did not resume after unpause")
	}
}

func TestRunReportsToolMissingOutcome(t *testing.T) {
	ex := &fakeExtractor{outcome: OutcomeToolMissing}
	s := &Stage{Extractor: ex, WorkerCount: 1}

	ts := tracks(1)
	results := s.Run(context.Background(), ts, neverCancelled, nil)
	assert.Equal(t, OutcomeToolMissing, results[ts[0]].Outcome)
}
